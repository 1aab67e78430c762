package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestZapAdapter_FieldsAndScoping(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	scoped := ForComponent(log, "router").WithFields(map[string]interface{}{"userId": "u1"})
	scoped.Info("turn handled", map[string]interface{}{"intent": "greeting"})
	scoped.WithError(errors.New("boom")).Warn("pulse write failed", nil)

	entries := logs.All()
	assert.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "router", first["component"])
	assert.Equal(t, "u1", first["userId"])
	assert.Equal(t, "greeting", first["intent"])

	second := entries[1].ContextMap()
	assert.Equal(t, "boom", second["error"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestForComponent_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		ForComponent(nil, "x").Info("ok", nil)
	})
}

func TestNewStructured(t *testing.T) {
	assert.NotNil(t, NewStructured("debug", "json"))
	assert.NotNil(t, NewStructured("info", "console"))
}
