package handlemessage

import (
	"time"

	"realestate-assistant/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig derives the handler config from the worker section of cfg.
func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{Timeout: timeout}
}
