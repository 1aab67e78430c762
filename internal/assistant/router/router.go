// Package router runs one conversational turn: pulse bookkeeping, dialogue
// or classification, lookup dispatch and response composition.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"realestate-assistant/internal/assistant/classify"
	"realestate-assistant/internal/assistant/compose"
	"realestate-assistant/internal/assistant/dialogue"
	"realestate-assistant/internal/assistant/dispatch"
	"realestate-assistant/internal/common/keylock"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/common/metrics"
	"realestate-assistant/internal/common/observability"
	"realestate-assistant/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	pathDialogue     = "dialogue"
	pathPendingOffer = "pending_offer"
	pathLookup       = "lookup"
	pathTemplate     = "template"
	pathError        = "error"

	defaultBackgroundTimeout = 5 * time.Second
)

// Dispatcher resolves the data of lookup intents.
type Dispatcher interface {
	Dispatch(ctx context.Context, a models.Analysis, u models.Utterance) (models.Payload, error)
}

// PulseTracker records per-user interaction telemetry.
type PulseTracker interface {
	RecordInput(ctx context.Context, userID, rawInput string, metadata map[string]interface{}) (int64, models.Intent, error)
	RecordIntent(ctx context.Context, userID string, intent models.Intent, confidence float64, rawInput string) error
}

// AppointmentSink receives appointments produced by a completed flow.
type AppointmentSink interface {
	AppointmentCreated(ctx context.Context, appt models.Appointment) error
}

// PulseSnapshot is the pulse state observed at the start of a turn.
type PulseSnapshot struct {
	InteractionCount int64         `json:"interactionCount"`
	PreviousIntent   models.Intent `json:"previousIntent,omitempty"`
}

// Turn is the outcome of HandleMessage. Session must be passed back on the
// user's next turn.
type Turn struct {
	Response models.NormalizedResponse `json:"response"`
	Session  models.Session            `json:"session"`
	Pulse    PulseSnapshot             `json:"pulse"`
}

type Config struct {
	MaxListItems int
	// BackgroundTimeout bounds the fire-and-forget writes issued after a
	// turn.
	BackgroundTimeout time.Duration
}

type Router struct {
	config     Config
	classifier *classify.Classifier
	machine    *dialogue.Machine
	dispatcher Dispatcher
	composer   *compose.Composer
	pulse      PulseTracker
	sink       AppointmentSink
	obs        *observability.Observability
	tracer     trace.Tracer
	locks      *keylock.Locker
	logger     logger.Logger
	background sync.WaitGroup

	// pending holds, per user, the completion channel of the newest queued
	// intent write. Writes of one user run in turn order.
	pendingMu sync.Mutex
	pending   map[string]chan struct{}
}

type Option func(*Router)

func WithAppointmentSink(sink AppointmentSink) Option {
	return func(r *Router) { r.sink = sink }
}

func WithObservability(obs *observability.Observability) Option {
	return func(r *Router) {
		r.obs = obs
		if obs != nil {
			r.tracer = obs.Tracer()
		}
	}
}

func WithClassifier(c *classify.Classifier) Option {
	return func(r *Router) { r.classifier = c }
}

func WithDialogue(m *dialogue.Machine) Option {
	return func(r *Router) { r.machine = m }
}

// New builds a router. A nil tracker disables pulse bookkeeping.
func New(config Config, dispatcher Dispatcher, tracker PulseTracker, log logger.Logger, opts ...Option) *Router {
	if config.BackgroundTimeout <= 0 {
		config.BackgroundTimeout = defaultBackgroundTimeout
	}
	r := &Router{
		config:     config,
		classifier: classify.Default(),
		machine:    dialogue.New(),
		dispatcher: dispatcher,
		composer:   compose.New(config.MaxListItems),
		pulse:      tracker,
		tracer:     otel.Tracer("realestate-assistant/router"),
		locks:      keylock.New(),
		logger:     logger.ForComponent(log, "router"),
		pending:    make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleMessage runs one turn. It never fails: every error, including a
// panic, becomes a system_error response. Turns of the same user are
// serialized; the session passed in is never modified.
func (r *Router) HandleMessage(ctx context.Context, u models.Utterance, s models.Session) Turn {
	start := time.Now()
	metrics.AssistantActiveTurns.Inc()
	defer metrics.AssistantActiveTurns.Dec()

	ctx, span := r.tracer.Start(ctx, "assistant.turn", trace.WithAttributes(
		attribute.String("user.id", u.UserID),
		attribute.Bool("session.in_flow", s.InFlow()),
	))
	defer span.End()

	unlock, err := r.locks.Lock(ctx, u.UserID)
	if err != nil {
		r.logger.Warn("turn abandoned while waiting for user lock", map[string]interface{}{
			"userId": u.UserID,
			"error":  err.Error(),
		})
		turn := Turn{Response: compose.SystemError(), Session: s}
		r.finish(ctx, u, turn, pathError, start)
		return turn
	}
	defer unlock()

	turn, path := r.safeTurn(ctx, u, s)
	span.SetAttributes(
		attribute.String("assistant.intent", string(turn.Response.Intent)),
		attribute.String("assistant.path", path),
	)
	r.finish(ctx, u, turn, path, start)
	return turn
}

// Wait blocks until the fire-and-forget writes of finished turns are done.
func (r *Router) Wait() {
	r.background.Wait()
}

func (r *Router) safeTurn(ctx context.Context, u models.Utterance, s models.Session) (turn Turn, path string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("turn panicked", map[string]interface{}{
				"userId": u.UserID,
				"panic":  fmt.Sprint(rec),
			})
			turn = Turn{Response: compose.SystemError(), Session: s, Pulse: turn.Pulse}
			path = pathError
		}
	}()

	turn.Pulse = r.recordInput(ctx, u)

	if s.InFlow() {
		turn.Response, turn.Session = r.advanceFlow(ctx, u, s)
		return turn, pathDialogue
	}

	if s.PendingOffer != nil {
		offer := *s.PendingOffer
		s.PendingOffer = nil
		if IsAffirmative(u.Text) {
			turn.Response = r.acceptOffer(offer)
			turn.Session = s
			return turn, pathPendingOffer
		}
	}

	a := r.classifier.Analyze(u.Text)

	if a.Intent == models.IntentManageAppointments {
		next, out := r.machine.Start()
		turn.Response = r.composer.Compose(a, compose.TurnState{Text: u.Text, Dialogue: &out, Session: next})
		turn.Session = next
		return turn, pathDialogue
	}

	query := dispatch.BuildQuery(a, u.Text, r.config.MaxListItems).Text
	path = pathTemplate

	if dispatch.NeedsLookup(a.Intent) {
		path = pathLookup
		data, err := r.dispatcher.Dispatch(ctx, a, u)
		if err != nil {
			metrics.AssistantLookupFailures.WithLabelValues(string(a.Intent)).Inc()
			r.logger.Warn("lookup failed, answering with system error", map[string]interface{}{
				"userId": u.UserID,
				"intent": string(a.Intent),
				"error":  err.Error(),
			})
			turn.Response = compose.SystemError()
			turn.Session = s
			return turn, pathError
		}
		a.Data = data
		if models.IsEmptyResult(data) {
			metrics.AssistantEmptyResults.WithLabelValues(string(data.Entity())).Inc()
		}
	}

	turn.Response = r.composer.Compose(a, compose.TurnState{Text: u.Text, Query: query, Session: s})
	turn.Session = s
	turn.Session.PendingOffer = compose.PendingOfferFor(a, query)
	return turn, path
}

func (r *Router) advanceFlow(ctx context.Context, u models.Utterance, s models.Session) (models.NormalizedResponse, models.Session) {
	next, out := r.machine.Advance(s, u.Text)

	if out.Kind == dialogue.OutcomeCompleted && out.Appointment != nil {
		appt := *out.Appointment
		appt.UserID = u.UserID
		out.Appointment = &appt
		r.notifyAppointment(ctx, appt)
	}

	resp := r.composer.Compose(models.Analysis{}, compose.TurnState{Text: u.Text, Dialogue: &out, Session: next})
	return resp, next
}

func (r *Router) acceptOffer(offer models.PendingOffer) models.NormalizedResponse {
	action, entity := classify.ActionEntity(offer.Intent)
	a := models.Analysis{
		Intent:     offer.Intent,
		Confidence: classify.PatternConfidence,
		Action:     action,
		Entity:     entity,
	}
	return r.composer.Compose(a, compose.TurnState{Query: offer.Query})
}

func (r *Router) recordInput(ctx context.Context, u models.Utterance) PulseSnapshot {
	if r.pulse == nil {
		return PulseSnapshot{}
	}
	r.awaitIntentWrite(ctx, u.UserID)
	count, prev, err := r.pulse.RecordInput(ctx, u.UserID, u.Text, u.Metadata)
	if err != nil {
		metrics.AssistantPulseErrors.WithLabelValues("record_input").Inc()
		r.logger.Warn("pulse input not recorded", map[string]interface{}{
			"userId": u.UserID,
			"error":  err.Error(),
		})
	}
	return PulseSnapshot{InteractionCount: count, PreviousIntent: prev}
}

func (r *Router) finish(ctx context.Context, u models.Utterance, turn Turn, path string, start time.Time) {
	resp := turn.Response
	r.recordIntent(ctx, u, resp)

	duration := time.Since(start)
	metrics.AssistantTurnsTotal.WithLabelValues(string(resp.Intent), string(resp.Entity)).Inc()
	metrics.AssistantTurnDuration.WithLabelValues(path).Observe(duration.Seconds())
	if r.obs != nil {
		r.obs.RecordTurn(ctx, string(resp.Intent), duration)
	}

	r.logger.Info("turn handled", map[string]interface{}{
		"userId":           u.UserID,
		"intent":           string(resp.Intent),
		"confidence":       resp.Confidence,
		"path":             path,
		"step":             string(turn.Session.CurrentStep()),
		"interactionCount": turn.Pulse.InteractionCount,
		"durationMs":       duration.Milliseconds(),
	})
}

// recordIntent logs the resolved intent without holding up the turn. The
// write starts only after the user's previous intent write has finished.
// Failures are logged and dropped.
func (r *Router) recordIntent(ctx context.Context, u models.Utterance, resp models.NormalizedResponse) {
	if r.pulse == nil {
		return
	}

	done := make(chan struct{})
	r.pendingMu.Lock()
	prev := r.pending[u.UserID]
	r.pending[u.UserID] = done
	r.pendingMu.Unlock()

	r.goBackgroundAfter(ctx, prev, func(ctx context.Context) {
		defer r.releaseIntentWrite(u.UserID, done)
		if err := r.pulse.RecordIntent(ctx, u.UserID, resp.Intent, resp.Confidence, u.Text); err != nil {
			metrics.AssistantPulseErrors.WithLabelValues("record_intent").Inc()
			r.logger.Warn("pulse intent not recorded", map[string]interface{}{
				"userId": u.UserID,
				"intent": string(resp.Intent),
				"error":  err.Error(),
			})
		}
	})
}

// awaitIntentWrite blocks until the queued intent writes of userID are done
// so RecordInput observes the intent of the previous turn.
func (r *Router) awaitIntentWrite(ctx context.Context, userID string) {
	r.pendingMu.Lock()
	done := r.pending[userID]
	r.pendingMu.Unlock()
	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (r *Router) releaseIntentWrite(userID string, done chan struct{}) {
	r.pendingMu.Lock()
	if r.pending[userID] == done {
		delete(r.pending, userID)
	}
	r.pendingMu.Unlock()
	close(done)
}

func (r *Router) notifyAppointment(ctx context.Context, appt models.Appointment) {
	if r.sink == nil {
		return
	}
	r.goBackground(ctx, func(ctx context.Context) {
		if err := r.sink.AppointmentCreated(ctx, appt); err != nil {
			r.logger.Warn("appointment sink failed", map[string]interface{}{
				"userId":        appt.UserID,
				"appointmentId": appt.ID,
				"error":         err.Error(),
			})
		}
	})
}

// goBackground runs fn detached from the caller's cancellation but keeps
// its trace context.
func (r *Router) goBackground(ctx context.Context, fn func(context.Context)) {
	r.goBackgroundAfter(ctx, nil, fn)
}

// goBackgroundAfter is goBackground with fn held back until after is closed.
// The timeout starts once fn is allowed to run.
func (r *Router) goBackgroundAfter(ctx context.Context, after <-chan struct{}, fn func(context.Context)) {
	r.background.Add(1)
	go func() {
		defer r.background.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("background write panicked", map[string]interface{}{"panic": fmt.Sprint(rec)})
			}
		}()

		if after != nil {
			<-after
		}
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.BackgroundTimeout)
		defer cancel()
		fn(bctx)
	}()
}

var affirmatives = map[string]bool{
	"نعم": true, "ايه": true, "ايوه": true, "إيه": true, "اي": true, "أكيد": true, "اكيد": true, "تمام": true,
	"yes": true, "y": true, "ok": true, "okay": true, "sure": true,
}

// IsAffirmative reports whether text accepts a yes/no offer.
func IsAffirmative(text string) bool {
	t := strings.ToLower(strings.Trim(strings.TrimSpace(text), "؟?!.,،"))
	return affirmatives[t]
}
