package pulse

import (
	"context"
	"time"

	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/common/keylock"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/models"

	"github.com/google/uuid"
)

// Tracker updates pulse records through a Store. Updates for one user are
// serialized in-process so a late RecordIntent cannot overwrite the counter
// written by the next RecordInput.
type Tracker struct {
	store  Store
	locks  *keylock.Locker
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewTracker(store Store, log logger.Logger) *Tracker {
	return &Tracker{
		store:  store,
		locks:  keylock.New(),
		logger: logger.ForComponent(log, "pulse"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// RecordInput counts one turn for userID and shallow-merges metadata into
// the stored bag. It returns the new count and the last intent recorded
// before this turn.
func (t *Tracker) RecordInput(ctx context.Context, userID, rawInput string, metadata map[string]interface{}) (int64, models.Intent, error) {
	unlock, err := t.locks.Lock(ctx, userID)
	if err != nil {
		return 0, "", apperrors.NewPulseWriteFailedError(userID, err)
	}
	defer unlock()

	p, err := t.load(ctx, userID)
	if err != nil {
		return 0, "", err
	}

	previous := p.LastIntent
	p.InteractionCount++
	for k, v := range metadata {
		p.Metadata[k] = v
	}
	p.LastUpdated = t.now().UTC()

	if err := t.store.Put(ctx, p); err != nil {
		return 0, "", apperrors.NewPulseWriteFailedError(userID, err)
	}

	t.logger.Debug("input recorded", map[string]interface{}{
		"userId":           userID,
		"interactionCount": p.InteractionCount,
		"inputLength":      len(rawInput),
	})
	return p.InteractionCount, previous, nil
}

// RecordIntent stores the resolved intent of a turn and appends it to the
// intent log.
func (t *Tracker) RecordIntent(ctx context.Context, userID string, intent models.Intent, confidence float64, rawInput string) error {
	unlock, err := t.locks.Lock(ctx, userID)
	if err != nil {
		return apperrors.NewPulseWriteFailedError(userID, err)
	}
	defer unlock()

	p, err := t.load(ctx, userID)
	if err != nil {
		return err
	}

	now := t.now().UTC()
	p.LastIntent = intent
	p.LastUpdated = now
	if err := t.store.Put(ctx, p); err != nil {
		return apperrors.NewPulseWriteFailedError(userID, err)
	}

	entry := models.IntentLogEntry{
		ID:         t.newID(),
		UserID:     userID,
		Intent:     intent,
		Confidence: confidence,
		RawInput:   rawInput,
		Timestamp:  now,
	}
	if err := t.store.AppendLog(ctx, entry); err != nil {
		return apperrors.NewPulseWriteFailedError(userID, err)
	}
	return nil
}

// Snapshot returns the stored pulse of userID, or a zero record when the
// user has never been seen.
func (t *Tracker) Snapshot(ctx context.Context, userID string) (*models.UserPulse, error) {
	return t.load(ctx, userID)
}

func (t *Tracker) load(ctx context.Context, userID string) (*models.UserPulse, error) {
	p, err := t.store.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.NewPulseReadFailedError(userID, err)
	}
	if p == nil {
		p = &models.UserPulse{UserID: userID}
	}
	if p.Metadata == nil {
		p.Metadata = map[string]interface{}{}
	}
	return p, nil
}
