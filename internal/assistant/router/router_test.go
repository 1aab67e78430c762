package router

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"realestate-assistant/internal/assistant/dialogue"
	"realestate-assistant/internal/assistant/dispatch"
	"realestate-assistant/internal/assistant/pulse"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ==========================
// Test Doubles
// ==========================

type fakeLookups struct {
	mu        sync.Mutex
	customers []models.Customer
	offers    []models.Offer
	err       error
	calls     int
}

func (f *fakeLookups) SearchCustomers(ctx context.Context, q dispatch.Query) ([]models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.customers, nil
}

func (f *fakeLookups) SearchRequests(ctx context.Context, q dispatch.Query) ([]models.Request, error) {
	return []models.Request{}, nil
}

func (f *fakeLookups) SearchOffers(ctx context.Context, q dispatch.Query) ([]models.Offer, error) {
	return f.offers, nil
}

func (f *fakeLookups) CreateBusinessCard(ctx context.Context, userID, displayName string) (*models.BusinessCard, error) {
	return &models.BusinessCard{ID: "card-1", UserID: userID, DisplayName: displayName, ShareURL: "https://cards.example.com/card-1"}, nil
}

type panickingDispatcher struct{}

func (panickingDispatcher) Dispatch(context.Context, models.Analysis, models.Utterance) (models.Payload, error) {
	panic("collaborator exploded")
}

type failingTracker struct {
	intents int32
}

func (f *failingTracker) RecordInput(context.Context, string, string, map[string]interface{}) (int64, models.Intent, error) {
	return 0, "", errors.New("redis down")
}

func (f *failingTracker) RecordIntent(context.Context, string, models.Intent, float64, string) error {
	atomic.AddInt32(&f.intents, 1)
	return errors.New("redis down")
}

// slowFirstIntent delays the first intent write it forwards.
type slowFirstIntent struct {
	*pulse.Tracker
	delay time.Duration
	calls int32
}

func (s *slowFirstIntent) RecordIntent(ctx context.Context, userID string, intent models.Intent, confidence float64, rawInput string) error {
	if atomic.AddInt32(&s.calls, 1) == 1 {
		time.Sleep(s.delay)
	}
	return s.Tracker.RecordIntent(ctx, userID, intent, confidence, rawInput)
}

type recordingSink struct {
	mu    sync.Mutex
	appts []models.Appointment
}

func (s *recordingSink) AppointmentCreated(_ context.Context, appt models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appts = append(s.appts, appt)
	return nil
}

type testEnv struct {
	router  *Router
	lookups *fakeLookups
	store   *pulse.MemoryStore
	sink    *recordingSink
}

func newTestEnv(t *testing.T) *testEnv {
	log := logger.NewTestLogger(t)
	lookups := &fakeLookups{}
	store := pulse.NewMemoryStore()
	sink := &recordingSink{}

	d := dispatch.NewDispatcher(&dispatch.Config{Timeout: time.Second, MaxItems: 5}, dispatch.Collaborators{
		Customers:     lookups,
		Requests:      lookups,
		Offers:        lookups,
		BusinessCards: lookups,
	}, log)

	r := New(Config{MaxListItems: 5}, d, pulse.NewTracker(store, log), log, WithAppointmentSink(sink))
	t.Cleanup(r.Wait)
	return &testEnv{router: r, lookups: lookups, store: store, sink: sink}
}

func (e *testEnv) say(t *testing.T, s models.Session, text string) Turn {
	turn := e.router.HandleMessage(context.Background(), models.Utterance{UserID: "agent-1", Text: text}, s)
	e.router.Wait()
	assertInvariants(t, turn.Response)
	return turn
}

func assertInvariants(t *testing.T, resp models.NormalizedResponse) {
	t.Helper()
	assert.NotEmpty(t, resp.Intent)
	assert.NotEmpty(t, resp.Action)
	assert.NotEmpty(t, resp.Entity)
	assert.NotEmpty(t, resp.Scope)
	assert.False(t, math.IsNaN(resp.Confidence))
	assert.GreaterOrEqual(t, resp.Confidence, 0.0)
	assert.LessOrEqual(t, resp.Confidence, 1.0)
	assert.NotEmpty(t, resp.Reply)
	assert.NotEmpty(t, resp.ReplyPlain)
	assert.NotNil(t, resp.Actions)
}

// ==========================
// Scenario Tests
// ==========================

func TestHandleMessage_EmptyCustomerSearch(t *testing.T) {
	env := newTestEnv(t)
	turn := env.say(t, models.Session{}, "ابحث عن عميل محمد")

	assert.Equal(t, models.IntentSearchCustomers, turn.Response.Intent)
	assert.Equal(t, models.CustomerResults(nil), turn.Response.Data)
	assert.Contains(t, turn.Response.Reply, "1. ")
	assert.Contains(t, turn.Response.Reply, "2. ")
	require.NotEmpty(t, turn.Response.Actions)
	assert.Equal(t, "search_archive", turn.Response.Actions[0].Name)

	raw, err := json.Marshal(turn.Response)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"data":[]`)

	require.NotNil(t, turn.Session.PendingOffer)
	assert.Equal(t, models.IntentArchiveSearch, turn.Session.PendingOffer.Intent)
	assert.Equal(t, "محمد", turn.Session.PendingOffer.Query)
}

func TestHandleMessage_CutListing(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"محمد", "سارة", "فهد", "نورة", "خالد", "ريم"} {
		env.lookups.customers = append(env.lookups.customers, models.Customer{ID: name, Name: name, Phone: "0500000000"})
	}

	turn := env.say(t, models.Session{}, "ابحث عن عملاء")

	assert.Equal(t, models.IntentSearchCustomers, turn.Response.Intent)
	assert.Contains(t, turn.Response.Reply, "لقيت أكثر من 5")
	assert.NotContains(t, turn.Response.Reply, "ريم")
	require.NotNil(t, turn.Response.ReplyRich)
	assert.Contains(t, *turn.Response.ReplyRich, "نتائج أكثر")
}

func TestHandleMessage_Greeting(t *testing.T) {
	env := newTestEnv(t)
	turn := env.say(t, models.Session{}, "مرحبا")

	assert.Equal(t, models.IntentGreeting, turn.Response.Intent)
	assert.GreaterOrEqual(t, turn.Response.Confidence, 0.9)
	assert.Equal(t, int64(1), turn.Pulse.InteractionCount)
}

func TestHandleMessage_AppointmentFlow(t *testing.T) {
	env := newTestEnv(t)
	s := models.Session{}

	turn := env.say(t, s, "احجز موعد")
	assert.Equal(t, models.IntentManageAppointments, turn.Response.Intent)
	assert.Len(t, turn.Response.Actions, 2)
	assert.Equal(t, models.StepChooseAppointmentType, turn.Session.CurrentStep())
	s = turn.Session

	turn = env.say(t, s, "معاينة عقار")
	assert.Equal(t, models.StepSetDate, turn.Session.CurrentStep())
	s = turn.Session

	turn = env.say(t, s, "20/5/2025")
	assert.Equal(t, models.StepSetTime, turn.Session.CurrentStep())
	assert.Equal(t, "20/5/2025", models.StringValue(turn.Session.AppointmentDate))
	s = turn.Session

	turn = env.say(t, s, "10:00")
	assert.Equal(t, models.StepSetGoal, turn.Session.CurrentStep())
	s = turn.Session

	turn = env.say(t, s, "توقيع عقد")
	require.NotNil(t, turn.Response.FollowUp)
	assert.True(t, turn.Response.FollowUp.Confirmed)
	assert.Equal(t, models.IntentManageAppointments, turn.Response.Intent)
	assert.Equal(t, models.ActionCreate, turn.Response.Action)
	assert.Equal(t, models.EntityAppointment, turn.Response.Entity)

	created, ok := turn.Response.Data.(models.AppointmentCreated)
	require.True(t, ok)
	assert.Equal(t, "توقيع عقد", created.Purpose)
	assert.Equal(t, dialogue.TypeViewing, created.Type)
	assert.Equal(t, "20/5/2025", created.Date)
	assert.Equal(t, "10:00", created.Time)
	assert.NotEmpty(t, created.ID)

	assert.False(t, turn.Session.InFlow())
	assert.Equal(t, models.Session{}, turn.Session)

	require.Len(t, env.sink.appts, 1)
	assert.Equal(t, "agent-1", env.sink.appts[0].UserID)
	assert.Equal(t, int64(5), turn.Pulse.InteractionCount)
}

func TestHandleMessage_FlowDoesNotReclassify(t *testing.T) {
	env := newTestEnv(t)
	s := models.Session{}.WithStep(models.StepSetGoal)

	turn := env.say(t, s, "ابحث عن عميل محمد")
	assert.Equal(t, models.IntentManageAppointments, turn.Response.Intent)
	assert.Zero(t, env.lookups.calls)
}

func TestHandleMessage_DoesNotMutateInputSession(t *testing.T) {
	env := newTestEnv(t)
	step := models.StepSetDate
	s := models.Session{Step: &step, AppointmentType: models.StringPtr(dialogue.TypeMeeting)}

	turn := env.say(t, s, "21/5/2025")
	assert.Equal(t, models.StepSetDate, *s.Step)
	assert.Nil(t, s.AppointmentDate)
	assert.Equal(t, models.StepSetTime, turn.Session.CurrentStep())
}

// ==========================
// Pending Offer Tests
// ==========================

func TestHandleMessage_AcceptArchiveOffer(t *testing.T) {
	env := newTestEnv(t)
	first := env.say(t, models.Session{}, "ابحث عن عميل محمد")

	turn := env.say(t, first.Session, "نعم")
	assert.Equal(t, models.IntentArchiveSearch, turn.Response.Intent)
	assert.Equal(t, "archives", turn.Response.Scope)
	require.Len(t, turn.Response.Actions, 1)
	assert.Equal(t, "محمد", turn.Response.Actions[0].Params["query"])
	assert.Nil(t, turn.Session.PendingOffer)
}

func TestHandleMessage_DeclineArchiveOffer(t *testing.T) {
	env := newTestEnv(t)
	first := env.say(t, models.Session{}, "ابحث عن عميل محمد")

	turn := env.say(t, first.Session, "مرحبا")
	assert.Equal(t, models.IntentGreeting, turn.Response.Intent)
	assert.Nil(t, turn.Session.PendingOffer)
}

// ==========================
// Failure Tests
// ==========================

func TestHandleMessage_LookupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.lookups.err = errors.New("connection reset")

	turn := env.say(t, models.Session{}, "ابحث عن عميل محمد")
	assert.Equal(t, models.IntentSystemError, turn.Response.Intent)
	assert.Equal(t, 0.0, turn.Response.Confidence)
	assert.Equal(t, models.EntitySystem, turn.Response.Entity)
	assert.Nil(t, turn.Session.PendingOffer)

	log := env.store.Log()
	require.Len(t, log, 1)
	assert.Equal(t, models.IntentSystemError, log[0].Intent)
}

func TestHandleMessage_PanicBecomesSystemError(t *testing.T) {
	log := logger.NewTestLogger(t)
	r := New(Config{}, panickingDispatcher{}, pulse.NewTracker(pulse.NewMemoryStore(), log), log)
	t.Cleanup(r.Wait)

	s := models.Session{}
	turn := r.HandleMessage(context.Background(), models.Utterance{UserID: "u1", Text: "عروض فلل"}, s)
	assertInvariants(t, turn.Response)
	assert.Equal(t, models.IntentSystemError, turn.Response.Intent)
	assert.Equal(t, s, turn.Session)
	assert.Equal(t, int64(1), turn.Pulse.InteractionCount)
}

func TestHandleMessage_TelemetryFailureIsIgnored(t *testing.T) {
	log := logger.NewTestLogger(t)
	tracker := &failingTracker{}
	r := New(Config{}, dispatch.NewDispatcher(nil, dispatch.Collaborators{}, log), tracker, log)

	turn := r.HandleMessage(context.Background(), models.Utterance{UserID: "u1", Text: "مرحبا"}, models.Session{})
	r.Wait()

	assert.Equal(t, models.IntentGreeting, turn.Response.Intent)
	assert.Equal(t, int64(0), turn.Pulse.InteractionCount)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tracker.intents))
}

func TestHandleMessage_CancelledWhileWaitingForUser(t *testing.T) {
	env := newTestEnv(t)
	unlock, err := env.router.locks.Lock(context.Background(), "agent-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	turn := env.router.HandleMessage(ctx, models.Utterance{UserID: "agent-1", Text: "مرحبا"}, models.Session{})
	assert.Equal(t, models.IntentSystemError, turn.Response.Intent)
}

// ==========================
// Property Tests
// ==========================

func TestHandleMessage_InvariantsForArbitraryInput(t *testing.T) {
	env := newTestEnv(t)
	env.lookups.offers = []models.Offer{{ID: "o1", Title: "فيلا", Location: "الرياض", Price: 2000000}}

	inputs := []string{
		"", "   ", "؟؟؟", "مرحبا", "hello there", "ابحث في الأرشيف", "الطلبات العاجلة", "عروض فلل",
		"سوي لي بطاقة أعمال", "تقارير الأداء", "منشور انستقرام", "أسعار السوق", "help",
		"0501234567", "a@b.co", "١٢/٥/٢٠٢٥", "كلام عشوائي تماما", "طلبات العميل خالد",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			env.say(t, models.Session{}, in)
		})
	}
}

func TestHandleMessage_FirstMatchWins(t *testing.T) {
	env := newTestEnv(t)
	// Matches both the archive and the customer rules.
	turn := env.say(t, models.Session{}, "ابحث في الأرشيف عن عميل")
	assert.Equal(t, models.IntentArchiveSearch, turn.Response.Intent)
	assert.Zero(t, env.lookups.calls)
}

func TestHandleMessage_PulseCountsAndPreviousIntent(t *testing.T) {
	env := newTestEnv(t)

	first := env.say(t, models.Session{}, "مرحبا")
	assert.Equal(t, int64(1), first.Pulse.InteractionCount)
	assert.Empty(t, first.Pulse.PreviousIntent)

	second := env.say(t, models.Session{}, "help")
	assert.Equal(t, int64(2), second.Pulse.InteractionCount)
	assert.Equal(t, models.IntentGreeting, second.Pulse.PreviousIntent)
	assert.Len(t, env.store.Log(), 2)
}

// ==========================
// Concurrency Tests
// ==========================

func TestHandleMessage_ConcurrentUsers(t *testing.T) {
	env := newTestEnv(t)
	var wg sync.WaitGroup

	users := []string{"u1", "u2", "u3"}
	const turnsPerUser = 20
	for _, user := range users {
		for i := 0; i < turnsPerUser; i++ {
			wg.Add(1)
			go func(user string) {
				defer wg.Done()
				env.router.HandleMessage(context.Background(), models.Utterance{UserID: user, Text: "مرحبا"}, models.Session{})
			}(user)
		}
	}
	wg.Wait()
	env.router.Wait()

	for _, user := range users {
		p, err := env.store.Get(context.Background(), user)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, int64(turnsPerUser), p.InteractionCount)
	}
	assert.Len(t, env.store.Log(), len(users)*turnsPerUser)
	assert.Equal(t, 0, env.router.locks.Len())
}

func TestHandleMessage_IntentWritesFollowTurnOrder(t *testing.T) {
	log := logger.NewTestLogger(t)
	store := pulse.NewMemoryStore()
	tracker := &slowFirstIntent{Tracker: pulse.NewTracker(store, log), delay: 50 * time.Millisecond}
	r := New(Config{}, dispatch.NewDispatcher(nil, dispatch.Collaborators{}, log), tracker, log)

	ctx := context.Background()
	first := r.HandleMessage(ctx, models.Utterance{UserID: "agent-1", Text: "مرحبا"}, models.Session{})
	second := r.HandleMessage(ctx, models.Utterance{UserID: "agent-1", Text: "help"}, models.Session{})
	r.Wait()

	assert.Equal(t, models.IntentGreeting, first.Response.Intent)
	assert.Equal(t, models.IntentHelp, second.Response.Intent)
	assert.Equal(t, int64(2), second.Pulse.InteractionCount)
	assert.Equal(t, models.IntentGreeting, second.Pulse.PreviousIntent)

	p, err := store.Get(ctx, "agent-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.IntentHelp, p.LastIntent)

	entries := store.Log()
	require.Len(t, entries, 2)
	assert.Equal(t, models.IntentGreeting, entries[0].Intent)
	assert.Equal(t, models.IntentHelp, entries[1].Intent)
	assert.Empty(t, r.pending)
}

func TestHandleMessage_IntentWritesQueuePerUser(t *testing.T) {
	log := logger.NewTestLogger(t)
	store := pulse.NewMemoryStore()
	tracker := &slowFirstIntent{Tracker: pulse.NewTracker(store, log), delay: 30 * time.Millisecond}
	r := New(Config{}, dispatch.NewDispatcher(nil, dispatch.Collaborators{}, log), tracker, log)

	texts := []string{"مرحبا", "help", "مرحبا", "help"}
	for _, text := range texts {
		r.HandleMessage(context.Background(), models.Utterance{UserID: "agent-1", Text: text}, models.Session{})
	}
	r.Wait()

	entries := store.Log()
	require.Len(t, entries, len(texts))
	for i, text := range texts {
		assert.Equal(t, text, entries[i].RawInput)
	}
}

func TestIsAffirmative(t *testing.T) {
	for _, yes := range []string{"نعم", " ايه ", "OK", "yes!", "اكيد؟"} {
		assert.True(t, IsAffirmative(yes), yes)
	}
	for _, no := range []string{"لا", "no", "", "نعم ابحث في العملاء"} {
		assert.False(t, IsAffirmative(no), no)
	}
}

func BenchmarkHandleMessage(b *testing.B) {
	log := logger.NewNoOpLogger()
	lookups := &fakeLookups{customers: []models.Customer{{ID: "c1", Name: "محمد", Phone: "0501234567"}}}
	d := dispatch.NewDispatcher(&dispatch.Config{MaxItems: 5}, dispatch.Collaborators{Customers: lookups}, log)
	r := New(Config{}, d, pulse.NewTracker(pulse.NewMemoryStore(), log), log)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.HandleMessage(context.Background(), models.Utterance{UserID: "bench", Text: "ابحث عن عميل محمد"}, models.Session{})
	}
	r.Wait()
}
