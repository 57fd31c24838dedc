package experience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazyday/internal/clock"
	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/push"
	"github.com/Joseda-hg/lazyday/internal/store"
)

// Monday.
var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []model.Notification
	fail  map[string]bool
	count int
}

func (f *fakeNotifier) Broadcast(_ context.Context, n model.Notification) (push.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	if f.fail[n.Tag] {
		return push.Result{}, errors.New("transport down")
	}
	return push.Result{Sent: f.count}, nil
}

func (f *fakeNotifier) SubscriberCount() (int, error) {
	return f.count, nil
}

func (f *fakeNotifier) tags() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tags := []string{}
	for _, n := range f.sent {
		tags = append(tags, n.Tag)
	}
	return tags
}

type fixture struct {
	dir       string
	clock     *clock.Fake
	service   *Service
	notifier  *fakeNotifier
	scheduler *Scheduler
}

func newFixture(t *testing.T, cfg SchedulerConfig) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := t.TempDir()
	dir, err := store.OpenDir(path, logger)
	require.NoError(t, err)

	clk := clock.NewFake(start)
	service := NewService(dir, clk, logger)
	notifier := &fakeNotifier{count: 1}
	return &fixture{
		dir:       path,
		clock:     clk,
		service:   service,
		notifier:  notifier,
		scheduler: NewScheduler(service, notifier, clk, logger, nil, cfg),
	}
}

func hourly(name string, first time.Time) Input {
	return Input{
		Name:           name,
		TriggerType:    model.TriggerRecurring,
		IntervalNumber: 1,
		IntervalType:   "hours",
		ResponseType:   model.ResponseFixedChoice,
		Responses:      []string{"Good", "Bad"},
		NextTrigger:    first.Format(time.RFC3339),
	}
}

func assertTime(t *testing.T, want time.Time, got *time.Time) {
	t.Helper()
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %s, got %s", want, *got)
}

func TestEndToEndTriggerAndAnswer(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	exp, err := f.service.Create(hourly("Mood", start))
	require.NoError(t, err)
	assert.Equal(t, 1, exp.ID)
	assert.Equal(t, model.StatusActive, exp.Status)

	fired, err := f.scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Equal(t, []string{"experience-1"}, f.notifier.tags())

	pending, err := f.service.Get(exp.ID)
	require.NoError(t, err)
	assert.True(t, pending.PendingResponse)
	assert.Nil(t, pending.NextTrigger)
	assertTime(t, start, pending.LastTriggeredAt)

	f.clock.Advance(10 * time.Minute)
	idx := 0
	resp, answered, err := f.service.RecordResponse(ResponseInput{ExperienceID: exp.ID, Type: "answered", SelectedIndex: &idx})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, model.ResponseAnswered, resp.Type)
	assert.False(t, answered.PendingResponse)
	assertTime(t, start.Add(70*time.Minute), answered.NextTrigger)
	assertTime(t, start.Add(10*time.Minute), answered.LastRespondedAt)

	responses, err := f.service.Responses(exp.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, 0, *responses[0].SelectedIndex)
}

func TestSweepWithNothingDueLeavesStateAlone(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	_, err := f.service.Create(hourly("Later", start.Add(time.Hour)))
	require.NoError(t, err)

	path := filepath.Join(f.dir, "experiences.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	fired, err := f.scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fired)
	assert.Empty(t, f.notifier.tags())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestPendingBlocksRetrigger(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	_, err := f.service.Create(hourly("Once", start))
	require.NoError(t, err)

	for range 3 {
		_, err := f.scheduler.Sweep(context.Background())
		require.NoError(t, err)
		f.clock.Advance(2 * time.Hour)
	}
	assert.Len(t, f.notifier.tags(), 1)

	list, err := f.service.List()
	require.NoError(t, err)
	for _, exp := range list {
		assert.Equal(t, exp.PendingResponse, exp.NextTrigger == nil)
	}
}

func TestSkipAnchorsToLastTrigger(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	skipped, err := f.service.Create(hourly("Skip me", start))
	require.NoError(t, err)
	answered, err := f.service.Create(hourly("Answer me", start))
	require.NoError(t, err)

	fired, err := f.scheduler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, fired)

	f.clock.Advance(3*time.Hour + 30*time.Minute)

	_, afterSkip, err := f.service.RecordResponse(ResponseInput{ExperienceID: skipped.ID, Type: model.ResponseSkipped})
	require.NoError(t, err)
	_, afterAnswer, err := f.service.RecordResponse(ResponseInput{ExperienceID: answered.ID, Type: model.ResponseAnswered, Text: "fine"})
	require.NoError(t, err)

	assertTime(t, start.Add(4*time.Hour), afterSkip.NextTrigger)
	assertTime(t, start.Add(4*time.Hour+30*time.Minute), afterAnswer.NextTrigger)
	assert.Nil(t, afterSkip.LastRespondedAt)
	assert.NotEqual(t, *afterSkip.NextTrigger, *afterAnswer.NextTrigger)
}

func TestRecordResponseRejectsBadInput(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	exp, err := f.service.Create(hourly("Mood", start))
	require.NoError(t, err)

	_, _, err = f.service.RecordResponse(ResponseInput{Type: "answered"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, _, err = f.service.RecordResponse(ResponseInput{ExperienceID: 99, Type: "answered"})
	assert.ErrorIs(t, err, ErrNotFound)

	bad := 5
	_, _, err = f.service.RecordResponse(ResponseInput{ExperienceID: exp.ID, SelectedIndex: &bad})
	assert.ErrorIs(t, err, ErrInvalid)

	_, _, err = f.service.RecordResponse(ResponseInput{ExperienceID: exp.ID, Type: "maybe"})
	assert.ErrorIs(t, err, ErrInvalid)

	responses, err := f.service.Responses(0)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestOnlyPendingIgnoresStaleResponses(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	exp, err := f.service.Create(hourly("Mood", start))
	require.NoError(t, err)

	_, _, err = f.service.RecordResponse(ResponseInput{ExperienceID: exp.ID, Type: model.ResponseSkipped, OnlyPending: true})
	assert.ErrorIs(t, err, ErrNotPending)

	fired, err := f.scheduler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, fired)

	_, answered, err := f.service.RecordResponse(ResponseInput{ExperienceID: exp.ID, Text: "calm", OnlyPending: true})
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, _, err = f.service.RecordResponse(ResponseInput{ExperienceID: exp.ID, Type: model.ResponseSkipped, OnlyPending: true})
	assert.ErrorIs(t, err, ErrNotPending)

	current, err := f.service.Get(exp.ID)
	require.NoError(t, err)
	assertTime(t, *answered.NextTrigger, current.NextTrigger)
	responses, err := f.service.Responses(exp.ID)
	require.NoError(t, err)
	assert.Len(t, responses, 1)
}

func TestTriggerNow(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	exp, err := f.service.Create(hourly("Manual", start.Add(24*time.Hour)))
	require.NoError(t, err)

	triggered, result, err := f.scheduler.TriggerNow(context.Background(), exp.ID)
	require.NoError(t, err)
	assert.True(t, triggered.PendingResponse)
	assert.Nil(t, triggered.NextTrigger)
	assertTime(t, start, triggered.LastTriggeredAt)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, []string{"experience-1"}, f.notifier.tags())

	_, _, err = f.scheduler.TriggerNow(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepIsolatesNotificationFailures(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	f.notifier.fail = map[string]bool{"experience-1": true}
	_, err := f.service.Create(hourly("Broken", start))
	require.NoError(t, err)
	_, err = f.service.Create(hourly("Fine", start))
	require.NoError(t, err)

	fired, err := f.scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fired)
	assert.ElementsMatch(t, []string{"experience-1", "experience-2"}, f.notifier.tags())

	pending, err := f.service.Pending()
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestPausedExperiencesNeverFire(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	in := hourly("Paused", start)
	in.Status = model.StatusPaused
	exp, err := f.service.Create(in)
	require.NoError(t, err)
	assert.Nil(t, exp.NextTrigger)

	fired, err := f.scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fired)

	in.Status = model.StatusActive
	in.NextTrigger = ""
	resumed, err := f.service.Update(exp.ID, in)
	require.NoError(t, err)
	assertTime(t, start.Add(time.Hour), resumed.NextTrigger)
}

func TestSetTriggerIsRearmedBySweep(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	exp, err := f.service.Create(Input{
		Name:        "Morning check",
		TriggerType: model.TriggerSet,
		TimesOfDay:  []string{"08:00"},
		DaysOfWeek:  []string{"Mon"},
	})
	require.NoError(t, err)
	assert.Nil(t, exp.NextTrigger, "Monday 08:00 has passed and next Monday is outside the window")
	assert.Equal(t, model.ResponseOpenSurvey, exp.ResponseType)

	f.clock.Advance(24 * time.Hour)
	fired, err := f.scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fired)

	rearmed, err := f.service.Get(exp.ID)
	require.NoError(t, err)
	assertTime(t, time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), rearmed.NextTrigger)
	assert.False(t, rearmed.PendingResponse)
}

func TestUpdateRecomputesChangedTrigger(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	exp, err := f.service.Create(hourly("Mood", start.Add(5*time.Hour)))
	require.NoError(t, err)

	in := hourly("Mood", time.Time{})
	in.NextTrigger = ""
	in.Description = "renamed only"
	same, err := f.service.Update(exp.ID, in)
	require.NoError(t, err)
	assertTime(t, start.Add(5*time.Hour), same.NextTrigger)

	in.IntervalNumber = 2
	changed, err := f.service.Update(exp.ID, in)
	require.NoError(t, err)
	assertTime(t, start.Add(2*time.Hour), changed.NextTrigger)

	_, err = f.service.Update(77, in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, SchedulerConfig{})
	exp, err := f.service.Create(hourly("Gone", start))
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(exp.ID))
	assert.ErrorIs(t, f.service.Delete(exp.ID), ErrNotFound)

	next, err := f.service.Create(hourly("Next", start))
	require.NoError(t, err)
	assert.Equal(t, 2, next.ID)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		in   Input
	}{
		{"missing name", Input{TriggerType: "recurring", IntervalNumber: 1}},
		{"unknown trigger", Input{Name: "x", TriggerType: "sometimes"}},
		{"zero interval", Input{Name: "x", TriggerType: "recurring"}},
		{"interval too long", Input{Name: "x", TriggerType: "recurring", IntervalNumber: 106752, IntervalType: "days"}},
		{"bad unit", Input{Name: "x", TriggerType: "recurring", IntervalNumber: 1, IntervalType: "fortnights"}},
		{"set without days", Input{Name: "x", TriggerType: "set", TimesOfDay: []string{"09:00"}}},
		{"set without times", Input{Name: "x", TriggerType: "set", DaysOfWeek: []string{"mon"}, TimesOfDay: []string{"nine"}}},
		{"fixed choice without responses", Input{Name: "x", TriggerType: "recurring", IntervalNumber: 1, ResponseType: "fixed-choice"}},
		{"unknown status", Input{Name: "x", TriggerType: "recurring", IntervalNumber: 1, Status: "sleeping"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validate(tc.in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	in, err := validate(Input{Name: " x ", TriggerType: "Recurring", IntervalNumber: 3})
	require.NoError(t, err)
	assert.Equal(t, "x", in.Name)
	assert.Equal(t, "minutes", in.IntervalType)
	assert.Equal(t, model.ResponseOpenSurvey, in.ResponseType)

	_, err = validate(Input{Name: "x", TriggerType: "recurring", IntervalNumber: 3650, IntervalType: "days"})
	assert.NoError(t, err)
}

func TestQuietWindow(t *testing.T) {
	at := func(hour, minute int) time.Time { return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC) }

	assert.False(t, InQuietWindow(at(3, 0), "", ""))
	assert.True(t, InQuietWindow(at(23, 0), "22:00", "07:00"))
	assert.True(t, InQuietWindow(at(6, 59), "22:00", "07:00"))
	assert.False(t, InQuietWindow(at(7, 0), "22:00", "07:00"))
	assert.True(t, InQuietWindow(at(12, 30), "12:00", "13:00"))
	assert.False(t, InQuietWindow(at(13, 0), "12:00", "13:00"))
	assert.False(t, InQuietWindow(at(12, 0), "12:00", "12:00"))

	f := newFixture(t, SchedulerConfig{QuietStart: "08:00", QuietEnd: "10:00"})
	_, err := f.service.Create(hourly("Quiet", start))
	require.NoError(t, err)
	fired, err := f.scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fired)
	assert.True(t, f.scheduler.Status().Quiet)

	f.clock.Advance(time.Hour)
	fired, err = f.scheduler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestNotificationFor(t *testing.T) {
	n := NotificationFor(model.Experience{
		ID:           7,
		Name:         "Energy",
		ResponseType: model.ResponseFixedChoice,
		Responses:    []string{"High", "Medium", "Low"},
	})
	assert.Equal(t, "Energy", n.Title)
	assert.Equal(t, "How did it go?", n.Body)
	assert.Equal(t, "experience-7", n.Tag)
	assert.Equal(t, 7, n.Data["experienceId"])

	actions := []string{}
	for _, a := range n.Actions {
		actions = append(actions, a.Action)
	}
	assert.Equal(t, []string{"respond-0", "respond-1", "skip"}, actions)

	survey := NotificationFor(model.Experience{ID: 8, Name: "Journal", Description: "Write a line", ResponseType: model.ResponseOpenSurvey})
	assert.Equal(t, "Write a line", survey.Body)
	require.Len(t, survey.Actions, 1)
	assert.Equal(t, "skip", survey.Actions[0].Action)
}

func TestSchedulerStartStop(t *testing.T) {
	f := newFixture(t, SchedulerConfig{Interval: 10 * time.Millisecond})
	_, err := f.service.Create(hourly("Loop", start))
	require.NoError(t, err)

	f.scheduler.Start()
	f.scheduler.Start()
	assert.True(t, f.scheduler.Running())

	require.Eventually(t, func() bool {
		return len(f.notifier.tags()) == 1
	}, time.Second, 5*time.Millisecond)

	status := f.scheduler.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 1, status.Subscribers)
	assert.Equal(t, int64(10), status.IntervalMS)
	assertTime(t, start, status.LastSweep)

	f.scheduler.Stop()
	f.scheduler.Stop()
	assert.False(t, f.scheduler.Running())
	assert.Len(t, f.notifier.tags(), 1)
}
