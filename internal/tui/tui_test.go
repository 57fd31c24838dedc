package tui

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Joseda-hg/lazyday/internal/clock"
	"github.com/Joseda-hg/lazyday/internal/collection"
	"github.com/Joseda-hg/lazyday/internal/experience"
	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/propagate"
	"github.com/Joseda-hg/lazyday/internal/push"
	"github.com/Joseda-hg/lazyday/internal/store"
	"github.com/Joseda-hg/lazyday/internal/today"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type silentNotifier struct{}

func (silentNotifier) Broadcast(context.Context, model.Notification) (push.Result, error) {
	return push.Result{}, nil
}

func (silentNotifier) SubscriberCount() (int, error) {
	return 0, nil
}

type testEnv struct {
	clock       *clock.Fake
	collections *collection.Collections
	today       *today.List
	service     *experience.Service
	scheduler   *experience.Scheduler
}

func TestCompleteTodayItemClosesSource(t *testing.T) {
	env := newTestEnv(t)

	var doc collection.Document
	if err := json.Unmarshal([]byte(`{"tasks":[{"id":7,"name":"Send invoice","status":"open"}]}`), &doc); err != nil {
		t.Fatalf("parse doc: %v", err)
	}
	if _, err := env.collections.Replace(collection.Work, doc); err != nil {
		t.Fatalf("seed work: %v", err)
	}
	if _, _, err := env.today.Add(model.TodaySource{Page: collection.Work, Type: collection.TypeTask, ID: "7"}, "Send invoice"); err != nil {
		t.Fatalf("add to today: %v", err)
	}

	ui := newTestUI(env)
	if err := ui.loadAll(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ui.items) != 1 {
		t.Fatalf("expected 1 today item, got %d", len(ui.items))
	}

	if err := ui.completeItem(nil, nil); err != nil {
		t.Fatalf("complete item: %v", err)
	}
	if len(ui.items) != 0 {
		t.Fatalf("expected completed item to be removed, got %d items", len(ui.items))
	}

	task, _, err := env.collections.Find(collection.Work, collection.TypeTask, "7")
	if err != nil {
		t.Fatalf("find task: %v", err)
	}
	if task.Status != collection.StatusClosed {
		t.Fatalf("expected source task closed, got %q", task.Status)
	}
}

func TestAdhocPromptAndReorder(t *testing.T) {
	env := newTestEnv(t)
	ui := newTestUI(env)

	for _, text := range []string{"Water plants", "Call mum", "Stretch"} {
		if err := ui.openAdhocPrompt(nil, nil); err != nil {
			t.Fatalf("open prompt: %v", err)
		}
		if ui.prompt == nil {
			t.Fatalf("expected prompt to be open")
		}
		if err := ui.submitPromptValue(text + "\n"); err != nil {
			t.Fatalf("submit %q: %v", text, err)
		}
	}
	if ui.prompt != nil {
		t.Fatalf("expected prompt to be closed")
	}
	if len(ui.items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(ui.items))
	}

	ui.selectedToday = 2
	if err := ui.moveItemUp(nil, nil); err != nil {
		t.Fatalf("move up: %v", err)
	}
	if ui.selectedToday != 1 {
		t.Fatalf("expected selection to follow the item, got %d", ui.selectedToday)
	}
	if got := ui.items[1].Text; got != "Stretch" {
		t.Fatalf("expected Stretch second, got %q", got)
	}

	if err := ui.moveItemUp(nil, nil); err != nil {
		t.Fatalf("move up: %v", err)
	}
	if err := ui.moveItemUp(nil, nil); err != nil {
		t.Fatalf("move up at top: %v", err)
	}
	if got := ui.items[0].Text; got != "Stretch" {
		t.Fatalf("expected Stretch first, got %q", got)
	}

	if err := ui.removeItem(nil, nil); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(ui.items) != 2 {
		t.Fatalf("expected 2 items after remove, got %d", len(ui.items))
	}
}

func TestEmptyPromptDoesNothing(t *testing.T) {
	env := newTestEnv(t)
	ui := newTestUI(env)

	if err := ui.openAdhocPrompt(nil, nil); err != nil {
		t.Fatalf("open prompt: %v", err)
	}
	if err := ui.submitPromptValue("   "); err != nil {
		t.Fatalf("submit: %v", err)
	}
	doc, err := env.today.Get()
	if err != nil {
		t.Fatalf("get today: %v", err)
	}
	if len(doc.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(doc.Items))
	}
}

func TestRespondAndSkipPendingExperience(t *testing.T) {
	env := newTestEnv(t)
	exp, err := env.service.Create(experience.Input{
		Name:           "Posture",
		TriggerType:    model.TriggerRecurring,
		IntervalNumber: 30,
		Responses:      []string{"Good", "Slouching"},
	})
	if err != nil {
		t.Fatalf("create experience: %v", err)
	}
	trigger(t, env, exp.ID)

	ui := newTestUI(env)
	ui.focus = viewPending
	if err := ui.loadAll(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ui.pending) != 1 {
		t.Fatalf("expected 1 pending experience, got %d", len(ui.pending))
	}

	if err := ui.openResponsePrompt(nil, nil); err != nil {
		t.Fatalf("open response prompt: %v", err)
	}
	if err := ui.submitPromptValue("3"); err == nil {
		t.Fatalf("expected out of range choice to fail")
	}

	if err := ui.openResponsePrompt(nil, nil); err != nil {
		t.Fatalf("open response prompt: %v", err)
	}
	if err := ui.submitPromptValue("2"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(ui.pending) != 0 {
		t.Fatalf("expected nothing pending after answering, got %d", len(ui.pending))
	}

	responses, err := env.service.Responses(exp.ID)
	if err != nil {
		t.Fatalf("responses: %v", err)
	}
	if len(responses) != 1 || responses[0].SelectedIndex == nil || *responses[0].SelectedIndex != 1 {
		t.Fatalf("expected one answer with choice 1, got %+v", responses)
	}

	trigger(t, env, exp.ID)
	if err := ui.loadAll(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := ui.skipPending(nil, nil); err != nil {
		t.Fatalf("skip: %v", err)
	}
	responses, err = env.service.Responses(exp.ID)
	if err != nil {
		t.Fatalf("responses: %v", err)
	}
	if len(responses) != 2 || responses[1].Type != model.ResponseSkipped {
		t.Fatalf("expected a skipped response, got %+v", responses)
	}
}

func TestTogglePause(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.service.Create(experience.Input{
		Name:           "Mood",
		TriggerType:    model.TriggerRecurring,
		IntervalNumber: 2,
		IntervalType:   "hours",
	}); err != nil {
		t.Fatalf("create experience: %v", err)
	}

	ui := newTestUI(env)
	ui.focus = viewExperiences
	if err := ui.loadAll(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := ui.togglePause(nil, nil); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if got := ui.all[0].Status; got != model.StatusPaused {
		t.Fatalf("expected paused, got %q", got)
	}

	env.clock.Advance(30 * time.Minute)

	if err := ui.togglePause(nil, nil); err != nil {
		t.Fatalf("resume: %v", err)
	}
	got := ui.all[0]
	if got.Status != model.StatusActive || got.NextTrigger == nil {
		t.Fatalf("expected active with a next trigger, got %q %v", got.Status, got.NextTrigger)
	}
	if !got.NextTrigger.Equal(now.Add(150 * time.Minute)) {
		t.Fatalf("expected next trigger two hours after resuming, got %v", got.NextTrigger)
	}
}

func TestFormatUntil(t *testing.T) {
	cases := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-time.Minute), "due"},
		{now.Add(25 * time.Minute), "in 25m"},
		{now.Add(20 * time.Second), "in 1m"},
		{now.Add(90 * time.Minute), "in 1h30m"},
	}
	for _, tc := range cases {
		if got := formatUntil(tc.at, now); got != tc.want {
			t.Fatalf("formatUntil(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestInputActiveBlocksActions(t *testing.T) {
	env := newTestEnv(t)
	ui := newTestUI(env)
	ui.helpActive = true

	if err := ui.openAdhocPrompt(nil, nil); err != nil {
		t.Fatalf("open prompt: %v", err)
	}
	if ui.prompt != nil {
		t.Fatalf("expected prompt to stay closed while help is open")
	}
}

func trigger(t *testing.T, env *testEnv, id int) {
	t.Helper()
	if _, _, err := env.scheduler.TriggerNow(context.Background(), id); err != nil {
		t.Fatalf("trigger %d: %v", id, err)
	}
}

func newTestUI(env *testEnv) *UI {
	return newUI(Deps{
		Today:       env.today,
		Propagator:  propagate.New(env.collections, env.today, slog.New(slog.NewTextHandler(io.Discard, nil)), nil),
		Experiences: env.service,
		Clock:       env.clock,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir, err := store.OpenDir(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("open dir: %v", err)
	}
	clk := clock.NewFake(now)
	service := experience.NewService(dir, clk, logger)
	return &testEnv{
		clock:       clk,
		collections: collection.New(dir, nil, clk, logger),
		today:       today.New(dir, clk, logger),
		service:     service,
		scheduler:   experience.NewScheduler(service, silentNotifier{}, clk, logger, nil, experience.SchedulerConfig{}),
	}
}
