package timetracker

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazyday/internal/clock"
	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/store"
)

var start = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T) (*Tracker, *clock.Fake) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir, err := store.OpenDir(t.TempDir(), logger)
	require.NoError(t, err)
	clk := clock.NewFake(start)
	return New(dir, clk, logger), clk
}

func TestStartStop(t *testing.T) {
	tracker, clk := newTestTracker(t)

	entry, err := tracker.Start("", "Write report")
	require.NoError(t, err)
	assert.Equal(t, "custom", entry.Source)
	assert.True(t, entry.Running())

	running, err := tracker.Running()
	require.NoError(t, err)
	assert.Len(t, running, 1)

	clk.Advance(45 * time.Minute)
	stopped, err := tracker.Stop(entry.ID)
	require.NoError(t, err)
	require.NotNil(t, stopped.End)
	assert.Equal(t, 45*time.Minute, stopped.End.Sub(stopped.Start))

	clk.Advance(time.Hour)
	again, err := tracker.Stop(entry.ID)
	require.NoError(t, err)
	assert.True(t, stopped.End.Equal(*again.End))

	_, err = tracker.Stop("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = tracker.Start("work", " ")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUpdateAndDelete(t *testing.T) {
	tracker, _ := newTestTracker(t)
	entry, err := tracker.Start("work", "Review")
	require.NoError(t, err)

	name := "Code review"
	end := start.Add(30 * time.Minute)
	updated, err := tracker.Update(Patch{ID: entry.ID, Name: &name, End: &end})
	require.NoError(t, err)
	assert.Equal(t, "Code review", updated.Name)
	assert.False(t, updated.Running())

	early := start.Add(-time.Hour)
	_, err = tracker.Update(Patch{ID: entry.ID, End: &early})
	assert.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, tracker.Delete(entry.ID))
	assert.ErrorIs(t, tracker.Delete(entry.ID), ErrNotFound)

	doc, err := tracker.List()
	require.NoError(t, err)
	assert.Empty(t, doc.Tasks)
}

func TestAddManual(t *testing.T) {
	tracker, _ := newTestTracker(t)
	entry, err := tracker.AddManual(model.TimeEntry{Name: "Gardening", Start: start, ActivityType: "outdoor"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	require.NotNil(t, entry.End)
	assert.True(t, entry.End.Equal(start))

	_, err = tracker.AddManual(model.TimeEntry{Name: "No start"})
	assert.ErrorIs(t, err, ErrInvalid)
}
