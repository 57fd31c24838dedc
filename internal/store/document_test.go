package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notes struct {
	Items []string `json:"items"`
	Next  int      `json:"next"`
}

func defaultNotes() notes {
	return notes{Next: 1}
}

func normalizeNotes(n *notes) {
	if n.Items == nil {
		n.Items = []string{}
	}
}

func newTestDir(t *testing.T) *Dir {
	t.Helper()
	dir, err := OpenDir(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return dir
}

func TestGetMissingCreatesDefaultFile(t *testing.T) {
	dir := newTestDir(t)
	doc := Open(dir, "notes", defaultNotes, normalizeNotes)

	got, err := doc.Get()
	require.NoError(t, err)
	assert.Equal(t, notes{Items: []string{}, Next: 1}, got)

	data, err := os.ReadFile(filepath.Join(dir.Path(), "notes.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"next":1}`, string(data))
}

func TestGetCorruptFallsBackToDefault(t *testing.T) {
	dir := newTestDir(t)
	path := filepath.Join(dir.Path(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	doc := Open(dir, "notes", defaultNotes, normalizeNotes)
	got, err := doc.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, got.Next)
	assert.NotNil(t, got.Items)

	// the broken file is left alone until the next write
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestMutatePersistsAndGetReturnsCopy(t *testing.T) {
	dir := newTestDir(t)
	doc := Open(dir, "notes", defaultNotes, normalizeNotes)

	require.NoError(t, doc.Mutate(func(n *notes) error {
		n.Items = append(n.Items, "water tomatoes")
		n.Next++
		return nil
	}))

	got, err := doc.Get()
	require.NoError(t, err)
	got.Items[0] = "scribbled"

	again, err := doc.Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"water tomatoes"}, again.Items)

	reopened := Open(dir, "notes", defaultNotes, normalizeNotes)
	fromDisk, err := reopened.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, fromDisk.Next)
}

func TestMutateErrorLeavesDocumentUntouched(t *testing.T) {
	dir := newTestDir(t)
	doc := Open(dir, "notes", defaultNotes, normalizeNotes)
	require.NoError(t, doc.Replace(notes{Items: []string{"a"}, Next: 2}))

	boom := errors.New("boom")
	err := doc.Mutate(func(n *notes) error {
		n.Items = append(n.Items, "b")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := doc.Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Items)
}

func TestReplaceNormalizes(t *testing.T) {
	dir := newTestDir(t)
	doc := Open(dir, "notes", defaultNotes, normalizeNotes)
	require.NoError(t, doc.Replace(notes{Next: 9}))

	data, err := os.ReadFile(filepath.Join(dir.Path(), "notes.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"next":9}`, string(data))
}

func TestLoadPersistsNormalizedValues(t *testing.T) {
	dir := newTestDir(t)
	path := filepath.Join(dir.Path(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"next":4}`), 0o644))

	doc := Open(dir, "notes", defaultNotes, normalizeNotes)
	got, err := doc.Get()
	require.NoError(t, err)
	assert.Equal(t, notes{Items: []string{}, Next: 4}, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"next":4}`, string(data))

	// already normalized files are not rewritten
	require.NoError(t, os.WriteFile(path, []byte(`{"items":["a"],"next":4}`), 0o644))
	doc.Invalidate()
	_, err = doc.Get()
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"items":["a"],"next":4}`, string(data))
}

func TestInvalidateReloadsFromDisk(t *testing.T) {
	dir := newTestDir(t)
	doc := Open(dir, "notes", defaultNotes, normalizeNotes)
	_, err := doc.Get()
	require.NoError(t, err)

	path := filepath.Join(dir.Path(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items":["edited"],"next":5}`), 0o644))

	cached, err := doc.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Next)

	doc.Invalidate()
	fresh, err := doc.Get()
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.Next)
}

func TestWatchPicksUpExternalEdits(t *testing.T) {
	dir := newTestDir(t)
	doc := Open(dir, "notes", defaultNotes, normalizeNotes)
	_, err := doc.Get()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- dir.Watch(ctx) }()

	// give the watcher a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(dir.Path(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items":["from editor"],"next":3}`), 0o644))

	assert.Eventually(t, func() bool {
		got, err := doc.Get()
		return err == nil && got.Next == 3
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
