// Package timetracker records timed work sessions against page tasks.
package timetracker

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyday/internal/clock"
	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/store"
)

var (
	ErrNotFound = errors.New("time entry not found")
	ErrInvalid  = errors.New("invalid time entry")
)

const defaultSource = "custom"

type Document struct {
	Tasks []model.TimeEntry `json:"tasks"`
}

type Tracker struct {
	doc    *store.Document[Document]
	clock  clock.Clock
	logger *slog.Logger
}

func New(dir *store.Dir, clk clock.Clock, logger *slog.Logger) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		doc: store.Open(dir, "time-tracker",
			func() Document { return Document{} },
			func(d *Document) {
				if d.Tasks == nil {
					d.Tasks = []model.TimeEntry{}
				}
			}),
		clock:  clk,
		logger: logger,
	}
}

func (t *Tracker) List() (Document, error) {
	return t.doc.Get()
}

// Running lists entries without an end time.
func (t *Tracker) Running() ([]model.TimeEntry, error) {
	doc, err := t.doc.Get()
	if err != nil {
		return nil, err
	}
	running := []model.TimeEntry{}
	for _, entry := range doc.Tasks {
		if entry.Running() {
			running = append(running, entry)
		}
	}
	return running, nil
}

// Start opens a running entry.
func (t *Tracker) Start(source, name string) (model.TimeEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.TimeEntry{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	entry := model.TimeEntry{
		ID:     uuid.NewString(),
		Source: sourceOrDefault(source),
		Name:   name,
		Start:  t.clock.Now(),
	}
	err := t.doc.Mutate(func(d *Document) error {
		d.Tasks = append(d.Tasks, entry)
		return nil
	})
	if err != nil {
		return model.TimeEntry{}, err
	}
	t.logger.Debug("timer started", "id", entry.ID, "source", entry.Source, "name", entry.Name)
	return entry, nil
}

// Stop ends a running entry. Stopping an entry that already ended returns
// it unchanged.
func (t *Tracker) Stop(id string) (model.TimeEntry, error) {
	now := t.clock.Now()
	var stopped model.TimeEntry
	err := t.doc.Mutate(func(d *Document) error {
		entry := find(d, id)
		if entry == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if entry.Running() {
			end := now
			entry.End = &end
		}
		stopped = *entry
		return nil
	})
	return stopped, err
}

// Patch holds the editable fields of an entry; nil fields are left alone.
type Patch struct {
	ID           string     `json:"id"`
	Name         *string    `json:"name,omitempty"`
	Source       *string    `json:"source,omitempty"`
	Start        *time.Time `json:"start,omitempty"`
	End          *time.Time `json:"end,omitempty"`
	ActivityType *string    `json:"activityType,omitempty"`
	Link         *string    `json:"link,omitempty"`
}

func (t *Tracker) Update(p Patch) (model.TimeEntry, error) {
	var updated model.TimeEntry
	err := t.doc.Mutate(func(d *Document) error {
		entry := find(d, p.ID)
		if entry == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, p.ID)
		}
		if p.Name != nil {
			entry.Name = strings.TrimSpace(*p.Name)
		}
		if p.Source != nil {
			entry.Source = sourceOrDefault(*p.Source)
		}
		if p.Start != nil {
			entry.Start = *p.Start
		}
		if p.End != nil {
			end := *p.End
			entry.End = &end
		}
		if p.ActivityType != nil {
			entry.ActivityType = *p.ActivityType
		}
		if p.Link != nil {
			entry.Link = *p.Link
		}
		if err := check(*entry); err != nil {
			return err
		}
		updated = *entry
		return nil
	})
	return updated, err
}

// AddManual records a finished entry with explicit times.
func (t *Tracker) AddManual(entry model.TimeEntry) (model.TimeEntry, error) {
	entry.ID = uuid.NewString()
	entry.Name = strings.TrimSpace(entry.Name)
	entry.Source = sourceOrDefault(entry.Source)
	if entry.End == nil {
		end := entry.Start
		entry.End = &end
	}
	if err := check(entry); err != nil {
		return model.TimeEntry{}, err
	}
	err := t.doc.Mutate(func(d *Document) error {
		d.Tasks = append(d.Tasks, entry)
		return nil
	})
	return entry, err
}

func (t *Tracker) Delete(id string) error {
	return t.doc.Mutate(func(d *Document) error {
		idx := slices.IndexFunc(d.Tasks, func(e model.TimeEntry) bool { return e.ID == id })
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		d.Tasks = slices.Delete(d.Tasks, idx, idx+1)
		return nil
	})
}

func find(d *Document, id string) *model.TimeEntry {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return &d.Tasks[i]
		}
	}
	return nil
}

func check(entry model.TimeEntry) error {
	if entry.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if entry.Start.IsZero() {
		return fmt.Errorf("%w: start is required", ErrInvalid)
	}
	if entry.End != nil && entry.End.Before(entry.Start) {
		return fmt.Errorf("%w: end is before start", ErrInvalid)
	}
	return nil
}

func sourceOrDefault(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return defaultSource
	}
	return source
}
