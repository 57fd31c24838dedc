// Package propagate keeps task completion consistent between the source
// collections and the Today list.
//
// Source -> Today only mirrors completedAt on linked items. Today -> Source
// applies the collection's completion rule and then drops the Today item.
// Neither direction calls back into the other, so propagation always stops
// after one hop.
package propagate

import (
	"fmt"
	"log/slog"

	"github.com/Joseda-hg/lazyday/internal/collection"
	"github.com/Joseda-hg/lazyday/internal/metrics"
	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/today"
)

const (
	directionToToday  = "source_to_today"
	directionToSource = "today_to_source"
)

type Propagator struct {
	collections *collection.Collections
	today       *today.List
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func New(collections *collection.Collections, list *today.List, logger *slog.Logger, m *metrics.Metrics) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{collections: collections, today: list, logger: logger, metrics: m}
}

// Outcome reports what happened to the Today list after a source change.
// Propagated is false when mirroring failed; the source write still stands.
type Outcome struct {
	Propagated bool `json:"propagated"`
	Marked     int  `json:"marked"`
}

// ReplaceCollection stores doc as collection name and mirrors every task
// whose done state flipped onto its linked Today item.
func (p *Propagator) ReplaceCollection(name string, doc collection.Document) (Outcome, error) {
	previous, err := p.collections.Replace(name, doc)
	if err != nil {
		return Outcome{}, err
	}
	if !p.collections.HasTasks(name) {
		return Outcome{Propagated: true}, nil
	}

	current, err := p.collections.Get(name)
	if err != nil {
		p.logger.Warn("reload after bulk save failed", "collection", name, "error", err)
		p.metrics.Propagation(directionToToday, false)
		return Outcome{}, nil
	}
	changes, err := p.collections.Diff(name, previous, current, p.collections.Today())
	if err != nil {
		p.logger.Warn("diff after bulk save failed", "collection", name, "error", err)
		p.metrics.Propagation(directionToToday, false)
		return Outcome{}, nil
	}

	outcome := Outcome{Propagated: true}
	for _, change := range changes {
		marked, err := p.today.MarkSource(name, change.ID.String(), change.Done)
		if err != nil {
			p.logger.Warn("could not mirror completion to today",
				"collection", name, "task_id", change.ID, "error", err)
			outcome.Propagated = false
			p.metrics.Propagation(directionToToday, false)
			continue
		}
		if marked {
			outcome.Marked++
			p.metrics.Propagation(directionToToday, true)
		}
	}
	if outcome.Marked > 0 {
		p.logger.Info("bulk save mirrored to today", "collection", name, "marked", outcome.Marked)
	}
	return outcome, nil
}

// SourceCompletion is the result of completing a task in its collection.
type SourceCompletion struct {
	Task       collection.Task `json:"task"`
	Type       string          `json:"type"`
	Propagated bool            `json:"propagated"`
	Marked     bool            `json:"todayUpdated"`
}

// CompleteSource applies the collection's completion rule (or reopens the
// task) and mirrors the result onto the linked Today item.
func (p *Propagator) CompleteSource(name, typ string, id collection.TaskID, completed bool) (SourceCompletion, error) {
	task, resolved, err := p.collections.Complete(name, typ, id, completed)
	if err != nil {
		return SourceCompletion{}, err
	}

	result := SourceCompletion{Task: task, Type: resolved, Propagated: true}
	marked, err := p.today.MarkSource(name, id.String(), completed)
	if err != nil {
		p.logger.Warn("could not mirror completion to today", "collection", name, "task_id", id, "error", err)
		result.Propagated = false
		p.metrics.Propagation(directionToToday, false)
		return result, nil
	}
	result.Marked = marked
	if marked {
		p.metrics.Propagation(directionToToday, true)
	}
	return result, nil
}

// TodayCompletion is the result of completing an item from the Today list.
type TodayCompletion struct {
	Item       model.TodayItem `json:"item"`
	Removed    bool            `json:"removed"`
	Propagated bool            `json:"propagated"`
}

// CompleteToday completes item id. Completing applies the source
// collection's rule for linked items and then removes the item, even when
// the source could not be updated. Un-completing only clears the item's own
// completedAt.
func (p *Propagator) CompleteToday(id string, completed bool) (TodayCompletion, error) {
	if !completed {
		item, err := p.today.SetCompleted(id, false)
		if err != nil {
			return TodayCompletion{}, err
		}
		return TodayCompletion{Item: item}, nil
	}

	item, err := p.today.Find(id)
	if err != nil {
		return TodayCompletion{}, err
	}

	propagated := false
	if item.IsLinked() {
		propagated = p.completeSourceOf(item)
	}

	removed, err := p.today.Remove(id)
	if err != nil {
		return TodayCompletion{Item: item, Propagated: propagated}, fmt.Errorf("remove today item: %w", err)
	}
	return TodayCompletion{Item: removed, Removed: true, Propagated: propagated}, nil
}

func (p *Propagator) completeSourceOf(item model.TodayItem) bool {
	src := item.Source
	if !p.collections.HasTasks(src.Page) {
		p.logger.Debug("today item source is not a task collection", "page", src.Page, "source_id", src.ID)
		p.metrics.Propagation(directionToSource, false)
		return false
	}
	task, resolved, err := p.collections.Complete(src.Page, src.Type, collection.TaskID(src.ID), true)
	if err != nil {
		p.logger.Warn("could not complete source task",
			"page", src.Page, "type", src.Type, "source_id", src.ID, "error", err)
		p.metrics.Propagation(directionToSource, false)
		return false
	}
	p.metrics.Propagation(directionToSource, true)
	p.logger.Info("today completion propagated",
		"page", src.Page, "type", resolved, "source_id", src.ID, "status", task.Status, "due", task.DueDate)
	return true
}
