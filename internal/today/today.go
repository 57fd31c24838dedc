// Package today keeps the Today worklist: ad-hoc entries plus links to
// tasks that live in other collections.
package today

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
	ErrNotFound = errors.New("today item not found")
	ErrInvalid  = errors.New("invalid today request")

	errUnchanged = errors.New("unchanged")
)

type Document struct {
	Items []model.TodayItem `json:"items"`
}

type List struct {
	doc    *store.Document[Document]
	clock  clock.Clock
	logger *slog.Logger
}

func New(dir *store.Dir, clk clock.Clock, logger *slog.Logger) *List {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &List{
		doc: store.Open(dir, "today",
			func() Document { return Document{} },
			normalize),
		clock:  clk,
		logger: logger,
	}
}

func normalize(d *Document) {
	if d.Items == nil {
		d.Items = []model.TodayItem{}
	}
	for i := range d.Items {
		if d.Items[i].ID == "" {
			d.Items[i].ID = uuid.NewString()
		}
	}
}

func (l *List) Get() (Document, error) {
	return l.doc.Get()
}

// Find returns the item with id.
func (l *List) Find(id string) (model.TodayItem, error) {
	doc, err := l.doc.Get()
	if err != nil {
		return model.TodayItem{}, err
	}
	for _, item := range doc.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return model.TodayItem{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Add links a source task into Today. When the (page, source id) pair is
// already present the existing item is returned and existing is true.
func (l *List) Add(source model.TodaySource, name string) (item model.TodayItem, existing bool, err error) {
	source.Page = strings.TrimSpace(source.Page)
	source.ID = strings.TrimSpace(source.ID)
	source.Type = strings.TrimSpace(source.Type)
	if source.Page == "" || source.ID == "" {
		return model.TodayItem{}, false, fmt.Errorf("%w: page and id are required", ErrInvalid)
	}
	now := l.clock.Now()

	err = l.doc.Mutate(func(doc *Document) error {
		for _, current := range doc.Items {
			if current.Source != nil && current.Source.Page == source.Page && current.Source.ID == source.ID {
				item, existing = current, true
				return nil
			}
		}
		src := source
		item = model.TodayItem{
			ID:      uuid.NewString(),
			Source:  &src,
			Name:    strings.TrimSpace(name),
			AddedAt: &now,
		}
		doc.Items = append(doc.Items, item)
		return nil
	})
	if err != nil {
		return model.TodayItem{}, false, err
	}
	if !existing {
		l.logger.Debug("linked task added to today", "page", source.Page, "source_id", source.ID)
	}
	return item, existing, nil
}

// AddAdhoc appends a free-text item.
func (l *List) AddAdhoc(text string) (model.TodayItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.TodayItem{}, fmt.Errorf("%w: text is required", ErrInvalid)
	}
	now := l.clock.Now()
	item := model.TodayItem{ID: uuid.NewString(), Text: text, CreatedAt: &now}
	err := l.doc.Mutate(func(doc *Document) error {
		doc.Items = append(doc.Items, item)
		return nil
	})
	return item, err
}

// Remove deletes the item with id and returns it.
func (l *List) Remove(id string) (model.TodayItem, error) {
	var removed model.TodayItem
	err := l.doc.Mutate(func(doc *Document) error {
		idx := slices.IndexFunc(doc.Items, func(item model.TodayItem) bool { return item.ID == id })
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		removed = doc.Items[idx]
		doc.Items = slices.Delete(doc.Items, idx, idx+1)
		return nil
	})
	return removed, err
}

// SetCompleted stamps or clears completedAt on item id.
func (l *List) SetCompleted(id string, completed bool) (model.TodayItem, error) {
	now := l.clock.Now()
	var updated model.TodayItem
	err := l.doc.Mutate(func(doc *Document) error {
		for i := range doc.Items {
			if doc.Items[i].ID == id {
				setCompleted(&doc.Items[i], completed, now)
				updated = doc.Items[i]
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	return updated, err
}

// MarkSource mirrors a source task's state onto its linked item, if there
// is one. It reports whether an item was changed.
func (l *List) MarkSource(page, sourceID string, completed bool) (bool, error) {
	now := l.clock.Now()
	changed := false
	err := l.doc.Mutate(func(doc *Document) error {
		for i := range doc.Items {
			src := doc.Items[i].Source
			if src == nil || src.Page != page || src.ID != sourceID {
				continue
			}
			if (doc.Items[i].CompletedAt != nil) == completed {
				return errUnchanged
			}
			setCompleted(&doc.Items[i], completed, now)
			changed = true
			return nil
		}
		return errUnchanged
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	return changed, err
}

func setCompleted(item *model.TodayItem, completed bool, now time.Time) {
	if completed {
		at := now
		item.CompletedAt = &at
		return
	}
	item.CompletedAt = nil
}

// Reorder moves item id to position toIndex, clamped to the list bounds.
func (l *List) Reorder(id string, toIndex int) error {
	return l.doc.Mutate(func(doc *Document) error {
		from := slices.IndexFunc(doc.Items, func(item model.TodayItem) bool { return item.ID == id })
		if from < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		item := doc.Items[from]
		doc.Items = slices.Delete(doc.Items, from, from+1)
		toIndex = min(max(toIndex, 0), len(doc.Items))
		doc.Items = slices.Insert(doc.Items, toIndex, item)
		return nil
	})
}

// ReorderAll puts the listed ids first, in the given order. Items that are
// not listed keep their relative order after them; unknown ids are ignored.
func (l *List) ReorderAll(ids []string) error {
	return l.doc.Mutate(func(doc *Document) error {
		byID := make(map[string]model.TodayItem, len(doc.Items))
		for _, item := range doc.Items {
			byID[item.ID] = item
		}
		ordered := make([]model.TodayItem, 0, len(doc.Items))
		placed := map[string]bool{}
		for _, id := range ids {
			item, ok := byID[id]
			if !ok || placed[id] {
				continue
			}
			ordered = append(ordered, item)
			placed[id] = true
		}
		for _, item := range doc.Items {
			if !placed[item.ID] {
				ordered = append(ordered, item)
			}
		}
		doc.Items = ordered
		return nil
	})
}
