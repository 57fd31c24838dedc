// Package collection owns the task collections (work, DIY, parenting,
// family-friends and the index page) and the plain page documents. It
// knows how each collection lays out its task lists and what completing a
// task means there.
package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyday/internal/clock"
	"github.com/Joseda-hg/lazyday/internal/store"
	"github.com/Joseda-hg/lazyday/internal/trigger"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalid           = errors.New("invalid collection request")
)

// MaxSubDepth bounds how deep subtask trees are searched.
const MaxSubDepth = 6

// Collection names.
const (
	Work          = "work"
	DIY           = "diy"
	Parenting     = "parenting"
	FamilyFriends = "family-friends"
	Index         = "index"
)

// Task types.
const (
	TypeTask      = "task"
	TypeProject   = "project"
	TypeBig       = "big"
	TypeWeekly    = "weekly"
	TypeOneOff    = "oneoff"
	TypeRecurring = "recurring"
	TypeStretch   = "stretch"
)

// Document is a collection or page document. Keys the code does not know
// about are carried through untouched.
type Document map[string]json.RawMessage

// Kind maps a task type to the document key holding its list.
type Kind struct {
	Type string
	Key  string
}

type definition struct {
	name  string
	kinds []Kind
	// extra keys created empty on first load
	defaults map[string]string
}

var definitions = []definition{
	{name: Work, kinds: []Kind{{TypeTask, "tasks"}}},
	{name: DIY, kinds: []Kind{{TypeProject, "projects"}, {TypeBig, "bigTasks"}}},
	{name: Parenting, kinds: []Kind{{TypeTask, "tasks"}}},
	{name: FamilyFriends, kinds: []Kind{{TypeTask, "tasks"}}},
	{
		name: Index,
		kinds: []Kind{
			{TypeWeekly, "weeklyTasks"},
			{TypeOneOff, "oneOffTasks"},
			{TypeBig, "bigTasks"},
			{TypeRecurring, "recurringTasks"},
			{TypeStretch, "stretchTasks"},
		},
		defaults: map[string]string{"projects": "[]", "deletedTasks": "[]", "nextId": "1"},
	},
}

// Collections is the registry of task collections and plain pages.
type Collections struct {
	defs   map[string]definition
	docs   map[string]*store.Document[Document]
	clock  clock.Clock
	logger *slog.Logger
}

// New opens every task collection plus one plain document per page name.
func New(dir *store.Dir, pages []string, clk clock.Clock, logger *slog.Logger) *Collections {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collections{
		defs:   map[string]definition{},
		docs:   map[string]*store.Document[Document]{},
		clock:  clk,
		logger: logger,
	}
	for _, def := range definitions {
		c.add(dir, def)
	}
	for _, page := range pages {
		page = strings.ToLower(strings.TrimSpace(page))
		if page == "" {
			continue
		}
		if _, exists := c.defs[page]; exists {
			continue
		}
		c.add(dir, definition{name: page})
	}
	return c
}

func (c *Collections) add(dir *store.Dir, def definition) {
	c.defs[def.name] = def
	c.docs[def.name] = store.Open(dir, def.name,
		func() Document { return Document{} },
		func(doc *Document) { normalize(def, doc) })
}

func normalize(def definition, doc *Document) {
	if *doc == nil {
		*doc = Document{}
	}
	for _, kind := range def.kinds {
		if raw, ok := (*doc)[kind.Key]; !ok || isNull(raw) {
			(*doc)[kind.Key] = json.RawMessage("[]")
		}
	}
	for key, value := range def.defaults {
		if raw, ok := (*doc)[key]; !ok || isNull(raw) {
			(*doc)[key] = json.RawMessage(value)
		}
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Names lists every registered document, task collections first.
func (c *Collections) Names() []string {
	names := make([]string, 0, len(c.defs))
	for _, def := range definitions {
		names = append(names, def.name)
	}
	var pages []string
	for name, def := range c.defs {
		if len(def.kinds) == 0 {
			pages = append(pages, name)
		}
	}
	sort.Strings(pages)
	return append(names, pages...)
}

// HasTasks reports whether name is a task collection rather than a plain page.
func (c *Collections) HasTasks(name string) bool {
	def, ok := c.defs[name]
	return ok && len(def.kinds) > 0
}

// Kinds lists the task types of collection name in search order.
func (c *Collections) Kinds(name string) []Kind {
	return slices.Clone(c.defs[name].kinds)
}

func (c *Collections) lookup(name string) (definition, *store.Document[Document], error) {
	def, ok := c.defs[name]
	if !ok {
		return definition{}, nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return def, c.docs[name], nil
}

func (c *Collections) Get(name string) (Document, error) {
	_, doc, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return doc.Get()
}

// Replace stores next as the whole document and returns the previous one.
// Every task list in next must decode.
func (c *Collections) Replace(name string, next Document) (Document, error) {
	def, doc, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, fmt.Errorf("%w: document must be a JSON object", ErrInvalid)
	}
	for _, kind := range def.kinds {
		if _, err := decodeList(next, kind.Key); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, kind.Key, err)
		}
	}

	var previous Document
	err = doc.Mutate(func(current *Document) error {
		previous = *current
		*current = cloneDocument(next)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// Lists decodes every task list of collection name, keyed by type.
func (c *Collections) Lists(name string) (map[string][]Task, error) {
	def, doc, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	current, err := doc.Get()
	if err != nil {
		return nil, err
	}
	return decodeLists(def, current)
}

// Find returns the first task with id, searching the list for typ or, when
// typ is empty, every list in declaration order. The resolved type is
// returned with the task.
func (c *Collections) Find(name, typ string, id TaskID) (Task, string, error) {
	def, doc, err := c.lookup(name)
	if err != nil {
		return Task{}, "", err
	}
	current, err := doc.Get()
	if err != nil {
		return Task{}, "", err
	}
	kinds, err := searchKinds(def, typ)
	if err != nil {
		return Task{}, "", err
	}
	for _, kind := range kinds {
		list, err := decodeList(current, kind.Key)
		if err != nil {
			return Task{}, "", fmt.Errorf("decode %s.%s: %w", name, kind.Key, err)
		}
		if task := FindTask(list, id); task != nil {
			return *task, kind.Type, nil
		}
	}
	return Task{}, "", fmt.Errorf("%w: %s/%s", ErrTaskNotFound, name, id)
}

// Complete applies the collection's completion rule to task id, or reopens
// it when completed is false. It returns the updated task and its type.
func (c *Collections) Complete(name, typ string, id TaskID, completed bool) (Task, string, error) {
	def, doc, err := c.lookup(name)
	if err != nil {
		return Task{}, "", err
	}
	if id == "" {
		return Task{}, "", fmt.Errorf("%w: taskId is required", ErrInvalid)
	}
	kinds, err := searchKinds(def, typ)
	if err != nil {
		return Task{}, "", err
	}
	now := c.clock.Now()

	var updated Task
	var resolved string
	err = doc.Mutate(func(current *Document) error {
		for _, kind := range kinds {
			list, err := decodeList(*current, kind.Key)
			if err != nil {
				return fmt.Errorf("decode %s.%s: %w", name, kind.Key, err)
			}
			task := FindTask(list, id)
			if task == nil {
				continue
			}
			r := ruleFor(name, kind.Type)
			if completed {
				r.complete(task, now)
			} else {
				r.reopen(task, now)
			}
			updated, resolved = *task, kind.Type
			return encodeList(*current, kind.Key, list)
		}
		return fmt.Errorf("%w: %s/%s", ErrTaskNotFound, name, id)
	})
	if err != nil {
		return Task{}, "", err
	}
	c.logger.Info("task completion applied",
		"collection", name, "type", resolved, "task_id", id, "completed", completed)
	return updated, resolved, nil
}

// Today is the date string used for completedDates.
func (c *Collections) Today() string {
	return trigger.FormatDate(c.clock.Now())
}

func searchKinds(def definition, typ string) ([]Kind, error) {
	if len(def.kinds) == 0 {
		return nil, fmt.Errorf("%w: %q has no tasks", ErrUnknownCollection, def.name)
	}
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" {
		return def.kinds, nil
	}
	for _, kind := range def.kinds {
		if kind.Type == typ || strings.EqualFold(kind.Key, typ) {
			return []Kind{kind}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no task type %q", ErrInvalid, def.name, typ)
}

// FindTask searches list depth-first, in list order, for id. Subtask trees
// deeper than MaxSubDepth are not searched.
func FindTask(list []Task, id TaskID) *Task {
	return findTask(list, id, 0)
}

func findTask(list []Task, id TaskID, depth int) *Task {
	if depth > MaxSubDepth {
		return nil
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
		if found := findTask(list[i].Subtasks, id, depth+1); found != nil {
			return found
		}
	}
	return nil
}

func decodeLists(def definition, doc Document) (map[string][]Task, error) {
	lists := make(map[string][]Task, len(def.kinds))
	for _, kind := range def.kinds {
		list, err := decodeList(doc, kind.Key)
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", def.name, kind.Key, err)
		}
		lists[kind.Type] = list
	}
	return lists, nil
}

// cloneDocument copies doc so later changes to the caller's map never
// reach the cached document.
func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for key, value := range doc {
		out[key] = append(json.RawMessage(nil), value...)
	}
	return out
}

func decodeList(doc Document, key string) ([]Task, error) {
	raw, ok := doc[key]
	if !ok || isNull(raw) {
		return []Task{}, nil
	}
	var list []Task
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func encodeList(doc Document, key string, list []Task) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	doc[key] = raw
	return nil
}

// dateOf formats now as the date string used in completedDates.
func dateOf(now time.Time) string {
	return trigger.FormatDate(now)
}
