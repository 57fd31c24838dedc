package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Task statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// TaskID compares as a string but accepts JSON numbers and strings.
// Canonical integers are written back as numbers.
type TaskID string

func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TaskID(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("task id: %w", err)
		}
		*id = TaskID(n.String())
	}
	return nil
}

func (id TaskID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

func (id TaskID) String() string {
	return string(id)
}

// Task is the shape shared by every collection. Fields a collection adds on
// top of it are kept in Extra and survive a round trip. A decoded task
// remembers its source: known keys keep their original encoding while
// their value is unchanged, and a task that was not touched at all is
// written back byte for byte.
type Task struct {
	ID             TaskID
	Name           string
	Status         string
	Subtasks       []Task
	Recurring      bool
	DueDate        string
	Interval       int
	Unit           string
	From           string
	CompletedDates []string
	CompletedAt    string
	Missed         []string
	LastDiff       *int

	Extra map[string]json.RawMessage

	source  json.RawMessage
	present map[string]json.RawMessage
	decoded map[string]json.RawMessage
}

type taskJSON struct {
	ID             TaskID   `json:"id"`
	Name           string   `json:"name"`
	Status         string   `json:"status"`
	Subtasks       []Task   `json:"subtasks"`
	Recurring      bool     `json:"recurring"`
	DueDate        string   `json:"dueDate"`
	Interval       flexInt  `json:"interval"`
	Unit           string   `json:"unit"`
	From           string   `json:"from"`
	CompletedDates []string `json:"completedDates"`
	CompletedAt    string   `json:"completedAt"`
	Missed         []string `json:"missed"`
	LastDiff       *int     `json:"lastDiff"`
}

type taskField struct {
	key   string
	value any
}

// fields lists the known keys in the order they are written.
func (t Task) fields() []taskField {
	return []taskField{
		{"id", t.ID},
		{"name", t.Name},
		{"status", t.Status},
		{"subtasks", t.Subtasks},
		{"recurring", t.Recurring},
		{"dueDate", t.DueDate},
		{"interval", t.Interval},
		{"unit", t.Unit},
		{"from", t.From},
		{"completedDates", t.CompletedDates},
		{"completedAt", t.CompletedAt},
		{"missed", t.Missed},
		{"lastDiff", t.LastDiff},
	}
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var fields taskJSON
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Task{
		ID:             fields.ID,
		Name:           fields.Name,
		Status:         fields.Status,
		Subtasks:       fields.Subtasks,
		Recurring:      fields.Recurring,
		DueDate:        fields.DueDate,
		Interval:       int(fields.Interval),
		Unit:           fields.Unit,
		From:           fields.From,
		CompletedDates: fields.CompletedDates,
		CompletedAt:    fields.CompletedAt,
		Missed:         fields.Missed,
		LastDiff:       fields.LastDiff,
		source:         append(json.RawMessage(nil), data...),
		present:        make(map[string]json.RawMessage),
		decoded:        make(map[string]json.RawMessage),
	}
	for _, field := range t.fields() {
		value, ok := raw[field.key]
		if !ok {
			continue
		}
		delete(raw, field.key)
		encoded, err := json.Marshal(field.value)
		if err != nil {
			return err
		}
		t.present[field.key] = value
		t.decoded[field.key] = encoded
	}
	if len(raw) > 0 {
		t.Extra = raw
	}
	return nil
}

func (t Task) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(t.Extra)+len(t.present))
	for key, value := range t.Extra {
		out[key] = value
	}

	changed := t.source == nil || t.extraChanged()
	for _, field := range t.fields() {
		encoded, err := json.Marshal(field.value)
		if err != nil {
			return nil, err
		}
		original, had := t.present[field.key]
		switch {
		case had && bytes.Equal(encoded, t.decoded[field.key]):
			out[field.key] = original
		case had:
			out[field.key] = encoded
			changed = true
		case !isZeroJSON(encoded) || (field.key == "id" && t.source == nil):
			out[field.key] = encoded
			changed = true
		}
	}
	if !changed {
		return t.source, nil
	}
	return json.Marshal(out)
}

func (t Task) extraChanged() bool {
	var original map[string]json.RawMessage
	if err := json.Unmarshal(t.source, &original); err != nil {
		return true
	}
	if len(original)-len(t.present) != len(t.Extra) {
		return true
	}
	for key, value := range t.Extra {
		if !bytes.Equal(value, original[key]) {
			return true
		}
	}
	return false
}

func isZeroJSON(value []byte) bool {
	switch string(value) {
	case "null", `""`, "false", "0":
		return true
	}
	return false
}

// IsClosed reports whether the task's status is closed.
func (t Task) IsClosed() bool {
	return strings.EqualFold(t.Status, StatusClosed)
}

// flexInt decodes a number or a numeric string. Anything else is 0.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, _ := strconv.Atoi(strings.TrimSpace(s))
		*n = flexInt(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = flexInt(f)
	return nil
}
