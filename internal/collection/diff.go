package collection

// Change is a task whose done state flipped between two versions of a
// collection document.
type Change struct {
	Type string
	ID   TaskID
	Done bool
}

// DoneStates flattens every task of collection name (subtasks included, up
// to MaxSubDepth) into id -> done. Recurring tasks are left out: their
// completions advance a due date and never flip. The first occurrence of an
// id wins, matching search order.
func (c *Collections) DoneStates(name string, doc Document, today string) (map[TaskID]Change, error) {
	def, _, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	lists, err := decodeLists(def, doc)
	if err != nil {
		return nil, err
	}

	states := map[TaskID]Change{}
	for _, kind := range def.kinds {
		r := ruleFor(name, kind.Type)
		walk(lists[kind.Type], 0, func(task Task) {
			if task.ID == "" || r.recurs(task) {
				return
			}
			if _, seen := states[task.ID]; seen {
				return
			}
			states[task.ID] = Change{Type: kind.Type, ID: task.ID, Done: r.done(task, today)}
		})
	}
	return states, nil
}

// Diff lists the tasks present in both documents whose done state differs,
// reporting the new state.
func (c *Collections) Diff(name string, before, after Document, today string) ([]Change, error) {
	old, err := c.DoneStates(name, before, today)
	if err != nil {
		return nil, err
	}
	current, err := c.DoneStates(name, after, today)
	if err != nil {
		return nil, err
	}

	var changes []Change
	def := c.defs[name]
	// Iterate in document order so callers see a stable sequence.
	lists, err := decodeLists(def, after)
	if err != nil {
		return nil, err
	}
	seen := map[TaskID]bool{}
	for _, kind := range def.kinds {
		walk(lists[kind.Type], 0, func(task Task) {
			if seen[task.ID] {
				return
			}
			seen[task.ID] = true
			now, ok := current[task.ID]
			if !ok {
				return
			}
			was, ok := old[task.ID]
			if !ok || was.Done == now.Done {
				return
			}
			changes = append(changes, now)
		})
	}
	return changes, nil
}

func walk(list []Task, depth int, fn func(Task)) {
	if depth > MaxSubDepth {
		return
	}
	for _, task := range list {
		fn(task)
		walk(task.Subtasks, depth+1, fn)
	}
}
