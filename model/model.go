package model

// Filter represents how tasks should be shown.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterPending Filter = "pending"
	FilterDone    Filter = "done"
)

// Filters lists the valid filters in menu order.
var Filters = []Filter{FilterAll, FilterPending, FilterDone}

// Valid reports whether f is one of the known filters.
func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterPending, FilterDone:
		return true
	default:
		return false
	}
}

// Matches reports whether a task with status st is visible under f.
func (f Filter) Matches(st Status) bool {
	switch f {
	case FilterPending:
		return st == StatusPending
	case FilterDone:
		return st == StatusDone
	default:
		return true
	}
}

// Status is the completion state of a task.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Task is an individual todo item.
type Task struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Date   Date   `json:"date"`
	Status Status `json:"status"`
}

// Done reports whether the task has been completed.
func (t Task) Done() bool {
	return t.Status == StatusDone
}

// TaskList is the persisted, insertion-ordered collection of tasks.
type TaskList []Task

// Clone returns a copy that does not share the backing array.
func (l TaskList) Clone() TaskList {
	out := make(TaskList, len(l))
	copy(out, l)
	return out
}

// MaxID returns the largest id in the list, or 0.
func (l TaskList) MaxID() int64 {
	var max int64
	for _, t := range l {
		if t.ID > max {
			max = t.ID
		}
	}
	return max
}

// Index returns the position of the task with id, or -1.
func (l TaskList) Index(id int64) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}
