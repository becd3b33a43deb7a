package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"todo-tracker/model"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidTask   = errors.New("task text must not be empty")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrPersist       = errors.New("change applied but not saved")
)

// Persistence loads and saves the whole task list.
type Persistence interface {
	Load() (model.TaskList, error)
	Save(model.TaskList) error
}

// SeedFetcher returns task-like records used once to populate an empty store.
// Only Text is required; ID and Status may be zero.
type SeedFetcher interface {
	FetchSeed(ctx context.Context) ([]model.Task, error)
}

// SeedFunc adapts a function to SeedFetcher.
type SeedFunc func(ctx context.Context) ([]model.Task, error)

func (f SeedFunc) FetchSeed(ctx context.Context) ([]model.Task, error) {
	return f(ctx)
}

// ViewState is the session-scoped presentation state: the active filter and
// the task being edited, if any. It is never persisted.
type ViewState struct {
	Filter  model.Filter
	EditID  int64
	Editing bool
}

// Service holds domain rules and in-memory state.
type Service struct {
	mu     sync.Mutex
	store  Persistence
	log    *slog.Logger
	now    func() time.Time
	tasks  model.TaskList
	view   ViewState
	lastID int64
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for id generation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a service over store. Call Load before use.
func NewService(store Persistence, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:   time.Now,
		tasks: model.TaskList{},
		view:  ViewState{Filter: model.FilterAll},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted list. Missing or unreadable data yields an
// empty list; the error is logged, never returned.
func (s *Service) Load() model.TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.store.Load()
	if err != nil {
		s.log.Warn("stored tasks unreadable, starting empty", "error", err)
		list = model.TaskList{}
	}
	if list == nil {
		list = model.TaskList{}
	}
	s.tasks = list
	if max := list.MaxID(); max > s.lastID {
		s.lastID = max
	}
	s.log.Debug("tasks loaded", "count", len(list))
	return s.tasks.Clone()
}

// BootstrapIfEmpty populates an empty list from fetcher once and reports
// whether the seed was adopted. Fetch failures and empty seeds are logged
// and leave the list empty.
func (s *Service) BootstrapIfEmpty(ctx context.Context, fetcher SeedFetcher) (model.TaskList, bool) {
	if fetcher == nil || !s.isEmpty() {
		return s.Tasks(), false
	}

	records, err := fetcher.FetchSeed(ctx)
	if err != nil {
		s.log.Warn("could not load seed tasks", "error", err)
		return s.Tasks(), false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tasks) != 0 {
		// tasks were added while the fetch was in flight
		s.log.Info("seed discarded, list no longer empty", "count", len(s.tasks))
		return s.tasks.Clone(), false
	}

	seeded := s.normalizeSeed(records)
	if len(seeded) == 0 {
		s.log.Warn("seed contained no usable tasks", "records", len(records))
		return s.tasks.Clone(), false
	}

	s.tasks = seeded
	if err := s.store.Save(s.tasks); err != nil {
		s.log.Warn("seed adopted but not saved", "error", err)
	}
	s.log.Info("seed tasks loaded", "count", len(seeded))
	return s.tasks.Clone(), true
}

// Tasks returns all tasks as a copy, in insertion order.
func (s *Service) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Clone()
}

// GetTask returns a task by id.
func (s *Service) GetTask(id int64) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.tasks.Index(id); i >= 0 {
		return s.tasks[i], nil
	}
	return model.Task{}, ErrTaskNotFound
}

// Add appends a new pending task. Blank text is rejected without changes.
func (s *Service) Add(text string, date model.Date) (model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Task{}, ErrInvalidTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := model.Task{
		ID:     s.nextID(),
		Text:   text,
		Date:   date,
		Status: model.StatusPending,
	}
	s.tasks = append(s.tasks, task)
	return task, s.persist()
}

// BeginEdit starts editing id, replacing any edit in progress, and returns
// the task's current values.
func (s *Service) BeginEdit(id int64) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.tasks.Index(id)
	if i < 0 {
		return model.Task{}, ErrTaskNotFound
	}
	s.view.EditID = id
	s.view.Editing = true
	return s.tasks[i], nil
}

// CommitEdit overwrites text and date of id. Status is left untouched.
// Blank text keeps the edit open; a vanished task closes it.
func (s *Service) CommitEdit(id int64, text string, date model.Date) (model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Task{}, ErrInvalidTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.view.EditID = 0
	s.view.Editing = false

	i := s.tasks.Index(id)
	if i < 0 {
		return model.Task{}, ErrTaskNotFound
	}
	s.tasks[i].Text = text
	s.tasks[i].Date = date
	return s.tasks[i], s.persist()
}

// CancelEdit drops the edit in progress, if any.
func (s *Service) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.EditID = 0
	s.view.Editing = false
}

// Editing returns the id being edited.
func (s *Service) Editing() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.EditID, s.view.Editing
}

// MarkDone completes a pending task. Done is terminal; absent or already
// done tasks are left alone and nothing is written.
func (s *Service) MarkDone(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.tasks.Index(id)
	if i < 0 || s.tasks[i].Done() {
		return nil
	}
	s.tasks[i].Status = model.StatusDone
	return s.persist()
}

// Remove deletes id if present. The list is written either way.
func (s *Service) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.tasks.Index(id); i >= 0 {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	}
	return s.persist()
}

// RemoveAll clears the list. Callers confirm with the user first.
func (s *Service) RemoveAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = model.TaskList{}
	return s.persist()
}

func (s *Service) SetFilter(filter model.Filter) error {
	if !filter.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFilter, filter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Filter = filter
	return nil
}

func (s *Service) Filter() model.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Filter
}

// View returns a copy of the session view state.
func (s *Service) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Visible returns the tasks matching the current filter, in insertion order.
func (s *Service) Visible() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if s.view.Filter.Matches(t.Status) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Service) isEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks) == 0
}

func (s *Service) persist() error {
	if err := s.store.Save(s.tasks.Clone()); err != nil {
		s.log.Error("save failed", "error", err, "count", len(s.tasks))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// nextID is time-based (milliseconds) but strictly increasing, so ids are
// never reused even when the clock stalls or goes backwards.
func (s *Service) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Service) normalizeSeed(records []model.Task) model.TaskList {
	out := make(model.TaskList, 0, len(records))
	seen := make(map[int64]bool, len(records))
	for _, r := range records {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		if r.ID > s.lastID {
			s.lastID = r.ID
		}
		task := model.Task{ID: r.ID, Text: text, Date: r.Date, Status: r.Status}
		if task.Status != model.StatusDone {
			task.Status = model.StatusPending
		}
		out = append(out, task)
	}
	// second pass so generated ids land above every seeded one
	for i := range out {
		if out[i].ID <= 0 || seen[out[i].ID] {
			out[i].ID = s.nextID()
		}
		seen[out[i].ID] = true
	}
	return out
}
