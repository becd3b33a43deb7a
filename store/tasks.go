package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"todo-tracker/model"
)

// DefaultKey is the key the task list is stored under.
const DefaultKey = "todos"

var ErrCorrupt = errors.New("stored task list is corrupt")

// TaskRepository encodes the task list as a JSON array under one KV key.
type TaskRepository struct {
	kv  KV
	key string

	recovered string
}

func NewTaskRepository(kv KV, key string) *TaskRepository {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultKey
	}
	return &TaskRepository{kv: kv, key: key}
}

// Key returns the KV key in use.
func (r *TaskRepository) Key() string {
	return r.key
}

// RecoveredFrom names the backup the last Load restored, or "".
func (r *TaskRepository) RecoveredFrom() string {
	return r.recovered
}

// Load returns the stored list. A missing or blank value is an empty list.
// Corrupt data is moved aside when the backend supports it and the newest
// valid backup is restored; without one, Load returns ErrCorrupt.
func (r *TaskRepository) Load() (model.TaskList, error) {
	r.recovered = ""
	raw, ok, err := r.kv.Get(r.key)
	if err != nil {
		return model.TaskList{}, err
	}
	if !ok {
		return model.TaskList{}, nil
	}

	list, err := decodeTasks(raw)
	if err == nil {
		return list, nil
	}
	if !isCorruptStateError(err) {
		return model.TaskList{}, err
	}
	corruptErr := fmt.Errorf("%w: %v", ErrCorrupt, err)

	if q, ok := r.kv.(quarantiner); ok {
		if _, err := q.Quarantine(r.key); err != nil {
			return model.TaskList{}, fmt.Errorf("falha ao mover arquivo corrompido: %w", err)
		}
	}

	src, ok := r.kv.(backupSource)
	if !ok {
		return model.TaskList{}, corruptErr
	}
	backups, err := src.Backups(r.key)
	if err != nil {
		return model.TaskList{}, fmt.Errorf("falha ao inspecionar backups: %w", err)
	}
	for i, candidate := range backups {
		recovered, err := decodeTasks(candidate)
		if err != nil {
			continue
		}
		if err := r.Save(recovered); err != nil {
			return model.TaskList{}, fmt.Errorf("falha ao restaurar backup: %w", err)
		}
		r.recovered = fmt.Sprintf("backup #%d", i+1)
		return recovered, nil
	}
	return model.TaskList{}, corruptErr
}

// Save replaces the stored list.
func (r *TaskRepository) Save(list model.TaskList) error {
	if list == nil {
		list = model.TaskList{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return r.kv.Set(r.key, string(data))
}

func decodeTasks(raw string) (model.TaskList, error) {
	if strings.TrimSpace(raw) == "" {
		return model.TaskList{}, nil
	}
	var list model.TaskList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return model.TaskList{}, err
	}
	if list == nil {
		list = model.TaskList{}
	}
	return list, nil
}

func isCorruptStateError(err error) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return true
	}
	if errors.Is(err, model.ErrInvalidDate) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
