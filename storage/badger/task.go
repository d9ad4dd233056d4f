package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/mediamind/core"
	"github.com/poiesic/mediamind/storage"
)

// TaskRepository implements storage.TaskRepository for BadgerDB.
type TaskRepository struct {
	backend *Backend
}

var _ storage.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(backend *Backend) (*TaskRepository, error) {
	return &TaskRepository{
		backend: backend,
	}, nil
}

// Close releases resources. TaskRepository has no resources to release.
func (r *TaskRepository) Close() error {
	return nil
}

// CreateTask persists a new task record.
func (r *TaskRepository) CreateTask(ctx context.Context, task *core.TaskRecord) (*core.TaskRecord, error) {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if err := core.ValidateTaskRecord(task); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTaskKey(task.ID)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if err := tx.Set(key, storage.MarshalTaskRecord(task)); err != nil {
			return err
		}

		createdKey := makeTimeIndexKey(taskCreatedPrefix, task.CreatedAt, task.ID)
		if err := tx.Set(createdKey, []byte(task.ID)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return task, err
}

// GetTask retrieves a task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id core.TaskID) (*core.TaskRecord, error) {
	var result *core.TaskRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readTask(tx, makeTaskKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// UpdateTask applies mutate to the stored record inside one transaction.
// Lifecycle invariants are enforced here: a terminal task rejects any
// further mutation, and progress may not decrease while non-terminal.
func (r *TaskRepository) UpdateTask(ctx context.Context, id core.TaskID, mutate func(*core.TaskRecord) error) (*core.TaskRecord, error) {
	for {
		result, err := r.updateTaskOnce(ctx, id, mutate)
		if err != badger.ErrConflict {
			return result, err
		}
		// A concurrent writer won the optimistic lock (progress update vs
		// cancel flag); re-read and reapply.
	}
}

func (r *TaskRepository) updateTaskOnce(ctx context.Context, id core.TaskID, mutate func(*core.TaskRecord) error) (*core.TaskRecord, error) {
	var result *core.TaskRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTaskKey(id)
		old, err := readTask(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		if old.Status.Terminal() {
			return storage.ErrTerminalState
		}

		updated := *old
		if err := mutate(&updated); err != nil {
			return err
		}

		// Immutable fields
		updated.ID = old.ID
		updated.Library = old.Library
		updated.CreatedAt = old.CreatedAt

		if updated.Progress < old.Progress {
			return storage.ErrProgressRegression
		}

		if err := core.ValidateTaskRecord(&updated); err != nil {
			return err
		}

		if updated.Status.Terminal() {
			if updated.CompletedAt.IsZero() {
				updated.CompletedAt = time.Now().UTC()
			}
			terminalKey := makeTimeIndexKey(taskTerminalPrefix, updated.CompletedAt, updated.ID)
			if err := tx.Set(terminalKey, []byte(updated.ID)); err != nil {
				return err
			}
			if updated.Fingerprint != "" {
				if err := r.releaseActive(tx, &updated); err != nil {
					return err
				}
			}
		} else if updated.Fingerprint != "" && old.Fingerprint == "" {
			// Fingerprint just became known: claim the single non-terminal
			// slot for this (library, fingerprint) pair.
			if err := r.claimActive(tx, &updated); err != nil {
				return err
			}
		}

		if err := tx.Set(key, storage.MarshalTaskRecord(&updated)); err != nil {
			return err
		}

		result = &updated
		return tx.Commit()
	}, true)

	return result, err
}

// claimActive sets the active-content key for a task, rejecting the claim
// if another non-terminal task already holds it.
func (r *TaskRepository) claimActive(tx *badger.Txn, task *core.TaskRecord) error {
	activeKey := makeTaskActiveKey(task.Library, task.Fingerprint)
	item, err := tx.Get(activeKey)
	if err == nil {
		var holder core.TaskID
		if err := item.Value(func(val []byte) error {
			holder = core.TaskID(val)
			return nil
		}); err != nil {
			return err
		}
		if holder != task.ID {
			// Stale claims from crashed runs are released when the holder
			// record is gone or terminal.
			holderTask, err := readTask(tx, makeTaskKey(holder))
			if err != nil {
				return err
			}
			if holderTask != nil && !holderTask.Status.Terminal() {
				return storage.ErrDuplicateKey
			}
		}
	} else if err != badger.ErrKeyNotFound {
		return err
	}
	return tx.Set(activeKey, []byte(task.ID))
}

// releaseActive removes the active-content key if this task holds it.
func (r *TaskRepository) releaseActive(tx *badger.Txn, task *core.TaskRecord) error {
	activeKey := makeTaskActiveKey(task.Library, task.Fingerprint)
	item, err := tx.Get(activeKey)
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	var holder core.TaskID
	if err := item.Value(func(val []byte) error {
		holder = core.TaskID(val)
		return nil
	}); err != nil {
		return err
	}
	if holder != task.ID {
		return nil
	}
	return tx.Delete(activeKey)
}

// ListTasks returns tasks matching the filter, most recent first.
func (r *TaskRepository) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]*core.TaskRecord, error) {
	start := filter.CreatedAfter
	if start.IsZero() {
		start = time.UnixMicro(0)
	}
	end := filter.CreatedBefore
	if end.IsZero() {
		end = time.Now().UTC().Add(time.Microsecond)
	}

	var results []*core.TaskRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialTimeIndexKey(taskCreatedPrefix, start)
		endKey := makePartialTimeIndexKey(taskCreatedPrefix, end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) > 0 {
				break
			}

			var taskID core.TaskID
			if err := iter.Item().Value(func(val []byte) error {
				taskID = core.TaskID(val)
				return nil
			}); err != nil {
				return err
			}

			task, err := readTask(tx, makeTaskKey(taskID))
			if err != nil {
				return err
			}
			if task != nil && filter.Matches(task) {
				results = append(results, task)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Index order is oldest first
	slices.Reverse(results)
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// SweepTasks removes terminal tasks whose terminal timestamp is older than
// the retention window. Non-terminal tasks are never swept.
func (r *TaskRepository) SweepTasks(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	removed := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialTimeIndexKey(taskTerminalPrefix, time.UnixMicro(0))
		endKey := makePartialTimeIndexKey(taskTerminalPrefix, cutoff)

		// Collect first: deleting while iterating invalidates the iterator.
		type victim struct {
			indexKey []byte
			id       core.TaskID
		}
		var victims []victim

		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().KeyCopy(nil)
			if slices.Compare(key, endKey) > 0 {
				break
			}
			var taskID core.TaskID
			if err := iter.Item().Value(func(val []byte) error {
				taskID = core.TaskID(val)
				return nil
			}); err != nil {
				iter.Close()
				return err
			}
			victims = append(victims, victim{indexKey: key, id: taskID})
		}
		iter.Close()

		for _, v := range victims {
			task, err := readTask(tx, makeTaskKey(v.id))
			if err != nil {
				return err
			}
			if task != nil {
				// Only terminal tasks ever enter the terminal index
				if err := tx.Delete(makeTaskKey(v.id)); err != nil {
					return err
				}
				createdKey := makeTimeIndexKey(taskCreatedPrefix, task.CreatedAt, task.ID)
				if err := tx.Delete(createdKey); err != nil {
					return err
				}
			}
			if err := tx.Delete(v.indexKey); err != nil {
				return err
			}
			removed++
		}
		return tx.Commit()
	}, true)

	return removed, err
}

// ActiveTaskForContent returns the non-terminal task targeting the given
// (library, fingerprint), or ErrNotFound when none is in flight.
func (r *TaskRepository) ActiveTaskForContent(ctx context.Context, library string, fp core.Fingerprint) (*core.TaskRecord, error) {
	var result *core.TaskRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTaskActiveKey(library, fp))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		var taskID core.TaskID
		if err := item.Value(func(val []byte) error {
			taskID = core.TaskID(val)
			return nil
		}); err != nil {
			return err
		}
		task, err := readTask(tx, makeTaskKey(taskID))
		if err != nil {
			return err
		}
		if task == nil || task.Status.Terminal() {
			return storage.ErrNotFound
		}
		result = task
		return nil
	}, false)
	return result, err
}

// readTask reads a task record from the transaction.
func readTask(tx *badger.Txn, key []byte) (*core.TaskRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var task *core.TaskRecord
	err = item.Value(func(val []byte) error {
		var err error
		task, err = storage.UnmarshalTaskRecord(val)
		return err
	})
	return task, err
}
