package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"

	"github.com/poiesic/mediamind/core"
	"github.com/poiesic/mediamind/storage"
)

// DefaultRetention is how long terminal tasks are kept before the sweep
// removes them. Cache entries are deliberately exempt: a task record is
// ephemeral bookkeeping, a fingerprint entry is sunk cost worth keeping
// forever.
const DefaultRetention = 7 * 24 * time.Hour

// defaultSweepSchedule runs the retention sweep nightly.
const defaultSweepSchedule = "17 3 * * *"

// Manager is the public face of ingestion: it admits submissions, hands
// them to a bounded worker pool running the pipeline, answers status and
// list queries, relays cancellation, and sweeps old terminal tasks on a
// schedule.
type Manager struct {
	tasks    storage.TaskRepository
	pipeline *Pipeline
	pool     *ants.Pool
	cron     *cron.Cron
	marker   storage.SweepMarker

	retention time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Status is what a caller polling a task sees.
type Status struct {
	TaskID       core.TaskID
	Status       core.TaskStatus
	Progress     int
	CurrentStep  string
	ErrorMessage string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager) error

// WithWorkers bounds how many pipelines run at once. Submissions beyond the
// bound queue until a worker frees up. Default is runtime.NumCPU(), with a
// minimum of 1.
func WithWorkers(n int) ManagerOption {
	return func(m *Manager) error {
		if n < 1 {
			n = 1
		}
		if m.pool != nil {
			m.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		m.pool = pool
		return nil
	}
}

// WithRetention overrides the retention window for terminal tasks.
func WithRetention(window time.Duration) ManagerOption {
	return func(m *Manager) error {
		if window > 0 {
			m.retention = window
		}
		return nil
	}
}

// WithSweepMarker records sweep outcomes for operator visibility.
func WithSweepMarker(marker storage.SweepMarker) ManagerOption {
	return func(m *Manager) error {
		m.marker = marker
		return nil
	}
}

// WithManagerLogger sets a custom logger. Default is slog.Default().
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewManager creates a manager dispatching work to the given pipeline.
// The retention sweep starts immediately and runs nightly until Close.
func NewManager(tasks storage.TaskRepository, pipeline *Pipeline, opts ...ManagerOption) (*Manager, error) {
	if tasks == nil {
		return nil, ErrTaskRepositoryRequired
	}
	if pipeline == nil {
		return nil, errors.New("pipeline required")
	}

	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		tasks:     tasks,
		pipeline:  pipeline,
		pool:      pool,
		retention: DefaultRetention,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(m); optErr != nil {
			m.pool.Release()
			return nil, optErr
		}
	}

	m.cron = cron.New()
	if _, err := m.cron.AddFunc(defaultSweepSchedule, func() {
		if _, err := m.Sweep(context.Background()); err != nil {
			m.logger.Error("scheduled retention sweep failed", "err", err)
		}
	}); err != nil {
		m.pool.Release()
		return nil, err
	}
	m.cron.Start()

	return m, nil
}

// Submit admits a file for ingestion into a library and returns the task ID
// immediately. Nothing expensive happens synchronously: the fingerprint,
// the remote analysis, and the indexing all run on a pooled worker. The
// returned ID can be polled with GetStatus.
func (m *Manager) Submit(ctx context.Context, path, library string) (core.TaskID, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrManagerClosed
	}
	m.mu.Unlock()

	// Admission checks only: the file must exist and be a regular file.
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", errors.New("submission must be a file, not a directory")
	}

	task := &core.TaskRecord{
		ID:       core.NewTaskID(),
		Library:  library,
		Filename: filepath.Base(path),
		Status:   core.StatusPending,
	}
	if _, err := m.tasks.CreateTask(ctx, task); err != nil {
		return "", err
	}

	// Dispatch asynchronously: pool.Submit blocks while every worker is
	// busy, and admission must never wait on a minutes-long pipeline. The
	// record is already durable, so the caller can poll the returned ID
	// while the task sits Pending in the dispatch queue.
	m.wg.Add(1)
	go func() {
		err := m.pool.Submit(func() {
			defer m.wg.Done()
			// Detached from the submitter's context: the task outlives the call.
			m.pipeline.Run(context.Background(), task.ID, path)
		})
		if err == nil {
			return
		}
		m.wg.Done()
		// Surface the dispatch failure on the record so the task does not
		// sit Pending forever.
		if _, updateErr := m.tasks.UpdateTask(context.Background(), task.ID, func(t *core.TaskRecord) error {
			t.Status = core.StatusFailed
			t.ErrorMessage = "dispatch failed: " + err.Error()
			return nil
		}); updateErr != nil {
			m.logger.Error("failed to mark undispatched task", "task", task.ID, "err", updateErr)
		}
	}()

	m.logger.Info("task submitted", "task", task.ID, "library", library, "file", task.Filename)
	return task.ID, nil
}

// GetStatus returns the pollable view of a task. Returns
// storage.ErrNotFound for unknown or already-swept tasks.
func (m *Manager) GetStatus(ctx context.Context, id core.TaskID) (*Status, error) {
	task, err := m.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Status{
		TaskID:       task.ID,
		Status:       task.Status,
		Progress:     task.Progress,
		CurrentStep:  task.CurrentStep,
		ErrorMessage: task.ErrorMessage,
	}, nil
}

// GetTask returns the full task record.
func (m *Manager) GetTask(ctx context.Context, id core.TaskID) (*core.TaskRecord, error) {
	return m.tasks.GetTask(ctx, id)
}

// Cancel requests cooperative cancellation of a task. The pipeline honors
// the request at its next step boundary; a step already in flight runs to
// completion first. Returns storage.ErrTerminalState if the task already
// finished, storage.ErrNotFound if it does not exist.
func (m *Manager) Cancel(ctx context.Context, id core.TaskID) error {
	_, err := m.tasks.UpdateTask(ctx, id, func(t *core.TaskRecord) error {
		t.CancelRequested = true
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("cancellation requested", "task", id)
	return nil
}

// List returns task records matching the filter, most recent first.
func (m *Manager) List(ctx context.Context, filter storage.TaskFilter) ([]*core.TaskRecord, error) {
	return m.tasks.ListTasks(ctx, filter)
}

// Sweep removes terminal tasks older than the retention window and records
// the outcome. It can be invoked directly (CLI, tests); the manager also
// runs it nightly.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	removed, err := m.tasks.SweepTasks(ctx, m.retention)
	if err != nil {
		return 0, err
	}
	m.logger.Info("retention sweep finished", "removed", removed, "retention", m.retention)

	if m.marker != nil {
		mark := &storage.SweepMark{RanAt: time.Now().UTC(), Removed: removed}
		if err := m.marker.SaveSweepMark(ctx, mark); err != nil {
			m.logger.Warn("failed to record sweep outcome", "err", err)
		}
	}
	return removed, nil
}

// Wait blocks until all dispatched pipelines have finished. Intended for
// CLI runs and tests; long-lived services poll task status instead.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close stops the sweep schedule, waits for in-flight pipelines, and
// releases the worker pool. The manager must not be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cron.Stop()
	m.wg.Wait()
	m.pool.Release()
	return nil
}
