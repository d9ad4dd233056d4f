package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/mediamind/core"
	"github.com/poiesic/mediamind/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTaskRepo(t *testing.T) storage.TaskRepository {
	tasks, cache, index, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		index.Close()
		cache.Close()
		tasks.Close()
		backend.Close()
	})
	return tasks
}

func newTask(library string) *core.TaskRecord {
	return &core.TaskRecord{
		ID:       core.NewTaskID(),
		Library:  library,
		Filename: "clip.mp4",
		Status:   core.StatusPending,
	}
}

func TestCreateAndGetTask(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	task := newTask("screencasts")
	created, err := repo.CreateTask(ctx, task)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, core.StatusPending, got.Status)
}

func TestCreateTaskDuplicateID(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	task := newTask("screencasts")
	_, err := repo.CreateTask(ctx, task)
	require.NoError(t, err)

	_, err = repo.CreateTask(ctx, task)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestGetTaskNotFound(t *testing.T) {
	repo := setupTaskRepo(t)

	_, err := repo.GetTask(context.Background(), core.NewTaskID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateTaskProgress(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	task := newTask("screencasts")
	_, err := repo.CreateTask(ctx, task)
	require.NoError(t, err)

	updated, err := repo.UpdateTask(ctx, task.ID, func(t *core.TaskRecord) error {
		t.Status = core.StatusProcessing
		t.Progress = 25
		t.CurrentStep = "upload"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 25, updated.Progress)
	assert.Equal(t, "upload", updated.CurrentStep)
}

func TestUpdateTaskProgressRegression(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	task := newTask("screencasts")
	_, err := repo.CreateTask(ctx, task)
	require.NoError(t, err)

	_, err = repo.UpdateTask(ctx, task.ID, func(t *core.TaskRecord) error {
		t.Progress = 60
		return nil
	})
	require.NoError(t, err)

	_, err = repo.UpdateTask(ctx, task.ID, func(t *core.TaskRecord) error {
		t.Progress = 40
		return nil
	})
	assert.ErrorIs(t, err, storage.ErrProgressRegression)
}

func TestUpdateTaskTerminalIsFinal(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	task := newTask("screencasts")
	_, err := repo.CreateTask(ctx, task)
	require.NoError(t, err)

	done, err := repo.UpdateTask(ctx, task.ID, func(t *core.TaskRecord) error {
		t.Status = core.StatusCompleted
		t.Progress = 100
		return nil
	})
	require.NoError(t, err)
	assert.False(t, done.CompletedAt.IsZero())

	// No transition out of a terminal state, not even to another one
	_, err = repo.UpdateTask(ctx, task.ID, func(t *core.TaskRecord) error {
		t.Status = core.StatusProcessing
		return nil
	})
	assert.ErrorIs(t, err, storage.ErrTerminalState)

	_, err = repo.UpdateTask(ctx, task.ID, func(t *core.TaskRecord) error {
		t.CancelRequested = true
		return nil
	})
	assert.ErrorIs(t, err, storage.ErrTerminalState)
}

func setFingerprint(t *testing.T, repo storage.TaskRepository, id core.TaskID, fp core.Fingerprint) error {
	t.Helper()
	_, err := repo.UpdateTask(context.Background(), id, func(task *core.TaskRecord) error {
		task.Status = core.StatusProcessing
		task.Fingerprint = fp
		return nil
	})
	return err
}

func TestActiveContentClaim(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	first := newTask("screencasts")
	second := newTask("screencasts")
	_, err := repo.CreateTask(ctx, first)
	require.NoError(t, err)
	_, err = repo.CreateTask(ctx, second)
	require.NoError(t, err)

	require.NoError(t, setFingerprint(t, repo, first.ID, "fp-1"))

	// A second non-terminal task may not claim the same content
	err = setFingerprint(t, repo, second.ID, "fp-1")
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	active, err := repo.ActiveTaskForContent(ctx, "screencasts", "fp-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	// Terminal transition releases the claim
	_, err = repo.UpdateTask(ctx, first.ID, func(t *core.TaskRecord) error {
		t.Status = core.StatusCompleted
		t.Progress = 100
		return nil
	})
	require.NoError(t, err)

	_, err = repo.ActiveTaskForContent(ctx, "screencasts", "fp-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, setFingerprint(t, repo, second.ID, "fp-1"))
}

func TestActiveContentScopedByLibrary(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	first := newTask("screencasts")
	second := newTask("podcasts")
	_, err := repo.CreateTask(ctx, first)
	require.NoError(t, err)
	_, err = repo.CreateTask(ctx, second)
	require.NoError(t, err)

	require.NoError(t, setFingerprint(t, repo, first.ID, "fp-1"))
	// Same content in a different library is a separate claim
	require.NoError(t, setFingerprint(t, repo, second.ID, "fp-1"))
}

func TestListTasks(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	var ids []core.TaskID
	for i := 0; i < 5; i++ {
		task := newTask("screencasts")
		task.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if i == 4 {
			task.Library = "podcasts"
		}
		_, err := repo.CreateTask(ctx, task)
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	all, err := repo.ListTasks(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	// Most recent first
	assert.Equal(t, ids[4], all[0].ID)
	assert.Equal(t, ids[0], all[4].ID)

	screencasts, err := repo.ListTasks(ctx, storage.TaskFilter{Library: "screencasts"})
	require.NoError(t, err)
	assert.Len(t, screencasts, 4)

	limited, err := repo.ListTasks(ctx, storage.TaskFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	pending, err := repo.ListTasks(ctx, storage.TaskFilter{Statuses: []core.TaskStatus{core.StatusPending}})
	require.NoError(t, err)
	assert.Len(t, pending, 5)

	completed, err := repo.ListTasks(ctx, storage.TaskFilter{Statuses: []core.TaskStatus{core.StatusCompleted}})
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestSweepTasks(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	// Completed 8 days ago: swept
	old := newTask("screencasts")
	_, err := repo.CreateTask(ctx, old)
	require.NoError(t, err)
	_, err = repo.UpdateTask(ctx, old.ID, func(t *core.TaskRecord) error {
		t.Status = core.StatusCompleted
		t.Progress = 100
		t.CompletedAt = time.Now().UTC().Add(-8 * 24 * time.Hour)
		return nil
	})
	require.NoError(t, err)

	// Completed just now: kept
	fresh := newTask("screencasts")
	_, err = repo.CreateTask(ctx, fresh)
	require.NoError(t, err)
	_, err = repo.UpdateTask(ctx, fresh.ID, func(t *core.TaskRecord) error {
		t.Status = core.StatusCompleted
		t.Progress = 100
		return nil
	})
	require.NoError(t, err)

	// Processing for 30 days: a stuck task is a bug to surface, never swept
	stuck := newTask("screencasts")
	stuck.CreatedAt = time.Now().UTC().Add(-30 * 24 * time.Hour)
	_, err = repo.CreateTask(ctx, stuck)
	require.NoError(t, err)
	_, err = repo.UpdateTask(ctx, stuck.ID, func(t *core.TaskRecord) error {
		t.Status = core.StatusProcessing
		return nil
	})
	require.NoError(t, err)

	removed, err := repo.SweepTasks(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.GetTask(ctx, old.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.GetTask(ctx, fresh.ID)
	assert.NoError(t, err)

	_, err = repo.GetTask(ctx, stuck.ID)
	assert.NoError(t, err)

	// Swept tasks also leave the listing index
	all, err := repo.ListTasks(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTaskSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	repo, err := NewTaskRepository(backend)
	require.NoError(t, err)

	task := newTask("screencasts")
	_, err = repo.CreateTask(ctx, task)
	require.NoError(t, err)
	_, err = repo.UpdateTask(ctx, task.ID, func(t *core.TaskRecord) error {
		t.Status = core.StatusProcessing
		t.Progress = 60
		t.CurrentStep = "await-analysis"
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, repo.Close())
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()
	repo, err = NewTaskRepository(backend)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusProcessing, got.Status)
	assert.Equal(t, 60, got.Progress)
	assert.Equal(t, "await-analysis", got.CurrentStep)
}

func TestSweepMarker(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	marker := NewSweepMarker(backend)
	ctx := context.Background()

	mark, err := marker.LoadSweepMark(ctx)
	require.NoError(t, err)
	assert.Nil(t, mark)

	require.NoError(t, marker.SaveSweepMark(ctx, &storage.SweepMark{Removed: 3}))

	mark, err = marker.LoadSweepMark(ctx)
	require.NoError(t, err)
	require.NotNil(t, mark)
	assert.Equal(t, 3, mark.Removed)
	assert.False(t, mark.RanAt.IsZero())
}
