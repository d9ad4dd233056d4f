package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/mediamind/ai"
	"github.com/poiesic/mediamind/ai/mock"
	"github.com/poiesic/mediamind/core"
	"github.com/poiesic/mediamind/storage"
	badgerstore "github.com/poiesic/mediamind/storage/badger"
)

type pipelineFixture struct {
	pipeline *Pipeline
	analyzer *mock.MockAnalyzer
	tasks    storage.TaskRepository
	cache    storage.AnalysisCache
	index    storage.IndexRepository
}

func newPipelineFixture(t *testing.T, opts ...PipelineOption) *pipelineFixture {
	t.Helper()

	tasks, cache, index, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	analyzer := mock.NewMockAnalyzer()
	provider := mock.NewMockProviderWithServices(analyzer, mock.NewMockEmbedder(), mock.NewMockTagger())

	defaults := []PipelineOption{
		WithPollInterval(5 * time.Millisecond),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}),
	}
	pipeline, err := NewPipeline(tasks, cache, index, provider, append(defaults, opts...)...)
	require.NoError(t, err)

	return &pipelineFixture{
		pipeline: pipeline,
		analyzer: analyzer,
		tasks:    tasks,
		cache:    cache,
		index:    index,
	}
}

func (f *pipelineFixture) newTask(t *testing.T, library, filename string) core.TaskID {
	t.Helper()
	task := &core.TaskRecord{
		ID:       core.NewTaskID(),
		Library:  library,
		Filename: filename,
		Status:   core.StatusPending,
	}
	_, err := f.tasks.CreateTask(context.Background(), task)
	require.NoError(t, err)
	return task.ID
}

func writeMediaFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestPipelineSlowPath(t *testing.T) {
	f := newPipelineFixture(t)
	path := writeMediaFile(t, "lecture.mp4", "lecture media bytes")
	id := f.newTask(t, "lib", "lecture.mp4")

	f.pipeline.Run(context.Background(), id, path)

	task, err := f.tasks.GetTask(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.NotEmpty(t, task.Fingerprint)
	assert.NotEmpty(t, task.ExternalID)
	assert.False(t, task.CompletedAt.IsZero())
	assert.Empty(t, task.ErrorMessage)

	// The analysis is now cached for this content
	entry, err := f.cache.Lookup(context.Background(), task.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, task.ExternalID, entry.ExternalID)

	// Chunks landed in the index with vectors attached
	chunks, err := f.index.ChunksForContent(context.Background(), "lib", task.Fingerprint)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.Vector)
		assert.NotEmpty(t, chunk.Text)
	}

	assert.Equal(t, 1, f.analyzer.UploadCount())
}

func TestPipelineFastPathSkipsUpload(t *testing.T) {
	f := newPipelineFixture(t)

	// First submission runs the slow path
	first := writeMediaFile(t, "original.mp4", "identical media bytes")
	firstID := f.newTask(t, "lib", "original.mp4")
	f.pipeline.Run(context.Background(), firstID, first)
	require.Equal(t, 1, f.analyzer.UploadCount())

	// Same bytes, different filename: fast path, no second upload
	second := writeMediaFile(t, "copy.mp4", "identical media bytes")
	secondID := f.newTask(t, "lib", "copy.mp4")
	f.pipeline.Run(context.Background(), secondID, second)

	task, err := f.tasks.GetTask(context.Background(), secondID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, task.Status)
	assert.Equal(t, 1, f.analyzer.UploadCount(), "duplicate content must not be re-uploaded")

	firstTask, err := f.tasks.GetTask(context.Background(), firstID)
	require.NoError(t, err)
	assert.Equal(t, firstTask.Fingerprint, task.Fingerprint)
	assert.Equal(t, firstTask.ExternalID, task.ExternalID)

	// Replaying chunk/embed/store left exactly one record per chunk key
	count, err := f.index.CountChunks(context.Background(), "lib", task.Fingerprint)
	require.NoError(t, err)
	chunks, err := f.index.ChunksForContent(context.Background(), "lib", task.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), count)

	// Exactly one cache entry for the fingerprint, with reuse recorded
	entry, err := f.cache.Lookup(context.Background(), task.Fingerprint)
	require.NoError(t, err)
	assert.False(t, entry.LastReusedAt.IsZero())
}

func TestPipelineConcurrentIdenticalSubmissions(t *testing.T) {
	f := newPipelineFixture(t)
	f.analyzer.SettleAfter = 5 // keep the leader busy long enough to be joined

	pathA := writeMediaFile(t, "a.mp4", "the very same bytes")
	pathB := writeMediaFile(t, "b.mp4", "the very same bytes")
	idA := f.newTask(t, "lib", "a.mp4")
	idB := f.newTask(t, "lib", "b.mp4")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.pipeline.Run(context.Background(), idA, pathA)
	}()
	go func() {
		defer wg.Done()
		f.pipeline.Run(context.Background(), idB, pathB)
	}()
	wg.Wait()

	taskA, err := f.tasks.GetTask(context.Background(), idA)
	require.NoError(t, err)
	taskB, err := f.tasks.GetTask(context.Background(), idB)
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, taskA.Status)
	assert.Equal(t, core.StatusCompleted, taskB.Status)
	assert.Equal(t, 1, f.analyzer.UploadCount(), "exactly one slow path for identical content")

	entries, err := f.cache.ListEntries(context.Background(), time.Time{}, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "exactly one cache entry row")
}

func TestPipelineLeaderFailureTakeover(t *testing.T) {
	f := newPipelineFixture(t)

	// First upload is rejected terminally; the retry comes from the task
	// that takes over leadership, not from the failed leader.
	var mu sync.Mutex
	uploads := 0
	f.analyzer.UploadFunc = func(ctx context.Context, content io.Reader, name string) (string, error) {
		if _, err := io.Copy(io.Discard, content); err != nil {
			return "", ai.Transient(err)
		}
		mu.Lock()
		uploads++
		n := uploads
		mu.Unlock()
		if n == 1 {
			return "", ai.Terminal(errors.New("content rejected"))
		}
		return "analysis-retry", nil
	}
	f.analyzer.StatusFunc = func(ctx context.Context, externalID string) (ai.AnalysisState, error) {
		return ai.AnalysisState{Phase: ai.PhaseSucceeded, Percent: 100}, nil
	}
	f.analyzer.InsightsFunc = func(ctx context.Context, externalID string) (*ai.Insights, error) {
		return &ai.Insights{
			ExternalID: externalID,
			DurationMS: 10_000,
			Transcript: []ai.TranscriptSegment{
				{StartMS: 0, EndMS: 10_000, Text: "A short recording.", Speaker: "s1"},
			},
		}, nil
	}

	pathA := writeMediaFile(t, "a.mp4", "bytes the first upload rejects")
	pathB := writeMediaFile(t, "b.mp4", "bytes the first upload rejects")
	idA := f.newTask(t, "lib", "a.mp4")
	idB := f.newTask(t, "lib", "b.mp4")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.pipeline.Run(context.Background(), idA, pathA)
	}()
	go func() {
		defer wg.Done()
		f.pipeline.Run(context.Background(), idB, pathB)
	}()
	wg.Wait()

	taskA, err := f.tasks.GetTask(context.Background(), idA)
	require.NoError(t, err)
	taskB, err := f.tasks.GetTask(context.Background(), idB)
	require.NoError(t, err)

	// One task carries the rejection, the other completed after taking
	// over; neither may be turned away as if a live task held the content.
	statuses := []core.TaskStatus{taskA.Status, taskB.Status}
	assert.ElementsMatch(t, []core.TaskStatus{core.StatusFailed, core.StatusCompleted}, statuses)
	for _, task := range []*core.TaskRecord{taskA, taskB} {
		assert.NotContains(t, task.ErrorMessage, "already being processed")
		if task.Status == core.StatusFailed {
			assert.Contains(t, task.ErrorMessage, "content rejected")
		}
	}
	assert.Equal(t, 2, f.analyzer.UploadCount())

	completed := taskA
	if taskB.Status == core.StatusCompleted {
		completed = taskB
	}
	entry, err := f.cache.Lookup(context.Background(), completed.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, "analysis-retry", entry.ExternalID)
}

func TestPipelineAnalysisFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.analyzer.StatusFunc = func(ctx context.Context, externalID string) (ai.AnalysisState, error) {
		return ai.AnalysisState{Phase: ai.PhaseFailed, Message: "codec unsupported"}, nil
	}

	path := writeMediaFile(t, "broken.mp4", "unanalyzable bytes")
	id := f.newTask(t, "lib", "broken.mp4")
	f.pipeline.Run(context.Background(), id, path)

	task, err := f.tasks.GetTask(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, task.Status)
	assert.Contains(t, task.ErrorMessage, "codec unsupported")

	// A failed analysis must never produce a cache entry
	_, err = f.cache.Lookup(context.Background(), task.Fingerprint)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPipelineTerminalUploadErrorNotRetried(t *testing.T) {
	f := newPipelineFixture(t)
	uploads := 0
	f.analyzer.UploadFunc = func(ctx context.Context, content io.Reader, name string) (string, error) {
		uploads++
		return "", ai.Terminal(errors.New("content rejected"))
	}

	path := writeMediaFile(t, "rejected.mp4", "rejected bytes")
	id := f.newTask(t, "lib", "rejected.mp4")
	f.pipeline.Run(context.Background(), id, path)

	task, err := f.tasks.GetTask(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, task.Status)
	assert.Contains(t, task.ErrorMessage, "content rejected")
	assert.Equal(t, 1, uploads, "terminal rejection must not be retried")
}

func TestPipelineCancellationDuringAwait(t *testing.T) {
	f := newPipelineFixture(t)
	f.analyzer.SettleAfter = 1_000_000 // analysis never settles on its own

	path := writeMediaFile(t, "slow.mp4", "slow media bytes")
	id := f.newTask(t, "lib", "slow.mp4")

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.pipeline.Run(context.Background(), id, path)
	}()

	// Wait for the await step to begin
	require.Eventually(t, func() bool {
		task, err := f.tasks.GetTask(context.Background(), id)
		return err == nil && task.CurrentStep == string(StepAwaitAnalysis)
	}, 5*time.Second, 2*time.Millisecond)

	_, err := f.tasks.UpdateTask(context.Background(), id, func(t *core.TaskRecord) error {
		t.CancelRequested = true
		return nil
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not honor cancellation")
	}

	task, err := f.tasks.GetTask(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, task.Status)
	assert.Empty(t, task.ErrorMessage, "cancellation is not an error")
	assert.False(t, task.CompletedAt.IsZero())
}

func TestPipelineAwaitCeiling(t *testing.T) {
	f := newPipelineFixture(t, WithAwaitCeiling(15*time.Millisecond))
	f.analyzer.SettleAfter = 1_000_000

	path := writeMediaFile(t, "stuck.mp4", "stuck media bytes")
	id := f.newTask(t, "lib", "stuck.mp4")
	f.pipeline.Run(context.Background(), id, path)

	task, err := f.tasks.GetTask(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, task.Status)
	assert.Contains(t, task.ErrorMessage, "did not finish in time")
}

func TestPipelineUnreadableInput(t *testing.T) {
	f := newPipelineFixture(t)
	id := f.newTask(t, "lib", "missing.mp4")

	f.pipeline.Run(context.Background(), id, filepath.Join(t.TempDir(), "missing.mp4"))

	task, err := f.tasks.GetTask(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, task.Status)
	assert.NotEmpty(t, task.ErrorMessage)
	assert.Equal(t, 0, f.analyzer.UploadCount())
}

func TestPipelineProgressMonotonic(t *testing.T) {
	f := newPipelineFixture(t)
	f.analyzer.SettleAfter = 3

	path := writeMediaFile(t, "watched.mp4", "watched media bytes")
	id := f.newTask(t, "lib", "watched.mp4")

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.pipeline.Run(context.Background(), id, path)
	}()

	last := -1
	for {
		select {
		case <-done:
			task, err := f.tasks.GetTask(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, 100, task.Progress)
			return
		default:
			task, err := f.tasks.GetTask(context.Background(), id)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, task.Progress, last, "progress must never decrease")
			last = task.Progress
			time.Sleep(time.Millisecond)
		}
	}
}
