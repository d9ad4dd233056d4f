package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/mediamind/ai"
	"github.com/poiesic/mediamind/core"
	"github.com/poiesic/mediamind/storage"
)

// Pipeline executes the ingestion state machine for one task at a time:
// fingerprint, cache check, then either the slow plan (upload, await remote
// analysis) or the fast plan (reuse a prior analysis), followed by fetch,
// chunk, embed, and store. Progress and current step are written to the
// task record at every boundary so callers polling status always see where
// a task is. The cancel flag is checked cooperatively at the same
// boundaries.
type Pipeline struct {
	tasks    storage.TaskRepository
	cache    storage.AnalysisCache
	index    storage.IndexRepository
	provider ai.Provider
	chunker  *Chunker
	inflight *inflightTable

	retry        RetryPolicy
	pollInterval time.Duration
	awaitCeiling time.Duration
	logger       *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline) error

// WithRetryPolicy overrides the retry policy for external calls.
func WithRetryPolicy(policy RetryPolicy) PipelineOption {
	return func(p *Pipeline) error {
		if policy.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.retry = policy
		return nil
	}
}

// WithPollInterval sets how often the await step polls the remote analysis.
// Default is 10 seconds.
func WithPollInterval(interval time.Duration) PipelineOption {
	return func(p *Pipeline) error {
		if interval > 0 {
			p.pollInterval = interval
		}
		return nil
	}
}

// WithAwaitCeiling sets the overall time limit for the await step, after
// which the task fails rather than polling forever. Default is 45 minutes.
func WithAwaitCeiling(ceiling time.Duration) PipelineOption {
	return func(p *Pipeline) error {
		if ceiling > 0 {
			p.awaitCeiling = ceiling
		}
		return nil
	}
}

// WithChunkTokens sets the token budget per chunk.
func WithChunkTokens(maxTokens int) PipelineOption {
	return func(p *Pipeline) error {
		chunker, err := NewChunker(maxTokens)
		if err != nil {
			return err
		}
		p.chunker = chunker
		return nil
	}
}

// WithPipelineLogger sets a custom logger. Default is slog.Default().
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline over the given collaborators.
func NewPipeline(
	tasks storage.TaskRepository,
	cache storage.AnalysisCache,
	index storage.IndexRepository,
	provider ai.Provider,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if tasks == nil {
		return nil, ErrTaskRepositoryRequired
	}
	if cache == nil {
		return nil, ErrAnalysisCacheRequired
	}
	if index == nil {
		return nil, ErrIndexRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	chunker, err := NewChunker(defaultChunkTokens)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		tasks:        tasks,
		cache:        cache,
		index:        index,
		provider:     provider,
		chunker:      chunker,
		inflight:     newInflightTable(),
		retry:        DefaultRetryPolicy(),
		pollInterval: 10 * time.Second,
		awaitCeiling: 45 * time.Minute,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			return nil, optErr
		}
	}
	return p, nil
}

// runState carries the identifiers discovered while executing a task, so
// the final record update can persist them regardless of which path ran.
type runState struct {
	fp         core.Fingerprint
	externalID string
	plan       string

	// release publishes a held leadership slot, set only for the leader.
	release func(err error)
}

// Run executes the whole lifecycle of one task and writes the terminal
// state to the task record. It never returns pipeline errors to the caller;
// failures surface through the record's status and error message.
func (p *Pipeline) Run(ctx context.Context, id core.TaskID, path string) {
	st := &runState{}
	err := p.execute(ctx, id, path, st)
	p.finish(ctx, id, st, err)

	// Leadership is released only after the terminal record is durable:
	// a follower taking over must see the previous leader terminal, or its
	// own active-content claim would be rejected as a duplicate.
	if st.release != nil {
		st.release(err)
	}
}

// execute runs the task to the point just before its terminal update.
func (p *Pipeline) execute(ctx context.Context, id core.TaskID, path string, st *runState) error {
	task, err := p.tasks.GetTask(ctx, id)
	if err != nil {
		return err
	}
	library := task.Library

	if err := p.transition(ctx, id, StepFingerprint, 0, func(t *core.TaskRecord) {
		t.Status = core.StatusProcessing
		if t.StartedAt.IsZero() {
			t.StartedAt = time.Now().UTC()
		}
	}); err != nil {
		return err
	}

	fp, err := core.FingerprintFile(path)
	if err != nil {
		// Unreadable input is not retryable
		return err
	}
	st.fp = fp

	// Content identity is only knowable now; this is where concurrent
	// submissions of identical bytes converge. The first task through
	// becomes the leader and runs the pipeline, later ones wait on its
	// outcome. A failed leader hands leadership to the next waiter.
	for {
		run, leader := p.inflight.acquire(library, fp)
		if leader {
			st.release = func(err error) { p.inflight.release(library, fp, err) }
			return p.lead(ctx, id, library, path, fp, st)
		}

		if err := p.follow(ctx, id, run); err != nil {
			return err
		}
		if run.err == nil {
			return p.adopt(ctx, id, fp, st)
		}
		p.logger.Debug("leader failed, taking over", "task", id, "fingerprint", fp)
	}
}

// lead runs the pipeline as the sole executor for this content.
func (p *Pipeline) lead(ctx context.Context, id core.TaskID, library, path string, fp core.Fingerprint, st *runState) error {
	// Claim the durable single-writer slot for (library, fingerprint).
	if err := p.transition(ctx, id, StepCacheCheck, 5, func(t *core.TaskRecord) {
		t.Fingerprint = fp
	}); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("content is already being processed by another task: %w", err)
		}
		return err
	}

	entry, err := p.cache.Lookup(ctx, fp)
	switch {
	case err == nil:
		// Fast path: the expensive remote analysis already happened.
		st.plan = "fast"
		st.externalID = entry.ExternalID
		if err := p.cache.Touch(ctx, fp); err != nil {
			p.logger.Warn("failed to touch cache entry", "fingerprint", fp, "err", err)
		}
		p.logger.Info("duplicate content, reusing analysis",
			"task", id, "fingerprint", fp, "analysis_id", entry.ExternalID)
		return p.runPlan(ctx, id, library, path, fp, FastPlan(), st)
	case errors.Is(err, storage.ErrNotFound):
		st.plan = "slow"
		return p.runPlan(ctx, id, library, path, fp, SlowPlan(), st)
	default:
		return err
	}
}

// runPlan executes the steps of the selected plan in order, checking the
// cancel flag at every step boundary.
func (p *Pipeline) runPlan(ctx context.Context, id core.TaskID, library, path string, fp core.Fingerprint, plan Plan, st *runState) error {
	var insights *ai.Insights
	var chunks []*core.Chunk

	for _, ps := range plan.steps {
		// Entering the step: cancel check plus visible current step.
		if err := p.transition(ctx, id, ps.step, 0, nil); err != nil {
			return err
		}

		var err error
		switch ps.step {
		case StepUpload:
			err = p.upload(ctx, id, path, st)
		case StepAwaitAnalysis:
			err = p.await(ctx, id, fp, st)
		case StepFetchInsights:
			insights, err = p.fetchInsights(ctx, st.externalID)
		case StepChunk:
			chunks, err = p.chunker.Chunk(library, fp, insights)
		case StepEmbed:
			err = p.embed(ctx, chunks)
		case StepStore:
			err = p.store(ctx, chunks)
		}
		if err != nil {
			return err
		}

		if err := p.transition(ctx, id, ps.step, ps.done, nil); err != nil {
			return err
		}
	}
	return nil
}

// upload sends the content to the analysis service under the retry policy.
// The file is reopened per attempt since a failed upload consumes the
// reader.
func (p *Pipeline) upload(ctx context.Context, id core.TaskID, path string, st *runState) error {
	err := p.retry.Execute(ctx, string(StepUpload), func(ctx context.Context) error {
		file, err := os.Open(path)
		if err != nil {
			return ai.Terminal(fmt.Errorf("%w: %v", core.ErrContentUnreadable, err))
		}
		defer file.Close()

		externalID, err := p.provider.Analyzer().Upload(ctx, file, filepath.Base(path))
		if err != nil {
			return err
		}
		st.externalID = externalID
		return nil
	})
	if err != nil {
		return err
	}

	return p.transition(ctx, id, StepUpload, 0, func(t *core.TaskRecord) {
		t.ExternalID = st.externalID
	})
}

// await polls the remote analysis until it settles, the ceiling passes, or
// cancellation is requested. Progress advances with the remote completion
// estimate so a minutes-long wait never looks stalled.
func (p *Pipeline) await(ctx context.Context, id core.TaskID, fp core.Fingerprint, st *runState) error {
	deadline := time.Now().Add(p.awaitCeiling)

	for {
		var state ai.AnalysisState
		err := p.retry.Execute(ctx, string(StepAwaitAnalysis), func(ctx context.Context) error {
			var err error
			state, err = p.provider.Analyzer().Status(ctx, st.externalID)
			return err
		})
		if err != nil {
			return err
		}

		switch state.Phase {
		case ai.PhaseFailed:
			msg := state.Message
			if msg == "" {
				msg = "no failure detail reported"
			}
			return fmt.Errorf("%w: %s", ai.ErrAnalysisFailed, msg)
		case ai.PhaseSucceeded:
			return p.recordAnalysis(ctx, fp, st)
		}

		// Map the remote estimate into this step's progress band (25-60)
		progress := 25 + state.Percent*35/100
		if err := p.transition(ctx, id, StepAwaitAnalysis, progress, nil); err != nil {
			return err
		}

		if time.Now().After(deadline) {
			return &PermanentError{Step: string(StepAwaitAnalysis), Attempts: 1, Err: ErrAnalysisTimeout}
		}

		timer := time.NewTimer(p.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// recordAnalysis writes the exactly-once cache entry for a finished remote
// analysis. A concurrent writer winning the race is benign.
func (p *Pipeline) recordAnalysis(ctx context.Context, fp core.Fingerprint, st *runState) error {
	err := p.cache.Store(ctx, &core.AnalysisEntry{
		Fingerprint: fp,
		ExternalID:  st.externalID,
		Metadata:    map[string]string{"analysis_id": st.externalID},
	})
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return err
	}
	return nil
}

// fetchInsights retrieves the structured analysis output under the retry
// policy.
func (p *Pipeline) fetchInsights(ctx context.Context, externalID string) (*ai.Insights, error) {
	var insights *ai.Insights
	err := p.retry.Execute(ctx, string(StepFetchInsights), func(ctx context.Context) error {
		var err error
		insights, err = p.provider.Analyzer().Insights(ctx, externalID)
		return err
	})
	return insights, err
}

// embed generates vectors for all chunks in one batch, optionally enriching
// chunk tags with LLM-extracted topics first. Tag enrichment is best
// effort; its failure never fails the task.
func (p *Pipeline) embed(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	p.enrichTags(ctx, chunks)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	return p.retry.Execute(ctx, string(StepEmbed), func(ctx context.Context) error {
		vectors, err := p.provider.Embedder().EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(chunks) {
			return ai.Transient(fmt.Errorf("%w: got %d embeddings for %d chunks",
				ai.ErrInvalidResponse, len(vectors), len(chunks)))
		}
		for i, chunk := range chunks {
			chunk.Vector = vectors[i]
		}
		return nil
	})
}

// enrichTags asks the tagger for topics of the full transcript and merges
// them into every chunk's tags.
func (p *Pipeline) enrichTags(ctx context.Context, chunks []*core.Chunk) {
	tagger := p.provider.Tagger()
	if tagger == nil {
		return
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	tags, err := tagger.ExtractTags(ctx, strings.Join(texts, " "))
	if err != nil {
		p.logger.Warn("tag extraction failed, continuing without topics", "err", err)
		return
	}
	if len(tags) == 0 {
		return
	}

	for _, chunk := range chunks {
		seen := make(map[string]bool, len(chunk.Tags))
		for _, t := range chunk.Tags {
			seen[t] = true
		}
		for _, t := range tags {
			if !seen[t] {
				chunk.Tags = append(chunk.Tags, t)
			}
		}
	}
}

// store upserts the chunks by their deterministic keys; a retried store
// after partial completion overwrites rather than duplicates.
func (p *Pipeline) store(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return p.retry.Execute(ctx, string(StepStore), func(ctx context.Context) error {
		return p.index.UpsertChunks(ctx, chunks...)
	})
}

// follow waits for the leader's outcome, still honoring cancellation of
// this task while waiting.
func (p *Pipeline) follow(ctx context.Context, id core.TaskID, run *inflightRun) error {
	if err := p.transition(ctx, id, StepJoin, 10, nil); err != nil {
		return err
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-run.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Surface a requested cancel without waiting for the leader
			if err := p.transition(ctx, id, StepJoin, 0, nil); err != nil {
				return err
			}
		}
	}
}

// adopt completes a follower task from the leader's published results.
func (p *Pipeline) adopt(ctx context.Context, id core.TaskID, fp core.Fingerprint, st *runState) error {
	st.plan = "join"

	entry, err := p.cache.Lookup(ctx, fp)
	if err == nil {
		st.externalID = entry.ExternalID
		if err := p.cache.Touch(ctx, fp); err != nil {
			p.logger.Warn("failed to touch cache entry", "fingerprint", fp, "err", err)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	p.logger.Info("joined completed ingestion of identical content", "task", id, "fingerprint", fp)
	return nil
}

// transition applies a step boundary update: it checks the cancel flag,
// records the current step, and raises progress (never lowering it). A
// progress of 0 leaves the stored value untouched.
func (p *Pipeline) transition(ctx context.Context, id core.TaskID, step Step, progress int, extra func(*core.TaskRecord)) error {
	_, err := p.tasks.UpdateTask(ctx, id, func(t *core.TaskRecord) error {
		if t.CancelRequested {
			return ErrCancelRequested
		}
		t.Status = core.StatusProcessing
		t.CurrentStep = string(step)
		if progress > t.Progress {
			t.Progress = progress
		}
		if extra != nil {
			extra(t)
		}
		return nil
	})
	return err
}

// finish writes the terminal state for the task. Cancellation (whether via
// the cancel flag or a dead context) becomes Cancelled; anything else
// non-nil becomes Failed with a human-readable message. Raw collaborator
// errors never reach the caller in any other form.
func (p *Pipeline) finish(ctx context.Context, id core.TaskID, st *runState, runErr error) {
	// The terminal update must land even when the run context is dead.
	updateCtx := context.WithoutCancel(ctx)

	_, err := p.tasks.UpdateTask(updateCtx, id, func(t *core.TaskRecord) error {
		if st.fp != "" && t.Fingerprint == "" {
			t.Fingerprint = st.fp
		}
		if st.externalID != "" && t.ExternalID == "" {
			t.ExternalID = st.externalID
		}

		switch {
		case runErr == nil:
			t.Status = core.StatusCompleted
			t.Progress = 100
			t.CurrentStep = "completed"
		case errors.Is(runErr, ErrCancelRequested) || errors.Is(runErr, context.Canceled):
			t.Status = core.StatusCancelled
			t.CurrentStep = "cancelled"
		default:
			t.Status = core.StatusFailed
			t.CurrentStep = "failed"
			t.ErrorMessage = runErr.Error()
		}
		t.CompletedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		p.logger.Error("failed to record terminal task state", "task", id, "err", err)
		return
	}

	switch {
	case runErr == nil:
		p.logger.Info("task completed", "task", id, "plan", st.plan)
	case errors.Is(runErr, ErrCancelRequested) || errors.Is(runErr, context.Canceled):
		p.logger.Info("task cancelled", "task", id)
	default:
		p.logger.Error("task failed", "task", id, "err", runErr)
	}
}
