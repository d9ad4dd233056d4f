package ingest

// Step names one pipeline stage. The name is written to the task record's
// CurrentStep field so callers polling status can see where a task is.
type Step string

const (
	StepFingerprint   Step = "fingerprint"
	StepCacheCheck    Step = "cache-check"
	StepUpload        Step = "upload"
	StepAwaitAnalysis Step = "await-analysis"
	StepFetchInsights Step = "fetch-insights"
	StepChunk         Step = "chunk"
	StepEmbed         Step = "embed"
	StepStore         Step = "store"
	StepJoin          Step = "join"
)

// planStep pairs a step with the progress value reported once it completes.
type planStep struct {
	step Step
	done int // progress after the step completes
}

// Plan is the ordered step sequence selected for a task. The selection
// happens exactly once, at cache check: a hit yields the fast plan, a miss
// the slow plan. Keeping the two as explicit plans rather than branching
// inside a monolithic run function makes the asymmetry visible in status
// output and in tests.
type Plan struct {
	Name  string
	steps []planStep
}

// SlowPlan is the full pipeline for first-seen content.
func SlowPlan() Plan {
	return Plan{
		Name: "slow",
		steps: []planStep{
			{StepUpload, 25},
			{StepAwaitAnalysis, 60},
			{StepFetchInsights, 70},
			{StepChunk, 75},
			{StepEmbed, 90},
			{StepStore, 95},
		},
	}
}

// FastPlan reuses a prior analysis: no upload, no waiting on the remote
// service, straight to fetching insights and rebuilding the index.
func FastPlan() Plan {
	return Plan{
		Name: "fast",
		steps: []planStep{
			{StepFetchInsights, 70},
			{StepChunk, 75},
			{StepEmbed, 90},
			{StepStore, 95},
		},
	}
}
