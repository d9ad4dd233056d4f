package ai

import "time"

// Analysis phases as reported by the remote service. Uploaded content moves
// through queued and processing before settling as succeeded or failed.
const (
	PhaseQueued     = "queued"
	PhaseProcessing = "processing"
	PhaseSucceeded  = "succeeded"
	PhaseFailed     = "failed"
)

// AnalysisState is a point-in-time snapshot of a remote analysis.
type AnalysisState struct {
	// Phase is one of the Phase* constants.
	Phase string

	// Percent is the remote service's own completion estimate, 0-100.
	// Not all services report it; zero means unknown.
	Percent int

	// Message carries the failure reason when Phase is PhaseFailed.
	Message string
}

// Settled reports whether the analysis has reached a final phase.
func (s AnalysisState) Settled() bool {
	return s.Phase == PhaseSucceeded || s.Phase == PhaseFailed
}

// TranscriptSegment is a time-aligned span of spoken content.
type TranscriptSegment struct {
	// StartMS and EndMS bound the segment in milliseconds from the start
	// of the media.
	StartMS int64
	EndMS   int64

	// Text is the transcribed speech for the span.
	Text string

	// Speaker labels who is talking, when the service identifies one.
	Speaker string
}

// VisualTag is a label the analysis service attached to a span of the
// media, such as a detected object, scene, or on-screen text.
type VisualTag struct {
	StartMS int64
	EndMS   int64
	Label   string

	// Confidence is the service's score for the label, 0.0-1.0.
	Confidence float64
}

// Insights is the structured output of a finished analysis.
type Insights struct {
	// ExternalID identifies the analysis this output came from.
	ExternalID string

	// DurationMS is the total media duration in milliseconds.
	DurationMS int64

	// Transcript holds the time-aligned speech segments in order.
	Transcript []TranscriptSegment

	// VisualTags holds labels attached to spans of the media.
	VisualTags []VisualTag

	// Metadata carries service-specific source attributes (resolution,
	// language, model version) preserved for citation.
	Metadata map[string]string

	// CompletedAt is when the remote analysis finished.
	CompletedAt time.Time
}
