package mock

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/mediamind/ai"
)

// MockAnalyzer is a test double for ai.Analyzer.
// By default an upload is acknowledged immediately and the analysis settles
// as succeeded after SettleAfter further Status calls, returning canned
// insights with a short transcript. Custom behavior can be injected via the
// function fields.
type MockAnalyzer struct {
	// UploadFunc is called by Upload if set.
	UploadFunc func(ctx context.Context, content io.Reader, name string) (string, error)

	// StatusFunc is called by Status if set.
	StatusFunc func(ctx context.Context, externalID string) (ai.AnalysisState, error)

	// InsightsFunc is called by Insights if set.
	InsightsFunc func(ctx context.Context, externalID string) (*ai.Insights, error)

	// SettleAfter is the number of Status calls per external ID before the
	// default behavior reports the analysis as succeeded. Zero settles on
	// the first call.
	SettleAfter int

	mu          sync.Mutex
	uploadCount int
	statusCount int
	uploads     map[string]string // externalID -> name
	statusCalls map[string]int
}

// NewMockAnalyzer creates a mock analyzer with default behavior.
// Note: Returns concrete type to allow test assertions via call counts.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{
		uploads:     make(map[string]string),
		statusCalls: make(map[string]int),
	}
}

// Upload records the upload and returns a generated external identifier.
func (m *MockAnalyzer) Upload(ctx context.Context, content io.Reader, name string) (string, error) {
	m.mu.Lock()
	m.uploadCount++
	n := m.uploadCount
	m.mu.Unlock()

	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, content, name)
	}

	// Drain the reader like a real client would.
	if _, err := io.Copy(io.Discard, content); err != nil {
		return "", ai.Transient(fmt.Errorf("reading content: %w", err))
	}

	externalID := fmt.Sprintf("mock-analysis-%04d", n)
	m.mu.Lock()
	m.uploads[externalID] = name
	m.mu.Unlock()
	return externalID, nil
}

// Status reports processing until SettleAfter calls have been made for the
// external ID, then succeeded.
func (m *MockAnalyzer) Status(ctx context.Context, externalID string) (ai.AnalysisState, error) {
	m.mu.Lock()
	m.statusCount++
	m.statusCalls[externalID]++
	calls := m.statusCalls[externalID]
	_, known := m.uploads[externalID]
	m.mu.Unlock()

	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, externalID)
	}

	if !known {
		return ai.AnalysisState{}, ai.Terminal(fmt.Errorf("%w: %s", ai.ErrAnalysisNotFound, externalID))
	}
	if calls <= m.SettleAfter {
		return ai.AnalysisState{Phase: ai.PhaseProcessing, Percent: 100 * calls / (m.SettleAfter + 1)}, nil
	}
	return ai.AnalysisState{Phase: ai.PhaseSucceeded, Percent: 100}, nil
}

// Insights returns canned insights with a short transcript and one visual tag.
func (m *MockAnalyzer) Insights(ctx context.Context, externalID string) (*ai.Insights, error) {
	if m.InsightsFunc != nil {
		return m.InsightsFunc(ctx, externalID)
	}

	m.mu.Lock()
	name, known := m.uploads[externalID]
	m.mu.Unlock()
	if !known {
		return nil, ai.Terminal(fmt.Errorf("%w: %s", ai.ErrAnalysisNotFound, externalID))
	}

	return &ai.Insights{
		ExternalID: externalID,
		DurationMS: 60_000,
		Transcript: []ai.TranscriptSegment{
			{StartMS: 0, EndMS: 30_000, Text: "Welcome to the recording " + name + ".", Speaker: "speaker-1"},
			{StartMS: 30_000, EndMS: 60_000, Text: "That concludes the recording.", Speaker: "speaker-1"},
		},
		VisualTags: []ai.VisualTag{
			{StartMS: 0, EndMS: 60_000, Label: "person", Confidence: 0.98},
		},
		Metadata: map[string]string{
			"source":   name,
			"language": "en",
		},
		CompletedAt: time.Now().UTC(),
	}, nil
}

// UploadCount returns the number of Upload calls made.
func (m *MockAnalyzer) UploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploadCount
}

// StatusCount returns the number of Status calls made.
func (m *MockAnalyzer) StatusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCount
}

// Reset clears recorded calls and any injected behavior.
func (m *MockAnalyzer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadCount = 0
	m.statusCount = 0
	m.uploads = make(map[string]string)
	m.statusCalls = make(map[string]int)
	m.UploadFunc = nil
	m.StatusFunc = nil
	m.InsightsFunc = nil
}
