// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Analyzer, ai.Embedder,
// ai.Tagger, and ai.Provider for use in unit tests. The mocks allow tests to
// run without external AI service dependencies and enable controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	externalID, err := mockProvider.Analyzer().Upload(ctx, content, "clip.mp4")
//
//	// Custom behavior injection
//	mockAnalyzer := mock.NewMockAnalyzer()
//	mockAnalyzer.StatusFunc = func(ctx context.Context, id string) (ai.AnalysisState, error) {
//	    return ai.AnalysisState{Phase: ai.PhaseFailed, Message: "codec unsupported"}, nil
//	}
//
//	// Check call counts
//	count := mockAnalyzer.UploadCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockAnalyzer: Acknowledges uploads, settles as succeeded after
//     SettleAfter status polls, and returns canned insights
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockTagger: Returns the most frequent long words as tags
//   - MockProvider: Aggregates the three mock services
package mock
