package ai

import (
	"context"
	"io"
)

// Analyzer is the remote media analysis service. An upload is acknowledged
// with an external identifier; the analysis itself runs remotely for
// minutes and is observed by polling Status until it settles.
// Implementations must be thread-safe for concurrent use, and must classify
// their failures with Transient or Terminal so callers can decide whether
// to retry.
type Analyzer interface {
	// Upload sends content to the analysis service and returns the
	// external identifier under which the analysis runs.
	Upload(ctx context.Context, content io.Reader, name string) (string, error)

	// Status reports how far the remote analysis has progressed.
	Status(ctx context.Context, externalID string) (AnalysisState, error)

	// Insights retrieves the structured analysis output (transcript,
	// visual tags, source metadata) for a finished analysis.
	Insights(ctx context.Context, externalID string) (*Insights, error)
}

// Embedder generates vector embeddings from text for semantic indexing.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in
	// a batch. The returned slice contains embeddings in the same order as
	// the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Tagger derives semantic topic tags from transcript text. Tagging is an
// optional enrichment of fetched insights; pipelines run without one.
// Implementations must be thread-safe for concurrent use.
type Tagger interface {
	// ExtractTags analyzes text and returns topic tags ordered by
	// relevance. Returns an empty slice if nothing stands out.
	ExtractTags(ctx context.Context, text string) ([]string, error)
}

// Provider aggregates the AI collaborators for convenient initialization
// and lifecycle management.
type Provider interface {
	// Analyzer returns the remote media analysis client.
	Analyzer() Analyzer

	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Tagger returns the tag extraction service, or nil when tag
	// enrichment is not configured.
	Tagger() Tagger

	// Close releases resources held by the provider and its services.
	Close() error
}
