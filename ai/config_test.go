package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:9400", cfg.AnalyzerHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.TaggerHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.TaggerModel)
	assert.Equal(t, 8, cfg.MaxTags)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:9400", cfg.AnalyzerHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, 8, cfg.MaxTags)
	})

	t.Run("with analyzer host and key", func(t *testing.T) {
		cfg := NewConfig(
			WithAnalyzerHost("https://analysis.example.com"),
			WithAnalyzerAPIKey("secret"),
		)

		assert.Equal(t, "https://analysis.example.com", cfg.AnalyzerHost)
		assert.Equal(t, "secret", cfg.AnalyzerAPIKey)
	})

	t.Run("with shared language host", func(t *testing.T) {
		cfg := NewConfig(WithLanguageHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.TaggerHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithTaggerHost("http://tag:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://tag:9090/v1", cfg.TaggerHost)
	})

	t.Run("with custom models", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithTaggerModel("gpt-4o-mini"),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.TaggerModel)
	})

	t.Run("with custom max tags", func(t *testing.T) {
		cfg := NewConfig(WithMaxTags(4))

		assert.Equal(t, 4, cfg.MaxTags)
	})
}

func TestConfigNormalize(t *testing.T) {
	t.Run("adds v1 suffix to language hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080"),
			WithTaggerHost("http://tag:9090/"),
		)
		cfg.Normalize()

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://tag:9090/v1", cfg.TaggerHost)
	})

	t.Run("leaves v1 suffix alone", func(t *testing.T) {
		cfg := NewConfig(WithLanguageHost("http://custom:8080/v1"))
		cfg.Normalize()

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
	})

	t.Run("strips trailing slash from analyzer host", func(t *testing.T) {
		cfg := NewConfig(WithAnalyzerHost("https://analysis.example.com/"))
		cfg.Normalize()

		assert.Equal(t, "https://analysis.example.com", cfg.AnalyzerHost)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("missing analyzer host", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.AnalyzerHost = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing embedding model", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EmbeddingModel = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("max tags out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxTags = 0
		assert.Error(t, cfg.Validate())

		cfg = DefaultConfig()
		cfg.MaxTags = 100
		assert.Error(t, cfg.Validate())
	})
}

func TestErrorClassification(t *testing.T) {
	t.Run("transient wraps and reports", func(t *testing.T) {
		err := Transient(assert.AnError)
		assert.True(t, IsTransient(err))
		assert.False(t, IsTerminal(err))
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("terminal wraps and reports", func(t *testing.T) {
		err := Terminal(assert.AnError)
		assert.True(t, IsTerminal(err))
		assert.False(t, IsTransient(err))
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("nil passthrough", func(t *testing.T) {
		assert.NoError(t, Transient(nil))
		assert.NoError(t, Terminal(nil))
	})

	t.Run("plain errors are unclassified", func(t *testing.T) {
		assert.False(t, IsTransient(assert.AnError))
		assert.False(t, IsTerminal(assert.AnError))
	})
}
