package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// MockTagger is a test double for ai.Tagger.
// It allows custom behavior injection via function fields.
type MockTagger struct {
	// ExtractTagsFunc is called by ExtractTags if set.
	// If nil, uses default deterministic behavior.
	ExtractTagsFunc func(ctx context.Context, text string) ([]string, error)

	mu        sync.Mutex
	callCount int
}

// NewMockTagger creates a mock tagger with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via call counts.
func NewMockTagger() *MockTagger {
	return &MockTagger{}
}

// ExtractTags returns the most frequent long words of the text as tags.
// The same text always produces the same tags.
func (m *MockTagger) ExtractTags(ctx context.Context, text string) ([]string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ExtractTagsFunc != nil {
		return m.ExtractTagsFunc(ctx, text)
	}

	counts := make(map[string]int)
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		word = strings.ToLower(word)
		if len(word) >= 5 {
			counts[word]++
		}
	}

	tags := make([]string, 0, len(counts))
	for word := range counts {
		tags = append(tags, word)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > 5 {
		tags = tags[:5]
	}
	return tags, nil
}

// CallCount returns the number of times ExtractTags was called.
func (m *MockTagger) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and any injected behavior.
func (m *MockTagger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractTagsFunc = nil
}
