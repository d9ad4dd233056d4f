package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/poiesic/mediamind/ai"
	"github.com/poiesic/mediamind/core"
)

const (
	// chunkEncoding is the tokenizer used to bound chunk sizes. It matches
	// the tokenization of the OpenAI-compatible embedding models.
	chunkEncoding = "cl100k_base"

	// defaultChunkTokens is the token budget per chunk.
	defaultChunkTokens = 320
)

// Chunker splits analysis insights into bounded-size, time-addressable
// segments suitable for embedding. Chunking is deterministic: identical
// insights always produce identical chunks with identical keys, which is
// what makes the index store step idempotent under retry.
type Chunker struct {
	encoder   *tiktoken.Tiktoken
	maxTokens int
}

// NewChunker creates a chunker with the given token budget per chunk.
// A non-positive budget selects the default.
func NewChunker(maxTokens int) (*Chunker, error) {
	if maxTokens <= 0 {
		maxTokens = defaultChunkTokens
	}
	encoder, err := tiktoken.GetEncoding(chunkEncoding)
	if err != nil {
		return nil, err
	}
	return &Chunker{
		encoder:   encoder,
		maxTokens: maxTokens,
	}, nil
}

// Chunk merges consecutive transcript segments into chunks of at most the
// token budget. A single segment larger than the budget becomes its own
// chunk rather than being split mid-sentence. Visual tags overlapping a
// chunk's time range are attached as tags; source metadata is carried as
// citation on every chunk.
func (c *Chunker) Chunk(library string, fp core.Fingerprint, insights *ai.Insights) ([]*core.Chunk, error) {
	var chunks []*core.Chunk

	var (
		texts   []string
		tokens  int
		startMS int64
		endMS   int64
	)

	flush := func() {
		if len(texts) == 0 {
			return
		}
		seq := len(chunks)
		chunks = append(chunks, &core.Chunk{
			Key:         core.ChunkKey(fp, seq),
			Library:     library,
			Fingerprint: fp,
			Seq:         seq,
			StartMS:     startMS,
			EndMS:       endMS,
			Text:        strings.Join(texts, " "),
			Tags:        overlappingLabels(insights.VisualTags, startMS, endMS),
			Citation:    buildCitation(insights, startMS, endMS),
		})
		texts = nil
		tokens = 0
	}

	for _, segment := range insights.Transcript {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		segTokens := len(c.encoder.Encode(text, nil, nil))

		if len(texts) > 0 && tokens+segTokens > c.maxTokens {
			flush()
		}
		if len(texts) == 0 {
			startMS = segment.StartMS
		}
		texts = append(texts, text)
		tokens += segTokens
		endMS = segment.EndMS

		if tokens >= c.maxTokens {
			flush()
		}
	}
	flush()

	return chunks, nil
}

// overlappingLabels returns the deduplicated labels of visual tags whose
// time range overlaps [startMS, endMS), in first-appearance order.
func overlappingLabels(tags []ai.VisualTag, startMS, endMS int64) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, tag := range tags {
		if tag.EndMS <= startMS || tag.StartMS >= endMS {
			continue
		}
		if seen[tag.Label] {
			continue
		}
		seen[tag.Label] = true
		labels = append(labels, tag.Label)
	}
	return labels
}

// buildCitation assembles the source attribution carried into the index.
func buildCitation(insights *ai.Insights, startMS, endMS int64) map[string]string {
	citation := map[string]string{
		"analysis_id": insights.ExternalID,
		"start":       formatTimecode(startMS),
		"end":         formatTimecode(endMS),
	}
	for k, v := range insights.Metadata {
		citation[k] = v
	}
	return citation
}

// formatTimecode renders milliseconds as h:mm:ss.
func formatTimecode(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int64(d.Hours())
	m := int64(d.Minutes()) % 60
	s := int64(d.Seconds()) % 60
	return strconv.FormatInt(h, 10) + ":" + pad2(m) + ":" + pad2(s)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
