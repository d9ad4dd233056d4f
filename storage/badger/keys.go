package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/mediamind/core"
)

// Key prefixes for different data types
const (
	taskRecordPrefix   = "tskrec"
	taskCreatedPrefix  = "tskcrd"
	taskTerminalPrefix = "tsktrm"
	taskActivePrefix   = "tskact"
	analysisPrefix     = "anarec"
	analysisSeenPrefix = "anafsn"
	chunkRecordPrefix  = "chkrec"
	sweepMarkKeyName   = "swpmrk"
)

// makeTaskKey generates a key for a task record by ID.
func makeTaskKey(id core.TaskID) []byte {
	return []byte(fmt.Sprintf("%s:%s", taskRecordPrefix, id))
}

// makeTimeIndexKey generates a composite key of the form prefix:timestamp:id.
// The timestamp is written in BigEndian order so lexicographic sort works
// correctly; the variable-length ID suffix only breaks ties.
func makeTimeIndexKey(prefix string, ts time.Time, id core.TaskID) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8+len(id))
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ts.UnixMicro()))
	offset += 8
	copy(buf[offset:], []byte(id))
	return buf
}

// makePartialTimeIndexKey generates a partial key for time range queries.
func makePartialTimeIndexKey(prefix string, ts time.Time) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ts.UnixMicro()))
	return buf
}

// makeTaskActiveKey generates the key tracking the single permitted
// non-terminal task for a (library, fingerprint) pair.
func makeTaskActiveKey(library string, fp core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", taskActivePrefix, library, fp))
}

// makeAnalysisKey generates a key for a cache entry by fingerprint.
func makeAnalysisKey(fp core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s", analysisPrefix, fp))
}

// makeAnalysisSeenKey generates the first-seen index key for a cache entry.
func makeAnalysisSeenKey(ts time.Time, fp core.Fingerprint) []byte {
	prefixBytes := []byte(analysisSeenPrefix + ":")
	buf := make([]byte, len(prefixBytes)+8+len(fp))
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ts.UnixMicro()))
	offset += 8
	copy(buf[offset:], []byte(fp))
	return buf
}

// makeChunkKey generates a key for a chunk record. Chunk keys already embed
// the fingerprint and a zero-padded sequence number, so a prefix scan over
// (library, fingerprint) yields chunks in segment order.
func makeChunkKey(library, chunkKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", chunkRecordPrefix, library, chunkKey))
}

// makeChunkContentPrefix generates the scan prefix for all chunks of one
// content fingerprint within a library.
func makeChunkContentPrefix(library string, fp core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", chunkRecordPrefix, library, fp))
}

// makeSweepMarkKey generates the key for the retention sweep marker.
func makeSweepMarkKey() []byte {
	return []byte(sweepMarkKeyName)
}
