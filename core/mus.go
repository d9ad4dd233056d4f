// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted record types. Timestamps are stored as
// Unix microseconds, with 0 reserved for the zero time.

// TaskRecordMUS serializes TaskRecord values.
var TaskRecordMUS = taskRecordMUS{}

// AnalysisEntryMUS serializes AnalysisEntry values.
var AnalysisEntryMUS = analysisEntryMUS{}

// ChunkMUS serializes Chunk values.
var ChunkMUS = chunkMUS{}

type taskRecordMUS struct{}

func (taskRecordMUS) Marshal(t TaskRecord, bs []byte) (n int) {
	n = ord.String.Marshal(string(t.ID), bs)
	n += ord.String.Marshal(t.Library, bs[n:])
	n += ord.String.Marshal(t.Filename, bs[n:])
	n += ord.String.Marshal(string(t.Fingerprint), bs[n:])
	n += ord.String.Marshal(t.ExternalID, bs[n:])
	n += varint.Int.Marshal(int(t.Status), bs[n:])
	n += varint.Int.Marshal(t.Progress, bs[n:])
	n += ord.String.Marshal(t.CurrentStep, bs[n:])
	n += ord.String.Marshal(t.ErrorMessage, bs[n:])
	n += ord.Bool.Marshal(t.CancelRequested, bs[n:])
	n += marshalTime(t.CreatedAt, bs[n:])
	n += marshalTime(t.StartedAt, bs[n:])
	n += marshalTime(t.CompletedAt, bs[n:])
	return n
}

func (taskRecordMUS) Unmarshal(bs []byte) (t TaskRecord, n int, err error) {
	var (
		s  string
		i  int
		m  int
		b  bool
		ts time.Time
	)
	if s, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	t.ID = TaskID(s)
	if t.Library, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if t.Filename, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if s, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	t.Fingerprint = Fingerprint(s)
	n += m
	if t.ExternalID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if i, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	t.Status = TaskStatus(i)
	n += m
	if t.Progress, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if t.CurrentStep, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if t.ErrorMessage, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if b, m, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	t.CancelRequested = b
	n += m
	if ts, m, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + m, err
	}
	t.CreatedAt = ts
	n += m
	if ts, m, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + m, err
	}
	t.StartedAt = ts
	n += m
	if ts, m, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + m, err
	}
	t.CompletedAt = ts
	n += m
	return t, n, nil
}

func (taskRecordMUS) Size(t TaskRecord) (size int) {
	size = ord.String.Size(string(t.ID))
	size += ord.String.Size(t.Library)
	size += ord.String.Size(t.Filename)
	size += ord.String.Size(string(t.Fingerprint))
	size += ord.String.Size(t.ExternalID)
	size += varint.Int.Size(int(t.Status))
	size += varint.Int.Size(t.Progress)
	size += ord.String.Size(t.CurrentStep)
	size += ord.String.Size(t.ErrorMessage)
	size += ord.Bool.Size(t.CancelRequested)
	size += sizeTime(t.CreatedAt)
	size += sizeTime(t.StartedAt)
	size += sizeTime(t.CompletedAt)
	return size
}

type analysisEntryMUS struct{}

func (analysisEntryMUS) Marshal(e AnalysisEntry, bs []byte) (n int) {
	n = ord.String.Marshal(string(e.Fingerprint), bs)
	n += ord.String.Marshal(e.ExternalID, bs[n:])
	n += marshalStringMap(e.Metadata, bs[n:])
	n += marshalTime(e.FirstSeenAt, bs[n:])
	n += marshalTime(e.LastReusedAt, bs[n:])
	return n
}

func (analysisEntryMUS) Unmarshal(bs []byte) (e AnalysisEntry, n int, err error) {
	var (
		s  string
		m  int
		ts time.Time
	)
	if s, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	e.Fingerprint = Fingerprint(s)
	if e.ExternalID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.Metadata, m, err = unmarshalStringMap(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if ts, m, err = unmarshalTime(bs[n:]); err != nil {
		return e, n + m, err
	}
	e.FirstSeenAt = ts
	n += m
	if ts, m, err = unmarshalTime(bs[n:]); err != nil {
		return e, n + m, err
	}
	e.LastReusedAt = ts
	n += m
	return e, n, nil
}

func (analysisEntryMUS) Size(e AnalysisEntry) (size int) {
	size = ord.String.Size(string(e.Fingerprint))
	size += ord.String.Size(e.ExternalID)
	size += sizeStringMap(e.Metadata)
	size += sizeTime(e.FirstSeenAt)
	size += sizeTime(e.LastReusedAt)
	return size
}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = ord.String.Marshal(c.Key, bs)
	n += ord.String.Marshal(c.Library, bs[n:])
	n += ord.String.Marshal(string(c.Fingerprint), bs[n:])
	n += varint.Int.Marshal(c.Seq, bs[n:])
	n += varint.Int64.Marshal(c.StartMS, bs[n:])
	n += varint.Int64.Marshal(c.EndMS, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += marshalStringSlice(c.Tags, bs[n:])
	n += marshalVector(c.Vector, bs[n:])
	n += marshalStringMap(c.Citation, bs[n:])
	n += marshalTime(c.UpdatedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var (
		s  string
		m  int
		ts time.Time
	)
	if c.Key, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if c.Library, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if s, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	c.Fingerprint = Fingerprint(s)
	n += m
	if c.Seq, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.StartMS, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.EndMS, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Tags, m, err = unmarshalStringSlice(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Vector, m, err = unmarshalVector(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Citation, m, err = unmarshalStringMap(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if ts, m, err = unmarshalTime(bs[n:]); err != nil {
		return c, n + m, err
	}
	c.UpdatedAt = ts
	n += m
	return c, n, nil
}

func (chunkMUS) Size(c Chunk) (size int) {
	size = ord.String.Size(c.Key)
	size += ord.String.Size(c.Library)
	size += ord.String.Size(string(c.Fingerprint))
	size += varint.Int.Size(c.Seq)
	size += varint.Int64.Size(c.StartMS)
	size += varint.Int64.Size(c.EndMS)
	size += ord.String.Size(c.Text)
	size += sizeStringSlice(c.Tags)
	size += sizeVector(c.Vector)
	size += sizeStringMap(c.Citation)
	size += sizeTime(c.UpdatedAt)
	return size
}

// Timestamp helpers. The zero time maps to 0 so optional timestamps survive
// round trips.

func marshalTime(t time.Time, bs []byte) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Size(micros)
}

// Length-prefixed collection helpers.

func marshalStringMap(m map[string]string, bs []byte) (n int) {
	keys := sortedKeys(m)
	n = varint.Int.Marshal(len(keys), bs)
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return n
}

func unmarshalStringMap(bs []byte) (map[string]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	m := make(map[string]string, length)
	for i := 0; i < length; i++ {
		k, kn, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, n + kn, err
		}
		n += kn
		v, vn, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, n + vn, err
		}
		n += vn
		m[k] = v
	}
	return m, n, nil
}

func sizeStringMap(m map[string]string) (size int) {
	size = varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k)
		size += ord.String.Size(v)
	}
	return size
}

func marshalStringSlice(s []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(s), bs)
	for _, v := range s {
		n += ord.String.Marshal(v, bs[n:])
	}
	return n
}

func unmarshalStringSlice(bs []byte) ([]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	s := make([]string, length)
	for i := 0; i < length; i++ {
		v, m, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, n + m, err
		}
		n += m
		s[i] = v
	}
	return s, n, nil
}

func sizeStringSlice(s []string) (size int) {
	size = varint.Int.Size(len(s))
	for _, v := range s {
		size += ord.String.Size(v)
	}
	return size
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v := make([]float32, length)
	for i := 0; i < length; i++ {
		f, m, err := raw.Float32.Unmarshal(bs[n:])
		if err != nil {
			return nil, n + m, err
		}
		n += m
		v[i] = f
	}
	return v, n, nil
}

func sizeVector(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

// sortedKeys keeps serialized bytes stable for identical values.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
