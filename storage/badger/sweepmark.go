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


package badger

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/mediamind/storage"
)

// SweepMarker implements storage.SweepMarker for BadgerDB.
type SweepMarker struct {
	backend *Backend
}

var _ storage.SweepMarker = (*SweepMarker)(nil)

// NewSweepMarker creates a new SweepMarker.
func NewSweepMarker(backend *Backend) *SweepMarker {
	return &SweepMarker{
		backend: backend,
	}
}

// SaveSweepMark records the outcome of a sweep run.
func (m *SweepMarker) SaveSweepMark(ctx context.Context, mark *storage.SweepMark) error {
	return m.backend.WithTx(func(tx *badger.Txn) error {
		if mark.RanAt.IsZero() {
			mark.RanAt = time.Now().UTC()
		}
		buf := make([]byte, 16)
		binary.BigEndian.PutUint64(buf, uint64(mark.RanAt.UnixMicro()))
		binary.BigEndian.PutUint64(buf[8:], uint64(mark.Removed))
		if err := tx.Set(makeSweepMarkKey(), buf); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadSweepMark returns the most recent sweep outcome.
// Returns nil, nil if no sweep has run yet.
func (m *SweepMarker) LoadSweepMark(ctx context.Context) (*storage.SweepMark, error) {
	var mark *storage.SweepMark
	err := m.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSweepMarkKey())
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			if len(val) < 16 {
				return storage.ErrSerializationFailed
			}
			mark = &storage.SweepMark{
				RanAt:   time.UnixMicro(int64(binary.BigEndian.Uint64(val))).UTC(),
				Removed: int(binary.BigEndian.Uint64(val[8:])),
			}
			return nil
		})
	}, false)

	return mark, err
}
