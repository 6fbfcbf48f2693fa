// Copyright 2026 Printforge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package journal provides a segment-based write-ahead log that records
// every pipeline event published by the engine. The bus itself stays
// fire-and-forget; the journal is a durable tee used for audit and replay
// after a restart.
package journal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for the journal package.
var ProviderSet = wire.NewSet(ProvideJournal)

const (
	// DefaultDir is the default journal root directory.
	DefaultDir = "./journal"
	// DefaultSegmentMaxRecords is the default record count per segment.
	DefaultSegmentMaxRecords = 10000
	// DefaultFsyncInterval is the default batch fsync interval.
	DefaultFsyncInterval = 100 * time.Millisecond
	// DefaultMaxDiskUsageMB is the default disk usage cap in MB.
	DefaultMaxDiskUsageMB = 1024
	// MaxScopeLen is the max length of the scope directory name.
	MaxScopeLen = 128
)

var (
	// ErrScopeRequired is returned when Scope is empty.
	ErrScopeRequired = errors.New("journal: scope is required")
	// ErrScopeTooLong is returned when Scope exceeds MaxScopeLen.
	ErrScopeTooLong = errors.New("journal: scope exceeds max length")
	// ErrClosed is returned when appending to a closed journal.
	ErrClosed = errors.New("journal: closed")
	// ErrDiskFull is returned when disk usage exceeds the cap.
	ErrDiskFull = errors.New("journal: disk usage exceeds limit")
)

// Config holds journal configuration.
type Config struct {
	Enabled           bool   `mapstructure:"enabled"`
	Dir               string `mapstructure:"dir"`
	Scope             string `mapstructure:"scope"` // per-process subdirectory, e.g. the engine instance id
	SegmentMaxRecords int    `mapstructure:"segmentMaxRecords"`
	FsyncIntervalMs   int    `mapstructure:"fsyncIntervalMs"`
	MaxDiskUsageMB    int64  `mapstructure:"maxDiskUsageMB"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.Dir == "" {
		c.Dir = DefaultDir
	}
	if c.Scope == "" {
		c.Scope = "engine"
	}
	if c.SegmentMaxRecords <= 0 {
		c.SegmentMaxRecords = DefaultSegmentMaxRecords
	}
	if c.FsyncIntervalMs <= 0 {
		c.FsyncIntervalMs = int(DefaultFsyncInterval / time.Millisecond)
	}
	if c.MaxDiskUsageMB <= 0 {
		c.MaxDiskUsageMB = DefaultMaxDiskUsageMB
	}
}

// Validate checks config validity.
func (c *Config) Validate() error {
	if c.Scope == "" {
		return ErrScopeRequired
	}
	if len(c.Scope) > MaxScopeLen {
		return ErrScopeTooLong
	}
	return nil
}

func (c *Config) fsyncInterval() time.Duration {
	return time.Duration(c.FsyncIntervalMs) * time.Millisecond
}

// Journal is the durable event log.
type Journal struct {
	wal    *wal
	mu     sync.Mutex
	closed bool
}

// ProvideJournal creates a journal from config; a disabled config yields a
// nil journal, which every method tolerates.
func ProvideJournal(cfg Config) (*Journal, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return Open(cfg)
}

// Open creates a journal rooted at cfg.Dir/cfg.Scope.
func Open(cfg Config) (*Journal, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, err := newWAL(&cfg)
	if err != nil {
		return nil, err
	}
	return &Journal{wal: w}, nil
}

// Append writes one named event with a JSON payload. Returns the assigned
// sequence number.
func (j *Journal) Append(ctx context.Context, name string, payload any) (uint64, error) {
	if j == nil {
		return 0, nil
	}
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return 0, ErrClosed
	}
	j.mu.Unlock()

	data, err := sonic.Marshal(payload)
	if err != nil {
		return 0, err
	}
	return j.wal.Append(ctx, &Record{Name: name, Payload: data})
}

// Replay invokes fn for every flushed record with seq greater than afterSeq,
// in sequence order. fn returning an error stops the replay.
func (j *Journal) Replay(afterSeq uint64, fn func(*Record) error) error {
	if j == nil {
		return nil
	}
	recs, err := j.wal.ReadRecords(afterSeq, j.wal.FlushedSeq(), int(^uint(0)>>1))
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// LastSeq returns the highest flushed sequence number.
func (j *Journal) LastSeq() uint64 {
	if j == nil {
		return 0
	}
	return j.wal.FlushedSeq()
}

// Compact marks records up to seq as consumed and drops whole segments that
// fall entirely below it.
func (j *Journal) Compact(seq uint64) error {
	if j == nil {
		return nil
	}
	if err := j.wal.commit.Write(seq); err != nil {
		return err
	}
	return j.wal.DeleteSegmentsUpTo(seq)
}

// Close flushes and stops the writer.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()
	return j.wal.Close()
}
