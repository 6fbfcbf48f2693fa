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

package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/printforge/printforge/pkg/log"
	"github.com/printforge/printforge/pkg/safe"
)

const segmentNameFmt = "%016d.wal"

var segmentNameRe = regexp.MustCompile(`^(\d{16})\.wal$`)

type writeReq struct {
	record []byte
	seq    uint64
	done   chan error
}

// wal is the segment log: single writer goroutine, periodic fsync boundary.
type wal struct {
	dir          string
	cfg          *Config
	writeCh      chan writeReq
	commit       *commitStore
	nextSeq      uint64
	writtenSeq   uint64
	flushedSeq   uint64
	segmentCount int
	currentFile  *os.File
	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func newWAL(cfg *Config) (*wal, error) {
	dir := filepath.Join(cfg.Dir, sanitizeScope(cfg.Scope))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &wal{
		dir:     dir,
		cfg:     cfg,
		writeCh: make(chan writeReq, 1024),
		commit:  newCommitStore(dir),
		ctx:     ctx,
		cancel:  cancel,
	}
	maxSeq, err := w.scanMaxSeq()
	if err != nil {
		cancel()
		return nil, err
	}
	w.nextSeq = maxSeq + 1
	w.writtenSeq = maxSeq
	w.flushedSeq = maxSeq
	w.wg.Add(1)
	safe.Go(w.runWriter)
	return w, nil
}

func sanitizeScope(s string) string {
	if len(s) > MaxScopeLen {
		s = s[:MaxScopeLen]
	}
	var b strings.Builder
	for _, r := range s {
		if r == '.' || r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (w *wal) runWriter() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.fsyncInterval())
	defer ticker.Stop()
	for {
		select {
		case <-w.ctx.Done():
			w.drainWrites()
			w.flushCurrent()
			return
		case req := <-w.writeCh:
			w.handleWrite(req)
		case <-ticker.C:
			w.flushCurrent()
		}
	}
}

func (w *wal) handleWrite(req writeReq) {
	err := w.appendRecord(req.record, req.seq)
	if err == nil {
		atomic.StoreUint64(&w.writtenSeq, req.seq)
	}
	if req.done != nil {
		req.done <- err
	}
}

func (w *wal) drainWrites() {
	for {
		select {
		case req := <-w.writeCh:
			w.handleWrite(req)
		default:
			return
		}
	}
}

func (w *wal) appendRecord(data []byte, seq uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.currentFile == nil || w.segmentCount >= w.cfg.SegmentMaxRecords {
		if w.currentFile != nil {
			_ = w.currentFile.Sync()
			_ = w.currentFile.Close()
			w.currentFile = nil
		}
		fpath := filepath.Join(w.dir, fmt.Sprintf(segmentNameFmt, seq))
		f, err := os.OpenFile(fpath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w.currentFile = f
		w.segmentCount = 0
	}
	if _, err := w.currentFile.Write(data); err != nil {
		return err
	}
	w.segmentCount++
	return nil
}

func (w *wal) flushCurrent() {
	w.mu.Lock()
	f := w.currentFile
	ws := atomic.LoadUint64(&w.writtenSeq)
	w.mu.Unlock()
	if f != nil {
		if err := f.Sync(); err != nil {
			log.Errorw("journal fsync failed", "error", err)
		}
	}
	atomic.StoreUint64(&w.flushedSeq, ws)
}

func (w *wal) diskUsageBytes() int64 {
	segs, err := w.listSegments()
	if err != nil {
		return 0
	}
	var total int64
	for _, path := range segs {
		if info, err := os.Stat(path); err == nil {
			total += info.Size()
		}
	}
	return total
}

// Append assigns a seq, enqueues the record and waits for the write (not the
// fsync) to finish.
func (w *wal) Append(ctx context.Context, r *Record) (uint64, error) {
	if w.diskUsageBytes() >= w.cfg.MaxDiskUsageMB*1024*1024 {
		return 0, ErrDiskFull
	}
	seq := atomic.AddUint64(&w.nextSeq, 1) - 1
	r.Seq = seq
	done := make(chan error, 1)
	select {
	case w.writeCh <- writeReq{record: EncodeRecord(r), seq: seq, done: done}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case err := <-done:
		return seq, err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// FlushedSeq returns the last fsynced seq.
func (w *wal) FlushedSeq() uint64 {
	return atomic.LoadUint64(&w.flushedSeq)
}

// ReadRecords returns records with seq in (afterSeq, upToSeq], at most limit.
func (w *wal) ReadRecords(afterSeq, upToSeq uint64, limit int) ([]*Record, error) {
	segments, err := w.listSegments()
	if err != nil {
		return nil, err
	}
	var out []*Record
	for _, seg := range segments {
		if len(out) >= limit {
			break
		}
		recs, err := w.readSegment(seg, afterSeq, upToSeq, limit-len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (w *wal) listSegments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	var segs []string
	for _, e := range entries {
		if !e.IsDir() && segmentNameRe.MatchString(e.Name()) {
			segs = append(segs, filepath.Join(w.dir, e.Name()))
		}
	}
	sort.Strings(segs)
	return segs, nil
}

func (w *wal) readSegment(path string, afterSeq, upToSeq uint64, limit int) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []*Record
	for len(out) < limit {
		rec, err := ReadNextRecord(f)
		if err != nil || rec == nil {
			break
		}
		if rec.Seq > afterSeq && rec.Seq <= upToSeq {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (w *wal) scanMaxSeq() (uint64, error) {
	segs, err := w.listSegments()
	if err != nil {
		return 0, err
	}
	var maxSeq uint64
	for _, path := range segs {
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		for {
			rec, err := ReadNextRecord(f)
			if err != nil || rec == nil {
				break
			}
			if rec.Seq > maxSeq {
				maxSeq = rec.Seq
			}
		}
		_ = f.Close()
	}
	return maxSeq, nil
}

// DeleteSegmentsUpTo removes segments whose records all have seq <= seq.
func (w *wal) DeleteSegmentsUpTo(seq uint64) error {
	segs, err := w.listSegments()
	if err != nil {
		return err
	}
	for _, path := range segs {
		maxSeq, err := w.segmentMaxSeq(path)
		if err != nil {
			continue
		}
		if maxSeq <= seq {
			_ = os.Remove(path)
		}
	}
	return nil
}

func (w *wal) segmentMaxSeq(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var maxSeq uint64
	for {
		rec, err := ReadNextRecord(f)
		if err != nil || rec == nil {
			break
		}
		if rec.Seq > maxSeq {
			maxSeq = rec.Seq
		}
	}
	return maxSeq, nil
}

// Close stops the writer and syncs the open segment.
func (w *wal) Close() error {
	w.cancel()
	w.wg.Wait()
	w.mu.Lock()
	if w.currentFile != nil {
		_ = w.currentFile.Sync()
		_ = w.currentFile.Close()
		w.currentFile = nil
	}
	w.mu.Unlock()
	return nil
}
