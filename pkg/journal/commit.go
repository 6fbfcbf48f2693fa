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
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
)

const (
	commitMagic   = 0x50464A4C // "PFJL"
	commitVersion = 1
	commitSize    = 4 + 2 + 2 + 8 + 4 // magic + version + reserved + seq + crc32
)

// commitStore handles atomic read/write of the consumed-up-to marker.
type commitStore struct {
	path string
	mu   sync.Mutex
}

func newCommitStore(dir string) *commitStore {
	return &commitStore{path: filepath.Join(dir, "commit.offset")}
}

// Read returns the last compacted seq. Missing or invalid files read as 0.
func (c *commitStore) Read() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) < commitSize {
		return 0, nil
	}
	if binary.BigEndian.Uint32(data[0:4]) != commitMagic {
		return 0, nil
	}
	if binary.BigEndian.Uint16(data[4:6]) != commitVersion {
		return 0, nil
	}
	seq := binary.BigEndian.Uint64(data[8:16])
	if binary.BigEndian.Uint32(data[16:20]) != crc32.ChecksumIEEE(data[0:16]) {
		return 0, nil
	}
	return seq, nil
}

// Write atomically persists the compacted seq via rename.
func (c *commitStore) Write(seq uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]byte, commitSize)
	binary.BigEndian.PutUint32(buf[0:4], commitMagic)
	binary.BigEndian.PutUint16(buf[4:6], commitVersion)
	binary.BigEndian.PutUint16(buf[6:8], 0)
	binary.BigEndian.PutUint64(buf[8:16], seq)
	binary.BigEndian.PutUint32(buf[16:20], crc32.ChecksumIEEE(buf[0:16]))

	tmpPath := c.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	d, err := os.Open(filepath.Dir(c.path))
	if err != nil {
		return err
	}
	err = d.Sync()
	_ = d.Close()
	return err
}
