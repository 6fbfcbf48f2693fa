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
	"io"
)

const (
	recordHeaderSize = 4 + 8 + 2 + 2 // total len + seq + name len + reserved
	recordCRCSize    = 4
	maxRecordSize    = 16 * 1024 * 1024
)

// Record is one journaled event.
type Record struct {
	Seq     uint64
	Name    string // event name, e.g. pipeline.stage.completed
	Payload []byte // JSON payload
}

// EncodeRecord encodes a record with length prefix and trailing CRC32.
func EncodeRecord(r *Record) []byte {
	nameLen := len(r.Name)
	payloadLen := len(r.Payload)
	totalLen := recordHeaderSize + nameLen + payloadLen + recordCRCSize
	buf := make([]byte, totalLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(totalLen))
	binary.BigEndian.PutUint64(buf[4:12], r.Seq)
	binary.BigEndian.PutUint16(buf[12:14], uint16(nameLen))
	binary.BigEndian.PutUint16(buf[14:16], 0)
	copy(buf[16:16+nameLen], r.Name)
	copy(buf[16+nameLen:16+nameLen+payloadLen], r.Payload)
	crc := crc32.ChecksumIEEE(buf[0 : totalLen-recordCRCSize])
	binary.BigEndian.PutUint32(buf[totalLen-recordCRCSize:totalLen], crc)
	return buf
}

// DecodeRecord decodes a framed record. Returns nil on truncation or CRC
// mismatch.
func DecodeRecord(data []byte) *Record {
	if len(data) < recordHeaderSize+recordCRCSize {
		return nil
	}
	totalLen := binary.BigEndian.Uint32(data[0:4])
	if uint32(len(data)) < totalLen {
		return nil
	}
	nameLen := int(binary.BigEndian.Uint16(data[12:14]))
	if recordHeaderSize+nameLen+recordCRCSize > int(totalLen) {
		return nil
	}
	storedCRC := binary.BigEndian.Uint32(data[totalLen-recordCRCSize : totalLen])
	computedCRC := crc32.ChecksumIEEE(data[0 : totalLen-recordCRCSize])
	if storedCRC != computedCRC {
		return nil
	}
	payloadLen := int(totalLen) - recordHeaderSize - nameLen - recordCRCSize
	return &Record{
		Seq:     binary.BigEndian.Uint64(data[4:12]),
		Name:    string(data[16 : 16+nameLen]),
		Payload: append([]byte(nil), data[16+nameLen:16+nameLen+payloadLen]...),
	}
}

// ReadNextRecord reads one framed record from r. Returns (nil, nil) on a
// corrupt frame, which terminates a segment scan.
func ReadNextRecord(r io.Reader) (*Record, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	totalLen := binary.BigEndian.Uint32(lenBuf)
	if totalLen < recordHeaderSize+recordCRCSize || totalLen > maxRecordSize {
		return nil, nil
	}
	buf := make([]byte, totalLen)
	copy(buf[0:4], lenBuf)
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		return nil, err
	}
	return DecodeRecord(buf), nil
}
