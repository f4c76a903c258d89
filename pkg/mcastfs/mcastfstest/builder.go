/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// Package mcastfstest builds MCastFSv2 records for tests
package mcastfstest

import (
	"encoding/binary"
)

const (
	KindDirectory uint8 = 0x41
	KindFile      uint8 = 0x81
)

// Entry encodes an entry record. The high byte of id doubles as the record tag,
// so ids below 0x100 are the only ones a tag loop reads back as entries.
// A NUL is appended to the name as the firmware does.
func Entry(id, parentID uint16, kind uint8, name string) []byte {
	return RawEntry(id, parentID, kind, append([]byte(name), 0))
}

// RawEntry encodes an entry record with the name bytes taken verbatim
func RawEntry(id, parentID uint16, kind uint8, name []byte) []byte {
	b := make([]byte, 22, 22+len(name))
	binary.BigEndian.PutUint16(b[0:2], id)
	binary.BigEndian.PutUint16(b[2:4], parentID)
	b[6] = kind
	b[7] = 0xA4
	binary.BigEndian.PutUint32(b[10:14], uint32(len(name)))
	binary.BigEndian.PutUint16(b[14:16], 0xF5CA)
	binary.BigEndian.PutUint32(b[16:20], 0x12CE97F0)
	binary.BigEndian.PutUint16(b[20:22], uint16(len(name)))
	return append(b, name...)
}

// Data encodes a 0x0312 file data segment
func Data(fileID uint16, part uint16, fileSize, offset uint32, payload []byte) []byte {
	b := make([]byte, 22, 22+len(payload))
	b[0] = 0x04
	binary.BigEndian.PutUint16(b[2:4], uint16(len(payload)+18))
	binary.BigEndian.PutUint16(b[4:6], 0x0312)
	binary.BigEndian.PutUint16(b[6:8], 0x0035)
	binary.BigEndian.PutUint16(b[8:10], part)
	binary.BigEndian.PutUint16(b[10:12], 0x0006)
	binary.BigEndian.PutUint16(b[12:14], fileID)
	binary.BigEndian.PutUint32(b[14:18], fileSize)
	binary.BigEndian.PutUint32(b[18:22], offset)
	return append(b, payload...)
}

// Segment encodes a data record header with an arbitrary segment type followed by body
func Segment(segmentType uint16, segmentLength uint16, body []byte) []byte {
	b := make([]byte, 6, 6+len(body))
	b[0] = 0x04
	binary.BigEndian.PutUint16(b[2:4], segmentLength)
	binary.BigEndian.PutUint16(b[4:6], segmentType)
	return append(b, body...)
}

// Auxiliary encodes a 0x0110 segment
func Auxiliary() []byte {
	return Segment(0x0110, 0x051E, []byte{0x00, 0x35, 0x00, 0x01, 0x00, 0x05, 0x00, 0x26, 0x00, 0x9E, 0, 0, 0, 0})
}

// Container prepends the 34 byte preamble to the records
func Container(records ...[]byte) []byte {
	b := make([]byte, 34)
	b[0] = 0x0E
	copy(b[2:], "MCastFS2")
	binary.BigEndian.PutUint16(b[28:30], uint16(len(records)))
	for _, r := range records {
		b = append(b, r...)
	}
	return b
}

// Concat joins records without a preamble, as carried by live header records
func Concat(records ...[]byte) []byte {
	var b []byte
	for _, r := range records {
		b = append(b, r...)
	}
	return b
}
