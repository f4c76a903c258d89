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

package mcastfs

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"jinr.ru/greenlab/go-mcastfs/pkg/log"
)

// Container preamble: 28 bytes of fixed fields, record count, 4 reserved bytes.
// Example: 0E00 4D43 6173 7446 5332 0000 4519 0400 051E 0110 0035 0000 0005 0025 009E 0000 0000
const (
	PreambleFixedLen    = 28
	PreambleReservedLen = 4
	PreambleLen         = PreambleFixedLen + 2 + PreambleReservedLen
	// ContainerMagic follows the two leading bytes of the preamble
	ContainerMagic = "MCastFS2"
)

const (
	EntryRecordTag uint8 = 0x00
	DataRecordTag  uint8 = 0x04
)

const (
	SegmentAuxiliary uint16 = 0x0110
	SegmentFileData  uint16 = 0x0312
	// auxiliarySegmentLen is the body of a 0x0110 segment, which is skipped
	auxiliarySegmentLen = 14
	// DataSegmentOverhead is subtracted from the segment length to get the payload size
	DataSegmentOverhead = 18
)

type State int

const (
	StatePreamble State = iota
	StateTagLoop
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePreamble:
		return "preamble"
	case StateTagLoop:
		return "tag loop"
	case StateDone:
		return "done"
	default:
		return "failed"
	}
}

// Decoder interprets MCastFSv2 tag streams. The tree and the file buffers are kept
// between calls, so one decoder can consume the records of a whole live session.
type Decoder struct {
	Tree  *Tree
	Files Files
	// RecordCount is the value of the preamble record count field, informational only
	RecordCount uint16
	state       State
}

func NewDecoder() *Decoder {
	return &Decoder{
		Tree:  NewTree(),
		Files: make(Files),
		state: StatePreamble,
	}
}

func (d *Decoder) State() State {
	return d.state
}

// Decode reads a whole container file
func Decode(r io.Reader) (*Tree, Files, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	d := NewDecoder()
	err = d.DecodeContainer(data)
	return d.Tree, d.Files, err
}

// DecodeContainer decodes a container file held in memory, preamble included
func (d *Decoder) DecodeContainer(data []byte) error {
	d.state = StatePreamble
	log.Debug("DecodeContainer: length: %d", len(data))

	c := newCursor(data)
	fixed := c.take(PreambleFixedLen, "preamble")
	d.RecordCount = c.u16("record count")
	c.skip(PreambleReservedLen, "preamble reserved")
	if c.err != nil {
		d.state = StateFailed
		return c.err
	}
	if !bytes.HasPrefix(fixed[2:], []byte(ContainerMagic)) {
		log.Warning("Container magic %q not found, decoding anyway", ContainerMagic)
	}
	log.Debug("DecodeContainer: record count: %d", d.RecordCount)
	return d.tagLoop(c)
}

// DecodeHeaderRecord decodes the entries carried by one live header record.
// The payload must start at the first entry.
func (d *Decoder) DecodeHeaderRecord(payload []byte) error {
	return d.tagLoop(newCursor(payload))
}

func (d *Decoder) tagLoop(c *cursor) error {
	d.state = StateTagLoop
	for c.remaining() > 0 {
		if err := d.decodeRecord(c); err != nil {
			d.state = StateFailed
			return err
		}
	}
	d.state = StateDone
	return nil
}

func (d *Decoder) decodeRecord(c *cursor) error {
	tag := c.u8("record type")
	switch tag {
	case EntryRecordTag:
		return d.decodeEntry(tag, c)
	case DataRecordTag:
		return d.decodeData(c)
	default:
		before, after := c.around()
		err := ErrUnsupportedRecordType{
			Type:      tag,
			Offset:    c.pos,
			Remaining: c.remaining(),
			Before:    before,
			After:     after,
		}
		log.Error("Unknown record type, 16 bytes before and after the cursor: %s", err.Dump())
		log.Error("Position 0x%08x, remaining: 0x%08x", err.Offset, err.Remaining)
		return err
	}
}

// decodeEntry reads a directory or file record. The tag byte is the high byte
// of the entry id.
//
//	0025 004A 0000 81 A4 0000 0000000D F5CA 12CE97F0 000E 436F...
//	id   par  ---- kd -- ---- size     csum ----     nlen name
func (d *Decoder) decodeEntry(tag uint8, c *cursor) error {
	id := uint16(tag)<<8 | uint16(c.u8("entry id"))
	parentID := c.u16("parent id")
	c.skip(2, "entry reserved")
	kind := c.u8("entry kind")
	c.skip(1, "entry mode")
	c.skip(2, "entry reserved")
	size := c.u32("entry size")
	checksum := c.u16("entry checksum")
	c.skip(4, "entry timestamp")
	// signed on the wire, a negative length means no name like zero does
	nameLength := int16(c.u16("name length"))
	if c.err != nil {
		return c.err
	}
	if nameLength <= 0 {
		log.Debug("Entry 0x%04x has no name (length %d), left unclassified", id, nameLength)
		return nil
	}
	raw := c.take(int(nameLength), "entry name")
	if c.err != nil {
		return c.err
	}
	name := string(bytes.TrimSuffix(raw, []byte{0}))

	added := d.Tree.Add(Entry{
		ID:       id,
		ParentID: parentID,
		Kind:     Kind(kind),
		Name:     name,
		Size:     size,
		Checksum: checksum,
	})
	if added {
		log.Debug("Entry: id: 0x%04x parent: 0x%04x kind: 0x%02x name: %q", id, parentID, kind, name)
	}
	return nil
}

// decodeData reads a data record.
//
//	04 00 0536 0312 0035 0001 0006 0001 00001CA7 00000524 ...
//	tg -- slen styp ---- part ---- fid  size     offset   data
func (d *Decoder) decodeData(c *cursor) error {
	start := c.pos - 1
	c.skip(1, "data reserved")
	segmentLength := c.u16("segment length")
	segmentType := c.u16("segment type")
	if c.err != nil {
		return c.err
	}

	switch segmentType {
	case SegmentAuxiliary:
		c.skip(auxiliarySegmentLen, "auxiliary segment")
		return c.err
	case SegmentFileData:
		c.skip(2, "segment reserved")
		part := c.u16("part index")
		c.skip(2, "segment reserved")
		fileID := c.u16("file id")
		fileSize := c.u32("file size")
		offset := c.u32("file offset")
		if c.err != nil {
			return c.err
		}
		if segmentLength < DataSegmentOverhead {
			return ErrMalformedRecord{
				What:      "segment length shorter than its header",
				Offset:    start,
				Need:      DataSegmentOverhead,
				Remaining: int(segmentLength),
			}
		}
		n := int(segmentLength) - DataSegmentOverhead
		if n > c.remaining() {
			return ErrTruncatedPayload{FileID: fileID, Offset: c.pos, Want: n, Remaining: c.remaining()}
		}
		chunk := c.take(n, "segment payload")
		if log.Enabled(log.DebugLevel) {
			log.Debug("Data: file: 0x%04x part: %d size: %d offset: %d length: %d", fileID, part, fileSize, offset, n)
			log.Debug("Data: payload: \n%s", hex.Dump(chunk))
		}
		return d.WriteChunk(fileID, fileSize, offset, chunk)
	default:
		return ErrUnsupportedSegmentType{Type: segmentType, Offset: start}
	}
}

// WriteChunk places a chunk of a file. The buffer is allocated with the declared
// size the first time the file id is seen; later size claims are not reconciled.
func (d *Decoder) WriteChunk(fileID uint16, fileSize, offset uint32, chunk []byte) error {
	buf, ok := d.Files[fileID]
	if !ok {
		buf = NewFileBuffer(fileSize)
		d.Files[fileID] = buf
	} else if buf.Capacity() != fileSize {
		log.Debug("File 0x%04x declares size %d, keeping %d", fileID, fileSize, buf.Capacity())
	}
	err := buf.Write(offset, chunk)
	var malformed ErrMalformedRecord
	if errors.As(err, &malformed) {
		malformed.What = fmt.Sprintf("file 0x%04x %s", fileID, malformed.What)
		return malformed
	}
	return err
}
