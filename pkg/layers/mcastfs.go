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

package layers

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-mcastfs/pkg/mcastfs"
)

const (
	// MCastFSLayerNum identifies the layer
	MCastFSLayerNum = 2013
)

// RecordType is the first byte of every datagram
type RecordType uint8

const (
	HeaderRecordType RecordType = 0x01
	FileRecordType   RecordType = 0x03
)

func (t RecordType) String() string {
	switch t {
	case HeaderRecordType:
		return "Header"
	case FileRecordType:
		return "File"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(t))
	}
}

const (
	RecordHeaderLen = 8
	HeaderRecordLen = 16
	FileRecordLen   = 18
	// ExtendedPreambleLen is the metadata carried only by the first record of the header
	// stream. Entries start at 18+20 in the first record and at 18-2 in the others.
	ExtendedPreambleLen = 22
)

// RecordHeader ... // 8 bytes, common to every datagram
type RecordHeader struct {
	RecordID      uint32 // the high byte is the RecordType
	SequenceIndex uint16
	SequenceTotal uint16
}

// HeaderRecord ... // 8 bytes after RecordHeader
type HeaderRecord struct {
	TotalFiles uint16
	Reserved   uint32
	Offset     uint16
}

// FileRecord ... // 10 bytes after RecordHeader
type FileRecord struct {
	FileID   uint16
	FileSize uint32
	Offset   uint32
}

// MCastFSLayer is one MCastFSv2 multicast datagram.
// Payload holds the entries of a header record or the file bytes of a file record.
type MCastFSLayer struct {
	layers.BaseLayer
	RecordHeader
	Type RecordType
	// Extended is set for the first record of the header stream only
	Extended []byte
	// Record contains either HeaderRecord or FileRecord, not both of them at the same time
	*HeaderRecord
	*FileRecord
}

var MCastFSLayerType = gopacket.RegisterLayerType(MCastFSLayerNum,
	gopacket.LayerTypeMetadata{Name: "MCastFSLayerType", Decoder: gopacket.DecodeFunc(DecodeMCastFSLayer)})

// LayerType returns the type of the MCastFS layer in the layer catalog
func (l *MCastFSLayer) LayerType() gopacket.LayerType {
	return MCastFSLayerType
}

func (l *MCastFSLayer) CanDecode() gopacket.LayerClass {
	return MCastFSLayerType
}

func (l *MCastFSLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

// LogicalID groups the datagrams of one stream: 0 for the header stream, the file id otherwise
func (l *MCastFSLayer) LogicalID() uint16 {
	if l.FileRecord != nil {
		return l.FileRecord.FileID
	}
	return 0
}

func (l *MCastFSLayer) headerLen() int {
	switch l.Type {
	case HeaderRecordType:
		if l.SequenceIndex == 0 {
			return HeaderRecordLen + ExtendedPreambleLen
		}
		return HeaderRecordLen
	case FileRecordType:
		return FileRecordLen
	default:
		return RecordHeaderLen
	}
}

func (l *MCastFSLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < RecordHeaderLen {
		df.SetTruncated()
		return mcastfs.ErrMalformedRecord{What: "record header", Need: RecordHeaderLen, Remaining: len(data)}
	}

	l.Type = RecordType(data[0])
	l.RecordHeader = RecordHeader{
		RecordID:      binary.BigEndian.Uint32(data[0:4]),
		SequenceIndex: binary.BigEndian.Uint16(data[4:6]),
		SequenceTotal: binary.BigEndian.Uint16(data[6:8]),
	}
	l.HeaderRecord = nil
	l.FileRecord = nil
	l.Extended = nil

	switch l.Type {
	case HeaderRecordType, FileRecordType:
	default:
		end := len(data)
		if end > 16 {
			end = 16
		}
		return mcastfs.ErrUnsupportedRecordType{
			Type:      data[0],
			Remaining: len(data) - 1,
			After:     append([]byte(nil), data[1:end]...),
		}
	}

	n := l.headerLen()
	if len(data) < n {
		df.SetTruncated()
		return mcastfs.ErrMalformedRecord{What: fmt.Sprintf("%s record header", l.Type), Need: n, Remaining: len(data)}
	}

	if l.Type == HeaderRecordType {
		l.HeaderRecord = &HeaderRecord{
			TotalFiles: binary.BigEndian.Uint16(data[8:10]),
			Reserved:   binary.BigEndian.Uint32(data[10:14]),
			Offset:     binary.BigEndian.Uint16(data[14:16]),
		}
		if l.SequenceIndex == 0 {
			l.Extended = data[HeaderRecordLen:n]
		}
	} else {
		l.FileRecord = &FileRecord{
			FileID:   binary.BigEndian.Uint16(data[8:10]),
			FileSize: binary.BigEndian.Uint32(data[10:14]),
			Offset:   binary.BigEndian.Uint32(data[14:18]),
		}
	}

	l.BaseLayer = layers.BaseLayer{
		Contents: data[:n],
		Payload:  data[n:],
	}
	return nil
}

// SerializeTo prepends the record header to the bytes already in the buffer
func (l *MCastFSLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if l.Type != HeaderRecordType && l.Type != FileRecordType {
		return mcastfs.ErrUnsupportedRecordType{Type: uint8(l.Type)}
	}
	if l.Type == HeaderRecordType && l.HeaderRecord == nil {
		l.HeaderRecord = &HeaderRecord{}
	}
	if l.Type == FileRecordType && l.FileRecord == nil {
		return mcastfs.ErrMalformedRecord{What: "file record without file header"}
	}

	headerBytes, err := b.PrependBytes(l.headerLen())
	if err != nil {
		return err
	}
	for i := range headerBytes {
		headerBytes[i] = 0
	}
	binary.BigEndian.PutUint32(headerBytes[0:4], uint32(l.Type)<<24|l.RecordID&0x00ffffff)
	binary.BigEndian.PutUint16(headerBytes[4:6], l.SequenceIndex)
	binary.BigEndian.PutUint16(headerBytes[6:8], l.SequenceTotal)

	if l.Type == HeaderRecordType {
		binary.BigEndian.PutUint16(headerBytes[8:10], l.HeaderRecord.TotalFiles)
		binary.BigEndian.PutUint32(headerBytes[10:14], l.HeaderRecord.Reserved)
		binary.BigEndian.PutUint16(headerBytes[14:16], l.HeaderRecord.Offset)
		if l.SequenceIndex == 0 {
			copy(headerBytes[HeaderRecordLen:], l.Extended)
		}
		return nil
	}
	binary.BigEndian.PutUint16(headerBytes[8:10], l.FileRecord.FileID)
	binary.BigEndian.PutUint32(headerBytes[10:14], l.FileRecord.FileSize)
	binary.BigEndian.PutUint32(headerBytes[14:18], l.FileRecord.Offset)
	return nil
}

func DecodeMCastFSLayer(data []byte, p gopacket.PacketBuilder) error {
	l := &MCastFSLayer{}
	err := l.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(l)
	return p.NextDecoder(l.NextLayerType())
}
