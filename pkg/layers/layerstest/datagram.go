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

// Package layerstest serializes MCastFSv2 datagrams for tests
package layerstest

import (
	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-mcastfs/pkg/layers"
)

func serialize(l *layers.MCastFSLayer, payload []byte) []byte {
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, l, gopacket.Payload(payload)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Header builds a header record carrying entries. Index 0 gets the extended preamble.
func Header(index, total, totalFiles uint16, entries []byte) []byte {
	return serialize(&layers.MCastFSLayer{
		Type:         layers.HeaderRecordType,
		RecordHeader: layers.RecordHeader{SequenceIndex: index, SequenceTotal: total},
		HeaderRecord: &layers.HeaderRecord{TotalFiles: totalFiles},
	}, entries)
}

// File builds a file record carrying chunk at offset
func File(fileID, index, total uint16, fileSize, offset uint32, chunk []byte) []byte {
	return FileWithID(0, fileID, index, total, fileSize, offset, chunk)
}

// FileWithID sets the low bytes of the record id, which makes the dedup key differ
// from a record with the same index
func FileWithID(recordID uint32, fileID, index, total uint16, fileSize, offset uint32, chunk []byte) []byte {
	return serialize(&layers.MCastFSLayer{
		Type:         layers.FileRecordType,
		RecordHeader: layers.RecordHeader{RecordID: recordID, SequenceIndex: index, SequenceTotal: total},
		FileRecord:   &layers.FileRecord{FileID: fileID, FileSize: fileSize, Offset: offset},
	}, chunk)
}
