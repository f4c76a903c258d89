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

package reassembly

import (
	"container/list"

	"jinr.ru/greenlab/go-mcastfs/pkg/layers"
	"jinr.ru/greenlab/go-mcastfs/pkg/log"
)

/*
 The builder keeps the records of one logical stream in a linked list sorted by
 sequence index, the same way MStream fragments are kept until the frame can be
 assembled. Records with an index already present are kept and placed after the
 existing ones; completion counts distinct indexes only.
*/

// StreamBuilder holds the records received so far for one logical id
type StreamBuilder struct {
	LogicalID uint16
	// Total is the sequence total declared by the first record seen
	Total     uint16
	Parts     *list.List
	Highest   uint16
	Completed bool
	indexes   map[uint16]struct{}
}

func NewStreamBuilder(logicalID uint16) *StreamBuilder {
	return &StreamBuilder{
		LogicalID: logicalID,
		Parts:     list.New(),
		indexes:   make(map[uint16]struct{}),
	}
}

// Received is the number of distinct sequence indexes seen
func (b *StreamBuilder) Received() int {
	return len(b.indexes)
}

// HandleRecord inserts the record and returns true when the stream has just completed
func (b *StreamBuilder) HandleRecord(r *layers.MCastFSLayer) bool {
	if b.Completed {
		log.Debug("Stream 0x%04x already completed, dropping record %d", b.LogicalID, r.SequenceIndex)
		return false
	}
	if len(b.indexes) == 0 {
		b.Total = r.SequenceTotal
	} else if r.SequenceTotal != b.Total {
		log.Warning("Stream 0x%04x: record %d declares total %d, keeping %d",
			b.LogicalID, r.SequenceIndex, r.SequenceTotal, b.Total)
	}

	if b.Parts.Len() == 0 || r.SequenceIndex >= b.Highest {
		b.Parts.PushBack(r)
		b.Highest = r.SequenceIndex
	} else {
		log.Debug("Record not in order: stream 0x%04x index %d", b.LogicalID, r.SequenceIndex)
		for e := b.Parts.Front(); e != nil; e = e.Next() {
			// the list contains only MCastFS records
			part, _ := e.Value.(*layers.MCastFSLayer)
			if r.SequenceIndex < part.SequenceIndex {
				b.Parts.InsertBefore(r, e)
				break
			}
		}
	}

	if _, ok := b.indexes[r.SequenceIndex]; ok {
		log.Debug("Record duplication: stream 0x%04x index %d", b.LogicalID, r.SequenceIndex)
	}
	b.indexes[r.SequenceIndex] = struct{}{}

	if !b.Completed && len(b.indexes) == int(b.Total) {
		log.Debug("Stream completed: 0x%04x records: %d", b.LogicalID, b.Parts.Len())
		b.Completed = true
		return true
	}
	return false
}

// Records returns the records sorted by sequence index
func (b *StreamBuilder) Records() []*layers.MCastFSLayer {
	records := make([]*layers.MCastFSLayer, 0, b.Parts.Len())
	for e := b.Parts.Front(); e != nil; e = e.Next() {
		r, _ := e.Value.(*layers.MCastFSLayer)
		records = append(records, r)
	}
	return records
}

// Release drops the buffered records, the progress counters are kept
func (b *StreamBuilder) Release() {
	b.Parts = list.New()
}

// Stream is a logical stream whose records are all received
type Stream struct {
	LogicalID uint16
	Records   []*layers.MCastFSLayer
}

// StreamProgress describes a stream that is not complete yet
type StreamProgress struct {
	LogicalID uint16 `json:"logicalId"`
	Received  int    `json:"received"`
	Total     uint16 `json:"total"`
}
