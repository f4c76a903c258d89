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
	"fmt"
	"sort"
)

type span struct {
	start, end uint32
}

// FileBuffer holds the content of one file. Capacity is fixed when the buffer is
// allocated; chunks are placed at their declared offset and the last write wins.
type FileBuffer struct {
	data   []byte
	chunks int
	// sorted, non overlapping, non adjacent ranges written so far
	covered []span
}

func NewFileBuffer(capacity uint32) *FileBuffer {
	return &FileBuffer{
		data: make([]byte, capacity),
	}
}

func (b *FileBuffer) Capacity() uint32 {
	return uint32(len(b.data))
}

// Bytes returns the whole buffer. Bytes never written are zero.
func (b *FileBuffer) Bytes() []byte {
	return b.data
}

// Chunks is the number of successful writes
func (b *FileBuffer) Chunks() int {
	return b.chunks
}

func (b *FileBuffer) Write(offset uint32, chunk []byte) error {
	end := uint64(offset) + uint64(len(chunk))
	if end > uint64(len(b.data)) {
		remaining := 0
		if uint64(offset) < uint64(len(b.data)) {
			remaining = len(b.data) - int(offset)
		}
		return ErrMalformedRecord{
			What:      fmt.Sprintf("chunk [%d, %d) of a %d byte file", offset, end, len(b.data)),
			Offset:    int(offset),
			Need:      len(chunk),
			Remaining: remaining,
		}
	}
	copy(b.data[offset:], chunk)
	b.chunks++
	if len(chunk) > 0 {
		b.cover(span{start: offset, end: uint32(end)})
	}
	return nil
}

func (b *FileBuffer) cover(s span) {
	i := sort.Search(len(b.covered), func(i int) bool { return b.covered[i].end >= s.start })
	j := i
	for j < len(b.covered) && b.covered[j].start <= s.end {
		if b.covered[j].start < s.start {
			s.start = b.covered[j].start
		}
		if b.covered[j].end > s.end {
			s.end = b.covered[j].end
		}
		j++
	}
	merged := append([]span{}, b.covered[:i]...)
	merged = append(merged, s)
	b.covered = append(merged, b.covered[j:]...)
}

// Covered is the number of distinct bytes written at least once
func (b *FileBuffer) Covered() uint32 {
	var total uint32
	for _, s := range b.covered {
		total += s.end - s.start
	}
	return total
}

func (b *FileBuffer) Complete() bool {
	return b.Covered() == b.Capacity()
}

// Files maps file entry ids to their content buffers
type Files map[uint16]*FileBuffer
