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
	"encoding/binary"
)

const diagnosticWindow = 16

// cursor walks a big endian byte stream. The first failed read is sticky:
// all later reads return zero values and err keeps the original failure.
type cursor struct {
	data []byte
	pos  int
	err  error
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

func (c *cursor) remaining() int {
	return len(c.data) - c.pos
}

func (c *cursor) take(n int, what string) []byte {
	if c.err != nil {
		return nil
	}
	if n > c.remaining() {
		c.err = ErrMalformedRecord{What: what, Offset: c.pos, Need: n, Remaining: c.remaining()}
		return nil
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) u8(what string) uint8 {
	b := c.take(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u16(what string) uint16 {
	b := c.take(2, what)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (c *cursor) u32(what string) uint32 {
	b := c.take(4, what)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (c *cursor) skip(n int, what string) {
	c.take(n, what)
}

// around returns up to diagnosticWindow bytes on each side of the cursor
func (c *cursor) around() (before, after []byte) {
	start := c.pos - diagnosticWindow
	if start < 0 {
		start = 0
	}
	end := c.pos + diagnosticWindow
	if end > len(c.data) {
		end = len(c.data)
	}
	before = append([]byte(nil), c.data[start:c.pos]...)
	after = append([]byte(nil), c.data[c.pos:end]...)
	return before, after
}
