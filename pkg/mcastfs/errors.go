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
	"strings"
)

// ErrMalformedRecord returned when a fixed width field does not fit into the remaining bytes,
// or a chunk does not fit into its file. Offset is the position in the container for the
// former and the position in the file for the latter.
type ErrMalformedRecord struct {
	What      string
	Offset    int
	Need      int
	Remaining int
}

func (e ErrMalformedRecord) Error() string {
	if e.Need == 0 {
		return fmt.Sprintf("Malformed record: %s", e.What)
	}
	return fmt.Sprintf("Malformed record at offset 0x%08x: %s needs %d bytes, %d remaining",
		e.Offset, e.What, e.Need, e.Remaining)
}

// ErrUnsupportedRecordType returned when the leading type byte of a record is unknown.
// Before and After hold up to 16 bytes around the cursor for manual analysis of the format.
type ErrUnsupportedRecordType struct {
	Type      uint8
	Offset    int
	Remaining int
	Before    []byte
	After     []byte
}

func (e ErrUnsupportedRecordType) Error() string {
	return fmt.Sprintf("Unsupported record type 0x%02x at offset 0x%08x, remaining 0x%08x",
		e.Type, e.Offset, e.Remaining)
}

// Dump formats the bytes around the failure point as "before * after"
func (e ErrUnsupportedRecordType) Dump() string {
	var sb strings.Builder
	for _, b := range e.Before {
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteString("* ")
	for _, b := range e.After {
		fmt.Fprintf(&sb, "%02X ", b)
	}
	return strings.TrimSpace(sb.String())
}

// ErrUnsupportedSegmentType returned for a data record whose segment type is unknown
type ErrUnsupportedSegmentType struct {
	Type   uint16
	Offset int
}

func (e ErrUnsupportedSegmentType) Error() string {
	return fmt.Sprintf("Unsupported data segment type 0x%04x at offset 0x%08x", e.Type, e.Offset)
}

// ErrTruncatedPayload returned when a file data segment claims more bytes than the stream holds
type ErrTruncatedPayload struct {
	FileID    uint16
	Offset    int
	Want      int
	Remaining int
}

func (e ErrTruncatedPayload) Error() string {
	return fmt.Sprintf("Truncated payload for file 0x%04x at offset 0x%08x: want %d bytes, %d remaining",
		e.FileID, e.Offset, e.Want, e.Remaining)
}

// ErrUnresolvedParent is not fatal. Partial is the path made of the components that could be resolved.
type ErrUnresolvedParent struct {
	ID       uint16
	ParentID uint16
	Partial  string
}

func (e ErrUnresolvedParent) Error() string {
	return fmt.Sprintf("Unresolved parent 0x%04x for entry 0x%04x, using partial path %q",
		e.ParentID, e.ID, e.Partial)
}

type ErrEntryNotFound struct {
	ID uint16
}

func (e ErrEntryNotFound) Error() string {
	return fmt.Sprintf("Entry not found: 0x%04x", e.ID)
}
