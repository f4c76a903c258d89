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
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fst "jinr.ru/greenlab/go-mcastfs/pkg/mcastfs/mcastfstest"
)

func TestDecodeContainerMinimal(t *testing.T) {
	data := fst.Container(
		fst.Entry(1, 0, fst.KindDirectory, "etc"),
		fst.Entry(2, 1, fst.KindFile, "a.txt"),
		fst.Data(2, 0, 2, 0, []byte("hi")),
	)

	tree, files, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint16(3), decodeFor(t, data).RecordCount)

	dir, ok := tree.Entry(1)
	require.True(t, ok)
	assert.Equal(t, KindDirectory, dir.Kind)
	assert.Equal(t, "etc", dir.Name)

	path, err := tree.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, "etc/a.txt", path)

	require.Contains(t, files, uint16(2))
	assert.Equal(t, []byte("hi"), files[2].Bytes())
	assert.True(t, files[2].Complete())
}

// decodeFor decodes data and returns the decoder for state inspection
func decodeFor(t *testing.T, data []byte) *Decoder {
	t.Helper()
	d := NewDecoder()
	require.NoError(t, d.DecodeContainer(data))
	assert.Equal(t, StateDone, d.State())
	return d
}

func TestDecodeEntryNames(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		expected string
	}{
		{name: "trailing NUL stripped", raw: []byte("bin\x00"), expected: "bin"},
		{name: "no NUL", raw: []byte("bin"), expected: "bin"},
		{name: "only one NUL stripped", raw: []byte("bin\x00\x00"), expected: "bin\x00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			require.NoError(t, d.DecodeHeaderRecord(fst.RawEntry(7, 0, fst.KindDirectory, tt.raw)))
			e, ok := d.Tree.Entry(7)
			require.True(t, ok)
			assert.Equal(t, tt.expected, e.Name)
		})
	}
}

func TestDecodeEntryFirstSeenWins(t *testing.T) {
	d := NewDecoder()
	err := d.DecodeHeaderRecord(fst.Concat(
		fst.Entry(5, 0, fst.KindFile, "first"),
		fst.Entry(5, 0, fst.KindDirectory, "second"),
		fst.Entry(5, 0, fst.KindFile, "third"),
	))
	require.NoError(t, err)
	e, ok := d.Tree.Entry(5)
	require.True(t, ok)
	assert.Equal(t, "first", e.Name)
	assert.Equal(t, KindFile, e.Kind)
	assert.Equal(t, 1, d.Tree.Len())
}

func TestDecodeEntryUnclassified(t *testing.T) {
	d := NewDecoder()
	err := d.DecodeHeaderRecord(fst.Concat(
		fst.RawEntry(1, 0, fst.KindDirectory, nil),
		fst.Entry(2, 0, 0xA1, "link"),
		fst.Entry(3, 0, fst.KindFile, "kept"),
	))
	require.NoError(t, err)
	_, ok := d.Tree.Entry(1)
	assert.False(t, ok, "entry without a name stays unclassified")
	_, ok = d.Tree.Entry(2)
	assert.False(t, ok, "unknown kind is dropped")
	_, ok = d.Tree.Entry(3)
	assert.True(t, ok)
}

func TestDecodeEntryNegativeNameLength(t *testing.T) {
	unnamed := fst.RawEntry(1, 0, fst.KindFile, nil)
	binary.BigEndian.PutUint16(unnamed[20:22], 0x8000)
	d := NewDecoder()
	err := d.DecodeHeaderRecord(fst.Concat(
		unnamed,
		fst.Entry(3, 0, fst.KindFile, "kept"),
	))
	require.NoError(t, err)
	_, ok := d.Tree.Entry(1)
	assert.False(t, ok)
	entry, ok := d.Tree.Entry(3)
	require.True(t, ok)
	assert.Equal(t, "kept", entry.Name)
}

func TestDecodeAuxiliarySegmentSkipped(t *testing.T) {
	d := NewDecoder()
	err := d.DecodeContainer(fst.Container(
		fst.Auxiliary(),
		fst.Entry(1, 0, fst.KindFile, "x"),
	))
	require.NoError(t, err)
	_, ok := d.Tree.Entry(1)
	assert.True(t, ok)
	assert.Empty(t, d.Files)
}

func TestDecodeOutOfOrderChunks(t *testing.T) {
	first := fst.Data(9, 0, 8, 0, []byte("abcd"))
	second := fst.Data(9, 1, 8, 4, []byte("efgh"))

	inOrder := NewDecoder()
	require.NoError(t, inOrder.DecodeContainer(fst.Container(first, second)))
	reversed := NewDecoder()
	require.NoError(t, reversed.DecodeContainer(fst.Container(second, first)))

	assert.Equal(t, []byte("abcdefgh"), inOrder.Files[9].Bytes())
	assert.Equal(t, inOrder.Files[9].Bytes(), reversed.Files[9].Bytes())
}

func TestDecodePartialFile(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.DecodeContainer(fst.Container(
		fst.Data(4, 1, 6, 2, []byte("xy")),
		// later size claims are not reconciled
		fst.Data(4, 2, 100, 4, []byte("z")),
	)))
	buf := d.Files[4]
	assert.Equal(t, uint32(6), buf.Capacity())
	assert.Equal(t, []byte{0, 0, 'x', 'y', 'z', 0}, buf.Bytes())
	assert.Equal(t, uint32(3), buf.Covered())
	assert.False(t, buf.Complete())
}

func TestDecodeUnsupportedSegmentType(t *testing.T) {
	d := NewDecoder()
	err := d.DecodeContainer(fst.Container(
		fst.Entry(1, 0, fst.KindDirectory, "bin"),
		fst.Entry(2, 1, fst.KindFile, "sh"),
		fst.Segment(0x0999, 32, make([]byte, 16)),
		fst.Entry(3, 1, fst.KindFile, "never"),
	))
	var segErr ErrUnsupportedSegmentType
	require.True(t, errors.As(err, &segErr))
	assert.Equal(t, uint16(0x0999), segErr.Type)
	assert.Equal(t, StateFailed, d.State())

	path, err := d.Tree.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, "bin/sh", path)
	_, ok := d.Tree.Entry(3)
	assert.False(t, ok)
}

func TestDecodeTruncatedPayload(t *testing.T) {
	record := fst.Data(3, 0, 10, 0, []byte("0123456789"))
	d := NewDecoder()
	err := d.DecodeContainer(fst.Container(record[:len(record)-4]))
	var truncated ErrTruncatedPayload
	require.True(t, errors.As(err, &truncated))
	assert.Equal(t, uint16(3), truncated.FileID)
	assert.Equal(t, 10, truncated.Want)
	assert.Equal(t, 6, truncated.Remaining)
}

func TestDecodeChunkOutsideBuffer(t *testing.T) {
	d := NewDecoder()
	err := d.DecodeContainer(fst.Container(fst.Data(3, 0, 4, 2, []byte("abc"))))
	var malformed ErrMalformedRecord
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 2, malformed.Offset)
	assert.Equal(t, 3, malformed.Need)
	assert.Equal(t, 2, malformed.Remaining)
	assert.Equal(t, "Malformed record at offset 0x00000002: file 0x0003 chunk [2, 5) of a 4 byte file needs 3 bytes, 2 remaining",
		err.Error())
}

func TestDecodeUnsupportedRecordType(t *testing.T) {
	entry := fst.Entry(1, 0, fst.KindDirectory, "bin")
	data := fst.Container(entry, []byte{0x07, 0xAA, 0xBB})
	d := NewDecoder()
	err := d.DecodeContainer(data)

	var typeErr ErrUnsupportedRecordType
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, uint8(0x07), typeErr.Type)
	assert.Equal(t, PreambleLen+len(entry)+1, typeErr.Offset)
	assert.Equal(t, 2, typeErr.Remaining)
	assert.Len(t, typeErr.Before, 16)
	assert.Equal(t, []byte{0xAA, 0xBB}, typeErr.After)
	assert.Contains(t, typeErr.Dump(), "07 * AA BB")
}

func TestDecodeMalformed(t *testing.T) {
	t.Run("short preamble", func(t *testing.T) {
		d := NewDecoder()
		err := d.DecodeContainer(make([]byte, 20))
		var malformed ErrMalformedRecord
		require.True(t, errors.As(err, &malformed))
		assert.Equal(t, StateFailed, d.State())
	})
	t.Run("short entry", func(t *testing.T) {
		entry := fst.Entry(1, 0, fst.KindFile, "name")
		d := NewDecoder()
		err := d.DecodeHeaderRecord(entry[:10])
		var malformed ErrMalformedRecord
		assert.True(t, errors.As(err, &malformed))
	})
	t.Run("name longer than record", func(t *testing.T) {
		entry := fst.Entry(1, 0, fst.KindFile, "name")
		d := NewDecoder()
		err := d.DecodeHeaderRecord(entry[:len(entry)-2])
		var malformed ErrMalformedRecord
		assert.True(t, errors.As(err, &malformed))
	})
	t.Run("segment shorter than header", func(t *testing.T) {
		record := fst.Data(1, 0, 4, 0, nil)
		record[3] = 10
		d := NewDecoder()
		err := d.DecodeContainer(fst.Container(record))
		var malformed ErrMalformedRecord
		assert.True(t, errors.As(err, &malformed))
	})
}

func TestDecodeEmptyContainer(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.DecodeContainer(fst.Container()))
	assert.Equal(t, StateDone, d.State())
	assert.Equal(t, 0, d.Tree.Len())
}
