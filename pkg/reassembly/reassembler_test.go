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
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-mcastfs/pkg/layers/layerstest"
	"jinr.ru/greenlab/go-mcastfs/pkg/mcastfs"
	"jinr.ru/greenlab/go-mcastfs/pkg/mcastfs/mcastfstest"
)

var entries = mcastfstest.Concat(
	mcastfstest.Entry(1, 0, mcastfstest.KindDirectory, "fw"),
	mcastfstest.Entry(2, 1, mcastfstest.KindFile, "a.txt"),
)

func ingest(t *testing.T, r *Reassembler, datagrams ...[]byte) {
	t.Helper()
	for _, d := range datagrams {
		_, err := r.Ingest(d)
		require.NoError(t, err)
	}
}

func TestIngestSession(t *testing.T) {
	r := New()
	header := layerstest.Header(0, 1, 1, entries)
	file := layerstest.File(2, 0, 1, 2, 0, []byte("hi"))

	stream, err := r.Ingest(header)
	require.NoError(t, err)
	require.NotNil(t, stream)
	assert.Equal(t, HeaderStreamID, stream.LogicalID)
	assert.False(t, r.Complete())
	assert.Equal(t, 1, r.Stats().ExpectedFiles)

	stream, err = r.Ingest(file)
	require.NoError(t, err)
	require.NotNil(t, stream)
	assert.Equal(t, uint16(2), stream.LogicalID)
	assert.True(t, r.Complete())

	path, err := r.Decoder().Tree.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, "fw/a.txt", path)
	require.Contains(t, r.Decoder().Files, uint16(2))
	assert.Equal(t, []byte("hi"), r.Decoder().Files[2].Bytes())
	assert.Empty(t, r.Pending())
}

func TestIngestFilesBeforeHeader(t *testing.T) {
	r := New()
	ingest(t, r, layerstest.File(2, 0, 1, 2, 0, []byte("hi")))
	assert.False(t, r.Complete())
	ingest(t, r, layerstest.Header(0, 1, 1, entries))
	assert.True(t, r.Complete())
}

func TestIngestDuplicates(t *testing.T) {
	var capture bytes.Buffer
	r := New(WithCapture(&capture))
	file := layerstest.File(2, 0, 2, 4, 0, []byte("ab"))

	ingest(t, r, file, file, file)
	stats := r.Stats()
	assert.Equal(t, 1, stats.Datagrams)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, file, capture.Bytes())
}

func TestIngestDistinctIndexes(t *testing.T) {
	r := New()
	ingest(t, r,
		layerstest.File(2, 0, 3, 6, 0, []byte("ab")),
		layerstest.File(2, 2, 3, 6, 4, []byte("ef")),
		// same index, different dedup key: kept but not counted twice
		layerstest.FileWithID(7, 2, 0, 3, 6, 0, []byte("ab")),
	)
	pending := r.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, StreamProgress{LogicalID: 2, Received: 2, Total: 3}, pending[0])

	stream, err := r.Ingest(layerstest.File(2, 1, 3, 6, 2, []byte("cd")))
	require.NoError(t, err)
	require.NotNil(t, stream)
	require.Len(t, stream.Records, 4)
	var indexes []uint16
	for _, record := range stream.Records {
		indexes = append(indexes, record.SequenceIndex)
	}
	assert.Equal(t, []uint16{0, 0, 1, 2}, indexes)
	assert.Equal(t, []byte("abcdef"), r.Decoder().Files[2].Bytes())
	assert.True(t, r.Decoder().Files[2].Complete())
}

func TestIngestHeaderAcrossRecords(t *testing.T) {
	first := mcastfstest.Entry(1, 0, mcastfstest.KindDirectory, "fw")
	second := mcastfstest.Entry(2, 1, mcastfstest.KindFile, "a.txt")
	r := New()
	ingest(t, r,
		layerstest.Header(1, 2, 1, second),
		layerstest.Header(0, 2, 1, first),
	)
	assert.True(t, r.Stats().HeaderComplete)
	path, err := r.Decoder().Tree.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, "fw/a.txt", path)
}

func TestIngestCompleteAfterLateStream(t *testing.T) {
	r := New()
	ingest(t, r,
		layerstest.Header(0, 1, 1, entries),
		layerstest.File(2, 0, 1, 2, 0, []byte("hi")),
	)
	require.True(t, r.Complete())

	// a stream the header never announced
	ingest(t, r, layerstest.File(9, 0, 2, 4, 0, []byte("zz")))
	assert.False(t, r.Complete())
}

func TestIngestUnsupportedRecordType(t *testing.T) {
	r := New()
	_, err := r.Ingest([]byte{0x02, 0, 0, 0, 0, 0, 0, 1, 0xAA, 0xBB})
	var unsupported mcastfs.ErrUnsupportedRecordType
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, uint8(0x02), unsupported.Type)
}

func TestIngestChunkOutsideFile(t *testing.T) {
	r := New()
	_, err := r.Ingest(layerstest.File(2, 0, 1, 2, 1, []byte("hi")))
	var malformed mcastfs.ErrMalformedRecord
	assert.True(t, errors.As(err, &malformed))
}

func TestFlushIncomplete(t *testing.T) {
	r := New()
	ingest(t, r,
		layerstest.Header(0, 1, 1, entries),
		layerstest.File(2, 1, 2, 4, 2, []byte("cd")),
	)
	require.NotContains(t, r.Decoder().Files, uint16(2))
	require.NoError(t, r.FlushIncomplete())

	buf := r.Decoder().Files[2]
	require.NotNil(t, buf)
	assert.Equal(t, uint32(2), buf.Covered())
	assert.False(t, buf.Complete())
	assert.False(t, r.Complete())
}

func TestIngestCopiesDatagram(t *testing.T) {
	r := New()
	file := layerstest.File(2, 0, 2, 4, 0, []byte("ab"))
	ingest(t, r, file)
	file[len(file)-1] = 'X'
	ingest(t, r, layerstest.File(2, 1, 2, 4, 2, []byte("cd")))
	assert.Equal(t, []byte("abcd"), r.Decoder().Files[2].Bytes())
}
