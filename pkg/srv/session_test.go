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

package srv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-mcastfs/pkg/layers/layerstest"
	"jinr.ru/greenlab/go-mcastfs/pkg/mcastfs"
	"jinr.ru/greenlab/go-mcastfs/pkg/mcastfs/mcastfstest"
	"jinr.ru/greenlab/go-mcastfs/pkg/reassembly"
	"jinr.ru/greenlab/go-mcastfs/pkg/source"
)

type fakeSource struct {
	datagrams [][]byte
	// err is returned once the datagrams are consumed, io.EOF when nil
	err error
}

func (f *fakeSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	if len(f.datagrams) == 0 {
		if f.err == nil {
			return nil, gopacket.CaptureInfo{}, io.EOF
		}
		return nil, gopacket.CaptureInfo{}, f.err
	}
	data := f.datagrams[0]
	f.datagrams = f.datagrams[1:]
	return data, gopacket.CaptureInfo{Length: len(data), CaptureLength: len(data)}, nil
}

var entries = mcastfstest.Concat(
	mcastfstest.Entry(1, 0, mcastfstest.KindDirectory, "fw"),
	mcastfstest.Entry(2, 1, mcastfstest.KindFile, "a.txt"),
	mcastfstest.Entry(3, 1, mcastfstest.KindFile, "b.bin"),
)

func session() [][]byte {
	return [][]byte{
		layerstest.Header(0, 1, 2, entries),
		layerstest.File(2, 0, 1, 2, 0, []byte("hi")),
		layerstest.File(3, 0, 2, 4, 0, []byte("ab")),
		layerstest.File(3, 0, 2, 4, 0, []byte("ab")),
		layerstest.File(3, 1, 2, 4, 2, []byte("cd")),
		// never read, the session is complete before
		{0x7F},
	}
}

func TestSessionComplete(t *testing.T) {
	s := NewSession(reassembly.New())
	outcome, err := s.Run(context.Background(), &fakeSource{datagrams: session()})
	require.NoError(t, err)
	assert.Equal(t, OutcomeComplete, outcome)

	snapshot := s.Progress.Snapshot()
	assert.Equal(t, OutcomeComplete, snapshot.Outcome)
	assert.Equal(t, 4, snapshot.Stats.Datagrams)
	assert.Equal(t, 1, snapshot.Stats.Duplicates)
	assert.Equal(t, 3, snapshot.Entries)
	assert.Empty(t, snapshot.Pending)

	files := s.Progress.Files()
	require.Len(t, files, 2)
	assert.Equal(t, FileStatus{ID: 2, Path: "fw/a.txt", Size: 2, Covered: 2, Complete: true}, files[0])
	assert.Equal(t, []byte("abcd"), s.Reassembler.Decoder().Files[3].Bytes())
}

func TestSessionEndOfSource(t *testing.T) {
	datagrams := session()[:3]
	s := NewSession(reassembly.New())
	outcome, err := s.Run(context.Background(), &fakeSource{datagrams: datagrams})
	require.NoError(t, err)
	assert.Equal(t, OutcomeEndOfSource, outcome)

	// the incomplete stream is flushed for partial recovery
	buf := s.Reassembler.Decoder().Files[3]
	require.NotNil(t, buf)
	assert.Equal(t, uint32(2), buf.Covered())
	snapshot := s.Progress.Snapshot()
	require.Len(t, snapshot.Pending, 1)
	assert.Equal(t, uint16(3), snapshot.Pending[0].LogicalID)
}

func TestSessionReceiveTimeout(t *testing.T) {
	timeout := source.ErrReceiveTimeout{Timeout: 5 * time.Second}
	s := NewSession(reassembly.New())
	outcome, err := s.Run(context.Background(), &fakeSource{datagrams: session()[:2], err: timeout})
	assert.Equal(t, OutcomeFailed, outcome)
	var receiveTimeout source.ErrReceiveTimeout
	require.True(t, errors.As(err, &receiveTimeout))
	assert.Equal(t, []byte("hi"), s.Reassembler.Decoder().Files[2].Bytes())
}

func TestSessionStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSession(reassembly.New())
	outcome, err := s.Run(ctx, &fakeSource{datagrams: session()})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStopped, outcome)
	assert.Equal(t, 0, s.Reassembler.Stats().Datagrams)
}

func TestSessionMalformedDatagram(t *testing.T) {
	s := NewSession(reassembly.New())
	outcome, err := s.Run(context.Background(), &fakeSource{datagrams: [][]byte{
		layerstest.Header(0, 1, 2, entries),
		{0x03, 0x00},
	}})
	assert.Equal(t, OutcomeRejected, outcome)
	var malformed mcastfs.ErrMalformedRecord
	require.True(t, errors.As(err, &malformed))
	// entries decoded before the failure stay available
	assert.Equal(t, 3, s.Reassembler.Decoder().Tree.Len())
	assert.Equal(t, OutcomeRejected, s.Progress.Snapshot().Outcome)
}

func TestApiServer(t *testing.T) {
	s := NewSession(reassembly.New())
	_, err := s.Run(context.Background(), &fakeSource{datagrams: session()})
	require.NoError(t, err)

	server := httptest.NewServer(NewApiServer("127.0.0.1:0", s.Progress).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + ApiPrefix + ProgressPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var snapshot Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	assert.Equal(t, OutcomeComplete, snapshot.Outcome)
	assert.Equal(t, 2, snapshot.Stats.ExpectedFiles)

	resp, err = http.Get(server.URL + ApiPrefix + FilesPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	var files []FileStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&files))
	require.Len(t, files, 2)
	assert.Equal(t, "fw/b.bin", files[1].Path)

	resp, err = http.Post(server.URL+ApiPrefix+FilesPath, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestApiServerEmptyFiles(t *testing.T) {
	server := httptest.NewServer(NewApiServer("127.0.0.1:0", NewProgress()).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + ApiPrefix + FilesPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", body.String())
}

func TestApiServerRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewApiServer("127.0.0.1:0", NewProgress()).Run(ctx)
	}()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("API server did not stop")
	}
}

func TestCarousel(t *testing.T) {
	datagrams, err := ReadAll(&fakeSource{datagrams: session()[:3]})
	require.NoError(t, err)
	require.Len(t, datagrams, 3)

	var out bytes.Buffer
	c := &Carousel{Out: &out, Rounds: 2}
	require.NoError(t, c.Run(context.Background(), datagrams))
	assert.Equal(t, 6, c.Sent)
	expected := append(append([]byte(nil), bytes.Join(datagrams, nil)...), bytes.Join(datagrams, nil)...)
	assert.Equal(t, expected, out.Bytes())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c = &Carousel{Out: &out, Interval: time.Millisecond}
	assert.ErrorIs(t, c.Run(ctx, datagrams), context.Canceled)
}
