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
	"fmt"
	"io"
	"sort"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-mcastfs/pkg/layers"
	"jinr.ru/greenlab/go-mcastfs/pkg/log"
	"jinr.ru/greenlab/go-mcastfs/pkg/mcastfs"
)

const (
	// DedupKeyLen is the number of leading datagram bytes used to detect duplicates.
	// Two different datagrams sharing these bytes are indistinguishable.
	DedupKeyLen = 10
	// MaxDatagramLen is the largest datagram sent by the firmware server
	MaxDatagramLen = 1500
	// HeaderStreamID is the logical id of the stream carrying the entries
	HeaderStreamID uint16 = 0
)

// Stats is a snapshot of the session counters
type Stats struct {
	Datagrams       int  `json:"datagrams"`
	Duplicates      int  `json:"duplicates"`
	Streams         int  `json:"streams"`
	CompleteStreams int  `json:"completeStreams"`
	HeaderComplete  bool `json:"headerComplete"`
	// ExpectedFiles is known once the header stream is complete
	ExpectedFiles int `json:"expectedFiles"`
}

// Reassembler turns deduplicated datagrams into complete logical streams.
// It is not safe for concurrent use: one receive loop owns it.
type Reassembler struct {
	keys    map[string]struct{}
	streams map[uint16]*StreamBuilder
	decoder *mcastfs.Decoder
	capture io.Writer
	stats   Stats
}

type Option func(*Reassembler)

// WithCapture mirrors every accepted datagram to w, one Write call per datagram
func WithCapture(w io.Writer) Option {
	return func(r *Reassembler) {
		r.capture = w
	}
}

// WithDecoder makes the reassembler fill an existing decoder
func WithDecoder(d *mcastfs.Decoder) Option {
	return func(r *Reassembler) {
		r.decoder = d
	}
}

func New(opts ...Option) *Reassembler {
	r := &Reassembler{
		keys:    make(map[string]struct{}),
		streams: make(map[uint16]*StreamBuilder),
		decoder: mcastfs.NewDecoder(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reassembler) SetCapture(w io.Writer) {
	r.capture = w
}

// Decoder holds the entries and file buffers reassembled so far
func (r *Reassembler) Decoder() *mcastfs.Decoder {
	return r.decoder
}

func (r *Reassembler) Stats() Stats {
	return r.stats
}

func dedupKey(datagram []byte) string {
	n := len(datagram)
	if n > DedupKeyLen {
		n = DedupKeyLen
	}
	return string(datagram[:n])
}

// Ingest handles one datagram. It returns the stream completed by this datagram, if any.
// Errors are fatal for the session: the datagram does not match the format.
func (r *Reassembler) Ingest(datagram []byte) (*Stream, error) {
	key := dedupKey(datagram)
	if _, ok := r.keys[key]; ok {
		r.stats.Duplicates++
		return nil, nil
	}
	r.keys[key] = struct{}{}
	r.stats.Datagrams++

	data := make([]byte, len(datagram))
	copy(data, datagram)

	if r.capture != nil {
		if _, err := r.capture.Write(data); err != nil {
			return nil, fmt.Errorf("capture: %w", err)
		}
	}

	record := &layers.MCastFSLayer{}
	if err := record.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, err
	}

	id := record.LogicalID()
	builder, ok := r.streams[id]
	if !ok {
		log.Debug("New stream: 0x%04x type: %s total: %d", id, record.Type, record.SequenceTotal)
		builder = NewStreamBuilder(id)
		r.streams[id] = builder
		r.stats.Streams++
	}
	if !builder.HandleRecord(record) {
		return nil, nil
	}
	r.stats.CompleteStreams++

	stream := &Stream{LogicalID: id, Records: builder.Records()}
	builder.Release()
	if id == HeaderStreamID {
		return stream, r.closeHeaderStream(stream)
	}
	return stream, r.closeFileStream(stream)
}

// closeHeaderStream decodes the entries and derives the number of file streams to wait for
func (r *Reassembler) closeHeaderStream(stream *Stream) error {
	var declared uint16
	for _, record := range stream.Records {
		if record.HeaderRecord != nil {
			declared = record.HeaderRecord.TotalFiles
		}
		if err := r.decoder.DecodeHeaderRecord(record.LayerPayload()); err != nil {
			return err
		}
	}
	r.stats.HeaderComplete = true
	r.stats.ExpectedFiles = len(r.decoder.Tree.Files())
	if int(declared) != r.stats.ExpectedFiles {
		log.Debug("Header declares %d files, %d file entries decoded", declared, r.stats.ExpectedFiles)
	}
	log.Debug("Header stream complete: %d entries, %d files", r.decoder.Tree.Len(), r.stats.ExpectedFiles)
	return nil
}

func (r *Reassembler) closeFileStream(stream *Stream) error {
	return r.writeRecords(stream.Records)
}

func (r *Reassembler) writeRecords(records []*layers.MCastFSLayer) error {
	for _, record := range records {
		f := record.FileRecord
		if err := r.decoder.WriteChunk(f.FileID, f.FileSize, f.Offset, record.LayerPayload()); err != nil {
			return err
		}
	}
	return nil
}

// Complete reports whether every file announced by the header stream has been received
func (r *Reassembler) Complete() bool {
	return r.stats.HeaderComplete &&
		r.stats.Streams == r.stats.ExpectedFiles+1 &&
		r.stats.CompleteStreams == r.stats.Streams
}

// Pending lists the streams that are not complete, sorted by logical id
func (r *Reassembler) Pending() []StreamProgress {
	var pending []StreamProgress
	for id, b := range r.streams {
		if !b.Completed {
			pending = append(pending, StreamProgress{LogicalID: id, Received: b.Received(), Total: b.Total})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].LogicalID < pending[j].LogicalID })
	return pending
}

// FlushIncomplete writes the records of incomplete file streams into their buffers,
// so partially received files can still be extracted. The header stream is decoded
// as far as its records allow.
func (r *Reassembler) FlushIncomplete() error {
	for _, p := range r.Pending() {
		b := r.streams[p.LogicalID]
		records := b.Records()
		b.Release()
		if p.LogicalID == HeaderStreamID {
			for _, record := range records {
				if err := r.decoder.DecodeHeaderRecord(record.LayerPayload()); err != nil {
					return err
				}
			}
			continue
		}
		log.Warning("Stream 0x%04x incomplete: %d of %d records", p.LogicalID, p.Received, p.Total)
		if err := r.writeRecords(records); err != nil {
			return err
		}
	}
	return nil
}
