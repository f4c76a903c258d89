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

// Package capture reads and writes raw datagram captures.
// A capture is a sequence of records, each one a big endian u32 length followed by
// the datagram bytes exactly as received.
package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"jinr.ru/greenlab/go-mcastfs/pkg/log"
)

const (
	LengthPrefixLen = 4
	MaxRecordLen    = 65535
)

// Writer appends one record per Write call
type Writer struct {
	file    *os.File
	w       *bufio.Writer
	Records int
}

func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		log.Error("Error while creating file: %s", filename)
		return nil, err
	}
	w := NewStreamWriter(file)
	w.file = file
	return w, nil
}

// NewStreamWriter writes records to out. Close flushes but does not close out.
func NewStreamWriter(out io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(out)}
}

func (w *Writer) Write(datagram []byte) (int, error) {
	var prefix [LengthPrefixLen]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(datagram)))
	if _, err := w.w.Write(prefix[:]); err != nil {
		return 0, err
	}
	n, err := w.w.Write(datagram)
	if err != nil {
		return n, err
	}
	w.Records++
	return n, nil
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}

func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	log.Debug("Capture %s closed: %d records", w.file.Name(), w.Records)
	return w.file.Close()
}

// Reader iterates the records of a capture
type Reader struct {
	file   *os.File
	r      *bufio.Reader
	offset int64
}

func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	r := NewReader(file)
	r.file = file
	return r, nil
}

func NewReader(in io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(in)}
}

// ReadDatagram returns the next record. It returns io.EOF after the last complete record.
func (r *Reader) ReadDatagram() ([]byte, error) {
	var prefix [LengthPrefixLen]byte
	n, err := io.ReadFull(r.r, prefix[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedCapture{Offset: r.offset, Want: LengthPrefixLen, Got: n}
		}
		return nil, err
	}
	length := binary.BigEndian.Uint32(prefix[:])
	if length > MaxRecordLen {
		return nil, ErrRecordTooLong{Offset: r.offset, Length: length}
	}
	datagram := make([]byte, length)
	n, err = io.ReadFull(r.r, datagram)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedCapture{Offset: r.offset, Want: int(length), Got: n}
		}
		return nil, err
	}
	r.offset += LengthPrefixLen + int64(length)
	return datagram, nil
}

func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
