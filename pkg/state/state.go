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

// Package state keeps the journal of a receive session in a bbolt database:
// the accepted datagrams, so an interrupted session can be resumed, and the
// outcome of every extracted file.
package state

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-mcastfs/pkg/log"
)

const (
	DatagramsBucket = "datagrams"
	ExtractedBucket = "extracted"
	// FlushEvery is the number of buffered datagrams written in one transaction
	FlushEvery = 256
)

// Record is the outcome of one extracted file
type Record struct {
	Path       string `json:"path"`
	Size       int    `json:"size"`
	Compressed bool   `json:"compressed,omitempty"`
	Issue      string `json:"issue,omitempty"`
}

type SessionState struct {
	DB      *bbolt.DB
	pending [][]byte
}

func NewSessionState(path string) (*SessionState, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{DatagramsBucket, ExtractedBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &SessionState{DB: db}, nil
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func bucket(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, ErrBucketNotFound{Name: name}
	}
	return b, nil
}

// Write journals one datagram, so the state can be used as a capture sink
func (s *SessionState) Write(datagram []byte) (int, error) {
	if err := s.AppendDatagram(datagram); err != nil {
		return 0, err
	}
	return len(datagram), nil
}

// AppendDatagram buffers the datagram and writes the buffer every FlushEvery datagrams
func (s *SessionState) AppendDatagram(datagram []byte) error {
	s.pending = append(s.pending, datagram)
	if len(s.pending) >= FlushEvery {
		return s.Flush()
	}
	return nil
}

// Flush writes the buffered datagrams in arrival order
func (s *SessionState) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, DatagramsBucket)
		if err != nil {
			return err
		}
		for _, datagram := range s.pending {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(uint64ToByte(seq), datagram); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	log.Debug("Journal: %d datagrams written", len(s.pending))
	s.pending = s.pending[:0]
	return nil
}

// ForEachDatagram calls fn for every journaled datagram in arrival order.
// The slice passed to fn is only valid during the call.
func (s *SessionState) ForEachDatagram(fn func(datagram []byte) error) error {
	return s.DB.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, DatagramsBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			return fn(v)
		})
	})
}

// Datagrams returns the number of journaled datagrams, buffered ones included
func (s *SessionState) Datagrams() (int, error) {
	var n int
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, DatagramsBucket)
		if err != nil {
			return err
		}
		n = b.Stats().KeyN
		return nil
	}); err != nil {
		return 0, err
	}
	return n + len(s.pending), nil
}

func (s *SessionState) SetRecord(record *Record) error {
	log.Debug("Setting extracted record: %s", record.Path)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, ExtractedBucket)
		if err != nil {
			return err
		}
		recordBytes, err := yaml.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.Path), recordBytes)
	})
}

// Records returns the extracted records sorted by path
func (s *SessionState) Records() ([]*Record, error) {
	var records []*Record
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, ExtractedBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			record := &Record{}
			if err := yaml.Unmarshal(v, record); err != nil {
				return fmt.Errorf("record %s: %w", k, err)
			}
			records = append(records, record)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return records, nil
}

// Close flushes the buffered datagrams and closes the database
func (s *SessionState) Close() error {
	flushErr := s.Flush()
	if err := s.DB.Close(); err != nil {
		return err
	}
	return flushErr
}
