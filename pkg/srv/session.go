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
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-mcastfs/pkg/log"
	"jinr.ru/greenlab/go-mcastfs/pkg/reassembly"
)

const DefaultProgressInterval = time.Second

// Outcome tells how a receive session ended
type Outcome string

const (
	OutcomeRunning     Outcome = "running"
	OutcomeComplete    Outcome = "complete"
	OutcomeStopped     Outcome = "stopped"
	OutcomeEndOfSource Outcome = "end of source"
	// OutcomeFailed is a receive error, the datagrams accepted so far are usable
	OutcomeFailed Outcome = "failed"
	// OutcomeRejected is a datagram the decoder could not parse, nothing received is trusted
	OutcomeRejected Outcome = "rejected"
)

// Session drives a reassembler from a datagram source
type Session struct {
	Reassembler *reassembly.Reassembler
	Progress    *Progress
	// ProgressInterval limits the progress log lines and API snapshots
	ProgressInterval time.Duration
	lastProgress     time.Time
}

func NewSession(r *reassembly.Reassembler) *Session {
	return &Session{
		Reassembler:      r,
		Progress:         NewProgress(),
		ProgressInterval: DefaultProgressInterval,
	}
}

// Run reads datagrams until every announced file is received, the source ends or ctx
// is cancelled. The stop signal is checked between datagrams, so a blocked receive
// delays it by at most the source timeout unless the caller closes the source.
// Incomplete streams are flushed to the file buffers unless a datagram was rejected.
func (s *Session) Run(ctx context.Context, src gopacket.PacketDataSource) (Outcome, error) {
	r := s.Reassembler
	for {
		select {
		case <-ctx.Done():
			log.Info("Receive stopped")
			return s.finish(OutcomeStopped), nil
		default:
		}

		data, _, err := src.ReadPacketData()
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Receive stopped")
				return s.finish(OutcomeStopped), nil
			}
			if errors.Is(err, io.EOF) {
				log.Info("End of source")
				return s.finish(OutcomeEndOfSource), nil
			}
			log.Error("Receive: %s", err)
			return s.finish(OutcomeFailed), err
		}

		stream, err := r.Ingest(data)
		if err != nil {
			log.Error("Datagram rejected: %s", err)
			s.Progress.Publish(OutcomeRejected, r)
			return OutcomeRejected, err
		}
		if stream != nil {
			if stream.LogicalID == reassembly.HeaderStreamID {
				log.Info("Header complete: %d entries", r.Decoder().Tree.Len())
			} else {
				log.Info("File 0x%04x complete: %d records", stream.LogicalID, len(stream.Records))
			}
		}
		if r.Complete() {
			stats := r.Stats()
			log.Info("All %d files received: %d datagrams, %d duplicates",
				stats.ExpectedFiles, stats.Datagrams, stats.Duplicates)
			s.Progress.Publish(OutcomeComplete, r)
			return OutcomeComplete, nil
		}
		s.progress()
	}
}

func (s *Session) progress() {
	now := time.Now()
	if now.Sub(s.lastProgress) < s.ProgressInterval {
		return
	}
	s.lastProgress = now
	stats := s.Reassembler.Stats()
	log.Info("Progress: %d datagrams, %d/%d streams complete, %d duplicates",
		stats.Datagrams, stats.CompleteStreams, stats.Streams, stats.Duplicates)
	s.Progress.Publish(OutcomeRunning, s.Reassembler)
}

func (s *Session) finish(outcome Outcome) Outcome {
	if err := s.Reassembler.FlushIncomplete(); err != nil {
		log.Error("Partial streams can not be recovered: %s", err)
	}
	s.Progress.Publish(outcome, s.Reassembler)
	return outcome
}
