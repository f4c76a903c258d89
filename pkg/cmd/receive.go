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

// Package cmd wires the sources, the reassembler, the journal, the status API and
// the extractor together for the command line tool.
package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"jinr.ru/greenlab/go-mcastfs/pkg/capture"
	"jinr.ru/greenlab/go-mcastfs/pkg/extract"
	"jinr.ru/greenlab/go-mcastfs/pkg/log"
	"jinr.ru/greenlab/go-mcastfs/pkg/reassembly"
	"jinr.ru/greenlab/go-mcastfs/pkg/source"
	"jinr.ru/greenlab/go-mcastfs/pkg/srv"
	"jinr.ru/greenlab/go-mcastfs/pkg/state"
)

type ReceiveOptions struct {
	// Source is closed by Receive
	Source source.Source
	// SavePath mirrors every accepted datagram to a capture file
	SavePath string
	// StateDB journals the session and resumes the one found there
	StateDB string
	// ApiAddress serves the status API while receiving
	ApiAddress       string
	ProgressInterval time.Duration
	// StopKeys stops the session when a byte is read from it, usually stdin
	StopKeys io.Reader
	Extract  extract.Options
}

type Result struct {
	Outcome srv.Outcome
	Stats   reassembly.Stats
	Report  *extract.Report
}

// Receive runs a session and extracts whatever was received. The extraction also
// happens when the session is stopped or the source fails, the source error is
// returned afterwards. A rejected datagram aborts the session without extraction.
func Receive(ctx context.Context, opts ReceiveOptions) (*Result, error) {
	var closeOnce sync.Once
	closeSource := func() {
		closeOnce.Do(func() {
			if err := opts.Source.Close(); err != nil {
				log.Debug("Error while closing the source: %s", err)
			}
		})
	}
	defer closeSource()
	r := reassembly.New()

	var sinks []io.Writer
	var journal *state.SessionState
	if opts.StateDB != "" {
		var err error
		journal, err = state.NewSessionState(opts.StateDB)
		if err != nil {
			return nil, fmt.Errorf("session journal: %w", err)
		}
		defer journal.Close()
		if err := resume(journal, r); err != nil {
			return nil, err
		}
		sinks = append(sinks, journal)
		opts.Extract.Recorder = journal
	}
	var saved *capture.Writer
	if opts.SavePath != "" {
		var err error
		saved, err = capture.NewWriter(opts.SavePath)
		if err != nil {
			return nil, err
		}
		defer saved.Close()
		sinks = append(sinks, saved)
	}
	if len(sinks) > 0 {
		r.SetCapture(io.MultiWriter(sinks...))
	}

	session := srv.NewSession(r)
	if opts.ProgressInterval > 0 {
		session.ProgressInterval = opts.ProgressInterval
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	// unblocks a pending receive when the session is stopped
	context.AfterFunc(gctx, closeSource)

	var outcome srv.Outcome
	var runErr error
	if r.Complete() {
		log.Info("Resumed session is already complete")
		outcome = srv.OutcomeComplete
		session.Progress.Publish(outcome, r)
		cancel()
	} else {
		g.Go(func() error {
			defer cancel()
			outcome, runErr = session.Run(gctx, opts.Source)
			return nil
		})
	}
	if opts.ApiAddress != "" {
		api := srv.NewApiServer(opts.ApiAddress, session.Progress)
		g.Go(func() error {
			return api.Run(gctx)
		})
	}
	if opts.StopKeys != nil {
		log.Info("Press enter to stop receiving")
		go watchKeys(gctx, opts.StopKeys, cancel)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if saved != nil {
		if err := saved.Flush(); err != nil {
			log.Error("Error while flushing %s: %s", opts.SavePath, err)
		}
	}
	if journal != nil {
		if err := journal.Flush(); err != nil {
			log.Error("Error while flushing the session journal: %s", err)
		}
	}

	result := &Result{Outcome: outcome, Stats: r.Stats()}
	if outcome == srv.OutcomeRejected {
		log.Error("Nothing extracted: %s", runErr)
		return result, runErr
	}
	d := r.Decoder()
	report, err := extract.Extract(d.Tree, d.Files, opts.Extract)
	if err != nil {
		return nil, err
	}
	result.Report = report
	return result, runErr
}

// resume feeds the journaled datagrams to r before any sink is attached
func resume(journal *state.SessionState, r *reassembly.Reassembler) error {
	n := 0
	if err := journal.ForEachDatagram(func(datagram []byte) error {
		n++
		_, err := r.Ingest(datagram)
		return err
	}); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if n > 0 {
		stats := r.Stats()
		log.Info("Resumed %d datagrams: %d of %d streams complete", n, stats.CompleteStreams, stats.Streams)
	}
	return nil
}

func watchKeys(ctx context.Context, in io.Reader, stop context.CancelFunc) {
	buf := make([]byte, 1)
	for ctx.Err() == nil {
		n, err := in.Read(buf)
		if n > 0 {
			log.Info("Key pressed, stopping")
			stop()
			return
		}
		if err != nil {
			return
		}
	}
}
