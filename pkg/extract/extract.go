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

// Package extract writes a decoded MCastFSv2 tree to a directory
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"jinr.ru/greenlab/go-mcastfs/pkg/log"
	"jinr.ru/greenlab/go-mcastfs/pkg/mcastfs"
	"jinr.ru/greenlab/go-mcastfs/pkg/state"
)

const DefaultCompressedSuffix = ".gz"

// Recorder receives the outcome of every file, the session journal implements it
type Recorder interface {
	SetRecord(record *state.Record) error
}

type Options struct {
	// Dir is the output root, created when missing
	Dir string
	// Only limits the extraction to files whose name or path is listed
	Only []string
	// Decompress gunzips the files ending with CompressedSuffix and drops the suffix
	Decompress       bool
	CompressedSuffix string
	// KeepPartial writes incomplete buffers as well, gaps are zero filled
	KeepPartial bool
	Recorder    Recorder
}

func DefaultOptions(dir string) Options {
	return Options{
		Dir:              dir,
		Decompress:       true,
		CompressedSuffix: DefaultCompressedSuffix,
	}
}

// Issue is a per-file problem that did not stop the extraction
type Issue struct {
	ID   uint16
	Path string
	Err  error
}

type Report struct {
	Directories int
	Written     []*state.Record
	Issues      []Issue
}

func (r *Report) issue(id uint16, p string, err error) {
	log.Warning("%s", err)
	r.Issues = append(r.Issues, Issue{ID: id, Path: p, Err: err})
}

type extractor struct {
	tree   *mcastfs.Tree
	files  mcastfs.Files
	opts   Options
	report *Report
}

// Extract creates the directories and writes the files of the tree under opts.Dir.
// Only a failure to create the output root is returned; every other problem is
// recorded in the report and the extraction continues with the next entry.
func Extract(tree *mcastfs.Tree, files mcastfs.Files, opts Options) (*Report, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("output directory %s: %w", opts.Dir, err)
	}
	e := &extractor{tree: tree, files: files, opts: opts, report: &Report{}}
	if len(opts.Only) == 0 {
		e.directories()
	}
	for _, entry := range tree.Files() {
		e.file(entry)
	}
	log.Info("Extracted %d files, %d directories, %d issues into %s",
		len(e.report.Written), e.report.Directories, len(e.report.Issues), opts.Dir)
	return e.report, nil
}

// resolve returns the entry path, the partial one when a parent is unknown
func (e *extractor) resolve(entry *mcastfs.Entry) (string, bool) {
	p, err := e.tree.Resolve(entry.ID)
	var unresolved mcastfs.ErrUnresolvedParent
	if errors.As(err, &unresolved) {
		log.Warning("%s, using %s", err, p)
	} else if err != nil {
		e.report.issue(entry.ID, entry.Name, err)
		return "", false
	}
	local := filepath.FromSlash(p)
	if !filepath.IsLocal(local) {
		e.report.issue(entry.ID, p, ErrUnsafePath{Path: p})
		return "", false
	}
	return p, true
}

func (e *extractor) directories() {
	for _, entry := range e.tree.Directories() {
		p, ok := e.resolve(entry)
		if !ok {
			continue
		}
		if err := os.MkdirAll(filepath.Join(e.opts.Dir, filepath.FromSlash(p)), 0755); err != nil {
			e.report.issue(entry.ID, p, err)
			continue
		}
		e.report.Directories++
	}
}

func (e *extractor) selected(entry *mcastfs.Entry, p string) bool {
	if len(e.opts.Only) == 0 {
		return true
	}
	for _, only := range e.opts.Only {
		if only == entry.Name || only == p {
			return true
		}
	}
	return false
}

func (e *extractor) file(entry *mcastfs.Entry) {
	p, ok := e.resolve(entry)
	if !ok || !e.selected(entry, p) {
		return
	}

	buf, ok := e.files[entry.ID]
	if !ok {
		e.report.issue(entry.ID, p, ErrMissingOrIncompleteFile{ID: entry.ID, Path: p, Missing: true})
		e.record(&state.Record{Path: p, Issue: "missing"})
		return
	}
	if !buf.Complete() {
		err := ErrMissingOrIncompleteFile{ID: entry.ID, Path: p, Covered: buf.Covered(), Size: buf.Capacity()}
		e.report.issue(entry.ID, p, err)
		if !e.opts.KeepPartial {
			e.record(&state.Record{Path: p, Issue: "incomplete"})
			return
		}
	}

	data := buf.Bytes()
	record := &state.Record{Path: p, Size: len(data)}
	if e.opts.Decompress && e.opts.CompressedSuffix != "" && strings.HasSuffix(p, e.opts.CompressedSuffix) {
		plain, err := gunzip(data)
		if err != nil {
			e.report.issue(entry.ID, p, ErrCorruptStream{Path: p, Err: err})
			record.Issue = "corrupt compressed stream"
		} else {
			data = plain
			record.Path = strings.TrimSuffix(p, e.opts.CompressedSuffix)
			record.Size = len(plain)
			record.Compressed = true
		}
	}
	if !buf.Complete() {
		record.Issue = "incomplete"
	}

	target := filepath.Join(e.opts.Dir, filepath.FromSlash(record.Path))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		e.report.issue(entry.ID, path.Dir(record.Path), err)
		return
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		e.report.issue(entry.ID, record.Path, err)
		return
	}
	log.Debug("Written %s: %d bytes", target, len(data))
	e.report.Written = append(e.report.Written, record)
	e.record(record)
}

func (e *extractor) record(record *state.Record) {
	if e.opts.Recorder == nil {
		return
	}
	if err := e.opts.Recorder.SetRecord(record); err != nil {
		log.Error("Error while recording %s: %s", record.Path, err)
	}
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
