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
	"sync"
	"time"

	"jinr.ru/greenlab/go-mcastfs/pkg/mcastfs"
	"jinr.ru/greenlab/go-mcastfs/pkg/reassembly"
)

// FileStatus describes one file entry and how much of it was received
type FileStatus struct {
	ID       uint16 `json:"id"`
	Path     string `json:"path"`
	Size     uint32 `json:"size"`
	Covered  uint32 `json:"covered"`
	Complete bool   `json:"complete"`
}

// Snapshot is the state of a session as seen by the status API
type Snapshot struct {
	Outcome   Outcome                     `json:"outcome"`
	Stats     reassembly.Stats            `json:"stats"`
	Pending   []reassembly.StreamProgress `json:"pending"`
	Entries   int                         `json:"entries"`
	StartedAt time.Time                   `json:"startedAt"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

// Progress is written by the receive loop and read by the API server
type Progress struct {
	mu       sync.RWMutex
	snapshot Snapshot
	files    []FileStatus
}

func NewProgress() *Progress {
	return &Progress{
		snapshot: Snapshot{Outcome: OutcomeRunning, StartedAt: time.Now()},
	}
}

// Publish takes a snapshot of the reassembler. It must be called from the goroutine owning r.
func (p *Progress) Publish(outcome Outcome, r *reassembly.Reassembler) {
	d := r.Decoder()
	files := FileStatuses(d.Tree, d.Files)
	pending := r.Pending()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot.Outcome = outcome
	p.snapshot.Stats = r.Stats()
	p.snapshot.Pending = pending
	p.snapshot.Entries = d.Tree.Len()
	p.snapshot.UpdatedAt = time.Now()
	p.files = files
}

func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.snapshot
	s.Pending = append([]reassembly.StreamProgress(nil), p.snapshot.Pending...)
	return s
}

func (p *Progress) Files() []FileStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]FileStatus(nil), p.files...)
}

// FileStatuses lists the file entries of the tree, unresolved paths are reported partially
func FileStatuses(tree *mcastfs.Tree, files mcastfs.Files) []FileStatus {
	var result []FileStatus
	for _, entry := range tree.Files() {
		path, _ := tree.Resolve(entry.ID)
		status := FileStatus{ID: entry.ID, Path: path, Size: entry.Size}
		if buf, ok := files[entry.ID]; ok {
			status.Size = buf.Capacity()
			status.Covered = buf.Covered()
			status.Complete = buf.Complete()
		}
		result = append(result, status)
	}
	return result
}
