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
	"sort"
	"strings"

	"jinr.ru/greenlab/go-mcastfs/pkg/log"
)

// Kind is the type byte of an entry record
type Kind uint8

const (
	KindDirectory Kind = 0x41
	KindFile      Kind = 0x81
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Entry is one directory or file record of the container.
// Name is relative to the parent directory.
type Entry struct {
	ID       uint16 `json:"id"`
	ParentID uint16 `json:"parentId"`
	Kind     Kind   `json:"kind"`
	Name     string `json:"name"`
	// Size and Checksum are carried by the record but never validated
	Size     uint32 `json:"size"`
	Checksum uint16 `json:"checksum"`
}

// Tree holds the classified entries of one container instance
type Tree struct {
	entries map[uint16]*Entry
}

func NewTree() *Tree {
	return &Tree{
		entries: make(map[uint16]*Entry),
	}
}

// Add classifies the entry. The first record seen for an id wins, records with an
// unknown kind are dropped. Returns true if the tree has changed.
func (t *Tree) Add(e Entry) bool {
	if _, ok := t.entries[e.ID]; ok {
		log.Debug("Entry 0x%04x already classified, ignoring %q", e.ID, e.Name)
		return false
	}
	if e.Kind != KindDirectory && e.Kind != KindFile {
		log.Debug("Entry 0x%04x %q has unknown kind 0x%02x, dropped", e.ID, e.Name, uint8(e.Kind))
		return false
	}
	entry := e
	t.entries[e.ID] = &entry
	return true
}

func (t *Tree) Entry(id uint16) (*Entry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

func (t *Tree) Len() int {
	return len(t.entries)
}

func (t *Tree) Directories() []*Entry {
	return t.byKind(KindDirectory)
}

func (t *Tree) Files() []*Entry {
	return t.byKind(KindFile)
}

func (t *Tree) byKind(kind Kind) []*Entry {
	var result []*Entry
	for _, e := range t.entries {
		if e.Kind == kind {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Resolve returns the slash separated path of an entry by walking the parent chain
// through directory entries. When an ancestor is missing the partial path is returned
// together with ErrUnresolvedParent.
func (t *Tree) Resolve(id uint16) (string, error) {
	e, ok := t.entries[id]
	if !ok {
		return "", ErrEntryNotFound{ID: id}
	}
	parts := []string{e.Name}
	visited := map[uint16]bool{id: true}
	parentID := e.ParentID
	for parentID != 0 {
		parent, ok := t.entries[parentID]
		if !ok || parent.Kind != KindDirectory || visited[parentID] {
			partial := join(parts)
			return partial, ErrUnresolvedParent{ID: id, ParentID: parentID, Partial: partial}
		}
		visited[parentID] = true
		parts = append(parts, parent.Name)
		parentID = parent.ParentID
	}
	return join(parts), nil
}

// join reverses leaf-first components into a root-first path
func join(parts []string) string {
	var result []string
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			result = append(result, parts[i])
		}
	}
	return strings.Join(result, "/")
}
