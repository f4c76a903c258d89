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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeResolve(t *testing.T) {
	tree := NewTree()
	tree.Add(Entry{ID: 0x2A, ParentID: 0, Kind: KindDirectory, Name: "bin"})
	tree.Add(Entry{ID: 0x2B, ParentID: 0x2A, Kind: KindFile, Name: "check_supported_hw.sh"})
	tree.Add(Entry{ID: 0x46, ParentID: 0, Kind: KindDirectory, Name: "etc"})
	tree.Add(Entry{ID: 0x48, ParentID: 0x46, Kind: KindDirectory, Name: "init.d"})
	tree.Add(Entry{ID: 0x49, ParentID: 0x48, Kind: KindFile, Name: "rcS"})
	tree.Add(Entry{ID: 0x50, ParentID: 0, Kind: KindFile, Name: "top"})

	tests := []struct {
		id       uint16
		expected string
	}{
		{0x2B, "bin/check_supported_hw.sh"},
		{0x48, "etc/init.d"},
		{0x49, "etc/init.d/rcS"},
		{0x50, "top"},
	}
	for _, tt := range tests {
		path, err := tree.Resolve(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, path)
	}

	assert.Len(t, tree.Directories(), 3)
	files := tree.Files()
	require.Len(t, files, 3)
	assert.Equal(t, uint16(0x2B), files[0].ID)
}

func TestTreeResolveUnresolvedParent(t *testing.T) {
	tree := NewTree()
	tree.Add(Entry{ID: 3, ParentID: 2, Kind: KindDirectory, Name: "lib"})
	tree.Add(Entry{ID: 4, ParentID: 3, Kind: KindFile, Name: "libc.so"})
	// a file is not a valid parent
	tree.Add(Entry{ID: 5, ParentID: 0, Kind: KindFile, Name: "plain"})
	tree.Add(Entry{ID: 6, ParentID: 5, Kind: KindFile, Name: "child"})

	path, err := tree.Resolve(4)
	var unresolved ErrUnresolvedParent
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "lib/libc.so", path)
	assert.Equal(t, uint16(2), unresolved.ParentID)
	assert.Equal(t, "lib/libc.so", unresolved.Partial)

	path, err = tree.Resolve(6)
	assert.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "child", path)
}

func TestTreeResolveCycle(t *testing.T) {
	tree := NewTree()
	tree.Add(Entry{ID: 1, ParentID: 2, Kind: KindDirectory, Name: "a"})
	tree.Add(Entry{ID: 2, ParentID: 1, Kind: KindDirectory, Name: "b"})
	tree.Add(Entry{ID: 3, ParentID: 1, Kind: KindFile, Name: "f"})

	path, err := tree.Resolve(3)
	var unresolved ErrUnresolvedParent
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "b/a/f", path)
}

func TestTreeResolveUnknown(t *testing.T) {
	_, err := NewTree().Resolve(1)
	var notFound ErrEntryNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestFileBufferCoverage(t *testing.T) {
	buf := NewFileBuffer(10)
	require.NoError(t, buf.Write(6, []byte("ghij")))
	require.NoError(t, buf.Write(0, []byte("abc")))
	assert.Equal(t, uint32(7), buf.Covered())
	assert.False(t, buf.Complete())

	// overlapping rewrite does not count twice, last writer wins
	require.NoError(t, buf.Write(2, []byte("XdeF")))
	assert.Equal(t, uint32(10), buf.Covered())
	assert.True(t, buf.Complete())
	assert.Equal(t, []byte("abXdeFghij"), buf.Bytes())
	assert.Equal(t, 3, buf.Chunks())

	assert.Error(t, buf.Write(8, []byte("xyz")))
	assert.Equal(t, 3, buf.Chunks())
}

func TestFileBufferEmpty(t *testing.T) {
	buf := NewFileBuffer(0)
	assert.True(t, buf.Complete())
	assert.Empty(t, buf.Bytes())
}
