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

package extract

import "fmt"

// ErrMissingOrIncompleteFile is reported for a file entry without a complete buffer
type ErrMissingOrIncompleteFile struct {
	ID      uint16
	Path    string
	Covered uint32
	Size    uint32
	Missing bool
}

func (e ErrMissingOrIncompleteFile) Error() string {
	if e.Missing {
		return fmt.Sprintf("%s: not found in data buffers", e.Path)
	}
	return fmt.Sprintf("%s: incomplete, %d of %d bytes received", e.Path, e.Covered, e.Size)
}

// ErrCorruptStream is reported when a compressed file can not be decompressed
type ErrCorruptStream struct {
	Path string
	Err  error
}

func (e ErrCorruptStream) Error() string {
	return fmt.Sprintf("%s: corrupt compressed stream: %s", e.Path, e.Err)
}

func (e ErrCorruptStream) Unwrap() error {
	return e.Err
}

// ErrUnsafePath is reported for a resolved path leaving the output directory
type ErrUnsafePath struct {
	Path string
}

func (e ErrUnsafePath) Error() string {
	return fmt.Sprintf("%s: path escapes the output directory", e.Path)
}
