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

package cmd

import (
	"os"

	"jinr.ru/greenlab/go-mcastfs/pkg/extract"
	"jinr.ru/greenlab/go-mcastfs/pkg/log"
	"jinr.ru/greenlab/go-mcastfs/pkg/mcastfs"
)

// ExtractContainer decodes a container file and extracts it. Nothing is extracted when
// the decoder stops on a bad record. Every allocated buffer is written at its declared
// size, gaps zero filled, and reported as incomplete.
func ExtractContainer(filename string, opts extract.Options) (*extract.Report, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	log.Info("Parsing container %s", filename)
	tree, files, err := mcastfs.Decode(file)
	if err != nil {
		log.Error("Decoding stopped, nothing extracted: %s", err)
		return nil, err
	}
	log.Info("Decoded %d entries, %d file buffers", tree.Len(), len(files))

	opts.KeepPartial = true
	return extract.Extract(tree, files, opts)
}
