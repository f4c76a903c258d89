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

package source

import (
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-mcastfs/pkg/capture"
)

// CaptureFile replays the datagrams of a capture written by the receive command
type CaptureFile struct {
	*capture.Reader
}

func OpenCaptureFile(filename string) (*CaptureFile, error) {
	r, err := capture.Open(filename)
	if err != nil {
		return nil, err
	}
	return &CaptureFile{Reader: r}, nil
}

func (c *CaptureFile) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, err := c.ReadDatagram()
	if err != nil {
		return nil, gopacket.CaptureInfo{}, err
	}
	return data, gopacket.CaptureInfo{
		Length:        len(data),
		CaptureLength: len(data),
		Timestamp:     time.Now(),
	}, nil
}
