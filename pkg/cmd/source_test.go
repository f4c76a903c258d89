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
	"net"
	"sync"

	"github.com/google/gopacket"
)

// blockingSource blocks every receive until it is closed, like an idle multicast group
type blockingSource struct {
	once   sync.Once
	closed chan struct{}
}

func (s *blockingSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	<-s.closed
	return nil, gopacket.CaptureInfo{}, net.ErrClosed
}

func (s *blockingSource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
