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

// Package source provides the datagram sources of a receive session.
// Every source is a gopacket.PacketDataSource returning one datagram per call;
// io.EOF marks the end of an offline source.
package source

import (
	"io"

	"github.com/google/gopacket"
)

// Source is a datagram source that holds a resource
type Source interface {
	gopacket.PacketDataSource
	io.Closer
}
