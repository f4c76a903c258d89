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
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"jinr.ru/greenlab/go-mcastfs/pkg/log"
)

// Pcap replays the UDP payloads of a libpcap capture, such as one taken with tcpdump
type Pcap struct {
	file   *os.File
	reader *pcapgo.Reader
	// Port keeps only datagrams sent to this UDP port, 0 keeps all of them
	Port    uint16
	skipped int
}

func OpenPcap(filename string, port uint16) (*Pcap, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	p, err := NewPcap(file, port)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	return p, nil
}

func NewPcap(in io.Reader, port uint16) (*Pcap, error) {
	reader, err := pcapgo.NewReader(in)
	if err != nil {
		return nil, err
	}
	return &Pcap{reader: reader, Port: port}, nil
}

// ReadPacketData returns the next UDP payload matching Port.
// Frames that do not carry UDP are skipped.
func (p *Pcap) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	for {
		data, ci, err := p.reader.ReadPacketData()
		if err != nil {
			if err == io.EOF && p.skipped > 0 {
				log.Debug("Pcap: %d frames skipped", p.skipped)
			}
			return nil, ci, err
		}
		packet := gopacket.NewPacket(data, p.reader.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		layer := packet.Layer(layers.LayerTypeUDP)
		if layer == nil {
			p.skipped++
			continue
		}
		udp, _ := layer.(*layers.UDP)
		if p.Port != 0 && uint16(udp.DstPort) != p.Port {
			p.skipped++
			continue
		}
		payload := make([]byte, len(udp.Payload))
		copy(payload, udp.Payload)
		ci.CaptureLength = len(payload)
		ci.Length = len(payload)
		return payload, ci, nil
	}
}

func (p *Pcap) Close() error {
	if p.file == nil {
		return nil
	}
	return p.file.Close()
}
