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
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-mcastfs/pkg/log"
)

const (
	// ReceiveBufferLen is the largest datagram read in one call, longer ones are truncated
	ReceiveBufferLen = 1500
	DefaultTimeout   = 5 * time.Second
)

/*
 The firmware server sends the update to an IPv4 multicast group. Joining the group
 on a given interface makes the kernel send the IGMP membership report; with an
 empty interface name the system picks one.
*/

type Multicast struct {
	*net.UDPAddr
	*net.Interface
	Timeout time.Duration
	conn    *net.UDPConn
	buffer  []byte
}

func NewMulticast(group string, port int, ifaceName string, timeout time.Duration) (*Multicast, error) {
	log.Debug("Initializing multicast source with group: %s port: %d iface: %s", group, port, ifaceName)

	uaddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", group, port))
	if err != nil {
		return nil, err
	}
	var iface *net.Interface
	if ifaceName != "" {
		iface, err = net.InterfaceByName(ifaceName)
		if err != nil {
			return nil, err
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Multicast{
		UDPAddr:   uaddr,
		Interface: iface,
		Timeout:   timeout,
		buffer:    make([]byte, ReceiveBufferLen),
	}, nil
}

func (m *Multicast) Open() error {
	conn, err := net.ListenMulticastUDP("udp", m.Interface, m.UDPAddr)
	if err != nil {
		return err
	}
	m.conn = conn
	log.Info("Joined multicast group %s", m.UDPAddr)
	return nil
}

// ReadPacketData waits for the next datagram at most Timeout.
// This method is from PacketDataSource interface.
func (m *Multicast) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	if m.conn == nil {
		return nil, gopacket.CaptureInfo{}, ErrNotOpen{What: m.UDPAddr.String()}
	}
	if err := m.conn.SetReadDeadline(time.Now().Add(m.Timeout)); err != nil {
		return nil, gopacket.CaptureInfo{}, err
	}
	length, addr, err := m.conn.ReadFromUDP(m.buffer)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, gopacket.CaptureInfo{}, ErrReceiveTimeout{Timeout: m.Timeout}
		}
		return nil, gopacket.CaptureInfo{}, err
	}

	data := make([]byte, length)
	copy(data, m.buffer[:length])
	ci := gopacket.CaptureInfo{
		Length:        length,
		CaptureLength: length,
		Timestamp:     time.Now(),
		AncillaryData: []interface{}{addr},
	}
	if m.Interface != nil {
		ci.InterfaceIndex = m.Interface.Index
	}
	return data, ci, nil
}

func (m *Multicast) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
