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
	"bytes"
	"errors"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-mcastfs/pkg/capture"
)

func TestCaptureFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "session.cap")
	w, err := capture.NewWriter(filename)
	require.NoError(t, err)
	_, err = w.Write([]byte{0x03, 0x01})
	require.NoError(t, err)
	_, err = w.Write([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var src Source
	src, err = OpenCaptureFile(filename)
	require.NoError(t, err)
	defer src.Close()

	data, ci, err := src.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x01}, data)
	assert.Equal(t, 2, ci.CaptureLength)
	data, _, err = src.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, data)
	_, _, err = src.ReadPacketData()
	assert.Equal(t, io.EOF, err)
}

func frame(t *testing.T, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x01, 0x00, 0x5E, 0x00, 0x01, 0x01},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      1,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{192, 168, 1, 10},
		DstIP:    net.IP{224, 0, 1, 1},
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: layers.UDPPort(dstPort)}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true},
		eth, ip, udp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func TestPcap(t *testing.T) {
	var file bytes.Buffer
	w := pcapgo.NewWriter(&file)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for _, f := range [][]byte{
		frame(t, 7000, []byte{0x03, 0xAA}),
		frame(t, 7001, []byte{0x03, 0xBB}),
		frame(t, 7000, []byte{0x01, 0xCC}),
	} {
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     time.Unix(1600000000, 0),
			CaptureLength: len(f),
			Length:        len(f),
		}, f))
	}

	src, err := NewPcap(bytes.NewReader(file.Bytes()), 7000)
	require.NoError(t, err)
	data, _, err := src.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0xAA}, data)
	data, _, err = src.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0xCC}, data)
	_, _, err = src.ReadPacketData()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 1, src.skipped)
	assert.NoError(t, src.Close())
}

func TestPcapAnyPort(t *testing.T) {
	var file bytes.Buffer
	w := pcapgo.NewWriter(&file)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	f := frame(t, 9, []byte("x"))
	require.NoError(t, w.WritePacket(gopacket.CaptureInfo{CaptureLength: len(f), Length: len(f)}, f))

	src, err := NewPcap(&file, 0)
	require.NoError(t, err)
	data, _, err := src.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestMulticastNotOpen(t *testing.T) {
	m, err := NewMulticast("239.255.42.99", 33999, "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, m.Timeout)
	_, _, err = m.ReadPacketData()
	var notOpen ErrNotOpen
	assert.True(t, errors.As(err, &notOpen))
	assert.NoError(t, m.Close())
}

func TestMulticastReceiveTimeout(t *testing.T) {
	m, err := NewMulticast("239.255.42.99", 33998, "", 20*time.Millisecond)
	require.NoError(t, err)
	if err := m.Open(); err != nil {
		t.Skipf("multicast is not available: %v", err)
	}
	defer m.Close()

	_, _, err = m.ReadPacketData()
	var timeout ErrReceiveTimeout
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, 20*time.Millisecond, timeout.Timeout)
}
