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

package srv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-mcastfs/pkg/log"
)

/*
 The firmware server repeats the whole image in rounds until every receiver is done.
 The carousel does the same with a recorded session, which is enough to test a
 receiver without the update server.
*/

type Carousel struct {
	Out io.Writer
	// Interval is the pause between two datagrams
	Interval time.Duration
	// Rounds is the number of times the datagrams are sent, 0 means until ctx is cancelled
	Rounds int
	Sent   int
}

// DialMulticast opens a UDP socket sending to the group
func DialMulticast(group string, port int) (*net.UDPConn, error) {
	uaddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", group, port))
	if err != nil {
		return nil, err
	}
	return net.DialUDP("udp", nil, uaddr)
}

// ReadAll drains a datagram source
func ReadAll(src gopacket.PacketDataSource) ([][]byte, error) {
	var datagrams [][]byte
	for {
		data, _, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return datagrams, nil
		}
		if err != nil {
			return datagrams, err
		}
		datagrams = append(datagrams, data)
	}
}

func (c *Carousel) Run(ctx context.Context, datagrams [][]byte) error {
	if len(datagrams) == 0 {
		return nil
	}
	var ticker *time.Ticker
	if c.Interval > 0 {
		ticker = time.NewTicker(c.Interval)
		defer ticker.Stop()
	}
	for round := 1; c.Rounds == 0 || round <= c.Rounds; round++ {
		log.Debug("Carousel round %d: %d datagrams", round, len(datagrams))
		for _, datagram := range datagrams {
			if ticker != nil {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			} else if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := c.Out.Write(datagram); err != nil {
				return err
			}
			c.Sent++
		}
	}
	log.Info("Carousel done: %d datagrams sent", c.Sent)
	return nil
}
