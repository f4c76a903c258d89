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

package broadcast

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-mcastfs/cmd/cmdutil"
	"jinr.ru/greenlab/go-mcastfs/pkg/config"
	"jinr.ru/greenlab/go-mcastfs/pkg/source"
	"jinr.ru/greenlab/go-mcastfs/pkg/srv"
)

const (
	CaptureOptionName  = "capture"
	IntervalOptionName = "interval"
	RoundsOptionName   = "rounds"
)

// NewCommand creates the command sending a capture to a multicast group in rounds
func NewCommand() *cobra.Command {
	var capture, group, interval string
	var port, rounds int
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Send a captured session to a multicast group, for testing receivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if capture == "" {
				return fmt.Errorf("--%s is required", CaptureOptionName)
			}
			if err := cmdutil.CheckMulticastGroup(group); err != nil {
				return err
			}
			cfg, err := cmdutil.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if interval == "" {
				interval = cfg.Broadcast.Interval
			}
			pause, err := time.ParseDuration(interval)
			if err != nil {
				return fmt.Errorf("--%s: %w", IntervalOptionName, err)
			}
			if port == 0 {
				port = cfg.Receive.Port
			}

			src, err := source.OpenCaptureFile(capture)
			if err != nil {
				return err
			}
			datagrams, err := srv.ReadAll(src)
			src.Close()
			if err != nil {
				return err
			}
			conn, err := srv.DialMulticast(group, port)
			if err != nil {
				return err
			}
			defer conn.Close()
			cmd.SilenceUsage = true

			ctx, stop := cmdutil.SignalContext(cmd)
			defer stop()
			carousel := &srv.Carousel{Out: conn, Interval: pause, Rounds: rounds}
			err = carousel.Run(ctx, datagrams)
			fmt.Fprintf(cmd.OutOrStdout(), "%d datagrams sent\n", carousel.Sent)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&capture, CaptureOptionName, "", "Capture file written by receive --save")
	cmd.Flags().StringVar(&group, cmdutil.GroupOptionName, "", "Multicast group to send to. E.g. 239.3.1.1")
	cmd.Flags().IntVar(&port, cmdutil.PortOptionName, 0, fmt.Sprintf("UDP port. Default %d", config.DefaultReceivePort))
	cmd.Flags().StringVar(&interval, IntervalOptionName, "", fmt.Sprintf("Pause between datagrams. Default %s", config.DefaultBroadcastInterval))
	cmd.Flags().IntVar(&rounds, RoundsOptionName, 1, "Number of rounds, 0 repeats until interrupted")
	return cmd
}
