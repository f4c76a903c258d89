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

package replay

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-mcastfs/cmd/cmdutil"
	pkgcmd "jinr.ru/greenlab/go-mcastfs/pkg/cmd"
	"jinr.ru/greenlab/go-mcastfs/pkg/source"
)

const (
	CaptureOptionName  = "capture"
	PcapOptionName     = "pcap"
	PcapPortOptionName = "pcap-port"
)

// NewCommand creates the command feeding a recorded session through the reassembler
func NewCommand() *cobra.Command {
	var capture, pcap, stateDB string
	var pcapPort uint16
	extractFlags := &cmdutil.ExtractFlags{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Reassemble and extract a recorded multicast session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (capture == "") == (pcap == "") {
				return fmt.Errorf("exactly one of --%s and --%s is required", CaptureOptionName, PcapOptionName)
			}
			cfg, err := cmdutil.LoadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := extractFlags.Options(cfg)
			if err != nil {
				return err
			}

			var src source.Source
			if capture != "" {
				src, err = source.OpenCaptureFile(capture)
			} else {
				src, err = source.OpenPcap(pcap, pcapPort)
			}
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			ctx, stop := cmdutil.SignalContext(cmd)
			defer stop()
			result, err := pkgcmd.Receive(ctx, pkgcmd.ReceiveOptions{
				Source:  src,
				StateDB: stateDB,
				Extract: opts,
			})
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Replay %s: %d datagrams, %d duplicates\n",
					result.Outcome, result.Stats.Datagrams, result.Stats.Duplicates)
				cmdutil.PrintReport(cmd.OutOrStdout(), result.Report)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&capture, CaptureOptionName, "", "Capture file written by receive --save")
	cmd.Flags().StringVar(&pcap, PcapOptionName, "", "libpcap file, e.g. from tcpdump")
	cmd.Flags().Uint16Var(&pcapPort, PcapPortOptionName, 0, "Keep only UDP datagrams sent to this port, 0 keeps all")
	cmd.Flags().StringVar(&stateDB, cmdutil.StateDBOptionName, "", "Journal the session to a database")
	extractFlags.Register(cmd)
	return cmd
}
