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

package receive

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-mcastfs/cmd/cmdutil"
	pkgcmd "jinr.ru/greenlab/go-mcastfs/pkg/cmd"
	"jinr.ru/greenlab/go-mcastfs/pkg/config"
	"jinr.ru/greenlab/go-mcastfs/pkg/source"
)

const (
	IfaceOptionName   = "iface"
	TimeoutOptionName = "timeout"
	SaveOptionName    = "save"
	NoKeysOptionName  = "no-keys"
)

const receiveExample = `
Receive a firmware update and extract it
# go-mcastfs receive --group 239.3.1.1 --port 6000 --dir ./firmware

Keep a capture of the session for a later replay
# go-mcastfs receive --group 239.3.1.1 --port 6000 --dir ./firmware --save session.cap
`

// NewCommand creates the command receiving a multicast firmware session
func NewCommand() *cobra.Command {
	var group, iface, timeout, save, stateDB, apiAddress string
	var port int
	var noKeys bool
	extractFlags := &cmdutil.ExtractFlags{}
	cmd := &cobra.Command{
		Use:     "receive",
		Short:   "Receive a firmware image from a multicast group and extract it",
		Example: receiveExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig(cmd)
			if err != nil {
				return err
			}
			receiveConfig := cfg.Receive
			if group != "" {
				receiveConfig.Group = group
			}
			if port != 0 {
				receiveConfig.Port = port
			}
			if iface != "" {
				receiveConfig.Interface = iface
			}
			if timeout != "" {
				receiveConfig.Timeout = timeout
			}
			if err := cmdutil.CheckMulticastGroup(receiveConfig.Group); err != nil {
				return err
			}
			receiveTimeout, err := receiveConfig.ReceiveTimeout()
			if err != nil {
				return fmt.Errorf("--%s: %w", TimeoutOptionName, err)
			}
			progressInterval, err := time.ParseDuration(receiveConfig.ProgressInterval)
			if err != nil {
				return fmt.Errorf("progress interval: %w", err)
			}
			extractOpts, err := extractFlags.Options(cfg)
			if err != nil {
				return err
			}
			if stateDB == "" {
				stateDB = cfg.State.DBPath
			}

			src, err := source.NewMulticast(receiveConfig.Group, receiveConfig.Port, receiveConfig.Interface, receiveTimeout)
			if err != nil {
				return err
			}
			if err := src.Open(); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			opts := pkgcmd.ReceiveOptions{
				Source:           src,
				SavePath:         save,
				StateDB:          stateDB,
				ApiAddress:       apiAddress,
				ProgressInterval: progressInterval,
				Extract:          extractOpts,
			}
			if !noKeys {
				opts.StopKeys = os.Stdin
			}
			ctx, stop := cmdutil.SignalContext(cmd)
			defer stop()
			result, err := pkgcmd.Receive(ctx, opts)
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s: %d datagrams, %d duplicates\n",
					result.Outcome, result.Stats.Datagrams, result.Stats.Duplicates)
				cmdutil.PrintReport(cmd.OutOrStdout(), result.Report)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&group, cmdutil.GroupOptionName, "", "Multicast group to join. E.g. 239.3.1.1")
	cmd.Flags().IntVar(&port, cmdutil.PortOptionName, 0, fmt.Sprintf("UDP port. Default %d", config.DefaultReceivePort))
	cmd.Flags().StringVar(&iface, IfaceOptionName, "", "Interface name to join the group on. E.g. eth0")
	cmd.Flags().StringVar(&timeout, TimeoutOptionName, "", fmt.Sprintf("Give up when nothing arrives for this long. Default %s", config.DefaultReceiveTimeout))
	cmd.Flags().StringVar(&save, SaveOptionName, "", "Save the received datagrams to a capture file")
	cmd.Flags().StringVar(&stateDB, cmdutil.StateDBOptionName, "", "Journal the session to a database and resume the one found there")
	cmd.Flags().StringVar(&apiAddress, cmdutil.ApiAddressOptionName, "", fmt.Sprintf("Serve the status API. E.g. %s", config.DefaultApiAddress))
	cmd.Flags().BoolVar(&noKeys, NoKeysOptionName, false, "Do not stop when a key is pressed")
	extractFlags.Register(cmd)
	return cmd
}
