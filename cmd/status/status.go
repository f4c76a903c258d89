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

package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-mcastfs/cmd/cmdutil"
	"jinr.ru/greenlab/go-mcastfs/pkg/command"
)

const (
	FilesOptionName = "files"
)

// NewCommand creates the command printing the progress of a running receive
func NewCommand() *cobra.Command {
	var apiAddress string
	var files bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the progress of a running receive command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if apiAddress == "" {
				apiAddress = cfg.Api.Address
			}
			cmd.SilenceUsage = true
			apiClient := command.NewApiClient(apiAddress)
			progress, err := apiClient.Progress()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			stats := progress.Stats
			fmt.Fprintf(out, "Session: %s since %s\n", progress.Outcome, progress.StartedAt.Format("15:04:05"))
			fmt.Fprintf(out, "Datagrams: %d, duplicates: %d\n", stats.Datagrams, stats.Duplicates)
			fmt.Fprintf(out, "Streams: %d of %d complete, %d entries\n", stats.CompleteStreams, stats.Streams, progress.Entries)
			if stats.HeaderComplete {
				fmt.Fprintf(out, "Files announced: %d\n", stats.ExpectedFiles)
			}
			for _, p := range progress.Pending {
				fmt.Fprintf(out, "  stream 0x%04x: %d/%d\n", p.LogicalID, p.Received, p.Total)
			}
			if !files {
				return nil
			}
			statuses, err := apiClient.Files()
			if err != nil {
				return err
			}
			for _, f := range statuses {
				mark := " "
				if f.Complete {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s %d/%d\n", mark, f.Path, f.Covered, f.Size)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiAddress, cmdutil.ApiAddressOptionName, "", "Address of the status API")
	cmd.Flags().BoolVar(&files, FilesOptionName, false, "List the files and how much of them was received")
	return cmd
}
