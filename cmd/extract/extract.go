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

package extract

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-mcastfs/cmd/cmdutil"
	pkgcmd "jinr.ru/greenlab/go-mcastfs/pkg/cmd"
)

const (
	FileOptionName = "file"
)

// NewCommand creates the command extracting a local container file
func NewCommand() *cobra.Command {
	var file string
	extractFlags := &cmdutil.ExtractFlags{}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract an MCastFSv2 firmware container file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--%s is required", FileOptionName)
			}
			cfg, err := cmdutil.LoadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := extractFlags.Options(cfg)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			report, err := pkgcmd.ExtractContainer(file, opts)
			cmdutil.PrintReport(cmd.OutOrStdout(), report)
			return err
		},
	}
	cmd.Flags().StringVar(&file, FileOptionName, "", "Path to the MCastFSv2 firmware container")
	extractFlags.Register(cmd)
	return cmd
}
