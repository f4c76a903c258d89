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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-mcastfs/cmd/broadcast"
	"jinr.ru/greenlab/go-mcastfs/cmd/cmdutil"
	"jinr.ru/greenlab/go-mcastfs/cmd/completion"
	"jinr.ru/greenlab/go-mcastfs/cmd/config"
	"jinr.ru/greenlab/go-mcastfs/cmd/extract"
	"jinr.ru/greenlab/go-mcastfs/cmd/receive"
	"jinr.ru/greenlab/go-mcastfs/cmd/replay"
	"jinr.ru/greenlab/go-mcastfs/cmd/status"
	pkgconfig "jinr.ru/greenlab/go-mcastfs/pkg/config"
	"jinr.ru/greenlab/go-mcastfs/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel, configPath string
	cmd := &cobra.Command{
		Use:   "go-mcastfs",
		Short: "Tool to receive and extract MCastFSv2 firmware images",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pkgconfig.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(receive.NewCommand())
	cmd.AddCommand(extract.NewCommand())
	cmd.AddCommand(replay.NewCommand())
	cmd.AddCommand(broadcast.NewCommand())
	cmd.AddCommand(status.NewCommand())
	cmd.AddCommand(config.NewCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().StringVar(&configPath, cmdutil.ConfigOptionName, "",
		fmt.Sprintf("Config file. Default %s", pkgconfig.DefaultConfigPath()))
	return cmd
}
