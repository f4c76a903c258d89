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

// Package cmdutil holds the flags and helpers shared by the subcommands
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-mcastfs/pkg/config"
	"jinr.ru/greenlab/go-mcastfs/pkg/extract"
)

const (
	ConfigOptionName       = "config"
	DirOptionName          = "dir"
	OnlyOptionName         = "only"
	NoDecompressOptionName = "no-decompress"
	KeepPartialOptionName  = "keep-partial"
	GroupOptionName        = "group"
	PortOptionName         = "port"
	ApiAddressOptionName   = "api-address"
	StateDBOptionName      = "state-db"
)

// LoadConfig loads the file named by the persistent config flag, or the default one
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(ConfigOptionName)
	return config.Load(path)
}

// SignalContext is cancelled on SIGINT or SIGTERM
func SignalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// CheckMulticastGroup rejects addresses outside the multicast ranges
func CheckMulticastGroup(group string) error {
	if group == "" {
		return fmt.Errorf("--%s is required", GroupOptionName)
	}
	ip := net.ParseIP(group)
	if ip == nil || !ip.IsMulticast() {
		return fmt.Errorf("%s is not a multicast address", group)
	}
	return nil
}

// ExtractFlags are the output flags of the commands writing a tree
type ExtractFlags struct {
	Dir          string
	Only         []string
	NoDecompress bool
	KeepPartial  bool
}

func (f *ExtractFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Dir, DirOptionName, "", "Directory to extract to")
	cmd.Flags().StringArrayVar(&f.Only, OnlyOptionName, nil, "Extract only this file name or path, repeatable")
	cmd.Flags().BoolVar(&f.NoDecompress, NoDecompressOptionName, false, "Keep compressed files as they are")
	cmd.Flags().BoolVar(&f.KeepPartial, KeepPartialOptionName, false, "Write incomplete received files with gaps zero filled, extract always does")
}

// Options merges the flags over the config, the output directory is mandatory
func (f *ExtractFlags) Options(cfg *config.Config) (extract.Options, error) {
	opts := extract.Options{
		Dir:              cfg.Extract.Dir,
		Only:             f.Only,
		Decompress:       cfg.Extract.Decompress && !f.NoDecompress,
		CompressedSuffix: cfg.Extract.CompressedSuffix,
		KeepPartial:      cfg.Extract.KeepPartial || f.KeepPartial,
	}
	if f.Dir != "" {
		opts.Dir = f.Dir
	}
	if opts.Dir == "" {
		return opts, fmt.Errorf("--%s is required", DirOptionName)
	}
	return opts, nil
}

// PrintReport writes the extraction summary and the per-file issues
func PrintReport(out io.Writer, report *extract.Report) {
	if report == nil {
		return
	}
	for _, record := range report.Written {
		fmt.Fprintf(out, "Extracted %s (%d bytes)\n", record.Path, record.Size)
	}
	for _, issue := range report.Issues {
		fmt.Fprintf(out, "Warning: %s\n", issue.Err)
	}
	fmt.Fprintf(out, "%d files extracted, %d directories created, %d issues\n",
		len(report.Written), report.Directories, len(report.Issues))
}
