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

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"sigs.k8s.io/yaml"
)

type ReceiveConfig struct {
	Group     string `json:"group,omitempty"`
	Port      int    `json:"port,omitempty"`
	Interface string `json:"interface,omitempty"`
	Timeout   string `json:"timeout,omitempty"`
	// ProgressInterval limits the progress log lines
	ProgressInterval string `json:"progressInterval,omitempty"`
}

type ExtractConfig struct {
	Dir              string `json:"dir,omitempty"`
	Decompress       bool   `json:"decompress"`
	CompressedSuffix string `json:"compressedSuffix,omitempty"`
	KeepPartial      bool   `json:"keepPartial"`
}

type ApiConfig struct {
	Address string `json:"address,omitempty"`
}

type StateConfig struct {
	// DBPath enables the session journal when set
	DBPath string `json:"dbPath,omitempty"`
}

type BroadcastConfig struct {
	Interval string `json:"interval,omitempty"`
}

type Config struct {
	LogLevel  string           `json:"logLevel,omitempty"`
	Receive   *ReceiveConfig   `json:"receive,omitempty"`
	Extract   *ExtractConfig   `json:"extract,omitempty"`
	Api       *ApiConfig       `json:"api,omitempty"`
	State     *StateConfig     `json:"state,omitempty"`
	Broadcast *BroadcastConfig `json:"broadcast,omitempty"`
	filepath  string
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// LoadConfig merges the file over the current values
func (c *Config) LoadConfig() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Receive: &ReceiveConfig{
			Port:             DefaultReceivePort,
			Timeout:          DefaultReceiveTimeout,
			ProgressInterval: DefaultProgressInterval,
		},
		Extract: &ExtractConfig{
			Decompress:       true,
			CompressedSuffix: DefaultCompressedSuffix,
		},
		Api:       &ApiConfig{Address: DefaultApiAddress},
		State:     &StateConfig{},
		Broadcast: &BroadcastConfig{Interval: DefaultBroadcastInterval},
		filepath:  DefaultConfigPath(),
	}
}

// NewDefaultConfigAt returns the defaults bound to path, the default location when empty
func NewDefaultConfigAt(path string) *Config {
	c := NewDefaultConfig()
	if path != "" {
		c.filepath = path
	}
	return c
}

// Load returns the defaults overridden by the config file at path, a missing file is not an error.
// An empty path means the default location.
func Load(path string) (*Config, error) {
	c := NewDefaultConfigAt(path)
	if err := c.LoadConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return c, nil
}

func (c *ReceiveConfig) ReceiveTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}
