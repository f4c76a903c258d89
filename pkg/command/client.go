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

package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-mcastfs/pkg/srv"
)

// ApiClient queries the status API of a running receive command
type ApiClient struct {
	ApiPrefix string
}

// NewApiClient accepts host:port or a base URL
func NewApiClient(address string) *ApiClient {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	return &ApiClient{
		ApiPrefix: fmt.Sprintf("%s%s", strings.TrimSuffix(address, "/"), srv.ApiPrefix),
	}
}

func (c *ApiClient) get(path string, v interface{}) error {
	r, err := req.Get(c.ApiPrefix + path)
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	return r.ToJSON(v)
}

// Progress returns the session counters and the pending streams
func (c *ApiClient) Progress() (*srv.Snapshot, error) {
	snapshot := &srv.Snapshot{}
	if err := c.get(srv.ProgressPath, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Files returns the file entries known to the session
func (c *ApiClient) Files() ([]srv.FileStatus, error) {
	var files []srv.FileStatus
	if err := c.get(srv.FilesPath, &files); err != nil {
		return nil, err
	}
	return files, nil
}
