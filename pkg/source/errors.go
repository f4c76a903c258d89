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

package source

import (
	"fmt"
	"time"
)

// ErrReceiveTimeout is returned when no datagram arrived within the receive timeout
type ErrReceiveTimeout struct {
	Timeout time.Duration
}

func (e ErrReceiveTimeout) Error() string {
	return fmt.Sprintf("No datagram received within %s", e.Timeout)
}

// ErrNotOpen is returned by ReadPacketData before Open
type ErrNotOpen struct {
	What string
}

func (e ErrNotOpen) Error() string {
	return fmt.Sprintf("Source is not open: %s", e.What)
}
