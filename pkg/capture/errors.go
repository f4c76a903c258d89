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

package capture

import "fmt"

// ErrTruncatedCapture is returned when the last record of a capture is cut short
type ErrTruncatedCapture struct {
	Offset int64
	Want   int
	Got    int
}

func (e ErrTruncatedCapture) Error() string {
	return fmt.Sprintf("Truncated capture record at offset %d: want %d bytes, got %d", e.Offset, e.Want, e.Got)
}

// ErrRecordTooLong is returned when a length prefix exceeds the largest UDP payload
type ErrRecordTooLong struct {
	Offset int64
	Length uint32
}

func (e ErrRecordTooLong) Error() string {
	return fmt.Sprintf("Capture record at offset %d declares %d bytes, max %d", e.Offset, e.Length, MaxRecordLen)
}
