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

package log

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type Level int

const (
	LogPrefix     = "[go-mcastfs] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel Level = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelPrefixes = map[Level]string{
	ErrorLevel:   ErrorPrefix,
	WarningLevel: WarningPrefix,
	InfoLevel:    InfoPrefix,
	DebugLevel:   DebugPrefix,
}

type Logger struct {
	mu    sync.RWMutex
	level Level
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags),
}

func ParseLevel(strLevel string) (Level, error) {
	levelMapping := map[string]Level{
		"error":   ErrorLevel,
		"warning": WarningLevel,
		"info":    InfoLevel,
		"debug":   DebugLevel,
	}
	level, ok := levelMapping[strLevel]
	if !ok {
		return InfoLevel, errors.New("Wrong log level. " + HelpLevels)
	}
	return level, nil
}

func SetLevel(strLevel string) error {
	level, err := ParseLevel(strLevel)
	if err != nil {
		return err
	}
	logger.mu.Lock()
	logger.level = level
	logger.mu.Unlock()
	return nil
}

// Init redirects the output and sets the level
func Init(out io.Writer, strLevel string) error {
	logger.SetOutput(out)
	return SetLevel(strLevel)
}

// Enabled reports whether messages of the level are printed.
// Use it to skip building expensive debug output such as hex dumps.
func Enabled(level Level) bool {
	logger.mu.RLock()
	defer logger.mu.RUnlock()
	return logger.level >= level
}

func output(level Level, format string, v ...interface{}) {
	if Enabled(level) {
		logger.Println(fmt.Sprintf(levelPrefixes[level]+format, v...))
	}
}

func Error(format string, v ...interface{}) {
	output(ErrorLevel, format, v...)
}

func Warning(format string, v ...interface{}) {
	output(WarningLevel, format, v...)
}

func Info(format string, v ...interface{}) {
	output(InfoLevel, format, v...)
}

func Debug(format string, v ...interface{}) {
	output(DebugLevel, format, v...)
}

type levelWriter Level

func (w levelWriter) Write(p []byte) (int, error) {
	output(Level(w), "%s", bytes.TrimRight(p, "\n"))
	return len(p), nil
}

// Writer returns an io.Writer printing every write as one message of the level
func Writer(level Level) io.Writer {
	return levelWriter(level)
}
