// Package logger builds the zerolog loggers used across viewscope.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

type LogBuild struct {
	writer     io.Writer
	path       string
	level      zerolog.Level
	LogChannel chan string
}

type LogData struct {
	writer     io.Writer
	LogFile    *os.File
	Logger     zerolog.Logger
	LogChannel chan string
}

func New() *LogBuild {
	return &LogBuild{level: zerolog.InfoLevel}
}

func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// FromChannel sends every log line to chn in addition to the main writer.
// Lines are dropped when the channel is full.
func (build *LogBuild) FromChannel(chn chan string) *LogBuild {
	build.LogChannel = chn
	return build
}

func (build *LogBuild) WithLevel(level zerolog.Level) *LogBuild {
	build.level = level
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = new(LogData)
	logData.writer = os.Stdout
	if build.writer != nil {
		logData.writer = build.writer
	}
	logData.LogChannel = build.LogChannel
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		logData.writer = zerolog.SyncWriter(logData.LogFile)
	}
	w := logData.writer
	if logData.LogChannel != nil {
		w = zerolog.MultiLevelWriter(w, channelWriter(logData.LogChannel))
	}
	logData.Logger = zerolog.New(w).Level(build.level).With().Timestamp().Logger()
	return
}

// Close releases the log file, if any.
func (logData *LogData) Close() error {
	if logData.LogFile == nil {
		return nil
	}
	return logData.LogFile.Close()
}

type channelWriter chan string

func (c channelWriter) Write(p []byte) (int, error) {
	select {
	case c <- strings.TrimRight(string(p), "\n"):
	default:
	}
	return len(p), nil
}

// ParseLevel maps a level name to a zerolog level. An empty name is info.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
