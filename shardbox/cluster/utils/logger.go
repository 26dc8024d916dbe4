// Copyright 2023 lucarondanini
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"io"
	"os"
	"path"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logInstance *Logger
var loggerOnce sync.Once

func GetLogger() *Logger {
	loggerOnce.Do(func() {
		logInstance = Configure(GetClusterConfiguration())
	})
	return logInstance
}

type Logger struct {
	*zerolog.Logger
}

func Configure(conf *Configuration) *Logger {
	var writers []io.Writer

	switch conf.LOG_TO {
	case "file":
		writers = append(writers, newRollingFile(conf))
	case "both":
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
		writers = append(writers, newRollingFile(conf))
	default:
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}

	mw := io.MultiWriter(writers...)

	switch conf.LOG_LEVEL {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	}

	logger := zerolog.New(mw).With().Timestamp().Logger()
	return &Logger{
		Logger: &logger,
	}
}

func newRollingFile(conf *Configuration) io.Writer {
	if conf.LOG_DIR == "" {
		conf.LOG_DIR = "./shard-box-logs"
	}
	if conf.LOG_FILE_NAME == "" {
		conf.LOG_FILE_NAME = "log.txt"
	}

	if conf.LOG_FILE_MAX_SIZE == 0 {
		// MaxSize the max size in MB of the logfile before it's rolled
		conf.LOG_FILE_MAX_SIZE = 20
	}

	if conf.LOG_FILE_MAX_NUM_BACKUPS == 0 {
		// MaxBackups the max number of rolled files to keep
		conf.LOG_FILE_MAX_NUM_BACKUPS = 10
	}

	if conf.LOG_FILE_MAX_AGE == 0 {
		// MaxAge the max age in days to keep a logfile
		conf.LOG_FILE_MAX_AGE = 10
	}

	return &lumberjack.Logger{
		Filename:   path.Join(conf.LOG_DIR, conf.LOG_FILE_NAME),
		MaxBackups: conf.LOG_FILE_MAX_NUM_BACKUPS, // files
		MaxSize:    conf.LOG_FILE_MAX_SIZE,        // megabytes
		MaxAge:     conf.LOG_FILE_MAX_AGE,         // days
	}
}

func (c *Logger) Trace(msg string) {
	if c.Logger == nil {
		return
	}
	c.Logger.Trace().Msg(msg)
}

func (c *Logger) Debug(msg string) {
	if c.Logger == nil {
		return
	}
	c.Logger.Debug().Msg(msg)
}

func (c *Logger) Info(msg string) {
	if c.Logger == nil {
		return
	}
	c.Logger.Info().Msg(msg)
}

func (c *Logger) Warn(msg string) {
	if c.Logger == nil {
		return
	}
	c.Logger.Warn().Msg(msg)
}

func (c *Logger) Error(err error, msg string) {
	if c.Logger == nil {
		return
	}
	c.Logger.Error().Err(err).Msg(msg)
}

func (c *Logger) Fatal(err error, msg string) {
	if c.Logger == nil {
		return
	}
	c.Logger.Fatal().Err(err).Msg(msg)
}
