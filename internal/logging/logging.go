// Package logging builds the logrus logger shared by the CLI and the API client.
package logging

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/waabox/orderdeck/internal/config"
)

const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// New returns a logger configured from cfg. When cfg.File is set logs go to
// a rotating file, otherwise to stderr. An unparsable level falls back to info.
func New(cfg config.LogConfig) *log.Logger {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	logger.SetOutput(output(cfg.File))

	level, err := log.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func output(file string) io.Writer {
	if file == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
}
