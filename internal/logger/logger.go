// Package logger builds the daemon's slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config represents logger configuration.
type Config struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // json or text
	FileOutput  bool   `yaml:"file_output"`
	FileName    string `yaml:"file_name"`
	FileMaxSize string `yaml:"file_max_size"`
}

// New returns a logger writing to stdout and, when enabled, a rotating file.
// The returned closer releases the file; it is a no-op otherwise.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.FileOutput {
		if cfg.FileName == "" {
			return nil, nil, fmt.Errorf("file_name is required when file_output is enabled")
		}
		maxSize, err := parseMaxSize(cfg.FileMaxSize)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid file_max_size: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename: cfg.FileName,
			MaxSize:  maxSize, // megabytes
			Compress: true,
		}
		w = io.MultiWriter(os.Stdout, lj)
		closer = lj
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(w, opts)
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	return slog.New(h), closer, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// parseMaxSize converts a size string such as "10MB" to megabytes.
func parseMaxSize(s string) (int, error) {
	if s == "" {
		return 10, nil
	}
	s = strings.TrimSuffix(strings.ToUpper(s), "MB")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size format: %s", s)
	}
	return n, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
