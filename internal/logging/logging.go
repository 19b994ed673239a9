package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the log file. Empty disables file logging.
	FilePath string
	// MaxSizeMB is the size in MB before rotation.
	MaxSizeMB int
	// MaxFiles is the number of rotated files kept.
	MaxFiles int
	// WriteToStderr also writes every record to stderr.
	WriteToStderr bool
	// SyncEveryWrite fsyncs the log file after each record.
	SyncEveryWrite bool
}

// DefaultConfig returns the CLI logging defaults.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		FilePath:       DefaultLogPath(),
		MaxSizeMB:      10,
		MaxFiles:       5,
		WriteToStderr:  true,
		SyncEveryWrite: true,
	}
}

// DebugConfig returns the configuration used with --debug.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// ServerConfig returns a file-only configuration for the MCP server.
func ServerConfig(level string) Config {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.WriteToStderr = false
	// A long-running server writes often; rotation and cleanup flush it.
	cfg.SyncEveryWrite = false
	return cfg
}

// Setup builds a JSON logger for cfg. The returned cleanup function flushes
// and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var outputs []io.Writer
	cleanup := func() {}

	if cfg.FilePath != "" {
		writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		writer.SetImmediateSync(cfg.SyncEveryWrite)
		outputs = append(outputs, writer)
		cleanup = func() {
			_ = writer.Sync()
			_ = writer.Close()
		}
	}
	if cfg.WriteToStderr {
		outputs = append(outputs, os.Stderr)
	}

	var output io.Writer
	switch len(outputs) {
	case 0:
		output = io.Discard
	case 1:
		output = outputs[0]
	default:
		output = io.MultiWriter(outputs...)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	return slog.New(handler), cleanup, nil
}

// SetupDefault runs Setup and installs the logger as slog's default.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	logger.Debug("logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.Bool("stderr", cfg.WriteToStderr))
	return cleanup, nil
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
