// Package logging builds the application's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gridstatus/internal-analytics/internal/config"
)

// NewLogger creates a slog.Logger writing JSON to stdout and to a
// size-rotated file under the configured logs directory. In the test
// environment the file writer is skipped.
func NewLogger(cfg *config.Config) *slog.Logger {
	writers := []io.Writer{os.Stdout}

	if !cfg.IsTest() {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogsDirectory, cfg.AppName+".log"),
			MaxSize:    cfg.LogsMaxSizeInMb,
			MaxBackups: cfg.LogsMaxBackups,
			MaxAge:     cfg.LogsMaxAgeInDays,
			Compress:   true,
		})
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: level(cfg.LogLevel),
	})

	return slog.New(handler).With(slog.String("app", cfg.AppName))
}

func level(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
