package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is where the JSON log files are written.
const DefaultDir = "logs"

// New creates a structured slog.Logger based on the provided level string.
// Every record goes to stdout (text) and logs/info.log (JSON); errors are
// additionally appended to logs/error.log.
func New(level string) (*slog.Logger, error) {
	return NewInDir(level, DefaultDir)
}

// NewInDir is New with a configurable log directory.
func NewInDir(level, dir string) (*slog.Logger, error) {
	handlerLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	errorFile, err := os.OpenFile(filepath.Join(dir, "error.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}

	infoFile, err := os.OpenFile(filepath.Join(dir, "info.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}

	handler := NewMultiLevelHandler(
		handlerLevel,
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: handlerLevel}),
		slog.NewJSONHandler(infoFile, &slog.HandlerOptions{Level: handlerLevel}),
		slog.NewJSONHandler(errorFile, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	return slog.New(handler), nil
}

// Discard returns a logger that drops every record. Used by tests and CLIs.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// MultiLevelHandler fans records out to console, info file and error file handlers.
type MultiLevelHandler struct {
	consoleHandler   slog.Handler
	infoFileHandler  slog.Handler
	errorFileHandler slog.Handler
	level            slog.Leveler
}

func NewMultiLevelHandler(level slog.Leveler, consoleHandler, infoFileHandler, errorFileHandler slog.Handler) *MultiLevelHandler {
	return &MultiLevelHandler{
		consoleHandler:   consoleHandler,
		infoFileHandler:  infoFileHandler,
		errorFileHandler: errorFileHandler,
		level:            level,
	}
}

func (h *MultiLevelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *MultiLevelHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error

	if err := h.consoleHandler.Handle(ctx, r); err != nil {
		errs = append(errs, err)
	}
	if err := h.infoFileHandler.Handle(ctx, r); err != nil {
		errs = append(errs, err)
	}
	if r.Level >= slog.LevelError {
		if err := h.errorFileHandler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *MultiLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MultiLevelHandler{
		consoleHandler:   h.consoleHandler.WithAttrs(attrs),
		infoFileHandler:  h.infoFileHandler.WithAttrs(attrs),
		errorFileHandler: h.errorFileHandler.WithAttrs(attrs),
		level:            h.level,
	}
}

func (h *MultiLevelHandler) WithGroup(name string) slog.Handler {
	return &MultiLevelHandler{
		consoleHandler:   h.consoleHandler.WithGroup(name),
		infoFileHandler:  h.infoFileHandler.WithGroup(name),
		errorFileHandler: h.errorFileHandler.WithGroup(name),
		level:            h.level,
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.New("invalid log level")
	}
}
