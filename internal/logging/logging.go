// Package logging builds the per-run logger. Each run writes its own file
// into the catalog's log directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bdmihai/pyphotodb/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName returns the log file name of a run of command started at t.
func FileName(command string, t time.Time) string {
	return t.Format("2006-01-02-15-04-05") + "." + command + ".log"
}

// Run is the logger of one run together with the file it writes to.
type Run struct {
	*zap.Logger
	Path string

	file *lumberjack.Logger
}

// Close flushes the logger and closes its file.
func (r *Run) Close() error {
	r.Logger.Sync()
	return r.file.Close()
}

// New returns a logger writing to a new file for command inside dir. The
// logger carries the command and a fresh run id.
func New(dir, command string, cfg config.Log) (*Run, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	path := filepath.Join(dir, FileName(command, time.Now()))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(file), zap.NewAtomicLevelAt(level))
	logger := zap.New(core).With(
		zap.String("command", command),
		zap.String("run", uuid.NewString()),
	)

	return &Run{Logger: logger, Path: path, file: file}, nil
}
