package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type Options struct {
	Level  string
	Format string
	// File receives log output. Empty means stderr.
	File string
}

// New builds a zap logger. The focus TUI owns the terminal, so callers
// normally point File at the data dir. A file that cannot be opened falls
// back to stderr so an unusable data dir still reaches the memory store.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if opts.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	if opts.Level != "" {
		level, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = level
	}

	if opts.File != "" {
		logger, fileErr := toFile(cfg, opts.File)
		if fileErr == nil {
			return logger, nil
		}
		logger, err := toStderr(cfg)
		if err != nil {
			return nil, err
		}
		logger.Warn("log file unavailable, logging to stderr", zap.String("path", opts.File), zap.Error(fileErr))
		return logger, nil
	}
	return toStderr(cfg)
}

func toFile(cfg zap.Config, path string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return logger, nil
}

func toStderr(cfg zap.Config) (*zap.Logger, error) {
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
