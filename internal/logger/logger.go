// Package logger provides a structured logging façade shared by every
// component in this module, built on zap and exposed through logr so the
// core never imports zap types directly.
package logger

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log wraps logr.Logger for portability across the module.
type Log struct {
	logr.Logger
}

// New creates a logger appropriate for the given environment. When logPath
// is non-empty, output goes to "<logPath>/<name>.log" instead of the zap
// config's default output.
func New(name, logPath string, production bool) (*Log, error) {
	var zc zap.Config
	if production {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zc.DisableCaller = true
	zc.DisableStacktrace = true

	if logPath != "" {
		if err := os.MkdirAll(logPath, fs.ModeDir); err != nil {
			return nil, err
		}
		zc.OutputPaths = []string{filepath.Join(logPath, fmt.Sprintf("%s.log", name))}
	}

	z, err := zc.Build()
	if err != nil {
		return nil, err
	}

	return &Log{Logger: zapr.NewLogger(z).WithName(name)}, nil
}

// NewSimple creates a logger for tests and short-lived tools.
func NewSimple(name string) *Log {
	return &Log{Logger: zapr.NewLogger(zap.L().Named(name))}
}

// New creates a sub-logger scoped under the given path segment.
func (l *Log) New(path string) *Log {
	return &Log{Logger: l.WithName(path)}
}

// Info logs at the informational level.
func (l *Log) Info(msg string, args ...any) {
	l.Logger.V(0).WithValues(args...).Info(msg)
}

// Debug logs at the debug level.
func (l *Log) Debug(msg string, args ...any) {
	l.Logger.V(1).WithValues(args...).Info(msg)
}

// Trace logs at the trace level.
func (l *Log) Trace(msg string, args ...any) {
	l.Logger.V(2).WithValues(args...).Info(msg)
}
