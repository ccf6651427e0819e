package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harrisonrobin/nextact/pkg/config"
)

// Common field keys.
const (
	KeyBackend = "backend"
	KeyMethod  = "method"
	KeyToken   = "token"
	KeyProject = "project"
)

// New builds a logger writing to stderr so report output on stdout stays clean.
func New(cfg config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.Sampling = nil
	zc.DisableStacktrace = true
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(cfg.Encoding) {
	case "", "console":
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		zc.Encoding = "json"
	default:
		return nil, fmt.Errorf("invalid log encoding %q", cfg.Encoding)
	}
	return zc.Build()
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}

func Backend(name string) zap.Field {
	return zap.String(KeyBackend, name)
}

func Method(name string) zap.Field {
	return zap.String(KeyMethod, name)
}

func Project(name string) zap.Field {
	return zap.String(KeyProject, name)
}

// Token logs only the length of a credential, never its content.
func Token(token string) zap.Field {
	return zap.String(KeyToken, SanitizeToken(token))
}

func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
