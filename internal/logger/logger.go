package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/session"
)

// LogConfig holds logging settings, read from the environment by config.Load
type LogConfig struct {
	// trace, debug, info, warn, error
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	// json, text
	Format string `env:"LOG_FORMAT" envDefault:"text"`
	// stdout, file, both
	Output string `env:"LOG_OUTPUT" envDefault:"stdout"`

	Path       string `env:"LOG_PATH" envDefault:"./logs"`
	File       string `env:"LOG_FILE" envDefault:"plm.log"`
	MaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"` // MB
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	MaxAge     int    `env:"LOG_MAX_AGE" envDefault:"7"` // days
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// ContextKey is the type of values this package reads from a context
type ContextKey string

const RequestIDKey ContextKey = "requestID"

var (
	appLogger = logrus.New()
	closers   []io.Closer
	mu        sync.Mutex
)

// Init configures the application logger. Without a call, the logger writes
// text at info level to stderr.
func Init(cfg LogConfig) error {
	mu.Lock()
	defer mu.Unlock()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	appLogger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		appLogger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		appLogger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	var writers []io.Writer
	output := strings.ToLower(cfg.Output)
	if output == "file" || output == "both" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		fileWriter := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Path, cfg.File),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		writers = append(writers, fileWriter)
		closers = append(closers, fileWriter)
	}
	if output != "file" {
		writers = append(writers, os.Stdout)
	}
	appLogger.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close flushes and closes rotated log files.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	for _, c := range closers {
		_ = c.Close()
	}
	closers = nil
}

func L() *logrus.Logger {
	return appLogger
}

// WithContext returns an entry carrying the request id and session email
// found in ctx.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := appLogger.WithContext(ctx)
	if rid, ok := ctx.Value(RequestIDKey).(string); ok && rid != "" {
		entry = entry.WithField("request_id", rid)
	}
	if s, ok := session.FromContext(ctx); ok {
		entry = entry.WithFields(logrus.Fields{
			"session_email": s.Email,
			"session_role":  s.Role,
		})
	}
	return entry
}
