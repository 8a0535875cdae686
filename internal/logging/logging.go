package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"card-parlor/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	output  io.Writer = os.Stdout
	logFile *lumberjack.Logger
)

// Init configures the global zerolog logger. When cfg.File is set, logs go to
// stdout and to a size-capped file.
func Init(cfg config.LogConfig) error {
	mu.Lock()
	defer mu.Unlock()

	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	if cfg.File != "" {
		logFile = newFileWriter(cfg.File, cfg.MaxMB)
		out = zerolog.MultiLevelWriter(out, logFile)
	}
	output = out

	zerolog.SetGlobalLevel(level)
	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// newFileWriter caps the log file at maxMB and keeps one rotated backup.
func newFileWriter(path string, maxMB int) *lumberjack.Logger {
	if maxMB <= 0 {
		maxMB = 10
	}
	return &lumberjack.Logger{Filename: path, MaxSize: maxMB, MaxBackups: 1}
}

// Writer is where Init sends logs; the HTTP request logger shares it.
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	output = os.Stdout
	return err
}
