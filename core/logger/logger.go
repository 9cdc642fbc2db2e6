// Package logger provides structured, single-line logging for the whole
// application on top of log/slog. Lines carry a stable key order, a component
// tag, and correlation metadata taken from context.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Options describes everything Init needs. The package deliberately does not
// depend on the config package so low-level packages can import logger freely.
type Options struct {
	Level       string // debug|info|warn|error
	Format      string // kv|json; empty picks by profile
	Profile     string // debug|prod
	Dir         string // log file directory; empty disables file output
	File        string // log file name inside Dir
	DebugSample string // ratio spec like "1/50" for sampled debug logs
}

var (
	// L is the root application logger.
	L *slog.Logger

	// Component loggers. Each one tags its lines with a component field so
	// a single log stream stays greppable per subsystem.
	DB           *slog.Logger
	MIG          *slog.Logger
	TG           *slog.Logger
	TWire        *slog.Logger
	Sender       *slog.Logger
	Ops          *slog.Logger
	SVCSessions  *slog.Logger
	SVCRate      *slog.Logger
	SVCOffers    *slog.Logger
	SVCPostback  *slog.Logger
	SVCHelp      *slog.Logger
	SVCBroadcast *slog.Logger

	initOnce sync.Once
	writer   *fanoutWriter
	sampler  = newRatioSampler(0, 0)
	logFile  *os.File
)

// Loggers stay usable before Init so tests and early startup paths never
// hit a nil logger; records go nowhere until Init installs real sinks.
func init() {
	assign(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func assign(h slog.Handler) {
	L = slog.New(h).With("component", "app")
	DB = slog.New(h).With("component", "db")
	MIG = slog.New(h).With("component", "migrate")
	TG = slog.New(h).With("component", "tg")
	TWire = slog.New(h).With("component", "tg.wire")
	Sender = slog.New(h).With("component", "tg.sender")
	Ops = slog.New(h).With("component", "ops")
	SVCSessions = slog.New(h).With("component", "service.sessions")
	SVCRate = slog.New(h).With("component", "service.ratelimit")
	SVCOffers = slog.New(h).With("component", "service.offers")
	SVCPostback = slog.New(h).With("component", "service.postback")
	SVCHelp = slog.New(h).With("component", "service.help")
	SVCBroadcast = slog.New(h).With("component", "service.broadcast")
}

// Init configures the global loggers. Safe to call once at startup; later
// calls are no-ops.
func Init(opts Options) error {
	var initErr error
	initOnce.Do(func() {
		initErr = initialize(opts)
	})
	return initErr
}

func initialize(opts Options) error {
	level := parseLevel(opts.Level)
	format := pickFormat(opts.Format, opts.Profile)

	sinks := []io.Writer{os.Stdout}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		name := opts.File
		if name == "" {
			name = "offerbot.log"
		}
		f, err := os.OpenFile(filepath.Join(opts.Dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		sinks = append(sinks, f)
	}

	writer = newFanoutWriter(sinks, 0)
	assign(newOrderedHandler(handlerConfig{
		level:  level,
		writer: writer,
		format: format,
	}))

	if spec := strings.TrimSpace(opts.DebugSample); spec != "" {
		num, den := parseRatioSpec(spec)
		sampler.Set(num, den)
	}

	slog.SetDefault(L)
	return nil
}

// Shutdown flushes and closes the underlying writer. Call before exit.
func Shutdown() error {
	if writer == nil {
		return nil
	}
	err := writer.Close()
	if logFile != nil {
		if cerr := logFile.Close(); err == nil {
			err = cerr
		}
		logFile = nil
	}
	return err
}

// Flush forces buffered log lines out to all sinks.
func Flush() error {
	if writer == nil {
		return nil
	}
	return writer.Flush()
}

// ShouldSampleDebug reports whether a sampled debug line should be emitted.
// Setting OFFERBOT_TRACE=1 bypasses sampling entirely.
func ShouldSampleDebug() bool {
	if os.Getenv("OFFERBOT_TRACE") == "1" {
		return true
	}
	return sampler.Allow()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func pickFormat(format, profile string) logFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return formatJSON
	case "kv":
		return formatKV
	}
	if strings.ToLower(strings.TrimSpace(profile)) == "debug" {
		return formatKV
	}
	return formatJSON
}
