// Package logger builds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Options configures the logger
type Options struct {
	Level   string `env:"LEVEL" envDefault:"info"`
	Format  string `env:"FORMAT" envDefault:"console"`
	Service string `env:"SERVICE" envDefault:"orbprop"`
	Writer  io.Writer
}

// FromEnv reads ORBPROP_LOG_* variables.
func FromEnv() Options {
	var opt Options
	if err := env.ParseWithOptions(&opt, env.Options{Prefix: "ORBPROP_LOG_"}); err != nil {
		return Options{Level: "info", Format: "console", Service: "orbprop"}
	}
	return opt
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

// Get returns the root logger, initialising it from the environment on first use.
func Get() zerolog.Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return *root.Load()
}

// Init builds the root logger. Only the first call has any effect.
func Init(opt Options) {
	once.Do(func() {
		root.Store(ptr(New(opt)))
		inited.Store(true)
	})
}

// New builds a standalone logger without touching the root.
func New(opt Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if strings.ToLower(opt.Format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	return ctx.Logger()
}

// Named returns a child of the root logger with a component field.
func Named(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// Nop discards everything; handy in tests.
func Nop() zerolog.Logger { return zerolog.Nop() }

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func ptr[T any](v T) *T { return &v }
