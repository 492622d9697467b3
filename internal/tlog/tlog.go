// Package tlog wraps zerolog for the tokenizer's ambient logging needs:
// training progress at <=1% cadence and cache rebuild/invalidation notices.
// The package logger writes to io.Discard until SetOutput or
// UseConsoleWriter redirects it, so library consumers who never call
// either see no log output.
package tlog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = zerolog.New(io.Discard).With().Timestamp().Logger()
)

// SetOutput redirects the package logger to w (e.g. os.Stderr for CLI use).
// Passing nil restores the discard-everything default.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	log = zerolog.New(w).With().Timestamp().Logger()
}

// UseConsoleWriter points the package logger at a human-readable console
// writer on stderr, the shape the teacher's cmd/ binaries want.
func UseConsoleWriter() {
	SetOutput(zerolog.ConsoleWriter{Out: os.Stderr})
}

// Progress logs a training/build progress line.
func Progress(event string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	e := log.Info().Str("event", event)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(event)
}

// Warn logs a recoverable condition (e.g. a cache miss that triggers rebuild).
func Warn(event string, err error) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn().Str("event", event).Err(err).Msg(event)
}
