/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log provides centralized slog-based logging for skillreport.
// Records go to a human-readable console handler (or JSON) and, when a file is
// configured, to a rotating JSON file. Render jobs and drafts are tagged through
// the context so every line logged while rendering carries job=<id> draft=<path>.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"skillreport/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization.
// Values can be provided directly or via environment variables:
//   - SKR_LOG_LEVEL=debug|info|warn|error
//   - SKR_LOG_FORMAT=console|json
//   - SKR_LOG_FILE=<path> (enables file logging with rotation)
//   - SKR_LOG_SOURCE=true|false (include source)
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string // optional path for file logging (rotated)

	// Console receives console output; nil means os.Stderr.
	Console io.Writer
	// Rotation limits for File; zero values use 10 MB, 3 backups, 28 days.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu      sync.RWMutex
	current *slog.Logger
	file    *lj.Logger
)

// L returns the application logger, initializing it from the environment on first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init (re)configures the application logger and installs it as slog.Default.
// A file writer from a previous Init is closed.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	hopts := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}
	out := opts.Console
	if out == nil {
		out = os.Stderr
	}

	var console slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		console = slog.NewJSONHandler(out, hopts)
	} else {
		console = newConsoleHandler(out, lvl, opts.AddSource)
	}
	handlers := []slog.Handler{console}

	var fw *lj.Logger
	if p := strings.TrimSpace(opts.File); p != "" {
		fw = &lj.Logger{
			Filename:   p,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(fw, hopts))
	}

	logger := slog.New(contextAttrs{next: fanout(handlers)}).With(
		slog.String("app", "skillreport"),
		slog.String("ver", version.Version),
		slog.Int("pid", os.Getpid()),
	)

	mu.Lock()
	prev := file
	current, file = logger, fw
	mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	slog.SetDefault(logger)
}

// Close flushes and closes the rotating log file, if any. Logging keeps working on the console.
func Close() error {
	mu.Lock()
	fw := file
	file = nil
	mu.Unlock()
	if fw == nil {
		return nil
	}
	return fw.Close()
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// FromEnv builds Options from environment variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("SKR_LOG_LEVEL", "info"),
		Format:    getenv("SKR_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("SKR_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("SKR_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// Since is a convenience attr for elapsed time, logged as elapsed=<duration>.
func Since(start time.Time) slog.Attr { return slog.Duration("elapsed", time.Since(start)) }

type ctxKey int

const (
	ctxKeyJob ctxKey = iota + 1
	ctxKeyDraft
)

// ContextWithJob tags ctx so records logged with it carry job=<id>.
func ContextWithJob(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyJob, id)
}

// ContextWithDraft tags ctx so records logged with it carry draft=<path>.
func ContextWithDraft(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, ctxKeyDraft, path)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// contextAttrs copies the job and draft tags from the context onto each record.
type contextAttrs struct{ next slog.Handler }

func (c contextAttrs) Enabled(ctx context.Context, level slog.Level) bool {
	return c.next.Enabled(ctx, level)
}

func (c contextAttrs) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id, ok := ctx.Value(ctxKeyJob).(string); ok && id != "" {
			r.AddAttrs(slog.String("job", id))
		}
		if p, ok := ctx.Value(ctxKeyDraft).(string); ok && p != "" {
			r.AddAttrs(slog.String("draft", p))
		}
	}
	return c.next.Handle(ctx, r)
}

func (c contextAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextAttrs{next: c.next.WithAttrs(attrs)}
}

func (c contextAttrs) WithGroup(name string) slog.Handler {
	return contextAttrs{next: c.next.WithGroup(name)}
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
