/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry provides a tiny, privacy‑respecting, opt‑in event sender
// for anonymous usage metrics and optional crash uploads.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "skillreport/internal/log"
	"skillreport/internal/version"
)

// Event names sent by the CLI and the desktop form. Properties never carry
// skill names, paths or task text.
const (
	EventRenderFinished = "render_finished"
	EventRenderFailed   = "render_failed"
	EventImportFinished = "import_finished"
)

// session identifies one process run so events of a run can be grouped without identifying the user.
var session = uuid.NewString()

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt‑in and disabled by default.
//
// Environment variables (read by FromEnv):
// - SKR_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - SKR_TELEMETRY_URL: base URL to POST JSON events to (e.g., https://example.com/telemetry)
// - SKR_CRASH_UPLOAD_URL: URL to POST crash reports to
// - SKR_TELEMETRY_TIMEOUT_MS: optional request timeout, default 1500ms
// - SKR_TELEMETRY_DEBUG: if set, logs event send attempts
//
// If no URLs are set, events are dropped (no‑ops), even if opt‑in is true.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	optIn := parseBool(os.Getenv("SKR_TELEMETRY_OPT_IN"))
	cfg := Config{
		OptIn:        optIn,
		EventsURL:    strings.TrimSpace(os.Getenv("SKR_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("SKR_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("SKR_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("SKR_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

// FromEnvWithOptIn is FromEnv, additionally enabled when the config file opted in.
func FromEnvWithOptIn(configOptIn bool) Config {
	cfg := FromEnv()
	cfg.OptIn = cfg.OptIn || configOptIn
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client is a minimal async sender; it drops events silently on errors.
// It never blocks the caller; the queue is bounded. pending counts queued
// events plus in-flight uploads so Flush can wait for both.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan any
	pending atomic.Int64
	once    sync.Once
	closed  chan struct{}
}

var (
	defaultMu     sync.RWMutex
	defaultClient *Client
	defaultOnce   sync.Once
)

// InitDefault installs a default client configured from env, unless one was installed already.
func InitDefault() {
	defaultOnce.Do(func() { install(New(FromEnv())) })
}

// NewDefault creates and installs the default client with cfg, replacing any previous one.
func NewDefault(cfg Config) {
	c := New(cfg)
	defaultOnce.Do(func() {})
	install(c)
}

func install(c *Client) {
	defaultMu.Lock()
	prev := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

func current() *Client {
	InitDefault()
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultClient
}

// New constructs a client.
func New(cfg Config) *Client {
	l := applog.WithComponent("telemetry")
	c := &Client{
		cfg:    cfg,
		log:    l,
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether anonymous telemetry is enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether anonymous telemetry is enabled using the default client.
func Enabled() bool { return current().Enabled() }

// Event posts a small JSON event if enabled. Safe to call from anywhere.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"session": session,
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		// best‑effort shallow copy, props must be non‑PII
		payload[k] = v
	}
	c.pending.Add(1)
	select {
	case c.q <- payload:
	default:
		// drop if queue full
		c.pending.Add(-1)
	}
}

// Event using default client.
func Event(name string, props map[string]any) { current().Event(name, props) }

// RenderProps builds the anonymous properties of a render event.
func RenderProps(levels, tasks, pages, warnings int, elapsed time.Duration) map[string]any {
	return map[string]any{
		"levels":     levels,
		"tasks":      tasks,
		"pages":      pages,
		"warnings":   warnings,
		"elapsed_ms": elapsed.Milliseconds(),
	}
}

// Flush waits until the default client has sent everything it queued, or ctx ends.
func Flush(ctx context.Context) {
	defaultMu.RLock()
	c := defaultClient
	defaultMu.RUnlock()
	if c != nil {
		c.Flush(ctx)
	}
}

// Flush waits until queued events and crash uploads are done, ctx ends, or twice the
// request timeout has passed.
func (c *Client) Flush(ctx context.Context) {
	limit := 2 * c.cfg.Timeout
	if limit <= 0 {
		limit = time.Second
	}
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

// Close stops background goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.send(item)
			c.pending.Add(-1)
		}
	}
}

func (c *Client) send(item any) {
	buf, _ := json.Marshal(item)
	req, err := http.NewRequest(http.MethodPost, c.cfg.EventsURL, bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry event sent")
	}
}

// UploadCrash posts an already‑serialized crash report to the configured crash URL if opt‑in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.pending.Add(1)
	go func(b []byte) {
		defer c.pending.Add(-1)
		req, err := http.NewRequest(http.MethodPost, c.cfg.CrashURL, bytes.NewReader(b))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp, err := c.cli.Do(req)
		if err != nil {
			if c.cfg.DebugLogging {
				c.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		_ = resp.Body.Close()
		if c.cfg.DebugLogging {
			c.log.Debug("crash report uploaded")
		}
	}(append([]byte(nil), report...))
}

// UploadCrash using default client.
func UploadCrash(report []byte) { current().UploadCrash(report) }
