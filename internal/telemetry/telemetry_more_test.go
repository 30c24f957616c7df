/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Disabled via OptIn=false
	c := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: time.Second})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	c.UploadCrash([]byte("ignored"))
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests when disabled")
	}

	// Enabled but empty event name should be ignored
	c2 := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(context.Background())
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests for empty event name")
	}
}

func TestRenderPropsAndConfigOptIn(t *testing.T) {
	p := RenderProps(2, 6, 4, 1, 1500*time.Millisecond)
	if p["tasks"] != 6 || p["pages"] != 4 || p["elapsed_ms"] != int64(1500) {
		t.Fatalf("unexpected props: %v", p)
	}
	t.Setenv("SKR_TELEMETRY_OPT_IN", "")
	if FromEnvWithOptIn(false).OptIn {
		t.Fatalf("expected opt-out by default")
	}
	if !FromEnvWithOptIn(true).OptIn {
		t.Fatalf("config opt-in should enable telemetry")
	}
	if session == "" {
		t.Fatalf("session id should be set")
	}
}

func TestClient_FlushWaitsForInFlightSend(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, CrashURL: srv.URL, Timeout: 2 * time.Second})
	defer c.Close()
	c.Event(EventRenderFinished, RenderProps(1, 1, 1, 0, time.Second))
	c.UploadCrash([]byte("report"))
	c.Flush(context.Background())
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("Flush returned before sends finished: hits=%d", got)
	}
	if c.pending.Load() != 0 {
		t.Fatalf("pending = %d after flush", c.pending.Load())
	}
}

func TestNewDefault_NotReplacedByLazyInit(t *testing.T) {
	NewDefault(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/unused", Timeout: time.Second})
	if !Enabled() {
		t.Fatal("explicitly installed client was replaced by the env default")
	}
	NewDefault(FromEnv())
}
