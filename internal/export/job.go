/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"skillreport/internal/domain"
	applog "skillreport/internal/log"
)

// ErrRenderBusy is returned by Runner.Start while another render is still running.
var ErrRenderBusy = errors.New("a report is already being generated")

// RenderFunc is the signature of RenderReport; Runner takes it as a seam for tests.
type RenderFunc func(ctx context.Context, doc domain.ReportDocument, saveDir string, opts Options) (Result, error)

// Runner executes at most one render at a time on a background goroutine. Callers either
// Wait on the returned Job or poll it; there is no cancellation once a render has started.
type Runner struct {
	Render RenderFunc

	busy atomic.Bool
	mu   sync.Mutex
	last *Job
}

// NewRunner returns a Runner that uses RenderReport.
func NewRunner() *Runner { return &Runner{Render: RenderReport} }

// Busy reports whether a render is in flight.
func (r *Runner) Busy() bool { return r.busy.Load() }

// Last returns the most recently started job, or nil.
func (r *Runner) Last() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Start validates doc synchronously and, if it is valid and no other render is running, starts
// rendering a snapshot of it. Validation failures come back as *domain.ValidationError without a
// job being created.
func (r *Runner) Start(doc domain.ReportDocument, saveDir string, opts Options) (*Job, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrRenderBusy
	}
	render := r.Render
	if render == nil {
		render = RenderReport
	}
	j := &Job{ID: uuid.NewString(), Started: time.Now(), done: make(chan struct{})}
	snapshot := doc.Clone()
	userProgress := opts.Progress
	opts.Progress = func(done, total int) {
		if total > 0 {
			j.progress.Store(int64(done * 1000 / total))
		}
		if userProgress != nil {
			userProgress(done, total)
		}
	}
	r.mu.Lock()
	r.last = j
	r.mu.Unlock()

	ctx := applog.ContextWithJob(context.Background(), j.ID)
	l := applog.WithOperation(applog.WithComponent("export"), "job")
	l.InfoContext(ctx, "render started", slog.String("skill", snapshot.SkillName), slog.String("dir", saveDir))
	go func() {
		var res Result
		var err error
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("render panicked: %v", p)
			}
			j.finish(res, err)
			r.busy.Store(false)
			close(j.done)
			if err != nil {
				l.ErrorContext(ctx, "render failed", slog.Any("err", err))
			}
		}()
		res, err = render(ctx, snapshot, saveDir, opts)
	}()
	return j, nil
}

// Job is the handle of one background render.
type Job struct {
	ID      string
	Started time.Time

	done     chan struct{}
	progress atomic.Int64 // per mille

	mu     sync.Mutex
	result Result
	err    error
	ended  time.Time
}

// Status is a point-in-time view of a job, suitable for a polling UI.
type Status struct {
	Running  bool
	Progress float64 // 0..1
	Result   Result
	Err      error
	Elapsed  time.Duration
}

func (j *Job) finish(res Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result, j.err, j.ended = res, err, time.Now()
	if err == nil {
		j.progress.Store(1000)
	}
}

// Done is closed when the render has finished, successfully or not.
func (j *Job) Done() <-chan struct{} { return j.done }

// Running is the activity flag polled by the UI.
func (j *Job) Running() bool {
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the render finishes and returns its outcome.
func (j *Job) Wait() (Result, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Status returns the current state without blocking.
func (j *Job) Status() Status {
	st := Status{Running: j.Running(), Progress: float64(j.progress.Load()) / 1000}
	j.mu.Lock()
	defer j.mu.Unlock()
	if st.Running {
		st.Elapsed = time.Since(j.Started)
		return st
	}
	st.Result, st.Err = j.result, j.err
	st.Elapsed = j.ended.Sub(j.Started)
	return st
}

// Poll calls fn with the job status every interval until the job finishes, then once more with the
// final status. It returns the final status, or early with ctx's error if ctx ends first; the render
// itself keeps running in that case.
func Poll(ctx context.Context, j *Job, interval time.Duration, fn func(Status)) (Status, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-j.Done():
			st := j.Status()
			if fn != nil {
				fn(st)
			}
			return st, nil
		case <-t.C:
			if fn != nil {
				fn(j.Status())
			}
		case <-ctx.Done():
			return j.Status(), ctx.Err()
		}
	}
}
