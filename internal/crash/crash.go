/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report and a last-chance autosave of the open draft.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "skillreport/internal/log"
	"skillreport/internal/storage"
	"skillreport/internal/telemetry"
	"skillreport/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

const flushTimeout = 2 * time.Second

// Recover captures a panic when deferred directly: defer crash.Recover(h).
// h is evaluated at the defer statement; callers whose workspace is opened later
// use Handle from a closure instead.
func Recover(h *storage.WorkspaceHandle) {
	if r := recover(); r != nil {
		Handle(r, h)
	}
}

// Handle reports a recovered panic value: it logs the stack, writes a crash report,
// autosaves the open draft (if any) and exits with code 2. A nil value is ignored, so
// the usual form is
//
//	defer func() { crash.Handle(recover(), ws) }()
func Handle(r any, h *storage.WorkspaceHandle) {
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, _ := writeReport(h, r, stack)
	if h != nil {
		if path, err := storage.AutosaveCrashSnapshot(h); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	// The crash upload is queued; give it a moment before the process goes away.
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	telemetry.Flush(ctx)
	cancel()
	_ = applog.Close()
	exitFn(2)
}

func writeReport(h *storage.WorkspaceHandle, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if h != nil && h.Root != "" {
		dir = filepath.Join(h.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405.000")
	fname := fmt.Sprintf("crash-%s.log", stamp)
	path := filepath.Join(dir, fname)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	report := formatReport(h, panicVal, stack, time.Now())
	// write to file
	if _, err := f.Write(report); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(report)
	return path, nil
}

// formatReport renders the plain-text crash report. Level and task counts are included so a
// report can be matched against the draft that was open, without shipping its content.
func formatReport(h *storage.WorkspaceHandle, panicVal any, stack []byte, now time.Time) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Skill Report Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if h != nil {
		fmt.Fprintf(&buf, "Workspace: %s\n", h.Root)
		fmt.Fprintf(&buf, "Draft: %s\n", h.ManifestPath)
		fmt.Fprintf(&buf, "Skill: %q (%d levels, %d tasks)\n", h.Report.SkillName, len(h.Report.Levels), h.Report.TaskCount())
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)
	return buf.Bytes()
}
