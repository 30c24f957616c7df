/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package workflow holds the steps shared by the command line and the desktop form:
// loading a draft, preparing it for rendering and recording what a render produced.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skillreport/internal/config"
	"skillreport/internal/courseimport"
	"skillreport/internal/domain"
	"skillreport/internal/export"
	applog "skillreport/internal/log"
	"skillreport/internal/storage"
	"skillreport/internal/telemetry"
)

// Draft is a report loaded either from a workspace or from a standalone file.
type Draft struct {
	Doc domain.ReportDocument
	// Workspace is nil for standalone files.
	Workspace *storage.WorkspaceHandle
	// BaseDir anchors relative level folders and image paths.
	BaseDir string
}

// LoadDraft opens path as a workspace when it is a directory and as a
// report file (.json, .yaml, .yml) otherwise.
func LoadDraft(path string) (Draft, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Draft{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return Draft{}, err
	}
	if fi.IsDir() {
		h, err := storage.Open(abs)
		if err != nil {
			return Draft{}, err
		}
		return Draft{Doc: h.Report, Workspace: h, BaseDir: abs}, nil
	}
	doc, err := storage.LoadReportFile(abs)
	if err != nil {
		return Draft{}, err
	}
	return Draft{Doc: doc, BaseDir: filepath.Dir(abs)}, nil
}

// SaveDir picks the output directory: an explicit one, else the workspace's exports
// folder, else the configured save directory.
func (d Draft) SaveDir(explicit string, cfg config.AppConfig) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	if d.Workspace != nil {
		return d.Workspace.ExportsDir()
	}
	return cfg.General.ResolveSaveDir()
}

// Prepare returns a render-ready copy of doc: relative folders and image paths are
// anchored at baseDir, and missing code snippets are loaded from the solution files
// when loadCode is set.
func Prepare(doc domain.ReportDocument, baseDir string, loadCode bool) (domain.ReportDocument, []courseimport.Warning) {
	out := doc.Clone()
	for li := range out.Levels {
		lvl := &out.Levels[li]
		if lvl.Folder != "" && !filepath.IsAbs(lvl.Folder) && baseDir != "" {
			lvl.Folder = filepath.Join(baseDir, lvl.Folder)
		}
		for ti := range lvl.Tasks {
			t := &lvl.Tasks[ti]
			if t.ImagePath != "" && !filepath.IsAbs(t.ImagePath) && baseDir != "" {
				t.ImagePath = filepath.Join(baseDir, t.ImagePath)
			}
		}
	}
	if !loadCode {
		return out, nil
	}
	return out, courseimport.FillSnippets(&out)
}

// RenderOptions maps the render section of the config onto export options.
func RenderOptions(cfg config.AppConfig, progress func(done, total int)) export.Options {
	return export.Options{
		MaxImagePixels:  cfg.Render.ImageMaxPixels,
		PrefetchWorkers: cfg.Render.PrefetchWorkers,
		Compress:        true,
		Progress:        progress,
	}
}

// PollInterval is the configured job polling period.
func PollInterval(cfg config.AppConfig) time.Duration {
	if cfg.Render.PollIntervalMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(cfg.Render.PollIntervalMs) * time.Millisecond
}

// Finish records a finished render: render history and task index for workspaces,
// and an anonymous telemetry event. Bookkeeping failures are logged, never returned.
func Finish(ctx context.Context, d Draft, doc domain.ReportDocument, started time.Time, st export.Status) {
	l := applog.WithOperation(applog.WithComponent("workflow"), "finish")
	rec := storage.RenderRecord{
		Skill:    doc.SkillName,
		Path:     st.Result.Path,
		Pages:    st.Result.Pages,
		Bytes:    st.Result.Bytes,
		Warnings: len(st.Result.Warnings),
		Status:   storage.RenderOK,
		Started:  started,
		Finished: started.Add(st.Elapsed),
	}
	event := telemetry.EventRenderFinished
	if st.Err != nil {
		rec.Status = storage.RenderFailed
		rec.Message = st.Err.Error()
		event = telemetry.EventRenderFailed
		var ioe *export.IOFailureError
		if errors.As(st.Err, &ioe) {
			rec.Path = ioe.Path
		}
	}
	telemetry.Event(event, telemetry.RenderProps(len(doc.Levels), doc.TaskCount(), st.Result.Pages, len(st.Result.Warnings), st.Elapsed))
	if d.Workspace == nil {
		return
	}
	root := d.Workspace.Root
	if _, err := storage.RecordRender(ctx, root, rec); err != nil {
		l.Warn("record render failed", slog.String("root", root), slog.Any("err", err))
	}
	if err := storage.UpdateIndex(ctx, root, doc); err != nil {
		l.Warn("update index failed", slog.String("root", root), slog.Any("err", err))
	}
}

// ImportInto replaces the levels of a workspace draft with an imported course,
// creating the workspace when it does not exist yet. Author fields fall back to cfg.
func ImportInto(ctx context.Context, root string, res courseimport.Result, skill string, cfg config.AppConfig) (*storage.WorkspaceHandle, error) {
	h, err := storage.Open(root)
	if err != nil {
		if _, statErr := os.Stat(filepath.Join(root, storage.ManifestFileName)); statErr == nil {
			return nil, err
		}
		h, err = storage.InitWorkspace(root, NewDraft(skill, cfg))
		if err != nil {
			return nil, err
		}
	}
	if s := strings.TrimSpace(skill); s != "" {
		h.Report.SkillName = s
	}
	h.Report.Levels = res.Levels
	if err := storage.Save(h); err != nil {
		return nil, err
	}
	if err := storage.UpdateIndex(ctx, root, h.Report); err != nil {
		applog.WithComponent("workflow").Warn("update index failed", slog.Any("err", err))
	}
	telemetry.Event(telemetry.EventImportFinished, map[string]any{
		"levels":   len(res.Levels),
		"tasks":    res.TaskCount(),
		"warnings": len(res.Warnings),
	})
	return h, nil
}

// NewDraft returns an empty draft with the author block prefilled from cfg.
func NewDraft(skill string, cfg config.AppConfig) domain.ReportDocument {
	return domain.ReportDocument{
		SkillName:  strings.TrimSpace(skill),
		AuthorName: cfg.Author.Name,
		AuthorRole: cfg.Author.Role,
		Levels:     []domain.Level{},
	}
}
