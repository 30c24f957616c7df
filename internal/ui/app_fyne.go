//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"

	"skillreport/internal/config"
	"skillreport/internal/crash"
	applog "skillreport/internal/log"
	"skillreport/internal/storage"
	"skillreport/internal/version"
	"skillreport/internal/workflow"
)

const appTitle = "Skill Report"

// Run starts the desktop form. When dir names a workspace or a draft file it is opened.
func Run(dir string) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")
	cfg, err := config.Load()
	if err != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}

	fyneApp := app.NewWithID("skillreport")
	w := fyneApp.NewWindow(appTitle)
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 960)
	winH := prefs.IntWithFallback("window.height", 760)
	if winW < 640 {
		winW = 640
	}
	if winH < 480 {
		winH = 480
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	f := newReportForm(w, cfg, l)
	defer func() { crash.Handle(recover(), f.draft.Workspace) }()

	setTitle := func() {
		switch {
		case f.draft.Workspace != nil:
			w.SetTitle(fmt.Sprintf("%s — %s", appTitle, f.draft.Workspace.Root))
		case f.filePath != "":
			w.SetTitle(fmt.Sprintf("%s — %s", appTitle, f.filePath))
		default:
			w.SetTitle(appTitle)
		}
	}
	var rebuildMenu func()
	f.onWorkspace = func(root string) {
		prefs.SetString(recentPrefsKey, encodeRecent(pushRecent(decodeRecent(prefs.String(recentPrefsKey)), root)))
		setTitle()
		rebuildMenu()
	}

	open := func(path string) {
		d, err := workflow.LoadDraft(path)
		if err != nil {
			l.Error("open draft failed", slog.String("path", path), slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		filePath := ""
		if d.Workspace == nil {
			filePath, _ = filepath.Abs(path)
		}
		f.load(d, filePath)
		f.status.SetText(fmt.Sprintf("Opened %s", path))
		if d.Workspace != nil {
			f.onWorkspace(d.Workspace.Root)
			go warmIndex(d.Workspace, l)
		} else {
			setTitle()
		}
	}
	// confirmDiscard runs next directly for clean drafts and after confirmation otherwise.
	confirmDiscard := func(next func()) {
		if !f.model.dirty {
			next()
			return
		}
		dialog.ShowConfirm("Unsaved Changes", "Discard the changes to the current draft?", func(ok bool) {
			if ok {
				next()
			}
		}, w)
	}

	newItem := fyne.NewMenuItem("New Draft", func() {
		l.Info("menu: new draft")
		confirmDiscard(func() {
			f.load(workflow.Draft{Doc: workflow.NewDraft("", cfg)}, "")
			setTitle()
		})
	})
	openWorkspaceItem := fyne.NewMenuItem("Open Workspace…", func() {
		l.Info("menu: open workspace")
		confirmDiscard(func() { f.chooseFolder(open) })
	})
	openFileItem := fyne.NewMenuItem("Open Draft File…", func() {
		l.Info("menu: open draft file")
		confirmDiscard(func() {
			fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if rc == nil {
					return
				}
				p := rc.URI().Path()
				_ = rc.Close()
				open(p)
			}, w)
			fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json", ".yaml", ".yml"}))
			fd.Show()
		})
	})
	saveItem := fyne.NewMenuItem("Save", func() {
		l.Info("menu: save")
		saveDraft(f, l)
	})
	saveWorkspaceItem := fyne.NewMenuItem("Save as Workspace…", func() {
		l.Info("menu: save as workspace")
		f.chooseFolder(func(root string) { saveAsWorkspace(f, root, l) })
	})
	saveFileItem := fyne.NewMenuItem("Export Draft File…", func() {
		l.Info("menu: export draft file")
		f.syncHeader()
		fd := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if wc == nil {
				return
			}
			p := wc.URI().Path()
			_ = wc.Close()
			if err := storage.WriteReportFile(p, f.model.Snapshot()); err != nil {
				l.Error("write draft file failed", slog.Any("err", err))
				dialog.ShowError(err, w)
				return
			}
			f.status.SetText(fmt.Sprintf("Draft written to %s", p))
		}, w)
		name := strings.TrimSpace(f.skill.Text)
		if name == "" {
			name = "report"
		}
		fd.SetFileName(name + ".yaml")
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json", ".yaml", ".yml"}))
		fd.Show()
	})
	recentItem := fyne.NewMenuItem("Open Recent", nil)

	searchItem := fyne.NewMenuItem("Search Tasks…", func() { showSearch(f, l) })
	historyItem := fyne.NewMenuItem("Render History…", func() { showHistory(f, l) })
	rebuildIndexItem := fyne.NewMenuItem("Rebuild Index", func() {
		ws := f.draft.Workspace
		if ws == nil {
			dialog.ShowInformation("Rebuild Index", "No workspace open.", w)
			return
		}
		l.Info("menu: rebuild index")
		f.status.SetText("Rebuilding index…")
		doc := f.model.Snapshot()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			err := storage.RebuildIndex(ctx, ws.Root, doc)
			fyne.Do(func() {
				if err != nil {
					l.Error("rebuild index failed", slog.Any("err", err))
					dialog.ShowError(err, w)
					f.status.SetText("Rebuild failed.")
					return
				}
				f.status.SetText("Index rebuilt.")
			})
		}()
	})
	importItem := fyne.NewMenuItem("Auto-Import Course…", f.autoImport)

	aboutItem := fyne.NewMenuItem("About Skill Report", func() {
		exe, _ := os.Executable()
		info := fmt.Sprintf("%s\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nConfig: %s",
			appTitle, version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, configPathOrNone())
		dialog.ShowInformation("About", info, w)
	})

	rebuildMenu = func() {
		recent := decodeRecent(prefs.String(recentPrefsKey))
		items := make([]*fyne.MenuItem, 0, len(recent))
		for _, p := range recent {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			p := p
			items = append(items, fyne.NewMenuItem(p, func() { confirmDiscard(func() { open(p) }) }))
		}
		recentItem.ChildMenu = fyne.NewMenu("", items...)
		recentItem.Disabled = len(items) == 0
		fileMenu := fyne.NewMenu("File", newItem, openWorkspaceItem, openFileItem, recentItem,
			fyne.NewMenuItemSeparator(), saveItem, saveWorkspaceItem, saveFileItem)
		toolsMenu := fyne.NewMenu("Tools", importItem, searchItem, historyItem, rebuildIndexItem)
		helpMenu := fyne.NewMenu("Help", aboutItem)
		w.SetMainMenu(fyne.NewMainMenu(fileMenu, toolsMenu, helpMenu))
	}
	rebuildMenu()

	w.SetContent(f.content())
	f.refreshLevels()

	// Persist preferences on close; a running render has no cancellation, so wait for it.
	w.SetCloseIntercept(func() {
		if f.runner.Busy() {
			dialog.ShowInformation("Generating", "A report is still being generated. Please wait for it to finish.", w)
			return
		}
		confirmDiscard(func() {
			sz := w.Canvas().Size()
			prefs.SetInt("window.width", int(sz.Width))
			prefs.SetInt("window.height", int(sz.Height))
			w.Close()
		})
	})

	if dir != "" {
		open(dir)
	}

	w.ShowAndRun()
	return nil
}

func configPathOrNone() string {
	p, err := config.ConfigPath()
	if err != nil {
		return "(none)"
	}
	return p
}

// warmIndex makes sure the workspace index exists and matches the draft.
func warmIndex(h *storage.WorkspaceHandle, l *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := storage.DetectAndRebuildIndex(ctx, h.Root, h.Report); err != nil {
		l.Warn("index check failed", slog.String("root", h.Root), slog.Any("err", err))
		return
	}
	if err := storage.BuildIndexIfEmpty(ctx, h.Root, h.Report); err != nil {
		l.Warn("index build failed", slog.String("root", h.Root), slog.Any("err", err))
	}
}

// saveDraft writes the form back to where it came from: the workspace manifest, or the
// standalone draft file. New drafts are saved as a workspace.
func saveDraft(f *reportForm, l *slog.Logger) {
	f.syncHeader()
	doc := f.model.Snapshot()
	switch {
	case f.draft.Workspace != nil:
		h := f.draft.Workspace
		h.Report = doc
		if err := storage.Save(h); err != nil {
			l.Error("save failed", slog.Any("err", err))
			dialog.ShowError(err, f.w)
			return
		}
		if err := storage.UpdateIndex(context.Background(), h.Root, doc); err != nil {
			l.Warn("update index failed", slog.Any("err", err))
		}
		f.status.SetText(fmt.Sprintf("Saved %s", h.ManifestPath))
	case f.filePath != "":
		if err := storage.WriteReportFile(f.filePath, doc); err != nil {
			l.Error("save failed", slog.Any("err", err))
			dialog.ShowError(err, f.w)
			return
		}
		f.status.SetText(fmt.Sprintf("Saved %s", f.filePath))
	default:
		f.chooseFolder(func(root string) { saveAsWorkspace(f, root, l) })
		return
	}
	f.draft.Doc = doc
	f.model.dirty = false
	l.Info("save completed")
}

func saveAsWorkspace(f *reportForm, root string, l *slog.Logger) {
	f.syncHeader()
	doc := f.model.Snapshot()
	var h *storage.WorkspaceHandle
	var err error
	if ws := f.draft.Workspace; ws != nil {
		ws.Report = doc
		if err = storage.SaveAs(ws, root); err == nil {
			h = ws
		}
	} else {
		h, err = storage.InitWorkspace(root, doc)
	}
	if err != nil {
		l.Error("save as workspace failed", slog.String("root", root), slog.Any("err", err))
		dialog.ShowError(err, f.w)
		return
	}
	f.draft = workflow.Draft{Doc: doc, Workspace: h, BaseDir: f.draft.BaseDir}
	if f.draft.BaseDir == "" {
		f.draft.BaseDir = h.Root
	}
	f.filePath = ""
	f.model.dirty = false
	f.saveDir.SetPlaceHolder(h.ExportsDir())
	f.status.SetText(fmt.Sprintf("Workspace saved to %s", h.Root))
	if f.onWorkspace != nil {
		f.onWorkspace(h.Root)
	}
	go warmIndex(h, l)
}

// showSearch queries the workspace task index.
func showSearch(f *reportForm, l *slog.Logger) {
	ws := f.draft.Workspace
	if ws == nil {
		dialog.ShowInformation("Search", "Open or save a workspace to search its tasks.", f.w)
		return
	}
	qEntry := widget.NewEntry()
	qEntry.SetPlaceHolder("Search terms (FTS5; use quotes for phrases)")
	containsEntry := widget.NewEntry()
	containsEntry.SetPlaceHolder("Substring match (optional)")
	typeSelect := widget.NewSelect([]string{"All", storage.DocQuestion, storage.DocSolutionFile, storage.DocCode, storage.DocLevel}, nil)
	typeSelect.SetSelected("All")
	form := dialog.NewForm("Search Tasks", "Run", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Query", qEntry),
		widget.NewFormItem("Contains", containsEntry),
		widget.NewFormItem("Type", typeSelect),
	}, func(ok bool) {
		if !ok {
			return
		}
		q := storage.SearchQuery{Text: strings.TrimSpace(qEntry.Text), Contains: strings.TrimSpace(containsEntry.Text)}
		if typeSelect.Selected != "All" {
			q.Types = []string{typeSelect.Selected}
		}
		doc := f.model.Snapshot()
		f.status.SetText("Searching…")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := storage.UpdateIndex(ctx, ws.Root, doc); err != nil {
				l.Warn("update index before search failed", slog.Any("err", err))
			}
			res, err := storage.Search(ctx, ws.Root, q)
			fyne.Do(func() {
				if err != nil {
					l.Error("search failed", slog.Any("err", err))
					dialog.ShowError(err, f.w)
					f.status.SetText("Search failed.")
					return
				}
				f.status.SetText(fmt.Sprintf("%d results", len(res)))
				items := make([]string, len(res))
				for i, r := range res {
					sn := strings.TrimSpace(r.Snippet)
					if sn == "" {
						sn = firstLine(r.Text)
					}
					items[i] = fmt.Sprintf("%s — %s — %s", r.Path, r.Type, sn)
				}
				list := widget.NewList(func() int { return len(items) }, func() fyne.CanvasObject { return widget.NewLabel("") }, func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(items[i]) })
				list.OnSelected = func(id widget.ListItemID) {
					if id < 0 || int(id) >= len(res) {
						return
					}
					r := res[id]
					where := r.Path
					if r.Level > 0 && r.Task > 0 {
						where = fmt.Sprintf("Level %d, Task %d", r.Level, r.Task)
					}
					dialog.ShowInformation(where, r.Text, f.w)
				}
				d := dialog.NewCustom("Search Results", "Close", container.NewStack(list), f.w)
				d.Resize(fyne.NewSize(700, 400))
				d.Show()
			})
		}()
	}, f.w)
	form.Resize(fyne.NewSize(560, 220))
	form.Show()
}

// showHistory lists the renders recorded for the workspace, newest first.
func showHistory(f *reportForm, l *slog.Logger) {
	ws := f.draft.Workspace
	if ws == nil {
		dialog.ShowInformation("Render History", "No workspace open.", f.w)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		recs, err := storage.ListRenders(ctx, ws.Root, 0)
		fyne.Do(func() {
			if err != nil {
				l.Error("list renders failed", slog.Any("err", err))
				dialog.ShowError(err, f.w)
				return
			}
			if len(recs) == 0 {
				dialog.ShowInformation("Render History", "No reports generated yet.", f.w)
				return
			}
			list := widget.NewList(func() int { return len(recs) }, func() fyne.CanvasObject { return widget.NewLabel("") }, func(i widget.ListItemID, o fyne.CanvasObject) {
				r := recs[i]
				line := fmt.Sprintf("%s — %s — ", humanize.Time(r.Finished), r.Skill)
				if r.Status == storage.RenderOK {
					line += fmt.Sprintf("%d pages, %s, %s", r.Pages, humanize.Bytes(uint64(r.Bytes)), filepath.Base(r.Path))
				} else {
					line += "failed: " + firstLine(r.Message)
				}
				o.(*widget.Label).SetText(line)
			})
			d := dialog.NewCustom("Render History", "Close", container.NewStack(list), f.w)
			d.Resize(fyne.NewSize(700, 400))
			d.Show()
		})
	}()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > 120 {
		s = string(r[:120]) + "…"
	}
	return s
}
