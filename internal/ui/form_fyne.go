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
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"skillreport/internal/config"
	"skillreport/internal/courseimport"
	"skillreport/internal/domain"
	"skillreport/internal/export"
	"skillreport/internal/workflow"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tif", ".tiff"}

// reportForm is the data-entry window content: header fields, the level/task editor
// and the generate bar.
type reportForm struct {
	w      fyne.Window
	cfg    config.AppConfig
	l      *slog.Logger
	runner *export.Runner

	model *formModel
	draft workflow.Draft
	// filePath is set for drafts opened from a standalone JSON/YAML file.
	filePath string

	skill, author, role, saveDir *widget.Entry
	levels                       *fyne.Container
	generate                     *widget.Button
	progress                     *widget.ProgressBar
	status                       *widget.Label

	// onWorkspace is called after the draft switches to a workspace (recent list, title).
	onWorkspace func(root string)
}

func newReportForm(w fyne.Window, cfg config.AppConfig, l *slog.Logger) *reportForm {
	f := &reportForm{
		w:      w,
		cfg:    cfg,
		l:      l,
		runner: export.NewRunner(),
		model:  newFormModel(workflow.NewDraft("", cfg)),
		skill:  widget.NewEntry(),
		author: widget.NewEntry(),
		role:   widget.NewEntry(),

		saveDir:  widget.NewEntry(),
		levels:   container.NewVBox(),
		progress: widget.NewProgressBar(),
		status:   widget.NewLabel("Ready"),
	}
	f.skill.SetPlaceHolder("e.g. Python Basics")
	f.author.SetPlaceHolder("Author name (optional)")
	f.role.SetPlaceHolder("Author role (optional)")
	f.saveDir.SetPlaceHolder(cfg.General.ResolveSaveDir())
	f.progress.Hide()
	f.generate = widget.NewButtonWithIcon("Generate PDF", theme.DocumentSaveIcon(), f.startRender)
	f.generate.Importance = widget.HighImportance
	return f
}

// content lays out the whole form.
func (f *reportForm) content() fyne.CanvasObject {
	browse := widget.NewButtonWithIcon("", theme.FolderOpenIcon(), func() {
		f.chooseFolder(func(p string) { f.saveDir.SetText(p) })
	})
	header := widget.NewForm(
		widget.NewFormItem("Skill", f.skill),
		widget.NewFormItem("Author", f.author),
		widget.NewFormItem("Role", f.role),
		widget.NewFormItem("Save to", container.NewBorder(nil, nil, nil, browse, f.saveDir)),
	)
	for _, e := range []*widget.Entry{f.skill, f.author, f.role} {
		e.OnChanged = func(string) { f.syncHeader() }
	}
	addLevel := widget.NewButtonWithIcon("Add Level", theme.ContentAddIcon(), func() {
		f.model.AddLevel()
		f.refreshLevels()
	})
	autoImport := widget.NewButtonWithIcon("Auto-Import Course…", theme.DownloadIcon(), f.autoImport)
	toolbar := container.NewHBox(addLevel, autoImport)
	bottom := container.NewVBox(f.progress, container.NewBorder(nil, nil, nil, f.generate, f.status))
	return container.NewBorder(
		container.NewVBox(header, widget.NewSeparator(), toolbar),
		bottom, nil, nil,
		container.NewVScroll(f.levels),
	)
}

func (f *reportForm) syncHeader() {
	f.model.SetHeader(f.skill.Text, f.author.Text, f.role.Text)
}

// load replaces the form state with d.
func (f *reportForm) load(d workflow.Draft, filePath string) {
	f.draft = d
	f.filePath = filePath
	f.model = newFormModel(d.Doc.Clone())
	for _, e := range []*widget.Entry{f.skill, f.author, f.role} {
		e.OnChanged = nil
	}
	f.skill.SetText(d.Doc.SkillName)
	f.author.SetText(d.Doc.AuthorName)
	f.role.SetText(d.Doc.AuthorRole)
	for _, e := range []*widget.Entry{f.skill, f.author, f.role} {
		e.OnChanged = func(string) { f.syncHeader() }
	}
	if d.Workspace != nil {
		f.saveDir.SetPlaceHolder(d.Workspace.ExportsDir())
	} else {
		f.saveDir.SetPlaceHolder(f.cfg.General.ResolveSaveDir())
	}
	f.refreshLevels()
}

// refreshLevels rebuilds the level cards from the model. Called after structural edits only;
// text edits write straight into the model.
func (f *reportForm) refreshLevels() {
	objs := make([]fyne.CanvasObject, 0, len(f.model.doc.Levels)+1)
	for li := range f.model.doc.Levels {
		objs = append(objs, f.levelCard(li))
	}
	if len(objs) == 0 {
		hint := widget.NewLabel("No levels yet. Add a level or auto-import a course folder.")
		hint.Wrapping = fyne.TextWrapWord
		objs = append(objs, hint)
	}
	f.levels.Objects = objs
	f.levels.Refresh()
}

func (f *reportForm) levelCard(li int) fyne.CanvasObject {
	lvl := f.model.doc.Levels[li]
	name := widget.NewEntry()
	name.SetText(lvl.Name)
	folder := widget.NewEntry()
	folder.SetText(lvl.Folder)
	folder.SetPlaceHolder("Course folder of this level")
	update := func(string) { f.model.SetLevel(li, name.Text, folder.Text) }
	name.OnChanged = update
	folder.OnChanged = update
	browse := widget.NewButtonWithIcon("", theme.FolderOpenIcon(), func() {
		f.chooseFolder(func(p string) { folder.SetText(p) })
	})

	up := widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() { f.model.MoveLevel(li, -1); f.refreshLevels() })
	down := widget.NewButtonWithIcon("", theme.MoveDownIcon(), func() { f.model.MoveLevel(li, 1); f.refreshLevels() })
	remove := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		dialog.ShowConfirm("Remove Level", fmt.Sprintf("Remove %q and its %d task(s)?", lvl.Name, len(lvl.Tasks)), func(ok bool) {
			if ok {
				f.model.RemoveLevel(li)
				f.refreshLevels()
			}
		}, f.w)
	})
	if li == 0 {
		up.Disable()
	}
	if li == len(f.model.doc.Levels)-1 {
		down.Disable()
	}

	fields := widget.NewForm(
		widget.NewFormItem("Name", name),
		widget.NewFormItem("Folder", container.NewBorder(nil, nil, nil, browse, folder)),
	)
	tasks := container.NewVBox()
	for ti := range lvl.Tasks {
		tasks.Add(f.taskCard(li, ti))
	}
	addTask := widget.NewButtonWithIcon("Add Task", theme.ContentAddIcon(), func() {
		f.model.AddTask(li)
		f.refreshLevels()
	})
	body := container.NewVBox(
		container.NewBorder(nil, nil, nil, container.NewHBox(up, down, remove), fields),
		tasks,
		container.NewHBox(addTask),
	)
	return widget.NewCard(fmt.Sprintf("Level %d", li+1), domain.ShortenFolder(lvl.Folder), body)
}

func (f *reportForm) taskCard(li, ti int) fyne.CanvasObject {
	t := f.model.doc.Levels[li].Tasks[ti]
	card := widget.NewCard("", "", nil)
	card.SetSubTitle(taskTitle(ti, t))

	question := widget.NewMultiLineEntry()
	question.SetText(t.Question)
	question.SetPlaceHolder("Task question")
	question.Wrapping = fyne.TextWrapWord
	question.SetMinRowsVisible(2)
	question.OnChanged = func(s string) {
		f.model.UpdateTask(li, ti, func(tk *domain.Task) { tk.Question = s })
		card.SetSubTitle(taskTitle(ti, f.model.doc.Levels[li].Tasks[ti]))
	}

	solution := widget.NewEntry()
	solution.SetText(t.SolutionFile)
	solution.SetPlaceHolder("e.g. 1.1.py")
	solution.OnChanged = func(s string) {
		f.model.UpdateTask(li, ti, func(tk *domain.Task) { tk.SolutionFile = s })
	}

	code := widget.NewMultiLineEntry()
	code.TextStyle = fyne.TextStyle{Monospace: true}
	code.SetText(t.CodeSnippet)
	code.SetPlaceHolder("Code snippet (loaded from the solution file when empty)")
	code.SetMinRowsVisible(4)
	code.OnChanged = func(s string) {
		f.model.UpdateTask(li, ti, func(tk *domain.Task) { tk.CodeSnippet = s })
	}
	loadCode := widget.NewButton("Load Code", func() {
		lvl := f.model.doc.Levels[li]
		src, err := courseimport.LoadSnippet(f.resolve(lvl.Folder), strings.TrimSpace(solution.Text))
		if err != nil {
			dialog.ShowError(err, f.w)
			return
		}
		code.SetText(src)
	})

	imageLabel := widget.NewLabel(imageCaption(t.ImagePath))
	chooseImage := widget.NewButtonWithIcon("Image…", theme.FileImageIcon(), func() {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, f.w)
				return
			}
			if rc == nil {
				return
			}
			p := rc.URI().Path()
			_ = rc.Close()
			f.model.UpdateTask(li, ti, func(tk *domain.Task) { tk.ImagePath = p })
			imageLabel.SetText(imageCaption(p))
		}, f.w)
		fd.SetFilter(fstorage.NewExtensionFileFilter(imageExts))
		fd.Show()
	})
	clearImage := widget.NewButtonWithIcon("", theme.ContentClearIcon(), func() {
		f.model.UpdateTask(li, ti, func(tk *domain.Task) { tk.ImagePath = "" })
		imageLabel.SetText(imageCaption(""))
	})
	remove := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		f.model.RemoveTask(li, ti)
		f.refreshLevels()
	})

	form := widget.NewForm(
		widget.NewFormItem("Question", question),
		widget.NewFormItem("Solution", container.NewBorder(nil, nil, nil, loadCode, solution)),
		widget.NewFormItem("Image", container.NewBorder(nil, nil, nil, container.NewHBox(chooseImage, clearImage), imageLabel)),
		widget.NewFormItem("Code", code),
	)
	card.SetContent(container.NewBorder(nil, nil, nil, container.NewVBox(remove), form))
	return card
}

func imageCaption(p string) string {
	if strings.TrimSpace(p) == "" {
		return "(placeholder image)"
	}
	return filepath.Base(p)
}

func (f *reportForm) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || f.draft.BaseDir == "" {
		return p
	}
	return filepath.Join(f.draft.BaseDir, p)
}

func (f *reportForm) chooseFolder(then func(path string)) {
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			f.l.Error("folder dialog error", slog.Any("err", err))
			return
		}
		if uri == nil {
			return
		}
		then(uri.Path())
	}, f.w)
	fd.Show()
}

// startRender validates, snapshots the form and hands it to the runner. The Generate button
// stays disabled until the job reports completion.
func (f *reportForm) startRender() {
	f.syncHeader()
	doc := f.model.Snapshot()
	if err := doc.Validate(); err != nil {
		dialog.ShowInformation("Missing Information", validationText(err), f.w)
		return
	}
	prepared, warns := workflow.Prepare(doc, f.draft.BaseDir, true)
	for _, wr := range warns {
		f.l.Warn("code snippet not loaded", slog.String("path", wr.Path), slog.Any("err", wr.Err))
	}
	saveDir := f.draft.SaveDir(f.saveDir.Text, f.cfg)
	job, err := f.runner.Start(prepared, saveDir, workflow.RenderOptions(f.cfg, nil))
	if err != nil {
		if errors.Is(err, export.ErrRenderBusy) {
			dialog.ShowInformation("Generate", err.Error(), f.w)
			return
		}
		dialog.ShowInformation("Missing Information", validationText(err), f.w)
		return
	}
	f.setBusy(true)
	f.status.SetText("Generating report…")
	d := f.draft
	go func() {
		st, _ := export.Poll(context.Background(), job, workflow.PollInterval(f.cfg), func(st export.Status) {
			fyne.Do(func() { f.progress.SetValue(st.Progress) })
		})
		workflow.Finish(context.Background(), d, prepared, job.Started, st)
		fyne.Do(func() {
			f.setBusy(false)
			if st.Err != nil {
				f.l.Error("render failed", slog.Any("err", st.Err))
				f.status.SetText("Generation failed.")
				dialog.ShowError(st.Err, f.w)
				return
			}
			f.status.SetText(fmt.Sprintf("Saved %s", filepath.Base(st.Result.Path)))
			dialog.ShowInformation("Success", successText(st.Result, st.Elapsed), f.w)
		})
	}()
}

func (f *reportForm) setBusy(busy bool) {
	if busy {
		f.generate.Disable()
		f.progress.SetValue(0)
		f.progress.Show()
		return
	}
	f.generate.Enable()
	f.progress.Hide()
}

// autoImport scans a course folder and replaces the levels of the form. For workspaces the
// imported draft is saved right away.
func (f *reportForm) autoImport() {
	f.chooseFolder(func(root string) {
		f.status.SetText("Scanning course…")
		opts := courseimport.Options{
			SolutionExt:    f.cfg.Import.SolutionExt,
			ScreenshotsDir: f.cfg.Import.ScreenshotsDir,
			LoadCode:       true,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			res, err := courseimport.Scan(ctx, root, opts)
			fyne.Do(func() {
				if err != nil {
					f.status.SetText("Import failed.")
					dialog.ShowError(err, f.w)
					return
				}
				f.applyImport(res)
			})
		}()
	})
}

func (f *reportForm) applyImport(res courseimport.Result) {
	apply := func() {
		f.syncHeader()
		f.model.ReplaceLevels(res.Levels)
		if ws := f.draft.Workspace; ws != nil {
			h, err := workflow.ImportInto(context.Background(), ws.Root, res, f.skill.Text, f.cfg)
			if err != nil {
				dialog.ShowError(err, f.w)
			} else {
				f.draft.Workspace = h
				f.model.dirty = false
			}
		}
		f.refreshLevels()
		msg := fmt.Sprintf("Imported %d level(s) with %d task(s).", len(res.Levels), res.TaskCount())
		f.status.SetText(msg)
		if n := len(res.Warnings); n > 0 {
			lines := make([]string, 0, n)
			for _, wr := range res.Warnings {
				lines = append(lines, "• "+wr.String())
			}
			dialog.ShowInformation("Auto-Import", msg+"\n\nWarnings:\n"+strings.Join(lines, "\n"), f.w)
		}
	}
	if len(f.model.doc.Levels) == 0 {
		apply()
		return
	}
	dialog.ShowConfirm("Auto-Import", "Replace the current levels with the imported course?", func(ok bool) {
		if ok {
			apply()
		}
	}, f.w)
}
