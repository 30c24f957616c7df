//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based form. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"

	"skillreport/internal/config"
	"skillreport/internal/domain"
	applog "skillreport/internal/log"
	"skillreport/internal/workflow"
)

func newTestForm(t *testing.T) *reportForm {
	t.Helper()
	test.NewTempApp(t)
	w := test.NewWindow(nil)
	t.Cleanup(w.Close)
	f := newReportForm(w, config.Defaults(), applog.WithComponent("ui-test"))
	w.SetContent(f.content())
	return f
}

func TestReportForm_LoadFillsFields(t *testing.T) {
	f := newTestForm(t)
	doc := domain.ReportDocument{
		SkillName:  "Python",
		AuthorName: "Ann",
		Levels: []domain.Level{{
			Name: "Basics", Folder: "/course/Day1",
			Tasks: []domain.Task{{Question: "Print hello", SolutionFile: "1.1.py"}},
		}},
	}
	f.load(workflow.Draft{Doc: doc, BaseDir: "/course"}, "")
	if f.skill.Text != "Python" || f.author.Text != "Ann" {
		t.Fatalf("header not loaded: %q %q", f.skill.Text, f.author.Text)
	}
	if len(f.levels.Objects) != 1 {
		t.Fatalf("expected one level card, got %d", len(f.levels.Objects))
	}
	if _, ok := f.levels.Objects[0].(*widget.Card); !ok {
		t.Fatalf("level should render as a card, got %T", f.levels.Objects[0])
	}
	if f.model.dirty {
		t.Fatal("freshly loaded draft must not be dirty")
	}
}

func TestReportForm_HeaderEditsReachModel(t *testing.T) {
	f := newTestForm(t)
	test.Type(f.skill, "Go")
	if got := f.model.doc.SkillName; got != "Go" {
		t.Fatalf("skill in model = %q", got)
	}
	if !f.model.dirty {
		t.Fatal("typing should mark the draft dirty")
	}
}

func TestReportForm_AddLevelRebuildsCards(t *testing.T) {
	f := newTestForm(t)
	f.refreshLevels()
	if _, ok := f.levels.Objects[0].(*widget.Label); !ok {
		t.Fatalf("empty form should show a hint label, got %T", f.levels.Objects[0])
	}
	f.model.AddLevel()
	f.model.AddLevel()
	f.refreshLevels()
	if len(f.levels.Objects) != 2 {
		t.Fatalf("expected 2 level cards, got %d", len(f.levels.Objects))
	}
}

func TestReportForm_ResolveAnchorsRelativePaths(t *testing.T) {
	f := newTestForm(t)
	base := t.TempDir()
	f.draft.BaseDir = base
	if got := f.resolve("Day1"); got != filepath.Join(base, "Day1") {
		t.Fatalf("resolve = %q", got)
	}
	abs := filepath.Join(base, "x")
	if got := f.resolve(abs); got != abs {
		t.Fatalf("absolute path changed: %q", got)
	}
}

func TestReportForm_BusyTogglesGenerate(t *testing.T) {
	f := newTestForm(t)
	f.setBusy(true)
	if !f.generate.Disabled() || f.progress.Hidden {
		t.Fatal("busy form should disable Generate and show progress")
	}
	f.setBusy(false)
	if f.generate.Disabled() || !f.progress.Hidden {
		t.Fatal("idle form should enable Generate and hide progress")
	}
}

func TestImageCaption(t *testing.T) {
	if got := imageCaption(""); got != "(placeholder image)" {
		t.Fatalf("caption = %q", got)
	}
	if got := imageCaption(filepath.Join("a", "b", "shot.png")); got != "shot.png" {
		t.Fatalf("caption = %q", got)
	}
}
