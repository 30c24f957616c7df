/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package courseimport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skillreport/internal/domain"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func course(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	d1 := filepath.Join(root, "Day1 [Python Basics]")
	write(t, filepath.Join(d1, "1.2.py"), "# Add two numbers\nprint(1 + 2)\n")
	write(t, filepath.Join(d1, "1.10.py"), "print('no comment')\n")
	write(t, filepath.Join(d1, "1.1.py"), "\"\"\"Say hello\"\"\"\nprint('hello')\n")
	write(t, filepath.Join(d1, "notes.py"), "# not a task\n")
	write(t, filepath.Join(d1, "1.3.txt"), "# wrong extension\n")
	write(t, filepath.Join(d1, "Screenshots", "1.1.png"), "png")
	write(t, filepath.Join(d1, "Screenshots", "1.2.jpeg"), "jpeg")
	d10 := filepath.Join(root, "day10")
	write(t, filepath.Join(d10, "10-1.py"), "' Loops '\nfor i in range(3): pass\n")
	d2 := filepath.Join(root, "Day2")
	write(t, filepath.Join(d2, "2.1.py"), "\n# first line is blank\n")
	if err := os.MkdirAll(filepath.Join(root, "Notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(root, "Day3.py"), "# a file, not a folder\n")
	return root
}

func TestScanOrdersDaysAndTasks(t *testing.T) {
	root := course(t)
	res, err := Scan(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Levels) != 3 {
		t.Fatalf("levels = %d, want 3", len(res.Levels))
	}
	names := []string{res.Levels[0].Name, res.Levels[1].Name, res.Levels[2].Name}
	if strings.Join(names, "|") != "Python Basics|Level 2|Level 10" {
		t.Fatalf("level names = %v", names)
	}
	abs, _ := filepath.Abs(root)
	if res.Levels[0].Folder != filepath.Join(abs, "Day1 [Python Basics]") {
		t.Fatalf("folder = %s", res.Levels[0].Folder)
	}
	d1 := res.Levels[0].Tasks
	if len(d1) != 3 {
		t.Fatalf("day1 tasks = %d, want 3", len(d1))
	}
	var files []string
	for _, tk := range d1 {
		files = append(files, tk.SolutionFile)
	}
	if strings.Join(files, ",") != "1.1.py,1.2.py,1.10.py" {
		t.Fatalf("task order = %v", files)
	}
	if d1[0].Question != "Say hello" || d1[1].Question != "Add two numbers" {
		t.Fatalf("questions = %q, %q", d1[0].Question, d1[1].Question)
	}
	if d1[2].Question != "Complete the exercise in 1.10.py" {
		t.Fatalf("fallback question = %q", d1[2].Question)
	}
	if filepath.Base(d1[0].ImagePath) != "1.1.png" || filepath.Base(d1[1].ImagePath) != "1.2.jpeg" || d1[2].ImagePath != "" {
		t.Fatalf("screenshots = %q %q %q", d1[0].ImagePath, d1[1].ImagePath, d1[2].ImagePath)
	}
	if d1[0].CodeSnippet != "" {
		t.Fatalf("code should not load without LoadCode")
	}
	if q := res.Levels[1].Tasks[0].Question; q != "Complete the exercise in 2.1.py" {
		t.Fatalf("blank first line should fall back, got %q", q)
	}
	if q := res.Levels[2].Tasks[0].Question; q != "Loops" {
		t.Fatalf("single-quoted question = %q", q)
	}
	if res.TaskCount() != 5 {
		t.Fatalf("TaskCount = %d", res.TaskCount())
	}
}

func TestScanLoadsCode(t *testing.T) {
	res, err := Scan(context.Background(), course(t), Options{LoadCode: true, Workers: 1})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := res.Levels[0].Tasks[1].CodeSnippet; got != "# Add two numbers\nprint(1 + 2)" {
		t.Fatalf("code = %q", got)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestScanCustomExtension(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "Day1", "1.1.go"), "// not a recognised comment\npackage main\n")
	write(t, filepath.Join(root, "Day1", "Shots", "1.1.jpg"), "jpg")
	res, err := Scan(context.Background(), root, Options{SolutionExt: "go", ScreenshotsDir: "Shots"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	tk := res.Levels[0].Tasks[0]
	if tk.SolutionFile != "1.1.go" || filepath.Base(tk.ImagePath) != "1.1.jpg" {
		t.Fatalf("unexpected task: %+v", tk)
	}
}

func TestScanErrors(t *testing.T) {
	if _, err := Scan(context.Background(), t.TempDir(), Options{}); !errors.Is(err, ErrNoDayFolders) {
		t.Fatalf("expected ErrNoDayFolders, got %v", err)
	}
	if _, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{}); err == nil {
		t.Fatalf("expected error for missing root")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Scan(ctx, course(t), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestQuestionFromLine(t *testing.T) {
	cases := map[string]string{
		"# Reverse a list":             "Reverse a list",
		"## Heading style":             "Heading style",
		`"""Docstring question"""`:     "Docstring question",
		"'single'":                     "single",
		"print('x')":                   "",
		"   # indented comment   ":     "indented comment",
		"\ufeff# with byte order mark": "with byte order mark",
		"":                             "",
	}
	for in, want := range cases {
		if got := QuestionFromLine(in); got != want {
			t.Fatalf("QuestionFromLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadSnippet(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.py"), "\r\n\r\n    x = 1\r\n    print(x)\r\n\r\n")
	got, err := LoadSnippet(dir, "a.py")
	if err != nil {
		t.Fatalf("LoadSnippet: %v", err)
	}
	if got != "    x = 1\n    print(x)" {
		t.Fatalf("snippet = %q", got)
	}
	write(t, filepath.Join(dir, "bin.py"), "\xff\xfe\x00")
	if _, err := LoadSnippet(dir, "bin.py"); !errors.Is(err, ErrNotText) {
		t.Fatalf("expected ErrNotText, got %v", err)
	}
	write(t, filepath.Join(dir, "big.py"), strings.Repeat("x", MaxSnippetBytes+1))
	if _, err := LoadSnippet(dir, "big.py"); !errors.Is(err, ErrSnippetTooLarge) {
		t.Fatalf("expected ErrSnippetTooLarge, got %v", err)
	}
	if _, err := LoadSnippet(dir, " "); err == nil {
		t.Fatalf("expected error for blank file name")
	}
}

func TestFillSnippets(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "ok.py"), "print('ok')\n")
	doc := domain.ReportDocument{
		SkillName: "S",
		Levels: []domain.Level{{
			Name:   "L",
			Folder: dir,
			Tasks: []domain.Task{
				{Question: "q1", SolutionFile: "ok.py"},
				{Question: "q2", SolutionFile: "missing.py"},
				{Question: "q3", SolutionFile: "ok.py", CodeSnippet: "keep me"},
			},
		}, {
			Name: "No folder",
			Tasks: []domain.Task{
				{Question: "q4", SolutionFile: "ok.py"},
			},
		}},
	}
	warns := FillSnippets(&doc)
	if len(warns) != 1 || !strings.Contains(warns[0].String(), "missing.py") {
		t.Fatalf("warnings = %v", warns)
	}
	tasks := doc.Levels[0].Tasks
	if tasks[0].CodeSnippet != "print('ok')" || tasks[1].CodeSnippet != "" || tasks[2].CodeSnippet != "keep me" {
		t.Fatalf("snippets = %q %q %q", tasks[0].CodeSnippet, tasks[1].CodeSnippet, tasks[2].CodeSnippet)
	}
	if doc.Levels[1].Tasks[0].CodeSnippet != "" {
		t.Fatalf("task without folder should be skipped")
	}
}
