/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package courseimport builds report levels from a course directory laid out as
// Day<N> folders holding numbered solution files and an optional Screenshots folder.
package courseimport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"skillreport/internal/domain"
	applog "skillreport/internal/log"
)

// ErrNoDayFolders is returned when root holds no Day<N> folder.
var ErrNoDayFolders = errors.New("no Day folders found")

var (
	dayPattern  = regexp.MustCompile(`(?i)^Day(\d+)(?:\s*\[(.*?)\])?`)
	taskPattern = regexp.MustCompile(`^(\d+)[.\-](\d+)`)
)

var imageExts = []string{".png", ".jpg", ".jpeg"}

// Options tune Scan. Zero values fall back to Python files and a "Screenshots" folder.
type Options struct {
	SolutionExt    string
	ScreenshotsDir string
	// LoadCode fills each task's code snippet from its solution file.
	LoadCode bool
	// Workers bounds how many Day folders are read at once; <= 0 means 4.
	Workers int
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.SolutionExt) == "" {
		o.SolutionExt = ".py"
	}
	if !strings.HasPrefix(o.SolutionExt, ".") {
		o.SolutionExt = "." + o.SolutionExt
	}
	if strings.TrimSpace(o.ScreenshotsDir) == "" {
		o.ScreenshotsDir = "Screenshots"
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	return o
}

// Result is what Scan found. Levels are ordered by day number, tasks by their (major, minor) prefix.
type Result struct {
	Levels   []domain.Level
	Warnings []Warning
}

// TaskCount returns the number of imported tasks.
func (r Result) TaskCount() int {
	n := 0
	for _, l := range r.Levels {
		n += len(l.Tasks)
	}
	return n
}

type dayFolder struct {
	num  int
	name string
	desc string
}

type taskFile struct {
	major, minor int
	name         string
}

// Scan reads the course under root. Unreadable files become warnings; only a missing
// root or the absence of any Day folder is an error.
func Scan(ctx context.Context, root string, opts Options) (Result, error) {
	opts = opts.withDefaults()
	l := applog.WithOperation(applog.WithComponent("import"), "scan").With(slog.String("root", root))
	abs, err := filepath.Abs(root)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", root, err)
	}
	ents, err := os.ReadDir(abs)
	if err != nil {
		return Result{}, fmt.Errorf("read course dir: %w", err)
	}
	var days []dayFolder
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		m := dayPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		days = append(days, dayFolder{num: n, name: e.Name(), desc: strings.TrimSpace(m[2])})
	}
	if len(days) == 0 {
		return Result{}, ErrNoDayFolders
	}
	sort.SliceStable(days, func(i, j int) bool {
		if days[i].num != days[j].num {
			return days[i].num < days[j].num
		}
		return days[i].name < days[j].name
	})

	levels := make([]domain.Level, len(days))
	warns := make([][]Warning, len(days))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, d := range days {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			levels[i], warns[i] = scanDay(filepath.Join(abs, d.name), d, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Levels: levels}
	for _, w := range warns {
		res.Warnings = append(res.Warnings, w...)
	}
	for _, w := range res.Warnings {
		l.Warn("import warning", slog.String("path", w.Path), slog.Any("err", w.Err))
	}
	l.Info("course imported", slog.Int("levels", len(res.Levels)), slog.Int("tasks", res.TaskCount()))
	return res, nil
}

func scanDay(dir string, d dayFolder, opts Options) (domain.Level, []Warning) {
	lvl := domain.Level{Name: d.desc, Folder: dir, Tasks: []domain.Task{}}
	if lvl.Name == "" {
		lvl.Name = fmt.Sprintf("Level %d", d.num)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return lvl, []Warning{{Path: dir, Err: err}}
	}
	var files []taskFile
	for _, e := range ents {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), opts.SolutionExt) {
			continue
		}
		m := taskPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		a, err1 := strconv.Atoi(m[1])
		b, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		files = append(files, taskFile{major: a, minor: b, name: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].major != files[j].major {
			return files[i].major < files[j].major
		}
		if files[i].minor != files[j].minor {
			return files[i].minor < files[j].minor
		}
		return files[i].name < files[j].name
	})

	var warns []Warning
	shots := filepath.Join(dir, opts.ScreenshotsDir)
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		q, err := questionFromFile(path)
		if err != nil {
			warns = append(warns, Warning{Path: path, Err: err})
		}
		if q == "" {
			q = "Complete the exercise in " + f.name
		}
		t := domain.Task{
			Question:     q,
			SolutionFile: f.name,
			ImagePath:    findScreenshot(shots, strings.TrimSuffix(f.name, filepath.Ext(f.name))),
		}
		if opts.LoadCode {
			code, err := LoadSnippet(dir, f.name)
			if err != nil {
				warns = append(warns, Warning{Path: path, Err: err})
			}
			t.CodeSnippet = code
		}
		lvl.Tasks = append(lvl.Tasks, t)
	}
	return lvl, warns
}

// questionFromFile takes the task question from a leading comment or string on the
// first line, e.g. `# Print the numbers 1 to 10` or `"""Reverse a string"""`.
func questionFromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), 64<<10)
	if !sc.Scan() {
		return "", sc.Err()
	}
	return QuestionFromLine(sc.Text()), nil
}

// QuestionFromLine extracts the question from the first line of a solution file.
// It returns "" when the line isn't a comment or string literal.
func QuestionFromLine(line string) string {
	line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if line == "" {
		return ""
	}
	switch line[0] {
	case '#':
		return strings.TrimSpace(strings.TrimLeft(line, "#"))
	case '"', '\'':
		q := line[:1]
		return strings.TrimSpace(strings.Trim(line, q))
	}
	return ""
}

func findScreenshot(dir, prefix string) string {
	for _, ext := range imageExts {
		p := filepath.Join(dir, prefix+ext)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}
