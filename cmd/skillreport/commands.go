/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"skillreport/internal/courseimport"
	"skillreport/internal/domain"
	"skillreport/internal/export"
	"skillreport/internal/storage"
	"skillreport/internal/ui"
	"skillreport/internal/workflow"
)

func (a *cli) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.SetInterspersed(true)
	return fs
}

func (a *cli) cmdInit(args []string) int {
	fs := a.flags("init")
	skill := fs.String("skill", "", "Skill name of the new draft")
	author := fs.String("author", a.cfg.Author.Name, "Author name")
	role := fs.String("role", a.cfg.Author.Role, "Author role")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "init requires <dir>")
		return 2
	}
	abs, _ := filepath.Abs(fs.Arg(0))
	doc := workflow.NewDraft(*skill, a.cfg)
	doc.AuthorName, doc.AuthorRole = *author, *role
	h, err := storage.InitWorkspace(abs, doc)
	if err != nil {
		return a.fail(err)
	}
	a.workspace = h
	fmt.Fprintln(a.stdout, "Created workspace at", abs)
	return 0
}

func (a *cli) loadDraft(path string) (workflow.Draft, error) {
	d, err := workflow.LoadDraft(path)
	if err != nil {
		return d, err
	}
	a.workspace = d.Workspace
	return d, nil
}

func (a *cli) cmdValidate(args []string) int {
	fs := a.flags("validate")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "validate requires <draft>")
		return 2
	}
	d, err := a.loadDraft(fs.Arg(0))
	if err != nil {
		return a.fail(err)
	}
	if err := d.Doc.Validate(); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintln(a.stderr, "Please fix the following issues:")
			for _, p := range ve.Problems {
				fmt.Fprintln(a.stderr, "  •", p)
			}
			return 1
		}
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "OK: %q, %d levels, %d tasks\n", d.Doc.SkillName, len(d.Doc.Levels), d.Doc.TaskCount())
	return 0
}

func (a *cli) cmdRender(args []string) int {
	fs := a.flags("render")
	out := fs.StringP("out", "o", "", "Output directory (default: workspace exports/ or the configured save dir)")
	noCode := fs.Bool("no-code", false, "Do not load missing code snippets from solution files")
	workers := fs.Int("workers", a.cfg.Render.PrefetchWorkers, "Parallel image decoders")
	uncompressed := fs.Bool("uncompressed", false, "Write uncompressed page streams")
	quiet := fs.BoolP("quiet", "q", false, "No progress output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "render requires <draft>")
		return 2
	}
	d, err := a.loadDraft(fs.Arg(0))
	if err != nil {
		return a.fail(err)
	}
	doc, warns := workflow.Prepare(d.Doc, d.BaseDir, !*noCode)
	for _, w := range warns {
		fmt.Fprintln(a.stderr, "warning: code not loaded:", w)
	}
	saveDir := d.SaveDir(*out, a.cfg)
	opts := workflow.RenderOptions(a.cfg, nil)
	opts.PrefetchWorkers = *workers
	opts.Compress = !*uncompressed

	runner := export.NewRunner()
	job, err := runner.Start(doc, saveDir, opts)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintln(a.stderr, "Please fix the following issues:")
			for _, p := range ve.Problems {
				fmt.Fprintln(a.stderr, "  •", p)
			}
			return 1
		}
		return a.fail(err)
	}
	showProgress := !*quiet && isTerminal(a.stderr)
	st, _ := export.Poll(context.Background(), job, workflow.PollInterval(a.cfg), func(st export.Status) {
		if showProgress && st.Running {
			fmt.Fprintf(a.stderr, "\rGenerating report… %3.0f%%", st.Progress*100)
		}
	})
	if showProgress {
		fmt.Fprint(a.stderr, "\r\033[K")
	}
	workflow.Finish(context.Background(), d, doc, job.Started, st)
	if st.Err != nil {
		return a.fail(st.Err)
	}
	for _, w := range st.Result.Warnings {
		fmt.Fprintln(a.stderr, "warning:", w)
	}
	fmt.Fprintf(a.stdout, "PDF saved to %s (%d pages, %s, %s)\n",
		st.Result.Path, st.Result.Pages, humanize.Bytes(uint64(st.Result.Bytes)), st.Elapsed.Round(time.Millisecond))
	return 0
}

func (a *cli) cmdImport(args []string) int {
	fs := a.flags("import")
	into := fs.String("into", "", "Workspace to write the imported levels into (created if missing)")
	out := fs.StringP("out", "o", "", "Write a standalone draft (.json or .yaml) instead")
	skill := fs.String("skill", "", "Skill name for the draft")
	ext := fs.String("ext", a.cfg.Import.SolutionExt, "Solution file extension")
	shots := fs.String("screenshots", a.cfg.Import.ScreenshotsDir, "Screenshots folder inside each Day folder")
	withCode := fs.Bool("code", false, "Embed code snippets in the draft")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "import requires <course>")
		return 2
	}
	if *into != "" && *out != "" {
		fmt.Fprintln(a.stderr, "--into and --out are mutually exclusive")
		return 2
	}
	ctx := context.Background()
	res, err := courseimport.Scan(ctx, fs.Arg(0), courseimport.Options{
		SolutionExt:    *ext,
		ScreenshotsDir: *shots,
		LoadCode:       *withCode,
	})
	if err != nil {
		return a.fail(err)
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(a.stderr, "warning:", w)
	}
	switch {
	case *into != "":
		abs, _ := filepath.Abs(*into)
		h, err := workflow.ImportInto(ctx, abs, res, *skill, a.cfg)
		if err != nil {
			return a.fail(err)
		}
		a.workspace = h
		fmt.Fprintf(a.stdout, "Imported %d levels with %d tasks into %s\n", len(res.Levels), res.TaskCount(), h.ManifestPath)
	case *out != "":
		doc := workflow.NewDraft(*skill, a.cfg)
		doc.Levels = res.Levels
		if err := storage.WriteReportFile(*out, doc); err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "Imported %d levels with %d tasks into %s\n", len(res.Levels), res.TaskCount(), *out)
	default:
		for _, l := range res.Levels {
			fmt.Fprintf(a.stdout, "%s  (%s)\n", l.Name, domain.ShortenFolder(l.Folder))
			for _, t := range l.Tasks {
				img := ""
				if t.ImagePath != "" {
					img = "  [" + filepath.Base(t.ImagePath) + "]"
				}
				fmt.Fprintf(a.stdout, "  %-12s %s%s\n", t.SolutionFile, t.Question, img)
			}
		}
		fmt.Fprintf(a.stdout, "%d levels, %d tasks (dry run; use --into or --out to save)\n", len(res.Levels), res.TaskCount())
	}
	return 0
}

func (a *cli) cmdHistory(args []string) int {
	fs := a.flags("history")
	limit := fs.IntP("limit", "n", 20, "Number of renders to show")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "history requires <workspace>")
		return 2
	}
	abs, _ := filepath.Abs(fs.Arg(0))
	if _, err := os.Stat(filepath.Join(abs, storage.ManifestFileName)); err != nil {
		return a.fail(fmt.Errorf("%s is not a workspace: %w", abs, err))
	}
	hist, err := storage.ListRenders(context.Background(), abs, *limit)
	if err != nil {
		return a.fail(err)
	}
	if len(hist) == 0 {
		fmt.Fprintln(a.stdout, "No renders yet.")
		return 0
	}
	for _, r := range hist {
		line := fmt.Sprintf("%-16s %-6s %-24s", humanize.Time(r.Finished), r.Status, r.Skill)
		if r.Status == storage.RenderOK {
			line += fmt.Sprintf(" %2d pages %9s  %s", r.Pages, humanize.Bytes(uint64(r.Bytes)), r.Path)
			if r.Warnings > 0 {
				line += fmt.Sprintf("  (%d warnings)", r.Warnings)
			}
		} else {
			line += " " + r.Message
		}
		fmt.Fprintln(a.stdout, strings.TrimRight(line, " "))
	}
	return 0
}

func (a *cli) cmdSearch(args []string) int {
	fs := a.flags("search")
	types := fs.StringSlice("type", nil, "Restrict to document types (question, code, solution_file, folder, level, skill)")
	level := fs.Int("level", 0, "Restrict to one level (1-based)")
	contains := fs.Bool("contains", false, "Treat the query as a plain substring instead of FTS syntax")
	limit := fs.IntP("limit", "n", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(a.stderr, "search requires <workspace> [query]")
		return 2
	}
	ctx := context.Background()
	d, err := a.loadDraft(fs.Arg(0))
	if err != nil {
		return a.fail(err)
	}
	if d.Workspace == nil {
		return a.fail(errors.New("search needs a workspace directory"))
	}
	root := d.Workspace.Root
	if _, err := storage.DetectAndRebuildIndex(ctx, root, d.Doc); err != nil {
		return a.fail(err)
	}
	if err := storage.UpdateIndex(ctx, root, d.Doc); err != nil {
		return a.fail(err)
	}
	q := storage.SearchQuery{Types: *types, Level: *level, Limit: *limit}
	text := strings.Join(fs.Args()[1:], " ")
	if *contains {
		q.Contains = text
	} else {
		q.Text = text
	}
	res, err := storage.Search(ctx, root, q)
	if err != nil {
		return a.fail(err)
	}
	for _, r := range res {
		shown := r.Snippet
		if shown == "" {
			shown = firstLine(r.Text)
		}
		fmt.Fprintf(a.stdout, "%-24s %-13s %s\n", r.Path, r.Type, shown)
	}
	fmt.Fprintf(a.stdout, "%d results\n", len(res))
	return 0
}

func (a *cli) cmdUI(args []string) int {
	var dir string
	if len(args) > 0 {
		dir = args[0]
	}
	if err := ui.Run(dir); err != nil {
		return a.fail(err)
	}
	return 0
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
