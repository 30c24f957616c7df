/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"skillreport/internal/domain"
	"skillreport/internal/imaging"
	applog "skillreport/internal/log"
	"skillreport/internal/textlayout"
)

// Options controls report rendering.
// Units are points; the page is US-Letter with one-inch margins and the origin top-left.
// Only PDF core fonts are used, so no font files are embedded.
type Options struct {
	// Decoder loads task images; nil uses imaging.FileDecoder with MaxImagePixels.
	Decoder        imaging.Decoder
	MaxImagePixels int
	// PrefetchWorkers bounds parallel image decoding (default 4).
	PrefetchWorkers int
	// Compress enables stream compression. Uncompressed output keeps page content greppable.
	Compress bool
	// Progress, when set, is called after each task with the number of tasks laid out so far.
	Progress func(done, total int)
	// Now stamps the document creation date; nil uses time.Now.
	Now func() time.Time
}

// Result describes a finished render.
type Result struct {
	Path       string
	Pages      int
	Bytes      int64
	Placements []Placement
	// Warnings lists recovered problems: images replaced by the placeholder and blocks
	// replaced by error captions.
	Warnings []string
}

// IOFailureError reports that the output directory or file could not be written. No partial
// file is left at Path.
type IOFailureError struct {
	Path string
	Err  error
}

func (e *IOFailureError) Error() string { return fmt.Sprintf("cannot write %s: %v", e.Path, e.Err) }
func (e *IOFailureError) Unwrap() error { return e.Err }

// BlockRenderError reports a single block that could not be laid out or drawn. It never aborts
// a render; the block is replaced by an inline caption.
type BlockRenderError struct {
	Block string
	Page  int
	Err   error
}

func (e *BlockRenderError) Error() string {
	return fmt.Sprintf("page %d: %s block: %v", e.Page, e.Block, e.Err)
}
func (e *BlockRenderError) Unwrap() error { return e.Err }

// OutputFileName returns the report file name for a skill: Skill_{name}_Report.pdf. Characters
// that cannot appear in file names are replaced with '_'.
func OutputFileName(skill string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return '_'
		case strings.ContainsRune(`<>:"/\|?*`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(skill))
	return "Skill_" + clean + "_Report.pdf"
}

// ReportTitle is the heading of the first page.
func ReportTitle(skill string) string { return fmt.Sprintf("Skill %s Report", skill) }

// RenderReport validates doc, lays it out page by page and writes
// {saveDir}/Skill_{name}_Report.pdf. Validation problems are returned as *domain.ValidationError
// before anything is written; output failures as *IOFailureError. The document is cloned first
// and never modified. Layout is not interruptible; ctx only scopes image prefetching and logging.
func RenderReport(ctx context.Context, doc domain.ReportDocument, saveDir string, opts Options) (Result, error) {
	if err := doc.Validate(); err != nil {
		return Result{}, err
	}
	doc = doc.Clone()
	l := applog.WithOperation(applog.WithComponent("export"), "render")
	start := time.Now()

	dec := opts.Decoder
	if dec == nil {
		dec = imaging.FileDecoder{MaxPixels: opts.MaxImagePixels}
	}
	workers := opts.PrefetchWorkers
	if workers <= 0 {
		workers = 4
	}
	images, err := imaging.Prefetch(ctx, dec, imagePaths(doc), workers)
	if err != nil {
		return Result{}, fmt.Errorf("load images: %w", err)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", SizeStr: "Letter"})
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetAutoPageBreak(false, Margin)
	pdf.SetCellMargin(0)
	pdf.SetCompression(opts.Compress)
	pdf.SetCatalogSort(true)
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	pdf.SetCreationDate(now())
	pdf.SetTitle(ReportTitle(doc.SkillName), true)
	if doc.AuthorName != "" {
		pdf.SetAuthor(doc.AuthorName, true)
	}
	pdf.SetCreator("skillreport", false)

	fl := newFlow(pdf, l)
	layoutDocument(ctx, fl, doc, images, opts.Progress)
	fl.finish()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Result{}, fmt.Errorf("build pdf: %w", err)
	}
	path, err := writeAtomic(saveDir, OutputFileName(doc.SkillName), buf.Bytes())
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Path:       path,
		Pages:      fl.page,
		Bytes:      int64(buf.Len()),
		Placements: fl.placements,
		Warnings:   fl.warnings,
	}
	l.InfoContext(ctx, "report rendered",
		slog.String("path", path),
		slog.Int("pages", res.Pages),
		slog.Int("warnings", len(res.Warnings)),
		slog.Duration("took", time.Since(start)))
	return res, nil
}

func imagePaths(doc domain.ReportDocument) []string {
	var out []string
	for _, lv := range doc.Levels {
		for _, t := range lv.Tasks {
			if p := strings.TrimSpace(t.ImagePath); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// layoutDocument walks levels, tasks and blocks depth-first and feeds them to the flow.
func layoutDocument(ctx context.Context, fl *flow, doc domain.ReportDocument, images *imaging.Set, progress func(int, int)) {
	total := doc.TaskCount()
	done := 0

	fl.emit(newText(KindTitle, textlayout.StyleTitle, ReportTitle(doc.SkillName)), textlayout.MustStyle(textlayout.StyleTitle).Gap())

	body := textlayout.MustStyle(textlayout.StyleBody)
	for i, lv := range doc.Levels {
		fl.emit(newText(KindHeading, textlayout.StyleHeading, fmt.Sprintf("Level %d: %s", i+1, lv.Name)), textlayout.MustStyle(textlayout.StyleHeading).Gap())
		fl.emit(newText(KindText, textlayout.StyleBody, "Folder: "+domain.ShortenFolder(lv.Folder)), body.Gap())
		fl.skip(2)

		for j, t := range lv.Tasks {
			fl.emit(newText(KindTask, textlayout.StyleTaskHeading, fmt.Sprintf("[%d] Task: %s", j+1, t.Question)), textlayout.MustStyle(textlayout.StyleTaskHeading).Gap())
			fl.emit(newText(KindText, textlayout.StyleBody, "Solution File: "+t.SolutionFile), body.Gap())
			if strings.TrimSpace(t.CodeSnippet) != "" {
				fl.emit(newText(KindText, textlayout.StyleBody, "Code:"), body.Gap())
				fl.emit(newCode(t.CodeSnippet), textlayout.MustStyle(textlayout.StyleCode).Gap())
			}
			fl.emit(taskImage(ctx, fl, images, t.ImagePath), imageGapAfter)
			fl.skip(12)
			if j < len(lv.Tasks)-1 {
				fl.emit(ruleBlock{}, 0)
			}
			fl.skip(24)

			done++
			if progress != nil {
				progress(done, total)
			}
		}

		if i < len(doc.Levels)-1 {
			fl.skip(levelGap)
			fl.emit(newLevelBreak(), textlayout.MustStyle(textlayout.StyleCaption).Leading)
		}
	}

	if doc.HasAuthor() {
		fl.emit(newAuthor(doc.AuthorName, doc.AuthorRole), 12)
	}
}

const (
	imageGapAfter = 0.5 * 72
	levelGap      = 1.5 * 72
)

// taskImage returns the block for a task's image, falling back to the placeholder when the task has
// none or its file could not be decoded.
func taskImage(ctx context.Context, fl *flow, images *imaging.Set, path string) block {
	path = strings.TrimSpace(path)
	if path != "" {
		a, err := images.Lookup(path)
		if err == nil {
			return &imageBlock{asset: a, name: uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String()}
		}
		var re *imaging.ResourceError
		if !errors.As(err, &re) {
			re = &imaging.ResourceError{Path: path, Err: err}
		}
		fl.warnings = append(fl.warnings, re.Error())
		fl.log.WarnContext(ctx, "image replaced by placeholder", slog.String("path", path), slog.Any("err", re.Err))
	}
	a, err := imaging.Placeholder()
	if err != nil {
		return &errorBlock{textBlock: newText(KindError, textlayout.StyleError, fmt.Sprintf("Error embedding image: %v", err))}
	}
	return &imageBlock{asset: a, name: a.Key, placeholder: true}
}

// writeAtomic writes data to dir/name via a temp file and rename so a failed write never leaves a
// truncated report behind.
func writeAtomic(dir, name string, data []byte) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &IOFailureError{Path: dir, Err: err}
	}
	final := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, ".skr-*.pdf.tmp")
	if err != nil {
		return "", &IOFailureError{Path: final, Err: err}
	}
	tmpName := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", &IOFailureError{Path: final, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", &IOFailureError{Path: final, Err: err}
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return "", &IOFailureError{Path: final, Err: err}
	}
	return final, nil
}
