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
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"skillreport/internal/domain"
	"skillreport/internal/imaging"
)

func oneTaskDoc() domain.ReportDocument {
	return domain.ReportDocument{
		SkillName: "Go Basics",
		Levels: []domain.Level{{
			Name:   "Intro",
			Folder: "/home/ada/courses/go/Day1",
			Tasks:  []domain.Task{{Question: "Print hello", SolutionFile: "1.1.py"}},
		}},
	}
}

func longCode(lines int) string {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&b, "\tvalue_%d = compute(%d)  # step\n", i, i)
	}
	return b.String()
}

func render(t *testing.T, doc domain.ReportDocument, opts Options) (Result, []byte) {
	t.Helper()
	res, err := RenderReport(context.Background(), doc, t.TempDir(), opts)
	if err != nil {
		t.Fatalf("RenderReport: %v", err)
	}
	raw, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return res, raw
}

var countRe = regexp.MustCompile(`/Count (\d+)`)

func pdfPageCount(t *testing.T, raw []byte) int {
	t.Helper()
	m := countRe.FindSubmatch(raw)
	if m == nil {
		t.Fatalf("no /Count in pdf")
	}
	n, _ := strconv.Atoi(string(m[1]))
	if pages := len(regexp.MustCompile(`/Type /Page\b`).FindAll(raw, -1)); pages != n {
		t.Fatalf("page dictionaries = %d, /Count = %d", pages, n)
	}
	return n
}

func kinds(res Result, k string) []Placement {
	var out []Placement
	for _, p := range res.Placements {
		if p.Kind == k {
			out = append(out, p)
		}
	}
	return out
}

func assertWithinMargins(t *testing.T, res Result) {
	t.Helper()
	const eps = 1e-6
	for i, p := range res.Placements {
		if p.Top > PageHeight-Margin+eps || p.Bottom() < Margin-eps {
			t.Fatalf("placement %d (%s on page %d) outside margins: top=%.2f bottom=%.2f", i, p.Kind, p.Page, p.Top, p.Bottom())
		}
		if p.Page < 1 || p.Page > res.Pages {
			t.Fatalf("placement %d on page %d of %d", i, p.Page, res.Pages)
		}
		if i > 0 {
			prev := res.Placements[i-1]
			if p.Page < prev.Page || (p.Page == prev.Page && p.Top > prev.Bottom()+eps) {
				t.Fatalf("placement %d (%s) out of document order", i, p.Kind)
			}
		}
	}
}

func TestRenderReport_SingleTaskFitsOnePage(t *testing.T) {
	res, raw := render(t, oneTaskDoc(), Options{})
	if res.Pages != 1 || pdfPageCount(t, raw) != 1 {
		t.Fatalf("expected one page, got %d", res.Pages)
	}
	if filepath.Base(res.Path) != "Skill_Go Basics_Report.pdf" {
		t.Fatalf("unexpected file name %s", res.Path)
	}
	var got []string
	for _, p := range res.Placements {
		got = append(got, p.Kind)
	}
	want := []string{KindTitle, KindHeading, KindText, KindTask, KindText, KindPlaceholder}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("blocks = %v, want %v", got, want)
	}
	texts := []string{"Skill Go Basics Report", "Level 1: Intro", "Folder: courses/go/Day1", "[1] Task: Print hello", "Solution File: 1.1.py"}
	for i, s := range texts {
		if res.Placements[i].Text != s {
			t.Fatalf("block %d text = %q, want %q", i, res.Placements[i].Text, s)
		}
		if !bytes.Contains(raw, []byte("("+strings.ReplaceAll(strings.ReplaceAll(s, "(", "\\("), ")", "\\)")+")Tj")) {
			t.Fatalf("pdf does not contain text %q", s)
		}
	}
	if bytes.Contains(raw, []byte("Next Level")) {
		t.Fatalf("single level must not have a level separator")
	}
	if p := res.Placements[0]; p.Top != PageHeight-Margin {
		t.Fatalf("title should start at the top margin, got %.2f", p.Top)
	}
	assertWithinMargins(t, res)
}

func TestRenderReport_LongCodeSpansPages(t *testing.T) {
	doc := domain.ReportDocument{SkillName: "Python", AuthorName: "Ada Lovelace", AuthorRole: "Mentor"}
	for l := 0; l < 2; l++ {
		lv := domain.Level{Name: fmt.Sprintf("L%d", l+1), Folder: fmt.Sprintf("C:\\courses\\py\\Day%d", l+1)}
		for k := 0; k < 3; k++ {
			lv.Tasks = append(lv.Tasks, domain.Task{
				Question:     fmt.Sprintf("Task %d.%d", l+1, k+1),
				SolutionFile: fmt.Sprintf("%d.%d.py", l+1, k+1),
				CodeSnippet:  longCode(30),
			})
		}
		doc.Levels = append(doc.Levels, lv)
	}
	res, raw := render(t, doc, Options{})
	if res.Pages < 3 || pdfPageCount(t, raw) != res.Pages {
		t.Fatalf("expected at least 3 pages, got %d", res.Pages)
	}
	if n := len(kinds(res, KindLevelBreak)); n != 1 {
		t.Fatalf("level separators = %d, want 1", n)
	}
	if n := bytes.Count(raw, []byte("( Next Level )Tj")); n != 1 {
		t.Fatalf("Next Level caption drawn %d times", n)
	}
	rules := kinds(res, KindTaskRule)
	if len(rules) != 4 {
		t.Fatalf("task separators = %d, want 4", len(rules))
	}
	sep := kinds(res, KindLevelBreak)[0]
	before, after := 0, 0
	for _, r := range rules {
		if r.Page < sep.Page || (r.Page == sep.Page && r.Top > sep.Top) {
			before++
		} else {
			after++
		}
	}
	if before != 2 || after != 2 {
		t.Fatalf("task separators per level = %d/%d, want 2/2", before, after)
	}
	if n := len(kinds(res, KindCode)); n != 6 {
		t.Fatalf("code blocks = %d, want 6", n)
	}
	last := res.Placements[len(res.Placements)-1]
	if last.Kind != KindAuthor || last.Text != "Name: Ada Lovelace\nRole: Mentor" {
		t.Fatalf("author block missing at end: %+v", last)
	}
	if !bytes.Contains(raw, []byte("(    value_0 = compute\\(0\\)  # step)Tj")) {
		t.Fatalf("code line not preserved verbatim")
	}
	assertWithinMargins(t, res)
}

func TestRenderReport_OversizedCodeIsSplit(t *testing.T) {
	doc := oneTaskDoc()
	doc.Levels[0].Tasks[0].CodeSnippet = longCode(120)
	res, _ := render(t, doc, Options{})
	codes := kinds(res, KindCode)
	if len(codes) < 3 {
		t.Fatalf("expected the 120-line block to be split, got %d parts", len(codes))
	}
	lines := 0
	for _, c := range codes {
		lines += strings.Count(c.Text, "\n") + 1
	}
	if lines != 120 {
		t.Fatalf("split code lost lines: %d", lines)
	}
	assertWithinMargins(t, res)
}

func TestRenderReport_PlaceholdersAreIdentical(t *testing.T) {
	doc := oneTaskDoc()
	doc.Levels[0].Tasks = append(doc.Levels[0].Tasks,
		domain.Task{Question: "q2", SolutionFile: "1.2.py"},
		domain.Task{Question: "q3", SolutionFile: "1.3.py", ImagePath: filepath.Join(t.TempDir(), "missing.png")},
	)
	res, raw := render(t, doc, Options{})
	ph := kinds(res, KindPlaceholder)
	if len(ph) != 3 {
		t.Fatalf("placeholders = %d, want 3", len(ph))
	}
	for _, p := range ph {
		if p.Height != imaging.PlaceholderSize {
			t.Fatalf("placeholder height %.2f", p.Height)
		}
	}
	if n := bytes.Count(raw, []byte("/Subtype /Image")); n != 1 {
		t.Fatalf("placeholder should be embedded once, found %d image objects", n)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "missing.png") {
		t.Fatalf("expected one warning for the missing image, got %v", res.Warnings)
	}
}

func TestRenderReport_ImageScaledToContentWidth(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "wide.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 936, 200))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := oneTaskDoc()
	doc.Levels[0].Tasks[0].ImagePath = p
	res, _ := render(t, doc, Options{})
	imgs := kinds(res, KindImage)
	if len(imgs) != 1 || imgs[0].Height != 100 {
		t.Fatalf("expected one image scaled to 468x100, got %+v", imgs)
	}
	if w, h := FitImage(50, 40); w != 50 || h != 40 {
		t.Fatalf("small images must not be upscaled: %vx%v", w, h)
	}
	if _, h := FitImage(100, 5000); h < ContentHeight-1e-9 || h > ContentHeight+1e-9 {
		t.Fatalf("tall images must fit the page, got %v", h)
	}
}

type brokenDecoder struct{}

func (brokenDecoder) Decode(path string) (imaging.Asset, error) {
	return imaging.Asset{Key: path, PNG: []byte("definitely not png"), Width: 10, Height: 10}, nil
}

func TestRenderReport_BlockFailureBecomesInlineCaption(t *testing.T) {
	doc := oneTaskDoc()
	doc.Levels[0].Tasks[0].ImagePath = "shot.png"
	doc.Levels[0].Tasks = append(doc.Levels[0].Tasks, domain.Task{Question: "next", SolutionFile: "1.2.py"})
	res, raw := render(t, doc, Options{Decoder: brokenDecoder{}})
	errs := kinds(res, KindError)
	if len(errs) != 1 || !strings.HasPrefix(errs[0].Text, "Error embedding image:") {
		t.Fatalf("expected one inline image error, got %+v", errs)
	}
	if !bytes.Contains(raw, []byte("(Error embedding image:")) {
		t.Fatalf("error caption not drawn")
	}
	if len(kinds(res, KindPlaceholder)) != 1 || len(kinds(res, KindTask)) != 2 {
		t.Fatalf("render should continue after a failed block: %+v", res.Placements)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("block failure not reported as warning")
	}
}

func TestRenderReport_EmptySkillRejected(t *testing.T) {
	dir := t.TempDir()
	doc := oneTaskDoc()
	doc.SkillName = ""
	_, err := RenderReport(context.Background(), doc, dir, Options{})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("no output expected, found %d entries", len(entries))
	}
}

func TestRenderReport_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(blocker, "reports")
	_, err := RenderReport(context.Background(), oneTaskDoc(), target, Options{})
	var ioe *IOFailureError
	if !errors.As(err, &ioe) || ioe.Path != target {
		t.Fatalf("expected IOFailureError for %s, got %v", target, err)
	}
}

func TestRenderReport_ProgressAndInputUntouched(t *testing.T) {
	doc := oneTaskDoc()
	doc.Levels[0].Tasks = append(doc.Levels[0].Tasks, domain.Task{Question: "q2", SolutionFile: "1.2.py"})
	before := doc.Clone()
	var calls [][2]int
	render(t, doc, Options{Progress: func(d, n int) { calls = append(calls, [2]int{d, n}) }})
	if len(calls) != 2 || calls[1] != [2]int{2, 2} {
		t.Fatalf("progress calls = %v", calls)
	}
	if doc.Levels[0].Tasks[1] != before.Levels[0].Tasks[1] || doc.SkillName != before.SkillName {
		t.Fatalf("document was modified")
	}
}

func TestOutputFileName(t *testing.T) {
	cases := map[string]string{
		"Go Basics":  "Skill_Go Basics_Report.pdf",
		"C/C++":      "Skill_C_C++_Report.pdf",
		" trim me  ": "Skill_trim me_Report.pdf",
		`what?\now`:  "Skill_what__now_Report.pdf",
	}
	for in, want := range cases {
		if got := OutputFileName(in); got != want {
			t.Fatalf("OutputFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
