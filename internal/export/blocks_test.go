/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"skillreport/internal/domain"
)

const longAuthor = "Ada Augusta King, Countess of Lovelace " // 38 runes

func testFlow() *flow {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", SizeStr: "Letter"})
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetAutoPageBreak(false, Margin)
	return newFlow(pdf, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFieldBlock_WrapsLongValuesInsideColumn(t *testing.T) {
	fl := testFlow()
	b := newAuthor(strings.Repeat(longAuthor, 20), strings.Repeat("x", 400))
	h, err := b.measure(fl)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	rows := len(b.lines[0]) + len(b.lines[1])
	if len(b.lines[0]) < 2 || len(b.lines[1]) < 2 {
		t.Fatalf("values not wrapped: %d name lines, %d role lines", len(b.lines[0]), len(b.lines[1]))
	}
	if want := float64(rows) * b.style.Leading; h != want {
		t.Fatalf("height = %.2f, want %.2f for %d lines", h, want, rows)
	}
	setFont(fl.pdf, b.style.Font)
	for i, ls := range b.lines {
		for _, ln := range ls {
			if w := b.labelW[i] + fl.pdf.GetStringWidth(fl.tr(ln)); w > ContentWidth+1e-6 {
				t.Fatalf("field %d line %q is %.2fpt wide, column is %.2fpt", i, ln, w, ContentWidth)
			}
		}
	}
}

func TestRenderReport_LongAuthorStaysInsideMargins(t *testing.T) {
	doc := oneTaskDoc()
	doc.AuthorName = strings.Repeat(longAuthor, 20)
	doc.AuthorRole = "Mentor"
	res, _ := render(t, doc, Options{})
	authors := kinds(res, KindAuthor)
	if len(authors) != 1 {
		t.Fatalf("author blocks = %d, want 1", len(authors))
	}
	if lead := newAuthor("a", "b").style.Leading; authors[0].Height <= 2*lead {
		t.Fatalf("author height %.2f does not account for wrapped lines (leading %.2f)", authors[0].Height, lead)
	}
	assertWithinMargins(t, res)
}

func TestRenderReport_WarnsAboutUndrawableCharacters(t *testing.T) {
	doc := oneTaskDoc()
	doc.Levels[0].Tasks[0].Question = "Map 日本 → Japan"
	res, _ := render(t, doc, Options{})
	var found string
	for _, w := range res.Warnings {
		if strings.Contains(w, "drawn as '.'") {
			found = w
		}
	}
	if found == "" {
		t.Fatalf("no warning for unsupported characters: %v", res.Warnings)
	}
	for _, r := range []string{"日", "本", "→", "3 character(s)"} {
		if !strings.Contains(found, r) {
			t.Fatalf("warning %q does not mention %s", found, r)
		}
	}
}

func TestRenderReport_Cp1252TextHasNoWarnings(t *testing.T) {
	doc := domain.ReportDocument{
		SkillName:  "Café",
		AuthorName: "Zoë Müller – naïve “quotes”",
		Levels: []domain.Level{{
			Name:   "Intro",
			Folder: "/home/zoë/kurse/Tag1",
			Tasks:  []domain.Task{{Question: "Größe über 10 €?", SolutionFile: "1.1.py"}},
		}},
	}
	res, _ := render(t, doc, Options{})
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestRenderReport_HugeQuestionIsSplitAcrossPages(t *testing.T) {
	doc := oneTaskDoc()
	doc.Levels[0].Tasks[0].Question = strings.TrimSpace(strings.Repeat("word ", 6000))
	res, _ := render(t, doc, Options{})
	parts := kinds(res, KindTask)
	if len(parts) < 2 || res.Pages < 2 {
		t.Fatalf("question parts = %d on %d pages, want a split", len(parts), res.Pages)
	}
	words := 0
	for _, p := range parts {
		if p.Height > ContentHeight {
			t.Fatalf("part on page %d is %.2fpt tall", p.Page, p.Height)
		}
		words += len(strings.Fields(p.Text))
	}
	if words != 6002 {
		t.Fatalf("split parts carry %d words, want 6002", words)
	}
	assertWithinMargins(t, res)
}
