/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/jung-kurt/gofpdf"
)

// Page geometry for US-Letter with one-inch margins, in points.
const (
	PageWidth     = 612.0
	PageHeight    = 792.0
	Margin        = 72.0
	ContentWidth  = PageWidth - 2*Margin
	ContentHeight = PageHeight - 2*Margin
)

// Placement records where a block landed. Top is the block's upper edge measured from the
// bottom of the page (the flow cursor before the block was drawn), so a placement is
// inside the margins when Top <= PageHeight-Margin and Bottom() >= Margin.
type Placement struct {
	Kind   string
	Page   int // 1-based
	Top    float64
	Height float64
	Text   string
}

// Bottom is the lower edge of the block measured from the bottom of the page.
func (p Placement) Bottom() float64 { return p.Top - p.Height }

// flow is the per-render state: the PDF under construction, the vertical cursor and
// the page index. Blocks are emitted strictly in document order.
type flow struct {
	pdf        *gofpdf.Fpdf
	tr         func(string) string
	cursor     float64
	page       int
	placements []Placement
	warnings   []string
	log        *slog.Logger

	lost map[rune]bool
}

func newFlow(pdf *gofpdf.Fpdf, log *slog.Logger) *flow {
	f := &flow{pdf: pdf, log: log, lost: map[rune]bool{}}
	f.tr = f.translator(pdf.UnicodeTranslatorFromDescriptor(""))
	f.newPage()
	return f
}

// translator wraps the cp1252 translator and remembers every rune it could not map.
// gofpdf draws those as '.'.
func (f *flow) translator(base func(string) string) func(string) string {
	return func(s string) string {
		out := base(s)
		for _, r := range s {
			if r < 0x80 || f.lost[r] {
				continue
			}
			if base(string(r)) == "." {
				f.lost[r] = true
			}
		}
		return out
	}
}

// finish appends a warning listing the characters the core fonts could not draw.
func (f *flow) finish() {
	if len(f.lost) == 0 {
		return
	}
	rs := make([]rune, 0, len(f.lost))
	for r := range f.lost {
		rs = append(rs, r)
	}
	slices.Sort(rs)
	msg := fmt.Sprintf("%d character(s) not supported by the PDF font were drawn as '.': %q", len(rs), string(rs))
	f.log.Warn("unsupported characters replaced", "count", len(rs))
	f.warnings = append(f.warnings, msg)
}

func (f *flow) newPage() {
	f.pdf.AddPage()
	f.page++
	f.cursor = PageHeight - Margin
}

// skip advances the cursor without a break check; the next block decides whether a new page is needed.
func (f *flow) skip(gap float64) { f.cursor -= gap }

// emit measures b, starts a new page if it does not fit in the remaining space, draws it and
// advances the cursor by its height plus gap. Blocks taller than a whole page are split first
// when they support it. Failures are replaced by an inline error caption.
func (f *flow) emit(b block, gap float64) {
	h, err := f.measure(b)
	if err != nil {
		f.fail(b, err, gap)
		return
	}
	if h > ContentHeight {
		if s, ok := b.(splitter); ok {
			parts := s.split(ContentHeight)
			for i, p := range parts {
				g := 0.0
				if i == len(parts)-1 {
					g = gap
				}
				f.emit(p, g)
			}
			return
		}
	}
	if f.cursor-h < Margin {
		f.newPage()
	}
	top := f.cursor
	if err := f.draw(b, PageHeight-top); err != nil {
		f.cursor -= h
		f.fail(b, err, gap)
		return
	}
	f.placements = append(f.placements, Placement{Kind: b.kind(), Page: f.page, Top: top, Height: h, Text: b.label()})
	f.cursor -= h + gap
}

func (f *flow) fail(b block, err error, gap float64) {
	bre := &BlockRenderError{Block: b.kind(), Page: f.page, Err: err}
	f.warnings = append(f.warnings, bre.Error())
	f.log.Warn("block replaced by error caption", slog.String("block", b.kind()), slog.Int("page", f.page), slog.Any("err", err))
	if _, ok := b.(*errorBlock); ok {
		// the caption itself failed; nothing sensible left to draw
		return
	}
	f.emit(newErrorBlock(b, err), gap)
}

func (f *flow) measure(b block) (h float64, err error) {
	defer recoverBlock(f.pdf, &err)
	h, err = b.measure(f)
	if f.pdf.Err() {
		if err == nil {
			err = f.pdf.Error()
		}
		f.pdf.ClearError()
	}
	return h, err
}

func (f *flow) draw(b block, y float64) (err error) {
	defer recoverBlock(f.pdf, &err)
	b.draw(f, y)
	if f.pdf.Err() {
		err = f.pdf.Error()
		f.pdf.ClearError()
	}
	return err
}

func recoverBlock(pdf *gofpdf.Fpdf, err *error) {
	if r := recover(); r != nil {
		pdf.ClearError()
		*err = fmt.Errorf("panic: %v", r)
	}
}
