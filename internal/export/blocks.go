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
	"fmt"
	"math"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"skillreport/internal/imaging"
	"skillreport/internal/textlayout"
)

// Block kinds reported in placements.
const (
	KindTitle       = "title"
	KindHeading     = "heading"
	KindText        = "text"
	KindTask        = "task"
	KindCode        = "code"
	KindImage       = "image"
	KindPlaceholder = "placeholder"
	KindTaskRule    = "task-rule"
	KindLevelBreak  = "level-separator"
	KindAuthor      = "author"
	KindError       = "error"
)

// NextLevelCaption is the text of the separator drawn between consecutive levels.
const NextLevelCaption = "→ Next Level →"

// block is one indivisible unit of layout. measure returns the height at the content width
// (and may register resources); draw paints at y, the block's top edge in PDF top-down coordinates.
type block interface {
	kind() string
	label() string
	measure(f *flow) (float64, error)
	draw(f *flow, y float64)
}

// splitter is implemented by blocks that can be broken at line boundaries when they are taller than a page.
type splitter interface {
	split(maxHeight float64) []block
}

type pdfMeasurer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (m pdfMeasurer) StringWidth(s string) float64 { return m.pdf.GetStringWidth(m.tr(s)) }

func setFont(pdf *gofpdf.Fpdf, fs textlayout.FontSpec) {
	pdf.SetFont(fs.Family, fs.StyleStr(), fs.SizePt)
}

func setTextColor(pdf *gofpdf.Fpdf, c textlayout.RGB) { pdf.SetTextColor(c.R, c.G, c.B) }

func setDrawColor(pdf *gofpdf.Fpdf, c textlayout.RGB) { pdf.SetDrawColor(c.R, c.G, c.B) }

// textBlock is a wrapped paragraph in a single style.
type textBlock struct {
	k     string
	style textlayout.BlockStyle
	text  string
	lines []string
}

func newText(k, style, text string) *textBlock {
	return &textBlock{k: k, style: textlayout.MustStyle(style), text: text}
}

func (b *textBlock) kind() string  { return b.k }
func (b *textBlock) label() string { return b.text }

func (b *textBlock) measure(f *flow) (float64, error) {
	if b.lines == nil {
		setFont(f.pdf, b.style.Font)
		b.lines = textlayout.Wrap(pdfMeasurer{f.pdf, f.tr}, b.text, b.style.InnerWidth(ContentWidth))
	}
	return float64(len(b.lines)) * b.style.Leading, nil
}

func (b *textBlock) draw(f *flow, y float64) {
	s := b.style
	setFont(f.pdf, s.Font)
	setTextColor(f.pdf, s.Color)
	x := Margin + s.IndentLeft + s.Padding
	w := s.InnerWidth(ContentWidth)
	for i, ln := range b.lines {
		f.pdf.SetXY(x, y+float64(i)*s.Leading)
		f.pdf.CellFormat(w, s.Leading, f.tr(ln), "", 0, s.Align, false, 0, "")
	}
	setTextColor(f.pdf, textlayout.RGB{})
}

func (b *textBlock) split(maxHeight float64) []block {
	per := int(maxHeight / b.style.Leading)
	if per < 1 {
		per = 1
	}
	var out []block
	for start := 0; start < len(b.lines); start += per {
		end := min(start+per, len(b.lines))
		out = append(out, &textBlock{k: b.k, style: b.style, text: strings.Join(b.lines[start:end], " "), lines: b.lines[start:end]})
	}
	return out
}

// codeBlock is a shaded, indented monospaced block; lines are pre-formatted and never re-flowed.
type codeBlock struct {
	style textlayout.BlockStyle
	lines []string
}

func newCode(code string) *codeBlock {
	s := textlayout.MustStyle(textlayout.StyleCode)
	return &codeBlock{style: s, lines: textlayout.CodeLines(code, codeColumns(s))}
}

// codeColumns is how many Courier glyphs fit a code line; every Courier glyph is 600/1000 em wide.
func codeColumns(s textlayout.BlockStyle) int {
	return textlayout.Columns(s.InnerWidth(ContentWidth), 0.6*s.Font.SizePt)
}

func (b *codeBlock) kind() string  { return KindCode }
func (b *codeBlock) label() string { return strings.Join(b.lines, "\n") }

func (b *codeBlock) measure(*flow) (float64, error) {
	return float64(len(b.lines))*b.style.Leading + 2*b.style.Padding, nil
}

func (b *codeBlock) draw(f *flow, y float64) {
	s := b.style
	h, _ := b.measure(f)
	if s.Background != nil {
		bg := *s.Background
		f.pdf.SetFillColor(bg.R, bg.G, bg.B)
		f.pdf.Rect(Margin+s.IndentLeft, y, ContentWidth-s.IndentLeft-s.IndentRight, h, "F")
	}
	setFont(f.pdf, s.Font)
	setTextColor(f.pdf, s.Color)
	x := Margin + s.IndentLeft + s.Padding
	w := s.InnerWidth(ContentWidth)
	for i, ln := range b.lines {
		f.pdf.SetXY(x, y+s.Padding+float64(i)*s.Leading)
		f.pdf.CellFormat(w, s.Leading, f.tr(ln), "", 0, "L", false, 0, "")
	}
}

func (b *codeBlock) split(maxHeight float64) []block {
	per := int((maxHeight - 2*b.style.Padding) / b.style.Leading)
	if per < 1 {
		per = 1
	}
	var out []block
	for start := 0; start < len(b.lines); start += per {
		end := min(start+per, len(b.lines))
		out = append(out, &codeBlock{style: b.style, lines: b.lines[start:end]})
	}
	return out
}

// imageBlock embeds a decoded image scaled down to the content width (and page height),
// preserving aspect ratio; images are never enlarged.
type imageBlock struct {
	asset       imaging.Asset
	name        string
	placeholder bool
	w, h        float64
}

func (b *imageBlock) kind() string {
	if b.placeholder {
		return KindPlaceholder
	}
	return KindImage
}

func (b *imageBlock) label() string { return b.asset.Key }

func (b *imageBlock) measure(f *flow) (float64, error) {
	if b.asset.Width <= 0 || b.asset.Height <= 0 {
		return 0, imaging.ErrEmptyImage
	}
	info := f.pdf.RegisterImageOptionsReader(b.name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(b.asset.PNG))
	if f.pdf.Err() {
		return 0, f.pdf.Error()
	}
	if info == nil {
		return 0, fmt.Errorf("image %q was not registered", b.name)
	}
	b.w, b.h = FitImage(float64(b.asset.Width), float64(b.asset.Height))
	return b.h, nil
}

func (b *imageBlock) draw(f *flow, y float64) {
	f.pdf.ImageOptions(b.name, Margin, y, b.w, b.h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
}

// FitImage scales a w x h image (one pixel per point) so it fits the content box, never upscaling.
func FitImage(w, h float64) (float64, float64) {
	scale := math.Min(1, ContentWidth/w)
	if h*scale > ContentHeight {
		scale = ContentHeight / h
	}
	return w * scale, h * scale
}

// ruleBlock is the thin gray separator between tasks of a level.
type ruleBlock struct{}

const (
	taskRuleHeight = 24.0
	taskRuleOffset = 6.0
	taskRuleInset  = 1.5 * 72
)

func (ruleBlock) kind() string                   { return KindTaskRule }
func (ruleBlock) label() string                  { return "" }
func (ruleBlock) measure(*flow) (float64, error) { return taskRuleHeight, nil }

func (ruleBlock) draw(f *flow, y float64) {
	f.pdf.SetLineWidth(0.5)
	setDrawColor(f.pdf, textlayout.Gray(0.7))
	f.pdf.Line(taskRuleInset, y+taskRuleOffset, PageWidth-taskRuleInset, y+taskRuleOffset)
	setDrawColor(f.pdf, textlayout.RGB{})
}

// levelBreakBlock is the bold full-width rule plus the centred "Next Level" caption. Rule and
// caption form one block so they always share a page.
type levelBreakBlock struct {
	style textlayout.BlockStyle
}

const levelRuleGap = 0.25 * 72

func newLevelBreak() *levelBreakBlock {
	return &levelBreakBlock{style: textlayout.MustStyle(textlayout.StyleCaption)}
}

func (b *levelBreakBlock) kind() string  { return KindLevelBreak }
func (b *levelBreakBlock) label() string { return NextLevelCaption }

func (b *levelBreakBlock) measure(*flow) (float64, error) {
	return levelRuleGap + b.style.Leading, nil
}

// arrowGlyph is the ZapfDingbats rightwards arrow (a161); the core Helvetica encoding has no arrow.
const arrowGlyph = "\xd5"

func (b *levelBreakBlock) draw(f *flow, y float64) {
	pdf := f.pdf
	pdf.SetLineWidth(2)
	setDrawColor(pdf, textlayout.Gray(0.7))
	pdf.Line(Margin, y, PageWidth-Margin, y)
	setDrawColor(pdf, textlayout.RGB{})

	s := b.style
	text := " Next Level "
	pdf.SetFont("ZapfDingbats", "", s.Font.SizePt)
	aw := pdf.GetStringWidth(arrowGlyph)
	setFont(pdf, s.Font)
	tw := pdf.GetStringWidth(text)

	cy := y + levelRuleGap
	pdf.SetXY(Margin+(ContentWidth-(2*aw+tw))/2, cy)
	setTextColor(pdf, s.Color)
	pdf.SetFont("ZapfDingbats", "", s.Font.SizePt)
	pdf.CellFormat(aw, s.Leading, arrowGlyph, "", 0, "L", false, 0, "")
	setFont(pdf, s.Font)
	pdf.CellFormat(tw, s.Leading, text, "", 0, "L", false, 0, "")
	pdf.SetFont("ZapfDingbats", "", s.Font.SizePt)
	pdf.CellFormat(aw, s.Leading, arrowGlyph, "", 0, "L", false, 0, "")
	setTextColor(pdf, textlayout.RGB{})
}

// fieldBlock renders "Label: value" lines with bold labels. Values wrap at the content width
// with a hanging indent under the value column.
type fieldBlock struct {
	style  textlayout.BlockStyle
	fields [][2]string

	labelW []float64
	lines  [][]string
}

func newAuthor(name, role string) *fieldBlock {
	b := &fieldBlock{style: textlayout.MustStyle(textlayout.StyleAuthor)}
	if strings.TrimSpace(name) != "" {
		b.fields = append(b.fields, [2]string{"Name:", name})
	}
	if strings.TrimSpace(role) != "" {
		b.fields = append(b.fields, [2]string{"Role:", role})
	}
	return b
}

func (b *fieldBlock) kind() string { return KindAuthor }

func (b *fieldBlock) label() string {
	parts := make([]string, len(b.fields))
	for i, fv := range b.fields {
		parts[i] = fv[0] + " " + fv[1]
	}
	return strings.Join(parts, "\n")
}

func (b *fieldBlock) measure(f *flow) (float64, error) {
	if b.lines == nil {
		bold := b.style.Font
		bold.Bold = true
		b.labelW = make([]float64, len(b.fields))
		b.lines = make([][]string, len(b.fields))
		for i, fv := range b.fields {
			setFont(f.pdf, bold)
			b.labelW[i] = f.pdf.GetStringWidth(fv[0] + " ")
			setFont(f.pdf, b.style.Font)
			b.lines[i] = textlayout.Wrap(pdfMeasurer{f.pdf, f.tr}, fv[1], ContentWidth-b.labelW[i])
		}
	}
	n := 0
	for _, ls := range b.lines {
		n += max(1, len(ls))
	}
	return float64(n) * b.style.Leading, nil
}

func (b *fieldBlock) draw(f *flow, y float64) {
	s := b.style
	bold := s.Font
	bold.Bold = true
	row := 0
	for i, fv := range b.fields {
		lw := b.labelW[i]
		f.pdf.SetXY(Margin, y+float64(row)*s.Leading)
		setFont(f.pdf, bold)
		f.pdf.CellFormat(lw, s.Leading, fv[0]+" ", "", 0, "L", false, 0, "")
		setFont(f.pdf, s.Font)
		if len(b.lines[i]) == 0 {
			row++
			continue
		}
		for _, ln := range b.lines[i] {
			f.pdf.SetXY(Margin+lw, y+float64(row)*s.Leading)
			f.pdf.CellFormat(ContentWidth-lw, s.Leading, f.tr(ln), "", 0, "L", false, 0, "")
			row++
		}
	}
}

// errorBlock replaces a block that failed to measure or draw.
type errorBlock struct {
	*textBlock
}

func newErrorBlock(failed block, err error) *errorBlock {
	msg := fmt.Sprintf("Error rendering %s: %v", failed.kind(), err)
	if k := failed.kind(); k == KindImage || k == KindPlaceholder {
		msg = fmt.Sprintf("Error embedding image: %v", err)
	}
	return &errorBlock{textBlock: newText(KindError, textlayout.StyleError, msg)}
}
