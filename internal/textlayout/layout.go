/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Line breaking for report blocks. Measurement is isolated behind Measurer so
// the same breaking rules run against PDF core-font metrics and against fixed
// widths in tests.

import (
	"strings"

	"github.com/muesli/reflow/wrap"
)

// CodeTabWidth is the number of spaces a tab expands to in code blocks.
const CodeTabWidth = 4

// FontSpec describes a PDF core font.
type FontSpec struct {
	Family string // "Helvetica", "Courier", ...
	Bold   bool
	SizePt float64
}

// StyleStr returns the gofpdf style string for the spec.
func (f FontSpec) StyleStr() string {
	if f.Bold {
		return "B"
	}
	return ""
}

// Measurer returns the rendered width of s in points for the currently selected font.
type Measurer interface {
	StringWidth(s string) float64
}

// FixedMeasurer treats every rune as Advance points wide; used for monospaced fonts and tests.
type FixedMeasurer struct{ Advance float64 }

func (m FixedMeasurer) StringWidth(s string) float64 {
	return float64(len([]rune(s))) * m.Advance
}

// Wrap breaks text into lines no wider than maxWidth. Lines break at spaces; explicit
// newlines always break; a single word wider than maxWidth is split between runes.
// An empty text yields one empty line so every paragraph occupies at least one line.
func Wrap(m Measurer, text string, maxWidth float64) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range strings.Split(text, "\n") {
		out = append(out, wrapParagraph(m, para, maxWidth)...)
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func wrapParagraph(m Measurer, para string, maxWidth float64) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	cur := ""
	for _, w := range words {
		cand := w
		if cur != "" {
			cand = cur + " " + w
		}
		if maxWidth <= 0 || m.StringWidth(cand) <= maxWidth {
			cur = cand
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
		// word alone is too wide: split it
		for m.StringWidth(w) > maxWidth {
			head, tail := splitAtWidth(m, w, maxWidth)
			lines = append(lines, head)
			w = tail
		}
		cur = w
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// splitAtWidth returns the longest rune prefix of s that fits maxWidth (at least one rune) and the rest.
func splitAtWidth(m Measurer, s string, maxWidth float64) (string, string) {
	r := []rune(s)
	n := 1
	for n < len(r) && m.StringWidth(string(r[:n+1])) <= maxWidth {
		n++
	}
	return string(r[:n]), string(r[n:])
}

// ExpandTabs replaces every tab with CodeTabWidth spaces.
func ExpandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", CodeTabWidth))
}

// CodeLines formats source code for a preformatted block: line endings are normalised,
// tabs expanded, runs of spaces preserved and every newline kept as a hard break.
// Lines longer than cols runes are hard-wrapped so nothing runs past the block edge;
// cols <= 0 disables wrapping. Trailing blank lines are dropped.
func CodeLines(code string, cols int) []string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	code = strings.ReplaceAll(code, "\r", "\n")
	code = strings.TrimRight(ExpandTabs(code), "\n")
	if code == "" {
		return nil
	}
	var out []string
	for _, ln := range strings.Split(code, "\n") {
		if cols <= 0 || len([]rune(ln)) <= cols {
			out = append(out, ln)
			continue
		}
		w := wrap.NewWriter(cols)
		w.PreserveSpace = true
		w.TabWidth = CodeTabWidth
		_, _ = w.Write([]byte(ln))
		out = append(out, strings.Split(w.String(), "\n")...)
	}
	return out
}

// Columns returns how many monospaced glyphs of width advance fit in width.
func Columns(width, advance float64) int {
	if advance <= 0 {
		return 0
	}
	return int(width / advance)
}
