/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// BlockStyle is a paragraph preset used by the report renderer.
// All distances are in points. SpaceAfter is the gap left below a block;
// when zero the renderer uses Leading.

type BlockStyle struct {
	Name        string
	Font        FontSpec
	Leading     float64 // baseline-to-baseline distance
	SpaceAfter  float64
	IndentLeft  float64
	IndentRight float64
	Align       string // "L" or "C"
	Color       RGB
	Background  *RGB // painted behind the whole block when set
	Padding     float64
}

// RGB is an 8-bit colour.
type RGB struct{ R, G, B int }

// Gray returns the RGB for a gray level in [0,1].
func Gray(level float64) RGB {
	v := int(level*255 + 0.5)
	return RGB{v, v, v}
}

const (
	StyleTitle       = "Title"
	StyleHeading     = "Heading"
	StyleBody        = "Body"
	StyleTaskHeading = "TaskHeading"
	StyleCode        = "Code"
	StyleCaption     = "Caption"
	StyleAuthor      = "Author"
	StyleError       = "Error"
)

var codeBackground = RGB{0xf0, 0xf0, 0xf0}

var builtinStyles = map[string]BlockStyle{
	StyleTitle: {
		Name: StyleTitle, Font: FontSpec{Family: "Helvetica", Bold: true, SizePt: 18},
		Leading: 22, SpaceAfter: 18, Align: "L",
	},
	StyleHeading: {
		Name: StyleHeading, Font: FontSpec{Family: "Helvetica", Bold: true, SizePt: 14},
		Leading: 18, Align: "L",
	},
	StyleBody: {
		Name: StyleBody, Font: FontSpec{Family: "Helvetica", SizePt: 10},
		Leading: 12, Align: "L",
	},
	StyleTaskHeading: {
		Name: StyleTaskHeading, Font: FontSpec{Family: "Helvetica", Bold: true, SizePt: 10},
		Leading: 12, Align: "L",
	},
	StyleCode: {
		Name: StyleCode, Font: FontSpec{Family: "Courier", SizePt: 10},
		Leading: 12, IndentLeft: 20, IndentRight: 20, Align: "L",
		Background: &codeBackground, Padding: 4,
	},
	StyleCaption: {
		Name: StyleCaption, Font: FontSpec{Family: "Helvetica", Bold: true, SizePt: 12},
		Leading: 14, Align: "C", Color: RGB{0x88, 0x88, 0x88},
	},
	StyleAuthor: {
		Name: StyleAuthor, Font: FontSpec{Family: "Helvetica", SizePt: 12},
		Leading: 14, Align: "L",
	},
	StyleError: {
		Name: StyleError, Font: FontSpec{Family: "Helvetica", Bold: true, SizePt: 10},
		Leading: 12, Align: "L", Color: RGB{0xb0, 0x00, 0x20},
	},
}

// GetStyle returns a builtin style preset by name. The second return value is false if
// the style is not found.
func GetStyle(name string) (BlockStyle, bool) { s, ok := builtinStyles[name]; return s, ok }

// MustStyle is GetStyle for names known at compile time.
func MustStyle(name string) BlockStyle {
	s, ok := builtinStyles[name]
	if !ok {
		panic("textlayout: unknown style " + name)
	}
	return s
}

// ListStyles lists the names of the builtin styles in stable order.
func ListStyles() []string {
	return []string{StyleTitle, StyleHeading, StyleBody, StyleTaskHeading, StyleCode, StyleCaption, StyleAuthor, StyleError}
}

// Gap returns the space left below a block of this style.
func (s BlockStyle) Gap() float64 {
	if s.SpaceAfter > 0 {
		return s.SpaceAfter
	}
	return s.Leading
}

// InnerWidth is the width available to text inside a box of the given outer width.
func (s BlockStyle) InnerWidth(outer float64) float64 {
	w := outer - s.IndentLeft - s.IndentRight - 2*s.Padding
	if w < 0 {
		return 0
	}
	return w
}
