/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "testing"

func TestBuiltinStyles(t *testing.T) {
	for _, n := range ListStyles() {
		s, ok := GetStyle(n)
		if !ok {
			t.Fatalf("%s style missing", n)
		}
		if s.Leading <= 0 || s.Font.SizePt <= 0 {
			t.Fatalf("%s has no metrics: %+v", n, s)
		}
	}
	if _, ok := GetStyle("Dialogue"); ok {
		t.Fatalf("unexpected style")
	}
}

func TestGapFallsBackToLeading(t *testing.T) {
	if g := MustStyle(StyleBody).Gap(); g != 12 {
		t.Fatalf("body gap = %v, want 12", g)
	}
	if g := MustStyle(StyleTitle).Gap(); g != 18 {
		t.Fatalf("title gap = %v, want 18", g)
	}
}

func TestCodeInnerWidth(t *testing.T) {
	code := MustStyle(StyleCode)
	if code.Background == nil || code.Font.Family != "Courier" {
		t.Fatalf("code style must be shaded monospace: %+v", code)
	}
	if w := code.InnerWidth(468); w != 468-40-8 {
		t.Fatalf("inner width = %v", w)
	}
	if Gray(1) != (RGB{255, 255, 255}) || Gray(0) != (RGB{}) {
		t.Fatalf("Gray mismatch")
	}
}
