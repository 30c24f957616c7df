/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imaging

import (
	"sync"

	"github.com/fogleman/gg"
)

// PlaceholderSize is the edge length in pixels of the placeholder image.
const PlaceholderSize = 100

// PlaceholderKey is the registration name of the placeholder, shared by every occurrence in a document.
const PlaceholderKey = "placeholder:no-image"

var (
	placeholderOnce  sync.Once
	placeholderAsset Asset
	placeholderErr   error
)

// Placeholder returns the 100x100 "No Image" stand-in: black background, a white 2px
// border rectangle from (10,10) to (90,90) and the caption centred. The bytes are
// generated once per process and shared by every caller.
func Placeholder() (Asset, error) {
	placeholderOnce.Do(func() {
		placeholderAsset, placeholderErr = drawPlaceholder()
	})
	return placeholderAsset, placeholderErr
}

func drawPlaceholder() (Asset, error) {
	const n = PlaceholderSize
	dc := gg.NewContext(n, n)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(2)
	dc.DrawRectangle(10, 10, 80, 80)
	dc.Stroke()

	dc.DrawStringAnchored("No Image", n/2, n/2, 0.5, 0.5)

	data, err := EncodePNG(dc.Image())
	if err != nil {
		return Asset{}, err
	}
	return Asset{Key: PlaceholderKey, PNG: data, Width: n, Height: n}, nil
}
