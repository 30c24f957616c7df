/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imaging decodes task images for embedding in reports and provides the
// in-memory placeholder used when a task has no image or its file cannot be read.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	// registered decoders
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ResourceError reports that a single image could not be loaded. Renderers recover from it
// by substituting the placeholder.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("image %q unavailable: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ErrEmptyImage is returned for images with a zero-sized bounds rectangle.
var ErrEmptyImage = errors.New("image has no pixels")

// Asset is an image ready for embedding: 8-bit PNG bytes plus pixel dimensions.
type Asset struct {
	Key    string // stable name used to register the image once per document
	PNG    []byte
	Width  int
	Height int
}

// Decoder loads an image file into an Asset.
type Decoder interface {
	Decode(path string) (Asset, error)
}

// FileDecoder reads images from the local filesystem. Images whose longest edge exceeds
// MaxPixels are downscaled with Catmull-Rom resampling; MaxPixels <= 0 disables scaling.
type FileDecoder struct {
	MaxPixels int
}

// Decode implements Decoder. Any failure is returned as a *ResourceError.
func (d FileDecoder) Decode(path string) (Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Asset{}, &ResourceError{Path: path, Err: err}
	}
	a, err := DecodeBytes(data, d.MaxPixels)
	if err != nil {
		return Asset{}, &ResourceError{Path: path, Err: err}
	}
	a.Key = path
	return a, nil
}

// DecodeBytes decodes any registered format and re-encodes it as 8-bit PNG.
func DecodeBytes(data []byte, maxPixels int) (Asset, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Asset{}, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Asset{}, ErrEmptyImage
	}
	img = Downscale(img, maxPixels)
	out, err := EncodePNG(img)
	if err != nil {
		return Asset{}, err
	}
	nb := img.Bounds()
	return Asset{PNG: out, Width: nb.Dx(), Height: nb.Dy()}, nil
}

// Downscale shrinks img so that its longest edge is at most maxPixels, preserving aspect ratio.
// Images already within the limit are returned as-is; images are never enlarged.
func Downscale(img image.Image, maxPixels int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if maxPixels <= 0 || longest <= maxPixels {
		return img
	}
	scale := float64(maxPixels) / float64(longest)
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodePNG writes img as an 8-bit non-premultiplied PNG. The PDF writer rejects 16-bit
// channels, so everything is normalised to NRGBA first.
func EncodePNG(img image.Image) ([]byte, error) {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		b := img.Bounds()
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
