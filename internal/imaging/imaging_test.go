/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA64{R: 0xffff, A: 0xffff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestPlaceholderShape(t *testing.T) {
	a, err := Placeholder()
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	if a.Width != PlaceholderSize || a.Height != PlaceholderSize || a.Key != PlaceholderKey {
		t.Fatalf("unexpected placeholder: %dx%d key=%q", a.Width, a.Height, a.Key)
	}
	img, err := png.Decode(bytes.NewReader(a.PNG))
	if err != nil {
		t.Fatalf("decode placeholder: %v", err)
	}
	lum := func(x, y int) uint32 {
		r, g, b, _ := img.At(x, y).RGBA()
		return (r + g + b) / 3 >> 8
	}
	if lum(2, 2) > 10 {
		t.Fatalf("background should be black, got %d", lum(2, 2))
	}
	if lum(10, 50) < 200 || lum(90, 50) < 200 {
		t.Fatalf("border should be white: left=%d right=%d", lum(10, 50), lum(90, 50))
	}
	again, _ := Placeholder()
	if !bytes.Equal(a.PNG, again.PNG) {
		t.Fatalf("placeholder bytes differ between calls")
	}
}

func TestFileDecoderConvertsToEightBitPNG(t *testing.T) {
	p := filepath.Join(t.TempDir(), "deep.png")
	writePNG(t, p, 40, 20)
	a, err := FileDecoder{}.Decode(p)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if a.Width != 40 || a.Height != 20 || a.Key != p {
		t.Fatalf("unexpected asset: %+v", a)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(a.PNG))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.ColorModel == color.RGBA64Model || cfg.ColorModel == color.NRGBA64Model {
		t.Fatalf("expected 8-bit output, got %v", cfg.ColorModel)
	}
}

func TestFileDecoderDownscales(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.jpg")
	img := image.NewRGBA(image.Rect(0, 0, 400, 100))
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	a, err := FileDecoder{MaxPixels: 200}.Decode(p)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if a.Width != 200 || a.Height != 50 {
		t.Fatalf("expected 200x50, got %dx%d", a.Width, a.Height)
	}
}

func TestFileDecoderReportsResourceError(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{garbage, filepath.Join(dir, "missing.png")} {
		_, err := FileDecoder{}.Decode(p)
		var re *ResourceError
		if !errors.As(err, &re) || re.Path != p {
			t.Fatalf("expected ResourceError for %s, got %v", p, err)
		}
	}
}

func TestPrefetchRecordsFailuresWithoutAborting(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writePNG(t, good, 4, 4)
	bad := filepath.Join(dir, "nope.png")

	set, err := Prefetch(context.Background(), FileDecoder{}, []string{good, bad, good, ""}, 2)
	if err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if _, err := set.Lookup(good); err != nil {
		t.Fatalf("good image failed: %v", err)
	}
	if _, err := set.Lookup(bad); err == nil {
		t.Fatalf("expected error for missing image")
	}
	if set.Failed() != 1 {
		t.Fatalf("Failed() = %d, want 1", set.Failed())
	}
	var re *ResourceError
	if _, err := set.Lookup("never-asked.png"); !errors.As(err, &re) {
		t.Fatalf("expected ResourceError for unknown path, got %v", err)
	}
}
