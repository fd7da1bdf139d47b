package imageproc

import (
	"image"
	"image/color"
	"testing"
)

func solidGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestEmbedCrop(t *testing.T) {
	stem := NewLineStem(32, 8, 4, false, 0)

	// 2:1 crop scales to 16x8 and lands one character width in
	out := stem.EmbedCrop(solidGray(16, 8, 255))

	if got := out.Bounds().Size(); got != (image.Point{32, 8}) {
		t.Fatalf("canvas size = %v, want 32x8", got)
	}
	if got := out.GrayAt(0, 0).Y; got != 0 {
		t.Errorf("left margin = %d, want black", got)
	}
	if got := out.GrayAt(4, 0).Y; got != 255 {
		t.Errorf("crop start = %d, want white", got)
	}
	if got := out.GrayAt(19, 7).Y; got != 255 {
		t.Errorf("crop end = %d, want white", got)
	}
	if got := out.GrayAt(25, 0).Y; got != 0 {
		t.Errorf("right of crop = %d, want black", got)
	}
}

func TestEmbedCropWide(t *testing.T) {
	stem := NewLineStem(32, 8, 4, false, 0)

	// a crop wider than the canvas clamps to full width, no margin
	out := stem.EmbedCrop(solidGray(64, 8, 255))
	if got := out.GrayAt(0, 0).Y; got != 255 {
		t.Errorf("left edge = %d, want white", got)
	}
	if got := out.GrayAt(31, 7).Y; got != 255 {
		t.Errorf("right edge = %d, want white", got)
	}
}

func TestApply(t *testing.T) {
	stem := NewLineStem(32, 8, 4, false, 0)

	vals := stem.Apply(solidGray(16, 8, 128))
	if len(vals) != 32*8 {
		t.Fatalf("len = %d, want %d", len(vals), 32*8)
	}
	for i, v := range vals {
		if v < 0 || v > 1 {
			t.Fatalf("value %d = %v outside [0, 1]", i, v)
		}
	}
}

func TestApplyAugmentDimensions(t *testing.T) {
	stem := NewLineStem(32, 8, 4, true, 42)

	// augmentation distorts content but never geometry
	vals := stem.Apply(solidGray(16, 8, 128))
	if len(vals) != 32*8 {
		t.Fatalf("len = %d, want %d", len(vals), 32*8)
	}
}

func TestNormalize(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{0})
	img.SetGray(1, 0, color.Gray{255})

	vals := Normalize(img, 0, 1)
	if vals[0] != 0 || vals[1] != 1 {
		t.Errorf("Normalize = %v, want [0 1]", vals)
	}

	centered := Normalize(img, 0.5, 0.5)
	if centered[0] != -1 || centered[1] != 1 {
		t.Errorf("centered Normalize = %v, want [-1 1]", centered)
	}
}
