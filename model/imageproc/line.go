package imageproc

import (
	"image"
	"math"

	"golang.org/x/exp/rand"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	// embed-crop stretch range under augmentation
	minStretch = 0.9
	maxStretch = 1.1

	// brightness jitter range
	minBrightness = 0.8
	maxBrightness = 1.6

	// random affine ranges, degrees
	maxRotate = 1.0
	minShear  = -30.0
	maxShear  = 20.0
)

// LineStem converts a cropped text line into the fixed-size pixel
// buffer the models consume. With augmentation enabled it additionally
// applies random stretch, brightness jitter and a small affine
// distortion, for generating training batches.
type LineStem struct {
	width     int
	height    int
	charWidth int

	augment bool
	rng     *rand.Rand
}

// NewLineStem builds a stem emitting width x height buffers. charWidth
// is the nominal width of one character, used as the left margin when
// embedding short crops.
func NewLineStem(width, height, charWidth int, augment bool, seed uint64) *LineStem {
	return &LineStem{
		width:     width,
		height:    height,
		charWidth: charWidth,

		augment: augment,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Size reports the output buffer dimensions.
func (s *LineStem) Size() (width, height int) {
	return s.width, s.height
}

// Apply runs the full pipeline: composite, grayscale, embed onto the
// canvas, augment when enabled, and rescale pixel values to [0, 1] rows
// outermost.
func (s *LineStem) Apply(img image.Image) []float32 {
	gray := s.EmbedCrop(Grayscale(Composite(img)))
	if s.augment {
		gray = s.jitterBrightness(gray)
		gray = s.randomAffine(gray)
	}

	return Normalize(gray, 0, 1)
}

// EmbedCrop scales a line crop to the canvas height preserving aspect
// ratio and pastes it onto a black canvas, indented by one character
// width when it fits.
func (s *LineStem) EmbedCrop(crop image.Image) *image.Gray {
	bounds := crop.Bounds()

	h := s.height
	w := int(float64(h) * float64(bounds.Dx()) / float64(bounds.Dy()))
	if s.augment {
		w = int(float64(w) * (minStretch + (maxStretch-minStretch)*s.rng.Float64()))
	}
	w = min(w, s.width)

	resized := Resize(crop, image.Point{w, h}, ResizeBilinear)

	dst := image.NewGray(image.Rect(0, 0, s.width, s.height))
	x := min(s.charWidth, s.width-w)
	y := s.height - h
	draw.Draw(dst, image.Rect(x, y, x+w, y+h), resized, resized.Bounds().Min, draw.Src)
	return dst
}

func (s *LineStem) jitterBrightness(img *image.Gray) *image.Gray {
	factor := minBrightness + (maxBrightness-minBrightness)*s.rng.Float64()

	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		out.Pix[i] = uint8(min(255, float64(v)*factor))
	}
	return out
}

// randomAffine rotates and shears about the canvas center, filling the
// uncovered region with black.
func (s *LineStem) randomAffine(img *image.Gray) *image.Gray {
	rotate := (2*s.rng.Float64() - 1) * maxRotate * math.Pi / 180
	shear := math.Tan((minShear + (maxShear-minShear)*s.rng.Float64()) * math.Pi / 180)

	cx := float64(s.width) / 2
	cy := float64(s.height) / 2

	m := mulAff3(
		f64.Aff3{1, 0, cx, 0, 1, cy},
		mulAff3(
			f64.Aff3{math.Cos(rotate), -math.Sin(rotate), 0, math.Sin(rotate), math.Cos(rotate), 0},
			mulAff3(
				f64.Aff3{1, shear, 0, 0, 1, 0},
				f64.Aff3{1, 0, -cx, 0, 1, -cy},
			),
		),
	)

	dst := image.NewGray(img.Bounds())
	draw.BiLinear.Transform(dst, m, img, img.Bounds(), draw.Src, nil)
	return dst
}

func mulAff3(m, n f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		m[0]*n[0] + m[1]*n[3], m[0]*n[1] + m[1]*n[4], m[0]*n[2] + m[1]*n[5] + m[2],
		m[3]*n[0] + m[4]*n[3], m[3]*n[1] + m[4]*n[4], m[3]*n[2] + m[4]*n[5] + m[5],
	}
}
