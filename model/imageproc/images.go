// Package imageproc converts raw line images into model-ready pixel
// buffers.
package imageproc

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

const (
	ResizeBilinear = iota
	ResizeNearestNeighbor
	ResizeApproxBilinear
	ResizeCatmullrom
)

// Composite returns an image with the alpha channel removed by drawing over a black background.
func Composite(img image.Image) image.Image {
	return CompositeColor(img, color.Black)
}

// CompositeColor returns an image with the alpha channel removed by drawing over a background color.
func CompositeColor(img image.Image, color color.Color) image.Image {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)
	return dst
}

// Grayscale collapses an image to a single luminance channel.
func Grayscale(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}

	dst := image.NewGray(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}

// Resize returns a grayscale image which has been scaled to a new size.
func Resize(img image.Image, newSize image.Point, method int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, newSize.X, newSize.Y))

	kernels := map[int]draw.Interpolator{
		ResizeBilinear:        draw.BiLinear,
		ResizeNearestNeighbor: draw.NearestNeighbor,
		ResizeApproxBilinear:  draw.ApproxBiLinear,
		ResizeCatmullrom:      draw.CatmullRom,
	}

	kernel, ok := kernels[method]
	if !ok {
		panic("no resizing method found")
	}

	kernel.Scale(dst, dst.Rect, img, img.Bounds(), draw.Src, nil)

	return dst
}

// Normalize returns the pixel values of a grayscale image rescaled to
// [0, 1] and normalized around mean with the given standard deviation,
// rows outermost. Pass mean 0 and std 1 to keep the raw [0, 1] range.
func Normalize(img *image.Gray, mean, std float32) []float32 {
	bounds := img.Bounds()
	vals := make([]float32, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := float32(img.GrayAt(x, y).Y) / 255.0
			vals = append(vals, (v-mean)/std)
		}
	}

	return vals
}
