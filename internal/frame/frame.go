package frame

import (
	"fmt"
	"image"
	"image/color"
)

// Frame is a packed 8-bit BGR image, row-major with no padding
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a black frame
func New(width, height int) Frame {
	return Frame{Width: width, Height: height, Pix: make([]byte, width*height*3)}
}

// Size returns the byte length of a BGR frame with the given dimensions
func Size(width, height int) int {
	return width * height * 3
}

// Validate checks that the pixel buffer matches the dimensions
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if len(f.Pix) != Size(f.Width, f.Height) {
		return fmt.Errorf("frame buffer is %d bytes, want %d", len(f.Pix), Size(f.Width, f.Height))
	}
	return nil
}

// Clone returns a deep copy
func (f Frame) Clone() Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// At returns the B, G, R values at (x, y)
func (f Frame) At(x, y int) (b, g, r uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Set writes the B, G, R values at (x, y)
func (f Frame) Set(x, y int, b, g, r uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
}

// Fill paints every pixel with one colour
func (f Frame) Fill(b, g, r uint8) {
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
	}
}

// ToRGBA converts the frame into an image.RGBA
func (f Frame) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i+2]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i]
		img.Pix[j+3] = 0xff
	}
	return img
}

// FromImage converts any image into a BGR frame
func FromImage(img image.Image) Frame {
	bounds := img.Bounds()
	f := New(bounds.Dx(), bounds.Dy())

	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*f.Width {
		for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
			f.Pix[i] = rgba.Pix[j+2]
			f.Pix[i+1] = rgba.Pix[j+1]
			f.Pix[i+2] = rgba.Pix[j]
		}
		return f
	}

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := color.RGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
			f.Set(x, y, c.B, c.G, c.R)
		}
	}
	return f
}
