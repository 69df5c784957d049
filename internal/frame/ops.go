package frame

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Interpolation selects the resize kernel
type Interpolation int

// Interpolation kernels
const (
	Bilinear Interpolation = iota
	Bicubic
)

func saturate(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Crop returns a copy of the w x h window at (x, y), clamped to the frame
func Crop(f Frame, x, y, w, h int) Frame {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x+w > f.Width {
		w = f.Width - x
	}
	if y+h > f.Height {
		h = f.Height - y
	}
	if w <= 0 || h <= 0 {
		return Frame{}
	}

	out := New(w, h)
	rowBytes := w * 3
	for row := 0; row < h; row++ {
		src := ((y+row)*f.Width + x) * 3
		copy(out.Pix[row*rowBytes:(row+1)*rowBytes], f.Pix[src:src+rowBytes])
	}
	return out
}

// Resize scales the frame to w x h
func Resize(f Frame, w, h int, interp Interpolation) Frame {
	if w == f.Width && h == f.Height {
		return f.Clone()
	}

	var scaler draw.Scaler = draw.BiLinear
	if interp == Bicubic {
		scaler = draw.CatmullRom
	}

	src := f.ToRGBA()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return FromImage(dst)
}

// GaussianKernel returns a normalised 1-D Gaussian kernel
func GaussianKernel(size int, sigma float64) []float64 {
	if size%2 == 0 {
		size++
	}
	k := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// reflect101 maps an out-of-range index back inside [0, n) mirroring
// around the edge pixel without repeating it
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// GaussianBlur applies a separable Gaussian blur with reflected borders
func GaussianBlur(f Frame, size int, sigma float64) Frame {
	k := GaussianKernel(size, sigma)
	half := len(k) / 2
	w, h := f.Width, f.Height

	tmp := make([]float64, len(f.Pix))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sb, sg, sr float64
			for i, kv := range k {
				xx := reflect101(x+i-half, w)
				p := (y*w + xx) * 3
				sb += kv * float64(f.Pix[p])
				sg += kv * float64(f.Pix[p+1])
				sr += kv * float64(f.Pix[p+2])
			}
			o := (y*w + x) * 3
			tmp[o], tmp[o+1], tmp[o+2] = sb, sg, sr
		}
	}

	out := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sb, sg, sr float64
			for i, kv := range k {
				yy := reflect101(y+i-half, h)
				p := (yy*w + x) * 3
				sb += kv * tmp[p]
				sg += kv * tmp[p+1]
				sr += kv * tmp[p+2]
			}
			o := (y*w + x) * 3
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = saturate(sb), saturate(sg), saturate(sr)
		}
	}
	return out
}

// AddWeighted computes saturate(a*alpha + b*beta + gamma) per channel.
// Frames must share dimensions.
func AddWeighted(a Frame, alpha float64, b Frame, beta, gamma float64) Frame {
	out := New(a.Width, a.Height)
	for i := range out.Pix {
		out.Pix[i] = saturate(float64(a.Pix[i])*alpha + float64(b.Pix[i])*beta + gamma)
	}
	return out
}

// ConvertScaleAbs computes saturate(|alpha*p + beta|) per channel
func ConvertScaleAbs(f Frame, alpha, beta float64) Frame {
	out := New(f.Width, f.Height)
	for i, p := range f.Pix {
		out.Pix[i] = saturate(math.Abs(alpha*float64(p) + beta))
	}
	return out
}

// ShiftChannels adds a saturating offset to each of the B, G, R channels
func ShiftChannels(f Frame, db, dg, dr int) Frame {
	out := New(f.Width, f.Height)
	for i := 0; i < len(f.Pix); i += 3 {
		out.Pix[i] = saturate(float64(int(f.Pix[i]) + db))
		out.Pix[i+1] = saturate(float64(int(f.Pix[i+1]) + dg))
		out.Pix[i+2] = saturate(float64(int(f.Pix[i+2]) + dr))
	}
	return out
}

// Unsharp parameters shared by the sharpening transforms
const (
	SharpenKernel = 9
	SharpenSigma  = 10.0
)

// Sharpen applies an unsharp mask: 1.5*f - 0.5*blur(f)
func Sharpen(f Frame) Frame {
	blurred := GaussianBlur(f, SharpenKernel, SharpenSigma)
	return AddWeighted(f, 1.5, blurred, -0.5, 0)
}
