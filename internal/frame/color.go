package frame

// HueBins is the number of 8-bit hue levels (OpenCV convention, 0-179)
const HueBins = 180

// Luminance returns 0.299R + 0.587G + 0.114B for one pixel
func Luminance(b, g, r uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// MeanLuminance returns the grayscale mean of the frame
func MeanLuminance(f Frame) float64 {
	n := f.Width * f.Height
	if n == 0 || len(f.Pix) < n*3 {
		return 0
	}
	var sum float64
	for i := 0; i < n*3; i += 3 {
		sum += Luminance(f.Pix[i], f.Pix[i+1], f.Pix[i+2])
	}
	return sum / float64(n)
}

// Hue returns the 8-bit hue of a pixel in [0, 180). Gray pixels have hue 0.
func Hue(b, g, r uint8) int {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxV := rf
	if gf > maxV {
		maxV = gf
	}
	if bf > maxV {
		maxV = bf
	}
	minV := rf
	if gf < minV {
		minV = gf
	}
	if bf < minV {
		minV = bf
	}

	delta := maxV - minV
	if delta == 0 {
		return 0
	}

	var h float64
	switch maxV {
	case rf:
		h = 60 * (gf - bf) / delta
	case gf:
		h = 120 + 60*(bf-rf)/delta
	default:
		h = 240 + 60*(rf-gf)/delta
	}
	if h < 0 {
		h += 360
	}
	return int(h/2) % HueBins
}

// HueHistogram returns a 180-bin hue histogram min-max normalised to [0, 1]
func HueHistogram(f Frame) []float64 {
	hist := make([]float64, HueBins)
	for i := 0; i+2 < len(f.Pix); i += 3 {
		hist[Hue(f.Pix[i], f.Pix[i+1], f.Pix[i+2])]++
	}

	minV, maxV := hist[0], hist[0]
	for _, v := range hist {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	span := maxV - minV
	for i := range hist {
		if span == 0 {
			hist[i] = 0
			continue
		}
		hist[i] = (hist[i] - minV) / span
	}
	return hist
}
