package media

import (
	"image"
	"math"
)

// FrameStats holds cheap aesthetic measurements of one frame, each in [0,1]
type FrameStats struct {
	Colorfulness float64 `json:"colorfulness"`
	Contrast     float64 `json:"contrast"`
	Brightness   float64 `json:"brightness"`
}

// measureFrame computes colour spread, luminance contrast and exposure in a
// single pass over the image.
func measureFrame(img image.Image) FrameStats {
	bounds := img.Bounds()
	pixels := float64(bounds.Dx() * bounds.Dy())
	if pixels == 0 {
		return FrameStats{}
	}

	var rSum, gSum, bSum, lumSum, lumSqSum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			rf, gf, bf := float64(r>>8), float64(g>>8), float64(b>>8)
			rSum += rf
			gSum += gf
			bSum += bf

			lum := 0.299*rf + 0.587*gf + 0.114*bf
			lumSum += lum
			lumSqSum += lum * lum
		}
	}

	rMean, gMean, bMean := rSum/pixels, gSum/pixels, bSum/pixels

	// Higher channel spread = more colorful
	spread := math.Abs(rMean-gMean) + math.Abs(gMean-bMean) + math.Abs(bMean-rMean)

	mean := lumSum / pixels
	variance := math.Max(0, (lumSqSum/pixels)-(mean*mean))

	return FrameStats{
		Colorfulness: math.Min(1.0, spread/255.0),
		// typical stddev 0-60
		Contrast: math.Min(1.0, math.Sqrt(variance)/60.0),
		// moderate exposure around 128 scores best
		Brightness: 1.0 - math.Min(1.0, math.Abs(mean-128.0)/128.0),
	}
}
