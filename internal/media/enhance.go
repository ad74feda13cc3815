package media

import (
	"image"

	"gocv.io/x/gocv"
)

// Enhancer applies CLAHE contrast enhancement to the luminance channel only,
// leaving chrominance untouched so text edges gain contrast without color
// shifts.
type Enhancer struct {
	clipLimit float64
	tileGrid  int
}

// NewEnhancer builds an Enhancer with the given CLAHE parameters. Non-positive
// values fall back to conservative defaults.
func NewEnhancer(clipLimit float64, tileGridSize int) *Enhancer {
	if clipLimit <= 0 {
		clipLimit = 2.0
	}
	if tileGridSize <= 0 {
		tileGridSize = 8
	}
	return &Enhancer{clipLimit: clipLimit, tileGrid: tileGridSize}
}

// Apply enhances a BGR frame in place.
func (e *Enhancer) Apply(frame *gocv.Mat) error {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(*frame, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()

	clahe := gocv.NewCLAHEWithParams(e.clipLimit, image.Pt(e.tileGrid, e.tileGrid))
	defer clahe.Close()

	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(channels[0], &enhanced)
	enhanced.CopyTo(&channels[0])

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	gocv.CvtColor(merged, frame, gocv.ColorLabToBGR)
	return nil
}
