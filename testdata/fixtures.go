// Package testdata builds camera frames for pipeline tests.
package testdata

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Frames match the default camera resolution.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

// Frame returns a solid BGR frame of the default size.
func Frame(gray uint8) *gocv.Mat {
	v := float64(gray)
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), FrameHeight, FrameWidth, gocv.MatTypeCV8UC3)
	return &mat
}

// Sequence returns n frames of increasing brightness, so consecutive frames
// differ.
func Sequence(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		frames[i] = Frame(uint8(64 + (i*16)%128))
	}
	return frames
}

// Decode decodes an encoded image such as a JPEG from the preview stream.
func Decode(data []byte) (*gocv.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("decode frame: empty image")
	}
	return &mat, nil
}

// CloseAll releases frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
