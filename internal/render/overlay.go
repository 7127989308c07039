// Package render draws the hand skeleton overlay and shows annotated frames.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/thumbscroll/internal/detector"
)

// HandConnections are the skeleton edges drawn between landmarks.
var HandConnections = [][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 4},
	{0, 5}, {5, 6}, {6, 7}, {7, 8},
	{0, 9}, {9, 10}, {10, 11}, {11, 12},
	{0, 13}, {13, 14}, {14, 15}, {15, 16},
	{0, 17}, {17, 18}, {18, 19}, {19, 20},
	// palm
	{5, 9}, {9, 13}, {13, 17},
}

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	black = color.RGBA{A: 0}
)

const (
	lineThickness = 2
	jointRadius   = 5
	fontScale     = 0.5
	textThickness = 2
)

// ToPixel clamps normalized coordinates to [0,1] and scales them to a w×h image.
func ToPixel(x, y float64, w, h int) image.Point {
	return image.Point{
		X: int(clamp01(x) * float64(w)),
		Y: int(clamp01(y) * float64(h)),
	}
}

// scale maps normalized coordinates onto a w×h image without clamping.
// Points outside [0,1] land off the image.
func scale(x, y float64, w, h int) image.Point {
	return image.Point{X: int(x * float64(w)), Y: int(y * float64(h))}
}

// DrawHand draws the skeleton lines and joint markers of hand onto img.
// Line endpoints are clamped to the image; joints are not, so an
// out-of-frame joint is simply not visible.
func DrawHand(img *gocv.Mat, hand *detector.HandLandmarks) {
	if img == nil || img.Empty() || hand == nil {
		return
	}
	w, h := img.Cols(), img.Rows()

	for _, c := range HandConnections {
		start := hand.Points[c[0]]
		end := hand.Points[c[1]]
		gocv.Line(img, ToPixel(start.X, start.Y, w, h), ToPixel(end.X, end.Y, w, h), white, lineThickness)
	}

	for _, p := range hand.Points {
		gocv.Circle(img, scale(p.X, p.Y, w, h), jointRadius, black, -1)
	}
}

// StatusText formats the per-frame status line.
func StatusText(timestampMs int64, hands int) string {
	return fmt.Sprintf("Time: %dms | Hands: %d", timestampMs, hands)
}

// DrawStatus draws text in black on a white box at the top-left corner.
func DrawStatus(img *gocv.Mat, text string) {
	if img == nil || img.Empty() {
		return
	}
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, fontScale, textThickness)
	box := image.Rect(10, 10, 15+size.X, 15+size.Y)
	gocv.Rectangle(img, box, white, -1)
	gocv.PutText(img, text, image.Pt(15, 15+size.Y), gocv.FontHersheySimplex, fontScale, black, textThickness)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
