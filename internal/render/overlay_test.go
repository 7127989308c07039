package render

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/thumbscroll/internal/detector"
)

func TestToPixel(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want image.Point
	}{
		{name: "origin", x: 0, y: 0, want: image.Pt(0, 0)},
		{name: "center", x: 0.5, y: 0.5, want: image.Pt(320, 240)},
		{name: "far corner", x: 1, y: 1, want: image.Pt(640, 480)},
		{name: "negative clamps to zero", x: -0.2, y: -3, want: image.Pt(0, 0)},
		{name: "overflow clamps to edge", x: 1.7, y: 1.01, want: image.Pt(640, 480)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToPixel(tt.x, tt.y, 640, 480); got != tt.want {
				t.Errorf("ToPixel(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestHandConnections(t *testing.T) {
	if len(HandConnections) != 23 {
		t.Fatalf("len(HandConnections) = %d, want 23", len(HandConnections))
	}

	seen := make(map[[2]int]bool)
	for _, c := range HandConnections {
		for _, idx := range c {
			if idx < 0 || idx >= detector.NumLandmarks {
				t.Errorf("connection %v references landmark %d out of range", c, idx)
			}
		}
		if seen[c] {
			t.Errorf("duplicate connection %v", c)
		}
		seen[c] = true
	}
}

func TestStatusText(t *testing.T) {
	if got, want := StatusText(1650, 2), "Time: 1650ms | Hands: 2"; got != want {
		t.Errorf("StatusText() = %q, want %q", got, want)
	}
	if got, want := StatusText(0, 0), "Time: 0ms | Hands: 0"; got != want {
		t.Errorf("StatusText() = %q, want %q", got, want)
	}
}

func newGrayFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 480, 640, gocv.MatTypeCV8UC3)
}

func TestDrawHand_MarksJoints(t *testing.T) {
	img := newGrayFrame()
	defer img.Close()

	hand := detector.ThumbsUpLandmarks()
	DrawHand(&img, &hand)

	wrist := ToPixel(hand.Points[detector.Wrist].X, hand.Points[detector.Wrist].Y, img.Cols(), img.Rows())
	px := img.GetVecbAt(wrist.Y, wrist.X)
	for i, v := range px {
		if v != 0 {
			t.Errorf("wrist pixel channel %d = %d, want 0 (black joint)", i, v)
		}
	}
}

func TestDrawHand_OffFrameJointsNotClamped(t *testing.T) {
	img := newGrayFrame()
	defer img.Close()

	var hand detector.HandLandmarks
	for i := range hand.Points {
		hand.Points[i] = detector.Point3D{X: 1.5, Y: 0.5}
	}
	DrawHand(&img, &hand)

	// The skeleton collapses onto the right edge; the joint markers sit
	// beyond it and must not paint the edge black.
	if got := img.GetVecbAt(img.Rows()/2, img.Cols()-1)[0]; got == 0 {
		t.Error("edge pixel is black, joint marker was clamped into the frame")
	}
	if got := img.GetVecbAt(img.Rows()/2, img.Cols()-4)[0]; got == 0 {
		t.Error("pixel near edge is black, joint marker was clamped into the frame")
	}
}

func TestDrawHand_NilInputs(t *testing.T) {
	hand := detector.OpenPalmLandmarks()
	DrawHand(nil, &hand)

	img := newGrayFrame()
	defer img.Close()
	DrawHand(&img, nil)

	if got := img.GetVecbAt(0, 0)[0]; got != 128 {
		t.Errorf("frame modified without a hand: pixel = %d", got)
	}
}

func TestDrawStatus_PaintsBox(t *testing.T) {
	img := newGrayFrame()
	defer img.Close()

	DrawStatus(&img, StatusText(33, 1))

	// The box starts at (10,10); its corner stays white.
	px := img.GetVecbAt(11, 11)
	for i, v := range px {
		if v != 255 {
			t.Errorf("status box channel %d = %d, want 255", i, v)
		}
	}
}

func TestHeadless(t *testing.T) {
	var d Display = Headless{}
	img := newGrayFrame()
	defer img.Close()

	d.Show(&img)
	if key := d.WaitKey(1); key != -1 {
		t.Errorf("WaitKey() = %d, want -1", key)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
