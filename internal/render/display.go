package render

import "gocv.io/x/gocv"

// QuitKey is the key that ends the render loop.
const QuitKey = 'q'

// Display shows annotated frames and reports key presses.
type Display interface {
	Show(img *gocv.Mat)
	// WaitKey waits up to delayMs for a key press and returns its code, or -1.
	WaitKey(delayMs int) int
	Close() error
}

// Window is a Display backed by a native OpenCV window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

func (w *Window) Show(img *gocv.Mat) {
	if img == nil || img.Empty() {
		return
	}
	w.window.IMShow(*img)
}

func (w *Window) WaitKey(delayMs int) int {
	key := w.window.WaitKey(delayMs)
	if key < 0 {
		return -1
	}
	return key & 0xFF
}

func (w *Window) Close() error {
	return w.window.Close()
}

// Headless is a Display that shows nothing and never reports a key.
type Headless struct{}

func (Headless) Show(*gocv.Mat) {}

func (Headless) WaitKey(int) int { return -1 }

func (Headless) Close() error { return nil }
