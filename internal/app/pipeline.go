package app

import (
	"context"
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/thumbscroll/internal/capture"
	"github.com/ayusman/thumbscroll/internal/detector"
	"github.com/ayusman/thumbscroll/internal/render"
	"github.com/ayusman/thumbscroll/internal/server"
)

// Run opens the camera and drives the render loop until the camera stops
// delivering frames, the quit key is pressed or ctx is canceled. It closes
// the App before returning.
//
// Render loop:
// 1. Read a frame; a failed read ends the loop
// 2. Mirror it horizontally
// 3. Submit it to the landmark source without waiting for the result
// 4. Show the next annotated frame, if one is ready
// 5. Poll the display for the quit key
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.logger.Info("detection pipeline started",
		"enabled", a.Enabled(),
		"timestamp_step", a.config.TimestampStep,
	)

	step := a.config.TimestampStep.Milliseconds()
	var timestampMs int64

	for a.camera.IsOpen() {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrNoMoreFrames) {
				a.logger.Info("camera has no more frames")
			} else {
				a.logger.Warn("read frame failed, stopping", "error", err)
			}
			return nil
		}

		if err := gocv.Flip(*frame, frame, 1); err != nil {
			a.logger.Debug("mirror frame", "error", err)
		}

		// The landmarker owns the frame from here on.
		if _, err := a.landmarker.DetectAsync(frame, timestampMs); err != nil {
			a.logger.Debug("submit frame", "timestamp_ms", timestampMs, "error", err)
		}

		if img, ok := a.relay.Pop(); ok {
			a.display.Show(img)
			img.Close()
		}

		if a.display.WaitKey(1) == render.QuitKey {
			a.logger.Info("quit key pressed")
			return nil
		}

		timestampMs += step
	}
	return nil
}

func (a *App) processResults() {
	defer close(a.resultsDone)

	for res := range a.landmarker.Results() {
		a.handleResult(res)
	}
}

// handleResult classifies one detection, updates the session and queues the
// annotated image for display.
func (a *App) handleResult(res detector.Result) {
	a.frames.Add(1)
	a.lastTS.Store(res.TimestampMs)
	a.hands.Store(int64(len(res.Hands)))

	a.logDetection(res)

	hand := detector.LastHand(res.Hands)
	label := a.classify(hand)

	if a.config.Landmarks != nil {
		a.config.Landmarks.Broadcast(server.LandmarksMessage{
			TimestampMs: res.TimestampMs,
			Hands:       res.Hands,
			Label:       label,
		})
	}

	if res.Image == nil {
		return
	}

	render.DrawHand(res.Image, hand)
	render.DrawStatus(res.Image, render.StatusText(res.TimestampMs, len(res.Hands)))

	if a.config.Frames != nil {
		if err := a.config.Frames.Update(res.Image); err != nil {
			a.logger.Debug("update stream frame", "error", err)
		}
	}

	// Dropped when the display is behind; the relay releases it.
	a.relay.Push(res.Image)
}

// logDetection reports the first failure of a run at Warn and the rest at
// Debug, then notes the recovery once detection succeeds again.
func (a *App) logDetection(res detector.Result) {
	if res.Err == nil {
		if a.failedDetections > 0 {
			a.logger.Info("hand detection recovered", "failed_frames", a.failedDetections)
			a.failedDetections = 0
		}
		return
	}

	a.failedDetections++
	if a.failedDetections == 1 {
		a.logger.Warn("hand detection failed", "timestamp_ms", res.TimestampMs, "error", res.Err)
		return
	}
	a.logger.Debug("hand detection failed", "timestamp_ms", res.TimestampMs, "error", res.Err)
}
