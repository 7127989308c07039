package gesture

import (
	"math"

	"github.com/ayusman/thumbscroll/internal/detector"
)

// ThumbMargin is the vertical band, in normalized units, added to the thumb
// base before comparing it with the thumb tip.
const ThumbMargin = 0.05

// fingers pairs each non-thumb fingertip with its middle (PIP) joint.
var fingers = [4][2]int{
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// Classify maps one hand to a gesture label. It is pure and deterministic.
//
// A finger counts as extended when its tip is horizontally farther from the
// wrist than its middle joint. The thumb is vertical when the tip-to-base
// vertical distance exceeds the horizontal one. A vertical thumb with no
// extended finger is Like when the tip is above base+ThumbMargin and Dislike
// when it is below; everything else is None.
func Classify(hand *detector.HandLandmarks) Label {
	if hand == nil {
		return None
	}

	for _, f := range fingers {
		if fingerExtended(hand, f[0], f[1]) {
			return None
		}
	}

	if !thumbVertical(hand) {
		return None
	}

	tip := hand.Points[detector.ThumbTip].Y
	base := hand.Points[detector.ThumbMCP].Y
	switch {
	case tip < base+ThumbMargin:
		return Like
	case tip > base+ThumbMargin:
		return Dislike
	default:
		return None
	}
}

func fingerExtended(hand *detector.HandLandmarks, tipIdx, pipIdx int) bool {
	wrist := hand.Points[detector.Wrist]
	tipToWrist := math.Abs(hand.Points[tipIdx].X - wrist.X)
	pipToWrist := math.Abs(hand.Points[pipIdx].X - wrist.X)
	return tipToWrist > pipToWrist
}

func thumbVertical(hand *detector.HandLandmarks) bool {
	tip := hand.Points[detector.ThumbTip]
	base := hand.Points[detector.ThumbMCP]
	return math.Abs(tip.Y-base.Y) > math.Abs(tip.X-base.X)
}
