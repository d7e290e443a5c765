package receiver

import (
	"math"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/wire"
)

// Zoom inputs below this magnitude are treated as "not zooming" so the
// view does not creep while panning.
const zoomThreshold = 0.01

// Per-tick zoom factor clamp. Keeps a hard shove from blowing the view
// out in a single tick no matter the configured speed.
const (
	zoomStepMin = 0.95
	zoomStepMax = 1.05
)

// applyNetwork pans and zooms a node-graph editor. The editor argument
// is the auto-mode-switch pane under the cursor; nil means use the
// frontmost editor.
//
// Pan distance is proportional to the visible width on both axes (a
// vertically squashed editor pans as fast as a wide one), scaled by
// speed, the per-axis multiplier, and steps. Zoom is multiplicative:
// the per-step factor is clamped, then raised to the steps power.
func (s *Session) applyNetwork(smp wire.Sample, steps int, editor NetworkEditor) error {
	if editor == nil {
		var err error
		editor, err = s.host.NetworkEditor()
		if err != nil {
			return err
		}
	}

	mapping := s.cfg.ActiveMapping()
	panH := mappedAxis(smp, mapping, "pan_horizontal")
	panV := mappedAxis(smp, mapping, "pan_vertical")
	zoom := mappedAxis(smp, mapping, "zoom")

	bounds := editor.VisibleBounds()
	cx, cy := bounds.Center()
	w, h := bounds.Size()

	mul := s.cfg.NetworkAxisMultiplier
	dx := panH * w * s.cfg.NetworkSpeed.Pan * multiplier(mul, "pan_horizontal") * float64(steps)
	dy := panV * w * s.cfg.NetworkSpeed.Pan * multiplier(mul, "pan_vertical") * float64(steps)

	if math.Abs(zoom) > zoomThreshold {
		perStep := 1 - zoom*s.cfg.NetworkSpeed.Zoom*multiplier(mul, "zoom")
		perStep = math.Min(zoomStepMax, math.Max(zoomStepMin, perStep))
		factor := math.Pow(perStep, float64(steps))
		w *= factor
		h *= factor
	}

	editor.SetVisibleBounds(BoundsAround(cx+dx, cy+dy, w, h))
	return nil
}
