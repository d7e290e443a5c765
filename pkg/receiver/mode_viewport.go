package receiver

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/camera"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/wire"
)

// Host speed settings are tuned around 1.0; these bring them into the
// units the transforms want (world units per tick, degrees per tick).
const (
	translateSpeedScale = 0.1
	rotateSpeedScale    = 0.5
)

// viewportAxes is one tick's worth of mapped, multiplied viewport input.
type viewportAxes struct {
	tx, ty, tz float64
	rx, ry, rz float64
}

func resolveViewportAxes(smp wire.Sample, mapping map[string]string, mul map[string]float64) viewportAxes {
	return viewportAxes{
		tx: mappedAxis(smp, mapping, "translate_x") * multiplier(mul, "translate_x"),
		ty: mappedAxis(smp, mapping, "translate_y") * multiplier(mul, "translate_y"),
		tz: mappedAxis(smp, mapping, "translate_z") * multiplier(mul, "translate_z"),
		rx: mappedAxis(smp, mapping, "rotate_x") * multiplier(mul, "rotate_x"),
		ry: mappedAxis(smp, mapping, "rotate_y") * multiplier(mul, "rotate_y"),
		rz: mappedAxis(smp, mapping, "rotate_z") * multiplier(mul, "rotate_z"),
	}
}

func (a viewportAxes) moving() bool {
	for _, v := range [...]float64{a.tx, a.ty, a.tz, a.rx, a.ry, a.rz} {
		if math.Abs(v) > 1e-6 {
			return true
		}
	}
	return false
}

// applyViewport orbits the camera: translation moves it along its own
// local axes, rotation turns it about the pivot the host already uses.
// The local Z component doubles as dolly, since the camera looks down
// its own -Z.
func (s *Session) applyViewport(smp wire.Sample, steps int) error {
	vp, err := s.host.Viewport()
	if err != nil {
		return err
	}

	axes := resolveViewportAxes(smp, s.cfg.ViewportAxisMapping, s.cfg.ViewportAxisMultiplier)
	tSpeed := s.cfg.ViewportSpeed.Translate * translateSpeedScale * float64(steps)
	rSpeed := s.cfg.ViewportSpeed.Rotate * rotateSpeedScale * float64(steps)

	cam := vp.Camera()
	cam.Translation = cam.Translation.Add(mgl64.Vec3{
		axes.tx * tSpeed,
		axes.ty * tSpeed,
		axes.tz * tSpeed,
	})

	c2w := s.viewportOrient.toWorld(cam.Rotation, vp)
	delta := camera.LocalDelta(axes.rx*rSpeed, axes.ry*rSpeed, axes.rz*rSpeed)
	cam.Rotation = s.viewportOrient.fromWorld(c2w.Mul3(delta))

	vp.SetCamera(cam)
	if axes.moving() {
		s.maybeRefreshHover()
	}
	return nil
}
