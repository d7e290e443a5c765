package receiver

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/camera"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/wire"
)

// applyFly moves the camera first-person style: the same camera-local
// delta as orbit mode, but rotation happens about the camera's own
// center instead of the pivot. The host keeps storing the camera as an
// offset from the pivot, so after rotating we solve for the offset that
// puts the camera back where it was:
//
//	pos  = pivot + C2W·trans
//	pos' = pos + C2W'·δ
//	trans' = C2W'ᵀ·(pos' − pivot)
func (s *Session) applyFly(smp wire.Sample, steps int) error {
	vp, err := s.host.Viewport()
	if err != nil {
		return err
	}

	axes := resolveViewportAxes(smp, s.cfg.FPSAxisMapping, s.cfg.FPSAxisMultiplier)
	if !axes.moving() {
		// An all-"none" mapping means fly mode is parked; leave the
		// camera untouched rather than renormalizing it every tick.
		return nil
	}

	tSpeed := s.cfg.FPSSpeed.Translate * translateSpeedScale * float64(steps)
	rSpeed := s.cfg.FPSSpeed.Rotate * rotateSpeedScale * float64(steps)

	cam := vp.Camera()
	c2w := s.viewportOrient.toWorld(cam.Rotation, vp)
	pos := cam.Pivot.Add(c2w.Mul3x1(cam.Translation))

	delta := camera.LocalDelta(axes.rx*rSpeed, axes.ry*rSpeed, axes.rz*rSpeed)
	newC2W := c2w.Mul3(delta)

	local := mgl64.Vec3{axes.tx * tSpeed, axes.ty * tSpeed, axes.tz * tSpeed}
	newPos := pos.Add(newC2W.Mul3x1(local))

	cam.Translation = newC2W.Transpose().Mul3x1(newPos.Sub(cam.Pivot))
	cam.Rotation = s.viewportOrient.fromWorld(newC2W)

	vp.SetCamera(cam)
	s.maybeRefreshHover()
	return nil
}
