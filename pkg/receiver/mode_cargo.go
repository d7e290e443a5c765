package receiver

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/camera"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/wire"
)

// relativeDelta builds the world-space rotation for one tick of
// cargo-style input: angles about the camera's own right/up/forward
// axes, so "pitch" always tips the object away from the viewer no
// matter which way either of them faces. ok is false when no viewport
// is open or every angle sits below the noise floor.
func (s *Session) relativeDelta(smp wire.Sample, steps int, speed float64, mapping map[string]string, mul map[string]float64) (mgl64.Quat, bool) {
	vp, err := s.host.Viewport()
	if err != nil {
		return mgl64.QuatIdent(), false
	}

	c2w := s.cargoOrient.toWorld(vp.Camera().Rotation, vp)

	k := speed * float64(steps)
	pitch := mappedAxis(smp, mapping, "pitch") * multiplier(mul, "pitch") * k
	yaw := mappedAxis(smp, mapping, "yaw") * multiplier(mul, "yaw") * k
	roll := mappedAxis(smp, mapping, "roll") * multiplier(mul, "roll") * k

	return camera.RelativeDelta(c2w, pitch, yaw, roll)
}

// applyCargo turns the scene object by the camera-relative delta,
// keeping its position and scale.
func (s *Session) applyCargo(smp wire.Sample, steps int) error {
	obj, err := s.host.SceneObject(false)
	if err != nil {
		return err
	}

	delta, ok := s.relativeDelta(smp, steps, s.cfg.CargoSpeed.Rotate, s.cfg.CargoAxisMapping, s.cfg.CargoAxisMultiplier)
	if !ok {
		return nil
	}

	tr, rot, sc := camera.Decompose(obj.WorldTransform())
	obj.SetWorldTransform(camera.Compose(tr, delta.Mul(rot).Normalize(), sc))
	return nil
}
