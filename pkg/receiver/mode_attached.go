package receiver

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/camera"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/wire"
)

// fallbackForward stands in for the camera heading while it looks
// straight up or down, where the flattened forward degenerates.
var fallbackForward = mgl64.Vec3{0, 0, -1}

// applyAttached keeps the scene object riding in front of the camera on
// a yaw-only spring arm: fixed horizontal distance, camera height, and
// turned so the same face points back at the camera. Device rotation is
// folded into a held offset expressed in yaw-local space, so the offset
// sticks to the object through camera turns instead of unwinding.
//
// Runs every tick while the mode is active, including ticks with no
// sample, so the object follows pure camera movement too.
func (s *Session) applyAttached(smp wire.Sample, steps int) error {
	obj, err := s.host.SceneObject(false)
	if err != nil {
		return err
	}
	vp, err := s.host.Viewport()
	if err != nil {
		return err
	}
	pos, forward, ok := vp.Pose()
	if !ok || forward.Len() < 1e-8 {
		return nil
	}
	forward = forward.Normalize()

	// Horizontal-only forward keeps the object at camera height rather
	// than diving wherever the camera looks.
	flat := mgl64.Vec3{forward.X(), 0, forward.Z()}
	if flat.Len() < 1e-6 {
		flat = fallbackForward
	} else {
		flat = flat.Normalize()
		s.attached.yawDeg = camera.FlatYawDeg(forward)
	}
	objPos := mgl64.Vec3{
		pos.X() + flat.X()*attachedDistance,
		pos.Y(),
		pos.Z() + flat.Z()*attachedDistance,
	}

	qYaw := camera.YawQuat(s.attached.yawDeg)

	if delta, ok := s.relativeDelta(smp, steps,
		s.cfg.CargoAttachedRotateSpeed,
		s.cfg.CargoAttachedAxisMapping,
		s.cfg.CargoAttachedAxisMultiplier); ok {
		// Re-express the world delta in yaw-local space before folding
		// it into the held rotation.
		local := qYaw.Inverse().Mul(delta).Mul(qYaw).Normalize()
		if !s.attached.haveHeld {
			s.attached.held = mgl64.QuatIdent()
			s.attached.haveHeld = true
		}
		s.attached.held = local.Mul(s.attached.held).Normalize()
	}

	held := mgl64.QuatIdent()
	if s.attached.haveHeld {
		held = s.attached.held
	}
	world := qYaw.Mul(held).Normalize()

	scale := s.attached.scale
	if !s.attached.haveHeld || scale.Len() == 0 {
		_, _, scale = camera.Decompose(obj.WorldTransform())
	}
	obj.SetWorldTransform(camera.Compose(objPos, world, scale))
	return nil
}

// SetupScene finds or creates the controlled object, parks it in front
// of the camera, and remembers its transform as the reset baseline.
func (s *Session) SetupScene() error {
	obj, err := s.host.SceneObject(true)
	if err != nil {
		return err
	}

	if vp, err := s.host.Viewport(); err == nil {
		if pos, forward, ok := vp.Pose(); ok && forward.Len() > 1e-8 {
			_, _, sc := camera.Decompose(obj.WorldTransform())
			front := pos.Add(forward.Normalize().Mul(attachedDistance))
			obj.SetWorldTransform(camera.Compose(front, mgl64.QuatIdent(), sc))
		}
	}

	s.initial = obj.WorldTransform()
	s.haveInitial = true
	return nil
}

// ResetObject re-places the object in front of the current camera with
// zero rotation, keeping its scale. Without a viewport it falls back to
// the transform captured by SetupScene.
func (s *Session) ResetObject() error {
	obj, err := s.host.SceneObject(false)
	if err != nil {
		return err
	}

	vp, err := s.host.Viewport()
	if err != nil {
		if s.haveInitial {
			obj.SetWorldTransform(s.initial)
			return nil
		}
		return err
	}
	pos, forward, ok := vp.Pose()
	if !ok || forward.Len() < 1e-8 {
		return nil
	}

	_, _, sc := camera.Decompose(obj.WorldTransform())
	front := pos.Add(forward.Normalize().Mul(attachedDistance))
	obj.SetWorldTransform(camera.Compose(front, mgl64.QuatIdent(), sc))
	return nil
}

// Grab starts attached-mode tracking from the object's current state:
// it snaps the object in front of the camera, captures its scale, and
// keeps its orientation as the held rotation, minus the part that is
// just yaw relative to the camera heading. Grabbing an object that
// already faces the camera therefore holds nothing.
func (s *Session) Grab() error {
	obj, err := s.host.SceneObject(false)
	if err != nil {
		return err
	}
	vp, err := s.host.Viewport()
	if err != nil {
		return err
	}
	pos, forward, ok := vp.Pose()
	if !ok || forward.Len() < 1e-8 {
		return ErrNoPane
	}
	forward = forward.Normalize()

	flat := mgl64.Vec3{forward.X(), 0, forward.Z()}
	if flat.Len() >= 1e-6 {
		s.attached.yawDeg = camera.FlatYawDeg(forward)
	}
	qYaw := camera.YawQuat(s.attached.yawDeg)

	_, rot, sc := camera.Decompose(obj.WorldTransform())

	rel := qYaw.Inverse().Mul(rot).Normalize()
	relYaw := camera.FlatYawDeg(rel.Rotate(fallbackForward))
	s.attached.held = camera.YawQuat(-relYaw).Mul(rel).Normalize()
	s.attached.haveHeld = true
	s.attached.scale = sc

	front := pos.Add(forward.Mul(attachedDistance))
	obj.SetWorldTransform(camera.Compose(front, rot, sc))
	return nil
}

// Release drops the held rotation and scale; the next grab starts
// fresh.
func (s *Session) Release() {
	s.attached.held = mgl64.QuatIdent()
	s.attached.haveHeld = false
	s.attached.scale = mgl64.Vec3{}
}
