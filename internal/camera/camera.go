// Package camera holds the rotation math shared by the receiver modes.
//
// Everything is column-vector convention: a camera-to-world rotation has
// the camera basis as its columns and the camera looks down local -Z.
// Hosts that store transforms row-major hand them over transposed, and
// the calibration check below sorts out which way a given matrix went in.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// minAngleDeg is the noise floor for relative deltas. Inputs where every
// angle sits below it produce no rotation at all.
const minAngleDeg = 0.001

func maxAbsDiff(a, b mgl64.Mat3) float64 {
	var max float64
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > max {
			max = d
		}
	}
	return max
}

// CameraToWorld reports whether r is a camera-to-world rotation, judged
// against a reference rotation known to be camera-to-world. r wins as-is
// when it matches the reference at least as closely as its transpose
// does, so an ambiguous (symmetric) matrix counts as camera-to-world.
func CameraToWorld(r, ref mgl64.Mat3) bool {
	return maxAbsDiff(r, ref) <= maxAbsDiff(r.Transpose(), ref)
}

// LocalDelta builds the camera-local rotation for one orbit or fly step,
// applied as C2W' = C2W * delta. Roll turns first (negated, about Z),
// then pitch about X, then yaw about Y. Angles are degrees.
func LocalDelta(pitchDeg, yawDeg, rollDeg float64) mgl64.Mat3 {
	y := mgl64.Rotate3DY(mgl64.DegToRad(yawDeg))
	x := mgl64.Rotate3DX(mgl64.DegToRad(pitchDeg))
	z := mgl64.Rotate3DZ(mgl64.DegToRad(-rollDeg))
	return y.Mul3(x).Mul3(z)
}

// RelativeDelta builds a world-space rotation applying the given angles
// about the camera's own right, up, and forward axes. The bool is false
// when every angle is below the noise floor and nothing should move.
func RelativeDelta(c2w mgl64.Mat3, pitchDeg, yawDeg, rollDeg float64) (mgl64.Quat, bool) {
	if math.Abs(pitchDeg) < minAngleDeg &&
		math.Abs(yawDeg) < minAngleDeg &&
		math.Abs(rollDeg) < minAngleDeg {
		return mgl64.QuatIdent(), false
	}

	right := c2w.Col(0).Normalize()
	up := c2w.Col(1).Normalize()
	forward := c2w.Col(2).Mul(-1).Normalize()

	qp := mgl64.QuatRotate(mgl64.DegToRad(pitchDeg), right)
	qy := mgl64.QuatRotate(mgl64.DegToRad(yawDeg), up)
	qr := mgl64.QuatRotate(mgl64.DegToRad(rollDeg), forward)

	// Yaw first, then pitch, then roll.
	return qr.Mul(qp).Mul(qy).Normalize(), true
}

// FlatYawDeg returns the heading of forward projected onto the ground
// plane, in degrees about +Y, such that YawQuat(FlatYawDeg(f)) turns
// (0,0,-1) toward f. A vertical forward has no heading and yields zero.
func FlatYawDeg(forward mgl64.Vec3) float64 {
	x, z := forward.X(), forward.Z()
	if x*x+z*z < 1e-12 {
		return 0
	}
	return mgl64.RadToDeg(math.Atan2(-x, -z))
}

// YawQuat is the rotation about +Y by the given degrees.
func YawQuat(yawDeg float64) mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(yawDeg), mgl64.Vec3{0, 1, 0})
}

// Decompose splits a world transform into translation, rotation, and
// per-axis scale. Degenerate (near-zero) scale axes come back as 1 so the
// rotation stays usable.
func Decompose(m mgl64.Mat4) (mgl64.Vec3, mgl64.Quat, mgl64.Vec3) {
	t := m.Col(3).Vec3()

	cols := [3]mgl64.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	var s mgl64.Vec3
	for i, c := range cols {
		l := c.Len()
		if l < 1e-12 {
			s[i] = 1
			continue
		}
		s[i] = l
		cols[i] = c.Mul(1 / l)
	}

	rot := mgl64.Mat3FromCols(cols[0], cols[1], cols[2])
	return t, mgl64.Mat4ToQuat(rot.Mat4()).Normalize(), s
}

// Compose rebuilds a world transform from translation, rotation, and
// scale, with scale applied first.
func Compose(t mgl64.Vec3, r mgl64.Quat, s mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(t.X(), t.Y(), t.Z()).
		Mul4(r.Mat4()).
		Mul4(mgl64.Scale3D(s.X(), s.Y(), s.Z()))
}
