package receiver

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// Expected-absence sentinels. The host application not having a pane or
// object open is normal, so modes treat these as a quiet no-op rather
// than a failure.
var (
	// ErrNoPane means the requested editor or viewport is not open.
	ErrNoPane = errors.New("receiver: no pane open")
	// ErrNoObject means the controlled scene object does not exist.
	ErrNoObject = errors.New("receiver: no scene object")
)

// Host is the application surface the session drives. Every method is
// called from the session's tick, which the host runs on its UI thread;
// implementations need no locking of their own.
type Host interface {
	// PID is the host process id, sent to the reader in hello replies so
	// it can auto-exit when the host goes away.
	PID() int

	// NetworkEditor returns the frontmost node-graph editor, or ErrNoPane.
	NetworkEditor() (NetworkEditor, error)

	// NetworkEditorUnderCursor returns the node-graph editor the mouse
	// cursor is over, or ErrNoPane when the cursor is elsewhere. Only
	// consulted when auto mode switching is enabled.
	NetworkEditorUnderCursor() (NetworkEditor, error)

	// Viewport returns the active 3D viewport, or ErrNoPane.
	Viewport() (Viewport, error)

	// SceneObject returns the scene object the cargo modes manipulate.
	// With create set the host makes one if needed; otherwise a missing
	// object is ErrNoObject.
	SceneObject(create bool) (SceneObject, error)

	// Hotkeys returns the key injector for button bindings, or nil when
	// the host cannot inject keys.
	Hotkeys() Hotkeys

	// RefreshHover asks the host to re-evaluate hover highlighting under
	// the cursor after the camera moved. Best effort.
	RefreshHover()
}

// Bounds is the visible rectangle of a node-graph editor, in editor
// units.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// BoundsAround builds the rectangle of the given size centered on a
// point.
func BoundsAround(cx, cy, w, h float64) Bounds {
	return Bounds{
		MinX: cx - w/2, MinY: cy - h/2,
		MaxX: cx + w/2, MaxY: cy + h/2,
	}
}

// Center returns the rectangle's midpoint.
func (b Bounds) Center() (x, y float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Size returns the rectangle's width and height.
func (b Bounds) Size() (w, h float64) {
	return b.MaxX - b.MinX, b.MaxY - b.MinY
}

// NetworkEditor is a pannable, zoomable 2D node-graph view.
type NetworkEditor interface {
	VisibleBounds() Bounds
	SetVisibleBounds(Bounds)
}

// Camera is the viewport camera state as the host stores it: a
// camera-local translation away from a world-space pivot, plus the
// host's rotation matrix. Which way the rotation goes (camera-to-world
// or world-to-camera) varies by host version; the session calibrates
// that once against ViewRotation and converts as needed.
type Camera struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Mat3
	Pivot       mgl64.Vec3
}

// Viewport is the host's 3D view.
type Viewport interface {
	Camera() Camera
	SetCamera(Camera)

	// ViewRotation returns the current view's camera-to-world rotation
	// in column-vector convention, the reference the session calibrates
	// Camera().Rotation against. ok is false when the host cannot
	// produce it, in which case Camera().Rotation is taken at its word.
	ViewRotation() (ref mgl64.Mat3, ok bool)

	// Pose returns the camera's world position and unit forward vector.
	Pose() (pos, forward mgl64.Vec3, ok bool)
}

// SceneObject is a transformable object in the host's scene graph.
type SceneObject interface {
	WorldTransform() mgl64.Mat4
	SetWorldTransform(mgl64.Mat4)
}

// Hotkeys injects held key combos (for example "ctrl+shift+g") into the
// host. Press holds the combo down until the matching Release.
type Hotkeys interface {
	Press(combo string) error
	Release(combo string) error
}
