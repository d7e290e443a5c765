package receiver

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/wire"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/config"
)

// memEditor is an in-memory node-graph pane.
type memEditor struct {
	bounds Bounds
	sets   int
}

func newMemEditor(cx, cy, w, h float64) *memEditor {
	return &memEditor{bounds: BoundsAround(cx, cy, w, h)}
}

func (e *memEditor) VisibleBounds() Bounds { return e.bounds }
func (e *memEditor) SetVisibleBounds(b Bounds) {
	e.bounds = b
	e.sets++
}

// memViewport stores the camera the way a host would, optionally in
// world-to-camera convention to exercise the calibration.
type memViewport struct {
	cam   Camera
	w2c   bool
	noRef bool
	sets  int
}

func newMemViewport() *memViewport {
	return &memViewport{cam: Camera{Rotation: mgl64.Ident3()}}
}

// c2w is the true camera-to-world rotation regardless of convention.
func (v *memViewport) c2w() mgl64.Mat3 {
	if v.w2c {
		return v.cam.Rotation.Transpose()
	}
	return v.cam.Rotation
}

func (v *memViewport) Camera() Camera { return v.cam }
func (v *memViewport) SetCamera(c Camera) {
	v.cam = c
	v.sets++
}

func (v *memViewport) ViewRotation() (mgl64.Mat3, bool) {
	if v.noRef {
		return mgl64.Mat3{}, false
	}
	return v.c2w(), true
}

func (v *memViewport) Pose() (mgl64.Vec3, mgl64.Vec3, bool) {
	c2w := v.c2w()
	pos := v.cam.Pivot.Add(c2w.Mul3x1(v.cam.Translation))
	return pos, c2w.Mul3x1(mgl64.Vec3{0, 0, -1}), true
}

// worldPos is the camera's world position, for assertions.
func (v *memViewport) worldPos() mgl64.Vec3 {
	pos, _, _ := v.Pose()
	return pos
}

// memObject is an in-memory scene object.
type memObject struct {
	m    mgl64.Mat4
	sets int
}

func newMemObject() *memObject { return &memObject{m: mgl64.Ident4()} }

func (o *memObject) WorldTransform() mgl64.Mat4 { return o.m }
func (o *memObject) SetWorldTransform(m mgl64.Mat4) {
	o.m = m
	o.sets++
}

// memHotkeys records hold/release calls in order.
type memHotkeys struct {
	events   []string
	held     map[string]int
	pressErr error
}

func newMemHotkeys() *memHotkeys { return &memHotkeys{held: make(map[string]int)} }

func (k *memHotkeys) Press(combo string) error {
	if k.pressErr != nil {
		return k.pressErr
	}
	k.events = append(k.events, "press "+combo)
	k.held[combo]++
	return nil
}

func (k *memHotkeys) Release(combo string) error {
	k.events = append(k.events, "release "+combo)
	k.held[combo]--
	return nil
}

// memHost wires the fakes together. Nil panes report expected absence.
type memHost struct {
	pid          int
	editor       *memEditor
	cursorEditor *memEditor
	viewport     *memViewport
	object       *memObject
	hotkeys      *memHotkeys
	hovers       int
}

func (h *memHost) PID() int {
	if h.pid == 0 {
		return 4242
	}
	return h.pid
}

func (h *memHost) NetworkEditor() (NetworkEditor, error) {
	if h.editor == nil {
		return nil, ErrNoPane
	}
	return h.editor, nil
}

func (h *memHost) NetworkEditorUnderCursor() (NetworkEditor, error) {
	if h.cursorEditor == nil {
		return nil, ErrNoPane
	}
	return h.cursorEditor, nil
}

func (h *memHost) Viewport() (Viewport, error) {
	if h.viewport == nil {
		return nil, ErrNoPane
	}
	return h.viewport, nil
}

func (h *memHost) SceneObject(create bool) (SceneObject, error) {
	if h.object == nil {
		if !create {
			return nil, ErrNoObject
		}
		h.object = newMemObject()
	}
	return h.object, nil
}

func (h *memHost) Hotkeys() Hotkeys {
	if h.hotkeys == nil {
		return nil
	}
	return h.hotkeys
}

func (h *memHost) RefreshHover() { h.hovers++ }

// newSession builds a session around the host on an ephemeral loopback
// port and returns a connected sender socket standing in for the
// reader.
func newSession(t *testing.T, host Host, cfg *config.Config) (*Session, *net.UDPConn) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Network.Port = 0

	s, err := Start(host, Options{
		Config:     cfg,
		ConfigPath: filepath.Join(t.TempDir(), "config.json"),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)

	sender, err := net.DialUDP("udp", nil, s.LocalAddr())
	if err != nil {
		t.Fatalf("dial session: %v", err)
	}
	t.Cleanup(func() { sender.Close() })
	return s, sender
}

// send marshals and ships one message to the session.
func send(t *testing.T, sender *net.UDPConn, m wire.Message) {
	t.Helper()
	b, err := wire.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := sender.Write(b); err != nil {
		t.Fatalf("send: %v", err)
	}
}

// settle gives loopback datagrams time to land in the socket buffer
// before the next tick drains it.
func settle() { time.Sleep(30 * time.Millisecond) }

// recvMessage reads and decodes one datagram from the sender socket.
func recvMessage(t *testing.T, sender *net.UDPConn) wire.Message {
	t.Helper()
	sender.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 4096)
	n, err := sender.Read(buf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	m, err := wire.Decode(buf[:n])
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return m
}

func vec3Close(t *testing.T, got, want mgl64.Vec3, what string) {
	t.Helper()
	if got.Sub(want).Len() > 1e-9 {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}

func mat3Close(t *testing.T, got, want mgl64.Mat3, what string) {
	t.Helper()
	for i := range got {
		d := got[i] - want[i]
		if d < 0 {
			d = -d
		}
		if d > 1e-9 {
			t.Fatalf("%s = %v, want %v", what, got, want)
		}
	}
}

// quatRotClose compares two quaternions as rotations, so q and -q count
// as equal.
func quatRotClose(t *testing.T, got, want mgl64.Quat, what string) {
	t.Helper()
	for _, v := range []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, -1}} {
		if got.Rotate(v).Sub(want.Rotate(v)).Len() > 1e-9 {
			t.Fatalf("%s rotates %v to %v, want %v", what, v, got.Rotate(v), want.Rotate(v))
		}
	}
}

func floatClose(t *testing.T, got, want float64, what string) {
	t.Helper()
	d := got - want
	if d < 0 {
		d = -d
	}
	if d > 1e-9 {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}
