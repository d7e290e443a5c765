// Package receiver applies SpaceMouse samples to the host application.
// A Session owns a UDP socket and, once per host UI tick, drains every
// pending datagram, keeps the newest sample, and routes it to the
// transform selected by the current mode. Dropped datagrams are made up
// for by scaling the applied delta with the number drained (steps), so
// motion speed does not depend on how fast the host ticks.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/camera"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/perf"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/wire"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/config"
)

const (
	// perfReplyInterval throttles the perf replies sent back to the
	// reader for its status line.
	perfReplyInterval = 100 * time.Millisecond

	// defaultTickInterval is the Run ticker cadence, matching the
	// reader's send rate.
	defaultTickInterval = 16 * time.Millisecond

	// attachedDistance is how far in front of the camera the attached
	// object rides, in world units.
	attachedDistance = 10.0
)

// Options configures Start.
type Options struct {
	// ConfigPath locates the config file. SetMode and preset switches
	// persist to it. Empty uses config.DefaultPath().
	ConfigPath string

	// Config, when set, is used instead of loading ConfigPath.
	Config *config.Config

	// Port overrides the config's UDP port when nonzero.
	Port int
}

// orientCache remembers which way the host hands out camera rotations.
// Each concern calibrates once against the view rotation and keeps the
// answer for the session.
type orientCache struct {
	known bool
	c2w   bool
}

// toWorld returns rot as a camera-to-world rotation, calibrating on
// first use. Without a view rotation the host is taken at its word.
func (o *orientCache) toWorld(rot mgl64.Mat3, vp Viewport) mgl64.Mat3 {
	if !o.known {
		o.c2w = true
		if ref, ok := vp.ViewRotation(); ok {
			o.c2w = camera.CameraToWorld(rot, ref)
		}
		o.known = true
	}
	if o.c2w {
		return rot
	}
	return rot.Transpose()
}

// fromWorld converts a camera-to-world rotation back into the host's
// convention.
func (o *orientCache) fromWorld(c2w mgl64.Mat3) mgl64.Mat3 {
	if o.c2w {
		return c2w
	}
	return c2w.Transpose()
}

// attachedState is the cargo_attached bookkeeping carried across ticks.
type attachedState struct {
	held     mgl64.Quat // user rotation offset, in yaw-local space
	haveHeld bool
	scale    mgl64.Vec3 // captured on grab
	yawDeg   float64    // last usable camera heading
}

// Session receives samples and drives the host. All methods must be
// called from the host's UI thread; the session does no locking.
type Session struct {
	host    Host
	cfg     *config.Config
	cfgPath string

	conn *net.UDPConn
	buf  []byte

	lastSender   *net.UDPAddr
	shutdownSent bool

	tracker       *perf.Tracker
	perfReplyAt   time.Time
	hoverRefresh  time.Time
	applyInterval time.Time

	viewportOrient orientCache
	cargoOrient    orientCache

	attached attachedState

	initial     mgl64.Mat4 // object transform captured by SetupScene
	haveInitial bool

	buttonsPrev int
	heldCombos  map[int]string

	messages  int
	malformed int
	noPane    int
	lastErr   error
}

// Start binds the UDP socket and returns a Session ready to tick.
// A failed bind is fatal to the caller; there is no degraded mode.
func Start(host Host, opts Options) (*Session, error) {
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}

	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			slog.Warn("loading config failed, using defaults", slog.String("path", cfgPath), slog.Any("error", err))
		}
	}

	port := opts.Port
	if port == 0 {
		port = cfg.Network.Port
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		return nil, fmt.Errorf("bind udp port %d: %w", port, err)
	}

	s := &Session{
		host:       host,
		cfg:        cfg,
		cfgPath:    cfgPath,
		conn:       conn,
		buf:        make([]byte, 4096),
		tracker:    perf.New(),
		heldCombos: make(map[int]string),
	}
	s.attached.yawDeg = 0

	slog.Info("receiver listening",
		slog.String("addr", conn.LocalAddr().String()),
		slog.String("mode", string(cfg.Mode)))
	return s, nil
}

// LocalAddr returns the bound UDP address.
func (s *Session) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Mode returns the current mode.
func (s *Session) Mode() config.Mode {
	return s.cfg.Mode
}

// Config returns the session's active configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Run ticks the session on its own ticker until ctx ends, for hosts
// without a UI event loop to hang Tick off. interval <= 0 uses the
// default cadence. The session is stopped on return.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer s.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick drains all pending datagrams, applies the newest, and answers
// control messages. Called once per host UI tick.
func (s *Session) Tick() {
	var (
		latest []byte
		recvNS int64
		sender *net.UDPAddr
		steps  int
	)

	// Drain everything queued since the last tick. The deadline in the
	// past turns reads non-blocking.
	s.conn.SetReadDeadline(time.Now())
	for {
		n, addr, err := s.conn.ReadFromUDP(s.buf)
		if err != nil {
			var ne net.Error
			if !errors.As(err, &ne) || !ne.Timeout() {
				// Transient socket errors do not stop the loop.
				slog.Debug("udp read failed", slog.Any("error", err))
			}
			break
		}
		s.messages++
		latest = append(latest[:0], s.buf[:n]...)
		recvNS = time.Now().UnixNano()
		sender = addr
		steps++
	}

	if steps == 0 {
		// The attached object follows the camera even while the device
		// is idle.
		if s.cfg.Mode == config.ModeCargoAttached {
			s.discardExpected(s.applyAttached(wire.Sample{}, 1))
		}
		return
	}
	s.lastSender = sender

	msg, err := wire.Decode(latest)
	if err != nil {
		// Malformed datagrams are dropped; only the count survives for
		// Debug().
		s.malformed++
		return
	}

	switch m := msg.(type) {
	case wire.Hello:
		s.sendHelloReply(recvNS)
		s.maybeSendPerfReply(recvNS)

	case wire.Sample:
		s.apply(m, steps, recvNS)
		s.maybeSendPerfReply(recvNS)

	default:
		// hello_reply, perf and shutdown travel the other direction;
		// one bouncing back here is noise.
	}
}

// apply routes one sample to the transform for the effective mode.
func (s *Session) apply(smp wire.Sample, steps int, recvNS int64) {
	s.tracker.RecordSample(smp.Seq, smp.TSendNS, recvNS)
	s.tracker.RecordSteps(steps)

	// With auto mode switching on, a node-graph editor under the cursor
	// takes this tick's input no matter the configured mode.
	mode := s.cfg.Mode
	var editor NetworkEditor
	if s.cfg.AutoModeSwitch.Enabled && s.cfg.AutoModeSwitch.NetworkUnderCursor {
		if ed, err := s.host.NetworkEditorUnderCursor(); err == nil {
			mode = config.ModeNetwork
			editor = ed
		}
	}

	s.applyButtons(smp.Buttons, mode)

	start := time.Now()
	var err error
	switch mode {
	case config.ModeViewport:
		err = s.applyViewport(smp, steps)
	case config.ModeViewportFPS:
		err = s.applyFly(smp, steps)
	case config.ModeCargo:
		err = s.applyCargo(smp, steps)
	case config.ModeCargoAttached:
		err = s.applyAttached(smp, steps)
	default:
		err = s.applyNetwork(smp, steps, editor)
	}
	now := time.Now()
	s.tracker.RecordApply(now.Sub(start), now)

	s.discardExpected(err)
}

// discardExpected counts expected-absence results and records anything
// else as the last error.
func (s *Session) discardExpected(err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrNoPane), errors.Is(err, ErrNoObject):
		s.noPane++
	default:
		s.lastErr = err
		slog.Warn("applying input failed", slog.Any("error", err))
	}
}

func (s *Session) sendHelloReply(recvNS int64) {
	if s.lastSender == nil {
		return
	}
	b, err := wire.Marshal(wire.HelloReply{
		Type:    wire.TypeHelloReply,
		HostPID: s.host.PID(),
		TRecvNS: recvNS,
	})
	if err != nil {
		return
	}
	if _, err := s.conn.WriteToUDP(b, s.lastSender); err != nil {
		slog.Debug("hello reply failed", slog.Any("error", err))
	}
}

func (s *Session) maybeSendPerfReply(recvNS int64) {
	if s.lastSender == nil {
		return
	}
	now := time.Now()
	if now.Sub(s.perfReplyAt) < perfReplyInterval {
		return
	}
	s.perfReplyAt = now

	b, err := wire.Marshal(s.tracker.Snapshot(recvNS))
	if err != nil {
		return
	}
	if _, err := s.conn.WriteToUDP(b, s.lastSender); err != nil {
		slog.Debug("perf reply failed", slog.Any("error", err))
	}
}

// sendShutdown asks the reader to exit. Sent at most once.
func (s *Session) sendShutdown() {
	if s.shutdownSent || s.lastSender == nil {
		return
	}
	b, err := wire.Marshal(wire.Shutdown{Type: wire.TypeShutdown, TSendNS: time.Now().UnixNano()})
	if err != nil {
		return
	}
	if _, err := s.conn.WriteToUDP(b, s.lastSender); err == nil {
		s.shutdownSent = true
	}
}

// Stop signals the reader, releases any held hotkeys, and closes the
// socket. The session cannot be restarted.
func (s *Session) Stop() {
	s.sendShutdown()
	s.releaseAllButtons()
	if err := s.conn.Close(); err != nil {
		slog.Debug("closing socket failed", slog.Any("error", err))
	}
	slog.Info("receiver stopped")
}

// ReloadConfig re-reads the config file. On failure the session keeps
// running on defaults, per the usual config fallback.
func (s *Session) ReloadConfig() error {
	cfg, err := config.Load(s.cfgPath)
	s.cfg = cfg
	if err != nil {
		slog.Warn("reloading config failed, using defaults", slog.String("path", s.cfgPath), slog.Any("error", err))
		return err
	}
	slog.Info("config reloaded", slog.String("mode", string(cfg.Mode)))
	return nil
}

// SetMode switches the mode and persists it to the config file.
// Entering cargo_attached grabs the object and runs one follow update
// so it snaps in front of the camera immediately.
func (s *Session) SetMode(mode config.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q (valid: %v)", mode, config.Modes())
	}

	cfg, err := config.Load(s.cfgPath)
	if err != nil && !errors.Is(err, config.ErrInvalid) {
		slog.Debug("loading config for mode switch", slog.Any("error", err))
	}
	cfg.Mode = mode
	if err := cfg.Save(s.cfgPath); err != nil {
		return fmt.Errorf("persist mode: %w", err)
	}
	s.cfg = cfg

	if mode == config.ModeCargoAttached {
		s.discardExpected(s.Grab())
		s.discardExpected(s.applyAttached(wire.Sample{}, 1))
	}
	slog.Info("mode set", slog.String("mode", string(mode)))
	return nil
}

// ToggleMode flips between the node-graph and viewport modes.
func (s *Session) ToggleMode() (config.Mode, error) {
	next := config.ModeViewport
	if s.cfg.Mode == config.ModeViewport {
		next = config.ModeNetwork
	}
	return next, s.SetMode(next)
}

// maybeRefreshHover asks the host to refresh hover highlighting after
// viewport motion, rate-limited to the configured frequency.
func (s *Session) maybeRefreshHover() {
	if !s.cfg.HoverRefresh.Enabled || s.cfg.HoverRefresh.Hz <= 0 {
		return
	}
	now := time.Now()
	interval := time.Duration(float64(time.Second) / s.cfg.HoverRefresh.Hz)
	if now.Sub(s.hoverRefresh) < interval {
		return
	}
	s.hoverRefresh = now
	s.host.RefreshHover()
}

// mappedAxis resolves a semantic axis name through the mapping, with a
// leading "-" inverting the sign and "none" (or an unmapped name)
// reading zero.
func mappedAxis(smp wire.Sample, mapping map[string]string, name string) float64 {
	axis, ok := mapping[name]
	if !ok || axis == "none" || axis == "" {
		return 0
	}
	invert := axis[0] == '-'
	if invert {
		axis = axis[1:]
	}
	v := smp.Axis(axis)
	if invert {
		return -v
	}
	return v
}

// multiplier reads the per-axis multiplier, defaulting to 1.
func multiplier(m map[string]float64, name string) float64 {
	if v, ok := m[name]; ok {
		return v
	}
	return 1
}

// Debug is a point-in-time snapshot of session state, for diagnostics.
type Debug struct {
	Mode         config.Mode
	ActivePreset string

	PanSpeed         float64
	ZoomSpeed        float64
	ViewportSpeed    config.ViewportSpeed
	FPSSpeed         config.ViewportSpeed
	CargoRotateSpeed float64

	NetworkMapping  map[string]string
	ViewportMapping map[string]string

	Messages   int
	Malformed  int
	NoPane     int
	LastError  string
	HeldCombos []string

	AttachedHeld bool
	SceneSetUp   bool

	Perf string
}

// DebugState reports the session's counters and effective settings.
func (s *Session) DebugState() Debug {
	d := Debug{
		Mode:             s.cfg.Mode,
		ActivePreset:     s.cfg.ActivePreset,
		PanSpeed:         s.cfg.NetworkSpeed.Pan,
		ZoomSpeed:        s.cfg.NetworkSpeed.Zoom,
		ViewportSpeed:    s.cfg.ViewportSpeed,
		FPSSpeed:         s.cfg.FPSSpeed,
		CargoRotateSpeed: s.cfg.CargoSpeed.Rotate,
		NetworkMapping:   s.cfg.ActiveMapping(),
		ViewportMapping:  s.cfg.ViewportAxisMapping,
		Messages:         s.messages,
		Malformed:        s.malformed,
		NoPane:           s.noPane,
		AttachedHeld:     s.attached.haveHeld,
		SceneSetUp:       s.haveInitial,
		Perf:             s.tracker.Summary(),
	}
	if s.lastErr != nil {
		d.LastError = s.lastErr.Error()
	}
	for _, combo := range s.heldCombos {
		d.HeldCombos = append(d.HeldCombos, combo)
	}
	return d
}
