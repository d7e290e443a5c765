// Package readerd implements the reader process: it polls SpaceMouse
// devices, normalizes their axes, and streams samples to the in-host
// receiver over loopback UDP. Control traffic flows the other way on
// the same socket: perf statistics for the status line, the host pid
// for auto-exit, and shutdown requests.
package readerd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/hid"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/liveness"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/wire"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/config"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/spacemouse"
)

const (
	// defaultPollRate is the device poll loop frequency in Hz.
	defaultPollRate = 60

	// helloInterval paces hello retries until the host pid is learned.
	helloInterval = time.Second
)

// Options configures Run. Zero values defer to the config file.
type Options struct {
	// ConfigPath locates the config file. Empty uses config.DefaultPath().
	ConfigPath string

	// Port overrides the config's UDP port when nonzero.
	Port int

	// Deadzone overrides the config's deadzone in raw counts. Negative
	// means use the config value; zero is a real setting.
	Deadzone int

	// MonitorPID is the host process to watch for auto-exit. Zero waits
	// for the receiver's hello_reply to supply it.
	MonitorPID int

	// Backend selects the HID backend when Manager is nil. Empty uses
	// the platform default.
	Backend string

	// PollRate is the loop frequency in Hz; <= 0 uses the default.
	PollRate int

	// StateDir holds the single-instance record. Empty uses the
	// per-user default.
	StateDir string

	// Manager, when set, is used instead of opening Backend.
	Manager hid.Manager

	// Status receives the live status line. Nil disables it.
	Status io.Writer
}

// Run starts the reader and blocks until ctx ends, the receiver asks
// for shutdown, the monitored host exits, or the device goes away.
// A second instance on the same port returns liveness.ErrAlreadyRunning.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Warn("loading config failed, using defaults", slog.String("path", cfgPath), slog.Any("error", err))
	}

	port := opts.Port
	if port == 0 {
		port = cfg.Network.Port
	}
	deadzone := opts.Deadzone
	if deadzone < 0 {
		deadzone = int(cfg.Deadzone.Value)
	}

	stateDir := opts.StateDir
	if stateDir == "" {
		stateDir, err = liveness.DefaultDir()
		if err != nil {
			return err
		}
	}
	handle, err := liveness.Acquire(liveness.FilePath(stateDir, port), port)
	if err != nil {
		return err
	}
	defer handle.Release()

	mgr := opts.Manager
	if mgr == nil {
		mgr, err = hid.NewManager(opts.Backend)
		if err != nil {
			return fmt.Errorf("hid backend: %w", err)
		}
		defer mgr.Close()
	}

	src, err := openSource(mgr)
	if err != nil {
		return err
	}
	defer src.Close()

	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		return fmt.Errorf("dial receiver port %d: %w", port, err)
	}
	defer conn.Close()

	pollRate := opts.PollRate
	if pollRate <= 0 {
		pollRate = defaultPollRate
	}

	r := &runner{
		conn:     conn,
		reports:  src.Poll(ctx),
		deadzone: deadzone,
		pollRate: pollRate,
		monitor:  liveness.NewMonitor(opts.MonitorPID),
		status:   newStatusLine(opts.Status, cfgPath),
		buf:      make([]byte, 4096),
	}

	slog.Info("reader running",
		slog.Int("port", port),
		slog.Int("deadzone", deadzone),
		slog.Int("poll_hz", pollRate))
	if r.monitor.PID > 0 {
		slog.Info("monitoring host process", slog.Int("pid", r.monitor.PID))
	}

	return r.run(ctx)
}

// runner is one reader loop's state.
type runner struct {
	conn     *net.UDPConn
	reports  <-chan hid.Report
	state    spacemouse.State
	deadzone int
	pollRate int

	monitor liveness.Monitor
	helloAt time.Time

	seq         int
	lastButtons int
	lastPerf    *wire.Perf

	status *statusLine
	buf    []byte
}

func (r *runner) run(ctx context.Context) error {
	r.sendHello(time.Now())

	ticker := time.NewTicker(time.Second / time.Duration(r.pollRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		now := time.Now()
		if r.monitor.PID > 0 && !r.monitor.StillRunning() {
			slog.Info("host exited, stopping reader", slog.Int("pid", r.monitor.PID))
			return nil
		}
		if r.monitor.PID == 0 && now.Sub(r.helloAt) >= helloInterval {
			r.sendHello(now)
		}

		if r.drainControl() {
			slog.Info("shutdown requested by receiver")
			return nil
		}
		if !r.drainReports() {
			if ctx.Err() != nil {
				return nil
			}
			return errors.New("readerd: device report stream ended")
		}

		axes := r.state.Normalize(r.deadzone)
		buttonsChanged := r.state.Buttons != r.lastButtons
		if !axes.Motion() && !buttonsChanged {
			continue
		}

		r.seq++
		r.send(wire.Sample{
			X: axes.X, Y: axes.Y, Z: axes.Z,
			RX: axes.RX, RY: axes.RY, RZ: axes.RZ,
			Buttons: r.state.Buttons,
			Seq:     r.seq,
			TSendNS: time.Now().UnixNano(),
		})
		r.lastButtons = r.state.Buttons

		// Replies to this sample may already be queued.
		if r.drainControl() {
			slog.Info("shutdown requested by receiver")
			return nil
		}
		r.status.maybePrint(axes, r.state.Buttons, r.lastPerf, buttonsChanged, now)
	}
}

// drainReports folds every queued report into the state. false means
// the stream ended because the device closed.
func (r *runner) drainReports() bool {
	for {
		select {
		case rep, ok := <-r.reports:
			if !ok {
				return false
			}
			r.state.Decode(rep)
		default:
			return true
		}
	}
}

// drainControl reads every queued control message and reports whether a
// shutdown was requested. Send-direction messages looping back are
// ignored by the decoder's type switch.
func (r *runner) drainControl() (shutdown bool) {
	r.conn.SetReadDeadline(time.Now())
	for {
		n, err := r.conn.Read(r.buf)
		if err != nil {
			// Timeout means drained; anything else (typically ICMP port
			// unreachable while the receiver is down) is transient.
			return false
		}
		msg, err := wire.Decode(r.buf[:n])
		if err != nil {
			continue
		}
		switch m := msg.(type) {
		case wire.Perf:
			r.lastPerf = &m
		case wire.HelloReply:
			r.learnHost(m)
		case wire.Shutdown:
			return true
		}
	}
}

// learnHost latches the host pid from the first usable hello_reply and
// starts monitoring it for auto-exit.
func (r *runner) learnHost(m wire.HelloReply) {
	if r.monitor.PID > 0 || m.HostPID <= 0 {
		return
	}
	r.monitor = liveness.NewMonitor(m.HostPID)
	slog.Info("monitoring host process", slog.Int("pid", m.HostPID))
}

func (r *runner) sendHello(now time.Time) {
	r.helloAt = now
	r.send(wire.Hello{Type: wire.TypeHello, Seq: 0, TSendNS: now.UnixNano()})
}

// send ships one message, ignoring transient socket errors so a missing
// receiver never stalls the device loop.
func (r *runner) send(m wire.Message) {
	b, err := wire.Marshal(m)
	if err != nil {
		return
	}
	if _, err := r.conn.Write(b); err != nil {
		slog.Debug("send failed", slog.Any("error", err))
	}
}
