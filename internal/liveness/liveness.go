// Package liveness implements the reader's single-instance marker file and
// the process probes behind it. The record ties a pid to its start time so
// a recycled pid is not mistaken for a live reader or a live host.
package liveness

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrAlreadyRunning reports that a live reader already holds the record
// for the requested port. Callers treat it as a refusal, not a crash.
var ErrAlreadyRunning = errors.New("liveness: reader already running")

// Record is the content of reader_<port>.json.
type Record struct {
	PID      int   `json:"pid"`
	TStartNS int64 `json:"t_start_ns"`
	UDPPort  int   `json:"udp_port"`
}

// startTolerance bounds the allowed gap between the recorded start time
// (wall clock when the record was written) and the process creation time
// reported by the OS.
const startTolerance = 2 * time.Second

// DefaultDir returns the per-user state directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".spacemouse_network_pan"), nil
}

// FilePath returns the record path for the given port.
func FilePath(dir string, port int) string {
	return filepath.Join(dir, fmt.Sprintf("reader_%d.json", port))
}

func readRecord(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(b, &rec); err == nil && rec.PID != 0 {
		return rec, nil
	}

	// Older readers wrote a bare pid.
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return Record{}, fmt.Errorf("parse record %s: %w", path, err)
	}
	return Record{PID: pid}, nil
}

// ReaderRunning reports whether a live reader holds the record at path.
// Stale records (missing process, or a live pid whose creation time no
// longer fits the recorded start time) are removed so the next start
// succeeds.
func ReaderRunning(path string) bool {
	rec, err := readRecord(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false
		}
		// Unparseable records are stale by definition.
		os.Remove(path)
		return false
	}

	if pidAlive(rec.PID) {
		created, ok := pidCreationNS(rec.PID)
		if !ok || rec.TStartNS == 0 {
			return true
		}
		gap := created - rec.TStartNS
		if gap < 0 {
			gap = -gap
		}
		if gap <= int64(startTolerance) {
			return true
		}
		// Same pid, different process: the pid was recycled.
	}

	os.Remove(path)
	return false
}

// Handle is a registered instance record.
type Handle struct {
	path string
	pid  int
}

// Acquire registers this process at path unless a live reader already
// holds the record, in which case it returns ErrAlreadyRunning.
func Acquire(path string, port int) (*Handle, error) {
	if ReaderRunning(path) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, path)
	}
	return Register(path, port)
}

// Register writes this process's record at path, creating the state
// directory as needed.
func Register(path string, port int) (*Handle, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	rec := Record{
		PID:      os.Getpid(),
		TStartNS: time.Now().UnixNano(),
		UDPPort:  port,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return nil, fmt.Errorf("write record: %w", err)
	}
	return &Handle{path: path, pid: rec.PID}, nil
}

// Release removes the record if this process still owns it.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	rec, err := readRecord(h.path)
	if err == nil && rec.PID != h.pid {
		return
	}
	os.Remove(h.path)
}

// Monitor tracks a host process for auto-exit. The creation time is
// captured once so a recycled pid reads as exited.
type Monitor struct {
	PID       int
	createNS  int64
	hasCreate bool
}

// NewMonitor captures the current creation time of pid, when obtainable.
func NewMonitor(pid int) Monitor {
	m := Monitor{PID: pid}
	if pid > 0 {
		m.createNS, m.hasCreate = pidCreationNS(pid)
	}
	return m
}

// StillRunning reports whether the monitored process is the same instance
// that was captured. When a creation time was captured but can no longer
// be read, the process counts as gone rather than latching onto a
// recycled pid.
func (m Monitor) StillRunning() bool {
	if m.PID <= 0 {
		return false
	}
	if !pidAlive(m.PID) {
		return false
	}
	if !m.hasCreate {
		return true
	}
	current, ok := pidCreationNS(m.PID)
	if !ok {
		return false
	}
	return current == m.createNS
}
