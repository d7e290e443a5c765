//go:build linux

package spacemouse

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kenshaw/evdev"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/hid"
)

// btnBase is BTN_0, the first button code the kernel driver reports.
const btnBase = 0x100

// EvdevSource reads a SpaceMouse through the kernel input subsystem
// instead of raw HID. Useful where hidraw access needs udev rules but
// /dev/input/event* is already readable.
type EvdevSource struct {
	dev  *evdev.Evdev
	path string
}

var evdevAxes = []evdev.AbsoluteType{
	evdev.AbsoluteX, evdev.AbsoluteY, evdev.AbsoluteZ,
	evdev.AbsoluteRX, evdev.AbsoluteRY, evdev.AbsoluteRZ,
}

// OpenEvdev scans /dev/input/event* for a 3Dconnexion device exposing
// all six absolute axes and opens the first match.
func OpenEvdev() (*EvdevSource, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("scan input devices: %w", err)
	}

	for _, p := range paths {
		d, err := evdev.OpenFile(p)
		if err != nil {
			continue
		}
		id := d.ID()
		if id.Vendor != VendorID && id.Vendor != VendorIDLogitech {
			d.Close()
			continue
		}
		axes := d.AbsoluteTypes()
		ok := true
		for _, a := range evdevAxes {
			if _, present := axes[a]; !present {
				ok = false
				break
			}
		}
		if !ok {
			d.Close()
			continue
		}
		slog.Info("opened input device", slog.String("name", d.Name()), slog.String("path", p))
		return &EvdevSource{dev: d, path: p}, nil
	}
	return nil, ErrNoDevice
}

// Path returns the event device path.
func (s *EvdevSource) Path() string {
	return s.path
}

// Poll streams synthetic reports that mirror the raw HID layout, so the
// decode path is identical for both sources. All six axes go out as one
// combined translation report on every sync; button changes go out as a
// separate buttons report.
func (s *EvdevSource) Poll(ctx context.Context) <-chan hid.Report {
	out := make(chan hid.Report, 64)

	go func() {
		defer close(out)

		var ax [6]int16
		buttons, sentButtons := 0, -1
		events := s.dev.Poll(ctx)
		for {
			select {
			case <-ctx.Done():
				return

			case ev := <-events:
				if ev == nil {
					return
				}

				switch typ := ev.Type.(type) {
				case evdev.AbsoluteType:
					for i, a := range evdevAxes {
						if typ == a {
							ax[i] = int16(ev.Value)
							break
						}
					}

				case evdev.KeyType:
					bit := int(typ) - btnBase
					if bit < 0 || bit > 15 {
						continue
					}
					if ev.Value != 0 {
						buttons |= 1 << bit
					} else {
						buttons &^= 1 << bit
					}

				case evdev.SyncType:
					if evdev.SyncType(ev.Code) != evdev.SyncReport {
						continue
					}
					data := make([]byte, 12)
					for i, v := range ax {
						binary.LittleEndian.PutUint16(data[2*i:], uint16(v))
					}
					select {
					case out <- hid.Report{ID: ReportTranslation, Data: data}:
					case <-ctx.Done():
						return
					}
					if buttons != sentButtons {
						bd := make([]byte, 2)
						binary.LittleEndian.PutUint16(bd, uint16(buttons))
						select {
						case out <- hid.Report{ID: ReportButtons, Data: bd}:
						case <-ctx.Done():
							return
						}
						sentButtons = buttons
					}
				}
			}
		}
	}()
	return out
}

func (s *EvdevSource) Close() error {
	return s.dev.Close()
}
