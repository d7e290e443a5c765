// Package spacemouse finds 3Dconnexion SpaceMouse devices, decodes
// their HID reports and normalizes the six axes into roughly [-1, 1].
package spacemouse

import (
	"encoding/binary"
	"errors"
	"strings"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/hid"
)

const (
	// VendorID is the 3Dconnexion USB vendor id.
	VendorID uint16 = 0x256F
	// VendorIDLogitech is the legacy vendor id older units enumerate
	// under. Raw HID discovery only matches VendorID; the kernel input
	// fallback accepts both.
	VendorIDLogitech uint16 = 0x046D

	// Scale divides raw axis counts into the normalized range. Full
	// deflection on current devices reads around +/-350.
	Scale = 350.0
)

// Input report ids shared by the product line.
const (
	ReportTranslation byte = 1
	ReportRotation    byte = 2
	ReportButtons     byte = 3
)

// Products maps known product ids to display names.
var Products = map[uint16]string{
	0xC62E: "SpaceMouse Wireless",
	0xC652: "3Dconnexion Universal Receiver",
	0xC626: "SpaceNavigator",
	0xC627: "SpaceExplorer",
	0xC628: "SpacePilot",
	0xC629: "SpacePilot Pro",
	0xC62B: "SpaceMouse Pro",
	0xC631: "SpaceMouse Pro Wireless",
	0xC632: "SpaceMouse Pro Wireless Receiver",
	0xC633: "SpaceMouse Enterprise",
	0xC635: "SpaceMouse Compact",
}

// ProductName returns the display name for a product id, or fallback
// (typically the HID product string) when the id is not in the table.
func ProductName(pid uint16, fallback string) string {
	if name, ok := Products[pid]; ok {
		return name
	}
	return fallback
}

// ErrNoDevice is returned when discovery finds no usable interface.
var ErrNoDevice = errors.New("spacemouse: no device found")

// FindInterfaces returns the HID interfaces belonging to a SpaceMouse,
// most specific first. The multi-axis controller collection (usage page
// 1, usage 8) is preferred; the joystick and gamepad style collections
// some devices also expose can produce spurious button reports, so they
// are only used when no multi-axis collection exists.
func FindInterfaces(mgr hid.Manager) ([]hid.Info, error) {
	infos, err := mgr.List(VendorID)
	if err != nil {
		return nil, err
	}

	var axes, others []hid.Info
	for _, d := range infos {
		switch {
		case d.UsagePage == 1 && d.Usage == 8:
			axes = append(axes, d)
		case d.UsagePage == 1 && (d.Usage == 4 || d.Usage == 5 || d.Usage == 6):
			others = append(others, d)
		}
	}
	if len(axes) > 0 {
		return axes, nil
	}
	if len(others) > 0 {
		return others, nil
	}

	// Vendor-specific collections show up in Windows device paths as
	// Col01/Col02.
	var cols []hid.Info
	for _, d := range infos {
		if strings.Contains(d.Path, "Col01") || strings.Contains(d.Path, "Col02") {
			cols = append(cols, d)
		}
	}
	if len(cols) > 0 {
		return cols, nil
	}

	// Backends without usage or collection information (usbhid) leave
	// nothing to filter on; poll every vendor match.
	for _, d := range infos {
		if d.UsagePage != 0 || d.Usage != 0 {
			return nil, nil
		}
	}
	return infos, nil
}

// State holds the last raw value seen on each axis plus the button
// mask. Translation and rotation usually arrive in separate reports, so
// values persist until the next report of the same kind overwrites
// them.
type State struct {
	X, Y, Z    int
	RX, RY, RZ int
	Buttons    int
}

// Decode folds one report into the state. It reports false for unknown
// ids and reports too short to carry their payload, which the caller
// ignores.
func (s *State) Decode(r hid.Report) bool {
	switch r.ID {
	case ReportTranslation:
		if len(r.Data) < 6 {
			return false
		}
		s.X = axis(r.Data[0:2])
		s.Y = axis(r.Data[2:4])
		s.Z = axis(r.Data[4:6])
		// Some devices pack rotation into the same report.
		if len(r.Data) >= 12 {
			s.RX = axis(r.Data[6:8])
			s.RY = axis(r.Data[8:10])
			s.RZ = axis(r.Data[10:12])
		}
		return true

	case ReportRotation:
		if len(r.Data) < 6 {
			return false
		}
		s.RX = axis(r.Data[0:2])
		s.RY = axis(r.Data[2:4])
		s.RZ = axis(r.Data[4:6])
		return true

	case ReportButtons:
		if len(r.Data) < 1 {
			return false
		}
		// 16 buttons max. Parsing further bytes creates spurious
		// high-button bits on some devices.
		n := len(r.Data)
		if n > 2 {
			n = 2
		}
		mask := 0
		for i, b := range r.Data[:n] {
			mask |= int(b) << (8 * i)
		}
		s.Buttons = mask
		return true
	}
	return false
}

func axis(b []byte) int {
	return int(int16(binary.LittleEndian.Uint16(b)))
}

// Deadzone zeroes raw counts with magnitude below the threshold and
// scales the rest by 1/Scale.
func Deadzone(raw, deadzone int) float64 {
	if raw > -deadzone && raw < deadzone {
		return 0
	}
	return float64(raw) / Scale
}

// Axes is one normalized snapshot of the six axes.
type Axes struct {
	X, Y, Z    float64
	RX, RY, RZ float64
}

// Motion reports whether any axis is nonzero.
func (a Axes) Motion() bool {
	return a.X != 0 || a.Y != 0 || a.Z != 0 || a.RX != 0 || a.RY != 0 || a.RZ != 0
}

// Normalize applies the deadzone to every axis.
func (s State) Normalize(deadzone int) Axes {
	return Axes{
		X:  Deadzone(s.X, deadzone),
		Y:  Deadzone(s.Y, deadzone),
		Z:  Deadzone(s.Z, deadzone),
		RX: Deadzone(s.RX, deadzone),
		RY: Deadzone(s.RY, deadzone),
		RZ: Deadzone(s.RZ, deadzone),
	}
}
