package spacemouse

import (
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/hid"
)

// payload packs int16 axis values little-endian, the way devices send
// them.
func payload(vals ...int) []byte {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(int16(v)))
	}
	return b
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		start  State
		report hid.Report
		want   State
		wantOK bool
	}{
		{
			name:   "translation",
			report: hid.Report{ID: ReportTranslation, Data: payload(100, -200, 350)},
			want:   State{X: 100, Y: -200, Z: 350},
			wantOK: true,
		},
		{
			name:   "combined translation and rotation",
			report: hid.Report{ID: ReportTranslation, Data: payload(1, 2, 3, -4, -5, -6)},
			want:   State{X: 1, Y: 2, Z: 3, RX: -4, RY: -5, RZ: -6},
			wantOK: true,
		},
		{
			name:   "rotation",
			report: hid.Report{ID: ReportRotation, Data: payload(-10, 20, -30)},
			want:   State{RX: -10, RY: 20, RZ: -30},
			wantOK: true,
		},
		{
			name:   "translation keeps previous rotation",
			start:  State{RX: 7, RY: 8, RZ: 9},
			report: hid.Report{ID: ReportTranslation, Data: payload(5, 6, 7)},
			want:   State{X: 5, Y: 6, Z: 7, RX: 7, RY: 8, RZ: 9},
			wantOK: true,
		},
		{
			name:   "buttons two bytes",
			report: hid.Report{ID: ReportButtons, Data: []byte{0x03, 0x01}},
			want:   State{Buttons: 0x0103},
			wantOK: true,
		},
		{
			name:   "buttons single byte",
			report: hid.Report{ID: ReportButtons, Data: []byte{0x02}},
			want:   State{Buttons: 0x02},
			wantOK: true,
		},
		{
			name:   "buttons ignores trailing bytes",
			report: hid.Report{ID: ReportButtons, Data: []byte{0x01, 0x00, 0xFF, 0xFF}},
			want:   State{Buttons: 0x01},
			wantOK: true,
		},
		{
			name:   "buttons persist through motion",
			start:  State{Buttons: 0x05},
			report: hid.Report{ID: ReportTranslation, Data: payload(1, 1, 1)},
			want:   State{X: 1, Y: 1, Z: 1, Buttons: 0x05},
			wantOK: true,
		},
		{
			name:   "unknown id ignored",
			start:  State{X: 42},
			report: hid.Report{ID: 9, Data: payload(1, 2, 3)},
			want:   State{X: 42},
			wantOK: false,
		},
		{
			name:   "short translation ignored",
			report: hid.Report{ID: ReportTranslation, Data: payload(1, 2)},
			wantOK: false,
		},
		{
			name:   "empty buttons ignored",
			start:  State{Buttons: 0x01},
			report: hid.Report{ID: ReportButtons, Data: nil},
			want:   State{Buttons: 0x01},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.start
			ok := st.Decode(tt.report)
			if ok != tt.wantOK {
				t.Fatalf("Decode ok = %v, want %v", ok, tt.wantOK)
			}
			if !reflect.DeepEqual(st, tt.want) {
				t.Errorf("state mismatch:\ngot:  %+v\nwant: %+v", st, tt.want)
			}
		})
	}
}

func TestDeadzone(t *testing.T) {
	tests := []struct {
		name     string
		raw      int
		deadzone int
		want     float64
	}{
		{"below threshold", 14, 15, 0},
		{"below threshold negative", -14, 15, 0},
		{"at threshold", 15, 15, 15.0 / Scale},
		{"at threshold negative", -15, 15, -15.0 / Scale},
		{"full deflection", 350, 15, 1},
		{"zero deadzone passes everything", 1, 0, 1.0 / Scale},
		{"zero input", 0, 15, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Deadzone(tt.raw, tt.deadzone); got != tt.want {
				t.Errorf("Deadzone(%d, %d) = %v, want %v", tt.raw, tt.deadzone, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	st := State{X: 350, Y: -350, Z: 10, RX: 175, RY: -14, RZ: 0, Buttons: 0x03}
	got := st.Normalize(15)
	want := Axes{X: 1, Y: -1, Z: 0, RX: 0.5, RY: 0, RZ: 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize mismatch:\ngot:  %+v\nwant: %+v", got, want)
	}
	if !got.Motion() {
		t.Error("Motion() = false with nonzero axes")
	}
	if (Axes{}).Motion() {
		t.Error("Motion() = true on zero axes")
	}
}

func TestFindInterfaces(t *testing.T) {
	multiAxis := hid.Info{Path: "a", VendorID: VendorID, UsagePage: 1, Usage: 8}
	joystick := hid.Info{Path: "b", VendorID: VendorID, UsagePage: 1, Usage: 4}
	gamepad := hid.Info{Path: "c", VendorID: VendorID, UsagePage: 1, Usage: 5}
	vendorCol := hid.Info{Path: `\\?\HID#VID_256F&PID_C635&Col01#x`, VendorID: VendorID, UsagePage: 0xFF00, Usage: 1}
	vendorOther := hid.Info{Path: `\\?\HID#VID_256F&PID_C635&Col05#x`, VendorID: VendorID, UsagePage: 0xFF00, Usage: 2}
	bare1 := hid.Info{Path: "raw1", VendorID: VendorID}
	bare2 := hid.Info{Path: "raw2", VendorID: VendorID}

	tests := []struct {
		name  string
		infos []hid.Info
		want  []string
	}{
		{
			name:  "prefers multi-axis collection",
			infos: []hid.Info{joystick, multiAxis, vendorCol},
			want:  []string{"a"},
		},
		{
			name:  "falls back to joystick style collections",
			infos: []hid.Info{joystick, gamepad, vendorCol},
			want:  []string{"b", "c"},
		},
		{
			name:  "falls back to vendor collection paths",
			infos: []hid.Info{vendorCol, vendorOther},
			want:  []string{vendorCol.Path},
		},
		{
			name:  "no usage info polls everything",
			infos: []hid.Info{bare1, bare2},
			want:  []string{"raw1", "raw2"},
		},
		{
			name:  "unmatched usages find nothing",
			infos: []hid.Info{vendorOther},
			want:  nil,
		},
		{
			name:  "no interfaces",
			infos: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := &hid.MockManager{Infos: tt.infos}
			got, err := FindInterfaces(mgr)
			if err != nil {
				t.Fatalf("FindInterfaces failed: %v", err)
			}
			var paths []string
			for _, i := range got {
				paths = append(paths, i.Path)
			}
			if !reflect.DeepEqual(paths, tt.want) {
				t.Errorf("paths = %v, want %v", paths, tt.want)
			}
		})
	}
}

func TestProductName(t *testing.T) {
	if got := ProductName(0xC635, "x"); got != "SpaceMouse Compact" {
		t.Errorf("ProductName(0xC635) = %q", got)
	}
	if got := ProductName(0xBEEF, "from descriptor"); got != "from descriptor" {
		t.Errorf("ProductName fallback = %q", got)
	}
}
