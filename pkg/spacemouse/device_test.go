package spacemouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/hid"
)

func TestOpenNoDevice(t *testing.T) {
	mgr := &hid.MockManager{}
	if _, err := Open(mgr); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("Open on empty manager = %v, want ErrNoDevice", err)
	}
}

func TestOpenSkipsFailingInterfaces(t *testing.T) {
	infos := []hid.Info{
		{Path: "dead", VendorID: VendorID, UsagePage: 1, Usage: 8},
		{Path: "live", VendorID: VendorID, UsagePage: 1, Usage: 8},
	}
	mgr := &hid.MockManager{
		Infos:   infos,
		Devices: map[string]*hid.MockDevice{"live": hid.NewMockDevice()},
	}

	d, err := Open(mgr)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	if got := d.Interfaces(); len(got) != 1 || got[0].Path != "live" {
		t.Fatalf("Interfaces() = %v, want the one openable path", got)
	}
}

func TestOpenAllInterfacesFail(t *testing.T) {
	mgr := &hid.MockManager{
		Infos: []hid.Info{{Path: "dead", VendorID: VendorID, UsagePage: 1, Usage: 8}},
	}
	if _, err := Open(mgr); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("Open with unopenable interfaces = %v, want ErrNoDevice", err)
	}
}

func TestDevicePollFansIn(t *testing.T) {
	devA := hid.NewMockDevice()
	devB := hid.NewMockDevice()
	mgr := &hid.MockManager{
		Infos: []hid.Info{
			{Path: "a", VendorID: VendorID, UsagePage: 1, Usage: 8},
			{Path: "b", VendorID: VendorID, UsagePage: 1, Usage: 8},
		},
		Devices: map[string]*hid.MockDevice{"a": devA, "b": devB},
	}

	d, err := Open(mgr)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reports := d.Poll(ctx)

	devA.Emit(hid.Report{ID: ReportTranslation, Data: payload(1, 2, 3)})
	devB.Emit(hid.Report{ID: ReportRotation, Data: payload(4, 5, 6)})

	var st State
	for i := 0; i < 2; i++ {
		select {
		case r := <-reports:
			st.Decode(r)
		case <-ctx.Done():
			t.Fatal("timeout waiting for reports")
		}
	}

	want := State{X: 1, Y: 2, Z: 3, RX: 4, RY: 5, RZ: 6}
	if st != want {
		t.Fatalf("state after fan-in = %+v, want %+v", st, want)
	}
}

func TestDevicePollClosesOnCancel(t *testing.T) {
	dev := hid.NewMockDevice()
	mgr := &hid.MockManager{
		Infos:   []hid.Info{{Path: "a", VendorID: VendorID, UsagePage: 1, Usage: 8}},
		Devices: map[string]*hid.MockDevice{"a": dev},
	}

	d, err := Open(mgr)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reports := d.Poll(ctx)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-reports:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("report channel did not close after cancel")
		}
	}
}
