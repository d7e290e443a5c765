//go:build cgo

package hid

import (
	"fmt"
	"time"

	gohid "github.com/sstallion/go-hid"
)

// readInterval bounds how long a Read blocks so pollers notice a
// canceled context without a report arriving.
const readInterval = 250 * time.Millisecond

// hidapiManager drives devices through the hidapi library.
type hidapiManager struct{}

func newHidapiManager() (Manager, error) {
	if err := gohid.Init(); err != nil {
		return nil, fmt.Errorf("hidapi init: %w", err)
	}
	return &hidapiManager{}, nil
}

func (m *hidapiManager) List(vendorID uint16) ([]Info, error) {
	var out []Info
	err := gohid.Enumerate(vendorID, 0, func(info *gohid.DeviceInfo) error {
		out = append(out, Info{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Product:      info.ProductStr,
			Manufacturer: info.MfrStr,
			UsagePage:    info.UsagePage,
			Usage:        info.Usage,
			Interface:    info.InterfaceNbr,
		})
		return nil
	})
	if err != nil && len(out) == 0 {
		// hidapi reports an empty match set as an error; let the caller
		// decide whether zero interfaces is fatal.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hidapi enumerate: %w", err)
	}
	return out, nil
}

func (m *hidapiManager) Open(info Info) (Device, error) {
	d, err := gohid.OpenPath(info.Path)
	if err != nil {
		return nil, fmt.Errorf("hidapi open %s: %w", info.Path, err)
	}
	return &hidapiDevice{d: d}, nil
}

func (m *hidapiManager) Close() error { return gohid.Exit() }

type hidapiDevice struct{ d *gohid.Device }

func (d *hidapiDevice) Read(p []byte) (int, error) {
	return d.d.ReadWithTimeout(p, readInterval)
}

func (d *hidapiDevice) Close() error { return d.d.Close() }
