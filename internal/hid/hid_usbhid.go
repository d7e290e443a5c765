//go:build !windows

package hid

import (
	"fmt"

	usbhid "rafaelmartins.com/p/usbhid"
)

func newManager(backend string) (Manager, error) {
	switch backend {
	case "", "hidapi":
		return newHidapiManager()
	case "usbhid":
		return &usbManager{}, nil
	default:
		return nil, fmt.Errorf("unknown hid backend %q", backend)
	}
}

// usbManager is the pure-Go fallback for hosts without the hidapi
// library. It cannot read usage pages, so discovery relies on the
// vendor id alone.
type usbManager struct{}

func (m *usbManager) List(vendorID uint16) ([]Info, error) {
	devs, err := usbhid.Enumerate(nil)
	if err != nil {
		return nil, fmt.Errorf("usbhid enumerate: %w", err)
	}
	out := make([]Info, 0, len(devs))
	for _, d := range devs {
		if vendorID != 0 && d.VendorId() != vendorID {
			continue
		}
		out = append(out, Info{
			Path:         d.Path(),
			VendorID:     d.VendorId(),
			ProductID:    d.ProductId(),
			Product:      d.Product(),
			Manufacturer: d.Manufacturer(),
		})
	}
	return out, nil
}

func (m *usbManager) Open(info Info) (Device, error) {
	d, err := usbhid.Get(func(dev *usbhid.Device) bool {
		return dev.Path() == info.Path
	}, true, false)
	if err != nil {
		return nil, fmt.Errorf("usbhid open %s: %w", info.Path, err)
	}
	return &usbDevice{d: d}, nil
}

func (m *usbManager) Close() error { return nil }

type usbDevice struct{ d *usbhid.Device }

func (d *usbDevice) Read(p []byte) (int, error) {
	id, buf, err := d.d.GetInputReport()
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = id
	n := copy(p[1:], buf)
	return n + 1, nil
}

func (d *usbDevice) Close() error { return d.d.Close() }
