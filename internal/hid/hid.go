// Package hid abstracts raw HID access behind a small Manager/Device
// pair so the polling code does not care which backend opened the
// device. Three backends exist: hidapi (sstallion/go-hid, the default
// everywhere), usbhid (pure Go, non-Windows), and win32 (direct
// syscalls, Windows only).
package hid

import "fmt"

// Report is one input report as it came off the interrupt pipe: id byte
// up front, payload after.
type Report struct {
	ID   byte
	Data []byte
}

// Bytes returns the report in wire order.
func (r Report) Bytes() []byte {
	b := make([]byte, 0, len(r.Data)+1)
	b = append(b, r.ID)
	return append(b, r.Data...)
}

// ParseReport splits a raw read into id and payload.
func ParseReport(b []byte) (Report, bool) {
	if len(b) == 0 {
		return Report{}, false
	}
	return Report{ID: b[0], Data: b[1:]}, true
}

// Info describes one HID interface. A single physical device shows up
// once per interface it exposes.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Product      string
	Manufacturer string
	UsagePage    uint16
	Usage        uint16
	Interface    int
}

func (i Info) String() string {
	return fmt.Sprintf("%04x:%04x usage %d:%d if%d %q %s",
		i.VendorID, i.ProductID, i.UsagePage, i.Usage, i.Interface, i.Product, i.Path)
}

// Device is an opened HID interface. Read blocks until a report
// arrives, the backend's poll interval elapses (n == 0, nil error), or
// the device is closed.
type Device interface {
	Read(p []byte) (int, error)
	Close() error
}

// Manager enumerates and opens HID interfaces.
type Manager interface {
	// List returns every interface matching vendorID; zero matches all.
	List(vendorID uint16) ([]Info, error)
	Open(info Info) (Device, error)
	Close() error
}

// NewManager returns the named backend, or the platform default for "".
func NewManager(backend string) (Manager, error) {
	return newManager(backend)
}
