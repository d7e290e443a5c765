package hid

import (
	"fmt"

	"github.com/karalabe/usb"
)

// RawInfo is the raw USB view of a device, useful when the HID driver
// hides or misreports an interface.
type RawInfo struct {
	Path      string
	VendorID  uint16
	ProductID uint16
	Product   string
	Serial    string
}

func (i RawInfo) String() string {
	return fmt.Sprintf("%04x:%04x %q serial=%q %s",
		i.VendorID, i.ProductID, i.Product, i.Serial, i.Path)
}

// RawList enumerates devices at the USB layer, below the HID driver.
// vendorID zero matches everything.
func RawList(vendorID uint16) ([]RawInfo, error) {
	if !usb.Supported() {
		return nil, fmt.Errorf("raw usb enumeration not supported on this platform")
	}
	infos, err := usb.Enumerate(vendorID, 0)
	if err != nil {
		return nil, fmt.Errorf("usb enumerate: %w", err)
	}
	out := make([]RawInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, RawInfo{
			Path:      info.Path,
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Product:   info.Product,
			Serial:    info.Serial,
		})
	}
	return out, nil
}
