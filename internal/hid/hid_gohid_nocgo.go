//go:build !cgo

package hid

import "errors"

// The hidapi backend wraps the hidapi C library via cgo; without cgo it
// cannot exist, so asking for it is a runtime error instead of a build
// failure.
func newHidapiManager() (Manager, error) {
	return nil, errors.New("hidapi backend requires cgo; rebuild with CGO_ENABLED=1 or use the usbhid backend")
}
