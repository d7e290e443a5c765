package hid

import (
	"fmt"
	"io"
	"sync"
)

// MockDevice queues raw reports for tests. Read blocks until Emit or
// Close, like a real interrupt pipe.
type MockDevice struct {
	reports   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func NewMockDevice() *MockDevice {
	return &MockDevice{
		reports: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

// Emit queues one report for a later Read.
func (m *MockDevice) Emit(r Report) {
	m.reports <- r.Bytes()
}

func (m *MockDevice) Read(p []byte) (int, error) {
	select {
	case b := <-m.reports:
		return copy(p, b), nil
	case <-m.closed:
		return 0, io.EOF
	}
}

func (m *MockDevice) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

// MockManager hands out pre-seeded interfaces.
type MockManager struct {
	Infos   []Info
	Devices map[string]*MockDevice
}

func (m *MockManager) List(vendorID uint16) ([]Info, error) {
	out := make([]Info, 0, len(m.Infos))
	for _, i := range m.Infos {
		if vendorID != 0 && i.VendorID != vendorID {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (m *MockManager) Open(info Info) (Device, error) {
	d, ok := m.Devices[info.Path]
	if !ok {
		return nil, fmt.Errorf("no mock device at %s", info.Path)
	}
	return d, nil
}

func (m *MockManager) Close() error { return nil }
