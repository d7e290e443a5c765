package spacemouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/hid"
)

// Source streams input reports. Device reads raw HID; on Linux the
// kernel input subsystem is an alternative (see OpenEvdev).
type Source interface {
	Poll(ctx context.Context) <-chan hid.Report
	Close() error
}

// Device is the set of opened interfaces of one (or more) SpaceMouse
// units, polled as a single logical device.
type Device struct {
	infos []hid.Info
	devs  []hid.Device

	closeOnce sync.Once
	closeErr  error
}

// Open discovers and opens every matching interface. Interfaces that
// fail to open are skipped with a warning; Open fails only when none
// could be opened. A common cause is the vendor driver still holding
// the device.
func Open(mgr hid.Manager) (*Device, error) {
	infos, err := FindInterfaces(mgr)
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}
	if len(infos) == 0 {
		return nil, ErrNoDevice
	}

	d := &Device{}
	for _, info := range infos {
		dev, err := mgr.Open(info)
		if err != nil {
			slog.Warn("opening interface failed", slog.String("path", info.Path), slog.Any("error", err))
			continue
		}
		slog.Info("opened interface",
			slog.String("product", ProductName(info.ProductID, info.Product)),
			slog.Int("usage_page", int(info.UsagePage)),
			slog.Int("usage", int(info.Usage)))
		d.infos = append(d.infos, info)
		d.devs = append(d.devs, dev)
	}
	if len(d.devs) == 0 {
		return nil, fmt.Errorf("%w: %d interface(s) found, none opened", ErrNoDevice, len(infos))
	}
	return d, nil
}

// Interfaces returns the opened interfaces.
func (d *Device) Interfaces() []hid.Info {
	return d.infos
}

// Poll starts one reader goroutine per interface and fans their reports
// into the returned channel, which closes once every reader has
// stopped. Canceling ctx closes the device, unblocking the reads. The
// channel is buffered so a fixed-rate drain loop picks up everything
// queued since its last pass.
func (d *Device) Poll(ctx context.Context) <-chan hid.Report {
	out := make(chan hid.Report, 64)

	go func() {
		<-ctx.Done()
		_ = d.Close()
	}()

	var wg sync.WaitGroup
	for i := range d.devs {
		wg.Add(1)
		go func(dev hid.Device, info hid.Info) {
			defer wg.Done()
			buf := make([]byte, 64)
			for {
				n, err := dev.Read(buf)
				if err != nil {
					if ctx.Err() == nil {
						slog.Warn("reading report failed", slog.String("path", info.Path), slog.Any("error", err))
					}
					return
				}
				if n == 0 {
					continue
				}
				r, ok := hid.ParseReport(buf[:n])
				if !ok {
					continue
				}
				r.Data = append([]byte(nil), r.Data...)
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}(d.devs[i], d.infos[i])
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Close closes every interface. Safe to call more than once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		var errs []error
		for _, dev := range d.devs {
			if err := dev.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		d.closeErr = errors.Join(errs...)
	})
	return d.closeErr
}
