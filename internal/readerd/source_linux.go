package readerd

import (
	"errors"
	"log/slog"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/hid"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/spacemouse"
)

// openSource prefers raw HID and falls back to the kernel input device,
// which covers setups where the hidraw nodes are root-only but the
// event device is readable.
func openSource(mgr hid.Manager) (spacemouse.Source, error) {
	dev, err := spacemouse.Open(mgr)
	if err == nil {
		return dev, nil
	}
	if !errors.Is(err, spacemouse.ErrNoDevice) {
		return nil, err
	}

	src, evErr := spacemouse.OpenEvdev()
	if evErr != nil {
		return nil, errors.Join(err, evErr)
	}
	slog.Info("using kernel input device", slog.String("path", src.Path()))
	return src, nil
}
