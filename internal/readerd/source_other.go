//go:build !linux

package readerd

import (
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/hid"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/spacemouse"
)

func openSource(mgr hid.Manager) (spacemouse.Source, error) {
	return spacemouse.Open(mgr)
}
