package receiver

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/config"
)

// comboReset clears the attached mode's held rotation instead of
// injecting keys.
const comboReset = "reset_rotation"

// unboundCombos are the config spellings that mean "no binding".
var unboundCombos = map[string]bool{
	"":         true,
	"none":     true,
	"off":      true,
	"disabled": true,
	"disable":  true,
	"null":     true,
}

// comboForButton looks up the binding for a device button in a mode's
// hotkey map. Both "button_3" and plain "3" are accepted keys. The
// second return is false for unbound buttons.
func comboForButton(modeMap map[string]string, button int) (string, bool) {
	combo, ok := modeMap[fmt.Sprintf("button_%d", button)]
	if !ok {
		combo, ok = modeMap[strconv.Itoa(button)]
	}
	if !ok {
		return "", false
	}
	combo = strings.TrimSpace(combo)
	if unboundCombos[strings.ToLower(combo)] {
		return "", false
	}
	return combo, true
}

// applyButtons turns mask edges into held key combos: a press holds the
// bound combo down until the matching release. Bindings come from the
// effective mode so a button can mean different things per mode.
func (s *Session) applyButtons(mask int, mode config.Mode) {
	pressed := mask &^ s.buttonsPrev
	released := s.buttonsPrev &^ mask
	s.buttonsPrev = mask
	if pressed == 0 && released == 0 {
		return
	}

	modeMap := s.cfg.ButtonHotkeys[string(mode)]

	for bit := 0; bit < 32; bit++ {
		if pressed&(1<<bit) == 0 {
			continue
		}
		button := bit + 1

		// A press while we still think the button is held means we
		// missed the release; let go before re-pressing.
		if combo, ok := s.heldCombos[button]; ok {
			s.releaseCombo(combo)
			delete(s.heldCombos, button)
		}

		combo, ok := comboForButton(modeMap, button)
		if !ok {
			continue
		}
		if combo == comboReset {
			if mode == config.ModeCargoAttached {
				s.Release()
			}
			continue
		}

		hk := s.host.Hotkeys()
		if hk == nil {
			continue
		}
		if err := hk.Press(combo); err != nil {
			slog.Warn("hotkey press failed", slog.String("combo", combo), slog.Any("error", err))
			continue
		}
		s.heldCombos[button] = combo
	}

	for bit := 0; bit < 32; bit++ {
		if released&(1<<bit) == 0 {
			continue
		}
		button := bit + 1
		combo, ok := s.heldCombos[button]
		if !ok {
			continue
		}
		s.releaseCombo(combo)
		delete(s.heldCombos, button)
	}
}

func (s *Session) releaseCombo(combo string) {
	hk := s.host.Hotkeys()
	if hk == nil {
		return
	}
	if err := hk.Release(combo); err != nil {
		slog.Warn("hotkey release failed", slog.String("combo", combo), slog.Any("error", err))
	}
}

// releaseAllButtons lets go of everything still held, so stopping the
// session cannot leave the host with stuck keys.
func (s *Session) releaseAllButtons() {
	for button, combo := range s.heldCombos {
		s.releaseCombo(combo)
		delete(s.heldCombos, button)
	}
	s.buttonsPrev = 0
}
