package receiver

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/config"
)

func hotkeyConfig(mode, key, combo string) *config.Config {
	cfg := config.Default()
	cfg.ButtonHotkeys = map[string]map[string]string{
		mode: {key: combo},
	}
	return cfg
}

func TestButtonPressHoldsUntilRelease(t *testing.T) {
	host := &memHost{hotkeys: newMemHotkeys()}
	s, _ := newSession(t, host, hotkeyConfig("network", "button_1", "ctrl+g"))

	s.applyButtons(0b1, config.ModeNetwork)
	s.applyButtons(0b0, config.ModeNetwork)

	want := []string{"press ctrl+g", "release ctrl+g"}
	if !reflect.DeepEqual(host.hotkeys.events, want) {
		t.Fatalf("events = %v, want %v", host.hotkeys.events, want)
	}
	if host.hotkeys.held["ctrl+g"] != 0 {
		t.Fatalf("combo still held after release")
	}
}

func TestButtonHeldMaskEmitsNothing(t *testing.T) {
	host := &memHost{hotkeys: newMemHotkeys()}
	s, _ := newSession(t, host, hotkeyConfig("network", "button_1", "ctrl+g"))

	s.applyButtons(0b1, config.ModeNetwork)
	s.applyButtons(0b1, config.ModeNetwork) // no edge

	if len(host.hotkeys.events) != 1 {
		t.Fatalf("events = %v, want a single press", host.hotkeys.events)
	}
}

func TestButtonPlainNumberKeyAccepted(t *testing.T) {
	host := &memHost{hotkeys: newMemHotkeys()}
	s, _ := newSession(t, host, hotkeyConfig("network", "2", "shift+x"))

	s.applyButtons(0b10, config.ModeNetwork)

	if len(host.hotkeys.events) != 1 || host.hotkeys.events[0] != "press shift+x" {
		t.Fatalf("events = %v, want press shift+x", host.hotkeys.events)
	}
}

func TestButtonsPressedTogether(t *testing.T) {
	cfg := config.Default()
	cfg.ButtonHotkeys = map[string]map[string]string{
		"network": {"button_1": "a", "button_3": "b"},
	}

	host := &memHost{hotkeys: newMemHotkeys()}
	s, _ := newSession(t, host, cfg)

	s.applyButtons(0b101, config.ModeNetwork)

	want := []string{"press a", "press b"}
	if !reflect.DeepEqual(host.hotkeys.events, want) {
		t.Fatalf("events = %v, want %v", host.hotkeys.events, want)
	}
}

func TestUnboundSpellingsIgnored(t *testing.T) {
	for _, combo := range []string{"", "none", "None", "OFF", "disabled", "disable", "null", "  none  "} {
		host := &memHost{hotkeys: newMemHotkeys()}
		s, _ := newSession(t, host, hotkeyConfig("network", "button_1", combo))

		s.applyButtons(0b1, config.ModeNetwork)
		s.applyButtons(0b0, config.ModeNetwork)

		if len(host.hotkeys.events) != 0 {
			t.Fatalf("combo %q injected events %v", combo, host.hotkeys.events)
		}
	}
}

func TestUnknownButtonIgnored(t *testing.T) {
	host := &memHost{hotkeys: newMemHotkeys()}
	s, _ := newSession(t, host, hotkeyConfig("network", "button_1", "ctrl+g"))

	// Button 5 has no binding at all.
	s.applyButtons(0b10000, config.ModeNetwork)

	if len(host.hotkeys.events) != 0 {
		t.Fatalf("events = %v, want none", host.hotkeys.events)
	}
}

func TestModeSelectsBindingSet(t *testing.T) {
	cfg := config.Default()
	cfg.ButtonHotkeys = map[string]map[string]string{
		"network":  {"button_1": "ctrl+g"},
		"viewport": {"button_1": "space"},
	}

	host := &memHost{hotkeys: newMemHotkeys()}
	s, _ := newSession(t, host, cfg)

	s.applyButtons(0b1, config.ModeViewport)

	if len(host.hotkeys.events) != 1 || host.hotkeys.events[0] != "press space" {
		t.Fatalf("events = %v, want press space", host.hotkeys.events)
	}
}

func TestResetRotationClearsHeldInAttachedMode(t *testing.T) {
	host := &memHost{viewport: newMemViewport(), object: newMemObject(), hotkeys: newMemHotkeys()}
	s, _ := newSession(t, host, hotkeyConfig("cargo_attached", "button_1", "reset_rotation"))

	if err := s.Grab(); err != nil {
		t.Fatalf("Grab: %v", err)
	}
	s.applyButtons(0b1, config.ModeCargoAttached)

	if s.DebugState().AttachedHeld {
		t.Fatalf("reset_rotation did not clear the held rotation")
	}
	if len(host.hotkeys.events) != 0 {
		t.Fatalf("reset_rotation injected keys: %v", host.hotkeys.events)
	}
}

func TestResetRotationIgnoredOutsideAttachedMode(t *testing.T) {
	host := &memHost{viewport: newMemViewport(), object: newMemObject(), hotkeys: newMemHotkeys()}
	s, _ := newSession(t, host, hotkeyConfig("network", "button_1", "reset_rotation"))

	if err := s.Grab(); err != nil {
		t.Fatalf("Grab: %v", err)
	}
	s.applyButtons(0b1, config.ModeNetwork)

	if !s.DebugState().AttachedHeld {
		t.Fatalf("held rotation cleared by the wrong mode")
	}
}

func TestStalePressReleasesFirst(t *testing.T) {
	host := &memHost{hotkeys: newMemHotkeys()}
	s, _ := newSession(t, host, hotkeyConfig("network", "button_1", "ctrl+g"))

	s.applyButtons(0b1, config.ModeNetwork)
	// Simulate a missed release: the mask edge fires again while the
	// combo is still recorded as held.
	s.buttonsPrev = 0
	s.applyButtons(0b1, config.ModeNetwork)

	want := []string{"press ctrl+g", "release ctrl+g", "press ctrl+g"}
	if !reflect.DeepEqual(host.hotkeys.events, want) {
		t.Fatalf("events = %v, want %v", host.hotkeys.events, want)
	}
}

func TestNilInjectorSkipsQuietly(t *testing.T) {
	host := &memHost{} // Hotkeys() returns nil
	s, _ := newSession(t, host, hotkeyConfig("network", "button_1", "ctrl+g"))

	s.applyButtons(0b1, config.ModeNetwork)
	s.applyButtons(0b0, config.ModeNetwork)

	if d := s.DebugState(); len(d.HeldCombos) != 0 {
		t.Fatalf("held combos = %v, want none", d.HeldCombos)
	}
}

func TestFailedPressNotRecordedAsHeld(t *testing.T) {
	host := &memHost{hotkeys: newMemHotkeys()}
	host.hotkeys.pressErr = errors.New("injection blocked")
	s, _ := newSession(t, host, hotkeyConfig("network", "button_1", "ctrl+g"))

	s.applyButtons(0b1, config.ModeNetwork)
	s.applyButtons(0b0, config.ModeNetwork)

	// The release must not fire for a press that never landed.
	if len(host.hotkeys.events) != 0 {
		t.Fatalf("events = %v, want none", host.hotkeys.events)
	}
}

func TestStopReleasesHeldCombos(t *testing.T) {
	host := &memHost{hotkeys: newMemHotkeys()}
	s, _ := newSession(t, host, hotkeyConfig("network", "button_1", "ctrl+g"))

	s.applyButtons(0b1, config.ModeNetwork)
	s.Stop()

	want := []string{"press ctrl+g", "release ctrl+g"}
	if !reflect.DeepEqual(host.hotkeys.events, want) {
		t.Fatalf("events = %v, want %v", host.hotkeys.events, want)
	}
}
