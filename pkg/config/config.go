// Package config defines the bridge settings file: typed schema,
// defaults for every field, legacy-key migration, preset handling, and
// persistence. Load never returns an unusable config; on any failure the
// caller gets the defaults plus the error to log.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
)

// ErrInvalid marks a config file that parsed or validated badly. Callers
// treat it as "use defaults, warn once".
var ErrInvalid = errors.New("invalid config")

// Mode selects which transform consumes incoming samples.
type Mode string

const (
	ModeNetwork       Mode = "network"
	ModeViewport      Mode = "viewport"
	ModeViewportFPS   Mode = "viewport_fps"
	ModeCargo         Mode = "cargo"
	ModeCargoAttached Mode = "cargo_attached"
)

// Modes lists the valid modes in display order.
func Modes() []Mode {
	return []Mode{ModeNetwork, ModeViewport, ModeViewportFPS, ModeCargo, ModeCargoAttached}
}

func (m Mode) Valid() bool {
	switch m {
	case ModeNetwork, ModeViewport, ModeViewportFPS, ModeCargo, ModeCargoAttached:
		return true
	}
	return false
}

// Preset is one named network-mode axis mapping.
type Preset struct {
	AxisMapping map[string]string `json:"axis_mapping"`
}

type NetworkSpeed struct {
	Pan  float64 `json:"pan"`
	Zoom float64 `json:"zoom"`
}

// ViewportSpeed also serves the fps fields; both carry a translate and a
// rotate factor.
type ViewportSpeed struct {
	Translate float64 `json:"translate"`
	Rotate    float64 `json:"rotate"`
}

type CargoSpeed struct {
	Rotate float64 `json:"rotate"`
}

type AutoModeSwitch struct {
	Enabled            bool `json:"enabled"`
	NetworkUnderCursor bool `json:"network_under_cursor"`
}

type HoverRefresh struct {
	Enabled  bool    `json:"enabled"`
	Hz       float64 `json:"hz"`
	Method   string  `json:"method"`
	JitterPx int     `json:"jitter_px"`
}

type Deadzone struct {
	Value float64 `json:"value"`
}

type Network struct {
	Port int `json:"port"`
}

type Config struct {
	Mode         Mode              `json:"mode"`
	ActivePreset string            `json:"active_preset"`
	Presets      map[string]Preset `json:"presets"`

	NetworkSpeed          NetworkSpeed       `json:"network_speed"`
	NetworkAxisMultiplier map[string]float64 `json:"network_axis_multiplier"`

	ViewportAxisMapping    map[string]string  `json:"viewport_axis_mapping"`
	ViewportSpeed          ViewportSpeed      `json:"viewport_speed"`
	ViewportAxisMultiplier map[string]float64 `json:"viewport_axis_multiplier"`

	FPSAxisMapping    map[string]string  `json:"fps_axis_mapping"`
	FPSSpeed          ViewportSpeed      `json:"fps_speed"`
	FPSAxisMultiplier map[string]float64 `json:"fps_axis_multiplier"`

	CargoSpeed          CargoSpeed         `json:"cargo_speed"`
	CargoAxisMapping    map[string]string  `json:"cargo_axis_mapping"`
	CargoAxisMultiplier map[string]float64 `json:"cargo_axis_multiplier"`

	CargoAttachedRotateSpeed    float64            `json:"cargo_attached_rotate_speed"`
	CargoAttachedAxisMapping    map[string]string  `json:"cargo_attached_axis_mapping"`
	CargoAttachedAxisMultiplier map[string]float64 `json:"cargo_attached_axis_multiplier"`

	ButtonHotkeys map[string]map[string]string `json:"button_hotkeys"`

	AutoModeSwitch AutoModeSwitch `json:"auto_mode_switch"`
	HoverRefresh   HoverRefresh   `json:"hover_refresh"`
	Deadzone       Deadzone       `json:"deadzone"`
	Network        Network        `json:"network"`
}

func defaultTranslateMapping() map[string]string {
	return map[string]string{
		"pan_horizontal": "x",
		"pan_vertical":   "-y",
		"zoom":           "z",
	}
}

func defaultViewportMapping() map[string]string {
	return map[string]string{
		"translate_x": "x",
		"translate_y": "y",
		"translate_z": "z",
		"rotate_x":    "rx",
		"rotate_y":    "ry",
		"rotate_z":    "rz",
	}
}

func defaultViewportMultiplier() map[string]float64 {
	return map[string]float64{
		"translate_x": 1.0,
		"translate_y": 1.0,
		"translate_z": 1.0,
		"rotate_x":    1.0,
		"rotate_y":    1.0,
		"rotate_z":    1.0,
	}
}

// Default returns a fresh config with every field at its built-in value.
func Default() *Config {
	return &Config{
		Mode:         ModeNetwork,
		ActivePreset: "translate",
		Presets: map[string]Preset{
			"translate": {AxisMapping: defaultTranslateMapping()},
			"rotate": {AxisMapping: map[string]string{
				"pan_horizontal": "-ry",
				"pan_vertical":   "-rx",
				"zoom":           "z",
			}},
		},
		NetworkSpeed: NetworkSpeed{Pan: 0.03, Zoom: 0.07},
		NetworkAxisMultiplier: map[string]float64{
			"pan_horizontal": 1.0,
			"pan_vertical":   1.0,
			"zoom":           1.0,
		},
		ViewportAxisMapping:    defaultViewportMapping(),
		ViewportSpeed:          ViewportSpeed{Translate: 0.5, Rotate: 0.3},
		ViewportAxisMultiplier: defaultViewportMultiplier(),
		FPSAxisMapping:         defaultViewportMapping(),
		FPSSpeed:               ViewportSpeed{Translate: 0.5, Rotate: 0.3},
		FPSAxisMultiplier:      defaultViewportMultiplier(),
		CargoSpeed:             CargoSpeed{Rotate: 5.0},
		CargoAxisMapping: map[string]string{
			"pitch": "rx",
			"yaw":   "-rz",
			"roll":  "-ry",
		},
		CargoAxisMultiplier: map[string]float64{
			"pitch": 1.0,
			"yaw":   1.0,
			"roll":  1.0,
		},
		CargoAttachedRotateSpeed: 5.0,
		CargoAttachedAxisMapping: map[string]string{
			"pitch": "rx",
			"yaw":   "-rz",
			"roll":  "-ry",
		},
		CargoAttachedAxisMultiplier: map[string]float64{
			"pitch": 1.0,
			"yaw":   1.0,
			"roll":  1.0,
		},
		ButtonHotkeys: map[string]map[string]string{
			"network":      {"button_1": "none", "button_2": "none"},
			"viewport":     {"button_1": "none", "button_2": "none"},
			"viewport_fps": {"button_1": "none", "button_2": "none"},
		},
		AutoModeSwitch: AutoModeSwitch{Enabled: false, NetworkUnderCursor: true},
		HoverRefresh:   HoverRefresh{Enabled: false, Hz: 30, Method: "win32", JitterPx: 1},
		Deadzone:       Deadzone{Value: 15},
		Network:        Network{Port: 19879},
	}
}

// DefaultPath is config.json next to the executable, falling back to the
// working directory.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(filepath.Dir(exe), "config.json")
}

// dropComments removes "#"-prefixed keys, which the file format treats
// as inline documentation.
func dropComments[V any](m map[string]V) {
	for k := range m {
		if len(k) > 0 && k[0] == '#' {
			delete(m, k)
		}
	}
}

func (c *Config) scrubComments() {
	dropComments(c.Presets)
	dropComments(c.NetworkAxisMultiplier)
	dropComments(c.ViewportAxisMapping)
	dropComments(c.ViewportAxisMultiplier)
	dropComments(c.FPSAxisMapping)
	dropComments(c.FPSAxisMultiplier)
	dropComments(c.CargoAxisMapping)
	dropComments(c.CargoAxisMultiplier)
	dropComments(c.CargoAttachedAxisMapping)
	dropComments(c.CargoAttachedAxisMultiplier)
	dropComments(c.ButtonHotkeys)
	for _, m := range c.ButtonHotkeys {
		dropComments(m)
	}
	for _, p := range c.Presets {
		dropComments(p.AxisMapping)
	}
}

// Load reads the file at path on top of the defaults. Absent fields keep
// their default, partial objects merge per field, and a handful of
// legacy spellings are migrated. The returned config is always usable;
// the error says why it is not what the file asked for.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	// A file that names presets owns the whole preset set.
	if _, ok := raw["presets"]; ok {
		cfg.Presets = nil
	}
	if err := json.Unmarshal(b, cfg); err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	// "speed" predates "network_speed" and loses to it.
	if legacy, ok := raw["speed"]; ok {
		if _, has := raw["network_speed"]; !has {
			if err := json.Unmarshal(legacy, &cfg.NetworkSpeed); err != nil {
				return Default(), fmt.Errorf("%w: legacy speed: %v", ErrInvalid, err)
			}
		}
	}

	// Files written before the fly mode existed mirror the viewport
	// settings into the fps fields.
	if _, ok := raw["fps_axis_mapping"]; !ok {
		cfg.FPSAxisMapping = maps.Clone(cfg.ViewportAxisMapping)
	}
	if _, ok := raw["fps_speed"]; !ok {
		cfg.FPSSpeed = cfg.ViewportSpeed
	}
	if _, ok := raw["fps_axis_multiplier"]; !ok {
		cfg.FPSAxisMultiplier = maps.Clone(cfg.ViewportAxisMultiplier)
	}

	// Attached-mode settings mirror cargo when absent.
	if _, ok := raw["cargo_attached_rotate_speed"]; !ok {
		cfg.CargoAttachedRotateSpeed = cfg.CargoSpeed.Rotate
	}
	if _, ok := raw["cargo_attached_axis_mapping"]; !ok {
		cfg.CargoAttachedAxisMapping = maps.Clone(cfg.CargoAxisMapping)
	}
	if _, ok := raw["cargo_attached_axis_multiplier"]; !ok {
		cfg.CargoAttachedAxisMultiplier = maps.Clone(cfg.CargoAxisMultiplier)
	}

	cfg.scrubComments()

	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, c.Mode)
	}
	if c.Network.Port < 1 || c.Network.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Network.Port)
	}
	if c.Deadzone.Value < 0 {
		return fmt.Errorf("%w: negative deadzone %v", ErrInvalid, c.Deadzone.Value)
	}
	if c.HoverRefresh.Hz <= 0 {
		return fmt.Errorf("%w: hover refresh hz %v", ErrInvalid, c.HoverRefresh.Hz)
	}
	return nil
}

// Save writes the config with the usual four-space indent, going through
// a temp file so a crash cannot leave a half-written config behind.
func (c *Config) Save(path string) error {
	b, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ActiveMapping resolves the active preset into the network-mode axis
// mapping. Unknown presets fall back to the translate preset, then to
// the built-in translate mapping.
func (c *Config) ActiveMapping() map[string]string {
	if p, ok := c.Presets[c.ActivePreset]; ok && p.AxisMapping != nil {
		return p.AxisMapping
	}
	if p, ok := c.Presets["translate"]; ok && p.AxisMapping != nil {
		return p.AxisMapping
	}
	return defaultTranslateMapping()
}

// PresetNames lists the available presets, sorted.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SwitchPreset reloads the file, activates the named preset, and writes
// the file back. A missing file is fine; a missing preset is not.
func SwitchPreset(path, name string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if _, ok := cfg.Presets[name]; !ok {
		return nil, fmt.Errorf("preset %q not found (have %v)", name, cfg.PresetNames())
	}
	cfg.ActivePreset = name
	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return cfg, nil
}
