package readerd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/wire"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/config"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/spacemouse"
)

const (
	// statusHz throttles status updates. Terminal writes on Windows are
	// slow enough to add jitter to the device loop at full rate.
	statusHz = 20

	// statusWidth clamps the line so it never wraps; a wrapped line
	// breaks the carriage-return overwrite and floods the terminal.
	statusWidth = 80

	// maxStatusButtons bounds the per-button detail on the line.
	maxStatusButtons = 6
)

// unboundSpellings are config values that mean "no binding", shown on
// the status line as a bare button number.
var unboundSpellings = map[string]bool{
	"none":     true,
	"off":      true,
	"disabled": true,
	"disable":  true,
	"null":     true,
}

// statusLine renders the reader's single live-updating terminal line.
// Button combo names come from the config file, re-read only when its
// mtime changes. A nil statusLine discards everything.
type statusLine struct {
	w        io.Writer
	cfgPath  string
	interval time.Duration

	printedAt time.Time
	cfgMtime  time.Time
	mode      string
	bindings  map[string]map[string]string
}

func newStatusLine(w io.Writer, cfgPath string) *statusLine {
	if w == nil {
		return nil
	}
	return &statusLine{
		w:        w,
		cfgPath:  cfgPath,
		interval: time.Second / statusHz,
		mode:     string(config.ModeNetwork),
	}
}

// maybePrint rewrites the line when the throttle allows it. A button
// change prints immediately so presses never look dropped.
func (s *statusLine) maybePrint(axes spacemouse.Axes, mask int, perf *wire.Perf, force bool, now time.Time) {
	if s == nil {
		return
	}
	if !force && now.Sub(s.printedAt) < s.interval {
		return
	}
	s.printedAt = now
	fmt.Fprint(s.w, "\r"+s.format(axes, mask, perf))
}

func (s *statusLine) format(axes spacemouse.Axes, mask int, perf *wire.Perf) string {
	var b strings.Builder
	fmt.Fprintf(&b, "X:%+.2f Y:%+.2f Z:%+.2f | RX:%+.2f RY:%+.2f RZ:%+.2f",
		axes.X, axes.Y, axes.Z, axes.RX, axes.RY, axes.RZ)
	if mask != 0 {
		b.WriteString(s.buttons(mask))
	}
	if perf != nil {
		fmt.Fprintf(&b, " | LAT:%sms P90:%sms B:%d Hz:%s",
			fmtStat(perf.LatencyLastMS), fmtStat(perf.LatencyP90MS),
			perf.BacklogStepsLast, fmtStat(perf.ApplyHz))
	}

	line := b.String()
	max := statusWidth - 1
	if len(line) > max {
		line = line[:max]
	}
	return line + strings.Repeat(" ", max-len(line))
}

// buttons renders the pressed-button summary: the full mask in hex, an
// overflow count, then up to maxStatusButtons entries with their combo
// names where the config binds one.
func (s *statusLine) buttons(mask int) string {
	s.refreshBindings()
	modeMap := s.bindings[s.mode]

	var pressed []int
	for bit := 0; bit < 16; bit++ {
		if mask&(1<<bit) != 0 {
			pressed = append(pressed, bit+1)
		}
	}

	shown := pressed
	if len(shown) > maxStatusButtons {
		shown = shown[:maxStatusButtons]
	}
	parts := make([]string, 0, len(shown))
	for _, button := range shown {
		if combo, ok := displayCombo(modeMap, button); ok {
			parts = append(parts, fmt.Sprintf("B%d:%s", button, combo))
		} else {
			parts = append(parts, fmt.Sprintf("B%d", button))
		}
	}

	extra := ""
	if n := len(pressed) - len(shown); n > 0 {
		extra = fmt.Sprintf(" +%d", n)
	}
	return fmt.Sprintf(" BTN:%04X%s %s", mask, extra, strings.Join(parts, " "))
}

// refreshBindings re-reads mode and hotkey names when the config file
// changed. Unreadable files keep the previous bindings.
func (s *statusLine) refreshBindings() {
	fi, err := os.Stat(s.cfgPath)
	if err != nil {
		return
	}
	if !s.cfgMtime.IsZero() && fi.ModTime().Equal(s.cfgMtime) {
		return
	}
	s.cfgMtime = fi.ModTime()

	cfg, err := config.Load(s.cfgPath)
	if err != nil {
		return
	}
	s.mode = string(cfg.Mode)
	s.bindings = cfg.ButtonHotkeys
}

// displayCombo resolves the binding shown next to a button number.
// Both "button_3" and plain "3" key spellings are accepted.
func displayCombo(modeMap map[string]string, button int) (string, bool) {
	combo, ok := modeMap[fmt.Sprintf("button_%d", button)]
	if !ok {
		combo, ok = modeMap[strconv.Itoa(button)]
	}
	if !ok {
		return "", false
	}
	combo = strings.TrimSpace(combo)
	if combo == "" || unboundSpellings[strings.ToLower(combo)] {
		return "", false
	}
	return combo, true
}

func fmtStat(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}
