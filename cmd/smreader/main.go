// Command smreader is the SpaceMouse reader daemon. It polls the device,
// streams normalized samples to the in-host receiver over loopback UDP,
// and keeps a live status line on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/hid"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/liveness"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/internal/readerd"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/config"
	"github.com/Ced04826/SpaceMouseCustom-for-SidefxHoudini/pkg/spacemouse"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file `path` (default: config.json next to the executable)")
		port       = flag.Int("port", 0, "UDP `port` override (default: from config)")
		deadzone   = flag.Int("deadzone", -1, "deadzone override in raw counts (default: from config)")
		monitorPID = flag.Int("monitor-pid", 0, "exit when this host `pid` is gone (default: learned from the receiver)")
		backend    = flag.String("backend", "", "HID backend: hidapi (default), usbhid, or win32 on Windows")
		list       = flag.Bool("list", false, "list HID interfaces and raw USB devices, then exit")
		check      = flag.Bool("check", false, "probe for a running reader and exit (status 0 when one is running)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *list {
		os.Exit(runList(*backend))
	}
	if *check {
		os.Exit(runCheck(*configPath, *port))
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer stop()

	err := readerd.Run(ctx, readerd.Options{
		ConfigPath: *configPath,
		Port:       *port,
		Deadzone:   *deadzone,
		MonitorPID: *monitorPID,
		Backend:    *backend,
		Status:     os.Stdout,
	})
	if err != nil {
		if errors.Is(err, liveness.ErrAlreadyRunning) {
			slog.Error("another reader already owns this port, exiting")
			os.Exit(2)
		}
		slog.Error("reader failed", slog.Any("error", err))
		os.Exit(1)
	}
	// Move past the status line so the shell prompt starts clean.
	fmt.Println()
}

// runList prints every 3Dconnexion interface the HID layer can see, then
// the raw USB view. A device that shows up raw but not via HID usually
// means a driver or permission problem, not a missing device.
func runList(backend string) int {
	mgr, err := hid.NewManager(backend)
	if err != nil {
		slog.Error("hid backend", slog.Any("error", err))
		return 1
	}
	defer mgr.Close()

	infos, err := mgr.List(spacemouse.VendorID)
	if err != nil {
		slog.Error("hid enumerate", slog.Any("error", err))
		return 1
	}
	if len(infos) == 0 {
		fmt.Println("hid: no 3Dconnexion interfaces found")
	}
	for _, info := range infos {
		fmt.Printf("hid: %s\n", info.String())
	}

	raw, err := hid.RawList(spacemouse.VendorID)
	if err != nil {
		fmt.Printf("raw usb: %v\n", err)
		return 0
	}
	if len(raw) == 0 {
		fmt.Println("raw usb: no 3Dconnexion devices found")
	}
	for _, info := range raw {
		fmt.Printf("raw usb: %s\n", info.String())
	}
	if len(infos) == 0 && len(raw) > 0 {
		fmt.Println("device present on the bus but not visible to HID; check drivers/permissions")
	}
	return 0
}

// runCheck probes the single-instance record for the effective port.
func runCheck(configPath string, port int) int {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("loading config failed, using defaults", slog.String("path", configPath), slog.Any("error", err))
	}
	if port == 0 {
		port = cfg.Network.Port
	}

	dir, err := liveness.DefaultDir()
	if err != nil {
		slog.Error("state dir", slog.Any("error", err))
		return 1
	}
	path := liveness.FilePath(dir, port)
	if liveness.ReaderRunning(path) {
		fmt.Printf("reader running on port %d (record %s)\n", port, path)
		return 0
	}
	fmt.Printf("no reader running on port %d\n", port)
	return 1
}
