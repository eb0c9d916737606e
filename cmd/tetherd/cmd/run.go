package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/plexsphere/tetherd/internal/connman"
	"github.com/plexsphere/tetherd/internal/eventloop"
	"github.com/plexsphere/tetherd/internal/linkstate"
	"github.com/plexsphere/tetherd/internal/modeswitch"
	"github.com/plexsphere/tetherd/internal/supplicant"
	"github.com/plexsphere/tetherd/internal/tether"
)

// drainTimeout is the maximum time the event loop gets to release the
// plugin after a shutdown signal.
const drainTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tethering daemon",
	Long: "Connect to the system bus, follow ConnMan's Wi-Fi tethering state and\n" +
		"switch the chip mode on every change until terminated.",
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	// 1. Parse config.
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("tetherd run: %w", err)
	}

	// 2. Set up structured logger.
	logger := setupLogger(cfg.LogLevel)

	logger.Info("starting tetherd",
		"version", buildVersion,
		"device", cfg.ModeSwitch.DevicePath,
		"bus", cfg.Supplicant.Bus,
	)

	// 3. Connect to the message bus.
	conn, err := connectBus(cfg.Supplicant.Bus)
	if err != nil {
		return fmt.Errorf("tetherd run: connect %s bus: %w", cfg.Supplicant.Bus, err)
	}
	defer conn.Close()

	// 4. Create the event loop every component runs on.
	loop := eventloop.New(cfg.EventLoop, logger)

	// 5. Create the supplicant client and the ConnMan watcher.
	client := supplicant.NewClient(conn, loop, cfg.Supplicant, logger)
	if err := client.Start(); err != nil {
		return fmt.Errorf("tetherd run: %w", err)
	}
	defer client.Close()

	watcher := connman.NewWatcher(conn, loop, cfg.ConnMan, logger)
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("tetherd run: %w", err)
	}
	defer watcher.Stop()

	// 6. Create the plugin.
	device := modeswitch.NewDevice(cfg.ModeSwitch, logger)
	plugin := tether.NewPlugin(device, client, loop, cfg.Tether, logger)
	if !cfg.LinkState.Disabled {
		plugin.SetLinkDescriber(linkstate.NewReporter(cfg.LinkState, logger))
	}

	initErr := make(chan error, 1)
	if err := loop.Post(func() { initErr <- plugin.Init(watcher) }); err != nil {
		return fmt.Errorf("tetherd run: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	fatal := make(chan error, 1)

	// Release the plugin on the loop, then stop it.
	go func() {
		select {
		case err := <-initErr:
			if err != nil {
				fatal <- err
				stopLoop()
				return
			}
		case <-loopCtx.Done():
			return
		}

		select {
		case <-ctx.Done():
		case <-loopCtx.Done():
			return
		}
		logger.Info("shutting down", "reason", ctx.Err())

		released := loop.Post(func() {
			plugin.Exit()
			client.Unref()
			stopLoop()
		})
		if released != nil {
			stopLoop()
			return
		}

		select {
		case <-loopCtx.Done():
		case <-time.After(drainTimeout):
			logger.Warn("drain timeout exceeded, forcing exit")
			stopLoop()
		}
	}()

	// 7. Dispatch until shutdown.
	_ = loop.Run(loopCtx)

	select {
	case err := <-fatal:
		return fmt.Errorf("tetherd run: %w", err)
	default:
	}

	logger.Info("tetherd stopped")
	return nil
}

// connectBus opens a shared connection to the named bus.
func connectBus(bus string) (*dbus.Conn, error) {
	switch bus {
	case "session":
		return dbus.ConnectSessionBus()
	case "system":
		return dbus.ConnectSystemBus()
	default:
		return nil, fmt.Errorf("unknown bus %q", bus)
	}
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
