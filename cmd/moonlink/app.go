package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/moonlink/internal/device"
	goble "github.com/srg/moonlink/internal/device/go-ble"
	tinyble "github.com/srg/moonlink/internal/device/tinygo"
	"github.com/srg/moonlink/internal/eventbus"
	"github.com/srg/moonlink/internal/link"
	"github.com/srg/moonlink/internal/locator"
	"github.com/srg/moonlink/internal/session"
	"github.com/srg/moonlink/internal/transfer"
	"github.com/srg/moonlink/pkg/config"
)

// newRadio creates the Bluetooth backend (can be overridden in tests)
var newRadio = func(backend string, logger *logrus.Logger) (device.Backend, error) {
	if backend == config.BackendAuto {
		backend = config.BackendTinyGo
		if runtime.GOOS == "darwin" {
			backend = config.BackendGoBLE
		}
	}

	switch backend {
	case config.BackendGoBLE:
		return goble.NewAdapter(logger), nil
	case config.BackendTinyGo:
		return tinyble.NewAdapter(nil, logger), nil
	default:
		return nil, device.Newf(device.Unsupported, "unknown backend %q", backend)
	}
}

// app is the wired object graph shared by the commands
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	transfer *transfer.Config
	manager  *link.Manager
}

// loadConfig reads --config and applies the global flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level, err := resolveLogLevel(cmd, "verbose", cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("device-name") {
		cfg.DeviceName, _ = flags.GetString("device-name")
	}
	if flags.Changed("scan-timeout") {
		cfg.ScanTimeout, _ = flags.GetDuration("scan-timeout")
	}
	if flags.Changed("chunk-size") {
		cfg.Transfer.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("delay") {
		cfg.Transfer.InterChunkDelay, _ = flags.GetDuration("delay")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires config, radio, locator, session, transmitter and manager
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger()

	radio, err := newRadio(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}

	tcfg := transfer.NewConfig(cfg.Transfer)
	manager := link.New(
		locator.New(radio, logger),
		session.New(radio, logger),
		transfer.NewTransmitter(tcfg, logger),
		eventbus.New[link.Event](),
		logger,
		link.WithDeviceName(cfg.DeviceName),
		link.WithScanTimeout(cfg.ScanTimeout),
		link.WithConnectTimeout(cfg.ConnectTimeout),
	)

	logger.WithFields(logrus.Fields{
		"backend":     cfg.Backend,
		"device_name": cfg.DeviceName,
		"chunk_size":  tcfg.ChunkSize(),
		"delay":       tcfg.InterChunkDelay(),
	}).Debug("moonlink configured")

	return &app{cfg: cfg, logger: logger, transfer: tcfg, manager: manager}, nil
}

// acquire registers an owner, bounding the whole connect sequence by scan plus
// connect timeouts. The caller must Release even when acquire fails.
func (a *app) acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ScanTimeout+a.cfg.ConnectTimeout)
	defer cancel()

	if err := a.manager.Acquire(ctx); err != nil {
		return fmt.Errorf("failed to connect to board: %w", err)
	}
	return nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext(logger *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Debug("Shutting down...")
	}()
	return ctx, cancel
}
