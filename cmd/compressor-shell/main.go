package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smart-compressor/compressor-go/internal/config"
	"github.com/smart-compressor/compressor-go/internal/logs"
	"github.com/smart-compressor/compressor-go/internal/probe"
	"github.com/smart-compressor/compressor-go/internal/shell"
	"github.com/smart-compressor/compressor-go/internal/sidecar"
)

var (
	configFile string
	logLevel   string
	logToFile  bool
	logDir     string

	version = "v0.1.0" // This will be injected by -ldflags during build
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "compressor-shell",
		Short:   "Smart Compressor - desktop shell for the bundled compression backend",
		Version: version,
		RunE:    runShell,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	registerLoggingFlags(rootCmd.PersistentFlags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runShell(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	applyLoggingFlags(cmd.Flags(), cfg)

	logger, err := logs.SetupLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	sugar := logger.Sugar()

	sugar.Infow("Starting compressor-shell",
		"version", version,
		"backend_url", cfg.Backend.BaseURL)

	// Locate the bundled backend before any UI appears. Failure here aborts
	// startup.
	binary, err := sidecar.ResolveBinary(cfg.Backend.BinaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve backend binary: %w", err)
	}
	sugar.Infow("Resolved backend binary", "path", binary)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle := sidecar.NewHandle()
	supervisor := sidecar.New(binary, handle, sugar, logs.BackendLogger(logger))
	prober := probe.New(cfg.Backend, sugar)

	var shutdownOnce sync.Once
	shutdownFunc := func() {
		shutdownOnce.Do(func() {
			sugar.Info("Shutting down backend")
			if err := supervisor.Stop(cfg.Backend.StopGracePeriod); err != nil {
				sugar.Warnw("Backend shutdown", "error", err)
			}
			cancel()
		})
	}
	trayApp := shell.New(sugar, version, shutdownFunc)

	// Spawn the backend. Spawn failure is fatal to startup, same as binary
	// resolution.
	if err := supervisor.Start(); err != nil {
		return fmt.Errorf("failed to start backend: %w", err)
	}
	if pid, ok := handle.Get(); ok {
		sugar.Infow("Backend process tracked", "pid", pid)
	}

	l := newLauncher(cfg, sugar, supervisor, prober, trayApp)
	l.start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		sugar.Info("Received shutdown signal, backend will be shut down")
		shutdownFunc()
	}()

	sugar.Info("Starting tray event loop")
	if err := trayApp.Run(ctx); err != nil && err != context.Canceled {
		sugar.Errorw("Tray application error", "error", err)
	}

	shutdownFunc()
	sugar.Info("compressor-shell shutdown complete")
	return nil
}

func registerLoggingFlags(fs *pflag.FlagSet) {
	fs.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&logToFile, "log-to-file", true, "Enable logging to file in standard OS location")
	fs.StringVar(&logDir, "log-dir", "", "Custom log directory path (overrides standard OS location)")
}

// applyLoggingFlags overlays explicitly set logging flags on the loaded
// config. Flags the user did not pass leave file and environment values
// alone.
func applyLoggingFlags(fs *pflag.FlagSet, cfg *config.Config) {
	if cfg.Logging == nil {
		cfg.Logging = config.DefaultConfig().Logging
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if fs.Changed("log-to-file") {
		cfg.Logging.EnableFile = logToFile
	}
	if fs.Changed("log-dir") {
		cfg.Logging.LogDir = logDir
	}
}
