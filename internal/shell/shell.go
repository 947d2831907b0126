// Package shell hosts the desktop surface of the application: a system tray
// icon with a status line and the close-requested handling for the backend
// sidecar.
package shell

import (
	"context"
	_ "embed"
	"runtime"

	"fyne.io/systray"
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

const appName = "Smart Compressor"

//go:embed icon.png
var iconData []byte

// BackendStatus describes the backend lifecycle as shown to the user.
type BackendStatus string

const (
	BackendStatusStarting BackendStatus = "starting"
	BackendStatusProbing  BackendStatus = "probing"
	BackendStatusReady    BackendStatus = "ready"
	BackendStatusDegraded BackendStatus = "degraded"
	BackendStatusStopped  BackendStatus = "stopped"
)

// statusLabel maps a backend status to the tray status line.
func statusLabel(status BackendStatus) string {
	switch status {
	case BackendStatusStarting:
		return "Status: Starting backend..."
	case BackendStatusProbing:
		return "Status: Waiting for backend..."
	case BackendStatusReady:
		return "Status: Ready"
	case BackendStatusDegraded:
		return "Status: Backend unavailable"
	case BackendStatusStopped:
		return "Status: Backend stopped"
	default:
		return "Status: Unknown"
	}
}

// App is the system tray application. The Quit menu item is the
// close-requested notification of this shell.
type App struct {
	logger   *zap.SugaredLogger
	version  string
	shutdown func()

	statusItem *systray.MenuItem
	statusCh   chan BackendStatus

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the tray application. shutdown is invoked once when the user
// closes the application, before the tray loop exits.
func New(logger *zap.SugaredLogger, version string, shutdown func()) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		logger:   logger,
		version:  version,
		shutdown: shutdown,
		statusCh: make(chan BackendStatus, 8),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run starts the tray event loop. It blocks until the user quits or ctx is
// cancelled; the backend tasks run independently of this loop.
func (a *App) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.logger.Info("Context cancelled, quitting tray")
		a.cancel()
		systray.Quit()
	}()

	systray.Run(a.onReady, a.onExit)

	return ctx.Err()
}

// SetBackendStatus updates the tray status line. Safe to call from any
// goroutine; updates are dropped rather than blocking the caller.
func (a *App) SetBackendStatus(status BackendStatus) {
	select {
	case a.statusCh <- status:
	default:
	}
}

// NotifyBackendUnavailable raises a desktop notification after the readiness
// probe has given up. Failures here are log-only; the notification is best
// effort.
func (a *App) NotifyBackendUnavailable(reason string) {
	if err := beeep.Notify(appName, "The backend did not start: "+reason+"\nThe application may not function correctly.", ""); err != nil {
		a.logger.Warnw("Failed to show desktop notification", "error", err)
	}
}

func (a *App) onReady() {
	a.logger.Info("System tray ready")

	systray.SetTooltip(appName)
	if len(iconData) > 0 {
		systray.SetIcon(iconData)
		if runtime.GOOS == "darwin" {
			systray.SetTemplateIcon(iconData, iconData)
		}
	}

	a.statusItem = systray.AddMenuItem(statusLabel(BackendStatusStarting), "Backend status")
	a.statusItem.Disable()

	systray.AddSeparator()

	mQuit := systray.AddMenuItem("Quit "+appName, "Quit the application")

	go func() {
		for {
			select {
			case status := <-a.statusCh:
				a.statusItem.SetTitle(statusLabel(status))
			case <-mQuit.ClickedCh:
				a.logger.Info("Closing application, backend will be shut down")
				if a.shutdown != nil {
					a.shutdown()
				}
				systray.Quit()
				return
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

func (a *App) onExit() {
	a.logger.Infow("Tray exited", "version", a.version)
	a.cancel()
}
