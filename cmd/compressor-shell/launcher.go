package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/smart-compressor/compressor-go/internal/config"
	"github.com/smart-compressor/compressor-go/internal/probe"
	"github.com/smart-compressor/compressor-go/internal/shell"
	"github.com/smart-compressor/compressor-go/internal/sidecar"
)

// statusSink is what the launcher needs from the tray application.
type statusSink interface {
	SetBackendStatus(shell.BackendStatus)
	NotifyBackendUnavailable(reason string)
}

// launcher runs the backend's output relay and readiness probe as
// independent background tasks so startup never blocks the tray loop.
type launcher struct {
	cfg        *config.Config
	logger     *zap.SugaredLogger
	supervisor *sidecar.Supervisor
	prober     *probe.Prober
	status     statusSink

	relayDone chan struct{}
	probeDone chan struct{}
}

func newLauncher(
	cfg *config.Config,
	logger *zap.SugaredLogger,
	supervisor *sidecar.Supervisor,
	prober *probe.Prober,
	status statusSink,
) *launcher {
	return &launcher{
		cfg:        cfg,
		logger:     logger,
		supervisor: supervisor,
		prober:     prober,
		status:     status,
		relayDone:  make(chan struct{}),
		probeDone:  make(chan struct{}),
	}
}

// start launches both background tasks. The relay runs until the backend
// terminates; the probe until readiness, exhaustion, or cancellation.
// Neither waits on the other.
func (l *launcher) start(ctx context.Context) {
	l.status.SetBackendStatus(shell.BackendStatusStarting)

	go l.runRelay(ctx)
	go l.runProbe(ctx)
}

func (l *launcher) runRelay(ctx context.Context) {
	defer close(l.relayDone)
	l.supervisor.Relay(ctx)
}

func (l *launcher) runProbe(ctx context.Context) {
	defer close(l.probeDone)

	l.status.SetBackendStatus(shell.BackendStatusProbing)

	if err := l.prober.WaitForReady(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		l.logger.Warnw("Backend failed to become ready", "error", err)
		l.logger.Warn("The application may not function correctly")
		l.status.SetBackendStatus(shell.BackendStatusDegraded)
		l.status.NotifyBackendUnavailable(err.Error())
		return
	}

	l.status.SetBackendStatus(shell.BackendStatusReady)
}
