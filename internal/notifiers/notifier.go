// Package notifiers implements notification mechanisms for cleanup-run events.
package notifiers

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/config"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/notifiers/discord"
)

var (
	// ErrNotifiersDisabled is returned when notifiers are globally disabled.
	ErrNotifiersDisabled = errors.New("notifiers are disabled")

	// ErrNotifierDisabled is returned when a specific notifier is disabled.
	ErrNotifierDisabled = errors.New("notifier is disabled")
)

// NotifiersIface defines the interface that all notifier implementations
// must satisfy.
// revive:disable-next-line exported
type NotifiersIface interface {
	Enabled() bool
	NotifyRunSuccess(ctx context.Context, release, provider string, message string) error
	NotifyRunFailure(ctx context.Context, release string, runErr string) error
}

// NotifierStoreIface defines the interface for managing multiple notifiers.
type NotifierStoreIface interface {
	Enabled() bool
	NotifyRunSuccess(ctx context.Context, release, provider string, message string) error
	NotifyRunFailure(ctx context.Context, release string, runErr string) error
	InitStore() error
}

// Notifier manages multiple notifier implementations.
type Notifier struct {
	cfg   *config.Config
	mu    sync.RWMutex
	store []NotifiersIface
}

func (n *Notifier) register(nf NotifiersIface) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.store = append(n.store, nf)
}

// Enabled checks if notifiers are globally enabled in the configuration.
func (n *Notifier) Enabled() bool {
	return n.cfg.Notifiers.Enabled
}

// NotifyRunSuccess announces a completed cleanup run on all enabled
// notifiers. Notification errors are logged, never propagated as failures.
func (n *Notifier) NotifyRunSuccess(ctx context.Context, release, provider string, message string) error {
	if !n.Enabled() {
		return ErrNotifierDisabled
	}

	for _, notifier := range n.store {
		if !notifier.Enabled() {
			slog.DebugContext(ctx, "Notifier disabled; skipping NotifyRunSuccess")
			continue
		}
		if err := notifier.NotifyRunSuccess(ctx, release, provider, message); err != nil {
			slog.ErrorContext(ctx, "Failed to send NotifyRunSuccess", "error", err)
		}
	}

	return nil
}

// NotifyRunFailure announces a failed cleanup run on all enabled notifiers.
func (n *Notifier) NotifyRunFailure(ctx context.Context, release string, runErr string) error {
	if !n.Enabled() {
		return ErrNotifierDisabled
	}

	for _, notifier := range n.store {
		if !notifier.Enabled() {
			slog.DebugContext(ctx, "Notifier disabled; skipping NotifyRunFailure")
			continue
		}
		if err := notifier.NotifyRunFailure(ctx, release, runErr); err != nil {
			slog.ErrorContext(ctx, "Failed to send NotifyRunFailure", "error", err)
		}
	}

	return nil
}

// InitStore initializes and registers all available notifiers.
func (n *Notifier) InitStore() error {
	d, err := discord.NewDiscordNotifier(n.cfg)
	if err != nil {
		return err
	}

	n.register(d)

	return nil
}

// NewNotifier creates a new Notifier instance with the provided configuration.
func NewNotifier(cfg *config.Config) NotifierStoreIface {
	return &Notifier{cfg: cfg}
}
