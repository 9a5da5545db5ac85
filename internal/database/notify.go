package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// ConfigChannel is the Postgres notification channel used to signal that
// administration edits changed rule, pairing, schedule or target state.
const ConfigChannel = "config_changed"

// Notifier is the config change propagation bus, built on Postgres
// LISTEN/NOTIFY. Delivery is best-effort: rapid successive notifications
// coalesce into a single handler run, and handlers must be idempotent.
type Notifier struct {
	db     *bun.DB
	logger *zap.Logger

	mu       sync.Mutex
	handlers []func(ctx context.Context)

	listener *pgdriver.Listener
	kick     chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}

	closeOnce sync.Once
}

// NewNotifier creates a notifier bound to the given connection.
func NewNotifier(db *bun.DB, logger *zap.Logger) *Notifier {
	return &Notifier{
		db:     db,
		logger: logger.Named("config_notify"),
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Notify signals that configuration state changed. Called after every
// successful administration write.
func (n *Notifier) Notify(ctx context.Context) error {
	if err := pgdriver.Notify(ctx, n.db, ConfigChannel, ""); err != nil {
		return fmt.Errorf("failed to notify config change: %w", err)
	}

	return nil
}

// Subscribe registers a handler invoked on config change notifications.
// Handlers run sequentially on a dedicated goroutine; they must tolerate
// being invoked twice for one logical change.
func (n *Notifier) Subscribe(handler func(ctx context.Context)) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.handlers = append(n.handlers, handler)
}

// Start opens the LISTEN connection and begins dispatching notifications.
func (n *Notifier) Start(ctx context.Context) error {
	listener := pgdriver.NewListener(n.db)
	if err := listener.Listen(ctx, ConfigChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ConfigChannel, err)
	}

	n.listener = listener

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	n.cancel = cancel

	// Receiving and handling are decoupled through a buffered kick channel
	// so a burst of notifications during a slow reload collapses into one
	// additional handler run.
	go func() {
		for range listener.Channel() {
			select {
			case n.kick <- struct{}{}:
			default:
			}
		}
	}()

	go func() {
		defer close(n.done)

		for {
			select {
			case <-runCtx.Done():
				return
			case <-n.kick:
				n.logger.Info("Config change notification received")
				n.runHandlers(runCtx)
			}
		}
	}()

	n.logger.Info("Listening for config changes", zap.String("channel", ConfigChannel))

	return nil
}

func (n *Notifier) runHandlers(ctx context.Context) {
	n.mu.Lock()
	handlers := make([]func(ctx context.Context), len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.Unlock()

	for _, handler := range handlers {
		handler(ctx)
	}
}

// Close stops dispatching and releases the LISTEN connection.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		if n.cancel != nil {
			n.cancel()
			<-n.done
		}

		if n.listener != nil {
			if err := n.listener.Close(); err != nil {
				n.logger.Warn("Failed to close config listener", zap.Error(err))
			}
		}
	})
}
