// Package shutdown cancels a coverage run on SIGINT/SIGTERM and runs the
// registered cleanup callbacks.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Handler manages graceful shutdown.
type Handler struct {
	mu sync.Mutex

	// Callbacks
	callbacks     []Callback
	callbackNames []string

	// State
	isShuttingDown atomic.Bool
	done           chan struct{}
	timeout        time.Duration

	// Context
	ctx    context.Context
	cancel context.CancelFunc

	// Signal handling
	sigChan  chan os.Signal
	stop     chan struct{}
	stopOnce sync.Once

	// Notification
	onSignal       func(os.Signal)
	onShutdownDone func(elapsed time.Duration, errors []error)
}

// Callback is a function called during shutdown.
type Callback func(ctx context.Context) error

// Config holds shutdown configuration.
type Config struct {
	Timeout        time.Duration
	Signals        []os.Signal
	OnSignal       func(os.Signal)
	OnShutdownDone func(elapsed time.Duration, errors []error)
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// New creates a new shutdown handler derived from parent.
func New(parent context.Context, cfg Config) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = DefaultConfig().Signals
	}

	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		done:           make(chan struct{}),
		timeout:        cfg.Timeout,
		ctx:            ctx,
		cancel:         cancel,
		sigChan:        make(chan os.Signal, 1),
		stop:           make(chan struct{}),
		onSignal:       cfg.OnSignal,
		onShutdownDone: cfg.OnShutdownDone,
	}

	signal.Notify(h.sigChan, cfg.Signals...)
	go h.listen()

	return h
}

// listen waits for a signal and shuts down.
func (h *Handler) listen() {
	select {
	case sig := <-h.sigChan:
		if h.onSignal != nil {
			h.onSignal(sig)
		}
		h.shutdown()
	case <-h.stop:
	}
}

// Register registers a shutdown callback with a name.
func (h *Handler) Register(name string, callback Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.callbacks = append(h.callbacks, callback)
	h.callbackNames = append(h.callbackNames, name)
}

// Context returns the run context. It is cancelled when shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// shutdown cancels the context and runs the callbacks in reverse
// registration order. Later calls are no-ops.
func (h *Handler) shutdown() {
	if !h.isShuttingDown.CompareAndSwap(false, true) {
		return
	}

	start := time.Now()
	signal.Stop(h.sigChan)
	h.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), h.timeout)
	defer shutdownCancel()

	h.mu.Lock()
	callbacks := append([]Callback(nil), h.callbacks...)
	names := append([]string(nil), h.callbackNames...)
	h.mu.Unlock()

	var errs []error
	for i := len(callbacks) - 1; i >= 0; i-- {
		if err := h.executeCallback(shutdownCtx, names[i], callbacks[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if h.onShutdownDone != nil {
		h.onShutdownDone(time.Since(start), errs)
	}

	close(h.done)
}

// Close stops listening for signals, shuts down and returns once every
// callback has finished, including a shutdown already started by a signal.
func (h *Handler) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.shutdown()
	<-h.done
}

// executeCallback executes a shutdown callback with timeout handling.
func (h *Handler) executeCallback(ctx context.Context, name string, callback Callback) error {
	done := make(chan error, 1)

	go func() {
		done <- callback(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &TimeoutError{CallbackName: name}
	}
}

// TimeoutError is returned when a callback times out.
type TimeoutError struct {
	CallbackName string
}

func (e *TimeoutError) Error() string {
	return "shutdown callback timed out: " + e.CallbackName
}
