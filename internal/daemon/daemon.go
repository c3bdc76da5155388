package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/focusshift/zeiterfassung/internal/publicholiday"
	"go.uber.org/zap"
)

// Consumer is a long-running event consumer
type Consumer interface {
	Run(ctx context.Context) error
}

// Warmer preloads public holidays into a cache
type Warmer interface {
	Warm(ctx context.Context, years []int, states []publicholiday.FederalState) error
}

// Options configures the daemon. Consumer and Warmer are optional.
type Options struct {
	Server          *http.Server
	Consumer        Consumer
	Warmer          Warmer
	WarmUpInterval  time.Duration
	ShutdownTimeout time.Duration
}

// Daemon represents the daemon process
type Daemon struct {
	server          *http.Server
	consumer        Consumer
	warmer          Warmer
	warmUpInterval  time.Duration
	shutdownTimeout time.Duration
	logger          *zap.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	now             func() time.Time
	mu              sync.Mutex // Protect against concurrent warm-ups
	warmRunning     bool
	lastWarmAt      time.Time
}

// NewDaemon creates a new daemon instance
func NewDaemon(opts Options, logger *zap.Logger) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())

	warmUpInterval := opts.WarmUpInterval
	if warmUpInterval <= 0 {
		warmUpInterval = 12 * time.Hour
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	return &Daemon{
		server:          opts.Server,
		consumer:        opts.Consumer,
		warmer:          opts.Warmer,
		warmUpInterval:  warmUpInterval,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
		now:             time.Now,
	}
}

// Start runs the daemon until a signal arrives, Stop is called or the HTTP server fails
func (d *Daemon) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			d.logger.Info("Received signal, shutting down",
				zap.String("signal", sig.String()))
			d.Stop()
		case <-d.ctx.Done():
		}
	}()

	return d.run()
}

// run starts every component and blocks until the daemon context ends
func (d *Daemon) run() error {
	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	if d.server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.logger.Info("HTTP server starting", zap.String("addr", d.server.Addr))
			if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("http server: %w", err)
				d.Stop()
			}
		}()
	}

	if d.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.consumer.Run(d.ctx); err != nil {
				d.logger.Error("Stream consumer failed", zap.Error(err))
			}
		}()
	}

	if d.warmer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.warmUpLoop()
		}()
	}

	<-d.ctx.Done()

	if d.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), d.shutdownTimeout)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.logger.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}

	wg.Wait()
	d.logger.Info("Daemon stopped")

	select {
	case err := <-serverErr:
		return err
	default:
		return nil
	}
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	d.cancel()
}

// warmUpLoop warms the holiday cache immediately and then on every tick
func (d *Daemon) warmUpLoop() {
	d.logger.Info("Holiday cache warm-up scheduled",
		zap.Duration("interval", d.warmUpInterval))

	if err := d.runWarmUp(); err != nil {
		d.logger.Error("Initial holiday cache warm-up failed", zap.Error(err))
	}

	ticker := time.NewTicker(d.warmUpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if err := d.runWarmUp(); err != nil {
				d.logger.Error("Holiday cache warm-up failed", zap.Error(err))
			}
		}
	}
}

// runWarmUp loads the holidays of the current and the next year for every state
func (d *Daemon) runWarmUp() error {
	d.mu.Lock()
	if d.warmRunning {
		d.mu.Unlock()
		d.logger.Warn("Warm-up already running, skipping concurrent execution")
		return fmt.Errorf("warm-up already in progress")
	}
	d.warmRunning = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.warmRunning = false
		d.mu.Unlock()
	}()

	year := d.now().Year()
	years := []int{year, year + 1}
	if err := d.warmer.Warm(d.ctx, years, publicholiday.FederalStates); err != nil {
		return fmt.Errorf("failed to warm holiday cache: %w", err)
	}

	d.mu.Lock()
	d.lastWarmAt = d.now()
	d.mu.Unlock()

	d.logger.Info("Holiday cache warmed",
		zap.Ints("years", years),
		zap.Int("states", len(publicholiday.FederalStates)))
	return nil
}

// GetStatus returns daemon status
func (d *Daemon) GetStatus() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := map[string]interface{}{
		"running":          d.ctx.Err() == nil,
		"warm_up_interval": d.warmUpInterval.String(),
		"consumer":         d.consumer != nil,
	}
	if d.server != nil {
		status["addr"] = d.server.Addr
	}
	if !d.lastWarmAt.IsZero() {
		status["last_warm_up"] = d.lastWarmAt.Format(time.RFC3339)
		status["next_warm_up"] = d.lastWarmAt.Add(d.warmUpInterval).Format(time.RFC3339)
	}
	return status
}
