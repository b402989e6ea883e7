package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrDriverStopped is returned by Enqueue and Run after Stop.
	ErrDriverStopped = errors.New("driver stopped")

	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("driver already running")
)

// Processor is a frame-driven object, the headless equivalent of a scene
// node with ready and process callbacks.
type Processor interface {
	Ready(ctx context.Context)
	Process(ctx context.Context, delta float64)
}

// Driver is the single-writer frame loop.
//
// Thread-safety model:
//   - Add: before Run only
//   - Enqueue, Stop, Frames: safe from any goroutine
//   - Run: exactly one goroutine
type Driver struct {
	processors []Processor
	clock      Clock
	queue      *commandQueue
	logger     *slog.Logger

	delta  float64
	frames int64
	pace   time.Duration

	running   atomic.Bool
	processed atomic.Int64
	done      chan struct{}
	stopOnce  sync.Once
}

// Option configures a Driver.
type Option func(*Driver)

// WithFrames stops Run after n frames. 0 runs until cancelled or stopped.
func WithFrames(n int64) Option {
	return func(d *Driver) { d.frames = n }
}

// WithClock sets the frame clock. Default is a fresh LogicalClock.
func WithClock(c Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithPace waits interval between frames. 0 runs frames back to back.
func WithPace(interval time.Duration) Option {
	return func(d *Driver) { d.pace = interval }
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// New creates a Driver ticking with a fixed delta in seconds.
func New(delta float64, opts ...Option) *Driver {
	d := &Driver{
		clock:  NewClock(),
		queue:  newCommandQueue(),
		logger: slog.Default(),
		delta:  delta,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add registers processors, ticked in registration order.
func (d *Driver) Add(p ...Processor) {
	d.processors = append(d.processors, p...)
}

// Enqueue submits cmd for the start of the next frame.
func (d *Driver) Enqueue(cmd Command) error {
	if !d.queue.Enqueue(cmd) {
		return ErrDriverStopped
	}
	return nil
}

// Frames returns how many frames have been processed.
func (d *Driver) Frames() int64 {
	return d.processed.Load()
}

// Stop ends Run at the next frame boundary. Queued commands that have not
// been applied are dropped.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() {
		d.queue.Close()
		close(d.done)
	})
}

// Run calls Ready on every processor, then processes frames until the frame
// limit, Stop, or ctx ends. Returns nil on limit or Stop, ctx.Err() on
// cancellation.
func (d *Driver) Run(ctx context.Context) error {
	if !(d.delta > 0) || math.IsInf(d.delta, 1) {
		return fmt.Errorf("delta must be positive and finite, got %g", d.delta)
	}
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)

	select {
	case <-d.done:
		return ErrDriverStopped
	default:
	}

	d.logger.Info("driver starting",
		"processors", len(d.processors),
		"delta", d.delta,
		"frames", d.frames,
	)

	for _, p := range d.processors {
		p.Ready(ctx)
	}

	var tick <-chan time.Time
	if d.pace > 0 {
		ticker := time.NewTicker(d.pace)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if d.frames > 0 && d.processed.Load() >= d.frames {
			d.logger.Info("driver finished", "frames", d.processed.Load())
			d.Stop()
			return nil
		}

		select {
		case <-ctx.Done():
			return d.cancelled(ctx)
		case <-d.done:
			return d.stopped()
		default:
		}

		if tick != nil {
			if stop, err := d.awaitTick(ctx, tick); stop {
				return err
			}
		}

		frame := d.clock.Next()
		d.applyCommands(ctx, frame)
		for _, p := range d.processors {
			p.Process(ctx, d.delta)
		}
		d.processed.Add(1)
	}
}

// awaitTick blocks until the next pace tick. Commands enqueued meanwhile are
// applied as they arrive, stamped with the frame about to be processed.
// stop reports that Run must return err.
func (d *Driver) awaitTick(ctx context.Context, tick <-chan time.Time) (stop bool, err error) {
	for {
		select {
		case <-ctx.Done():
			return true, d.cancelled(ctx)
		case <-d.done:
			return true, d.stopped()
		case _, ok := <-d.queue.Wait():
			if !ok {
				return true, d.stopped()
			}
			d.applyCommands(ctx, d.clock.Current()+1)
		case <-tick:
			return false, nil
		}
	}
}

// applyCommands runs every queued command. Called only from Run.
func (d *Driver) applyCommands(ctx context.Context, frame int64) {
	for {
		cmd, ok := d.queue.TryDequeue()
		if !ok {
			return
		}
		cmd(ctx, frame)
	}
}

func (d *Driver) cancelled(ctx context.Context) error {
	d.logger.Info("driver stopping: context cancelled", "frames", d.processed.Load())
	d.Stop()
	return ctx.Err()
}

func (d *Driver) stopped() error {
	dropped := d.queue.Len()
	d.logger.Info("driver stopping: stopped", "frames", d.processed.Load(), "dropped_commands", dropped)
	return nil
}
