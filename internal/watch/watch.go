// Package watch feeds context snapshots to the activation engine from a single
// consumer goroutine. Snapshots come from a cron schedule, location updates and
// app launches, which may arrive on any goroutine.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hpungsan/shelf/internal/activation"
	"github.com/hpungsan/shelf/internal/concurrency"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
)

// DefaultSchedule re-evaluates once a minute.
const DefaultSchedule = "@every 1m"

const defaultBuffer = 64

// Evaluator runs one activation pass.
type Evaluator interface {
	Evaluate(ctx context.Context, snap model.Snapshot) activation.Result
}

// Recorder counts app launches.
type Recorder interface {
	RecordUsage(ctx context.Context, appRef string) (model.UsageRecord, error)
}

// Watcher owns the event queue. The zero value is not usable; call New.
type Watcher struct {
	engine   Evaluator
	recorder Recorder

	schedule string
	now      func() time.Time
	onResult func(model.Snapshot, activation.Result)

	events chan model.Snapshot
	cron   *cron.Cron
	done   chan struct{}

	mu       sync.Mutex
	location *model.Coordinate
	running  bool
	cancel   context.CancelFunc
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSchedule sets the cron spec for periodic ticks. Empty keeps the default.
func WithSchedule(spec string) Option {
	return func(w *Watcher) {
		if spec != "" {
			w.schedule = spec
		}
	}
}

// WithLocation sets the location ticks report until a location update arrives.
func WithLocation(c *model.Coordinate) Option {
	return func(w *Watcher) { w.location = c }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// WithResultHook is called on the consumer goroutine after every pass.
func WithResultHook(fn func(model.Snapshot, activation.Result)) Option {
	return func(w *Watcher) { w.onResult = fn }
}

// WithBuffer sets the queue capacity.
func WithBuffer(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.events = make(chan model.Snapshot, n)
		}
	}
}

// New returns a stopped Watcher. recorder may be nil, in which case launches are
// evaluated but not counted.
func New(engine Evaluator, recorder Recorder, opts ...Option) *Watcher {
	w := &Watcher{
		engine:   engine,
		recorder: recorder,
		schedule: DefaultSchedule,
		now:      time.Now,
		events:   make(chan model.Snapshot, defaultBuffer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start validates the schedule, starts the consumer and the cron ticker.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(w.schedule, w.SubmitTick); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid tick schedule %q: %v", w.schedule, err))
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cron = c
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	done := w.done
	concurrency.SafeGo(func() {
		defer close(done)
		w.consume(ctx)
	}, nil)
	c.Start()

	slog.Info("Watcher started", "schedule", w.schedule)
	return nil
}

// Stop halts the ticker and waits for the consumer to finish its current event.
// Queued events that were not yet consumed are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	c, cancel, done := w.cron, w.cancel, w.done
	w.mu.Unlock()

	<-c.Stop().Done()
	cancel()
	<-done
	slog.Info("Watcher stopped")
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

// SubmitTick queues a periodic evaluation. Ticks are dropped when the queue is full.
func (w *Watcher) SubmitTick() {
	snap := model.Snapshot{Now: w.now(), Location: w.currentLocation(), Trigger: model.TriggerTick}
	select {
	case w.events <- snap:
	default:
		slog.Debug("Watcher queue full, dropping tick")
	}
}

// SubmitLocation records a new location and queues an evaluation for it.
func (w *Watcher) SubmitLocation(ctx context.Context, c model.Coordinate) error {
	if !c.Valid() {
		return errors.NewInvalidRequest("location out of range")
	}
	w.mu.Lock()
	w.location = &c
	w.mu.Unlock()

	loc := c
	return w.submit(ctx, model.Snapshot{Now: w.now(), Location: &loc, Trigger: model.TriggerLocation})
}

// SubmitLaunch queues a launch of appRef. The consumer counts it and then evaluates.
func (w *Watcher) SubmitLaunch(ctx context.Context, appRef string) error {
	if appRef == "" {
		return errors.NewInvalidRequest("app reference must not be empty")
	}
	return w.submit(ctx, model.Snapshot{
		Now:         w.now(),
		Location:    w.currentLocation(),
		LaunchedApp: appRef,
		Trigger:     model.TriggerLaunch,
	})
}

func (w *Watcher) submit(ctx context.Context, snap model.Snapshot) error {
	select {
	case w.events <- snap:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Watcher) currentLocation() *model.Coordinate {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.location == nil {
		return nil
	}
	c := *w.location
	return &c
}

func (w *Watcher) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-w.events:
			w.handle(ctx, snap)
		}
	}
}

// handle processes one snapshot; a panic is logged and the consumer keeps going.
func (w *Watcher) handle(ctx context.Context, snap model.Snapshot) {
	defer concurrency.Recover(nil)

	if snap.Trigger == model.TriggerLaunch && w.recorder != nil {
		if _, err := w.recorder.RecordUsage(ctx, snap.LaunchedApp); err != nil {
			slog.Warn("Failed to record launch", "app", snap.LaunchedApp, "error", err)
		}
	}
	res := w.engine.Evaluate(ctx, snap)
	if w.onResult != nil {
		w.onResult(snap, res)
	}
}
