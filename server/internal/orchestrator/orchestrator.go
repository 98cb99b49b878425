package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/engagestory/engagestory/pkg/types"
	"github.com/engagestory/engagestory/server/internal/compute"
	"github.com/engagestory/engagestory/server/internal/inference"
	"github.com/engagestory/engagestory/server/internal/metrics"
)

var (
	// ErrSuperseded is returned to a caller whose submission was replaced by a
	// newer one before it resolved. Its result was discarded.
	ErrSuperseded = errors.New("orchestrator: superseded by a newer submission")

	// ErrInternal marks a defect in the orchestrator or fallback engine.
	// Remote unavailability never produces it.
	ErrInternal = errors.New("orchestrator: internal fault")
)

// Remote is the scoring backend raced against the deadline.
type Remote interface {
	Request(ctx context.Context, in types.PredictionInput) (float64, error)
}

// Recorder receives orchestration outcomes. *metrics.Recorder implements it.
type Recorder interface {
	ObserveResult(src types.Source)
	ObserveRemote(outcome string, d time.Duration)
	ObserveSuperseded()
	ObserveFault()
	SetGeneration(g uint64)
}

// Options tune an Orchestrator. Zero values select the defaults.
type Options struct {
	// Deadline bounds the remote attempt. Default 8s.
	Deadline time.Duration

	// Fallback computes the unclamped local estimate. Default compute.Estimate.
	Fallback func(types.PredictionInput) float64

	// Recorder receives metrics. Default discards them.
	Recorder Recorder

	// Now is the clock used for lifecycle timestamps. Default time.Now.
	Now func() time.Time
}

// DefaultDeadline is the canonical bound on one remote attempt.
const DefaultDeadline = 8 * time.Second

// Orchestrator owns the single current submission lifecycle. Each call to
// Orchestrate starts a new generation, cancels the previous pending one and
// resolves within the deadline, live if the remote answers in time and
// simulated otherwise.
//
// All exported methods are safe for concurrent use.
type Orchestrator struct {
	fallback func(types.PredictionInput) float64
	rec      Recorder
	now      func() time.Time

	mu         sync.Mutex
	remote     Remote
	deadline   time.Duration
	generation uint64
	current    Lifecycle
	cancel     context.CancelFunc // aborts the current pending remote call
	avail      availability
	observers  []Observer
	seq        uint64 // bumped on every transition

	// notifyMu serialises observer delivery; notified is the last seq
	// delivered. Transitions older than it are dropped.
	notifyMu sync.Mutex
	notified uint64
}

// transition is one state change waiting to be delivered to observers.
type transition struct {
	seq       uint64
	lc        Lifecycle
	observers []Observer
}

// New returns an Orchestrator racing remote against opts.Deadline.
func New(remote Remote, opts Options) *Orchestrator {
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	if opts.Fallback == nil {
		opts.Fallback = compute.Estimate
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if remote == nil {
		remote = inference.Offline{}
	}
	return &Orchestrator{
		fallback: opts.Fallback,
		rec:      opts.Recorder,
		now:      opts.Now,
		remote:   remote,
		deadline: opts.Deadline,
		current:  Lifecycle{State: types.StateIdle},
	}
}

// SetRemote swaps the remote backend and deadline for future submissions.
// A submission already in flight keeps the backend it started with.
func (o *Orchestrator) SetRemote(remote Remote, deadline time.Duration) {
	if remote == nil {
		remote = inference.Offline{}
	}
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	o.mu.Lock()
	o.remote = remote
	o.deadline = deadline
	o.mu.Unlock()
}

// Subscribe registers fn to be called after state transitions, in order.
// See Observer for the delivery rules.
func (o *Orchestrator) Subscribe(fn Observer) {
	o.mu.Lock()
	o.observers = append(o.observers, fn)
	o.mu.Unlock()
}

// Current returns a copy of the current lifecycle.
func (o *Orchestrator) Current() Lifecycle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current.clone()
}

// Availability returns the share (0–100) of recent remote attempts that
// resolved live.
func (o *Orchestrator) Availability() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.avail.pct()
}

// Orchestrate scores in. It starts a new generation, supersedes any pending
// one, and returns once the remote has answered or the deadline has passed.
//
// The returned result is always clamped to [0, 100] and rounded to one
// decimal. ErrSuperseded is returned when a newer submission replaced this
// one first; ErrInternal only for defects. Remote failures are never
// returned: they resolve through the fallback engine.
func (o *Orchestrator) Orchestrate(ctx context.Context, in types.PredictionInput) (types.PredictionResult, error) {
	in = in.Clamp()

	a := o.begin(ctx, in)
	defer a.cancel()
	gen := a.gen

	rctx := a.ctx
	if inference.RequestIDFrom(rctx) == "" {
		rctx = inference.WithRequestID(rctx, a.id)
	}
	score, err := o.race(rctx, a.remote, a.deadline, in)

	var res types.PredictionResult
	if err == nil {
		res = types.PredictionResult{Score: compute.Finalize(score), Source: types.SourceLive}
	} else {
		slog.Warn("orchestrator: remote unavailable, using fallback",
			"generation", gen, "err", err)
		var ferr error
		res, ferr = o.simulate(in)
		if ferr != nil {
			return o.fail(gen, ferr)
		}
	}
	return o.succeed(gen, res)
}

// attempt is the state one generation carries through Orchestrate.
type attempt struct {
	gen      uint64
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	remote   Remote
	deadline time.Duration
}

// begin opens a new generation, supersedes the previous lifecycle and
// returns the context the remote attempt runs under.
func (o *Orchestrator) begin(ctx context.Context, in types.PredictionInput) attempt {
	a := attempt{id: uuid.NewString()}
	a.ctx, a.cancel = context.WithCancel(ctx)
	started := o.now()

	o.mu.Lock()
	if o.cancel != nil {
		// The previous generation is still pending; abandon its remote call.
		o.cancel()
		slog.Debug("orchestrator: superseding pending submission",
			"generation", o.generation)
	}
	o.generation++
	a.gen = o.generation
	o.cancel = a.cancel
	o.current = Lifecycle{
		ID:         a.id,
		Generation: a.gen,
		State:      types.StatePending,
		Input:      &in,
		StartedAt:  &started,
	}
	a.remote, a.deadline = o.remote, o.deadline
	t := o.transitionLocked()
	o.mu.Unlock()

	o.rec.SetGeneration(a.gen)
	o.publish(t)
	return a
}

// race runs the remote attempt against an explicit deadline timer. The timer
// does not depend on the transport honouring cancellation; when it fires the
// attempt is cancelled and abandoned.
func (o *Orchestrator) race(ctx context.Context, remote Remote, deadline time.Duration, in types.PredictionInput) (float64, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		score float64
		err   error
	}
	done := make(chan outcome, 1) // buffered: a late answer must not block the sender
	start := time.Now()

	go func() {
		score, err := remote.Request(reqCtx, in)
		if err == nil && (math.IsNaN(score) || math.IsInf(score, 0)) {
			err = fmt.Errorf("%w: non-finite score", inference.ErrUnavailable)
		}
		done <- outcome{score: score, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			o.rec.ObserveRemote(metrics.OutcomeUnavailable, time.Since(start))
			return 0, out.err
		}
		o.rec.ObserveRemote(metrics.OutcomeResolved, time.Since(start))
		return out.score, nil

	case <-timer.C:
		o.rec.ObserveRemote(metrics.OutcomeDeadline, time.Since(start))
		return 0, fmt.Errorf("%w: deadline %s elapsed", inference.ErrUnavailable, deadline)

	case <-ctx.Done():
		o.rec.ObserveRemote(metrics.OutcomeAbandoned, time.Since(start))
		return 0, fmt.Errorf("%w: %v", inference.ErrUnavailable, ctx.Err())
	}
}

// simulate runs the fallback engine. The engine is total over its domain,
// so a panic or a non-finite value is reported as ErrInternal.
func (o *Orchestrator) simulate(in types.PredictionInput) (res types.PredictionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: fallback panicked: %v", ErrInternal, r)
		}
	}()
	raw := o.fallback(in)
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return types.PredictionResult{}, fmt.Errorf("%w: fallback returned %v", ErrInternal, raw)
	}
	return types.PredictionResult{Score: compute.Finalize(raw), Source: types.SourceSimulated}, nil
}

// succeed commits res for gen if gen is still current.
func (o *Orchestrator) succeed(gen uint64, res types.PredictionResult) (types.PredictionResult, error) {
	t, ok := o.resolve(gen, func(lc *Lifecycle) {
		lc.State = types.StateSucceeded
		lc.Result = &res
	})
	if !ok {
		return types.PredictionResult{}, ErrSuperseded
	}

	o.rec.ObserveResult(res.Source)
	slog.Info("orchestrator: prediction resolved",
		"generation", gen, "score", res.Score, "source", res.Source)
	o.publish(t)
	return res, nil
}

// fail commits an internal fault for gen if gen is still current.
func (o *Orchestrator) fail(gen uint64, cause error) (types.PredictionResult, error) {
	t, ok := o.resolve(gen, func(lc *Lifecycle) {
		lc.State = types.StateFailed
		lc.Error = cause.Error()
	})
	if !ok {
		return types.PredictionResult{}, ErrSuperseded
	}

	o.rec.ObserveFault()
	slog.Error("orchestrator: internal fault", "generation", gen, "err", cause)
	o.publish(t)
	return types.PredictionResult{}, cause
}

// resolve applies mutate to the current lifecycle only when gen is still the
// newest generation. A stale generation is dropped without any transition.
func (o *Orchestrator) resolve(gen uint64, mutate func(*Lifecycle)) (transition, bool) {
	finished := o.now()

	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation {
		o.rec.ObserveSuperseded()
		slog.Debug("orchestrator: discarding stale resolution",
			"generation", gen, "current", o.generation)
		return transition{}, false
	}

	mutate(&o.current)
	o.current.FinishedAt = &finished
	if o.current.Result != nil {
		o.avail.record(o.current.Result.Source == types.SourceLive)
	}
	o.cancel = nil
	return o.transitionLocked(), true
}

// transitionLocked records a transition of the current lifecycle.
// o.mu must be held.
func (o *Orchestrator) transitionLocked() transition {
	o.seq++
	return transition{seq: o.seq, lc: o.current.clone(), observers: o.observers}
}

// publish delivers t to its observers unless a later transition has already
// been delivered, so observers see transitions in the order they happened
// and the last one they see matches Current.
func (o *Orchestrator) publish(t transition) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	if t.seq <= o.notified {
		slog.Debug("orchestrator: dropping out-of-order notification",
			"generation", t.lc.Generation, "state", t.lc.State)
		return
	}
	o.notified = t.seq
	for _, fn := range t.observers {
		fn(t.lc.clone())
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveResult(types.Source)          {}
func (nopRecorder) ObserveRemote(string, time.Duration) {}
func (nopRecorder) ObserveSuperseded()                  {}
func (nopRecorder) ObserveFault()                       {}
func (nopRecorder) SetGeneration(uint64)                {}
