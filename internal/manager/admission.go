package manager

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// AdmissionStats is a point-in-time view of an Admission.
type AdmissionStats struct {
	MaxConcurrent int
	Inflight      int64
	Waiting       int64
	Admitted      uint64
	Timeouts      uint64
	Timeout       time.Duration
}

// Admission bounds concurrent backend calls. Waiters are served in arrival
// order and wait only as long as their context allows. Once a slot is held
// the call runs under its own deadline.
type Admission struct {
	sem     *semaphore.Weighted
	max     int
	timeout time.Duration

	worker int
	label  string
	pub    EventPublisher
	log    zerolog.Logger

	inflight atomic.Int64
	waiting  atomic.Int64
	admitted atomic.Uint64
	timeouts atomic.Uint64
}

// NewAdmission builds a gate with limit concurrent slots and the given per-call
// deadline. Non-positive values fall back to package defaults.
func NewAdmission(limit int, timeout time.Duration, worker int, pub EventPublisher, log zerolog.Logger) *Admission {
	if limit <= 0 {
		limit = defaultMaxConcurrent
	}
	if timeout <= 0 {
		timeout = defaultInferenceTimeout
	}
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Admission{
		sem:     semaphore.NewWeighted(int64(limit)),
		max:     limit,
		timeout: timeout,
		worker:  worker,
		label:   strconv.Itoa(worker),
		pub:     pub,
		log:     log,
	}
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func is idempotent and must be called exactly once the call has finished.
func (a *Admission) Acquire(ctx context.Context, logID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, wrapError(KindCancelled, err, "cancelled before admission")
	}
	a.waiting.Add(1)
	admissionWaiting.WithLabelValues(a.label).Inc()
	a.pub.Publish(Event{Name: EventAdmissionWait, Worker: a.worker, LogID: logID})
	start := time.Now()
	err := a.sem.Acquire(ctx, 1)
	a.waiting.Add(-1)
	admissionWaiting.WithLabelValues(a.label).Dec()
	if err != nil {
		a.pub.Publish(Event{Name: EventAdmissionCancel, Worker: a.worker, LogID: logID})
		return func() {}, wrapError(KindCancelled, err, "cancelled while waiting for a slot")
	}
	waited := time.Since(start)
	admissionWaitSeconds.WithLabelValues(a.label).Observe(waited.Seconds())
	a.inflight.Add(1)
	a.admitted.Add(1)
	admissionInflight.WithLabelValues(a.label).Inc()
	a.pub.Publish(Event{Name: EventAdmissionAcquire, Worker: a.worker, LogID: logID, Fields: map[string]any{"wait_ms": waited.Milliseconds()}})

	var once sync.Once
	return func() {
		once.Do(func() {
			a.inflight.Add(-1)
			admissionInflight.WithLabelValues(a.label).Dec()
			a.sem.Release(1)
			a.pub.Publish(Event{Name: EventAdmissionRelease, Worker: a.worker, LogID: logID})
		})
	}, nil
}

type callOutcome struct {
	out json.RawMessage
	err error
}

// Run admits one call and executes fn under the per-call deadline. When the
// deadline fires first, fn's context is cancelled, the slot is released and
// Timeout is returned; whatever fn produces afterwards is dropped.
func (a *Admission) Run(ctx context.Context, logID string, fn func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	release, err := a.Acquire(ctx, logID)
	if err != nil {
		return nil, err
	}
	defer release()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan callOutcome, 1)
	go func() {
		out, err := fn(callCtx)
		done <- callOutcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, a.timedOut(logID)
		}
		return o.out, o.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, wrapError(KindCancelled, ctx.Err(), "caller went away")
		}
		return nil, a.timedOut(logID)
	}
}

func (a *Admission) timedOut(logID string) error {
	a.timeouts.Add(1)
	admissionTimeoutsTotal.WithLabelValues(a.label).Inc()
	a.pub.Publish(Event{Name: EventAdmissionTimeout, Worker: a.worker, LogID: logID})
	a.log.Warn().Str("log_id", logID).Dur("timeout", a.timeout).Msg("inference deadline exceeded")
	return newError(KindTimeout, "inference did not complete within %s", a.timeout)
}

// Stats returns current counters.
func (a *Admission) Stats() AdmissionStats {
	return AdmissionStats{
		MaxConcurrent: a.max,
		Inflight:      a.inflight.Load(),
		Waiting:       a.waiting.Load(),
		Admitted:      a.admitted.Load(),
		Timeouts:      a.timeouts.Load(),
		Timeout:       a.timeout,
	}
}
