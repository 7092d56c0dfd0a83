// Package persist decouples vector-index snapshot writes from the message
// ingestion hot path: persist requests are pushed to a single-consumer
// queue drained by a background worker, with a synchronous fallback when
// the worker is not running.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adhocore/gronx"
	"golang.org/x/time/rate"
)

// PersistFunc writes the current snapshot. It must be idempotent: the
// scheduler may invoke it more often than strictly necessary.
type PersistFunc func() error

// Scheduler serializes snapshot writes. Requests are coalesced
// opportunistically (a full queue means a persist is already pending), but
// correctness never depends on coalescing: every persist is a whole-file
// overwrite.
type Scheduler struct {
	persistFn PersistFunc
	log       *slog.Logger

	reqCh   chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	limiter *rate.Limiter

	// optional periodic safety flush, cron syntax
	schedule string
	gron     *gronx.Gronx
}

// New creates a scheduler around persistFn. schedule is an optional cron
// expression for a periodic safety flush ("" disables it).
func New(persistFn PersistFunc, schedule string, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		persistFn: persistFn,
		log:       log,
		reqCh:     make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		// at most one snapshot write per second on the hot path
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		schedule: schedule,
		gron:     gronx.New(),
	}
}

// Start launches the background worker.
func (s *Scheduler) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go s.loop()
	s.log.Debug("persistence scheduler started", "schedule", s.schedule)
}

// Request schedules a persist. With the worker running this is non-blocking;
// a request that finds the queue full is dropped because a persist is
// already pending. Without a worker it persists synchronously so callers
// never lose durability.
func (s *Scheduler) Request() {
	if !s.running.Load() {
		s.persist()
		return
	}
	select {
	case s.reqCh <- struct{}{}:
	default:
		// a persist is already queued; the pending run will cover this append
	}
}

// Stop shuts down the worker, draining any pending request and writing a
// final snapshot.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	var ticker *time.Ticker
	var tick <-chan time.Time
	if s.schedule != "" {
		ticker = time.NewTicker(time.Minute)
		tick = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case <-s.reqCh:
			// smooth out bursts of closely-spaced appends
			if err := s.limiter.Wait(context.Background()); err == nil {
				s.persist()
			}

		case now := <-tick:
			due, err := s.gron.IsDue(s.schedule, now)
			if err != nil {
				s.log.Warn("invalid persist schedule", "schedule", s.schedule, "error", err)
				ticker.Stop()
				tick = nil
				continue
			}
			if due {
				s.persist()
			}

		case <-s.stopCh:
			// drain, then final persist
			select {
			case <-s.reqCh:
			default:
			}
			s.persist()
			return
		}
	}
}

func (s *Scheduler) persist() {
	if err := s.persistFn(); err != nil {
		s.log.Warn("vector snapshot persist failed", "error", err)
	}
}
