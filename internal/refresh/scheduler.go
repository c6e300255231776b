// Package refresh keeps an availability snapshot for one entity/date fresh while it is being viewed.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joshua-takyi/slotbook/internal/availability"
)

const DefaultInterval = 15 * time.Second

var (
	ErrIdle   = errors.New("refresh: no date selected")
	ErrClosed = errors.New("refresh: scheduler closed")
)

type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// FetchFunc re-reads the ledger subset for entity/date and recomputes availability.
type FetchFunc func(ctx context.Context, entityID, date string) (availability.Snapshot, error)

// Result is what a viewer renders: the last good snapshot plus the most recent read error, if any.
type Result struct {
	Snapshot availability.Snapshot
	Err      error
	Failures int
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler is idle until Select is called. While active it refreshes on a ticker, on
// visibility regain and on demand. Responses are stamped with a dispatch sequence and any
// response older than the last applied one is dropped.
type Scheduler struct {
	fetch    FetchFunc
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	closed   bool
	entityID string
	date     string
	ctx      context.Context
	cancel   context.CancelFunc
	gen      uint64
	seq      uint64
	applied  uint64
	latest   Result
	hasData  bool
	subs     []chan availability.Snapshot
	wg       sync.WaitGroup
}

func New(fetch FetchFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetch:    fetch,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select moves the scheduler to active for entity/date, replacing any previous target.
// An initial fetch is dispatched immediately.
func (s *Scheduler) Select(entityID, date string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s.state = Active
	s.entityID = entityID
	s.date = date
	s.ctx = ctx
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(ctx, gen)
	s.trigger("select")
	return nil
}

// Clear returns to idle. Nothing fetched after this point is applied.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

// Close tears the scheduler down for good and closes subscriber channels.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopLocked()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	s.wg.Wait()
	for _, ch := range subs {
		close(ch)
	}
}

func (s *Scheduler) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = Idle
	s.entityID = ""
	s.date = ""
	s.hasData = false
	s.latest = Result{}
	s.gen++
}

// VisibilityChanged refreshes immediately when the viewer comes back to the foreground.
func (s *Scheduler) VisibilityChanged(visible bool) {
	if visible {
		s.trigger("visibility")
	}
}

// RefreshNow dispatches a manual refresh. It is not coalesced with any fetch already in flight.
func (s *Scheduler) RefreshNow() error {
	s.mu.Lock()
	closed, state := s.closed, s.state
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if state != Active {
		return ErrIdle
	}
	s.trigger("manual")
	return nil
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Latest returns the current result; ok is false until the first successful fetch after Select.
func (s *Scheduler) Latest() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasData
}

// Subscribe returns a channel that receives every applied snapshot. Slow readers only see the newest one.
func (s *Scheduler) Subscribe() <-chan availability.Snapshot {
	ch := make(chan availability.Snapshot, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch
	}
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Scheduler) loop(ctx context.Context, gen uint64) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			current := s.gen == gen
			s.mu.Unlock()
			if !current {
				return
			}
			s.trigger("interval")
		}
	}
}

func (s *Scheduler) trigger(reason string) {
	s.mu.Lock()
	if s.closed || s.state != Active {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq, gen := s.seq, s.gen
	ctx, entityID, date := s.ctx, s.entityID, s.date
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		snap, err := s.fetch(ctx, entityID, date)
		s.apply(gen, seq, reason, snap, err)
	}()
}

func (s *Scheduler) apply(gen, seq uint64, reason string, snap availability.Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.state != Active {
		return
	}
	if seq < s.applied {
		s.logger.Debug("discarding stale availability response",
			"entity_id", s.entityID,
			"date", s.date,
			"seq", seq,
			"applied", s.applied,
			"failed", err != nil,
		)
		return
	}
	if err != nil {
		s.latest.Err = err
		s.latest.Failures++
		s.logger.Warn("availability refresh failed",
			"entity_id", s.entityID,
			"date", s.date,
			"trigger", reason,
			"failures", s.latest.Failures,
			"error", err,
		)
		return
	}

	s.applied = seq
	snap.Version = seq
	s.latest = Result{Snapshot: snap}
	s.hasData = true

	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
