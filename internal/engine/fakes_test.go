package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/harborplay/roundengine/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memLedger is an in-memory domain.ExposureLedger.
type memLedger struct {
	mu      sync.Mutex
	buckets map[string]map[string]int64
	err     error // forced error for every call when set
}

func newMemLedger() *memLedger {
	return &memLedger{buckets: make(map[string]map[string]int64)}
}

func (l *memLedger) Increment(_ context.Context, key domain.PeriodKey, buckets []string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	m, ok := l.buckets[key.String()]
	if !ok {
		m = make(map[string]int64)
		l.buckets[key.String()] = m
	}
	for _, b := range buckets {
		m[b] += amount
	}
	return nil
}

func (l *memLedger) Snapshot(_ context.Context, key domain.PeriodKey) (map[string]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	out := make(map[string]int64, len(l.buckets[key.String()]))
	for k, v := range l.buckets[key.String()] {
		out[k] = v
	}
	return out, nil
}

func (l *memLedger) Expire(_ context.Context, key domain.PeriodKey, _ time.Duration) error {
	return l.err
}

func (l *memLedger) set(key domain.PeriodKey, buckets map[string]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key.String()] = buckets
}

// memRegistry is an in-memory domain.BettorRegistry.
type memRegistry struct {
	mu      sync.Mutex
	bettors map[string]map[string]bool
	err     error
}

func newMemRegistry() *memRegistry {
	return &memRegistry{bettors: make(map[string]map[string]bool)}
}

func (r *memRegistry) Add(_ context.Context, key domain.PeriodKey, bettorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	m, ok := r.bettors[key.String()]
	if !ok {
		m = make(map[string]bool)
		r.bettors[key.String()] = m
	}
	m[bettorID] = true
	return nil
}

func (r *memRegistry) Count(_ context.Context, key domain.PeriodKey) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	return int64(len(r.bettors[key.String()])), nil
}

func (r *memRegistry) Expire(_ context.Context, key domain.PeriodKey, _ time.Duration) error {
	return r.err
}

func (r *memRegistry) addN(key domain.PeriodKey, n int) {
	for i := 0; i < n; i++ {
		_ = r.Add(context.Background(), key, fmt.Sprintf("bettor-%d", i))
	}
}

// memResults is an in-memory domain.ResultStore with first-writer-wins
// semantics.
type memResults struct {
	mu      sync.Mutex
	rows    map[string]domain.Result
	commits int
	err     error
}

func newMemResults() *memResults {
	return &memResults{rows: make(map[string]domain.Result)}
}

func (s *memResults) Commit(_ context.Context, res domain.Result) (domain.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Result{}, false, s.err
	}
	s.commits++
	if existing, ok := s.rows[res.Key().String()]; ok {
		return existing, false, nil
	}
	s.rows[res.Key().String()] = res
	return res, true, nil
}

func (s *memResults) Get(_ context.Context, key domain.PeriodKey) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.rows[key.String()]
	if !ok {
		return domain.Result{}, domain.ErrNotFound
	}
	return res, nil
}

func (s *memResults) ListRecent(_ context.Context, _ string, _ int, _ string, _ int) ([]domain.Result, error) {
	return nil, nil
}

// memBus records published snapshots and results.
type memBus struct {
	mu        sync.Mutex
	snapshots []domain.PeriodSnapshot
	results   []domain.Result
}

func (b *memBus) PublishPeriodState(_ context.Context, snap domain.PeriodSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots = append(b.snapshots, snap)
	return nil
}

func (b *memBus) SubscribePeriodState(context.Context, string, int, string) (<-chan domain.PeriodSnapshot, error) {
	return nil, nil
}

func (b *memBus) CurrentPeriod(context.Context, string, int, string) (domain.PeriodSnapshot, error) {
	return domain.PeriodSnapshot{}, domain.ErrNotFound
}

func (b *memBus) PublishResult(_ context.Context, res domain.Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, res)
	return nil
}

func (b *memBus) SubscribeResult(context.Context, string, int, string) (<-chan domain.Result, error) {
	return nil, nil
}

func (b *memBus) published() []domain.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Result(nil), b.results...)
}

// memLocks grants every acquisition unless held is set.
type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks {
	return &memLocks{held: make(map[string]bool)}
}

func (l *memLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

var (
	_ domain.ExposureLedger  = (*memLedger)(nil)
	_ domain.BettorRegistry  = (*memRegistry)(nil)
	_ domain.ResultStore     = (*memResults)(nil)
	_ domain.CoordinationBus = (*memBus)(nil)
	_ domain.LockManager     = (*memLocks)(nil)
)
