package kgroup

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kgroup/internal/metrics"
	"github.com/arloliu/kgroup/source"
	kgrouptest "github.com/arloliu/kgroup/testing"
	"github.com/arloliu/kgroup/types"
)

// eventLog records the order of calls across fakes and callbacks.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.events...)
}

// fakePrimitive is a scripted SetPartitioner.
type fakePrimitive struct {
	id  int
	log *eventLog

	mu              sync.Mutex
	state           types.PartitionState
	held            []string
	err             error
	waitCalls       int
	waitDeadline    time.Duration
	releaseSetCalls int
	finishCalls     int

	// onWait runs inside WaitForAcquire, e.g. to finish the allocation.
	// Without it, WaitForAcquire blocks in Allocating until ctx is done.
	onWait func(p *fakePrimitive)
}

var _ types.SetPartitioner = (*fakePrimitive)(nil)

func (f *fakePrimitive) State() types.PartitionState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

func (f *fakePrimitive) setState(state types.PartitionState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = state
}

func (f *fakePrimitive) setHeld(held ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.held = held
}

func (f *fakePrimitive) WaitForAcquire(ctx context.Context) error {
	f.mu.Lock()
	f.waitCalls++
	if deadline, ok := ctx.Deadline(); ok {
		f.waitDeadline = time.Until(deadline)
	}
	onWait := f.onWait
	state := f.state
	f.mu.Unlock()

	if onWait != nil {
		onWait(f)
		return nil
	}
	if state == types.PartitionAllocating {
		<-ctx.Done()
		return ctx.Err()
	}

	return nil
}

func (f *fakePrimitive) setOnWait(fn func(p *fakePrimitive)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onWait = fn
}

func (f *fakePrimitive) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = types.PartitionFailure
	f.err = err
}

func (f *fakePrimitive) Held() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.held...)
}

func (f *fakePrimitive) ReleaseSet(_ context.Context) error {
	f.mu.Lock()
	f.releaseSetCalls++
	if f.state == types.PartitionRelease {
		f.state = types.PartitionAllocating
	}
	f.mu.Unlock()
	f.log.add("release_set#%d", f.id)

	return nil
}

func (f *fakePrimitive) Finish(_ context.Context) error {
	f.mu.Lock()
	f.finishCalls++
	f.mu.Unlock()
	f.log.add("finish#%d", f.id)

	return nil
}

func (f *fakePrimitive) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.err
}

func (f *fakePrimitive) counts() (waits, releaseSets, finishes int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.waitCalls, f.releaseSetCalls, f.finishCalls
}

// fakeSession hands out fakePrimitives that acquire the whole set.
type fakeSession struct {
	log *eventLog

	mu         sync.Mutex
	state      types.SessionState
	connectErr error
	createErr  error
	connects   int
	stops      int
	closes     int
	primitives []*fakePrimitive

	lastPath     string
	lastSet      []string
	lastBoundary time.Duration

	// configure adjusts every new primitive before it is returned.
	configure func(p *fakePrimitive, set []string)
}

var _ types.Session = (*fakeSession)(nil)

func newFakeSession(log *eventLog) *fakeSession {
	return &fakeSession{log: log, state: types.SessionLost}
}

func (s *fakeSession) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *fakeSession) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connects++
	s.log.add("connect")
	if s.connectErr != nil {
		return s.connectErr
	}
	s.state = types.SessionConnected

	return nil
}

func (s *fakeSession) NewSetPartitioner(_ context.Context, path string, set []string, timeBoundary time.Duration) (types.SetPartitioner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return nil, s.createErr
	}

	p := &fakePrimitive{
		id:    len(s.primitives) + 1,
		log:   s.log,
		state: types.PartitionAcquired,
		held:  append([]string(nil), set...),
	}
	if s.configure != nil {
		s.configure(p, set)
	}
	s.primitives = append(s.primitives, p)
	s.lastPath = path
	s.lastSet = append([]string(nil), set...)
	s.lastBoundary = timeBoundary
	s.log.add("create#%d", p.id)

	return p, nil
}

func (s *fakeSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stops++

	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes++
	s.state = types.SessionLost

	return nil
}

func (s *fakeSession) setConfigure(fn func(p *fakePrimitive, set []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configure = fn
}

func (s *fakeSession) setErrors(connectErr, createErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connectErr = connectErr
	s.createErr = createErr
}

func (s *fakeSession) counts() (connects, stops, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connects, s.stops, s.closes
}

func (s *fakeSession) created() []*fakePrimitive {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*fakePrimitive(nil), s.primitives...)
}

func (s *fakeSession) last() *fakePrimitive {
	created := s.created()
	if len(created) == 0 {
		return nil
	}

	return created[len(created)-1]
}

// callbacks records acquire and release invocations.
type callbacks struct {
	log *eventLog

	mu         sync.Mutex
	acquired   []Assignment
	released   []Assignment
	acquireErr error
	releaseErr error
}

func (c *callbacks) acquire(_ context.Context, a Assignment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.acquired = append(c.acquired, a)
	c.log.add("acquire_cb")

	return c.acquireErr
}

func (c *callbacks) release(_ context.Context, a Assignment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.released = append(c.released, a)
	c.log.add("release_cb")

	return c.releaseErr
}

func (c *callbacks) setErrors(acquireErr, releaseErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.acquireErr = acquireErr
	c.releaseErr = releaseErr
}

func (c *callbacks) calls() (acquired, released []Assignment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Assignment(nil), c.acquired...), append([]Assignment(nil), c.released...)
}

// recordingMetrics counts coordinator metrics.
type recordingMetrics struct {
	metrics.NopMetrics

	mu          sync.Mutex
	transitions []string
	rebalances  []string
	deferred    int
}

func (m *recordingMetrics) RecordStateTransition(from, to types.PartitionState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transitions = append(m.transitions, from.String()+"->"+to.String())
}

func (m *recordingMetrics) RecordRebalance(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rebalances = append(m.rebalances, reason)
}

func (m *recordingMetrics) RecordDiscoveryFailure(deferred bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if deferred {
		m.deferred++
	}
}

func (m *recordingMetrics) snapshot() (transitions, rebalances []string, deferred int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.transitions...), append([]string(nil), m.rebalances...), m.deferred
}

// fixture wires a Partitioner to fakes and a static broker.
type fixture struct {
	cfg     Config
	log     *eventLog
	session *fakeSession
	broker  *source.Static
	cbs     *callbacks
	metrics *recordingMetrics
	p       *Partitioner
}

var testTopics = map[string]int{"topic1": 4, "topic2": 3, "topic3": 4}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	return newFixtureWithTopics(t, []string{"topic1", "topic2"}, opts...)
}

func newFixtureWithTopics(t *testing.T, topics []string, opts ...Option) *fixture {
	t.Helper()

	log := &eventLog{}
	f := &fixture{
		cfg:     TestConfig(),
		log:     log,
		session: newFakeSession(log),
		broker:  source.NewStatic(testTopics),
		cbs:     &callbacks{log: log},
		metrics: &recordingMetrics{},
	}

	base := []Option{
		WithSession(f.session),
		WithBroker(f.broker),
		WithMetrics(f.metrics),
		WithLogger(kgrouptest.NewTestLogger(t)),
	}
	p, err := NewPartitioner(&f.cfg, topics, f.cbs.acquire, f.cbs.release, append(base, opts...)...)
	require.NoError(t, err)
	f.p = p

	return f
}

func (f *fixture) fullMapping() Assignment {
	return Assignment{"topic1": {0, 1, 2, 3}, "topic2": {0, 1, 2}}
}
