package natsgroup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/kgroup/internal/natsutil"
	"github.com/arloliu/kgroup/types"
)

const (
	// lockRetryInterval is how often a member retries locks still held by
	// a previous owner.
	lockRetryInterval = 100 * time.Millisecond

	// watchDebounce coalesces bursts of member key updates into one check.
	watchDebounce = 100 * time.Millisecond

	// listRetryInterval is the pause after a failed member listing.
	listRetryInterval = 250 * time.Millisecond

	// lockWaitFactor bounds lock acquisition to this many member TTLs.
	lockWaitFactor = 2
)

// SetPartitioner divides a partition set among the members of one group.
//
// Three goroutines run for the lifetime of the partitioner:
//   - run: the allocation state machine
//   - heartbeat: keeps the member key and the held locks alive
//   - monitor: tracks group membership
//
// SetPartitioner is safe for concurrent use.
type SetPartitioner struct {
	path         string
	memberID     string
	set          []types.Partition
	timeBoundary time.Duration
	memberTTL    time.Duration
	strategy     types.AssignmentStrategy
	logger       types.Logger

	members *membership
	locks   *lockTable

	mu      sync.Mutex
	state   types.PartitionState
	stateCh chan struct{} // closed and replaced on every state change
	failErr error

	// releaseAck is signalled by ReleaseSet once the locks are dropped.
	releaseAck chan struct{}

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	finished atomic.Bool
}

var _ types.SetPartitioner = (*SetPartitioner)(nil)

type setPartitionerConfig struct {
	path         string
	memberID     string
	set          []types.Partition
	timeBoundary time.Duration
	memberTTL    time.Duration
	strategy     types.AssignmentStrategy
	logger       types.Logger
	members      *membership
	locks        *lockTable
}

func newSetPartitioner(cfg setPartitionerConfig) *SetPartitioner {
	set := slices.Clone(cfg.set)
	slices.SortFunc(set, types.Partition.Compare)

	return &SetPartitioner{
		path:         cfg.path,
		memberID:     cfg.memberID,
		set:          set,
		timeBoundary: cfg.timeBoundary,
		memberTTL:    cfg.memberTTL,
		strategy:     cfg.strategy,
		logger:       cfg.logger,
		members:      cfg.members,
		locks:        cfg.locks,
		state:        types.PartitionAllocating,
		stateCh:      make(chan struct{}),
		releaseAck:   make(chan struct{}, 1),
	}
}

// start announces the member and launches the background goroutines.
//
// The goroutines run on their own context; they stop on Finish or on
// failure, never because the setup context ends.
func (p *SetPartitioner) start(ctx context.Context) error {
	if err := p.members.beat(ctx); err != nil {
		return fmt.Errorf("failed to join group %s: %w", p.path, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(3)
	go func() {
		defer p.wg.Done()
		p.members.monitor(runCtx, p.memberTTL)
	}()
	go p.heartbeat(runCtx)
	go p.run(runCtx)

	p.logger.Info("joined group", "path", p.path, "member_id", p.memberID, "partitions", len(p.set))

	return nil
}

// MemberID returns the ID this partitioner registered under.
func (p *SetPartitioner) MemberID() string {
	return p.memberID
}

// State returns the current lifecycle state.
func (p *SetPartitioner) State() types.PartitionState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Err returns the cause of a Failure state, or nil.
func (p *SetPartitioner) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.failErr
}

// WaitForAcquire blocks while the state is Allocating.
//
// Returns:
//   - error: types.ErrPartitionerFinished after Finish; nil otherwise, also when ctx is done
func (p *SetPartitioner) WaitForAcquire(ctx context.Context) error {
	for {
		if p.finished.Load() {
			return types.ErrPartitionerFinished
		}

		p.mu.Lock()
		state, ch := p.state, p.stateCh
		p.mu.Unlock()

		if state != types.PartitionAllocating {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ch:
		}
	}
}

// Held returns the partition IDs this member holds locks for, sorted.
func (p *SetPartitioner) Held() []string {
	return p.locks.ids()
}

// ReleaseSet acknowledges a Release: drops every held lock and lets the
// group reallocate. It is a no-op outside the Release state.
func (p *SetPartitioner) ReleaseSet(ctx context.Context) error {
	if !p.transition(types.PartitionRelease, types.PartitionAllocating) {
		return nil
	}

	err := p.locks.releaseAll(ctx)

	select {
	case p.releaseAck <- struct{}{}:
	default:
	}

	if err != nil {
		return fmt.Errorf("failed to release partitions of %s: %w", p.path, err)
	}

	return nil
}

// Finish leaves the group: stops the background goroutines, deletes the
// held locks and the member key. Calls after the first return nil.
func (p *SetPartitioner) Finish(ctx context.Context) error {
	if !p.finished.CompareAndSwap(false, true) {
		return nil
	}

	p.cancel()
	p.wg.Wait()

	// Wake WaitForAcquire callers.
	p.mu.Lock()
	close(p.stateCh)
	p.stateCh = make(chan struct{})
	p.mu.Unlock()

	var errs []error
	if err := p.locks.releaseAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := p.members.leave(ctx); err != nil && !natsutil.IsKeyGone(err) {
		errs = append(errs, err)
	}

	p.logger.Info("left group", "path", p.path, "member_id", p.memberID)

	return errors.Join(errs...)
}

func (p *SetPartitioner) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		members, err := p.waitStable(ctx)
		if err != nil {
			return
		}

		if !slices.Contains(members, p.memberID) {
			// Our own key expired; announce again and wait for the group to settle.
			p.logger.Warn("member key missing from group, rejoining", "path", p.path, "member_id", p.memberID)
			if err := p.members.beat(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("failed to rejoin group", "error", err)
			}

			continue
		}

		want, err := p.share(members)
		if err != nil {
			p.fail(err)
			return
		}

		complete, err := p.acquire(ctx, members, want)
		if err != nil {
			if ctx.Err() == nil {
				p.fail(err)
			}

			return
		}
		if !complete {
			p.logger.Debug("membership changed during allocation, starting over", "path", p.path)
			if err := p.locks.releaseAll(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("failed to drop partial allocation", "error", err)
			}

			continue
		}

		if !p.transition(types.PartitionAllocating, types.PartitionAcquired) {
			return
		}
		p.logger.Info("partitions acquired",
			"path", p.path,
			"member_id", p.memberID,
			"members", len(members),
			"held", len(want),
		)

		if !p.awaitChange(ctx, members) {
			return
		}
		if !p.transition(types.PartitionAcquired, types.PartitionRelease) {
			return
		}
		p.logger.Info("group membership changed, releasing partitions", "path", p.path, "member_id", p.memberID)

		select {
		case <-ctx.Done():
			return
		case <-p.releaseAck:
		}
	}
}

// waitStable returns the member list once it has not changed for the
// time boundary.
func (p *SetPartitioner) waitStable(ctx context.Context) ([]string, error) {
	for {
		before, err := p.members.refresh(ctx)
		if err != nil {
			if !p.pause(ctx, listRetryInterval) {
				return nil, ctx.Err()
			}

			continue
		}
		p.members.drain()

		timer := time.NewTimer(p.timeBoundary)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-p.members.changed:
			timer.Stop()
			continue
		case <-timer.C:
		}

		after, err := p.members.refresh(ctx)
		if err != nil {
			continue
		}
		if slices.Equal(before, after) {
			return after, nil
		}
	}
}

// share returns the partition IDs the strategy assigns to this member.
func (p *SetPartitioner) share(members []string) ([]string, error) {
	assignments, err := p.strategy.Assign(members, p.set)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate partitions of %s: %w", p.path, err)
	}

	mine := assignments[p.memberID]
	ids := make([]string, 0, len(mine))
	for _, partition := range mine {
		ids = append(ids, partition.ID())
	}

	return ids, nil
}

// acquire claims every partition in want, retrying locks that are still
// held by their previous owner.
//
// A departed owner's lock expires within one member TTL. A lock still taken
// after two TTLs belongs to a live member that never released it, and
// acquire gives up with types.ErrLockTimeout.
//
// Returns:
//   - bool: false if membership changed before all locks were claimed
//   - error: KV error other than a taken lock or a connectivity blip, or
//     types.ErrLockTimeout
func (p *SetPartitioner) acquire(ctx context.Context, members, want []string) (bool, error) {
	pending := slices.Clone(want)
	retry := time.NewTicker(lockRetryInterval)
	defer retry.Stop()
	limit := time.NewTimer(lockWaitFactor * p.memberTTL)
	defer limit.Stop()

	for {
		remaining := pending[:0]
		for _, id := range pending {
			ok, err := p.locks.tryAcquire(ctx, id)
			if err != nil && !natsutil.IsConnectivityError(err) {
				return false, err
			}
			if !ok {
				remaining = append(remaining, id)
			}
		}
		pending = remaining

		if len(pending) == 0 {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-p.members.changed:
			if !slices.Equal(p.members.current(), members) {
				return false, nil
			}
		case <-limit.C:
			return false, fmt.Errorf("%w: %d of %d still taken in %s",
				types.ErrLockTimeout, len(pending), len(want), p.path)
		case <-retry.C:
		}
	}
}

// awaitChange blocks until the member list differs from members.
func (p *SetPartitioner) awaitChange(ctx context.Context, members []string) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-p.members.changed:
			if !slices.Equal(p.members.current(), members) {
				return true
			}
		}
	}
}

func (p *SetPartitioner) heartbeat(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.memberTTL / 3)
	defer ticker.Stop()

	lastSuccess := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := p.members.beat(ctx)
		if err == nil {
			err = p.locks.renew(ctx)
		}
		if ctx.Err() != nil {
			return
		}

		switch {
		case err == nil:
			lastSuccess = time.Now()
		case errors.Is(err, types.ErrLockLost):
			p.fail(err)
			return
		case time.Since(lastSuccess) > p.memberTTL:
			p.fail(fmt.Errorf("%w: no successful heartbeat for %s: %w", types.ErrConnectivity, p.memberTTL, err))
			return
		default:
			p.logger.Warn("heartbeat failed", "path", p.path, "member_id", p.memberID, "error", err)
		}
	}
}

// transition moves from one state to another.
//
// Returns:
//   - bool: false if the current state is not from
func (p *SetPartitioner) transition(from, to types.PartitionState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != from {
		return false
	}
	p.setStateLocked(to)

	return true
}

// fail moves the partitioner to Failure and stops the background work.
func (p *SetPartitioner) fail(err error) {
	p.mu.Lock()
	if p.state == types.PartitionFailure {
		p.mu.Unlock()
		return
	}
	p.failErr = err
	p.setStateLocked(types.PartitionFailure)
	p.mu.Unlock()

	p.logger.Error("set partitioner failed", "path", p.path, "member_id", p.memberID, "error", err)
	p.cancel()
}

func (p *SetPartitioner) setStateLocked(to types.PartitionState) {
	p.logger.Debug("set partitioner state changed", "path", p.path, "from", p.state.String(), "to", to.String())
	p.state = to
	close(p.stateCh)
	p.stateCh = make(chan struct{})
}

func (p *SetPartitioner) pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
