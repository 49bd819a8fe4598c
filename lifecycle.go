package kgroup

import "context"

// ReleaseAndFinish releases the acquired partitions and disposes the set
// partitioner. It is a no-op when no set partitioner is live.
//
// The release callback is skipped when the partitions were already
// released. A failing callback does not stop the teardown; its error is
// returned as a *CoordinationError once the set partitioner is finished.
func (p *Partitioner) ReleaseAndFinish(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	return p.releaseAndFinish(ctx)
}

func (p *Partitioner) releaseAndFinish(ctx context.Context) error {
	primitive := p.st.primitive
	if primitive == nil {
		return nil
	}

	var cbErr error
	if !p.st.released {
		cbErr = p.callRelease(ctx)
	}

	// A failed primitive cannot take acknowledgements.
	if primitive.State() != PartitionFailure {
		if err := primitive.ReleaseSet(ctx); err != nil {
			p.logger.Warn("release acknowledgement failed", "group_path", p.groupPath, "error", err)
		}
	}

	if err := primitive.Finish(ctx); err != nil {
		p.logger.Warn("failed to finish set partitioner", "group_path", p.groupPath, "error", err)
	}

	p.update(func(st *coordState) {
		st.release()
		st.dropPrimitive()
	})
	p.logger.Info("left group", "group_path", p.groupPath)

	if cbErr != nil {
		return &CoordinationError{Op: "release", Err: cbErr}
	}

	return nil
}

// CloseConnections tears down the set partitioner, stops and closes the
// session and closes the broker client, then resets the Partitioner so it
// can be started again. Calling it again is a no-op.
//
// Returns:
//   - error: *CoordinationError if the release callback failed
func (p *Partitioner) CloseConnections(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	return p.closeConnections(ctx)
}

func (p *Partitioner) closeConnections(ctx context.Context) error {
	err := p.releaseAndFinish(ctx)

	if stopErr := p.session.Stop(); stopErr != nil {
		p.logger.Warn("failed to stop session", "group_path", p.groupPath, "error", stopErr)
	}
	if closeErr := p.session.Close(); closeErr != nil {
		p.logger.Warn("failed to close session", "group_path", p.groupPath, "error", closeErr)
	}
	if closeErr := p.broker.Close(); closeErr != nil {
		p.logger.Warn("failed to close broker client", "group_path", p.groupPath, "error", closeErr)
	}

	p.update(func(st *coordState) { st.reset() })
	p.started = false

	return err
}
