package hooks

import (
	"context"

	"github.com/arloliu/kgroup/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default used when no custom hooks are provided, so callers
// never need nil checks.
type NopHooks struct{}

var (
	_ func(context.Context, types.PartitionState, types.PartitionState) error = (*NopHooks)(nil).OnStateChanged
	_ func(context.Context, error) error                                      = (*NopHooks)(nil).OnError
)

// NewNop creates a new no-op hooks implementation.
func NewNop() types.Hooks {
	h := &NopHooks{}
	return types.Hooks{
		OnStateChanged: h.OnStateChanged,
		OnError:        h.OnError,
	}
}

// Fill returns a copy of h with every nil callback replaced by its no-op version.
func Fill(h *types.Hooks) types.Hooks {
	out := NewNop()
	if h == nil {
		return out
	}
	if h.OnStateChanged != nil {
		out.OnStateChanged = h.OnStateChanged
	}
	if h.OnError != nil {
		out.OnError = h.OnError
	}

	return out
}

// OnStateChanged is a no-op implementation.
func (h *NopHooks) OnStateChanged(_ context.Context, _, _ types.PartitionState) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(_ context.Context, _ error) error {
	return nil
}
