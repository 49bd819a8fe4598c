package types

import "context"

// Hooks defines optional callbacks for Partitioner lifecycle events.
//
// Hooks are called asynchronously in background goroutines so they never
// block a coordination tick. Hook errors are logged and otherwise ignored.
//
// Example:
//
//	hooks := &kgroup.Hooks{
//	    OnStateChanged: func(ctx context.Context, from, to kgroup.PartitionState) error {
//	        log.Printf("partitioner %s -> %s", from, to)
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnStateChanged is called when the observed partitioner state changes.
	OnStateChanged func(ctx context.Context, from, to PartitionState) error

	// OnError is called when a tick fails.
	OnError func(ctx context.Context, err error) error
}
