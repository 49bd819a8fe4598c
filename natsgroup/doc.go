// Package natsgroup implements the coordination session and the group
// partitioning primitive on NATS JetStream KeyValue buckets.
//
// A group is addressed by its group path. Members of a group announce
// themselves with heartbeat keys in the member bucket and claim partitions
// with lock keys in the lock bucket:
//
//	m.<token>.<memberID>     member heartbeat, rewritten every TTL/3
//	l.<token>.<partitionID>  partition lock, value is the owner member ID
//
// <token> is the xxh3 digest of the group path, because KV keys cannot hold
// arbitrary path characters. Both buckets expire entries one member TTL
// after their last write, so a crashed member disappears from the group and
// its locks become claimable without any cleanup.
//
// Allocation mirrors the classic set partitioner recipe: once membership has
// been stable for the time boundary, every member evaluates the same
// assignment strategy over the sorted member list and claims its share.
// A membership change moves every member to Release; after the application
// acknowledges with ReleaseSet the member drops its locks and allocates again.
//
// Example:
//
//	sess := natsgroup.NewSession("nats://127.0.0.1:4222",
//	    natsgroup.WithMemberTTL(6*time.Second))
//	p, err := kgroup.NewPartitioner(&cfg, topics, onAcquire, onRelease,
//	    kgroup.WithSession(sess))
package natsgroup
