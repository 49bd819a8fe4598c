// Package testing provides test utilities for kgroup.
//
// It offers an embedded NATS server with JetStream for integration tests, in
// the spirit of net/http/httptest, plus a logger that writes to the test log.
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - CreateJetStreamKV: Convenience wrapper for KV bucket creation
//   - NewTestLogger: types.Logger backed by testing.T
//
// Example usage:
//
//	import (
//	    "testing"
//	    kgrouptest "github.com/arloliu/kgroup/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := kgrouptest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
