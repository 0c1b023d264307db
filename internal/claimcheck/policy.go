package claimcheck

import (
	commonpb "go.temporal.io/api/common/v1"
)

// OffloadPolicy decides whether a payload leaves the engine's history. size is the
// serialized size of p in bytes.
type OffloadPolicy interface {
	ShouldOffload(p *commonpb.Payload, size int) bool
}

// PolicyFunc adapts a function to OffloadPolicy.
type PolicyFunc func(p *commonpb.Payload, size int) bool

func (f PolicyFunc) ShouldOffload(p *commonpb.Payload, size int) bool { return f(p, size) }

// Always offloads every payload.
func Always() OffloadPolicy {
	return PolicyFunc(func(*commonpb.Payload, int) bool { return true })
}

// LargerThan offloads payloads whose serialized size exceeds n bytes.
func LargerThan(n int) OffloadPolicy {
	return PolicyFunc(func(_ *commonpb.Payload, size int) bool { return size > n })
}

// PolicyForThreshold maps a configured byte threshold to a policy; zero or less
// offloads everything.
func PolicyForThreshold(n int) OffloadPolicy {
	if n <= 0 {
		return Always()
	}
	return LargerThan(n)
}
