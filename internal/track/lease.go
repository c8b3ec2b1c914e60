package track

import (
	"sync"
	"time"
)

// LeaseRegistry enforces at most one in-flight verification attempt per
// opinion. A lease expires after its TTL so an abandoned attempt (e.g.
// one exceeding the maximum attempt duration) does not block the opinion
// forever: it simply becomes eligible for re-dispatch.
type LeaseRegistry struct {
	mu     sync.Mutex
	leases map[string]time.Time // opinion id -> expiry
	ttl    time.Duration
	now    func() time.Time
}

// NewLeaseRegistry creates a registry with the given lease TTL and clock
// (nil means time.Now).
func NewLeaseRegistry(ttl time.Duration, now func() time.Time) *LeaseRegistry {
	if now == nil {
		now = time.Now
	}
	return &LeaseRegistry{
		leases: make(map[string]time.Time),
		ttl:    ttl,
		now:    now,
	}
}

// Acquire takes the lease for an opinion. Returns false when another
// attempt holds an unexpired lease.
func (r *LeaseRegistry) Acquire(opinionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if expiry, held := r.leases[opinionID]; held && expiry.After(now) {
		return false
	}
	r.leases[opinionID] = now.Add(r.ttl)
	return true
}

// Release frees the lease after an attempt completes or fails.
func (r *LeaseRegistry) Release(opinionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leases, opinionID)
}
