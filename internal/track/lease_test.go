package track

import (
	"testing"
	"time"
)

func TestLeaseRegistry_ExclusiveUntilReleased(t *testing.T) {
	r := NewLeaseRegistry(time.Minute, func() time.Time { return testNow })

	if !r.Acquire("op-1") {
		t.Fatal("first acquire should succeed")
	}
	if r.Acquire("op-1") {
		t.Fatal("second acquire should fail while lease held")
	}
	if !r.Acquire("op-2") {
		t.Fatal("leases are per opinion")
	}

	r.Release("op-1")
	if !r.Acquire("op-1") {
		t.Fatal("acquire after release should succeed")
	}
}

func TestLeaseRegistry_ExpiredLeaseReacquirable(t *testing.T) {
	now := testNow
	r := NewLeaseRegistry(time.Minute, func() time.Time { return now })

	if !r.Acquire("op-1") {
		t.Fatal("first acquire should succeed")
	}
	now = now.Add(30 * time.Second)
	if r.Acquire("op-1") {
		t.Fatal("lease still live at half TTL")
	}
	now = now.Add(31 * time.Second)
	if !r.Acquire("op-1") {
		t.Fatal("expired lease should be reacquirable")
	}
}
