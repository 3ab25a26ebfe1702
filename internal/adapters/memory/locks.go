package memory

import (
	"hash/fnv"
	"sync"

	"github.com/charon-sso/charon/internal/core"
)

// StripedLockFactory hashes ticket ids over a fixed set of mutexes. Distinct
// ids may share a stripe; that only costs contention, never correctness.
type StripedLockFactory struct {
	stripes []sync.Mutex
}

var _ core.LockFactory = (*StripedLockFactory)(nil)

// NewStripedLockFactory builds a factory with the given stripe count,
// defaulting to 64.
func NewStripedLockFactory(stripes int) *StripedLockFactory {
	if stripes <= 0 {
		stripes = 64
	}
	return &StripedLockFactory{stripes: make([]sync.Mutex, stripes)}
}

// AcquireTicketLock implements core.LockFactory.
func (f *StripedLockFactory) AcquireTicketLock(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	mu := &f.stripes[int(h.Sum32())%len(f.stripes)]
	mu.Lock()
	return mu.Unlock
}

// NoopLockFactory disables per-ticket locking. Concurrent grants against one
// granting ticket may then lose child bookkeeping to last-write-wins races;
// stored data is never corrupted.
type NoopLockFactory struct{}

var _ core.LockFactory = NoopLockFactory{}

// AcquireTicketLock implements core.LockFactory.
func (NoopLockFactory) AcquireTicketLock(string) func() { return func() {} }
