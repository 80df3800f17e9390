package envspec

import (
	"hash/fnv"
	"sync"

	"github.com/crosslang/sdkbench/pkg/errors"
)

// PortAllocator hands out host ports from a configured range. The
// candidate port for a cell is derived from a stable hash of its ID, so
// re-runs tend to land on the same ports; collisions with concurrently
// held ports probe linearly to the next free slot. All mutation happens
// under one mutex, so two cells never receive the same port.
type PortAllocator struct {
	mu   sync.Mutex
	lo   int
	hi   int
	used map[int]string   // port -> owning cell ID
	own  map[string][]int // cell ID -> held ports
}

// NewPortAllocator creates an allocator over the half-open range [lo, hi).
func NewPortAllocator(lo, hi int) (*PortAllocator, error) {
	if lo < 1024 || hi <= lo || hi > 65536 {
		return nil, errors.New(errors.ErrCodeConfig, "invalid port range [%d, %d)", lo, hi)
	}
	return &PortAllocator{
		lo:   lo,
		hi:   hi,
		used: make(map[int]string),
		own:  make(map[string][]int),
	}, nil
}

// Allocate reserves a server and a client port for a cell. Allocating for
// a cell that already holds ports is an error, as is exhausting the range.
func (a *PortAllocator) Allocate(cellID string) (Ports, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, held := a.own[cellID]; held {
		return Ports{}, errors.New(errors.ErrCodeInternal, "cell %s already holds ports", cellID)
	}

	server, err := a.take(cellID, a.candidate(cellID))
	if err != nil {
		return Ports{}, err
	}
	client, err := a.take(cellID, server+1)
	if err != nil {
		a.free(cellID)
		return Ports{}, err
	}
	return Ports{Server: server, Client: client}, nil
}

// Release frees every port held by a cell. Releasing a cell that holds
// nothing is an error: it indicates a double release or a teardown for a
// cell that never allocated.
func (a *PortAllocator) Release(cellID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, held := a.own[cellID]; !held {
		return errors.New(errors.ErrCodeInternal, "cell %s holds no ports", cellID)
	}
	a.free(cellID)
	return nil
}

// Reclaim force-frees a port regardless of owner, for recovering from a
// failed teardown that left its allocation behind. It returns the owning
// cell ID, if any.
func (a *PortAllocator) Reclaim(port int) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	owner, held := a.used[port]
	if !held {
		return "", false
	}
	delete(a.used, port)
	kept := a.own[owner][:0]
	for _, p := range a.own[owner] {
		if p != port {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		delete(a.own, owner)
	} else {
		a.own[owner] = kept
	}
	return owner, true
}

// InUse returns the number of held ports.
func (a *PortAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}

func (a *PortAllocator) candidate(cellID string) int {
	h := fnv.New32a()
	h.Write([]byte(cellID))
	span := a.hi - a.lo
	return a.lo + int(h.Sum32())%span
}

// take probes from the candidate for the next free port. Caller holds the mutex.
func (a *PortAllocator) take(cellID string, from int) (int, error) {
	span := a.hi - a.lo
	for i := 0; i < span; i++ {
		port := a.lo + (from-a.lo+i)%span
		if _, taken := a.used[port]; taken {
			continue
		}
		a.used[port] = cellID
		a.own[cellID] = append(a.own[cellID], port)
		return port, nil
	}
	return 0, errors.New(errors.ErrCodePortExhausted,
		"no free ports in [%d, %d)", a.lo, a.hi)
}

// free drops every port a cell holds. Caller holds the mutex.
func (a *PortAllocator) free(cellID string) {
	for _, port := range a.own[cellID] {
		delete(a.used, port)
	}
	delete(a.own, cellID)
}
