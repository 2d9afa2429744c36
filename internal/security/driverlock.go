package security

import (
	"sync"
)

// DriverLocks serializes booking attempts per driver. Holding the driver's
// lock across the conflict check and the appointment write closes the
// check-then-act window in which two concurrent requests could both pass
// the check. This guards a single process; multi-replica deployments need
// a storage-level constraint instead.
type DriverLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewDriverLocks creates an empty lock table.
func NewDriverLocks() *DriverLocks {
	return &DriverLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the lock for a driver, creating it on first use.
func (d *DriverLocks) Lock(driverID int64) {
	d.mu.Lock()
	lock, ok := d.locks[driverID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[driverID] = lock
	}
	d.mu.Unlock()

	lock.Lock()
}

// Unlock releases the lock for a driver.
func (d *DriverLocks) Unlock(driverID int64) {
	d.mu.Lock()
	lock := d.locks[driverID]
	d.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}
