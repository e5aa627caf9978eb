package usecase

import (
	"sync"
	"time"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

type snapshotCache struct {
	mu         sync.RWMutex
	stats      *domain.DashboardStats
	statsAt    time.Time
	machines   []domain.MachineSummary
	machinesAt time.Time
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{}
}

func (c *snapshotCache) setStats(stats *domain.DashboardStats, at time.Time) {
	if stats == nil {
		return
	}
	cloned := *stats
	c.mu.Lock()
	c.stats = &cloned
	c.statsAt = at
	c.mu.Unlock()
}

func (c *snapshotCache) getStats(now time.Time, maxAge time.Duration) (*domain.DashboardStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stats == nil || now.Sub(c.statsAt) > maxAge {
		return nil, false
	}
	cloned := *c.stats
	return &cloned, true
}

func (c *snapshotCache) setMachines(machines []domain.MachineSummary, at time.Time) {
	cloned := append([]domain.MachineSummary(nil), machines...)
	c.mu.Lock()
	c.machines = cloned
	c.machinesAt = at
	c.mu.Unlock()
}

func (c *snapshotCache) getMachines(now time.Time, maxAge time.Duration) ([]domain.MachineSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.machinesAt.IsZero() || now.Sub(c.machinesAt) > maxAge {
		return nil, false
	}
	return append([]domain.MachineSummary{}, c.machines...), true
}

func (c *snapshotCache) getMachine(id domain.MachineID, now time.Time, maxAge time.Duration) (*domain.MachineSummary, bool) {
	machines, ok := c.getMachines(now, maxAge)
	if !ok {
		return nil, false
	}
	for i := range machines {
		if machines[i].MachineID == id {
			return &machines[i], true
		}
	}
	return nil, false
}
