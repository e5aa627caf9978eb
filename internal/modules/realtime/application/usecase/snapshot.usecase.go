package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// DefaultSnapshotMaxAge bounds how long a cached snapshot answers hub method calls.
const DefaultSnapshotMaxAge = 5 * time.Second

// SnapshotUseCase serves dashboard and machine snapshots to hub methods
// (SubscribeToDashboard, RequestMachineStatus). A burst of subscribers within
// maxAge shares one backend read.
type SnapshotUseCase struct {
	source port.SnapshotSource
	cache  *snapshotCache
	maxAge time.Duration
	now    func() time.Time
}

func NewSnapshotUseCase(source port.SnapshotSource, maxAge time.Duration) *SnapshotUseCase {
	if maxAge < 0 {
		maxAge = 0
	}
	return &SnapshotUseCase{source: source, cache: newSnapshotCache(), maxAge: maxAge, now: time.Now}
}

func (uc *SnapshotUseCase) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	now := uc.now()
	if stats, ok := uc.cache.getStats(now, uc.maxAge); ok {
		return stats, nil
	}
	stats, err := uc.source.GetDashboardStats(ctx)
	if err != nil {
		slog.Warn("dashboard snapshot fetch failed", slog.Any("error", err))
		return nil, err
	}
	uc.cache.setStats(stats, now)
	return stats, nil
}

func (uc *SnapshotUseCase) GetAllMachines(ctx context.Context) ([]domain.MachineSummary, error) {
	now := uc.now()
	if machines, ok := uc.cache.getMachines(now, uc.maxAge); ok {
		return machines, nil
	}
	machines, err := uc.source.GetAllMachines(ctx)
	if err != nil {
		slog.Warn("machine list snapshot fetch failed", slog.Any("error", err))
		return nil, err
	}
	uc.cache.setMachines(machines, now)
	return machines, nil
}

// GetMachine answers from a fresh machine list when one is cached and falls
// back to the single machine lookup otherwise.
func (uc *SnapshotUseCase) GetMachine(ctx context.Context, id domain.MachineID) (*domain.MachineSummary, error) {
	if machine, ok := uc.cache.getMachine(id, uc.now(), uc.maxAge); ok {
		return machine, nil
	}
	return uc.source.GetMachine(ctx, id)
}

var _ port.SnapshotSource = (*SnapshotUseCase)(nil)
