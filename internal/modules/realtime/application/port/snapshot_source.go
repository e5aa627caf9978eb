package port

import (
	"context"
	"errors"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

var (
	ErrSnapshotForbidden   = errors.New("snapshot forbidden")
	ErrSnapshotNotFound    = errors.New("snapshot not found")
	ErrSnapshotUnavailable = errors.New("snapshot source unavailable")
)

// SnapshotSource is the read-only data-access collaborator behind the periodic publisher
// and the dashboard/status hub methods.
type SnapshotSource interface {
	GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error)
	GetAllMachines(ctx context.Context) ([]domain.MachineSummary, error)
	GetMachine(ctx context.Context, id domain.MachineID) (*domain.MachineSummary, error)
}
