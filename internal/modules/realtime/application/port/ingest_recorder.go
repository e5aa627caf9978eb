package port

import (
	"context"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

// IngestRecorder persists ingested state changes so local snapshots stay current.
type IngestRecorder interface {
	Record(ctx context.Context, event *domain.IngestEvent) error
}
