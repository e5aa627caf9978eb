package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/shared/normalization"
)

const (
	dashboardStatsPath = "/api/dashboard/stats"
	machinesPath       = "/api/machines"
)

// SnapshotHTTPClient reads dashboard and machine snapshots from the management REST API.
type SnapshotHTTPClient struct {
	rest    *RESTClient
	timeout time.Duration
}

func NewSnapshotHTTPClient(baseURL, token string, timeout time.Duration, client *http.Client) *SnapshotHTTPClient {
	return &SnapshotHTTPClient{rest: NewRESTClient(baseURL, token, timeout, client), timeout: timeoutOrDefault(timeout)}
}

func (c *SnapshotHTTPClient) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	payload, err := c.get(ctx, dashboardStatsPath)
	if err != nil {
		return nil, err
	}
	m := normalization.MapFromPayload(payload)
	if m == nil {
		return nil, fmt.Errorf("%w: dashboard stats is not an object", port.ErrSnapshotUnavailable)
	}
	return decodeDashboardStats(m), nil
}

func (c *SnapshotHTTPClient) GetAllMachines(ctx context.Context) ([]domain.MachineSummary, error) {
	payload, err := c.get(ctx, machinesPath)
	if err != nil {
		return nil, err
	}
	items := normalization.SliceFromPayload(payload)
	machines := make([]domain.MachineSummary, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			machines = append(machines, decodeMachineSummary(m))
		}
	}
	return machines, nil
}

func (c *SnapshotHTTPClient) GetMachine(ctx context.Context, id domain.MachineID) (*domain.MachineSummary, error) {
	payload, err := c.get(ctx, machinesPath+"/"+id.String())
	if err != nil {
		return nil, err
	}
	m := normalization.MapFromPayload(payload)
	if m == nil {
		return nil, port.ErrSnapshotNotFound
	}
	machine := decodeMachineSummary(m)
	return &machine, nil
}

func (c *SnapshotHTTPClient) get(ctx context.Context, path string) (any, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.rest.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		slog.Error("snapshot request build failed", slog.String("path", path), slog.Any("error", err))
		return nil, err
	}
	slog.Debug("snapshot request", slog.String("url", req.URL.String()))

	res, err := c.rest.Do(req)
	if err != nil {
		slog.Error("snapshot request error", slog.String("path", path), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", port.ErrSnapshotUnavailable, err)
	}
	defer res.Body.Close()
	slog.Debug("snapshot response", slog.Int("status", res.StatusCode), slog.String("url", req.URL.String()))

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, port.ErrSnapshotForbidden
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, port.ErrSnapshotNotFound
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		slog.Error("snapshot fetch unexpected status", slog.Int("status", res.StatusCode), slog.String("url", req.URL.String()), slog.String("body", strings.TrimSpace(string(body))))
		return nil, fmt.Errorf("%w: unexpected response %d", port.ErrSnapshotUnavailable, res.StatusCode)
	}

	var payload any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return payload, nil
}

func decodeDashboardStats(m map[string]any) *domain.DashboardStats {
	stats := &domain.DashboardStats{
		TotalMachines:          normalization.AsInt(normalization.Lookup(m, "totalMachines")),
		OnlineMachines:         normalization.AsInt(normalization.Lookup(m, "onlineMachines")),
		OfflineMachines:        normalization.AsInt(normalization.Lookup(m, "offlineMachines")),
		TotalLogsToday:         normalization.AsInt64(normalization.Lookup(m, "totalLogsToday")),
		TotalErrors:            normalization.AsInt64(normalization.Lookup(m, "totalErrors", "errorCount")),
		TotalWarnings:          normalization.AsInt64(normalization.Lookup(m, "totalWarnings", "warningCount")),
		PendingCommands:        normalization.AsInt(normalization.Lookup(m, "pendingCommands")),
		CompletedCommandsToday: normalization.AsInt(normalization.Lookup(m, "completedCommandsToday")),
		AverageResponseTime:    normalization.AsFloat64(normalization.Lookup(m, "averageResponseTime")),
		LastUpdated:            normalization.AsTime(normalization.Lookup(m, "lastUpdated")),
	}
	if stats.OfflineMachines == 0 && stats.TotalMachines > stats.OnlineMachines {
		stats.OfflineMachines = stats.TotalMachines - stats.OnlineMachines
	}
	if stats.LastUpdated.IsZero() {
		stats.LastUpdated = time.Now().UTC()
	}
	return stats
}

func decodeMachineSummary(m map[string]any) domain.MachineSummary {
	machine := domain.MachineSummary{
		MachineID:     domain.MachineID(normalization.AsInt64(normalization.Lookup(m, "machineId", "id"))),
		Name:          normalization.AsString(normalization.Lookup(m, "name")),
		StationName:   normalization.AsString(normalization.Lookup(m, "stationName")),
		LineName:      normalization.AsString(normalization.Lookup(m, "lineName")),
		Status:        domain.NormalizeMachineStatus(normalization.Lookup(m, "status")),
		IPAddress:     normalization.AsString(normalization.Lookup(m, "ipAddress", "ip")),
		LastHeartbeat: normalization.AsTime(normalization.Lookup(m, "lastHeartbeat", "lastSeen")),
		IsOnline:      normalization.AsBool(normalization.Lookup(m, "isOnline")),
	}
	if md, ok := normalization.Lookup(m, "metadata").(map[string]any); ok && len(md) > 0 {
		machine.Metadata = md
	}
	if !machine.IsOnline && machine.Status == domain.MachineStatusOnline {
		machine.IsOnline = true
	}
	return machine
}

var _ port.SnapshotSource = (*SnapshotHTTPClient)(nil)
