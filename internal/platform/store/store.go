package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"

	_ "modernc.org/sqlite"
)

// timeLayout keeps stored timestamps fixed width so they compare as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a SQLite projection of machines, log entries and commands. It
// serves snapshots to the relay when no management API is configured.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s, err := NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB creates a Store from an existing *sql.DB and runs migrations.
func NewFromDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS machines (
			machine_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			station_name TEXT NOT NULL DEFAULT '',
			line_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'Offline',
			ip_address TEXT NOT NULL DEFAULT '',
			is_online INTEGER NOT NULL DEFAULT 0,
			last_heartbeat TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS log_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			machine_id INTEGER NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			exception TEXT NOT NULL DEFAULT '',
			logged_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_log_entries_logged_at ON log_entries(logged_at);
		CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY,
			machine_id INTEGER NOT NULL,
			command_type TEXT NOT NULL DEFAULT '',
			command_data TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'Pending',
			result TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			executed_at TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_commands_status ON commands(status);
	`)
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Store) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	now := s.now().UTC()
	startOfDay := formatTime(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
	stats := &domain.DashboardStats{LastUpdated: now}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_online), 0) FROM machines`)
	if err := row.Scan(&stats.TotalMachines, &stats.OnlineMachines); err != nil {
		return nil, fmt.Errorf("%w: count machines: %w", port.ErrSnapshotUnavailable, err)
	}
	stats.OfflineMachines = stats.TotalMachines - stats.OnlineMachines

	row = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN UPPER(level) IN ('ERROR', 'CRITICAL', 'FATAL') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN UPPER(level) IN ('WARN', 'WARNING') THEN 1 ELSE 0 END), 0)
		FROM log_entries WHERE logged_at >= ?`, startOfDay)
	if err := row.Scan(&stats.TotalLogsToday, &stats.TotalErrors, &stats.TotalWarnings); err != nil {
		return nil, fmt.Errorf("%w: count logs: %w", port.ErrSnapshotUnavailable, err)
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN status IN ('Pending', 'Sent', 'Executing') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'Completed' AND executed_at >= ? THEN 1 ELSE 0 END), 0)
		FROM commands`, startOfDay)
	if err := row.Scan(&stats.PendingCommands, &stats.CompletedCommandsToday); err != nil {
		return nil, fmt.Errorf("%w: count commands: %w", port.ErrSnapshotUnavailable, err)
	}

	avg, err := s.averageResponseTime(ctx, startOfDay)
	if err != nil {
		return nil, err
	}
	stats.AverageResponseTime = avg
	return stats, nil
}

// averageResponseTime is the mean time in milliseconds between creation and
// execution of the commands executed today.
func (s *Store) averageResponseTime(ctx context.Context, since string) (float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, executed_at FROM commands
		WHERE executed_at != '' AND executed_at >= ?`, since)
	if err != nil {
		return 0, fmt.Errorf("%w: command timings: %w", port.ErrSnapshotUnavailable, err)
	}
	defer rows.Close()

	var total time.Duration
	count := 0
	for rows.Next() {
		var created, executed string
		if err := rows.Scan(&created, &executed); err != nil {
			return 0, fmt.Errorf("%w: scan command timing: %w", port.ErrSnapshotUnavailable, err)
		}
		c, e := parseTime(created), parseTime(executed)
		if c.IsZero() || e.IsZero() || e.Before(c) {
			continue
		}
		total += e.Sub(c)
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%w: command timings: %w", port.ErrSnapshotUnavailable, err)
	}
	if count == 0 {
		return 0, nil
	}
	return float64(total.Milliseconds()) / float64(count), nil
}

const machineColumns = `machine_id, name, station_name, line_name, status, ip_address, is_online, last_heartbeat`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMachine(row rowScanner) (domain.MachineSummary, error) {
	var (
		m         domain.MachineSummary
		status    string
		online    int
		heartbeat string
	)
	if err := row.Scan(&m.MachineID, &m.Name, &m.StationName, &m.LineName, &status, &m.IPAddress, &online, &heartbeat); err != nil {
		return m, err
	}
	m.Status = domain.MachineStatus(status)
	m.IsOnline = online != 0
	m.LastHeartbeat = parseTime(heartbeat)
	return m, nil
}

func (s *Store) GetAllMachines(ctx context.Context) ([]domain.MachineSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+machineColumns+` FROM machines ORDER BY machine_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list machines: %w", port.ErrSnapshotUnavailable, err)
	}
	defer rows.Close()

	machines := []domain.MachineSummary{}
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan machine: %w", port.ErrSnapshotUnavailable, err)
		}
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list machines: %w", port.ErrSnapshotUnavailable, err)
	}
	return machines, nil
}

func (s *Store) GetMachine(ctx context.Context, id domain.MachineID) (*domain.MachineSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+machineColumns+` FROM machines WHERE machine_id = ?`, int64(id))
	m, err := scanMachine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get machine: %w", port.ErrSnapshotUnavailable, err)
	}
	return &m, nil
}

var _ port.SnapshotSource = (*Store)(nil)
