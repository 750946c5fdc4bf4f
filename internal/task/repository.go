package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines task persistence operations.
// Abstracted so the flow supervisor can be tested without a database.
type Repository interface {
	// GetByID retrieves a task by id.
	// Returns ErrTaskNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Task, error)

	// List retrieves all tasks, newest first.
	List(ctx context.Context) ([]Task, error)

	// ListByStation retrieves a station's tasks, newest first.
	ListByStation(ctx context.Context, stationID int) ([]Task, error)

	// ListActive retrieves tasks that are not in a terminal status.
	ListActive(ctx context.Context) ([]Task, error)

	// Create inserts a new task.
	// Returns ErrTaskExists on id collision.
	Create(ctx context.Context, t *Task) error

	// TransitionStatus moves a task from one status to another.
	// The move must be legal per CanTransition. Idempotent: if the task
	// already sits at the target status the call succeeds without a
	// write. detail is stored alongside error transitions.
	TransitionStatus(ctx context.Context, id string, from, to Status, detail string) error

	// SetTray attaches a tray id to a task.
	SetTray(ctx context.Context, id, trayID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed task repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const taskColumns = `id, station_id, direction, status, tray_id,
	target_floor, target_slot, work_order_id, planting_plan_id, detail,
	created_at, updated_at`

// GetByID retrieves a task by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("querying task by id: %w", err)
	}
	return t, nil
}

// List retrieves all tasks, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
}

// ListByStation retrieves a station's tasks, newest first.
func (r *SQLiteRepository) ListByStation(ctx context.Context, stationID int) ([]Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE station_id = ? ORDER BY created_at DESC`,
		stationID)
}

// ListActive retrieves tasks still moving through the lifecycle.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE status IN (?, ?, ?) ORDER BY created_at`,
		StatusPending, StatusWorking, StatusAtWorkstation)
}

// Create inserts a new task.
func (r *SQLiteRepository) Create(ctx context.Context, t *Task) error {
	if t.ID == "" || !t.Direction.IsValid() {
		return ErrInvalidTask
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if !t.Status.IsValid() {
		return ErrInvalidTask
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.StationID, t.Direction, t.Status, nullString(t.TrayID),
		t.TargetFloor, t.TargetSlot,
		nullString(t.WorkOrderID), nullString(t.PlantingPlanID), t.Detail,
		t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTaskExists
		}
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// TransitionStatus moves a task between lifecycle statuses.
//
// The guarded UPDATE only matches the expected current status, so a
// concurrent transition cannot be silently overwritten. When the row
// was not matched, the current status is re-read: already at the target
// means a repeated delivery and succeeds, anything else is an invalid
// transition.
func (r *SQLiteRepository) TransitionStatus(ctx context.Context, id string, from, to Status, detail string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	query := `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	args := []interface{}{to, time.Now().UTC().Format(time.RFC3339), id, from}
	if detail != "" {
		query = `UPDATE tasks SET status = ?, detail = ?, updated_at = ? WHERE id = ? AND status = ?`
		args = []interface{}{to, detail, time.Now().UTC().Format(time.RFC3339), id, from}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == to {
		return nil // Already transitioned
	}
	return fmt.Errorf("%w: task %s is %s, expected %s", ErrInvalidTransition, id, current.Status, from)
}

// SetTray attaches a tray id to a task.
func (r *SQLiteRepository) SetTray(ctx context.Context, id, trayID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET tray_id = ?, updated_at = ? WHERE id = ?`,
		trayID, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("setting task tray: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var trayID, workOrder, plantingPlan sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&t.ID, &t.StationID, &t.Direction, &t.Status, &trayID,
		&t.TargetFloor, &t.TargetSlot, &workOrder, &plantingPlan, &t.Detail,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.TrayID = trayID.String
	t.WorkOrderID = workOrder.String
	t.PlantingPlanID = plantingPlan.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is ours
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is ours

	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	// go-sqlite3 reports constraint violations in the error text.
	return err != nil &&
		(strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "PRIMARY KEY constraint failed"))
}
