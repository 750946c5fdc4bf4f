package tray

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines tray inventory persistence operations.
type Repository interface {
	// GetByID retrieves a tray by id.
	// Returns ErrTrayNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Tray, error)

	// GetStoredAt retrieves the stored tray at a location.
	// Returns ErrSlotEmpty if the slot holds no stored tray.
	GetStoredAt(ctx context.Context, floor, slot int) (*Tray, error)

	// List retrieves all trays, stored first, then by location.
	List(ctx context.Context) ([]Tray, error)

	// ListStored retrieves all stored trays ordered by location.
	ListStored(ctx context.Context) ([]Tray, error)

	// Create inserts a new stored tray.
	// Returns ErrSlotOccupied if a stored tray already holds the slot.
	Create(ctx context.Context, t *Tray) error

	// MarkOutbound flips the stored tray at a location to outbound,
	// freeing the slot, and returns the tray.
	MarkOutbound(ctx context.Context, floor, slot int) (*Tray, error)

	// MarkRemoved flips an outbound tray to removed.
	MarkRemoved(ctx context.Context, id string) error

	// UpdateWater records an irrigation event for a tray.
	UpdateWater(ctx context.Context, id string, level float64, wateredAt time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed tray repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const trayColumns = `id, status, floor, slot, station_id,
	species, quantity, batch_id, seeded_at, notes,
	water_level, last_watered, created_at, updated_at`

// GetByID retrieves a tray by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Tray, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+trayColumns+` FROM trays WHERE id = ?`, id)

	t, err := scanTray(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrayNotFound
		}
		return nil, fmt.Errorf("querying tray by id: %w", err)
	}
	return t, nil
}

// GetStoredAt retrieves the stored tray at a location.
func (r *SQLiteRepository) GetStoredAt(ctx context.Context, floor, slot int) (*Tray, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+trayColumns+` FROM trays WHERE floor = ? AND slot = ? AND status = ?`,
		floor, slot, StatusStored)

	t, err := scanTray(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("querying tray by location: %w", err)
	}
	return t, nil
}

// List retrieves all trays.
func (r *SQLiteRepository) List(ctx context.Context) ([]Tray, error) {
	return r.queryTrays(ctx,
		`SELECT `+trayColumns+` FROM trays
		 ORDER BY status = 'stored' DESC, floor, slot`)
}

// ListStored retrieves all stored trays ordered by location.
// This is the input for building the occupancy grid.
func (r *SQLiteRepository) ListStored(ctx context.Context) ([]Tray, error) {
	return r.queryTrays(ctx,
		`SELECT `+trayColumns+` FROM trays WHERE status = ? ORDER BY floor, slot`,
		StatusStored)
}

// Create inserts a new stored tray. The partial unique index on
// (floor, slot) for stored rows rejects double occupancy.
func (r *SQLiteRepository) Create(ctx context.Context, t *Tray) error {
	if t.Floor < 1 || t.Slot < 1 {
		return ErrInvalidLocation
	}
	if t.Status == "" {
		t.Status = StatusStored
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trays (`+trayColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Status, t.Floor, t.Slot, t.StationID,
		t.Species, t.Quantity, nullString(t.BatchID), nullTime(t.SeededAt), t.Notes,
		t.WaterLevel, nullTime(t.LastWatered),
		t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "idx_trays_location") {
			return ErrSlotOccupied
		}
		return fmt.Errorf("inserting tray: %w", err)
	}
	return nil
}

// MarkOutbound flips the stored tray at a location to outbound.
func (r *SQLiteRepository) MarkOutbound(ctx context.Context, floor, slot int) (*Tray, error) {
	t, err := r.GetStoredAt(ctx, floor, slot)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE trays SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusOutbound, time.Now().UTC().Format(time.RFC3339), t.ID, StatusStored)
	if err != nil {
		return nil, fmt.Errorf("marking tray outbound: %w", err)
	}

	t.Status = StatusOutbound
	return t, nil
}

// MarkRemoved flips a tray to removed.
func (r *SQLiteRepository) MarkRemoved(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE trays SET status = ?, updated_at = ? WHERE id = ?`,
		StatusRemoved, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("marking tray removed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTrayNotFound
	}
	return nil
}

// UpdateWater records an irrigation event.
func (r *SQLiteRepository) UpdateWater(ctx context.Context, id string, level float64, wateredAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE trays SET water_level = ?, last_watered = ?, updated_at = ? WHERE id = ?`,
		level, wateredAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating tray water: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTrayNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryTrays(ctx context.Context, query string, args ...interface{}) ([]Tray, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trays: %w", err)
	}
	defer rows.Close()

	var trays []Tray
	for rows.Next() {
		t, err := scanTray(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tray: %w", err)
		}
		trays = append(trays, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trays: %w", err)
	}
	return trays, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTray(s scanner) (*Tray, error) {
	var t Tray
	var batchID sql.NullString
	var seededAt, lastWatered sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&t.ID, &t.Status, &t.Floor, &t.Slot, &t.StationID,
		&t.Species, &t.Quantity, &batchID, &seededAt, &t.Notes,
		&t.WaterLevel, &lastWatered, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.BatchID = batchID.String
	t.SeededAt = parseNullTime(seededAt)
	t.LastWatered = parseNullTime(lastWatered)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is ours
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is ours

	return &t, nil
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
