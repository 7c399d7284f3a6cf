package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/shift-clock/internal/domain"
)

// EventTypeRepository implements domain.EventTypeRepository.
type EventTypeRepository struct {
	db *sql.DB
}

// NewEventTypeRepository creates a new EventTypeRepository.
func NewEventTypeRepository(db *DB) *EventTypeRepository {
	return &EventTypeRepository{db: db.SqlDB}
}

func (r *EventTypeRepository) List(ctx context.Context, includeInactive bool) ([]domain.EventType, error) {
	query := `SELECT id, name, active, created_at FROM event_types`
	if !includeInactive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	defer rows.Close()

	var out []domain.EventType
	for rows.Next() {
		var et domain.EventType
		if err := rows.Scan(&et.ID, &et.Name, &et.Active, &et.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event type: %w", err)
		}
		out = append(out, et)
	}
	return out, rows.Err()
}

func (r *EventTypeRepository) GetByID(ctx context.Context, id int64) (*domain.EventType, error) {
	et := &domain.EventType{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, active, created_at FROM event_types WHERE id = ?`, id,
	).Scan(&et.ID, &et.Name, &et.Active, &et.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query event type by id: %w", err)
	}
	return et, nil
}

func (r *EventTypeRepository) Create(ctx context.Context, et *domain.EventType) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO event_types (name, active, created_at) VALUES (?, ?, ?)`,
		et.Name, et.Active, now,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("insert event type: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	et.ID = id
	et.CreatedAt = now
	return nil
}

func (r *EventTypeRepository) Update(ctx context.Context, et *domain.EventType) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE event_types SET name = ?, active = ? WHERE id = ?`,
		et.Name, et.Active, et.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("update event type: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
