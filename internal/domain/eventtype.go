package domain

import (
	"context"
	"time"
)

// EventType is an admin-managed label that entries can be tagged with.
type EventType struct {
	ID        int64
	Name      string
	Active    bool
	CreatedAt time.Time
}

// EventTypeRepository defines persistence operations for event types.
type EventTypeRepository interface {
	List(ctx context.Context, includeInactive bool) ([]EventType, error)
	GetByID(ctx context.Context, id int64) (*EventType, error)
	Create(ctx context.Context, et *EventType) error
	Update(ctx context.Context, et *EventType) error
}
