package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/msomdec/shift-clock/internal/domain"
)

// DefaultEventTypes are created by SeedDefaults on an empty catalogue.
var DefaultEventTypes = []string{
	"Assessment",
	"Charting",
	"Consultation",
	"Follow-up",
	"Meeting",
	"Phone call",
	"Training",
}

const maxEventTypeName = 100

// EventTypeService manages the catalogue of event labels.
type EventTypeService struct {
	types domain.EventTypeRepository
}

// NewEventTypeService creates a new EventTypeService.
func NewEventTypeService(types domain.EventTypeRepository) *EventTypeService {
	return &EventTypeService{types: types}
}

// List returns event types ordered by name. Inactive types are included
// only when includeInactive is set.
func (s *EventTypeService) List(ctx context.Context, includeInactive bool) ([]domain.EventType, error) {
	return s.types.List(ctx, includeInactive)
}

// Create adds an event type. Only admins may call it.
func (s *EventTypeService) Create(ctx context.Context, actor *domain.User, name string, active bool) (*domain.EventType, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	name, err := cleanEventTypeName(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, 0); err != nil {
		return nil, err
	}

	et := &domain.EventType{Name: name, Active: active}
	if err := s.types.Create(ctx, et); err != nil {
		return nil, fmt.Errorf("create event type: %w", err)
	}
	return et, nil
}

// EventTypePatch holds optional changes to an event type.
type EventTypePatch struct {
	Name   *string
	Active *bool
}

// Update renames or (de)activates an event type. Only admins may call it.
func (s *EventTypeService) Update(ctx context.Context, actor *domain.User, id int64, patch EventTypePatch) (*domain.EventType, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	et, err := s.types.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name, err := cleanEventTypeName(*patch.Name)
		if err != nil {
			return nil, err
		}
		if err := s.ensureUniqueName(ctx, name, et.ID); err != nil {
			return nil, err
		}
		et.Name = name
	}
	if patch.Active != nil {
		et.Active = *patch.Active
	}
	if err := s.types.Update(ctx, et); err != nil {
		return nil, fmt.Errorf("update event type: %w", err)
	}
	return et, nil
}

// SeedDefaults creates DefaultEventTypes when no event types exist yet. It
// is safe to call on every start.
func (s *EventTypeService) SeedDefaults(ctx context.Context) error {
	existing, err := s.types.List(ctx, true)
	if err != nil {
		return fmt.Errorf("list event types: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, name := range DefaultEventTypes {
		if err := s.types.Create(ctx, &domain.EventType{Name: name, Active: true}); err != nil {
			return fmt.Errorf("seed event type %q: %w", name, err)
		}
	}
	slog.Info("seeded default event types", "count", len(DefaultEventTypes))
	return nil
}

// Canonicalize maps user-supplied event names onto the names of active
// event types, ignoring case and Unicode width differences. Unknown names
// are dropped; duplicates collapse to the first occurrence.
func (s *EventTypeService) Canonicalize(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	active, err := s.types.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	byKey := make(map[string]string, len(active))
	for _, et := range active {
		byKey[foldName(et.Name)] = et.Name
	}

	var out []string
	seen := make(map[string]bool)
	for _, n := range names {
		canonical, ok := byKey[foldName(n)]
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out, nil
}

// ensureUniqueName rejects a name that differs from an existing one only in
// case. The database unique index only catches exact duplicates.
func (s *EventTypeService) ensureUniqueName(ctx context.Context, name string, selfID int64) error {
	all, err := s.types.List(ctx, true)
	if err != nil {
		return fmt.Errorf("list event types: %w", err)
	}
	key := foldName(name)
	for _, et := range all {
		if et.ID != selfID && foldName(et.Name) == key {
			return domain.ErrDuplicateName
		}
	}
	return nil
}

func cleanEventTypeName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if len(name) > maxEventTypeName {
		return "", fmt.Errorf("%w: name must be at most %d characters", domain.ErrInvalidInput, maxEventTypeName)
	}
	return name, nil
}

// foldName is the comparison key for event names.
func foldName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	folded, _, err := transform.String(transform.Chain(norm.NFKC, cases.Fold()), s)
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}
