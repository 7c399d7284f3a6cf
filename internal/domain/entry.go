package domain

import (
	"context"
	"time"
)

const (
	SiteClinic = "clinic"
	SiteRemote = "remote"
)

// ValidSite reports whether s names a work site.
func ValidSite(s string) bool {
	return s == SiteClinic || s == SiteRemote
}

// Entry is one block of tracked work. It is either timed (StartUTC, and
// StopUTC once stopped) or a manual duration (StartLocalDate and
// DurationMin with no instants). Legacy rows may carry both.
type Entry struct {
	ID     int64
	UserID int64
	Site   string
	// StartUTC is nil for manual duration entries.
	StartUTC *time.Time
	// StopUTC is nil while the entry is running.
	StopUTC *time.Time
	// StartLocalDate is the stored YYYY-MM-DD calendar day, or "".
	StartLocalDate string
	// DurationMin, when set, overrides the start/stop difference.
	DurationMin *int
	Notes       string
	Events      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive reports whether the entry has started and not yet stopped.
func (e *Entry) IsActive() bool {
	return e.StartUTC != nil && e.StopUTC == nil
}

// IsManualDuration reports whether the entry was logged as a bare duration.
func (e *Entry) IsManualDuration() bool {
	return e.StartUTC == nil && e.DurationMin != nil
}

// EntryFilter narrows ListByUser. Zero values mean no restriction.
type EntryFilter struct {
	Site  string
	Limit int
}

// EntryRepository defines persistence operations for time entries.
type EntryRepository interface {
	Create(ctx context.Context, entry *Entry) error
	// StartExclusive inserts entry unless the user already has a running
	// entry, in which case it returns ErrActiveEntryExists.
	StartExclusive(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id int64) (*Entry, error)
	GetActiveByUser(ctx context.Context, userID int64) (*Entry, error)
	// ListByUser returns the user's entries newest first.
	ListByUser(ctx context.Context, userID int64, filter EntryFilter) ([]Entry, error)
	Update(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, id int64) error
}
