package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/msomdec/shift-clock/internal/civil"
	"github.com/msomdec/shift-clock/internal/domain"
)

// EntryRepository implements domain.EntryRepository. Event names on an
// entry are stored through the entry_events join table; names that do not
// match an active event type are dropped on write.
type EntryRepository struct {
	db *DB
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db *DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// querier is the subset of *sql.DB and *sql.Tx the repository needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const entryColumns = `id, user_id, site, start_utc, stop_utc, start_local_date, duration_min, notes, created_at, updated_at`

// activeClause matches a started entry that has not been stopped. Manual
// duration rows have no stop either, so a start instant is required.
const activeClause = `start_utc IS NOT NULL AND stop_utc IS NULL`

// eventChunk bounds the number of placeholders in one IN (...) list.
const eventChunk = 500

func (r *EntryRepository) Create(ctx context.Context, entry *domain.Entry) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return r.insert(ctx, tx, entry)
	})
}

// StartExclusive inserts entry unless the user already has an active one.
// On MySQL the locking read of a missing row only takes gap locks, so two
// concurrent starts can deadlock on insert. The loser is retried once and
// then sees the winner's row.
func (r *EntryRepository) StartExclusive(ctx context.Context, entry *domain.Entry) error {
	err := retry.Do(
		func() error { return r.startExclusive(ctx, entry) },
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(10*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsDeadlock),
	)
	if IsDeadlock(err) {
		return domain.ErrActiveEntryExists
	}
	return err
}

func (r *EntryRepository) startExclusive(ctx context.Context, entry *domain.Entry) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM entries WHERE user_id = ? AND `+activeClause+` LIMIT 1`+r.db.forUpdate(),
			entry.UserID,
		).Scan(&id)
		switch {
		case err == nil:
			return domain.ErrActiveEntryExists
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("query active entry: %w", err)
		}
		return r.insert(ctx, tx, entry)
	})
}

func (r *EntryRepository) GetByID(ctx context.Context, id int64) (*domain.Entry, error) {
	e, err := scanEntry(r.db.SqlDB.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query entry by id: %w", err)
	}
	if err := loadEvents(ctx, r.db.SqlDB, []*domain.Entry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EntryRepository) GetActiveByUser(ctx context.Context, userID int64) (*domain.Entry, error) {
	e, err := scanEntry(r.db.SqlDB.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = ? AND `+activeClause+`
		 ORDER BY id DESC LIMIT 1`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query active entry: %w", err)
	}
	if err := loadEvents(ctx, r.db.SqlDB, []*domain.Entry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// ListByUser orders by local date, then start instant, then id, all
// descending. Rows without a stored local date sort last.
func (r *EntryRepository) ListByUser(ctx context.Context, userID int64, filter domain.EntryFilter) ([]domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id = ?`
	args := []any{userID}
	if filter.Site != "" {
		query += ` AND site = ?`
		args = append(args, filter.Site)
	}
	query += ` ORDER BY start_local_date DESC, start_utc DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.SqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	ptrs := make([]*domain.Entry, len(entries))
	for i := range entries {
		ptrs[i] = &entries[i]
	}
	if err := loadEvents(ctx, r.db.SqlDB, ptrs); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *EntryRepository) Update(ctx context.Context, entry *domain.Entry) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		result, err := tx.ExecContext(ctx,
			`UPDATE entries SET site = ?, start_utc = ?, stop_utc = ?, start_local_date = ?,
			 duration_min = ?, notes = ?, updated_at = ? WHERE id = ?`,
			entry.Site, nullTime(entry.StartUTC), nullTime(entry.StopUTC), nullString(entry.StartLocalDate),
			nullInt(entry.DurationMin), nullString(entry.Notes), now, entry.ID,
		)
		if err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return domain.ErrNotFound
		}
		names, err := replaceEvents(ctx, tx, entry.ID, entry.Events)
		if err != nil {
			return err
		}
		entry.Events = names
		entry.UpdatedAt = now
		return nil
	})
}

func (r *EntryRepository) Delete(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entry_events WHERE entry_id = ?`, id); err != nil {
			return fmt.Errorf("delete entry events: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *EntryRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.SqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *EntryRepository) insert(ctx context.Context, tx *sql.Tx, entry *domain.Entry) error {
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO entries (user_id, site, start_utc, stop_utc, start_local_date, duration_min, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Site, nullTime(entry.StartUTC), nullTime(entry.StopUTC), nullString(entry.StartLocalDate),
		nullInt(entry.DurationMin), nullString(entry.Notes), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now
	entry.UpdatedAt = now

	names, err := replaceEvents(ctx, tx, id, entry.Events)
	if err != nil {
		return err
	}
	entry.Events = names
	return nil
}

// replaceEvents links entryID to the active event types named in names and
// returns the names that were linked, in input order without duplicates.
func replaceEvents(ctx context.Context, tx *sql.Tx, entryID int64, names []string) ([]string, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_events WHERE entry_id = ?`, entryID); err != nil {
		return nil, fmt.Errorf("clear entry events: %w", err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM event_types WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("list active event types: %w", err)
	}
	ids := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan event type: %w", err)
		}
		ids[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event types: %w", err)
	}

	var linked []string
	seen := make(map[int64]bool)
	for _, name := range names {
		id, ok := ids[name]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entry_events (entry_id, event_type_id) VALUES (?, ?)`, entryID, id,
		); err != nil {
			return nil, fmt.Errorf("link event %q: %w", name, err)
		}
		linked = append(linked, name)
	}
	return linked, nil
}

// loadEvents fills Events on each entry, ordered by name.
func loadEvents(ctx context.Context, q querier, entries []*domain.Entry) error {
	byID := make(map[int64]*domain.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	for start := 0; start < len(entries); start += eventChunk {
		chunk := entries[start:min(start+eventChunk, len(entries))]
		args := make([]any, len(chunk))
		for i, e := range chunk {
			args[i] = e.ID
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		rows, err := q.QueryContext(ctx,
			`SELECT ee.entry_id, et.name FROM entry_events ee
			 JOIN event_types et ON et.id = ee.event_type_id
			 WHERE ee.entry_id IN (`+placeholders+`)
			 ORDER BY et.name`, args...)
		if err != nil {
			return fmt.Errorf("load entry events: %w", err)
		}
		for rows.Next() {
			var entryID int64
			var name string
			if err := rows.Scan(&entryID, &name); err != nil {
				rows.Close()
				return fmt.Errorf("scan entry event: %w", err)
			}
			if e, ok := byID[entryID]; ok {
				e.Events = append(e.Events, name)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate entry events: %w", err)
		}
	}
	return nil
}

func scanEntry(s rowScanner) (*domain.Entry, error) {
	var (
		e         domain.Entry
		start     sql.NullTime
		stop      sql.NullTime
		localDate sql.NullString
		duration  sql.NullInt64
		notes     sql.NullString
	)
	err := s.Scan(&e.ID, &e.UserID, &e.Site, &start, &stop, &localDate, &duration, &notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		t := start.Time.UTC()
		e.StartUTC = &t
	}
	if stop.Valid {
		t := stop.Time.UTC()
		e.StopUTC = &t
	}
	if localDate.Valid {
		// MySQL DATE columns come back as RFC 3339 timestamps.
		if d, ok := civil.NormalizeDate(localDate.String); ok {
			e.StartLocalDate = d.String()
		} else {
			e.StartLocalDate = localDate.String
		}
	}
	if duration.Valid {
		d := int(duration.Int64)
		e.DurationMin = &d
	}
	e.Notes = notes.String
	return &e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
