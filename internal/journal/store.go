package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const entryColumns = `id, item_id, source_path, outcome, route, subject, recipients,
	text_length, error_kind, error_message, created_at`

// Record appends an entry. A zero CreatedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return errors.New("journal store unavailable")
	}
	if strings.TrimSpace(entry.ItemID) == "" {
		return errors.New("journal entry requires an item id")
	}
	if entry.Outcome == "" {
		return errors.New("journal entry requires an outcome")
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.write(ctx,
		`INSERT INTO outcomes (item_id, source_path, outcome, route, subject, recipients,
			text_length, error_kind, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ItemID,
		entry.SourcePath,
		string(entry.Outcome),
		nullableString(entry.Route),
		nullableString(entry.Subject),
		nullableString(strings.Join(entry.Recipients, ",")),
		entry.TextLength,
		nullableString(entry.ErrorKind),
		nullableString(entry.ErrorMessage),
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. When outcomes is non-empty
// only matching rows are returned.
func (s *Store) Recent(ctx context.Context, limit int, outcomes ...Outcome) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + entryColumns + ` FROM outcomes`
	args := make([]any, 0, len(outcomes)+1)
	if len(outcomes) > 0 {
		placeholders := make([]string, len(outcomes))
		for i, outcome := range outcomes {
			placeholders[i] = "?"
			args = append(args, string(outcome))
		}
		query += ` WHERE outcome IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ForItem returns every entry recorded for one document, oldest first.
func (s *Store) ForItem(ctx context.Context, itemID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM outcomes WHERE item_id = ? ORDER BY created_at ASC, id ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query journal item: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Summarize returns outcome counts across the whole journal.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(1) FROM outcomes GROUP BY outcome`)
	if err != nil {
		return Summary{}, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	summary := Summary{ByStatus: make(map[Outcome]int)}
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return Summary{}, err
		}
		o := Outcome(outcome)
		summary.ByStatus[o] = count
		summary.Total += count
		if o.IsFailure() {
			summary.Failures += count
		}
	}
	return summary, rows.Err()
}

// Prune deletes entries created before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.write(ctx, `DELETE FROM outcomes WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}

// PruneRetention removes entries older than the given number of days.
// A non-positive value keeps everything.
func (s *Store) PruneRetention(ctx context.Context, days int, now time.Time) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	return s.Prune(ctx, now.AddDate(0, 0, -days))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry        Entry
		outcome      string
		route        sql.NullString
		subject      sql.NullString
		recipients   sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
	)
	if err := row.Scan(
		&entry.ID,
		&entry.ItemID,
		&entry.SourcePath,
		&outcome,
		&route,
		&subject,
		&recipients,
		&entry.TextLength,
		&errorKind,
		&errorMessage,
		&entry.CreatedAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scan journal entry: %w", err)
	}
	entry.Outcome = Outcome(outcome)
	entry.Route = route.String
	entry.Subject = subject.String
	if recipients.String != "" {
		entry.Recipients = strings.Split(recipients.String, ",")
	}
	entry.ErrorKind = errorKind.String
	entry.ErrorMessage = errorMessage.String
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
