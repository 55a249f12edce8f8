package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// QueuedKeyword is one FIFO entry in the keyword queue.
type QueuedKeyword struct {
	ID        int64
	Keyword   string
	Slug      string
	Position  int64
	CreatedAt time.Time
}

// AppendKeyword adds a keyword at the back of the queue. The slug uniqueness
// constraint rejects entries already queued; callers pre-check for friendlier
// handling.
func (s *Store) AppendKeyword(ctx context.Context, keyword, slug string) error {
	next, err := s.boundaryPosition(ctx, true)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO keyword_queue (keyword, slug, position, created_at) VALUES (?, ?, ?, ?)`,
		keyword,
		slug,
		next,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append keyword: %w", err)
	}
	return nil
}

// PrependKeyword inserts a keyword at the front of the queue so it is served
// next. Used for post-failure requeues.
func (s *Store) PrependKeyword(ctx context.Context, keyword, slug string) error {
	front, err := s.boundaryPosition(ctx, false)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO keyword_queue (keyword, slug, position, created_at) VALUES (?, ?, ?, ?)`,
		keyword,
		slug,
		front,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("prepend keyword: %w", err)
	}
	return nil
}

// KeywordSlugQueued reports whether a slug is already present in the queue.
func (s *Store) KeywordSlugQueued(ctx context.Context, slug string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM keyword_queue WHERE slug = ?`, slug)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("check queued slug: %w", err)
	}
	return count > 0, nil
}

// ListKeywords returns the queue in serving order (front first).
func (s *Store) ListKeywords(ctx context.Context) ([]QueuedKeyword, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, keyword, slug, position, created_at FROM keyword_queue ORDER BY position, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	defer rows.Close()

	var out []QueuedKeyword
	for rows.Next() {
		var (
			entry      QueuedKeyword
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.Keyword, &entry.Slug, &entry.Position, &createdRaw); err != nil {
			return nil, err
		}
		if ts, err := parseTimeString(createdRaw); err == nil {
			entry.CreatedAt = ts
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// RemoveKeywords deletes queue entries by id.
func (s *Store) RemoveKeywords(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM keyword_queue WHERE id IN (`+makePlaceholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("remove keywords: %w", err)
	}
	return nil
}

// CountKeywords returns the number of queued keywords.
func (s *Store) CountKeywords(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM keyword_queue`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count keywords: %w", err)
	}
	return count, nil
}

// TrimKeywords caps the queue at max entries, dropping the oldest insertions
// first so the most recently discovered keywords survive.
func (s *Store) TrimKeywords(ctx context.Context, max int) (int64, error) {
	if max <= 0 {
		return 0, errors.New("trim capacity must be positive")
	}
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM keyword_queue WHERE id NOT IN (
            SELECT id FROM keyword_queue ORDER BY created_at DESC, id DESC LIMIT ?
        )`,
		max,
	)
	if err != nil {
		return 0, fmt.Errorf("trim keywords: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) boundaryPosition(ctx context.Context, back bool) (int64, error) {
	query := `SELECT MAX(position) FROM keyword_queue`
	offset := int64(1)
	if !back {
		query = `SELECT MIN(position) FROM keyword_queue`
		offset = -1
	}
	row := s.db.QueryRowContext(ctx, query)
	var boundary sql.NullInt64
	if err := row.Scan(&boundary); err != nil {
		return 0, fmt.Errorf("queue boundary: %w", err)
	}
	if !boundary.Valid {
		return 0, nil
	}
	return boundary.Int64 + offset, nil
}
