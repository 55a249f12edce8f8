package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newsmill/internal/candidate"
)

const candidateColumns = "id, source_video_id, title, description, topic_key, search_query, query_source, transcript, research_json, article_json, status, skip_reason, fail_reason, created_at, updated_at, researched_at, generated_at"

// InsertCandidate persists a newly collected candidate. The exclusive-active
// invariant is enforced here: inserting fails when another non-terminal
// candidate already references the same source video.
func (s *Store) InsertCandidate(ctx context.Context, c *candidate.Candidate) error {
	if c == nil {
		return errors.New("candidate is nil")
	}
	if c.SourceVideoID != "" {
		existing, err := s.ActiveBySourceVideoID(ctx, c.SourceVideoID)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != c.ID {
			return fmt.Errorf("active candidate %s already references video %s", existing.ID, c.SourceVideoID)
		}
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO candidates (`+candidateColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		nullableString(c.SourceVideoID),
		nullableString(c.Title),
		nullableString(c.Description),
		nullableString(c.TopicKey),
		nullableString(c.SearchQuery),
		nullableString(c.QuerySource),
		nullableString(c.Transcript),
		nullableString(c.ResearchJSON),
		nullableString(c.ArticleJSON),
		c.Status,
		nullableString(c.SkipReason),
		nullableString(c.FailReason),
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		c.UpdatedAt.UTC().Format(time.RFC3339Nano),
		nullableTime(c.ResearchedAt),
		nullableTime(c.GeneratedAt),
	)
	if err != nil {
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

// GetCandidate fetches a candidate by identifier. Returns nil when absent.
func (s *Store) GetCandidate(ctx context.Context, id string) (*candidate.Candidate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

// UpdateCandidate persists the candidate as a whole-record rewrite keyed by id.
func (s *Store) UpdateCandidate(ctx context.Context, c *candidate.Candidate) error {
	if c == nil {
		return errors.New("candidate is nil")
	}
	c.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE candidates
         SET source_video_id = ?, title = ?, description = ?, topic_key = ?,
             search_query = ?, query_source = ?, transcript = ?, research_json = ?,
             article_json = ?, status = ?, skip_reason = ?, fail_reason = ?,
             created_at = ?, updated_at = ?, researched_at = ?, generated_at = ?
         WHERE id = ?`,
		nullableString(c.SourceVideoID),
		nullableString(c.Title),
		nullableString(c.Description),
		nullableString(c.TopicKey),
		nullableString(c.SearchQuery),
		nullableString(c.QuerySource),
		nullableString(c.Transcript),
		nullableString(c.ResearchJSON),
		nullableString(c.ArticleJSON),
		c.Status,
		nullableString(c.SkipReason),
		nullableString(c.FailReason),
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		c.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(c.ResearchedAt),
		nullableTime(c.GeneratedAt),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update candidate: %w", err)
	}
	return nil
}

// ActiveBySourceVideoID returns the non-terminal candidate referencing a
// source video, or nil when none exists.
func (s *Store) ActiveBySourceVideoID(ctx context.Context, sourceVideoID string) (*candidate.Candidate, error) {
	active := candidate.ActiveStatuses()
	args := make([]any, 0, len(active)+1)
	args = append(args, sourceVideoID)
	for _, status := range active {
		args = append(args, status)
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+candidateColumns+` FROM candidates
         WHERE source_video_id = ? AND status IN (`+makePlaceholders(len(active))+`)
         ORDER BY created_at LIMIT 1`,
		args...,
	)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active by source video: %w", err)
	}
	return c, nil
}

// CandidatesByStatus returns candidates matching any of the provided statuses,
// oldest first. With no statuses it returns everything.
func (s *Store) CandidatesByStatus(ctx context.Context, statuses ...candidate.Status) ([]*candidate.Candidate, error) {
	baseQuery := `SELECT ` + candidateColumns + ` FROM candidates`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+makePlaceholders(len(statuses))+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []*candidate.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// NextCandidate returns the oldest candidate in any of the provided statuses.
func (s *Store) NextCandidate(ctx context.Context, statuses ...candidate.Status) (*candidate.Candidate, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE status IN (`+makePlaceholders(len(statuses))+`) ORDER BY created_at LIMIT 1`,
		args...,
	)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CountPending returns the number of candidates in pre-generation states.
// This is the backlog figure the admission controller gates on.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM candidates WHERE status IN (?, ?)`,
		candidate.StatusCollected,
		candidate.StatusResearched,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending candidates: %w", err)
	}
	return count, nil
}

// CandidateStats returns a count of candidates grouped by status.
func (s *Store) CandidateStats(ctx context.Context) (map[candidate.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM candidates GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("candidate stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[candidate.Status]int)
	for rows.Next() {
		var status candidate.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ClearTerminal removes candidates in terminal states, returning the count.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM candidates WHERE status IN (?, ?, ?)`,
		candidate.StatusPublished,
		candidate.StatusSkipped,
		candidate.StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("clear terminal candidates: %w", err)
	}
	return res.RowsAffected()
}

func scanCandidate(scanner interface{ Scan(dest ...any) error }) (*candidate.Candidate, error) {
	var (
		id            string
		sourceVideoID sql.NullString
		title         sql.NullString
		description   sql.NullString
		topicKey      sql.NullString
		searchQuery   sql.NullString
		querySource   sql.NullString
		transcript    sql.NullString
		researchJSON  sql.NullString
		articleJSON   sql.NullString
		statusStr     string
		skipReason    sql.NullString
		failReason    sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		researchedRaw sql.NullString
		generatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceVideoID,
		&title,
		&description,
		&topicKey,
		&searchQuery,
		&querySource,
		&transcript,
		&researchJSON,
		&articleJSON,
		&statusStr,
		&skipReason,
		&failReason,
		&createdRaw,
		&updatedRaw,
		&researchedRaw,
		&generatedRaw,
	); err != nil {
		return nil, err
	}

	c := &candidate.Candidate{
		ID:            id,
		SourceVideoID: sourceVideoID.String,
		Title:         title.String,
		Description:   description.String,
		TopicKey:      topicKey.String,
		SearchQuery:   searchQuery.String,
		QuerySource:   querySource.String,
		Transcript:    transcript.String,
		ResearchJSON:  researchJSON.String,
		ArticleJSON:   articleJSON.String,
		Status:        candidate.Status(statusStr),
		SkipReason:    skipReason.String,
		FailReason:    failReason.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		c.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		c.UpdatedAt = updated
	}
	if researchedRaw.Valid {
		if ts, err := parseTimeString(researchedRaw.String); err == nil {
			c.ResearchedAt = &ts
		}
	}
	if generatedRaw.Valid {
		if ts, err := parseTimeString(generatedRaw.String); err == nil {
			c.GeneratedAt = &ts
		}
	}
	return c, nil
}
