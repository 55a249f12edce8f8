package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProcessedVideo is one entry in the append-only processed-video ledger.
type ProcessedVideo struct {
	SourceVideoID string
	Title         string
	ProcessedAt   time.Time
}

// TopicEntry records publication history for one topic key.
type TopicEntry struct {
	TopicKey        string
	FirstSeen       time.Time
	LastPublishedAt time.Time
}

// PublishedPost is one entry in the ordered published-post index.
type PublishedPost struct {
	ID            int64
	Slug          string
	Title         string
	Tags          []string
	SourceVideoID string
	PublishedAt   time.Time
}

// VideoProcessed reports whether a source video already appears in the
// processed-video ledger.
func (s *Store) VideoProcessed(ctx context.Context, sourceVideoID string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM processed_videos WHERE source_video_id = ?`, sourceVideoID)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("check processed video: %w", err)
	}
	return count > 0, nil
}

// MarkVideoProcessed appends to the processed-video ledger. Re-marking an
// already processed video is a no-op so the ledger stays append-only.
func (s *Store) MarkVideoProcessed(ctx context.Context, sourceVideoID, title string) error {
	if strings.TrimSpace(sourceVideoID) == "" {
		return errors.New("source video id required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO processed_videos (source_video_id, title, processed_at)
         VALUES (?, ?, ?)
         ON CONFLICT(source_video_id) DO NOTHING`,
		sourceVideoID,
		nullableString(title),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("mark video processed: %w", err)
	}
	return nil
}

// TopicHistory returns the history entry for a topic key, or nil when the
// topic has never been published.
func (s *Store) TopicHistory(ctx context.Context, topicKey string) (*TopicEntry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT topic_key, first_seen, last_published_at FROM topic_history WHERE topic_key = ?`,
		topicKey,
	)
	var (
		key          string
		firstRaw     string
		publishedRaw string
	)
	if err := row.Scan(&key, &firstRaw, &publishedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("topic history: %w", err)
	}
	entry := &TopicEntry{TopicKey: key}
	if ts, err := parseTimeString(firstRaw); err == nil {
		entry.FirstSeen = ts
	}
	if ts, err := parseTimeString(publishedRaw); err == nil {
		entry.LastPublishedAt = ts
	}
	return entry, nil
}

// RecordTopicPublished upserts the topic-history entry on publication,
// preserving first_seen and advancing last_published_at.
func (s *Store) RecordTopicPublished(ctx context.Context, topicKey string, publishedAt time.Time) error {
	if strings.TrimSpace(topicKey) == "" {
		return errors.New("topic key required")
	}
	stamp := publishedAt.UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO topic_history (topic_key, first_seen, last_published_at)
         VALUES (?, ?, ?)
         ON CONFLICT(topic_key) DO UPDATE SET last_published_at = excluded.last_published_at`,
		topicKey,
		stamp,
		stamp,
	)
	if err != nil {
		return fmt.Errorf("record topic published: %w", err)
	}
	return nil
}

// AddPublishedPost appends to the published-post index.
func (s *Store) AddPublishedPost(ctx context.Context, post PublishedPost) error {
	if strings.TrimSpace(post.Slug) == "" {
		return errors.New("post slug required")
	}
	tagsJSON := ""
	if len(post.Tags) > 0 {
		encoded, err := json.Marshal(post.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		tagsJSON = string(encoded)
	}
	publishedAt := post.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO published_posts (slug, title, tags_json, source_video_id, published_at)
         VALUES (?, ?, ?, ?, ?)`,
		post.Slug,
		post.Title,
		nullableString(tagsJSON),
		nullableString(post.SourceVideoID),
		publishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("add published post: %w", err)
	}
	return nil
}

// PublishedSlugs returns every published slug, oldest first.
func (s *Store) PublishedSlugs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slug FROM published_posts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("published slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// RecentPublishedTitles returns up to n most recently published titles,
// newest first.
func (s *Store) RecentPublishedTitles(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM published_posts ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recent published titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// PublishedPosts returns the full published index, oldest first.
func (s *Store) PublishedPosts(ctx context.Context) ([]PublishedPost, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, slug, title, tags_json, source_video_id, published_at FROM published_posts ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("published posts: %w", err)
	}
	defer rows.Close()

	var posts []PublishedPost
	for rows.Next() {
		var (
			post         PublishedPost
			tagsJSON     sql.NullString
			sourceVideo  sql.NullString
			publishedRaw string
		)
		if err := rows.Scan(&post.ID, &post.Slug, &post.Title, &tagsJSON, &sourceVideo, &publishedRaw); err != nil {
			return nil, err
		}
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &post.Tags); err != nil {
				return nil, fmt.Errorf("decode tags for %s: %w", post.Slug, err)
			}
		}
		post.SourceVideoID = sourceVideo.String
		if ts, err := parseTimeString(publishedRaw); err == nil {
			post.PublishedAt = ts
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// SlugPublished reports whether a slug already appears in the published index.
func (s *Store) SlugPublished(ctx context.Context, slug string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM published_posts WHERE slug = ?`, slug)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("check published slug: %w", err)
	}
	return count > 0, nil
}
