package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS candidates (
        id TEXT PRIMARY KEY,
        source_video_id TEXT,
        title TEXT,
        description TEXT,
        topic_key TEXT,
        search_query TEXT,
        query_source TEXT,
        transcript TEXT,
        research_json TEXT,
        article_json TEXT,
        status TEXT NOT NULL,
        skip_reason TEXT,
        fail_reason TEXT,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL,
        researched_at TEXT,
        generated_at TEXT
    )`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status)`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_source_video ON candidates(source_video_id)`,
	`CREATE TABLE IF NOT EXISTS processed_videos (
        source_video_id TEXT PRIMARY KEY,
        title TEXT,
        processed_at TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS topic_history (
        topic_key TEXT PRIMARY KEY,
        first_seen TEXT NOT NULL,
        last_published_at TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS published_posts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        slug TEXT NOT NULL UNIQUE,
        title TEXT NOT NULL,
        tags_json TEXT,
        source_video_id TEXT,
        published_at TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS keyword_queue (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        keyword TEXT NOT NULL,
        slug TEXT NOT NULL UNIQUE,
        position INTEGER NOT NULL,
        created_at TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_keyword_queue_position ON keyword_queue(position)`,
}

func (s *Store) applySchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
