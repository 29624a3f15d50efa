package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ashita-ai/yurai/internal/model"
)

// SyncConversationContents upserts a batch of conversation transcripts for a
// project in one transaction. Last write wins per (project_id, url).
func (db *DB) SyncConversationContents(ctx context.Context, projectID, userID string, contents []model.ConversationContent) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := ensureProject(ctx, tx, projectID); err != nil {
			return err
		}
		return upsertConversations(ctx, tx, projectID, userID, contents)
	})
}

func upsertConversations(ctx context.Context, tx pgx.Tx, projectID, userID string, contents []model.ConversationContent) error {
	for _, c := range contents {
		if c.URL == "" {
			continue
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO conversation_contents (project_id, user_id, url, content)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (project_id, url) DO UPDATE SET
				content = EXCLUDED.content,
				user_id = EXCLUDED.user_id,
				updated_at = now()
		`, projectID, userID, c.URL, c.Content)
		if err != nil {
			return fmt.Errorf("storage: upsert conversation %s: %w", c.URL, err)
		}
	}
	return nil
}

// GetConversationContent returns the stored transcript for a conversation URL.
func (db *DB) GetConversationContent(ctx context.Context, projectID, url string) (string, error) {
	var content string
	err := db.pool.QueryRow(ctx, `
		SELECT content FROM conversation_contents
		WHERE project_id = $1 AND url = $2
	`, projectID, url).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: get conversation content: %w", err)
	}
	return content, nil
}
