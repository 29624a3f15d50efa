package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ashita-ai/yurai/internal/model"
)

// UpsertCommitLink stores the trace linkage for a commit, replacing any
// previous row for the same (project_id, commit_sha) wholesale. The
// post-commit hook retries with identical or corrected data; the latest
// submission wins.
func (db *DB) UpsertCommitLink(ctx context.Context, userID string, req model.IngestCommitLinkRequest) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := ensureProject(ctx, tx, req.ProjectID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO commit_links (
				project_id, user_id, commit_sha, parent_sha,
				trace_ids, files_changed, committed_at, ledger
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (project_id, commit_sha) DO UPDATE SET
				user_id = EXCLUDED.user_id,
				parent_sha = EXCLUDED.parent_sha,
				trace_ids = EXCLUDED.trace_ids,
				files_changed = EXCLUDED.files_changed,
				committed_at = EXCLUDED.committed_at,
				ledger = EXCLUDED.ledger
		`, req.ProjectID, userID, req.CommitSHA, req.ParentSHA,
			req.TraceIDs, req.FilesChanged, req.CommittedAt, jsonbOrNull(req.Ledger))
		if err != nil {
			return fmt.Errorf("storage: upsert commit link %s: %w", req.CommitSHA, err)
		}
		return nil
	})
}

// GetCommitLink fetches the commit link for a commit SHA within a project.
func (db *DB) GetCommitLink(ctx context.Context, projectID, commitSHA string) (model.CommitLink, error) {
	var (
		link   model.CommitLink
		ledger []byte
	)
	err := db.pool.QueryRow(ctx, `
		SELECT id, project_id, user_id, commit_sha, parent_sha,
		       trace_ids, files_changed, committed_at, ledger, created_at
		FROM commit_links
		WHERE project_id = $1 AND commit_sha = $2
	`, projectID, commitSHA).Scan(
		&link.ID, &link.ProjectID, &link.UserID, &link.CommitSHA, &link.ParentSHA,
		&link.TraceIDs, &link.FilesChanged, &link.CommittedAt, &ledger, &link.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CommitLink{}, ErrNotFound
	}
	if err != nil {
		return model.CommitLink{}, fmt.Errorf("storage: get commit link: %w", err)
	}
	link.Ledger = json.RawMessage(ledger)
	return link, nil
}

// GetLedger returns the ledger attached to a commit link, or ErrNotFound
// when the commit has no link or the link carries no ledger.
func (db *DB) GetLedger(ctx context.Context, projectID, commitSHA string) (json.RawMessage, error) {
	var ledger []byte
	err := db.pool.QueryRow(ctx, `
		SELECT ledger FROM commit_links
		WHERE project_id = $1 AND commit_sha = $2 AND ledger IS NOT NULL
	`, projectID, commitSHA).Scan(&ledger)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get ledger: %w", err)
	}
	return json.RawMessage(ledger), nil
}
