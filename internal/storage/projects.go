package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ashita-ai/yurai/internal/model"
)

// UpsertProject creates a project or updates the name/description of an
// existing one. Omitted fields keep their current values.
func (db *DB) UpsertProject(ctx context.Context, projectID string, name, description *string) (model.Project, error) {
	var p model.Project
	err := db.pool.QueryRow(ctx, `
		INSERT INTO projects (project_id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, projects.name),
			description = COALESCE(EXCLUDED.description, projects.description),
			updated_at = now()
		RETURNING id, project_id, name, description, created_at, updated_at
	`, projectID, name, description).Scan(
		&p.ID, &p.ProjectID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return model.Project{}, fmt.Errorf("storage: upsert project: %w", err)
	}
	return p, nil
}

// GetProject fetches a project by its external identifier.
func (db *DB) GetProject(ctx context.Context, projectID string) (model.Project, error) {
	var p model.Project
	err := db.pool.QueryRow(ctx, `
		SELECT id, project_id, name, description, created_at, updated_at
		FROM projects
		WHERE project_id = $1
	`, projectID).Scan(&p.ID, &p.ProjectID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Project{}, ErrNotFound
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("storage: get project: %w", err)
	}
	return p, nil
}

// GetProjectStats aggregates trace, conversation, and user counters for a
// project's detail view.
func (db *DB) GetProjectStats(ctx context.Context, projectID string) (model.ProjectStats, error) {
	var (
		stats  model.ProjectStats
		latest *string
	)
	err := db.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM traces WHERE project_id = $1),
			(SELECT count(*) FROM conversation_contents WHERE project_id = $1),
			(SELECT count(DISTINCT user_id) FROM traces WHERE project_id = $1),
			(SELECT to_char(max(trace_timestamp) AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
			 FROM traces WHERE project_id = $1)
	`, projectID).Scan(&stats.TraceCount, &stats.ConversationCount, &stats.UniqueUsers, &latest)
	if err != nil {
		return model.ProjectStats{}, fmt.Errorf("storage: get project stats: %w", err)
	}
	stats.LatestTraceAt = latest
	return stats, nil
}

// ensureProject creates the project row inside tx if it does not exist yet.
// Ingestion endpoints call this so clients never have to pre-register.
func ensureProject(ctx context.Context, tx pgx.Tx, projectID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO projects (project_id)
		VALUES ($1)
		ON CONFLICT (project_id) DO NOTHING
	`, projectID)
	if err != nil {
		return fmt.Errorf("storage: ensure project: %w", err)
	}
	return nil
}
