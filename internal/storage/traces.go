package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ashita-ai/yurai/internal/model"
)

// timeWindowCap bounds how many rows the timestamp-window fallback may pull.
const timeWindowCap = 200

// InsertTrace stores one trace and its conversation contents in a single
// transaction, creating the project row on first reference. Re-ingesting an
// existing (project_id, trace_id) is a no-op for the trace row; conversation
// contents still refresh.
func (db *DB) InsertTrace(ctx context.Context, projectID, userID string, fields model.TraceFields, contents []model.ConversationContent) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := ensureProject(ctx, tx, projectID); err != nil {
			return err
		}
		if err := insertTrace(ctx, tx, projectID, userID, fields); err != nil {
			return err
		}
		return upsertConversations(ctx, tx, projectID, userID, contents)
	})
}

// BatchInsertTraces stores a batch of traces and their conversation contents
// atomically: either every item lands or none do.
func (db *DB) BatchInsertTraces(ctx context.Context, projectID, userID string, traces []model.TraceFields, contents []model.ConversationContent) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := ensureProject(ctx, tx, projectID); err != nil {
			return err
		}
		for _, fields := range traces {
			if err := insertTrace(ctx, tx, projectID, userID, fields); err != nil {
				return err
			}
		}
		return upsertConversations(ctx, tx, projectID, userID, contents)
	})
}

func insertTrace(ctx context.Context, tx pgx.Tx, projectID, userID string, f model.TraceFields) error {
	var ts any
	if !f.TraceTimestamp.IsZero() {
		ts = f.TraceTimestamp
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO traces (
			project_id, user_id, trace_id, version, trace_timestamp,
			vcs, tool, files, metadata, record
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (project_id, trace_id) DO NOTHING
	`, projectID, userID, f.TraceID, f.Version, ts,
		jsonbOrNull(f.VCS), jsonbOrNull(f.Tool), jsonbOrNull(f.Files),
		jsonbOrNull(f.Metadata), jsonbOrNull(f.Record))
	if err != nil {
		return fmt.Errorf("storage: insert trace %s: %w", f.TraceID, err)
	}
	return nil
}

// ListTraces returns full trace records for a project, newest first, along
// with the total count matching the filters. The limit is already clamped by
// the caller.
func (db *DB) ListTraces(ctx context.Context, projectID string, since, until *time.Time, limit, offset int) ([]json.RawMessage, int, error) {
	where := `project_id = $1`
	args := []any{projectID}
	if since != nil {
		args = append(args, *since)
		where += fmt.Sprintf(` AND trace_timestamp >= $%d`, len(args))
	}
	if until != nil {
		args = append(args, *until)
		where += fmt.Sprintf(` AND trace_timestamp <= $%d`, len(args))
	}

	var total int
	if err := db.pool.QueryRow(ctx, `SELECT count(*) FROM traces WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count traces: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT record FROM traces
		WHERE %s
		ORDER BY trace_timestamp DESC NULLS LAST, created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list traces: %w", err)
	}
	defer rows.Close()

	records := make([]json.RawMessage, 0, limit)
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, 0, fmt.Errorf("storage: scan trace: %w", err)
		}
		records = append(records, json.RawMessage(record))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("storage: list traces: %w", err)
	}
	return records, total, nil
}

// GetTrace fetches a single trace record plus the user who ingested it.
func (db *DB) GetTrace(ctx context.Context, projectID, traceID string) (json.RawMessage, string, error) {
	var (
		record []byte
		userID string
	)
	err := db.pool.QueryRow(ctx, `
		SELECT record, user_id FROM traces
		WHERE project_id = $1 AND trace_id = $2
	`, projectID, traceID).Scan(&record, &userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("storage: get trace: %w", err)
	}
	return json.RawMessage(record), userID, nil
}

// FindTracesByIDs returns the stored traces matching the given trace IDs,
// in database order. Missing IDs are silently absent from the result.
func (db *DB) FindTracesByIDs(ctx context.Context, projectID string, traceIDs []string) ([]model.StoredTrace, error) {
	if len(traceIDs) == 0 {
		return nil, nil
	}
	rows, err := db.pool.Query(ctx, `
		SELECT trace_id, trace_timestamp, vcs, tool, files, record
		FROM traces
		WHERE project_id = $1 AND trace_id = ANY($2)
	`, projectID, traceIDs)
	if err != nil {
		return nil, fmt.Errorf("storage: find traces by ids: %w", err)
	}
	defer rows.Close()
	return scanStoredTraces(rows)
}

// FindTracesByRevision returns traces whose recorded working-tree revision
// matches the given SHA exactly.
func (db *DB) FindTracesByRevision(ctx context.Context, projectID, revision string) ([]model.StoredTrace, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT trace_id, trace_timestamp, vcs, tool, files, record
		FROM traces
		WHERE project_id = $1 AND vcs->>'revision' = $2
	`, projectID, revision)
	if err != nil {
		return nil, fmt.Errorf("storage: find traces by revision: %w", err)
	}
	defer rows.Close()
	return scanStoredTraces(rows)
}

// FindTracesInTimeWindow returns traces whose timestamp falls in [from, to],
// capped at 200 rows, oldest first.
func (db *DB) FindTracesInTimeWindow(ctx context.Context, projectID string, from, to time.Time) ([]model.StoredTrace, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT trace_id, trace_timestamp, vcs, tool, files, record
		FROM traces
		WHERE project_id = $1 AND trace_timestamp BETWEEN $2 AND $3
		ORDER BY trace_timestamp ASC
		LIMIT $4
	`, projectID, from, to, timeWindowCap)
	if err != nil {
		return nil, fmt.Errorf("storage: find traces in window: %w", err)
	}
	defer rows.Close()
	return scanStoredTraces(rows)
}

func scanStoredTraces(rows pgx.Rows) ([]model.StoredTrace, error) {
	var out []model.StoredTrace
	for rows.Next() {
		var t model.StoredTrace
		var ts *time.Time
		var vcs, tool, files, record []byte
		if err := rows.Scan(&t.TraceID, &ts, &vcs, &tool, &files, &record); err != nil {
			return nil, fmt.Errorf("storage: scan trace: %w", err)
		}
		if ts != nil {
			t.TraceTimestamp = *ts
		}
		t.VCS = json.RawMessage(vcs)
		t.Tool = json.RawMessage(tool)
		t.Files = json.RawMessage(files)
		t.Record = json.RawMessage(record)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: scan traces: %w", err)
	}
	return out, nil
}
