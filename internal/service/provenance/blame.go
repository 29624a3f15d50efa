package provenance

import (
	"context"
	"errors"

	"github.com/ashita-ai/yurai/internal/attribution"
	"github.com/ashita-ai/yurai/internal/model"
	"github.com/ashita-ai/yurai/internal/storage"
)

// Blame attributes each segment of git-blame output to an AI trace. One
// attribution per segment: all lines in a segment came from the same
// commit, so the segment's midpoint line stands in for the whole range.
// Segments missing line bounds or a commit SHA are skipped. Adjacent
// segments with identical attribution merge into one entry.
func (s *Service) Blame(ctx context.Context, req model.BlameRequest) (model.BlameResponse, error) {
	if req.ProjectID == "" {
		return model.BlameResponse{}, invalidf("project_id is required")
	}
	if req.FilePath == "" {
		return model.BlameResponse{}, invalidf("file_path is required")
	}

	raw := make([]segmentResult, 0, len(req.BlameData))
	for _, segment := range req.BlameData {
		if segment.StartLine == nil || segment.EndLine == nil || segment.CommitSHA == "" {
			s.logger.Debug("skipping incomplete blame segment", "file_path", req.FilePath)
			continue
		}

		q := attribution.Query{
			ProjectID:   req.ProjectID,
			FilePath:    req.FilePath,
			LineNumber:  (*segment.StartLine + *segment.EndLine) / 2,
			BlameCommit: segment.CommitSHA,
		}
		if segment.ParentSHA != nil {
			q.BlameParent = *segment.ParentSHA
		}
		if segment.ContentHash != nil {
			q.ContentHash = *segment.ContentHash
		}
		if segment.Timestamp != nil {
			q.BlameTimestamp = *segment.Timestamp
		}

		result := s.attributeSegment(ctx, q)
		raw = append(raw, segmentResult{segment: segment, result: result})
	}

	return model.BlameResponse{
		FilePath:     req.FilePath,
		Attributions: mergeAttributions(raw),
	}, nil
}

// attributeSegment runs the ledger-first path: when the commit carries an
// authoritative ledger the engine reads it directly, otherwise it falls
// through to candidate scoring.
func (s *Service) attributeSegment(ctx context.Context, q attribution.Query) model.AttributionResult {
	ledger, err := s.db.GetLedger(ctx, q.ProjectID, q.BlameCommit)
	if err == nil && len(ledger) > 0 {
		return s.engine.AttributeLedger(ctx, q, ledger)
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) && ctx.Err() == nil {
		s.logger.Warn("ledger lookup failed", "commit_sha", q.BlameCommit, "error", err)
	}
	return s.engine.AttributeLine(ctx, q)
}
