package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
	"github.com/yigit/engnotes/internal/pkg/filestorage"
	"github.com/yigit/engnotes/internal/pkg/metrics"
)

// CascadeResult summarises one cascading delete.
type CascadeResult struct {
	Kind    models.Kind         `json:"kind"`
	ID      string              `json:"id"`
	Records map[models.Kind]int `json:"records"`
	Blobs   int                 `json:"blobs"`
	// MissingBlobs counts notes whose blob was already gone or never set
	MissingBlobs int `json:"missingBlobs"`
	// MissingRecords counts listed children or targets deleted concurrently
	MissingRecords int `json:"missingRecords"`
}

// Total returns the number of records removed.
func (r *CascadeResult) Total() int {
	total := 0
	for _, n := range r.Records {
		total += n
	}
	return total
}

// CascadeService deletes a record together with every descendant and every
// PDF owned by a descendant Note. The walk is depth-first post-order over the
// child lists in insertion order: a blob goes before its Note, all Notes of a
// Subject before the Subject, and so on up to the target.
type CascadeService struct {
	store   NodeStore
	blobs   filestorage.BlobStore
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewCascadeService creates a new cascade service. m may be nil.
func NewCascadeService(store NodeStore, blobs filestorage.BlobStore, m *metrics.Metrics, logger zerolog.Logger) *CascadeService {
	return &CascadeService{
		store:   store,
		blobs:   blobs,
		metrics: m,
		logger:  logger,
	}
}

// Delete removes the target and everything below it, then detaches the
// target from its parent's child list. A missing target is
// ErrResourceNotFound; a store write failure or a blob failure other than
// "already gone" aborts the walk and is returned. Records removed before an
// abort stay removed and are already detached from their parents.
func (s *CascadeService) Delete(ctx context.Context, kind models.Kind, id string) (*CascadeResult, error) {
	start := time.Now()
	result := &CascadeResult{Kind: kind, ID: id, Records: map[models.Kind]int{}}

	err := s.deleteTarget(ctx, kind, id, result)
	s.metrics.CascadeFinished(kind.String(), time.Since(start), err)

	if err != nil {
		if !isNotFound(err) {
			s.logger.Error().Err(err).
				Str("kind", kind.String()).
				Str("id", id).
				Int("recordsDeleted", result.Total()).
				Msg("Cascading delete aborted")
		}
		return result, err
	}

	s.logger.Info().
		Str("kind", kind.String()).
		Str("id", id).
		Int("recordsDeleted", result.Total()).
		Int("blobsDeleted", result.Blobs).
		Int("missingBlobs", result.MissingBlobs).
		Int("missingRecords", result.MissingRecords).
		Dur("elapsed", time.Since(start)).
		Msg("Cascading delete finished")
	return result, nil
}

func (s *CascadeService) deleteTarget(ctx context.Context, kind models.Kind, id string, result *CascadeResult) error {
	if !kind.Valid() {
		return apperrors.NewBadRequestError(fmt.Sprintf("unknown catalog kind %q", kind))
	}

	target, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return err
	}

	if err := s.purgeChildren(ctx, target, result); err != nil {
		return err
	}
	if err := s.removeRecord(ctx, target, result); err != nil {
		return err
	}

	parentKind := kind.ParentKind()
	if parentKind == "" || target.ParentID == "" {
		return nil
	}
	if err := s.store.RemoveChild(ctx, parentKind, target.ParentID, id); err != nil {
		return fmt.Errorf("failed to detach %s %s from %s %s: %w", kind, id, parentKind, target.ParentID, err)
	}
	return nil
}

// purgeChildren removes every descendant of parent, one child at a time. The
// ordered child list is walked first. Records that still name parent in their
// parent column but were never linked follow.
func (s *CascadeService) purgeChildren(ctx context.Context, parent *models.Node, result *CascadeResult) error {
	childKind := parent.Kind.ChildKind()
	if childKind == "" {
		return nil
	}

	seen := make(map[string]bool, len(parent.ChildIDs))
	for _, childID := range parent.ChildIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[childID] = true

		child, err := s.store.Get(ctx, childKind, childID)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to load %s %s: %w", childKind, childID, err)
		}

		if child == nil {
			// deleted concurrently; the branch is already satisfied
			result.MissingRecords++
			s.metrics.CascadeSkipped(metrics.SkipMissingRecord)
			s.logger.Warn().Str("kind", childKind.String()).Str("id", childID).Msg("Listed child no longer exists")
		} else if err := s.purgeRecord(ctx, child, result); err != nil {
			return err
		}

		if err := s.store.RemoveChild(ctx, parent.Kind, parent.ID, childID); err != nil {
			return fmt.Errorf("failed to detach %s %s from %s %s: %w", childKind, childID, parent.Kind, parent.ID, err)
		}
	}

	unlisted, err := s.store.ListByParent(ctx, childKind, parent.ID)
	if err != nil {
		return fmt.Errorf("failed to list %s records of %s %s: %w", childKind, parent.Kind, parent.ID, err)
	}
	for _, childID := range unlisted {
		if seen[childID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		child, err := s.store.Get(ctx, childKind, childID)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load %s %s: %w", childKind, childID, err)
		}
		s.logger.Warn().Str("kind", childKind.String()).Str("id", childID).Str("parentId", parent.ID).Msg("Deleting unlinked child")
		if err := s.purgeRecord(ctx, child, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *CascadeService) purgeRecord(ctx context.Context, node *models.Node, result *CascadeResult) error {
	if err := s.purgeChildren(ctx, node, result); err != nil {
		return err
	}
	return s.removeRecord(ctx, node, result)
}

// removeRecord deletes one record whose children are already gone. For a
// Note the blob is removed first.
func (s *CascadeService) removeRecord(ctx context.Context, node *models.Node, result *CascadeResult) error {
	if node.Kind == models.KindNote {
		if err := s.removeBlob(node, result); err != nil {
			return err
		}
	}

	err := s.store.Delete(ctx, node.Kind, node.ID)
	switch {
	case err == nil:
		result.Records[node.Kind]++
		s.metrics.CascadeRecordDeleted(node.Kind.String())
	case isNotFound(err):
		result.MissingRecords++
		s.metrics.CascadeSkipped(metrics.SkipMissingRecord)
		s.logger.Warn().Str("kind", node.Kind.String()).Str("id", node.ID).Msg("Record already deleted")
	default:
		return fmt.Errorf("failed to delete %s %s: %w", node.Kind, node.ID, err)
	}
	return nil
}

func (s *CascadeService) removeBlob(note *models.Node, result *CascadeResult) error {
	if note.BlobPath == "" {
		result.MissingBlobs++
		s.metrics.CascadeSkipped(metrics.SkipMissingBlob)
		s.logger.Warn().Str("noteId", note.ID).Msg("Note has no blob path")
		return nil
	}

	err := s.blobs.DeleteFile(note.BlobPath)
	switch {
	case err == nil:
		result.Blobs++
		s.metrics.CascadeBlobDeleted()
	case errors.Is(err, filestorage.ErrFileNotFound):
		result.MissingBlobs++
		s.metrics.CascadeSkipped(metrics.SkipMissingBlob)
		s.logger.Warn().Str("noteId", note.ID).Str("blobPath", note.BlobPath).Msg("Blob already missing")
	default:
		return fmt.Errorf("%w: failed to delete blob %s of note %s: %w", apperrors.ErrBlobIO, note.BlobPath, note.ID, err)
	}
	return nil
}
