package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/pkg/cache"
	"github.com/yigit/engnotes/internal/pkg/filestorage"
)

// ReconcileReport lists what a sweep found and, unless DryRun, repaired.
type ReconcileReport struct {
	DryRun bool `json:"dryRun"`
	// OrphanRecords have a parent reference to a record that no longer exists; removed by cascade
	OrphanRecords []models.Ref `json:"orphanRecords"`
	// Relinked records exist under a live parent that does not list them
	Relinked []models.Ref `json:"relinked"`
	// DanglingLinks are child-list entries without a matching live child
	DanglingLinks []models.ChildLink `json:"danglingLinks"`
	// OrphanBlobs are stored files no note points at; deleted
	OrphanBlobs []string `json:"orphanBlobs"`
	// MissingBlobs are notes whose file is gone; reported only
	MissingBlobs []models.Ref `json:"missingBlobs"`
}

// Changes counts the repairs the report describes.
func (r *ReconcileReport) Changes() int {
	return len(r.OrphanRecords) + len(r.Relinked) + len(r.DanglingLinks) + len(r.OrphanBlobs)
}

// DefaultBlobGracePeriod keeps freshly written blobs out of the orphan sweep.
// CreateNote stores the file before it inserts the record.
const DefaultBlobGracePeriod = 10 * time.Minute

// ReconcileService repairs state a crash or an aborted request can leave
// behind: records created but never linked, children of deleted parents,
// child-list entries for deleted records and blobs without a note.
type ReconcileService struct {
	store   NodeStore
	blobs   filestorage.BlobStore
	cascade *CascadeService
	cache   cache.Cache
	logger  zerolog.Logger

	blobGrace time.Duration
}

// NewReconcileService creates a new reconcile service instance
func NewReconcileService(store NodeStore, blobs filestorage.BlobStore, cascade *CascadeService, readCache cache.Cache, logger zerolog.Logger) *ReconcileService {
	if readCache == nil {
		readCache = cache.NopCache{}
	}
	return &ReconcileService{
		store:   store,
		blobs:   blobs,
		cascade: cascade,
		cache:   readCache,
		logger:  logger,

		blobGrace: DefaultBlobGracePeriod,
	}
}

// WithBlobGracePeriod overrides DefaultBlobGracePeriod. Zero sweeps every
// unreferenced blob regardless of age.
func (s *ReconcileService) WithBlobGracePeriod(d time.Duration) *ReconcileService {
	if d < 0 {
		d = 0
	}
	s.blobGrace = d
	return s
}

// Run performs one sweep. With dryRun nothing is modified.
func (s *ReconcileService) Run(ctx context.Context, dryRun bool) (*ReconcileReport, error) {
	report := &ReconcileReport{
		DryRun:        dryRun,
		OrphanRecords: []models.Ref{},
		Relinked:      []models.Ref{},
		DanglingLinks: []models.ChildLink{},
		OrphanBlobs:   []string{},
		MissingBlobs:  []models.Ref{},
	}

	refs := make(map[models.Kind]map[string]models.Ref, len(models.Kinds))
	for _, kind := range models.Kinds {
		list, err := s.store.ListRefs(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("error listing %s records: %w", kind, err)
		}
		refs[kind] = make(map[string]models.Ref, len(list))
		for _, ref := range list {
			refs[kind][ref.ID] = ref
		}
	}

	links := make(map[models.Kind][]models.ChildLink)
	listed := make(map[models.Kind]map[string]map[string]bool)
	for _, kind := range models.Kinds {
		if kind.ChildKind() == "" {
			continue
		}
		list, err := s.store.ListChildLinks(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("error listing %s child links: %w", kind, err)
		}
		links[kind] = list
		listed[kind] = make(map[string]map[string]bool)
		for _, link := range list {
			if listed[kind][link.ParentID] == nil {
				listed[kind][link.ParentID] = make(map[string]bool)
			}
			listed[kind][link.ParentID][link.ChildID] = true
		}
	}

	// ids removed (or, in a dry run, due for removal) during this sweep
	gone := make(map[string]bool)
	alive := func(kind models.Kind, id string) bool {
		_, ok := refs[kind][id]
		return ok && !gone[id]
	}

	// root first, so children of a removed record are seen as orphans in the next pass
	for _, kind := range models.Kinds {
		parentKind := kind.ParentKind()
		if parentKind == "" {
			continue
		}
		for _, ref := range sortedRefs(refs[kind]) {
			if !alive(parentKind, ref.ParentID) {
				report.OrphanRecords = append(report.OrphanRecords, ref)
				gone[ref.ID] = true
				if !dryRun {
					if _, err := s.cascade.Delete(ctx, kind, ref.ID); err != nil && !isNotFound(err) {
						return report, fmt.Errorf("error removing orphan %s %s: %w", kind, ref.ID, err)
					}
				}
				continue
			}
			if !listed[parentKind][ref.ParentID][ref.ID] {
				report.Relinked = append(report.Relinked, ref)
				if !dryRun {
					if err := s.store.AddChild(ctx, parentKind, ref.ParentID, ref.ID); err != nil && !isNotFound(err) {
						return report, fmt.Errorf("error relinking %s %s: %w", kind, ref.ID, err)
					}
				}
			}
		}
	}

	for _, parentKind := range models.Kinds {
		childKind := parentKind.ChildKind()
		if childKind == "" {
			continue
		}
		for _, link := range links[parentKind] {
			if gone[link.ParentID] {
				// dropped together with the parent
				continue
			}
			child, ok := refs[childKind][link.ChildID]
			if ok && !gone[link.ChildID] && child.ParentID == link.ParentID && alive(parentKind, link.ParentID) {
				continue
			}
			if !ok {
				recent, err := s.linkedSinceSnapshot(ctx, childKind, link)
				if err != nil {
					return report, err
				}
				if recent {
					continue
				}
			}
			report.DanglingLinks = append(report.DanglingLinks, link)
			if !dryRun {
				if err := s.store.RemoveChild(ctx, parentKind, link.ParentID, link.ChildID); err != nil {
					return report, fmt.Errorf("error removing dangling link %s -> %s: %w", link.ParentID, link.ChildID, err)
				}
			}
		}
	}

	if err := s.sweepBlobs(ctx, refs[models.KindNote], gone, dryRun, report); err != nil {
		return report, err
	}

	if !dryRun && report.Changes() > 0 {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Catalog cache invalidation failed")
		}
	}

	s.logger.Info().
		Bool("dryRun", dryRun).
		Int("orphanRecords", len(report.OrphanRecords)).
		Int("relinked", len(report.Relinked)).
		Int("danglingLinks", len(report.DanglingLinks)).
		Int("orphanBlobs", len(report.OrphanBlobs)).
		Int("missingBlobs", len(report.MissingBlobs)).
		Msg("Reconciliation finished")
	return report, nil
}

// linkedSinceSnapshot re-reads the child of a link that looked dangling. A
// child created after the record snapshot must keep its link.
func (s *ReconcileService) linkedSinceSnapshot(ctx context.Context, childKind models.Kind, link models.ChildLink) (bool, error) {
	child, err := s.store.Get(ctx, childKind, link.ChildID)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking %s %s: %w", childKind, link.ChildID, err)
	}
	if child.ParentID != link.ParentID {
		return false, nil
	}
	s.logger.Debug().Str("parentId", link.ParentID).Str("childId", link.ChildID).Msg("Link target appeared during sweep, keeping it")
	return true, nil
}

// sweepBlobs compares stored files with live notes by base name.
func (s *ReconcileService) sweepBlobs(ctx context.Context, notes map[string]models.Ref, gone map[string]bool, dryRun bool, report *ReconcileReport) error {
	stored, err := s.blobs.List()
	if err != nil {
		return fmt.Errorf("error listing blobs: %w", err)
	}
	onDisk := make(map[string]bool, len(stored))
	for _, p := range stored {
		onDisk[path.Base(p)] = true
	}

	referenced := make(map[string]bool, len(notes))
	for _, note := range sortedRefs(notes) {
		if note.BlobPath == "" {
			continue
		}
		name := path.Base(note.BlobPath)
		if gone[note.ID] {
			// removed by the orphan cascade, not a stray file
			referenced[name] = true
			continue
		}
		referenced[name] = true
		if !onDisk[name] {
			report.MissingBlobs = append(report.MissingBlobs, note)
		}
	}

	for _, p := range stored {
		if err := ctx.Err(); err != nil {
			return err
		}
		if referenced[path.Base(p)] {
			continue
		}
		fresh, err := s.isFresh(p)
		if err != nil {
			return err
		}
		if fresh {
			s.logger.Debug().Str("blobPath", p).Msg("Unreferenced blob inside grace period, keeping it")
			continue
		}
		if !dryRun {
			if err := s.blobs.DeleteFile(p); err != nil && !errors.Is(err, filestorage.ErrFileNotFound) {
				return fmt.Errorf("error deleting orphan blob %s: %w", p, err)
			}
		}
		report.OrphanBlobs = append(report.OrphanBlobs, p)
	}
	return nil
}

// isFresh reports whether the blob was written within the grace period. A blob
// that vanished meanwhile counts as fresh so it is not reported.
func (s *ReconcileService) isFresh(blobPath string) (bool, error) {
	if s.blobGrace <= 0 {
		return false, nil
	}
	modTime, err := s.blobs.ModTime(blobPath)
	if errors.Is(err, filestorage.ErrFileNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("error reading age of blob %s: %w", blobPath, err)
	}
	return time.Since(modTime) < s.blobGrace, nil
}

func sortedRefs(m map[string]models.Ref) []models.Ref {
	out := make([]models.Ref, 0, len(m))
	for _, ref := range m {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
