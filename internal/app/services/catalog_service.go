package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/rs/zerolog"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
	"github.com/yigit/engnotes/internal/pkg/cache"
	"github.com/yigit/engnotes/internal/pkg/filestorage"
)

// Expansion presets for the read endpoints.
var (
	expandDegreeList = models.Expand{Depth: 1}
	expandDegree     = models.Expand{Depth: 1}
	expandSemester   = models.Expand{Depth: 1, Ancestors: true}
	expandSubject    = models.Expand{Depth: 1, Ancestors: true}
	expandNote       = models.Expand{Ancestors: true}
	expandFullTree   = models.Expand{Depth: models.MaxExpandDepth}
)

// Dashboard is the admin landing data.
type Dashboard struct {
	Degrees []*models.Degree      `json:"degrees"`
	Counts  map[models.Kind]int64 `json:"counts"`
}

// CatalogService implements catalog reads and admin mutations. Creates link the
// new record into its parent after the insert; updates are partial; deletes
// always go through the cascade.
type CatalogService struct {
	store   CatalogStore
	blobs   filestorage.BlobStore
	uploads filestorage.PDFValidator
	cascade *CascadeService
	cache   cache.Cache
	logger  zerolog.Logger
}

// NewCatalogService creates a new catalog service instance. A nil cache disables caching.
func NewCatalogService(
	store CatalogStore,
	blobs filestorage.BlobStore,
	uploads filestorage.PDFValidator,
	cascade *CascadeService,
	readCache cache.Cache,
	logger zerolog.Logger,
) *CatalogService {
	if readCache == nil {
		readCache = cache.NopCache{}
	}
	return &CatalogService{
		store:   store,
		blobs:   blobs,
		uploads: uploads,
		cascade: cascade,
		cache:   readCache,
		logger:  logger,
	}
}

// ListDegrees returns every degree with its semesters.
func (s *CatalogService) ListDegrees(ctx context.Context) ([]*models.Degree, error) {
	var degrees []*models.Degree
	err := s.cached(ctx, "degrees", &degrees, func() (interface{}, error) {
		return s.store.ListDegrees(ctx, expandDegreeList)
	})
	return degrees, err
}

// GetDegree returns a degree with its semesters.
func (s *CatalogService) GetDegree(ctx context.Context, id string) (*models.Degree, error) {
	var degree *models.Degree
	err := s.cached(ctx, "degree:"+id, &degree, func() (interface{}, error) {
		return s.store.GetDegree(ctx, id, expandDegree)
	})
	return degree, err
}

// GetSemester returns a semester with its subjects and degree.
func (s *CatalogService) GetSemester(ctx context.Context, id string) (*models.Semester, error) {
	var semester *models.Semester
	err := s.cached(ctx, "semester:"+id, &semester, func() (interface{}, error) {
		return s.store.GetSemester(ctx, id, expandSemester)
	})
	return semester, err
}

// GetSubject returns a subject with its notes and ancestor chain.
func (s *CatalogService) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	var subject *models.Subject
	err := s.cached(ctx, "subject:"+id, &subject, func() (interface{}, error) {
		return s.store.GetSubject(ctx, id, expandSubject)
	})
	return subject, err
}

// GetNote returns a note with subject, semester and degree resolved.
func (s *CatalogService) GetNote(ctx context.Context, id string) (*models.Note, error) {
	var note *models.Note
	err := s.cached(ctx, "note:"+id, &note, func() (interface{}, error) {
		return s.store.GetNote(ctx, id, expandNote)
	})
	return note, err
}

// Tree returns the whole catalog with every level resolved. Not cached.
func (s *CatalogService) Tree(ctx context.Context) ([]*models.Degree, error) {
	return s.store.ListDegrees(ctx, expandFullTree)
}

// Dashboard returns degrees with semesters and per-kind record counts.
func (s *CatalogService) Dashboard(ctx context.Context) (*Dashboard, error) {
	degrees, err := s.store.ListDegrees(ctx, expandDegreeList)
	if err != nil {
		return nil, fmt.Errorf("error listing degrees: %w", err)
	}

	counts := make(map[models.Kind]int64, len(models.Kinds))
	for _, kind := range models.Kinds {
		n, err := s.store.Count(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("error counting %s records: %w", kind, err)
		}
		counts[kind] = n
	}
	return &Dashboard{Degrees: degrees, Counts: counts}, nil
}

// cached serves key from the read cache or fills it from load. Cache failures
// are logged and fall through to the store.
func (s *CatalogService) cached(ctx context.Context, key string, dest interface{}, load func() (interface{}, error)) error {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache read failed")
	}
	if hit {
		return nil
	}

	value, err := load()
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache write failed")
	}

	switch d := dest.(type) {
	case *[]*models.Degree:
		*d = value.([]*models.Degree)
	case **models.Degree:
		*d = value.(*models.Degree)
	case **models.Semester:
		*d = value.(*models.Semester)
	case **models.Subject:
		*d = value.(*models.Subject)
	case **models.Note:
		*d = value.(*models.Note)
	default:
		return fmt.Errorf("unsupported cache destination %T", dest)
	}
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Catalog cache invalidation failed")
	}
}

// CreateDegree creates a root record.
func (s *CatalogService) CreateDegree(ctx context.Context, degree *models.Degree) error {
	if err := s.store.CreateDegree(ctx, degree); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// CreateSemester creates a semester under an existing degree.
func (s *CatalogService) CreateSemester(ctx context.Context, semester *models.Semester) error {
	if err := s.requireParent(ctx, models.KindDegree, semester.DegreeID); err != nil {
		return err
	}
	if err := s.store.CreateSemester(ctx, semester); err != nil {
		return err
	}
	defer s.invalidate(ctx)
	return s.link(ctx, models.KindDegree, semester.DegreeID, models.KindSemester, semester.ID)
}

// CreateSubject creates a subject under an existing semester.
func (s *CatalogService) CreateSubject(ctx context.Context, subject *models.Subject) error {
	if err := s.requireParent(ctx, models.KindSemester, subject.SemesterID); err != nil {
		return err
	}
	if err := s.store.CreateSubject(ctx, subject); err != nil {
		return err
	}
	defer s.invalidate(ctx)
	return s.link(ctx, models.KindSemester, subject.SemesterID, models.KindSubject, subject.ID)
}

// CreateNote validates and stores the PDF, creates the note and links it to
// its subject. The stored PDF is removed again if the record cannot be created.
func (s *CatalogService) CreateNote(ctx context.Context, note *models.Note, file *multipart.FileHeader) error {
	if err := s.uploads.Validate(file); err != nil {
		return err
	}
	if err := s.requireParent(ctx, models.KindSubject, note.SubjectID); err != nil {
		return err
	}

	blobPath, err := s.blobs.SaveFile(file)
	if err != nil {
		return err
	}
	note.BlobPath = blobPath

	if err := s.store.CreateNote(ctx, note); err != nil {
		s.discardBlob(blobPath)
		return err
	}
	defer s.invalidate(ctx)
	return s.link(ctx, models.KindSubject, note.SubjectID, models.KindNote, note.ID)
}

func (s *CatalogService) requireParent(ctx context.Context, kind models.Kind, id string) error {
	if id == "" {
		return apperrors.NewValidationError("validation failed", map[string]string{
			kind.String() + "Id": kind.String() + "Id is required",
		})
	}
	if _, err := s.store.Get(ctx, kind, id); err != nil {
		return err
	}
	return nil
}

// link appends the new child to its parent. The record is kept when this
// fails; the reconciliation sweep re-attaches it.
func (s *CatalogService) link(ctx context.Context, parentKind models.Kind, parentID string, kind models.Kind, id string) error {
	if err := s.store.AddChild(ctx, parentKind, parentID, id); err != nil {
		s.logger.Error().Err(err).
			Str("kind", kind.String()).
			Str("id", id).
			Str("parentId", parentID).
			Msg("Record created but parent link failed")
		return fmt.Errorf("%w: %s %s created but not added to %s %s: %w",
			apperrors.ErrOrphanLink, kind, id, parentKind, parentID, err)
	}
	return nil
}

func (s *CatalogService) discardBlob(blobPath string) {
	if err := s.blobs.DeleteFile(blobPath); err != nil && !errors.Is(err, filestorage.ErrFileNotFound) {
		s.logger.Error().Err(err).Str("blobPath", blobPath).Msg("Failed to remove unused blob")
	}
}

// UpdateDegree applies a partial update.
func (s *CatalogService) UpdateDegree(ctx context.Context, id string, patch models.DegreePatch) (*models.Degree, error) {
	degree, err := s.store.UpdateDegree(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return degree, nil
}

// UpdateSemester applies a partial update.
func (s *CatalogService) UpdateSemester(ctx context.Context, id string, patch models.SemesterPatch) (*models.Semester, error) {
	semester, err := s.store.UpdateSemester(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return semester, nil
}

// UpdateSubject applies a partial update.
func (s *CatalogService) UpdateSubject(ctx context.Context, id string, patch models.SubjectPatch) (*models.Subject, error) {
	subject, err := s.store.UpdateSubject(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return subject, nil
}

// UpdateNote applies a partial update. With a file the new PDF is stored
// first, then the record is updated, then the old PDF is removed; if the
// record update fails the new PDF is removed and the old one kept.
func (s *CatalogService) UpdateNote(ctx context.Context, id string, patch models.NotePatch, file *multipart.FileHeader) (*models.Note, error) {
	current, err := s.store.GetNote(ctx, id, models.Expand{})
	if err != nil {
		return nil, err
	}

	if file == nil {
		patch.BlobPath = nil
		note, err := s.store.UpdateNote(ctx, id, patch)
		if err != nil {
			return nil, err
		}
		s.invalidate(ctx)
		return note, nil
	}

	if err := s.uploads.Validate(file); err != nil {
		return nil, err
	}
	newPath, err := s.blobs.SaveFile(file)
	if err != nil {
		return nil, err
	}
	patch.BlobPath = &newPath

	note, err := s.store.UpdateNote(ctx, id, patch)
	if err != nil {
		s.discardBlob(newPath)
		return nil, err
	}
	s.invalidate(ctx)

	if current.BlobPath != "" && current.BlobPath != newPath {
		if err := s.blobs.DeleteFile(current.BlobPath); err != nil {
			if errors.Is(err, filestorage.ErrFileNotFound) {
				s.logger.Warn().Str("noteId", id).Str("blobPath", current.BlobPath).Msg("Replaced blob was already missing")
			} else {
				// record already points at the new file; the sweep collects the old one
				s.logger.Error().Err(err).Str("noteId", id).Str("blobPath", current.BlobPath).Msg("Failed to delete replaced blob")
			}
		}
	}
	return note, nil
}

// Delete runs the cascade for any kind; for a Note it is the leaf case.
func (s *CatalogService) Delete(ctx context.Context, kind models.Kind, id string) (*CascadeResult, error) {
	result, err := s.cascade.Delete(ctx, kind, id)
	if result != nil && result.Total() > 0 {
		s.invalidate(ctx)
	}
	return result, err
}
