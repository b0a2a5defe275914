package services

import (
	"context"
	"errors"

	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
)

// Services defined in this package:
// - CascadeService: bottom-up deletion of a record, its descendants and their blobs
// - CatalogService: catalog reads and admin create/update/delete
// - ReconcileService: out-of-band repair of links, orphans and stray blobs
// - AuthService: registration, login and account bootstrap

// NodeStore is the kind-agnostic part of the catalog store.
type NodeStore interface {
	Get(ctx context.Context, kind models.Kind, id string) (*models.Node, error)
	Delete(ctx context.Context, kind models.Kind, id string) error
	AddChild(ctx context.Context, parentKind models.Kind, parentID, childID string) error
	RemoveChild(ctx context.Context, parentKind models.Kind, parentID, childID string) error
	ListRefs(ctx context.Context, kind models.Kind) ([]models.Ref, error)
	ListByParent(ctx context.Context, kind models.Kind, parentID string) ([]string, error)
	ListChildLinks(ctx context.Context, parentKind models.Kind) ([]models.ChildLink, error)
	Count(ctx context.Context, kind models.Kind) (int64, error)
}

// CatalogStore adds the typed record operations.
type CatalogStore interface {
	NodeStore

	CreateDegree(ctx context.Context, degree *models.Degree) error
	GetDegree(ctx context.Context, id string, expand models.Expand) (*models.Degree, error)
	ListDegrees(ctx context.Context, expand models.Expand) ([]*models.Degree, error)
	UpdateDegree(ctx context.Context, id string, patch models.DegreePatch) (*models.Degree, error)

	CreateSemester(ctx context.Context, semester *models.Semester) error
	GetSemester(ctx context.Context, id string, expand models.Expand) (*models.Semester, error)
	UpdateSemester(ctx context.Context, id string, patch models.SemesterPatch) (*models.Semester, error)

	CreateSubject(ctx context.Context, subject *models.Subject) error
	GetSubject(ctx context.Context, id string, expand models.Expand) (*models.Subject, error)
	UpdateSubject(ctx context.Context, id string, patch models.SubjectPatch) (*models.Subject, error)

	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, id string, expand models.Expand) (*models.Note, error)
	UpdateNote(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error)
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrResourceNotFound)
}
