package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/db"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
	"github.com/yigit/engnotes/internal/pkg/logger"
)

const childLinksTable = "child_links"

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CatalogRepository persists the Degree → Semester → Subject → Note tree.
// Each record keeps its parent id in its own table while the parent's ordered
// child list lives in child_links; the two sides are written by separate calls.
type CatalogRepository struct {
	db *db.Database
	sb squirrel.StatementBuilderType
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(database *db.Database) *CatalogRepository {
	return &CatalogRepository{
		db: database,
		sb: database.Builder(),
	}
}

func notFound(kind models.Kind, id string) error {
	return apperrors.NewResourceNotFoundError(fmt.Sprintf("%s %s not found", kind, id))
}

func checkKind(kind models.Kind) error {
	if !kind.Valid() {
		return apperrors.NewBadRequestError(fmt.Sprintf("unknown catalog kind %q", kind))
	}
	return nil
}

// Get returns the kind-agnostic header of a record: parent reference, ordered
// child ids and, for notes, the blob path.
func (r *CatalogRepository) Get(ctx context.Context, kind models.Kind, id string) (*models.Node, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	columns := []string{"id"}
	if kind.ParentColumn() != "" {
		columns = append(columns, kind.ParentColumn())
	}
	if kind == models.KindNote {
		columns = append(columns, "blob_path")
	}

	query, args, err := r.sb.Select(columns...).
		From(kind.Table()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get node SQL")
		return nil, err
	}

	node := &models.Node{Kind: kind}
	dest := []interface{}{&node.ID}
	if kind.ParentColumn() != "" {
		dest = append(dest, &node.ParentID)
	}
	if kind == models.KindNote {
		dest = append(dest, &node.BlobPath)
	}

	if err := r.db.SQL.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(kind, id)
		}
		logger.Error().Err(err).Str("kind", kind.String()).Str("id", id).Msg("Error executing get node query")
		return nil, err
	}

	if kind.ChildKind() != "" {
		node.ChildIDs, err = r.childIDs(ctx, r.db.SQL, kind, id)
		if err != nil {
			return nil, err
		}
	}

	return node, nil
}

// childIDs returns a parent's child list in insertion order.
func (r *CatalogRepository) childIDs(ctx context.Context, q queryer, parentKind models.Kind, parentID string) ([]string, error) {
	query, args, err := r.sb.Select("child_id").
		From(childLinksTable).
		Where(squirrel.Eq{"parent_kind": string(parentKind), "parent_id": parentID}).
		OrderBy("position ASC", "child_id ASC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building child list SQL")
		return nil, err
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("parentKind", parentKind.String()).Str("parentId", parentID).Msg("Error executing child list query")
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Delete removes a record and its own child-list rows. Children themselves
// are not touched.
func (r *CatalogRepository) Delete(ctx context.Context, kind models.Kind, id string) error {
	if err := checkKind(kind); err != nil {
		return err
	}

	deleteRecord, recordArgs, err := r.sb.Delete(kind.Table()).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete record SQL")
		return err
	}
	deleteLinks, linkArgs, err := r.sb.Delete(childLinksTable).
		Where(squirrel.Eq{"parent_kind": string(kind), "parent_id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete child list SQL")
		return err
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, deleteRecord, recordArgs...)
		if err != nil {
			logger.Error().Err(err).Str("kind", kind.String()).Str("id", id).Msg("Error deleting record")
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return notFound(kind, id)
		}

		if _, err := tx.ExecContext(ctx, deleteLinks, linkArgs...); err != nil {
			logger.Error().Err(err).Str("kind", kind.String()).Str("id", id).Msg("Error deleting child list")
			return err
		}
		return nil
	})
}

// AddChild appends childID to the end of the parent's list. Adding an id that
// is already listed is a no-op.
func (r *CatalogRepository) AddChild(ctx context.Context, parentKind models.Kind, parentID, childID string) error {
	if err := checkKind(parentKind); err != nil {
		return err
	}
	if parentKind.ChildKind() == "" {
		return apperrors.NewBadRequestError(fmt.Sprintf("%s has no child list", parentKind))
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		exists, err := r.exists(ctx, tx, parentKind.Table(), squirrel.Eq{"id": parentID})
		if err != nil {
			return err
		}
		if !exists {
			return notFound(parentKind, parentID)
		}

		linked, err := r.exists(ctx, tx, childLinksTable, squirrel.Eq{
			"parent_kind": string(parentKind),
			"parent_id":   parentID,
			"child_id":    childID,
		})
		if err != nil {
			return err
		}
		if linked {
			return nil
		}

		query, args, err := r.sb.Select("COALESCE(MAX(position), 0)").
			From(childLinksTable).
			Where(squirrel.Eq{"parent_kind": string(parentKind), "parent_id": parentID}).
			ToSql()
		if err != nil {
			return err
		}
		var last int64
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
			logger.Error().Err(err).Msg("Error reading child list position")
			return err
		}

		insert, insertArgs, err := r.sb.Insert(childLinksTable).
			Columns("parent_kind", "parent_id", "child_id", "position").
			Values(string(parentKind), parentID, childID, last+1).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
			logger.Error().Err(err).Str("parentId", parentID).Str("childId", childID).Msg("Error appending child link")
			return err
		}
		return nil
	})
}

// RemoveChild drops childID from the parent's list. Missing ids and missing
// parents are not errors.
func (r *CatalogRepository) RemoveChild(ctx context.Context, parentKind models.Kind, parentID, childID string) error {
	if err := checkKind(parentKind); err != nil {
		return err
	}

	query, args, err := r.sb.Delete(childLinksTable).
		Where(squirrel.Eq{
			"parent_kind": string(parentKind),
			"parent_id":   parentID,
			"child_id":    childID,
		}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building remove child SQL")
		return err
	}

	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		logger.Error().Err(err).Str("parentId", parentID).Str("childId", childID).Msg("Error removing child link")
		return err
	}
	return nil
}

// ListRefs scans a whole collection.
func (r *CatalogRepository) ListRefs(ctx context.Context, kind models.Kind) ([]models.Ref, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	columns := []string{"id"}
	if kind.ParentColumn() != "" {
		columns = append(columns, kind.ParentColumn())
	}
	if kind == models.KindNote {
		columns = append(columns, "blob_path")
	}

	query, args, err := r.sb.Select(columns...).From(kind.Table()).OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("kind", kind.String()).Msg("Error listing refs")
		return nil, err
	}
	defer rows.Close()

	refs := []models.Ref{}
	for rows.Next() {
		ref := models.Ref{Kind: kind}
		dest := []interface{}{&ref.ID}
		if kind.ParentColumn() != "" {
			dest = append(dest, &ref.ParentID)
		}
		if kind == models.KindNote {
			dest = append(dest, &ref.BlobPath)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ListByParent returns the ids of records of kind whose parent column points
// at parentID, linked or not, oldest first.
func (r *CatalogRepository) ListByParent(ctx context.Context, kind models.Kind, parentID string) ([]string, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if kind.ParentColumn() == "" {
		return []string{}, nil
	}

	query, args, err := r.sb.Select("id").
		From(kind.Table()).
		Where(squirrel.Eq{kind.ParentColumn(): parentID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list by parent SQL")
		return nil, err
	}

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("kind", kind.String()).Str("parentId", parentID).Msg("Error listing records by parent")
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListChildLinks returns every child-list entry held by parents of parentKind.
func (r *CatalogRepository) ListChildLinks(ctx context.Context, parentKind models.Kind) ([]models.ChildLink, error) {
	if err := checkKind(parentKind); err != nil {
		return nil, err
	}

	query, args, err := r.sb.Select("parent_kind", "parent_id", "child_id", "position").
		From(childLinksTable).
		Where(squirrel.Eq{"parent_kind": string(parentKind)}).
		OrderBy("parent_id ASC", "position ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("parentKind", parentKind.String()).Msg("Error listing child links")
		return nil, err
	}
	defer rows.Close()

	links := []models.ChildLink{}
	for rows.Next() {
		var link models.ChildLink
		var kind string
		if err := rows.Scan(&kind, &link.ParentID, &link.ChildID, &link.Position); err != nil {
			return nil, err
		}
		link.ParentKind = models.Kind(kind)
		links = append(links, link)
	}
	return links, rows.Err()
}

// Count returns the number of records of a kind.
func (r *CatalogRepository) Count(ctx context.Context, kind models.Kind) (int64, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}

	query, args, err := r.sb.Select("COUNT(*)").From(kind.Table()).ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := r.db.SQL.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		logger.Error().Err(err).Str("kind", kind.String()).Msg("Error counting records")
		return 0, err
	}
	return count, nil
}

func (r *CatalogRepository) exists(ctx context.Context, q queryer, table string, where squirrel.Eq) (bool, error) {
	query, args, err := r.sb.Select("COUNT(*)").From(table).Where(where).ToSql()
	if err != nil {
		return false, err
	}
	var count int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Error executing exists query")
		return false, err
	}
	return count > 0, nil
}
