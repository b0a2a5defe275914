package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
	"github.com/yigit/engnotes/internal/pkg/logger"
	"github.com/yigit/engnotes/internal/pkg/validation"
)

var (
	degreeColumns   = []string{"id", "name", "short_name", "created_at", "updated_at"}
	semesterColumns = []string{"id", "number", "name", "degree_id", "created_at", "updated_at"}
	subjectColumns  = []string{"id", "name", "code", "semester_id", "created_at", "updated_at"}
	noteColumns     = []string{"id", "title", "author", "blob_path", "uploaded_at", "subject_id", "created_at", "updated_at"}
)

func now() time.Time {
	return time.Now().UTC()
}

func isMissing(err error) bool {
	return errors.Is(err, apperrors.ErrResourceNotFound)
}

// ---- Degree ----

// CreateDegree validates and inserts a degree, assigning its id and timestamps.
func (r *CatalogRepository) CreateDegree(ctx context.Context, degree *models.Degree) error {
	degree.ShortName = strings.TrimSpace(degree.ShortName)
	degree.Name = models.DegreeName(strings.TrimSpace(string(degree.Name)))
	if err := validation.Struct(degree); err != nil {
		return err
	}

	degree.ID = uuid.NewString()
	degree.CreatedAt = now()
	degree.UpdatedAt = degree.CreatedAt
	degree.SemesterIDs = []string{}

	return r.insert(ctx, models.KindDegree, degreeColumns,
		degree.ID, string(degree.Name), degree.ShortName, degree.CreatedAt, degree.UpdatedAt)
}

// GetDegree loads a degree; expand.Depth resolves semesters and below.
func (r *CatalogRepository) GetDegree(ctx context.Context, id string, expand models.Expand) (*models.Degree, error) {
	query, args, err := r.sb.Select(degreeColumns...).From("degrees").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	degree, err := scanDegree(r.db.SQL.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(models.KindDegree, id)
		}
		logger.Error().Err(err).Str("id", id).Msg("Error executing get degree query")
		return nil, err
	}

	if err := r.expandDegree(ctx, degree, expand.Clamp()); err != nil {
		return nil, err
	}
	return degree, nil
}

// ListDegrees returns every degree ordered by creation.
func (r *CatalogRepository) ListDegrees(ctx context.Context, expand models.Expand) ([]*models.Degree, error) {
	query, args, err := r.sb.Select(degreeColumns...).From("degrees").OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list degrees query")
		return nil, err
	}

	degrees := []*models.Degree{}
	for rows.Next() {
		degree, err := scanDegree(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		degrees = append(degrees, degree)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the connection before expanding; sqlite runs with a single one
	rows.Close()

	expand = expand.Clamp()
	for _, degree := range degrees {
		if err := r.expandDegree(ctx, degree, expand); err != nil {
			return nil, err
		}
	}
	return degrees, nil
}

// UpdateDegree applies a partial update.
func (r *CatalogRepository) UpdateDegree(ctx context.Context, id string, patch models.DegreePatch) (*models.Degree, error) {
	degree, err := r.GetDegree(ctx, id, models.Expand{})
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		degree.Name = models.DegreeName(strings.TrimSpace(string(*patch.Name)))
	}
	if patch.ShortName != nil {
		degree.ShortName = strings.TrimSpace(*patch.ShortName)
	}
	if err := validation.Struct(degree); err != nil {
		return nil, err
	}
	degree.UpdatedAt = now()

	err = r.update(ctx, models.KindDegree, id, map[string]interface{}{
		"name":       string(degree.Name),
		"short_name": degree.ShortName,
		"updated_at": degree.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return degree, nil
}

func (r *CatalogRepository) expandDegree(ctx context.Context, degree *models.Degree, expand models.Expand) error {
	ids, err := r.childIDs(ctx, r.db.SQL, models.KindDegree, degree.ID)
	if err != nil {
		return err
	}
	degree.SemesterIDs = ids

	if expand.Depth == 0 {
		return nil
	}
	degree.Semesters = make([]*models.Semester, 0, len(ids))
	for _, sid := range ids {
		semester, err := r.GetSemester(ctx, sid, expand.Child())
		if isMissing(err) {
			continue
		}
		if err != nil {
			return err
		}
		degree.Semesters = append(degree.Semesters, semester)
	}
	return nil
}

// ---- Semester ----

// CreateSemester validates and inserts a semester. The degree's child list is
// not touched.
func (r *CatalogRepository) CreateSemester(ctx context.Context, semester *models.Semester) error {
	semester.Name = strings.TrimSpace(semester.Name)
	semester.DegreeID = strings.TrimSpace(semester.DegreeID)
	if err := validation.Struct(semester); err != nil {
		return err
	}

	semester.ID = uuid.NewString()
	semester.CreatedAt = now()
	semester.UpdatedAt = semester.CreatedAt
	semester.SubjectIDs = []string{}

	return r.insert(ctx, models.KindSemester, semesterColumns,
		semester.ID, semester.Number, semester.Name, semester.DegreeID, semester.CreatedAt, semester.UpdatedAt)
}

// GetSemester loads a semester with optional subjects and degree.
func (r *CatalogRepository) GetSemester(ctx context.Context, id string, expand models.Expand) (*models.Semester, error) {
	query, args, err := r.sb.Select(semesterColumns...).From("semesters").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	semester, err := scanSemester(r.db.SQL.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(models.KindSemester, id)
		}
		logger.Error().Err(err).Str("id", id).Msg("Error executing get semester query")
		return nil, err
	}

	expand = expand.Clamp()
	ids, err := r.childIDs(ctx, r.db.SQL, models.KindSemester, id)
	if err != nil {
		return nil, err
	}
	semester.SubjectIDs = ids

	if expand.Depth > 0 {
		semester.Subjects = make([]*models.Subject, 0, len(ids))
		for _, sid := range ids {
			subject, err := r.GetSubject(ctx, sid, expand.Child())
			if isMissing(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			semester.Subjects = append(semester.Subjects, subject)
		}
	}

	if expand.Ancestors {
		degree, err := r.GetDegree(ctx, semester.DegreeID, models.Expand{})
		if err != nil && !isMissing(err) {
			return nil, err
		}
		semester.Degree = degree
	}
	return semester, nil
}

// UpdateSemester applies a partial update.
func (r *CatalogRepository) UpdateSemester(ctx context.Context, id string, patch models.SemesterPatch) (*models.Semester, error) {
	semester, err := r.GetSemester(ctx, id, models.Expand{})
	if err != nil {
		return nil, err
	}

	if patch.Number != nil {
		semester.Number = *patch.Number
	}
	if patch.Name != nil {
		semester.Name = strings.TrimSpace(*patch.Name)
	}
	if err := validation.Struct(semester); err != nil {
		return nil, err
	}
	semester.UpdatedAt = now()

	err = r.update(ctx, models.KindSemester, id, map[string]interface{}{
		"number":     semester.Number,
		"name":       semester.Name,
		"updated_at": semester.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return semester, nil
}

// ---- Subject ----

// CreateSubject validates and inserts a subject.
func (r *CatalogRepository) CreateSubject(ctx context.Context, subject *models.Subject) error {
	subject.Name = strings.TrimSpace(subject.Name)
	subject.Code = strings.TrimSpace(subject.Code)
	subject.SemesterID = strings.TrimSpace(subject.SemesterID)
	if err := validation.Struct(subject); err != nil {
		return err
	}

	subject.ID = uuid.NewString()
	subject.CreatedAt = now()
	subject.UpdatedAt = subject.CreatedAt
	subject.NoteIDs = []string{}

	return r.insert(ctx, models.KindSubject, subjectColumns,
		subject.ID, subject.Name, subject.Code, subject.SemesterID, subject.CreatedAt, subject.UpdatedAt)
}

// GetSubject loads a subject with optional notes and ancestor chain.
func (r *CatalogRepository) GetSubject(ctx context.Context, id string, expand models.Expand) (*models.Subject, error) {
	query, args, err := r.sb.Select(subjectColumns...).From("subjects").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	subject, err := scanSubject(r.db.SQL.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(models.KindSubject, id)
		}
		logger.Error().Err(err).Str("id", id).Msg("Error executing get subject query")
		return nil, err
	}

	expand = expand.Clamp()
	ids, err := r.childIDs(ctx, r.db.SQL, models.KindSubject, id)
	if err != nil {
		return nil, err
	}
	subject.NoteIDs = ids

	if expand.Depth > 0 {
		subject.Notes = make([]*models.Note, 0, len(ids))
		for _, nid := range ids {
			note, err := r.GetNote(ctx, nid, models.Expand{})
			if isMissing(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			subject.Notes = append(subject.Notes, note)
		}
	}

	if expand.Ancestors {
		semester, err := r.GetSemester(ctx, subject.SemesterID, models.Expand{Ancestors: true})
		if err != nil && !isMissing(err) {
			return nil, err
		}
		subject.Semester = semester
	}
	return subject, nil
}

// UpdateSubject applies a partial update.
func (r *CatalogRepository) UpdateSubject(ctx context.Context, id string, patch models.SubjectPatch) (*models.Subject, error) {
	subject, err := r.GetSubject(ctx, id, models.Expand{})
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		subject.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Code != nil {
		subject.Code = strings.TrimSpace(*patch.Code)
	}
	if err := validation.Struct(subject); err != nil {
		return nil, err
	}
	subject.UpdatedAt = now()

	err = r.update(ctx, models.KindSubject, id, map[string]interface{}{
		"name":       subject.Name,
		"code":       subject.Code,
		"updated_at": subject.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return subject, nil
}

// ---- Note ----

// CreateNote validates and inserts a note. UploadedAt defaults to now.
func (r *CatalogRepository) CreateNote(ctx context.Context, note *models.Note) error {
	note.Title = strings.TrimSpace(note.Title)
	note.Author = strings.TrimSpace(note.Author)
	note.BlobPath = strings.TrimSpace(note.BlobPath)
	note.SubjectID = strings.TrimSpace(note.SubjectID)
	if err := validation.Struct(note); err != nil {
		return err
	}

	note.ID = uuid.NewString()
	note.CreatedAt = now()
	note.UpdatedAt = note.CreatedAt
	if note.UploadedAt.IsZero() {
		note.UploadedAt = note.CreatedAt
	}

	return r.insert(ctx, models.KindNote, noteColumns,
		note.ID, note.Title, note.Author, note.BlobPath, note.UploadedAt, note.SubjectID, note.CreatedAt, note.UpdatedAt)
}

// GetNote loads a note; expand.Ancestors resolves subject, semester and degree.
func (r *CatalogRepository) GetNote(ctx context.Context, id string, expand models.Expand) (*models.Note, error) {
	query, args, err := r.sb.Select(noteColumns...).From("notes").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	note, err := scanNote(r.db.SQL.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(models.KindNote, id)
		}
		logger.Error().Err(err).Str("id", id).Msg("Error executing get note query")
		return nil, err
	}

	if expand.Ancestors {
		subject, err := r.GetSubject(ctx, note.SubjectID, models.Expand{Ancestors: true})
		if err != nil && !isMissing(err) {
			return nil, err
		}
		note.Subject = subject
	}
	return note, nil
}

// UpdateNote applies a partial update. A new BlobPath also refreshes UploadedAt.
func (r *CatalogRepository) UpdateNote(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	note, err := r.GetNote(ctx, id, models.Expand{})
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		note.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Author != nil {
		note.Author = strings.TrimSpace(*patch.Author)
	}
	if patch.BlobPath != nil {
		note.BlobPath = strings.TrimSpace(*patch.BlobPath)
		note.UploadedAt = now()
	}
	if err := validation.Struct(note); err != nil {
		return nil, err
	}
	note.UpdatedAt = now()

	err = r.update(ctx, models.KindNote, id, map[string]interface{}{
		"title":       note.Title,
		"author":      note.Author,
		"blob_path":   note.BlobPath,
		"uploaded_at": note.UploadedAt,
		"updated_at":  note.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// ---- shared ----

func (r *CatalogRepository) insert(ctx context.Context, kind models.Kind, columns []string, values ...interface{}) error {
	query, args, err := r.sb.Insert(kind.Table()).Columns(columns...).Values(values...).ToSql()
	if err != nil {
		logger.Error().Err(err).Str("kind", kind.String()).Msg("Error building insert SQL")
		return err
	}

	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		logger.Error().Err(err).Str("kind", kind.String()).Msg("Error executing insert query")
		return err
	}
	return nil
}

func (r *CatalogRepository) update(ctx context.Context, kind models.Kind, id string, set map[string]interface{}) error {
	query, args, err := r.sb.Update(kind.Table()).SetMap(set).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		logger.Error().Err(err).Str("kind", kind.String()).Msg("Error building update SQL")
		return err
	}

	result, err := r.db.SQL.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("kind", kind.String()).Str("id", id).Msg("Error executing update query")
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound(kind, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDegree(row rowScanner) (*models.Degree, error) {
	var degree models.Degree
	var name string
	if err := row.Scan(&degree.ID, &name, &degree.ShortName, &degree.CreatedAt, &degree.UpdatedAt); err != nil {
		return nil, err
	}
	degree.Name = models.DegreeName(name)
	return &degree, nil
}

func scanSemester(row rowScanner) (*models.Semester, error) {
	var semester models.Semester
	err := row.Scan(&semester.ID, &semester.Number, &semester.Name, &semester.DegreeID,
		&semester.CreatedAt, &semester.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func scanSubject(row rowScanner) (*models.Subject, error) {
	var subject models.Subject
	err := row.Scan(&subject.ID, &subject.Name, &subject.Code, &subject.SemesterID,
		&subject.CreatedAt, &subject.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func scanNote(row rowScanner) (*models.Note, error) {
	var note models.Note
	err := row.Scan(&note.ID, &note.Title, &note.Author, &note.BlobPath, &note.UploadedAt,
		&note.SubjectID, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &note, nil
}
