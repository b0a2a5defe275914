package services_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
	"github.com/yigit/engnotes/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestCatalog_CreateLinksIntoParent(t *testing.T) {
	e := newEnv(t)
	tr := e.seedTree(t)

	assert.Equal(t, []string{tr.s1.ID, tr.s2.ID}, childIDs(t, e, models.KindDegree, tr.degree.ID))
	assert.Equal(t, []string{tr.subA.ID, tr.subB.ID}, childIDs(t, e, models.KindSemester, tr.s1.ID))
	assert.Equal(t, []string{tr.n1.ID, tr.n2.ID}, childIDs(t, e, models.KindSubject, tr.subA.ID))
	assert.Equal(t, 3, e.blobCount(t))
	assert.NotEqual(t, tr.n1.BlobPath, tr.n2.BlobPath)
}

func TestCatalog_CreateUnderMissingParent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	err := e.catalog.CreateSemester(ctx, &models.Semester{Number: 1, Name: "Fall", DegreeID: "ghost"})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	err = e.catalog.CreateNote(ctx, &models.Note{Title: "t", Author: "a", SubjectID: "ghost"}, testutil.PDF(t))
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	n, err := e.repo.Count(ctx, models.KindSemester)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, e.blobCount(t))
}

func TestCatalog_OrphanLinkKeepsRecord(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	degree := &models.Degree{Name: models.DegreeOther}
	require.NoError(t, e.catalog.CreateDegree(ctx, degree))

	e.store.failAddChild = errors.New("connection reset")
	semester := &models.Semester{Number: 4, Name: "Summer", DegreeID: degree.ID}
	err := e.catalog.CreateSemester(ctx, semester)
	require.ErrorIs(t, err, apperrors.ErrOrphanLink)

	// the record stays, unlisted
	_, err = e.repo.Get(ctx, models.KindSemester, semester.ID)
	require.NoError(t, err)
	assert.Empty(t, childIDs(t, e, models.KindDegree, degree.ID))

	// the sweep re-attaches it
	e.store.failAddChild = nil
	report, err := e.reconcile.Run(ctx, false)
	require.NoError(t, err)
	require.Len(t, report.Relinked, 1)
	assert.Equal(t, []string{semester.ID}, childIDs(t, e, models.KindDegree, degree.ID))
}

func TestCatalog_CreateNoteRejectsBadUpload(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	err := e.catalog.CreateNote(ctx, &models.Note{Title: "x", Author: "y", SubjectID: tr.subB.ID},
		testutil.FileHeader(t, "x.txt", "text/plain", []byte("hello")))
	assert.ErrorIs(t, err, apperrors.ErrUploadRejected)

	err = e.catalog.CreateNote(ctx, &models.Note{Title: "x", Author: "y", SubjectID: tr.subB.ID}, nil)
	assert.ErrorIs(t, err, apperrors.ErrMissingUploadFile)

	assert.Empty(t, childIDs(t, e, models.KindSubject, tr.subB.ID))
	assert.Equal(t, 3, e.blobCount(t))
}

func TestCatalog_CreateNoteRemovesBlobWhenRecordFails(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	err := e.catalog.CreateNote(ctx, &models.Note{Title: "  ", Author: "y", SubjectID: tr.subB.ID}, testutil.PDF(t))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Equal(t, 3, e.blobCount(t))
}

func TestCatalog_UpdateNoteReplacesFile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)
	oldPath := tr.n1.BlobPath

	updated, err := e.catalog.UpdateNote(ctx, tr.n1.ID, models.NotePatch{Title: strPtr("Week 1 (rev)")}, testutil.PDF(t))
	require.NoError(t, err)
	assert.Equal(t, "Week 1 (rev)", updated.Title)
	assert.Equal(t, "Hibbeler", updated.Author)
	assert.NotEqual(t, oldPath, updated.BlobPath)

	oldExists, err := e.disk.Exists(oldPath)
	require.NoError(t, err)
	assert.False(t, oldExists)
	newExists, err := e.disk.Exists(updated.BlobPath)
	require.NoError(t, err)
	assert.True(t, newExists)
	assert.Equal(t, 3, e.blobCount(t))

	// new blob stored, then record, then old blob removed
	assert.Equal(t, "blob:"+oldPath, e.log.all()[len(e.log.all())-1])

	stored, err := e.repo.GetNote(ctx, tr.n1.ID, models.Expand{})
	require.NoError(t, err)
	assert.Equal(t, updated.BlobPath, stored.BlobPath)
}

func TestCatalog_UpdateNoteFailureKeepsOldFile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	_, err := e.catalog.UpdateNote(ctx, tr.n1.ID, models.NotePatch{Author: strPtr("")}, testutil.PDF(t))
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	stored, err := e.repo.GetNote(ctx, tr.n1.ID, models.Expand{})
	require.NoError(t, err)
	assert.Equal(t, tr.n1.BlobPath, stored.BlobPath)
	ok, err := e.disk.Exists(tr.n1.BlobPath)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, e.blobCount(t))
}

func TestCatalog_UpdateNoteOldFileMissing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)
	require.NoError(t, os.Remove(e.disk.GetFullPath(tr.n2.BlobPath)))

	updated, err := e.catalog.UpdateNote(ctx, tr.n2.ID, models.NotePatch{}, testutil.PDF(t))
	require.NoError(t, err)
	assert.NotEqual(t, tr.n2.BlobPath, updated.BlobPath)
	assert.Equal(t, 3, e.blobCount(t))
}

func TestCatalog_UpdateNoteWithoutFile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	// a blob path in the patch is ignored without an upload
	updated, err := e.catalog.UpdateNote(ctx, tr.n3.ID, models.NotePatch{
		Author:   strPtr("J. L. Meriam"),
		BlobPath: strPtr("/uploads/pdfs/elsewhere.pdf"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "J. L. Meriam", updated.Author)
	assert.Equal(t, tr.n3.BlobPath, updated.BlobPath)
}

func TestCatalog_ReadsAndDashboard(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	degrees, err := e.catalog.ListDegrees(ctx)
	require.NoError(t, err)
	require.Len(t, degrees, 1)
	require.Len(t, degrees[0].Semesters, 2)
	assert.Nil(t, degrees[0].Semesters[0].Subjects)

	subject, err := e.catalog.GetSubject(ctx, tr.subA.ID)
	require.NoError(t, err)
	require.Len(t, subject.Notes, 2)
	require.NotNil(t, subject.Semester)
	assert.Equal(t, models.DegreeCivil, subject.Semester.Degree.Name)

	note, err := e.catalog.GetNote(ctx, tr.n3.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dynamics", note.Subject.Name)
	assert.Equal(t, "Spring", note.Subject.Semester.Name)

	_, err = e.catalog.GetSemester(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	dash, err := e.catalog.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.Kind]int64{
		models.KindDegree:   1,
		models.KindSemester: 2,
		models.KindSubject:  3,
		models.KindNote:     3,
	}, dash.Counts)
}

func TestCatalog_ReadCacheInvalidatedByMutations(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	_, err := e.catalog.GetDegree(ctx, tr.degree.ID)
	require.NoError(t, err)
	cached, err := e.catalog.GetDegree(ctx, tr.degree.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.cache.hits)
	assert.Equal(t, tr.degree.ID, cached.ID)
	assert.Len(t, cached.Semesters, 2)

	invalidations := e.cache.invalidated
	_, err = e.catalog.Delete(ctx, models.KindSemester, tr.s2.ID)
	require.NoError(t, err)
	assert.Greater(t, e.cache.invalidated, invalidations)

	fresh, err := e.catalog.GetDegree(ctx, tr.degree.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tr.s1.ID}, fresh.SemesterIDs)
}

func TestCatalog_PartialUpdates(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	semester, err := e.catalog.UpdateSemester(ctx, tr.s2.ID, models.SemesterPatch{Name: strPtr("Spring Term")})
	require.NoError(t, err)
	assert.Equal(t, 2, semester.Number)
	assert.Equal(t, "Spring Term", semester.Name)

	_, err = e.catalog.UpdateSubject(ctx, "missing", models.SubjectPatch{Name: strPtr("x")})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	bad := models.DegreeName("Law")
	_, err = e.catalog.UpdateDegree(ctx, tr.degree.ID, models.DegreePatch{Name: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
