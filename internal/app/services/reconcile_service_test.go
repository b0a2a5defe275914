package services_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/testutil"
)

func refIDs(refs []models.Ref) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestReconcile_CleanTree(t *testing.T) {
	e := newEnv(t)
	e.seedTree(t)
	invalidations := e.cache.invalidated

	report, err := e.reconcile.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, report.Changes())
	assert.Empty(t, report.MissingBlobs)
	assert.Equal(t, invalidations, e.cache.invalidated)
}

func TestReconcile_OrphanBlob(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seedTree(t)

	stray := filepath.Join(e.disk.BasePath(), "note-stray.pdf")
	require.NoError(t, os.WriteFile(stray, testutil.SamplePDF, 0o644))
	e.ageBlob(t, "/uploads/pdfs/note-stray.pdf")

	report, err := e.reconcile.Run(ctx, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, []string{"/uploads/pdfs/note-stray.pdf"}, report.OrphanBlobs)
	_, err = os.Stat(stray)
	require.NoError(t, err, "dry run must not delete")

	report, err = e.reconcile.Run(ctx, false)
	require.NoError(t, err)
	assert.Len(t, report.OrphanBlobs, 1)
	_, err = os.Stat(stray)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 3, e.blobCount(t))
}

func TestReconcile_MissingBlobIsReportedOnly(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)
	require.NoError(t, os.Remove(e.disk.GetFullPath(tr.n2.BlobPath)))

	report, err := e.reconcile.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{tr.n2.ID}, refIDs(report.MissingBlobs))
	assert.Zero(t, report.Changes())

	// the note itself is kept
	_, err = e.repo.Get(ctx, models.KindNote, tr.n2.ID)
	assert.NoError(t, err)
}

func TestReconcile_RelinksUnlistedRecord(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)
	require.NoError(t, e.repo.RemoveChild(ctx, models.KindSemester, tr.s1.ID, tr.subA.ID))

	report, err := e.reconcile.Run(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{tr.subA.ID}, refIDs(report.Relinked))
	assert.Equal(t, []string{tr.subB.ID}, childIDs(t, e, models.KindSemester, tr.s1.ID))

	report, err = e.reconcile.Run(ctx, false)
	require.NoError(t, err)
	assert.Len(t, report.Relinked, 1)
	// re-attached at the end of the list
	assert.Equal(t, []string{tr.subB.ID, tr.subA.ID}, childIDs(t, e, models.KindSemester, tr.s1.ID))
}

func TestReconcile_OrphanRecordsAreCascaded(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	// parent row gone without its cascade
	require.NoError(t, e.repo.Delete(ctx, models.KindSemester, tr.s2.ID))

	report, err := e.reconcile.Run(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{tr.subC.ID, tr.n3.ID}, refIDs(report.OrphanRecords))
	require.Len(t, report.DanglingLinks, 1)
	assert.Equal(t, tr.s2.ID, report.DanglingLinks[0].ChildID)
	assert.Empty(t, report.OrphanBlobs)
	_, err = e.repo.Get(ctx, models.KindSubject, tr.subC.ID)
	require.NoError(t, err, "dry run must not delete")

	invalidations := e.cache.invalidated
	report, err = e.reconcile.Run(ctx, false)
	require.NoError(t, err)
	assert.Len(t, report.OrphanRecords, 2)
	assert.Greater(t, e.cache.invalidated, invalidations)

	assertGone(t, e, models.KindSubject, tr.subC.ID)
	assertGone(t, e, models.KindNote, tr.n3.ID)
	assert.Equal(t, []string{tr.s1.ID}, childIDs(t, e, models.KindDegree, tr.degree.ID))
	assert.Equal(t, 2, e.blobCount(t))

	report, err = e.reconcile.Run(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, report.Changes())
}

func TestReconcile_DanglingLink(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	// the note row is gone but the subject still lists it; its blob is now a stray
	require.NoError(t, e.repo.Delete(ctx, models.KindNote, tr.n1.ID))
	e.ageBlob(t, tr.n1.BlobPath)

	report, err := e.reconcile.Run(ctx, false)
	require.NoError(t, err)
	require.Len(t, report.DanglingLinks, 1)
	assert.Equal(t, tr.subA.ID, report.DanglingLinks[0].ParentID)
	assert.Equal(t, tr.n1.ID, report.DanglingLinks[0].ChildID)
	assert.Equal(t, []string{tr.n1.BlobPath}, report.OrphanBlobs)

	assert.Equal(t, []string{tr.n2.ID}, childIDs(t, e, models.KindSubject, tr.subA.ID))
	assert.Equal(t, 2, e.blobCount(t))
}

func TestReconcile_FreshBlobIsKept(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	// stored by an upload whose record is not inserted yet
	blobPath, err := e.disk.Save(bytes.NewReader(testutil.SamplePDF))
	require.NoError(t, err)

	report, err := e.reconcile.Run(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.OrphanBlobs)

	note := &models.Note{Title: "Late", Author: "Kaya", BlobPath: blobPath, SubjectID: tr.subB.ID}
	require.NoError(t, e.repo.CreateNote(ctx, note))
	exists, err := e.disk.Exists(note.BlobPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReconcile_AgedBlobIsSwept(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.seedTree(t)

	blobPath, err := e.disk.Save(bytes.NewReader(testutil.SamplePDF))
	require.NoError(t, err)
	e.ageBlob(t, blobPath)

	report, err := e.reconcile.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{blobPath}, report.OrphanBlobs)
	exists, err := e.disk.Exists(blobPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReconcile_ZeroGraceSweepsFreshBlobs(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.reconcile.WithBlobGracePeriod(0)

	blobPath, err := e.disk.Save(bytes.NewReader(testutil.SamplePDF))
	require.NoError(t, err)

	report, err := e.reconcile.Run(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{blobPath}, report.OrphanBlobs)
}

func TestReconcile_KeepsLinkAddedDuringSweep(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr := e.seedTree(t)

	// a semester is created and linked after the records were read
	var late *models.Semester
	e.store.beforeListLinks = func(parentKind models.Kind) {
		if parentKind != models.KindDegree || late != nil {
			return
		}
		late = &models.Semester{Number: 3, Name: "Summer", DegreeID: tr.degree.ID}
		require.NoError(t, e.repo.CreateSemester(ctx, late))
		require.NoError(t, e.repo.AddChild(ctx, models.KindDegree, tr.degree.ID, late.ID))
	}

	report, err := e.reconcile.Run(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, late)
	assert.Empty(t, report.DanglingLinks)
	assert.Equal(t, []string{tr.s1.ID, tr.s2.ID, late.ID}, childIDs(t, e, models.KindDegree, tr.degree.ID))
}
