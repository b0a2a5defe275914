package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/app/services"
)

func TestRenderTree(t *testing.T) {
	degrees := []*models.Degree{
		{
			ID:   "d1",
			Name: models.DegreeCivil,
			Semesters: []*models.Semester{
				{
					ID: "s1", Number: 1, Name: "Fall",
					Subjects: []*models.Subject{
						{
							ID: "sub1", Name: "Statics", Code: "CE101",
							Notes: []*models.Note{{ID: "n1", Title: "Week 1", Author: "Kaya", BlobPath: "/uploads/pdfs/a.pdf"}},
						},
						{ID: "sub2", Name: "Surveying"},
					},
				},
			},
		},
		{ID: "d2", Name: models.DegreeComputer},
	}

	var buf bytes.Buffer
	renderTree(&buf, degrees)
	out := buf.String()

	for _, want := range []string{"Civil", "1. Fall", "CE101 Statics", "Week 1", "Kaya", "/uploads/pdfs/a.pdf", "Surveying", "Computer"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderTree_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderTree(&buf, nil)
	assert.Contains(t, buf.String(), "Catalog is empty")
}

func TestRenderReport(t *testing.T) {
	t.Run("consistent", func(t *testing.T) {
		var buf bytes.Buffer
		renderReport(&buf, &services.ReconcileReport{})
		assert.Contains(t, buf.String(), "Catalog is consistent")
	})

	t.Run("dry run findings", func(t *testing.T) {
		report := &services.ReconcileReport{
			DryRun:        true,
			OrphanRecords: []models.Ref{{Kind: models.KindSubject, ID: "sub9", ParentID: "gone"}},
			DanglingLinks: []models.ChildLink{{ParentKind: models.KindDegree, ParentID: "d1", ChildID: "s9"}},
			OrphanBlobs:   []string{"/uploads/pdfs/stray.pdf"},
			MissingBlobs:  []models.Ref{{Kind: models.KindNote, ID: "n7", BlobPath: "/uploads/pdfs/lost.pdf"}},
		}
		var buf bytes.Buffer
		renderReport(&buf, report)
		out := buf.String()

		require.Contains(t, out, "orphan record")
		assert.Contains(t, out, "sub9")
		assert.Contains(t, out, "child s9")
		assert.Contains(t, out, "stray.pdf")
		assert.Contains(t, out, "lost.pdf")
		assert.Contains(t, out, "Dry run: 3 change(s) pending")
	})
}

func TestRenderCascade(t *testing.T) {
	result := &services.CascadeResult{
		Kind:         models.KindSemester,
		ID:           "s1",
		Records:      map[models.Kind]int{models.KindSemester: 1, models.KindSubject: 2, models.KindNote: 3},
		Blobs:        2,
		MissingBlobs: 1,
	}
	var buf bytes.Buffer
	renderCascade(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "subject")
	assert.Contains(t, out, "pdf files")
	assert.Contains(t, out, "Skipped 1 missing file(s) and 0 missing record(s)")
	assert.Contains(t, out, "Deleted semester s1")
	assert.NotContains(t, out, "degree")
}

func TestRootCmd_DeleteRejectsUnknownKind(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"delete", "faculty", "x1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown catalog kind")
}

func TestRootCmd_Version(t *testing.T) {
	cmd := rootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "catalogctl version "+Version)
}

func TestRootCmd_CreateAdminNeedsCredentials(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "")
	cmd := rootCmd()
	cmd.SetArgs([]string{"create-admin", "--username", "root"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}
