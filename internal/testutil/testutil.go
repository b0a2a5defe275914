// Package testutil holds helpers shared by package tests.
package testutil

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yigit/engnotes/internal/app/migrations"
	"github.com/yigit/engnotes/internal/db"
)

// SamplePDF is the smallest content mimetype recognises as a PDF.
var SamplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// NewSQLiteDB opens a migrated SQLite database in a temp directory.
func NewSQLiteDB(t *testing.T) *db.Database {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "engnotes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, migrations.NewMigrator(database, zerolog.Nop()).Up(context.Background()))
	return database
}

// FileHeader builds an uploaded file as gin would see it in the pdfFile field.
func FileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="pdfFile"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["pdfFile"][0]
}

// PDF returns a valid PDF upload.
func PDF(t *testing.T) *multipart.FileHeader {
	t.Helper()
	return FileHeader(t, "notes.pdf", "application/pdf", SamplePDF)
}
