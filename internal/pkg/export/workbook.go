package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/yigit/engnotes/internal/app/models"
)

// Sheet names, one per catalog kind.
const (
	SheetDegrees   = "Degrees"
	SheetSemesters = "Semesters"
	SheetSubjects  = "Subjects"
	SheetNotes     = "Notes"
)

var headers = map[string][]interface{}{
	SheetDegrees:   {"ID", "Name", "Short Name", "Semesters", "Created At"},
	SheetSemesters: {"ID", "Degree ID", "Degree", "Number", "Name", "Subjects"},
	SheetSubjects:  {"ID", "Semester ID", "Degree", "Semester", "Name", "Code", "Notes"},
	SheetNotes:     {"ID", "Subject ID", "Subject", "Title", "Author", "PDF", "Uploaded At"},
}

// Workbook renders a fully expanded catalog (degrees with semesters, subjects
// and notes resolved) into an xlsx file with one sheet per kind. The caller
// closes the returned file.
func Workbook(degrees []*models.Degree) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetDegrees); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetSemesters, SheetSubjects, SheetNotes} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	w := &sheetWriter{f: f, rows: map[string]int{}}
	for _, sheet := range []string{SheetDegrees, SheetSemesters, SheetSubjects, SheetNotes} {
		w.append(sheet, headers[sheet])
	}

	for _, degree := range degrees {
		w.append(SheetDegrees, []interface{}{
			degree.ID, string(degree.Name), degree.ShortName, len(degree.SemesterIDs), formatTime(degree.CreatedAt),
		})
		for _, semester := range degree.Semesters {
			w.append(SheetSemesters, []interface{}{
				semester.ID, degree.ID, string(degree.Name), semester.Number, semester.Name, len(semester.SubjectIDs),
			})
			for _, subject := range semester.Subjects {
				w.append(SheetSubjects, []interface{}{
					subject.ID, semester.ID, string(degree.Name), semester.Number, subject.Name, subject.Code, len(subject.NoteIDs),
				})
				for _, note := range subject.Notes {
					w.append(SheetNotes, []interface{}{
						note.ID, subject.ID, subject.Name, note.Title, note.Author, note.BlobPath, formatTime(note.UploadedAt),
					})
				}
			}
		}
	}

	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// Write renders the workbook straight into w.
func Write(out io.Writer, degrees []*models.Degree) error {
	f, err := Workbook(degrees)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f    *excelize.File
	rows map[string]int
	err  error
}

func (w *sheetWriter) append(sheet string, values []interface{}) {
	if w.err != nil {
		return
	}
	w.rows[sheet]++
	cell, err := excelize.CoordinatesToCellName(1, w.rows[sheet])
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("failed to write row %d of %s: %w", w.rows[sheet], sheet, err)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
