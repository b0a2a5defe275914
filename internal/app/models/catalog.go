package models

import "time"

// DegreeName is the discipline of an engineering degree.
type DegreeName string

const (
	DegreeCivil       DegreeName = "Civil"
	DegreeElectrical  DegreeName = "Electrical"
	DegreeMechanical  DegreeName = "Mechanical"
	DegreeComputer    DegreeName = "Computer"
	DegreeElectronics DegreeName = "Electronics"
	DegreeChemical    DegreeName = "Chemical"
	DegreeAerospace   DegreeName = "Aerospace"
	DegreeOther       DegreeName = "Other"
)

// DegreeNames lists the accepted disciplines.
var DegreeNames = []DegreeName{
	DegreeCivil, DegreeElectrical, DegreeMechanical, DegreeComputer,
	DegreeElectronics, DegreeChemical, DegreeAerospace, DegreeOther,
}

const (
	MinSemesterNumber = 1
	MaxSemesterNumber = 10
)

// Degree is the root of the catalog tree.
type Degree struct {
	ID          string      `json:"id" db:"id"`
	Name        DegreeName  `json:"name" db:"name" validate:"required,oneof=Civil Electrical Mechanical Computer Electronics Chemical Aerospace Other"`
	ShortName   string      `json:"shortName" db:"short_name" validate:"max=20"`
	SemesterIDs []string    `json:"semesterIds"`
	Semesters   []*Semester `json:"semesters,omitempty"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

// Semester belongs to a Degree and owns Subjects.
type Semester struct {
	ID         string     `json:"id" db:"id"`
	Number     int        `json:"number" db:"number" validate:"min=1,max=10"`
	Name       string     `json:"name" db:"name" validate:"required,max=100"`
	DegreeID   string     `json:"degreeId" db:"degree_id" validate:"required"`
	Degree     *Degree    `json:"degree,omitempty"`
	SubjectIDs []string   `json:"subjectIds"`
	Subjects   []*Subject `json:"subjects,omitempty"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`
}

// Subject belongs to a Semester and owns Notes.
type Subject struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name" validate:"required,max=200"`
	Code       string    `json:"code" db:"code" validate:"max=20"`
	SemesterID string    `json:"semesterId" db:"semester_id" validate:"required"`
	Semester   *Semester `json:"semester,omitempty"`
	NoteIDs    []string  `json:"noteIds"`
	Notes      []*Note   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// Note is a leaf record pointing at one stored PDF blob.
type Note struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title" validate:"required,max=200"`
	Author     string    `json:"author" db:"author" validate:"required,max=100"`
	BlobPath   string    `json:"pdfUrl" db:"blob_path" validate:"required"`
	UploadedAt time.Time `json:"uploadDate" db:"uploaded_at"`
	SubjectID  string    `json:"subjectId" db:"subject_id" validate:"required"`
	Subject    *Subject  `json:"subject,omitempty"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// Node is the kind-agnostic header of a catalog record: its identity, its
// parent reference and its ordered child list.
type Node struct {
	Kind     Kind
	ID       string
	ParentID string
	ChildIDs []string
	// BlobPath is only set for notes.
	BlobPath string
}

// Ref is one row of a full collection scan.
type Ref struct {
	Kind     Kind
	ID       string
	ParentID string
	BlobPath string
}

// ChildLink is one entry of a parent's child list.
type ChildLink struct {
	ParentKind Kind
	ParentID   string
	ChildID    string
	Position   int64
}

// MaxExpandDepth is the height of the tree below a Degree.
const MaxExpandDepth = 3

// Expand controls how much of the surrounding tree a read resolves.
type Expand struct {
	// Depth is the number of child levels resolved into full records.
	Depth int
	// Ancestors resolves the parent chain up to the Degree.
	Ancestors bool
}

// Child returns the expansion applied one level further down.
func (e Expand) Child() Expand {
	return Expand{Depth: e.Depth - 1}
}

// Clamp bounds the depth to the height of the tree.
func (e Expand) Clamp() Expand {
	if e.Depth < 0 {
		e.Depth = 0
	}
	if e.Depth > MaxExpandDepth {
		e.Depth = MaxExpandDepth
	}
	return e
}

// DegreePatch is a partial update; nil fields are left untouched.
type DegreePatch struct {
	Name      *DegreeName
	ShortName *string
}

type SemesterPatch struct {
	Number *int
	Name   *string
}

type SubjectPatch struct {
	Name *string
	Code *string
}

type NotePatch struct {
	Title    *string
	Author   *string
	BlobPath *string
}

// Empty reports whether the patch changes nothing.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.BlobPath == nil
}
