package dto

import "github.com/yigit/engnotes/internal/app/models"

// --- Request DTOs ---
// Admin forms post urlencoded or multipart data; the API also takes JSON.

// CreateDegreeRequest represents the data needed to create a degree.
type CreateDegreeRequest struct {
	Name      string `json:"name" form:"name" binding:"required" example:"Civil"`
	ShortName string `json:"shortName" form:"shortName" binding:"max=20" example:"CE"`
}

// ToModel builds the degree record.
func (r CreateDegreeRequest) ToModel() *models.Degree {
	return &models.Degree{Name: models.DegreeName(r.Name), ShortName: r.ShortName}
}

// UpdateDegreeRequest is a partial update; omitted fields are left untouched.
type UpdateDegreeRequest struct {
	Name      *string `json:"name" form:"name"`
	ShortName *string `json:"shortName" form:"shortName"`
}

// ToPatch converts the request into a store patch.
func (r UpdateDegreeRequest) ToPatch() models.DegreePatch {
	patch := models.DegreePatch{ShortName: r.ShortName}
	if r.Name != nil {
		name := models.DegreeName(*r.Name)
		patch.Name = &name
	}
	return patch
}

// CreateSemesterRequest represents the data needed to create a semester.
type CreateSemesterRequest struct {
	Number   int    `json:"number" form:"number" binding:"required,min=1,max=10" example:"1"`
	Name     string `json:"name" form:"name" binding:"required" example:"Fall"`
	DegreeID string `json:"degreeId" form:"degreeId" binding:"required"`
}

func (r CreateSemesterRequest) ToModel() *models.Semester {
	return &models.Semester{Number: r.Number, Name: r.Name, DegreeID: r.DegreeID}
}

type UpdateSemesterRequest struct {
	Number *int    `json:"number" form:"number" binding:"omitempty,min=1,max=10"`
	Name   *string `json:"name" form:"name"`
}

func (r UpdateSemesterRequest) ToPatch() models.SemesterPatch {
	return models.SemesterPatch{Number: r.Number, Name: r.Name}
}

// CreateSubjectRequest represents the data needed to create a subject.
type CreateSubjectRequest struct {
	Name       string `json:"name" form:"name" binding:"required" example:"Statics"`
	Code       string `json:"code" form:"code" binding:"max=20" example:"CE101"`
	SemesterID string `json:"semesterId" form:"semesterId" binding:"required"`
}

func (r CreateSubjectRequest) ToModel() *models.Subject {
	return &models.Subject{Name: r.Name, Code: r.Code, SemesterID: r.SemesterID}
}

type UpdateSubjectRequest struct {
	Name *string `json:"name" form:"name"`
	Code *string `json:"code" form:"code"`
}

func (r UpdateSubjectRequest) ToPatch() models.SubjectPatch {
	return models.SubjectPatch{Name: r.Name, Code: r.Code}
}

// CreateNoteRequest carries the note fields of a multipart upload; the PDF
// itself arrives in the upload field.
type CreateNoteRequest struct {
	Title     string `form:"title" binding:"required" example:"Week 1"`
	Author    string `form:"author" binding:"required" example:"R. C. Hibbeler"`
	SubjectID string `form:"subjectId" binding:"required"`
}

func (r CreateNoteRequest) ToModel() *models.Note {
	return &models.Note{Title: r.Title, Author: r.Author, SubjectID: r.SubjectID}
}

// UpdateNoteRequest is a partial update; a replacement PDF is optional.
type UpdateNoteRequest struct {
	Title  *string `json:"title" form:"title"`
	Author *string `json:"author" form:"author"`
}

func (r UpdateNoteRequest) ToPatch() models.NotePatch {
	return models.NotePatch{Title: r.Title, Author: r.Author}
}
