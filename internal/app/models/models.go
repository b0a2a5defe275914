package models

import "fmt"

// Kind identifies one of the four catalog collections.
type Kind string

const (
	KindDegree   Kind = "degree"
	KindSemester Kind = "semester"
	KindSubject  Kind = "subject"
	KindNote     Kind = "note"
)

// Kinds lists the catalog kinds root first.
var Kinds = []Kind{KindDegree, KindSemester, KindSubject, KindNote}

// ParseKind converts a path or CLI token into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown catalog kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is one of the catalog kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDegree, KindSemester, KindSubject, KindNote:
		return true
	}
	return false
}

// ChildKind returns the kind stored in k's child list; empty for Note.
func (k Kind) ChildKind() Kind {
	switch k {
	case KindDegree:
		return KindSemester
	case KindSemester:
		return KindSubject
	case KindSubject:
		return KindNote
	}
	return ""
}

// ParentKind returns the kind referenced by k's parent field; empty for Degree.
func (k Kind) ParentKind() Kind {
	switch k {
	case KindSemester:
		return KindDegree
	case KindSubject:
		return KindSemester
	case KindNote:
		return KindSubject
	}
	return ""
}

// Table returns the collection backing k.
func (k Kind) Table() string {
	switch k {
	case KindDegree:
		return "degrees"
	case KindSemester:
		return "semesters"
	case KindSubject:
		return "subjects"
	case KindNote:
		return "notes"
	}
	return ""
}

// ParentColumn returns the column holding the parent reference.
func (k Kind) ParentColumn() string {
	switch k {
	case KindSemester:
		return "degree_id"
	case KindSubject:
		return "semester_id"
	case KindNote:
		return "subject_id"
	}
	return ""
}

func (k Kind) String() string {
	return string(k)
}

// RoleType defines the user role type
type RoleType string

const (
	RoleAdmin RoleType = "admin"
	RoleUser  RoleType = "user"
)

// Valid reports whether r is a known role.
func (r RoleType) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}
