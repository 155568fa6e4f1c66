package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID             string    `db:"id" json:"id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	SecondLastName *string   `db:"second_last_name" json:"second_last_name,omitempty"`
	Email          string    `db:"email" json:"email"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName joins the non-empty name parts.
func (s Student) DisplayName() string {
	name := s.FirstName
	if s.LastName != "" {
		name += " " + s.LastName
	}
	if s.SecondLastName != nil && *s.SecondLastName != "" {
		name += " " + *s.SecondLastName
	}
	return name
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}

// StudentDetail is a student together with the subjects it is enrolled in.
type StudentDetail struct {
	Student
	Subjects []SubjectSummary `json:"subjects"`
}

type CreateStudentRequest struct {
	FirstName      string  `json:"first_name" validate:"required,max=100"`
	LastName       string  `json:"last_name" validate:"required,max=100"`
	SecondLastName *string `json:"second_last_name" validate:"omitempty,max=100"`
	Email          string  `json:"email" validate:"required,email"`
}

// UpdateStudentRequest enumerates the mutable student fields. Nil means unchanged.
type UpdateStudentRequest struct {
	FirstName      *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName       *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	SecondLastName *string `json:"second_last_name" validate:"omitempty,max=100"`
	Email          *string `json:"email" validate:"omitempty,email"`
}

// StudentChanges is the column set written by a student update. Nil fields are left as stored.
// SecondLastName is written only when SetSecondLastName is true, so it can be cleared.
type StudentChanges struct {
	FirstName         *string
	LastName          *string
	SecondLastName    *string
	SetSecondLastName bool
	Email             *string
}
