package models

import "time"

// Subject is a course taught by exactly one teacher.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectSummary is the short form embedded in other payloads.
type SubjectSummary struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type SubjectFilter struct {
	TeacherID string
	Search    string
	Page      int
	PageSize  int
}

type CreateSubjectRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	TeacherID string `json:"teacher_id" validate:"required"`
}

// UpdateSubjectRequest enumerates the mutable subject fields. Nil means unchanged.
type UpdateSubjectRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=120"`
	TeacherID *string `json:"teacher_id" validate:"omitempty,min=1"`
}

// SubjectLoad is one subject of a teacher annotated with its enrolled student count.
type SubjectLoad struct {
	SubjectID     string `db:"subject_id" json:"subject_id"`
	SubjectName   string `db:"subject_name" json:"subject_name"`
	StudentsCount int    `db:"students_count" json:"students_count"`
}

// TeacherLoad lists the subjects a teacher is responsible for.
type TeacherLoad struct {
	TeacherID string        `json:"teacher_id"`
	Subjects  []SubjectLoad `json:"subjects"`
	Total     int           `json:"total_students"`
}

type SubjectChanges struct {
	Name      *string
	TeacherID *string
}
