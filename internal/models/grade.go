package models

import "time"

// Grade is one student's score in one subject.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Score     float64   `db:"score" json:"score"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type GradeFilter struct {
	StudentID string
	SubjectID string
	// TeacherID restricts results to subjects taught by that teacher.
	TeacherID string
	Page      int
	PageSize  int
}

type CreateGradeRequest struct {
	StudentID string   `json:"student_id" validate:"required"`
	SubjectID string   `json:"subject_id" validate:"required"`
	Score     *float64 `json:"score" validate:"required"`
}

type UpdateGradeRequest struct {
	Score *float64 `json:"score" validate:"required"`
}

// StudentGrade is a grade joined with its subject name.
type StudentGrade struct {
	GradeID     string  `db:"grade_id" json:"grade_id"`
	SubjectID   string  `db:"subject_id" json:"subject_id"`
	SubjectName string  `db:"subject_name" json:"subject"`
	Score       float64 `db:"score" json:"score"`
}

// SubjectGrade is a grade joined with the identity of the graded student.
type SubjectGrade struct {
	GradeID        string  `db:"grade_id" json:"grade_id"`
	StudentID      string  `db:"student_id" json:"student_id"`
	FirstName      string  `db:"first_name" json:"first_name"`
	LastName       string  `db:"last_name" json:"last_name"`
	SecondLastName *string `db:"second_last_name" json:"second_last_name,omitempty"`
	Email          string  `db:"email" json:"email"`
	Score          float64 `db:"score" json:"score"`
}
