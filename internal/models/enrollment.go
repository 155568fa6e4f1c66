package models

import "time"

// Enrollment is the membership of a student in a subject.
type Enrollment struct {
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// ReplaceEnrollmentRequest sets the exact roster of a subject.
type ReplaceEnrollmentRequest struct {
	StudentIDs []string `json:"student_ids" validate:"dive,required"`
}

// EnrollmentChange reports what a roster replacement did.
type EnrollmentChange struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}
