package models

// ReportGrade is one line of a student report.
type ReportGrade struct {
	Subject string  `json:"subject"`
	Score   float64 `json:"score"`
}

// StudentReport summarises a student's grades.
type StudentReport struct {
	StudentID    string        `json:"student_id"`
	StudentName  string        `json:"student_name"`
	Email        string        `json:"email"`
	TotalAverage float64       `json:"total_average"`
	Grades       []ReportGrade `json:"grades"`
}

// SubjectGradesReport is the grade roster of one subject.
type SubjectGradesReport struct {
	SubjectID   string         `json:"subject_id"`
	SubjectName string         `json:"subject_name"`
	Average     float64        `json:"average"`
	Grades      []SubjectGrade `json:"grades"`
}

// StatsKind selects an aggregate counter.
type StatsKind string

const (
	StatsStudents   StatsKind = "students"
	StatsSubjects   StatsKind = "subjects"
	StatsProfessors StatsKind = "professors"
)

// Stats is a single aggregate count.
type Stats struct {
	Kind  StatsKind `json:"kind"`
	Total int       `json:"total"`
}

// ExportFormat enumerates downloadable report formats.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)
