package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sice-api/internal/models"
	appErrors "github.com/noah-isme/sice-api/pkg/errors"
	"github.com/noah-isme/sice-api/pkg/export"
)

type reportRepository interface {
	TeacherLoad(ctx context.Context, teacherID string) ([]models.SubjectLoad, error)
	CountStudents(ctx context.Context) (int, error)
	CountSubjects(ctx context.Context) (int, error)
	CountTeachers(ctx context.Context) (int, error)
}

type reportGradeReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentGrade, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.SubjectGrade, error)
}

type reportStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Search(ctx context.Context, identifier string) (*models.Student, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ExportFile is a rendered report ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportServiceConfig tunes aggregate caching.
type ReportServiceConfig struct {
	StatsTTL time.Duration
}

// ReportService aggregates grades into per-student and per-subject reports.
type ReportService struct {
	repo      reportRepository
	grades    reportGradeReader
	students  reportStudentReader
	subjects  subjectLookup
	users     userLookup
	cache     statsCache
	exporters map[models.ExportFormat]export.Exporter
	cfg       ReportServiceConfig
	logger    *zap.Logger
}

func NewReportService(repo reportRepository, grades reportGradeReader, students reportStudentReader, subjects subjectLookup, users userLookup, cache statsCache, cfg ReportServiceConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:     repo,
		grades:   grades,
		students: students,
		subjects: subjects,
		users:    users,
		cache:    cache,
		exporters: map[models.ExportFormat]export.Exporter{
			models.ExportCSV: export.NewCSVExporter(),
			models.ExportPDF: export.NewPDFExporter(),
		},
		cfg:    cfg,
		logger: logger,
	}
}

// StudentReport returns the student's grades ordered by subject name and score with their average.
func (s *ReportService) StudentReport(ctx context.Context, studentID string) (*models.StudentReport, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to load student")
	}
	return s.buildStudentReport(ctx, student)
}

// SearchStudentReport resolves a student by exact e-mail or partial name and returns the report.
func (s *ReportService) SearchStudentReport(ctx context.Context, identifier string) (*models.StudentReport, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "identifier is required")
	}
	student, err := s.students.Search(ctx, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to search student")
	}
	return s.buildStudentReport(ctx, student)
}

func (s *ReportService) buildStudentReport(ctx context.Context, student *models.Student) (*models.StudentReport, error) {
	rows, err := s.grades.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, internalError(err, "failed to load grades")
	}
	grades := make([]models.ReportGrade, 0, len(rows))
	scores := make([]float64, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, models.ReportGrade{Subject: row.SubjectName, Score: row.Score})
		scores = append(scores, row.Score)
	}
	return &models.StudentReport{
		StudentID:    student.ID,
		StudentName:  student.DisplayName(),
		Email:        student.Email,
		TotalAverage: average(scores),
		Grades:       grades,
	}, nil
}

// SubjectGrades lists every grade of the subject. Teachers may only read their own subjects.
func (s *ReportService) SubjectGrades(ctx context.Context, actor models.Actor, subjectID string) (*models.SubjectGradesReport, error) {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, internalError(err, "failed to load subject")
	}
	if err := ensureSubjectAccess(actor, subject); err != nil {
		return nil, err
	}

	grades, err := s.grades.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, internalError(err, "failed to load subject grades")
	}
	if grades == nil {
		grades = []models.SubjectGrade{}
	}
	scores := make([]float64, len(grades))
	for i, g := range grades {
		scores[i] = g.Score
	}
	return &models.SubjectGradesReport{
		SubjectID:   subject.ID,
		SubjectName: subject.Name,
		Average:     average(scores),
		Grades:      grades,
	}, nil
}

// TeacherLoad reports the subjects of a teacher with enrolment counts. Teachers always get
// their own load; admins must name the teacher.
func (s *ReportService) TeacherLoad(ctx context.Context, actor models.Actor, teacherID string) (*models.TeacherLoad, error) {
	teacherID = strings.TrimSpace(teacherID)
	switch {
	case !actor.IsAdmin():
		if teacherID != "" && teacherID != actor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers may only view their own load")
		}
		teacherID = actor.ID
	case teacherID == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	default:
		user, err := s.users.FindByID(ctx, teacherID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, internalError(err, "failed to load teacher")
		}
		if user.Role != models.RoleTeacher {
			return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a teacher")
		}
	}

	subjects, err := s.repo.TeacherLoad(ctx, teacherID)
	if err != nil {
		return nil, internalError(err, "failed to load teacher subjects")
	}
	if subjects == nil {
		subjects = []models.SubjectLoad{}
	}
	load := &models.TeacherLoad{TeacherID: teacherID, Subjects: subjects}
	for _, subject := range subjects {
		load.Total += subject.StudentsCount
	}
	return load, nil
}

// Stats returns one aggregate counter, served from cache when available.
func (s *ReportService) Stats(ctx context.Context, kind models.StatsKind) (*models.Stats, bool, error) {
	var count func(context.Context) (int, error)
	switch kind {
	case models.StatsStudents:
		count = s.repo.CountStudents
	case models.StatsSubjects:
		count = s.repo.CountSubjects
	case models.StatsProfessors:
		count = s.repo.CountTeachers
	default:
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "stats kind must be one of [students subjects professors]")
	}

	key := "stats:" + string(kind)
	if s.cache != nil {
		var cached models.Stats
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Debug("stats cache unavailable, counting from database", zap.String("key", key), zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	total, err := count(ctx)
	if err != nil {
		return nil, false, internalError(err, "failed to count "+string(kind))
	}
	stats := &models.Stats{Kind: kind, Total: total}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.cfg.StatsTTL); err != nil {
			s.logger.Debug("stats served uncached", zap.String("key", key), zap.Error(err))
		}
	}
	return stats, false, nil
}

// ExportStudentReport renders the student report as CSV or PDF.
func (s *ReportService) ExportStudentReport(ctx context.Context, studentID string, format models.ExportFormat) (*ExportFile, error) {
	if format == "" {
		format = models.ExportCSV
	}
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be one of [csv pdf]")
	}
	report, err := s.StudentReport(ctx, studentID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Grade report: %s", report.StudentName),
		Headers: []string{"subject", "score"},
		Rows:    make([]map[string]string, 0, len(report.Grades)),
		Summary: [][2]string{{"average", formatScore(report.TotalAverage)}},
	}
	for _, g := range report.Grades {
		data.Rows = append(data.Rows, map[string]string{"subject": g.Subject, "score": formatScore(g.Score)})
	}
	body, err := exporter.Render(data)
	if err != nil {
		return nil, internalError(err, "failed to render report")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("student-report-%s.%s", report.StudentID, exporter.Extension()),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}

// average is the arithmetic mean rounded to two decimals, or 0 when empty.
func average(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return math.Round(sum/float64(len(scores))*100) / 100
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
