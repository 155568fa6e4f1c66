package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sice-api/internal/models"
	"github.com/noah-isme/sice-api/internal/repository"
	appErrors "github.com/noah-isme/sice-api/pkg/errors"
)

type gradeRepository interface {
	Create(ctx context.Context, grade *models.Grade) error
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error)
	UpdateScore(ctx context.Context, id string, score float64) (*models.Grade, error)
	Delete(ctx context.Context, id string) (*models.Grade, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentGrade, error)
}

// GradeService records student scores per subject.
type GradeService struct {
	repo      gradeRepository
	students  studentLookup
	subjects  subjectLookup
	validator *validator.Validate
	logger    *zap.Logger
}

func NewGradeService(repo gradeRepository, students studentLookup, subjects subjectLookup, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, students: students, subjects: subjects, validator: validate, logger: logger}
}

// Create records a grade. Student and subject must exist and teachers may only grade their own subjects.
func (s *GradeService) Create(ctx context.Context, actor models.Actor, req models.CreateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "grade")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to load student")
	}
	if _, err := s.subjectFor(ctx, actor, req.SubjectID); err != nil {
		return nil, err
	}

	grade := &models.Grade{StudentID: req.StudentID, SubjectID: req.SubjectID, Score: *req.Score}
	if err := s.repo.Create(ctx, grade); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student or subject not found")
		}
		return nil, internalError(err, "failed to create grade")
	}
	return grade, nil
}

func (s *GradeService) Get(ctx context.Context, actor models.Actor, id string) (*models.Grade, error) {
	grade, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.subjectFor(ctx, actor, grade.SubjectID); err != nil {
		return nil, err
	}
	return grade, nil
}

// List returns grades; teachers only see grades of their own subjects.
func (s *GradeService) List(ctx context.Context, actor models.Actor, filter models.GradeFilter) ([]models.Grade, *models.Pagination, error) {
	if !actor.IsAdmin() {
		filter.TeacherID = actor.ID
	}
	grades, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list grades")
	}
	return grades, pagination(filter.Page, filter.PageSize, total), nil
}

// ListByStudent returns the student's grades with subject names.
func (s *GradeService) ListByStudent(ctx context.Context, studentID string) ([]models.StudentGrade, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to load student")
	}
	grades, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to list student grades")
	}
	return grades, nil
}

func (s *GradeService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "grade")
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	grade, err := s.repo.UpdateScore(ctx, id, *req.Score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, internalError(err, "failed to update grade")
	}
	return grade, nil
}

func (s *GradeService) Delete(ctx context.Context, actor models.Actor, id string) (*models.Grade, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	grade, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, internalError(err, "failed to delete grade")
	}
	return grade, nil
}

func (s *GradeService) find(ctx context.Context, id string) (*models.Grade, error) {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, internalError(err, "failed to load grade")
	}
	return grade, nil
}

func (s *GradeService) subjectFor(ctx context.Context, actor models.Actor, subjectID string) (*models.Subject, error) {
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
	return subject, nil
}
