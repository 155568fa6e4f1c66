package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sice-api/internal/models"
	"github.com/noah-isme/sice-api/internal/repository"
	appErrors "github.com/noah-isme/sice-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	SearchAll(ctx context.Context, term string, limit int) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, id string, changes models.StudentChanges) (*models.Student, error)
	Delete(ctx context.Context, id string) (*models.Student, error)
	ListSubjects(ctx context.Context, studentID string) ([]models.SubjectSummary, error)
}

type subjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type enrollmentWriter interface {
	Enroll(ctx context.Context, subjectID, studentID string) (bool, error)
}

// StudentService coordinates student registration and enrollment.
type StudentService struct {
	repo        studentRepository
	subjects    subjectLookup
	enrollments enrollmentWriter
	validator   *validator.Validate
	logger      *zap.Logger
	cache       statsInvalidator
}

func NewStudentService(repo studentRepository, subjects subjectLookup, enrollments enrollmentWriter, validate *validator.Validate, logger *zap.Logger, cache statsInvalidator) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, subjects: subjects, enrollments: enrollments, validator: validate, logger: logger, cache: cache}
}

func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list students")
	}
	return students, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns the student with the subjects it is enrolled in.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, student)
}

// Search returns every student whose e-mail equals q or whose name contains it.
func (s *StudentService) Search(ctx context.Context, q string) ([]models.Student, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "query parameter q is required")
	}
	students, err := s.repo.SearchAll(ctx, q, 0)
	if err != nil {
		return nil, internalError(err, "failed to search students")
	}
	return students, nil
}

func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "student")
	}
	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	student := &models.Student{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		SecondLastName: trimOptional(req.SecondLastName),
		Email:          req.Email,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, internalError(err, "failed to create student")
	}

	invalidateStats(ctx, s.cache)
	return student, nil
}

// Update writes only the provided fields.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "student")
	}

	var changes models.StudentChanges
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if err := s.ensureEmailFree(ctx, email, id); err != nil {
			return nil, err
		}
		changes.Email = &email
	}
	if req.FirstName != nil {
		changes.FirstName = trimOptional(req.FirstName)
	}
	if req.LastName != nil {
		changes.LastName = trimOptional(req.LastName)
	}
	if req.SecondLastName != nil {
		changes.SecondLastName = trimOptional(req.SecondLastName)
		changes.SetSecondLastName = true
	}
	if (req.FirstName != nil && changes.FirstName == nil) || (req.LastName != nil && changes.LastName == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student payload: names cannot be blank")
	}

	student, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, internalError(err, "failed to update student")
	}
	return student, nil
}

// Delete removes the student with all grades and enrollments and returns it.
func (s *StudentService) Delete(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to delete student")
	}
	invalidateStats(ctx, s.cache)
	s.logger.Info("student deleted", zap.String("student_id", id))
	return student, nil
}

// Enroll adds the student to the subject. Enrolling twice is a no-op.
func (s *StudentService) Enroll(ctx context.Context, actor models.Actor, studentID, subjectID string) (*models.StudentDetail, error) {
	student, err := s.find(ctx, studentID)
	if err != nil {
		return nil, err
	}
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

	created, err := s.enrollments.Enroll(ctx, subjectID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student or subject not found")
		}
		return nil, internalError(err, "failed to enroll student")
	}
	if created {
		s.logger.Info("student enrolled", zap.String("student_id", studentID), zap.String("subject_id", subjectID))
	}
	return s.detail(ctx, student)
}

func (s *StudentService) find(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) detail(ctx context.Context, student *models.Student) (*models.StudentDetail, error) {
	subjects, err := s.repo.ListSubjects(ctx, student.ID)
	if err != nil {
		return nil, internalError(err, "failed to load student subjects")
	}
	return &models.StudentDetail{Student: *student, Subjects: subjects}, nil
}

func (s *StudentService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to check email")
	}
	if existing.ID != selfID {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
