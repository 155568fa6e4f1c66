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

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	FindByName(ctx context.Context, name string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, id string, changes models.SubjectChanges) (*models.Subject, error)
	Delete(ctx context.Context, id string) (*models.Subject, error)
}

type enrollmentRepository interface {
	ListStudents(ctx context.Context, subjectID string) ([]models.Student, error)
	Remove(ctx context.Context, subjectID, studentID string) (bool, error)
	Replace(ctx context.Context, subjectID string, studentIDs []string) (*models.EnrollmentChange, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// SubjectService manages subjects and their rosters.
type SubjectService struct {
	repo        subjectRepository
	enrollments enrollmentRepository
	students    studentLookup
	validator   *validator.Validate
	logger      *zap.Logger
	cache       statsInvalidator
}

func NewSubjectService(repo subjectRepository, enrollments enrollmentRepository, students studentLookup, validate *validator.Validate, logger *zap.Logger, cache statsInvalidator) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, enrollments: enrollments, students: students, validator: validate, logger: logger, cache: cache}
}

func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list subjects")
	}
	return subjects, pagination(filter.Page, filter.PageSize, total), nil
}

func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	return s.find(ctx, id)
}

func (s *SubjectService) Create(ctx context.Context, req models.CreateSubjectRequest) (*models.Subject, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "subject")
	}
	if err := s.ensureNameFree(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	subject := &models.Subject{Name: req.Name, TeacherID: req.TeacherID}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, s.writeError(err, "failed to create subject")
	}

	invalidateStats(ctx, s.cache)
	s.logger.Info("subject created", zap.String("subject_id", subject.ID), zap.String("teacher_id", subject.TeacherID))
	return subject, nil
}

// Update writes only the provided fields. A new teacher must hold the teacher role.
func (s *SubjectService) Update(ctx context.Context, id string, req models.UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "subject")
	}

	var changes models.SubjectChanges
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid subject payload: name is required")
		}
		if err := s.ensureNameFree(ctx, name, id); err != nil {
			return nil, err
		}
		changes.Name = &name
	}
	changes.TeacherID = req.TeacherID

	subject, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, s.writeError(err, "failed to update subject")
	}
	return subject, nil
}

// Delete removes the subject together with its enrollments and grades.
func (s *SubjectService) Delete(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, internalError(err, "failed to delete subject")
	}
	invalidateStats(ctx, s.cache)
	s.logger.Info("subject deleted", zap.String("subject_id", id))
	return subject, nil
}

// Roster lists the students enrolled in a subject.
func (s *SubjectService) Roster(ctx context.Context, actor models.Actor, id string) ([]models.Student, error) {
	subject, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureSubjectAccess(actor, subject); err != nil {
		return nil, err
	}
	students, err := s.enrollments.ListStudents(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to list enrolled students")
	}
	return students, nil
}

// ReplaceStudents makes the given ids the exact roster. Unknown ids are rejected.
func (s *SubjectService) ReplaceStudents(ctx context.Context, actor models.Actor, id string, req models.ReplaceEnrollmentRequest) ([]models.Student, *models.EnrollmentChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, validationError(err, "enrollment")
	}
	subject, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := ensureSubjectAccess(actor, subject); err != nil {
		return nil, nil, err
	}

	change, err := s.enrollments.Replace(ctx, id, req.StudentIDs)
	if err != nil {
		var unknown *repository.UnknownStudentsError
		switch {
		case errors.As(err, &unknown):
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown student ids: "+strings.Join(unknown.IDs, ", "))
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, nil, internalError(err, "failed to replace enrollment")
	}

	s.logger.Info("subject roster replaced",
		zap.String("subject_id", id),
		zap.Int("added", len(change.Added)),
		zap.Int("removed", len(change.Removed)),
	)

	students, err := s.enrollments.ListStudents(ctx, id)
	if err != nil {
		return nil, nil, internalError(err, "failed to list enrolled students")
	}
	return students, change, nil
}

// RemoveStudent unenrolls one student.
func (s *SubjectService) RemoveStudent(ctx context.Context, actor models.Actor, subjectID, studentID string) error {
	subject, err := s.find(ctx, subjectID)
	if err != nil {
		return err
	}
	if err := ensureSubjectAccess(actor, subject); err != nil {
		return err
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return internalError(err, "failed to load student")
	}

	removed, err := s.enrollments.Remove(ctx, subjectID, studentID)
	if err != nil {
		return internalError(err, "failed to remove enrollment")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this subject")
	}
	return nil
}

func (s *SubjectService) find(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, internalError(err, "failed to load subject")
	}
	return subject, nil
}

func (s *SubjectService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to check subject name")
	}
	if existing.ID != selfID {
		return appErrors.Clone(appErrors.ErrConflict, "subject name already exists")
	}
	return nil
}

func (s *SubjectService) writeError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "subject name already exists")
	case errors.Is(err, repository.ErrTeacherNotFound), errors.Is(err, repository.ErrForeignKey):
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	case errors.Is(err, repository.ErrNotTeacher):
		return appErrors.Clone(appErrors.ErrValidation, "assigned user is not a teacher")
	}
	return internalError(err, message)
}
