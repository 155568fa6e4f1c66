package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sice-api/internal/models"
)

const gradeColumns = `id, student_id, subject_id, score, created_at, updated_at`

// GradeRepository persists student scores.
type GradeRepository struct {
	db *sqlx.DB
}

func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Create inserts a grade. Missing student or subject rows yield ErrForeignKey.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now

	const query = `INSERT INTO grades (id, student_id, subject_id, score, created_at, updated_at) VALUES (:id, :student_id, :subject_id, :score, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return wrap("create grade", err)
	}
	return nil
}

func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find grade by id: %w", err)
	}
	return &grade, nil
}

func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error) {
	baseQuery := `FROM grades g`
	var conditions []string
	var args []interface{}
	if filter.TeacherID != "" {
		baseQuery += ` JOIN subjects s ON s.id = g.subject_id`
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("g.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("g.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	_, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT g.id, g.student_id, g.subject_id, g.score, g.created_at, g.updated_at %s ORDER BY g.created_at ASC, g.id ASC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	grades := make([]models.Grade, 0)
	if err := r.db.SelectContext(ctx, &grades, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list grades: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grades: %w", err)
	}
	return grades, total, nil
}

// UpdateScore sets the score and returns the stored grade.
func (r *GradeRepository) UpdateScore(ctx context.Context, id string, score float64) (*models.Grade, error) {
	query := `UPDATE grades SET score = $2, updated_at = $3 WHERE id = $1 RETURNING ` + gradeColumns
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id, score, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update grade: %w", err)
	}
	return &grade, nil
}

func (r *GradeRepository) Delete(ctx context.Context, id string) (*models.Grade, error) {
	query := `DELETE FROM grades WHERE id = $1 RETURNING ` + gradeColumns
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("delete grade: %w", err)
	}
	return &grade, nil
}

// ListByStudent returns a student's grades joined with subject names, ordered by (subject name, score).
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentGrade, error) {
	const query = `SELECT g.id AS grade_id, g.subject_id, s.name AS subject_name, g.score
FROM grades g JOIN subjects s ON s.id = g.subject_id
WHERE g.student_id = $1 ORDER BY s.name ASC, g.score ASC, g.id ASC`
	grades := make([]models.StudentGrade, 0)
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// ListBySubject returns a subject's grades joined with the graded students.
func (r *GradeRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.SubjectGrade, error) {
	const query = `SELECT g.id AS grade_id, st.id AS student_id, st.first_name, st.last_name, st.second_last_name, st.email, g.score
FROM grades g JOIN students st ON st.id = g.student_id
WHERE g.subject_id = $1 ORDER BY st.last_name ASC, st.first_name ASC, g.id ASC`
	grades := make([]models.SubjectGrade, 0)
	if err := r.db.SelectContext(ctx, &grades, query, subjectID); err != nil {
		return nil, fmt.Errorf("list subject grades: %w", err)
	}
	return grades, nil
}
