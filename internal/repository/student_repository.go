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

const studentColumns = `id, first_name, last_name, second_last_name, email, created_at, updated_at`

// studentMatch matches an exact e-mail or a case-insensitive substring of any name part.
// $1 is the raw identifier, $2 its LIKE pattern.
const studentMatch = `(LOWER(email) = LOWER($1) OR LOWER(first_name) LIKE $2 OR LOWER(last_name) LIKE $2 OR LOWER(COALESCE(second_last_name, '')) LIKE $2)`

// studentMatchOrder puts an exact e-mail hit first, then the earliest registered student.
const studentMatchOrder = `ORDER BY (LOWER(email) = LOWER($1)) DESC, created_at ASC, id ASC`

// StudentRepository handles persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students using filter and pagination.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	baseQuery := `FROM students`
	var args []interface{}
	if filter.Search != "" {
		baseQuery += ` WHERE (LOWER(first_name) LIKE $1 OR LOWER(last_name) LIKE $1 OR LOWER(COALESCE(second_last_name, '')) LIKE $1 OR LOWER(email) LIKE $1)`
		args = append(args, likePattern(filter.Search))
	}

	_, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY last_name ASC, first_name ASC, id ASC LIMIT %d OFFSET %d", studentColumns, baseQuery, pageSize, offset)

	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE LOWER(email) = LOWER($1)`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, strings.TrimSpace(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by email: %w", err)
	}
	return &student, nil
}

// Search resolves identifier to a single student: exact e-mail first, otherwise the
// earliest registered student whose name contains it.
func (r *StudentRepository) Search(ctx context.Context, identifier string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE ` + studentMatch + ` ` + studentMatchOrder + ` LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, strings.TrimSpace(identifier), likePattern(identifier)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("search student: %w", err)
	}
	return &student, nil
}

// SearchAll returns every student matching term, in the same order Search uses.
func (r *StudentRepository) SearchAll(ctx context.Context, term string, limit int) ([]models.Student, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s %s LIMIT %d`, studentColumns, studentMatch, studentMatchOrder, limit)
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, strings.TrimSpace(term), likePattern(term)); err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	return students, nil
}

// Create inserts a student. A taken e-mail yields ErrDuplicate.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, first_name, last_name, second_last_name, email, created_at, updated_at) VALUES (:id, :first_name, :last_name, :second_last_name, :email, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return wrap("create student", err)
	}
	return nil
}

// Update writes only the columns set in changes in a single statement and returns the
// stored row. A missing student yields sql.ErrNoRows.
func (r *StudentRepository) Update(ctx context.Context, id string, changes models.StudentChanges) (*models.Student, error) {
	var set assignments
	if changes.FirstName != nil {
		set.set("first_name", *changes.FirstName)
	}
	if changes.LastName != nil {
		set.set("last_name", *changes.LastName)
	}
	if changes.SetSecondLastName {
		set.set("second_last_name", changes.SecondLastName)
	}
	if changes.Email != nil {
		set.set("email", *changes.Email)
	}
	if set.empty() {
		return r.FindByID(ctx, id)
	}
	set.set("updated_at", time.Now().UTC())

	query, args := set.update("students", studentColumns, id)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, wrap("update student", err)
	}
	return &student, nil
}

// Delete removes the student; grades and enrollments go with it through ON DELETE CASCADE.
func (r *StudentRepository) Delete(ctx context.Context, id string) (*models.Student, error) {
	query := `DELETE FROM students WHERE id = $1 RETURNING ` + studentColumns
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("delete student: %w", err)
	}
	return &student, nil
}

// ListSubjects returns the subjects a student is enrolled in.
func (r *StudentRepository) ListSubjects(ctx context.Context, studentID string) ([]models.SubjectSummary, error) {
	const query = `SELECT s.id, s.name FROM subjects s JOIN enrollments e ON e.subject_id = s.id WHERE e.student_id = $1 ORDER BY s.name ASC`
	subjects := make([]models.SubjectSummary, 0)
	if err := r.db.SelectContext(ctx, &subjects, query, studentID); err != nil {
		return nil, fmt.Errorf("list student subjects: %w", err)
	}
	return subjects, nil
}
