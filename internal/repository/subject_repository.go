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

const subjectColumns = `id, name, teacher_id, created_at, updated_at`

// SubjectRepository manages subject persistence.
type SubjectRepository struct {
	db *sqlx.DB
}

func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	baseQuery := `FROM subjects WHERE 1=1`
	var conditions []string
	var args []interface{}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, likePattern(filter.Search))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	_, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC, id ASC LIMIT %d OFFSET %d", subjectColumns, baseQuery, pageSize, offset)

	subjects := make([]models.Subject, 0)
	if err := r.db.SelectContext(ctx, &subjects, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject by id: %w", err)
	}
	return &subject, nil
}

// FindByName looks a subject up by name, ignoring case.
func (r *SubjectRepository) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE LOWER(name) = LOWER($1)`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, strings.TrimSpace(name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject by name: %w", err)
	}
	return &subject, nil
}

// Create inserts the subject after share-locking its teacher. An unknown teacher yields
// ErrTeacherNotFound and a user without the teacher role ErrNotTeacher.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	return inTx(ctx, r.db, "create subject", func(tx *sqlx.Tx) error {
		if err := lockTeacher(ctx, tx, subject.TeacherID); err != nil {
			return err
		}
		const query = `INSERT INTO subjects (id, name, teacher_id, created_at, updated_at) VALUES (:id, :name, :teacher_id, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, subject); err != nil {
			return wrap("create subject", err)
		}
		return nil
	})
}

// Update writes only the columns set in changes and returns the stored row. A new
// teacher is checked and share-locked in the same transaction.
func (r *SubjectRepository) Update(ctx context.Context, id string, changes models.SubjectChanges) (*models.Subject, error) {
	var updated models.Subject
	err := inTx(ctx, r.db, "update subject", func(tx *sqlx.Tx) error {
		var set assignments
		if changes.Name != nil {
			set.set("name", *changes.Name)
		}
		if changes.TeacherID != nil {
			if err := lockTeacher(ctx, tx, *changes.TeacherID); err != nil {
				return err
			}
			set.set("teacher_id", *changes.TeacherID)
		}
		if set.empty() {
			err := tx.GetContext(ctx, &updated, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("find subject by id: %w", err)
			}
			return err
		}
		set.set("updated_at", time.Now().UTC())

		query, args := set.update("subjects", subjectColumns, id)
		if err := tx.GetContext(ctx, &updated, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return wrap("update subject", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the subject together with its enrollments and grades.
func (r *SubjectRepository) Delete(ctx context.Context, id string) (*models.Subject, error) {
	query := `DELETE FROM subjects WHERE id = $1 RETURNING ` + subjectColumns
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("delete subject: %w", err)
	}
	return &subject, nil
}
