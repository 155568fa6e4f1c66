package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sice-api/internal/models"
)

// UnknownStudentsError lists student ids that do not exist.
type UnknownStudentsError struct {
	IDs []string
}

func (e *UnknownStudentsError) Error() string {
	return "unknown student ids: " + strings.Join(e.IDs, ", ")
}

// EnrollmentRepository manages the student/subject membership table.
type EnrollmentRepository struct {
	db *sqlx.DB
}

func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll adds the pair if missing and reports whether a row was inserted.
func (r *EnrollmentRepository) Enroll(ctx context.Context, subjectID, studentID string) (bool, error) {
	const query = `INSERT INTO enrollments (subject_id, student_id, enrolled_at) VALUES ($1, $2, $3) ON CONFLICT (subject_id, student_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, subjectID, studentID, time.Now().UTC())
	if err != nil {
		return false, wrap("enroll student", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enroll student: %w", err)
	}
	return n > 0, nil
}

// Remove deletes the pair and reports whether it existed.
func (r *EnrollmentRepository) Remove(ctx context.Context, subjectID, studentID string) (bool, error) {
	const query = `DELETE FROM enrollments WHERE subject_id = $1 AND student_id = $2`
	res, err := r.db.ExecContext(ctx, query, subjectID, studentID)
	if err != nil {
		return false, fmt.Errorf("remove enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove enrollment: %w", err)
	}
	return n > 0, nil
}

// ListStudents returns the roster of a subject.
func (r *EnrollmentRepository) ListStudents(ctx context.Context, subjectID string) ([]models.Student, error) {
	const query = `SELECT st.id, st.first_name, st.last_name, st.second_last_name, st.email, st.created_at, st.updated_at
FROM students st JOIN enrollments e ON e.student_id = st.id
WHERE e.subject_id = $1 ORDER BY st.last_name ASC, st.first_name ASC, st.id ASC`
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, subjectID); err != nil {
		return nil, fmt.Errorf("list subject students: %w", err)
	}
	return students, nil
}

// Replace makes studentIDs the exact roster of the subject in one transaction.
// The subject row is locked so concurrent replacements serialise. A missing subject
// yields sql.ErrNoRows; unknown students yield *UnknownStudentsError and change nothing.
func (r *EnrollmentRepository) Replace(ctx context.Context, subjectID string, studentIDs []string) (result *models.EnrollmentChange, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace enrollment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM subjects WHERE id = $1 FOR UPDATE`, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock subject: %w", err)
	}

	wanted := uniqueSorted(studentIDs)
	if len(wanted) > 0 {
		var found []string
		if err = tx.SelectContext(ctx, &found, `SELECT id FROM students WHERE id = ANY($1) FOR KEY SHARE`, pq.Array(wanted)); err != nil {
			return nil, fmt.Errorf("check students: %w", err)
		}
		if missing := difference(wanted, found); len(missing) > 0 {
			err = &UnknownStudentsError{IDs: missing}
			return nil, err
		}
	}

	var current []string
	if err = tx.SelectContext(ctx, &current, `SELECT student_id FROM enrollments WHERE subject_id = $1`, subjectID); err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}

	change := &models.EnrollmentChange{
		Added:   difference(wanted, current),
		Removed: difference(uniqueSorted(current), wanted),
	}

	if len(change.Removed) > 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM enrollments WHERE subject_id = $1 AND student_id = ANY($2)`, subjectID, pq.Array(change.Removed)); err != nil {
			return nil, fmt.Errorf("remove enrollments: %w", err)
		}
	}
	now := time.Now().UTC()
	for _, studentID := range change.Added {
		if _, err = tx.ExecContext(ctx, `INSERT INTO enrollments (subject_id, student_id, enrolled_at) VALUES ($1, $2, $3) ON CONFLICT (subject_id, student_id) DO NOTHING`, subjectID, studentID, now); err != nil {
			return nil, wrap("add enrollment", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace enrollment: %w", err)
	}
	return change, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// difference returns the members of a that are not in b, preserving a's order.
func difference(a, b []string) []string {
	exclude := make(map[string]struct{}, len(b))
	for _, id := range b {
		exclude[id] = struct{}{}
	}
	out := make([]string, 0)
	for _, id := range a {
		if _, ok := exclude[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
