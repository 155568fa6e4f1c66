package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sice-api/internal/models"
)

// ReportRepository runs the aggregate queries behind reports.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// TeacherLoad lists a teacher's subjects with enrolled counts in a single grouped query.
func (r *ReportRepository) TeacherLoad(ctx context.Context, teacherID string) ([]models.SubjectLoad, error) {
	const query = `SELECT s.id AS subject_id, s.name AS subject_name, COUNT(e.student_id) AS students_count
FROM subjects s LEFT JOIN enrollments e ON e.subject_id = s.id
WHERE s.teacher_id = $1
GROUP BY s.id, s.name
ORDER BY s.name ASC`
	loads := make([]models.SubjectLoad, 0)
	if err := r.db.SelectContext(ctx, &loads, query, teacherID); err != nil {
		return nil, fmt.Errorf("teacher load: %w", err)
	}
	return loads, nil
}

func (r *ReportRepository) CountStudents(ctx context.Context) (int, error) {
	return r.count(ctx, "count students", `SELECT COUNT(*) FROM students`)
}

func (r *ReportRepository) CountSubjects(ctx context.Context) (int, error) {
	return r.count(ctx, "count subjects", `SELECT COUNT(*) FROM subjects`)
}

// CountTeachers counts teacher-role users, active or not.
func (r *ReportRepository) CountTeachers(ctx context.Context) (int, error) {
	return r.count(ctx, "count teachers", `SELECT COUNT(*) FROM users WHERE role = $1`, models.RoleTeacher)
}

func (r *ReportRepository) count(ctx context.Context, op, query string, args ...interface{}) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}
