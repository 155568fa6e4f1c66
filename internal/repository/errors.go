package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate key")
	// ErrForeignKey reports a missing or still-referenced parent row.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrStillTeaching blocks moving a user off the teacher role while subjects reference it.
	ErrStillTeaching = errors.New("user still teaches subjects")
	// ErrTeacherNotFound reports a subject write naming an unknown user.
	ErrTeacherNotFound = errors.New("teacher not found")
	// ErrNotTeacher reports a subject write naming a user without the teacher role.
	ErrNotTeacher = errors.New("user is not a teacher")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// wrap annotates err with op and maps constraint violations to sentinel errors.
func wrap(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, ErrForeignKey)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func paginate(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize, (page - 1) * pageSize
}

// likePattern builds a case-insensitive substring pattern with LIKE wildcards escaped.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}
