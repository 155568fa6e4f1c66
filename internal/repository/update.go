package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sice-api/internal/models"
)

// assignments collects the "column = $n" pairs of a partial UPDATE.
type assignments struct {
	columns []string
	args    []interface{}
}

func (a *assignments) set(column string, value interface{}) {
	a.args = append(a.args, value)
	a.columns = append(a.columns, fmt.Sprintf("%s = $%d", column, len(a.args)))
}

func (a *assignments) empty() bool {
	return len(a.columns) == 0
}

// update renders UPDATE table SET ... WHERE id = $n RETURNING returning.
func (a *assignments) update(table, returning, id string) (string, []interface{}) {
	args := append(append([]interface{}{}, a.args...), id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s", table, strings.Join(a.columns, ", "), len(args), returning)
	return query, args
}

// inTx runs fn inside a transaction, committing when it returns nil.
func inTx(ctx context.Context, db *sqlx.DB, op string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}

// lockTeacher share-locks the user row so a concurrent role change waits for the
// subject write, and checks that the user holds the teacher role.
func lockTeacher(ctx context.Context, tx *sqlx.Tx, userID string) error {
	var role models.UserRole
	err := tx.GetContext(ctx, &role, `SELECT role FROM users WHERE id = $1 FOR SHARE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeacherNotFound
		}
		return fmt.Errorf("lock teacher: %w", err)
	}
	if role != models.RoleTeacher {
		return ErrNotTeacher
	}
	return nil
}
