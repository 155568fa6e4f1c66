package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sice-api/internal/models"
)

var studentCols = []string{"id", "first_name", "last_name", "second_last_name", "email", "created_at", "updated_at"}

func TestStudentSearchPrefersExactEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY (LOWER(email) = LOWER($1)) DESC, created_at ASC, id ASC LIMIT 1")).
		WithArgs("perez", "%perez%").
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow("s1", "Ana", "Perez", nil, "ana@example.com", now, now))

	student, err := repo.Search(context.Background(), "perez")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentSearchNoMatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM students WHERE").WillReturnRows(sqlmock.NewRows(studentCols))

	_, err := repo.Search(context.Background(), "nobody")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStudentSearchAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 50")).
		WithArgs("an", "%an%").
		WillReturnRows(sqlmock.NewRows(studentCols).
			AddRow("s1", "Ana", "Perez", nil, "ana@example.com", now, now).
			AddRow("s2", "Juan", "Lopez", "Diaz", "juan@example.com", now, now))

	students, err := repo.SearchAll(context.Background(), "an", 0)
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.NotNil(t, students[1].SecondLastName)
	assert.Equal(t, "Juan Lopez Diaz", students[1].DisplayName())
}

func TestCreateStudentDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Student{FirstName: "A", LastName: "B", Email: "a@example.com"})
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestUpdateStudentWritesOnlyProvidedColumns(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students SET last_name = $1, second_last_name = $2, updated_at = $3 WHERE id = $4 RETURNING")).
		WithArgs("Perez", "Ruiz", sqlmock.AnyArg(), "s1").
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow("s1", "Ana", "Perez", "Ruiz", "ana@example.com", now, now))

	last, second := "Perez", "Ruiz"
	student, err := repo.Update(context.Background(), "s1", models.StudentChanges{LastName: &last, SecondLastName: &second, SetSecondLastName: true})
	require.NoError(t, err)
	assert.Equal(t, "Ana", student.FirstName)
	assert.Equal(t, "Perez", student.LastName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStudentMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("UPDATE students SET first_name").WillReturnError(sql.ErrNoRows)

	first := "Eva"
	_, err := repo.Update(context.Background(), "missing", models.StudentChanges{FirstName: &first})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestDeleteStudentReturnsDeleted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM students WHERE id = $1 RETURNING")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(studentCols).AddRow("s1", "Ana", "Perez", nil, "ana@example.com", now, now))

	student, err := repo.Delete(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", student.FirstName)
}

func TestDeleteStudentMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("DELETE FROM students").WillReturnRows(sqlmock.NewRows(studentCols))

	_, err := repo.Delete(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListStudentSubjects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN enrollments e ON e.subject_id = s.id WHERE e.student_id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("sub1", "Algebra"))

	subjects, err := repo.ListSubjects(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []models.SubjectSummary{{ID: "sub1", Name: "Algebra"}}, subjects)
}

func TestListStudentsDefaultPage(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students ORDER BY last_name ASC, first_name ASC, id ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(studentCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	students, total, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Zero(t, total)
}
