package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sice-api/internal/models"
)

func TestTeacherLoadGroupsEnrollments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN enrollments e ON e.subject_id = s.id")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"subject_id", "subject_name", "students_count"}).
			AddRow("sub1", "Algebra", 3).
			AddRow("sub2", "History", 0))

	loads, err := repo.TeacherLoad(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []models.SubjectLoad{
		{SubjectID: "sub1", SubjectName: "Algebra", StudentsCount: 3},
		{SubjectID: "sub2", SubjectName: "History", StudentsCount: 0},
	}, loads)
}

func TestCountTeachers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role = $1")).
		WithArgs("teacher").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	total, err := repo.CountTeachers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}
