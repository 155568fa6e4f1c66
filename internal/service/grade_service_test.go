package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sice-api/internal/models"
)

type gradeFixture struct {
	svc    *GradeService
	grades *mockGradeRepo
}

func newGradeFixture() gradeFixture {
	students := newMockStudentRepo(
		models.Student{ID: "s1", FirstName: "Ana", LastName: "Lopez", Email: "ana@school.test"},
		models.Student{ID: "s2", FirstName: "Luis", LastName: "Anaya", Email: "luis@school.test"},
	)
	subjects := newMockSubjectRepo(
		models.Subject{ID: "math", Name: "Math", TeacherID: "teacher-1"},
		models.Subject{ID: "art", Name: "Art", TeacherID: "teacher-2"},
	)
	grades := newMockGradeRepo(subjects, students)
	svc := NewGradeService(grades, students, subjects, nil, zap.NewNop())
	return gradeFixture{svc: svc, grades: grades}
}

func TestGradeServiceCreate(t *testing.T) {
	f := newGradeFixture()
	ctx := context.Background()

	grade, err := f.svc.Create(ctx, teacherActor, models.CreateGradeRequest{StudentID: "s1", SubjectID: "math", Score: float(95.5)})
	require.NoError(t, err)
	assert.Equal(t, 95.5, grade.Score)
	assert.NotEmpty(t, grade.ID)

	_, err = f.svc.Create(ctx, teacherActor, models.CreateGradeRequest{StudentID: "s1", SubjectID: "art", Score: float(80)})
	assert.Equal(t, "FORBIDDEN", errCode(err))

	_, err = f.svc.Create(ctx, adminActor, models.CreateGradeRequest{StudentID: "ghost", SubjectID: "math", Score: float(80)})
	assert.Equal(t, "NOT_FOUND", errCode(err))

	_, err = f.svc.Create(ctx, adminActor, models.CreateGradeRequest{StudentID: "s1", SubjectID: "ghost", Score: float(80)})
	assert.Equal(t, "NOT_FOUND", errCode(err))

	_, err = f.svc.Create(ctx, adminActor, models.CreateGradeRequest{StudentID: "s1", SubjectID: "math"})
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))
}

func TestGradeServiceCreateAcceptsAnyScoreWithoutEnrollment(t *testing.T) {
	f := newGradeFixture()
	ctx := context.Background()

	grade, err := f.svc.Create(ctx, adminActor, models.CreateGradeRequest{StudentID: "s2", SubjectID: "math", Score: float(85)})
	require.NoError(t, err)
	assert.Equal(t, "s2", grade.StudentID)

	grade, err = f.svc.Create(ctx, teacherActor, models.CreateGradeRequest{StudentID: "s1", SubjectID: "math", Score: float(105)})
	require.NoError(t, err)
	assert.Equal(t, 105.0, grade.Score)

	updated, err := f.svc.Update(ctx, teacherActor, grade.ID, models.UpdateGradeRequest{Score: float(-2.5)})
	require.NoError(t, err)
	assert.Equal(t, -2.5, updated.Score)
}

func TestGradeServiceListScopesTeachers(t *testing.T) {
	f := newGradeFixture()
	ctx := context.Background()
	_, err := f.svc.Create(ctx, adminActor, models.CreateGradeRequest{StudentID: "s1", SubjectID: "math", Score: float(90)})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, adminActor, models.CreateGradeRequest{StudentID: "s1", SubjectID: "art", Score: float(70)})
	require.NoError(t, err)

	all, page, err := f.svc.List(ctx, adminActor, models.GradeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, page.TotalCount)

	own, _, err := f.svc.List(ctx, teacherActor, models.GradeFilter{TeacherID: "teacher-2"})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "math", own[0].SubjectID)
}

func TestGradeServiceUpdateAndDelete(t *testing.T) {
	f := newGradeFixture()
	ctx := context.Background()
	grade, err := f.svc.Create(ctx, teacherActor, models.CreateGradeRequest{StudentID: "s1", SubjectID: "math", Score: float(60)})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, teacherActor, grade.ID, models.UpdateGradeRequest{Score: float(75)})
	require.NoError(t, err)
	assert.Equal(t, 75.0, updated.Score)

	_, err = f.svc.Update(ctx, otherTeacher, grade.ID, models.UpdateGradeRequest{Score: float(10)})
	assert.Equal(t, "FORBIDDEN", errCode(err))

	_, err = f.svc.Update(ctx, teacherActor, grade.ID, models.UpdateGradeRequest{})
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))

	deleted, err := f.svc.Delete(ctx, teacherActor, grade.ID)
	require.NoError(t, err)
	assert.Equal(t, grade.ID, deleted.ID)

	_, err = f.svc.Get(ctx, adminActor, grade.ID)
	assert.Equal(t, "NOT_FOUND", errCode(err))
}

func TestGradeServiceListByStudent(t *testing.T) {
	f := newGradeFixture()
	ctx := context.Background()
	_, err := f.svc.Create(ctx, adminActor, models.CreateGradeRequest{StudentID: "s1", SubjectID: "math", Score: float(90)})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, adminActor, models.CreateGradeRequest{StudentID: "s1", SubjectID: "art", Score: float(70)})
	require.NoError(t, err)

	grades, err := f.svc.ListByStudent(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.Equal(t, "Art", grades[0].SubjectName)

	_, err = f.svc.ListByStudent(ctx, "ghost")
	assert.Equal(t, "NOT_FOUND", errCode(err))
}
