package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sice-api/internal/models"
	"github.com/noah-isme/sice-api/internal/repository"
)

type subjectFixture struct {
	svc         *SubjectService
	subjects    *mockSubjectRepo
	students    *mockStudentRepo
	enrollments *mockEnrollmentRepo
}

func newSubjectFixture() subjectFixture {
	users := newMockUserRepo(
		models.User{ID: "admin-1", Role: models.RoleAdmin, Active: true},
		models.User{ID: "teacher-1", Role: models.RoleTeacher, Active: true},
		models.User{ID: "teacher-2", Role: models.RoleTeacher, Active: true},
	)
	students := newMockStudentRepo(
		models.Student{ID: "s1", FirstName: "Ana", LastName: "Lopez", Email: "ana@school.test"},
		models.Student{ID: "s2", FirstName: "Luis", LastName: "Anaya", Email: "luis@school.test"},
		models.Student{ID: "s3", FirstName: "Eva", LastName: "Diaz", Email: "eva@school.test"},
	)
	subjects := newMockSubjectRepo(models.Subject{ID: "math", Name: "Math", TeacherID: "teacher-1"})
	subjects.users = users
	enrollments := newMockEnrollmentRepo(students)
	svc := NewSubjectService(subjects, enrollments, students, nil, zap.NewNop(), nil)
	return subjectFixture{svc: svc, subjects: subjects, students: students, enrollments: enrollments}
}

func TestSubjectServiceCreateChecksTeacher(t *testing.T) {
	f := newSubjectFixture()
	ctx := context.Background()

	subject, err := f.svc.Create(ctx, models.CreateSubjectRequest{Name: " History ", TeacherID: "teacher-2"})
	require.NoError(t, err)
	assert.Equal(t, "History", subject.Name)

	_, err = f.svc.Create(ctx, models.CreateSubjectRequest{Name: "Art", TeacherID: "ghost"})
	assert.Equal(t, "NOT_FOUND", errCode(err))

	_, err = f.svc.Create(ctx, models.CreateSubjectRequest{Name: "Art", TeacherID: "admin-1"})
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))

	_, err = f.svc.Create(ctx, models.CreateSubjectRequest{Name: "MATH", TeacherID: "teacher-1"})
	assert.Equal(t, "CONFLICT", errCode(err))

	f.subjects.createErr = repository.ErrDuplicate
	_, err = f.svc.Create(ctx, models.CreateSubjectRequest{Name: "Chemistry", TeacherID: "teacher-1"})
	assert.Equal(t, "CONFLICT", errCode(err))
}

func TestSubjectServiceUpdate(t *testing.T) {
	f := newSubjectFixture()
	ctx := context.Background()

	subject, err := f.svc.Update(ctx, "math", models.UpdateSubjectRequest{TeacherID: str("teacher-2")})
	require.NoError(t, err)
	assert.Equal(t, "teacher-2", subject.TeacherID)
	assert.Equal(t, "Math", subject.Name)

	_, err = f.svc.Update(ctx, "math", models.UpdateSubjectRequest{TeacherID: str("admin-1")})
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))

	_, err = f.svc.Update(ctx, "math", models.UpdateSubjectRequest{TeacherID: str("ghost")})
	assert.Equal(t, "NOT_FOUND", errCode(err))

	subject, err = f.svc.Update(ctx, "math", models.UpdateSubjectRequest{Name: str(" Algebra ")})
	require.NoError(t, err)
	assert.Equal(t, "Algebra", subject.Name)
	assert.Equal(t, "teacher-2", subject.TeacherID)

	_, err = f.svc.Update(ctx, "missing", models.UpdateSubjectRequest{Name: str("X")})
	assert.Equal(t, "NOT_FOUND", errCode(err))
}

func TestSubjectServiceReplaceStudents(t *testing.T) {
	f := newSubjectFixture()
	ctx := context.Background()
	f.enrollments.enrolled["math"] = map[string]bool{"s1": true, "s2": true}

	roster, change, err := f.svc.ReplaceStudents(ctx, teacherActor, "math", models.ReplaceEnrollmentRequest{StudentIDs: []string{"s2", "s3", "s3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3"}, change.Added)
	assert.Equal(t, []string{"s1"}, change.Removed)
	require.Len(t, roster, 2)
	assert.Equal(t, "s2", roster[0].ID)
	assert.Equal(t, "s3", roster[1].ID)

	roster, _, err = f.svc.ReplaceStudents(ctx, adminActor, "math", models.ReplaceEnrollmentRequest{StudentIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, roster)
}

func TestSubjectServiceReplaceStudentsRejectsUnknownIDs(t *testing.T) {
	f := newSubjectFixture()
	f.enrollments.enrolled["math"] = map[string]bool{"s1": true}

	_, _, err := f.svc.ReplaceStudents(context.Background(), adminActor, "math", models.ReplaceEnrollmentRequest{StudentIDs: []string{"s2", "nobody"}})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))
	assert.Contains(t, err.Error(), "nobody")
	assert.True(t, f.enrollments.enrolled["math"]["s1"])

	_, _, err = f.svc.ReplaceStudents(context.Background(), otherTeacher, "math", models.ReplaceEnrollmentRequest{StudentIDs: []string{"s2"}})
	assert.Equal(t, "FORBIDDEN", errCode(err))
}

func TestSubjectServiceRemoveStudent(t *testing.T) {
	f := newSubjectFixture()
	ctx := context.Background()
	f.enrollments.enrolled["math"] = map[string]bool{"s1": true}

	require.NoError(t, f.svc.RemoveStudent(ctx, teacherActor, "math", "s1"))

	err := f.svc.RemoveStudent(ctx, teacherActor, "math", "s1")
	assert.Equal(t, "NOT_ENROLLED", errCode(err))

	err = f.svc.RemoveStudent(ctx, teacherActor, "math", "ghost")
	assert.Equal(t, "NOT_FOUND", errCode(err))

	err = f.svc.RemoveStudent(ctx, teacherActor, "ghost", "s1")
	assert.Equal(t, "NOT_FOUND", errCode(err))
}

func TestSubjectServiceRosterOwnership(t *testing.T) {
	f := newSubjectFixture()
	f.enrollments.enrolled["math"] = map[string]bool{"s3": true}

	roster, err := f.svc.Roster(context.Background(), teacherActor, "math")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Eva", roster[0].FirstName)

	_, err = f.svc.Roster(context.Background(), otherTeacher, "math")
	assert.Equal(t, "FORBIDDEN", errCode(err))
}

func TestSubjectServiceDelete(t *testing.T) {
	f := newSubjectFixture()
	deleted, err := f.svc.Delete(context.Background(), "math")
	require.NoError(t, err)
	assert.Equal(t, "Math", deleted.Name)

	_, err = f.svc.Get(context.Background(), "math")
	assert.Equal(t, "NOT_FOUND", errCode(err))
}
