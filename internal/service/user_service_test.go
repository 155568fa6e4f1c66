package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sice-api/internal/models"
	"github.com/noah-isme/sice-api/internal/repository"
)

func newUserFixture() (*UserService, *mockUserRepo, *mockCacheRepo) {
	repo := newMockUserRepo(
		models.User{ID: "admin-1", Email: "admin@school.test", FullName: "Admin", Role: models.RoleAdmin, Active: true},
		models.User{ID: "teacher-1", Email: "t1@school.test", FullName: "Teacher One", Role: models.RoleTeacher, Active: true},
	)
	cache := newMockCacheRepo()
	svc := NewUserService(repo, NewPasswordHasher(4), nil, zap.NewNop(), NewCacheService(cache, nil, 0, nil))
	return svc, repo, cache
}

func TestUserServiceCreate(t *testing.T) {
	svc, repo, cache := newUserFixture()
	ctx := context.Background()

	user, err := svc.Create(ctx, models.CreateUserRequest{Email: " new@school.test ", Password: "password123", FullName: "New", Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, "new@school.test", user.Email)
	assert.True(t, user.Active)
	assert.NotEqual(t, "password123", repo.users[user.ID].PasswordHash)
	assert.Equal(t, []string{"stats:*"}, cache.invalidated)

	_, err = svc.Create(ctx, models.CreateUserRequest{Email: "T1@school.test", Password: "password123", FullName: "Dup", Role: models.RoleTeacher})
	assert.Equal(t, "CONFLICT", errCode(err))

	_, err = svc.Create(ctx, models.CreateUserRequest{Email: "x@school.test", Password: "short", FullName: "X", Role: "janitor"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))
	assert.Contains(t, err.Error(), "password must be at least 8")
}

func TestUserServiceGetRequiresSelfOrAdmin(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.Get(ctx, teacherActor, "admin-1")
	assert.Equal(t, "FORBIDDEN", errCode(err))

	user, err := svc.Get(ctx, teacherActor, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "Teacher One", user.FullName)

	_, err = svc.Get(ctx, adminActor, "missing")
	assert.Equal(t, "NOT_FOUND", errCode(err))
}

func TestUserServiceUpdate(t *testing.T) {
	svc, repo, _ := newUserFixture()
	ctx := context.Background()

	user, err := svc.Update(ctx, teacherActor, "teacher-1", models.UpdateUserRequest{FullName: str("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.FullName)

	admin := models.RoleAdmin
	_, err = svc.Update(ctx, teacherActor, "teacher-1", models.UpdateUserRequest{Role: &admin})
	assert.Equal(t, "FORBIDDEN", errCode(err))

	_, err = svc.Update(ctx, teacherActor, "admin-1", models.UpdateUserRequest{FullName: str("Nope")})
	assert.Equal(t, "FORBIDDEN", errCode(err))

	_, err = svc.Update(ctx, adminActor, "teacher-1", models.UpdateUserRequest{Email: str("admin@school.test")})
	assert.Equal(t, "CONFLICT", errCode(err))

	repo.subjectCounts["teacher-1"] = 2
	_, err = svc.Update(ctx, adminActor, "teacher-1", models.UpdateUserRequest{Role: &admin})
	assert.Equal(t, "CONFLICT", errCode(err))

	inactive := false
	user, err = svc.Update(ctx, adminActor, "teacher-1", models.UpdateUserRequest{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, user.Active)
}

// racingUserRepo runs onFind once, between the service's read and its write.
type racingUserRepo struct {
	*mockUserRepo
	onFind func()
}

func (r *racingUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := r.mockUserRepo.FindByID(ctx, id)
	if r.onFind != nil {
		hook := r.onFind
		r.onFind = nil
		hook()
	}
	return user, err
}

func TestUserServiceUpdateKeepsConcurrentPasswordChange(t *testing.T) {
	hasher := NewPasswordHasher(4)
	digest, err := hasher.Hash("oldpassword1")
	require.NoError(t, err)

	base := newMockUserRepo(models.User{ID: "teacher-1", Email: "t1@school.test", PasswordHash: digest, FullName: "Teacher One", Role: models.RoleTeacher, Active: true})
	repo := &racingUserRepo{mockUserRepo: base}
	auth := NewAuthService(repo, NewTokenService(TokenConfig{Secret: "s", Expiry: time.Hour}), hasher, nil, zap.NewNop())
	users := NewUserService(repo, hasher, nil, zap.NewNop(), nil)

	ctx := context.Background()
	repo.onFind = func() {
		require.NoError(t, auth.ChangePassword(ctx, "teacher-1", models.ChangePasswordRequest{OldPassword: "oldpassword1", NewPassword: "newpassword1"}))
	}

	user, err := users.Update(ctx, teacherActor, "teacher-1", models.UpdateUserRequest{FullName: str("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.FullName)

	stored := base.users["teacher-1"]
	assert.True(t, hasher.Verify("newpassword1", stored.PasswordHash))
	assert.False(t, hasher.Verify("oldpassword1", stored.PasswordHash))
}

func TestUserServiceDelete(t *testing.T) {
	svc, repo, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.Delete(ctx, adminActor, "admin-1")
	assert.Equal(t, "CONFLICT", errCode(err))

	repo.subjectCounts["teacher-1"] = 1
	_, err = svc.Delete(ctx, adminActor, "teacher-1")
	assert.Equal(t, "CONFLICT", errCode(err))

	repo.subjectCounts["teacher-1"] = 0
	repo.deleteErr = repository.ErrForeignKey
	_, err = svc.Delete(ctx, adminActor, "teacher-1")
	assert.Equal(t, "CONFLICT", errCode(err))

	repo.deleteErr = nil
	deleted, err := svc.Delete(ctx, adminActor, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", deleted.ID)
	assert.NotContains(t, repo.users, "teacher-1")
}

func TestUserServiceListRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newUserFixture()
	bogus := models.UserRole("student")
	_, _, err := svc.List(context.Background(), models.UserFilter{Role: &bogus})
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))

	teacher := models.RoleTeacher
	users, page, err := svc.List(context.Background(), models.UserFilter{Role: &teacher})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 20, page.PageSize)
}
