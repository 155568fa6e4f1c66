package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sice-api/internal/models"
)

const profileColumns = `id, user_id, description, photo_path, created_at, updated_at`

// TeacherProfileRepository stores the one-to-one teacher profile.
type TeacherProfileRepository struct {
	db *sqlx.DB
}

func NewTeacherProfileRepository(db *sqlx.DB) *TeacherProfileRepository {
	return &TeacherProfileRepository{db: db}
}

func (r *TeacherProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM teacher_profiles WHERE user_id = $1`
	var profile models.TeacherProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher profile: %w", err)
	}
	return &profile, nil
}

// Upsert creates the profile on first write and updates it afterwards.
func (r *TeacherProfileRepository) Upsert(ctx context.Context, profile *models.TeacherProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO teacher_profiles (id, user_id, description, photo_path, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (user_id) DO UPDATE SET description = EXCLUDED.description, photo_path = EXCLUDED.photo_path, updated_at = EXCLUDED.updated_at
RETURNING ` + profileColumns
	if err := r.db.GetContext(ctx, profile, query, profile.ID, profile.UserID, profile.Description, profile.PhotoPath, now); err != nil {
		return wrap("upsert teacher profile", err)
	}
	return nil
}

// PhotoPaths returns every photo path still referenced by a profile.
func (r *TeacherProfileRepository) PhotoPaths(ctx context.Context) ([]string, error) {
	const query = `SELECT photo_path FROM teacher_profiles WHERE photo_path IS NOT NULL`
	paths := make([]string, 0)
	if err := r.db.SelectContext(ctx, &paths, query); err != nil {
		return nil, fmt.Errorf("list photo paths: %w", err)
	}
	return paths, nil
}
