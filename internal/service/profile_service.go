package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sice-api/internal/models"
	appErrors "github.com/noah-isme/sice-api/pkg/errors"
	"github.com/noah-isme/sice-api/pkg/jobs"
	"github.com/noah-isme/sice-api/pkg/storage"
)

const (
	photoDir            = "photos"
	photoCleanupJobType = "photo.cleanup"
)

type profileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.TeacherProfile, error)
	Upsert(ctx context.Context, profile *models.TeacherProfile) error
	PhotoPaths(ctx context.Context) ([]string, error)
}

type photoStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (io.ReadCloser, error)
	Delete(name string) error
	ListOlderThan(dir string, age time.Duration) ([]string, error)
}

type photoSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
	Parse(token string) (string, string, error)
}

type cleanupEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ProfileServiceConfig bounds profile photo uploads.
type ProfileServiceConfig struct {
	MaxPhotoBytes int64
	// PhotoURLBase prefixes signed photo tokens, e.g. "/api/v1/files/photos/".
	PhotoURLBase string
}

// ProfileService manages teacher profiles and their photos.
type ProfileService struct {
	repo      profileRepository
	users     userLookup
	files     photoStorage
	signer    photoSigner
	cleanup   cleanupEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	cfg       ProfileServiceConfig
	logger    *zap.Logger
}

func NewProfileService(repo profileRepository, users userLookup, files photoStorage, signer photoSigner, metrics *MetricsService, validate *validator.Validate, cfg ProfileServiceConfig, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPhotoBytes <= 0 {
		cfg.MaxPhotoBytes = 5 << 20
	}
	if cfg.PhotoURLBase == "" {
		cfg.PhotoURLBase = "/files/photos/"
	}
	return &ProfileService{repo: repo, users: users, files: files, signer: signer, metrics: metrics, validator: validate, cfg: cfg, logger: logger}
}

// UseCleanupQueue routes stale photo removal through a background queue.
// Without one, stale files are removed inline.
func (s *ProfileService) UseCleanupQueue(q cleanupEnqueuer) {
	s.cleanup = q
}

// MaxPhotoBytes is the largest accepted photo upload.
func (s *ProfileService) MaxPhotoBytes() int64 {
	return s.cfg.MaxPhotoBytes
}

// Get returns the teacher's profile, empty when it was never written.
func (s *ProfileService) Get(ctx context.Context, actor models.Actor) (*models.ProfileView, error) {
	user, err := s.teacher(ctx, actor)
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.FindByUserID(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, internalError(err, "failed to load profile")
		}
		profile = &models.TeacherProfile{UserID: user.ID}
	}
	return s.view(user, profile)
}

// Update applies the optional description and photo. The new photo is stored before the
// record is written and removed again if the write fails; the replaced photo is removed
// in the background.
func (s *ProfileService) Update(ctx context.Context, actor models.Actor, req models.ProfileUpdate) (*models.ProfileView, error) {
	user, err := s.teacher(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "profile")
	}

	var ext string
	if req.Image != nil {
		if ext, err = s.checkImage(req.Image); err != nil {
			return nil, err
		}
	}

	profile, err := s.repo.FindByUserID(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, internalError(err, "failed to load profile")
		}
		profile = &models.TeacherProfile{UserID: user.ID}
	}
	var oldPhoto string
	if profile.PhotoPath != nil {
		oldPhoto = *profile.PhotoPath
	}

	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		profile.Description = &desc
	}

	var newPhoto string
	if req.Image != nil {
		name := photoDir + "/" + uuid.NewString() + ext
		if newPhoto, err = s.files.Save(name, req.Image); err != nil {
			return nil, internalError(err, "failed to store photo")
		}
		profile.PhotoPath = &newPhoto
	}

	if err := s.repo.Upsert(ctx, profile); err != nil {
		if newPhoto != "" {
			if delErr := s.files.Delete(newPhoto); delErr != nil {
				s.logger.Warn("failed to remove orphaned photo", zap.String("path", newPhoto), zap.Error(delErr))
			}
		}
		return nil, internalError(err, "failed to save profile")
	}

	if newPhoto != "" && oldPhoto != "" && oldPhoto != newPhoto {
		s.scheduleRemoval(ctx, oldPhoto)
	}
	return s.view(user, profile)
}

// OpenPhoto resolves a signed photo token to the stored file.
func (s *ProfileService) OpenPhoto(ctx context.Context, token string) (io.ReadCloser, string, error) {
	ownerID, path, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "photo link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
	}
	profile, err := s.repo.FindByUserID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
		}
		return nil, "", internalError(err, "failed to load profile")
	}
	if profile.PhotoPath == nil || *profile.PhotoPath != path {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
	}
	file, err := s.files.Open(path)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
	}
	return file, contentTypeFor(path), nil
}

// HandleCleanup is the job handler removing a replaced photo.
func (s *ProfileService) HandleCleanup(_ context.Context, job jobs.Job) error {
	if job.Type != photoCleanupJobType {
		return nil
	}
	if err := s.files.Delete(job.Payload); err != nil {
		s.metrics.RecordPhotoCleanup(CleanupFailed)
		return err
	}
	s.metrics.RecordPhotoCleanup(CleanupRemoved)
	return nil
}

// SweepOrphans removes photo files older than age that no profile references.
// It returns how many files were removed.
func (s *ProfileService) SweepOrphans(ctx context.Context, age time.Duration) (int, error) {
	candidates, err := s.files.ListOlderThan(photoDir, age)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}
	referenced, err := s.repo.PhotoPaths(ctx)
	if err != nil {
		return 0, err
	}
	keep := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		keep[p] = struct{}{}
	}
	removed := 0
	for _, name := range candidates {
		if _, ok := keep[name]; ok {
			continue
		}
		if err := s.files.Delete(name); err != nil {
			s.logger.Warn("failed to sweep orphaned photo", zap.String("path", name), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *ProfileService) scheduleRemoval(ctx context.Context, path string) {
	job := jobs.Job{ID: uuid.NewString(), Type: photoCleanupJobType, Payload: path}
	if s.cleanup != nil {
		err := s.cleanup.Enqueue(job)
		if err == nil {
			return
		}
		s.logger.Warn("photo cleanup queue unavailable, removing inline", zap.Error(err))
	}
	if err := s.HandleCleanup(ctx, job); err != nil {
		s.logger.Warn("failed to remove replaced photo", zap.String("path", path), zap.Error(err))
	}
}

// checkImage enforces the size limit and that data decodes as an image, returning the
// file extension to store it under.
func (s *ProfileService) checkImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "image is empty")
	}
	if int64(len(data)) > s.cfg.MaxPhotoBytes {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, "image exceeds the maximum allowed size")
	}
	if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is not an image")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "image could not be decoded")
	}
	switch format {
	case "jpeg":
		return ".jpg", nil
	case "png":
		return ".png", nil
	case "gif":
		return ".gif", nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported image format")
	}
}

func (s *ProfileService) teacher(ctx context.Context, actor models.Actor) (*models.User, error) {
	if actor.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers have a profile")
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to load user")
	}
	return user, nil
}

func (s *ProfileService) view(user *models.User, profile *models.TeacherProfile) (*models.ProfileView, error) {
	view := &models.ProfileView{
		UserID:      user.ID,
		FullName:    user.FullName,
		Email:       user.Email,
		Description: profile.Description,
	}
	if profile.PhotoPath != nil && *profile.PhotoPath != "" {
		token, expires, err := s.signer.Generate(user.ID, *profile.PhotoPath)
		if err != nil {
			return nil, internalError(err, "failed to sign photo url")
		}
		url := s.cfg.PhotoURLBase + token
		view.PhotoURL = &url
		view.PhotoExpiresAt = &expires
	}
	return view, nil
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
