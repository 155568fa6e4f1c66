package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sice-api/internal/models"
	appErrors "github.com/noah-isme/sice-api/pkg/errors"
)

func internalError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// validationError turns validator output into a readable VALIDATION_ERROR.
func validationError(err error, payload string) *appErrors.Error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+payload+" payload")
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, describeField(fe))
	}
	message := fmt.Sprintf("invalid %s payload: %s", payload, strings.Join(details, "; "))
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func describeField(fe validator.FieldError) string {
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "nefield":
		return field + " must differ from " + toSnake(fe.Param())
	default:
		return field + " is invalid"
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ensureSubjectAccess allows admins and the teacher who owns the subject.
func ensureSubjectAccess(actor models.Actor, subject *models.Subject) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == models.RoleTeacher && subject.TeacherID == actor.ID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this subject")
}

// statsInvalidator drops cached aggregate counters after writes.
type statsInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

const statsCachePattern = "stats:*"

func invalidateStats(ctx context.Context, cache statsInvalidator) {
	if cache == nil {
		return
	}
	// CacheService already logs failures; a stale counter expires with its TTL.
	_ = cache.Invalidate(ctx, statsCachePattern)
}
