package usecase

import (
	"context"

	"cv-platform-backend/internal/domain"
	"cv-platform-backend/pkg/apperror"
	"cv-platform-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type cvUsecase struct {
	validate *validator.Validate
}

func NewCVUsecase(validate *validator.Validate) domain.CVUsecase {
	return &cvUsecase{validate: validate}
}

func (u *cvUsecase) Validate(ctx context.Context, cv *domain.CV) (*domain.CV, error) {
	if cv == nil {
		return nil, apperror.Validation([]string{"cv: is required"})
	}

	// Ownership comes from the token, never from the body.
	if user, ok := domain.AuthUserFromContext(ctx); ok {
		cv.UserID = user.ID
	}

	cv.Normalize()

	if err := u.validate.StructCtx(ctx, cv); err != nil {
		return nil, apperror.Validation(validation.FormatValidationErrors(err))
	}
	return cv, nil
}
