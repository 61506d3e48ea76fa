// Package validation runs the pre-flight checks that decide whether a
// request may reach the user service, and attributes the request to a user
// for auditing.
package validation

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/voucher-auth/internal/common"
	"github.com/dmitrijs2005/voucher-auth/internal/logging"
	"github.com/dmitrijs2005/voucher-auth/internal/server/models"
	ozzo "github.com/go-ozzo/ozzo-validation"
)

const (
	MsgEmailEmpty     = "Email cannot be empty."
	MsgUserIDEmpty    = "User ID cannot be empty."
	MsgUserExists     = "User already exists."
	MsgNotFound       = "User account not found."
	MsgDeleted        = "User account is deleted."
	MsgNotVerified    = "User account is not verified."
	MsgVerifyFirst    = "User account is not verified. Please verify the account first."
	MsgInternalLookup = "Unable to validate the user account."
)

// Strategy validates requests about a subject of kind T: by the subject's
// request payload, by email, or by id.
type Strategy[T any] interface {
	ValidateCreation(ctx context.Context, req T) models.ValidationResult
	ValidateEmail(ctx context.Context, email string) models.ValidationResult
	ValidateUserID(ctx context.Context, userID string) models.ValidationResult
	ValidateUpdating(ctx context.Context, userID string) models.ValidationResult
}

// UserFinder is the read side of the user store needed here.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// UserValidationStrategy is the Strategy for user requests.
type UserValidationStrategy struct {
	users  UserFinder
	logger logging.Logger
}

var _ Strategy[models.UserRequest] = (*UserValidationStrategy)(nil)

func NewUserValidationStrategy(users UserFinder, l logging.Logger) *UserValidationStrategy {
	return &UserValidationStrategy{users: users, logger: l.With("module", "validation")}
}

// ValidateCreation requires an email that is not registered yet.
func (s *UserValidationStrategy) ValidateCreation(ctx context.Context, req models.UserRequest) models.ValidationResult {
	if err := ozzo.Validate(strings.TrimSpace(req.Email), ozzo.Required); err != nil {
		return models.Invalid(common.ErrorBadRequest, MsgEmailEmpty, nil)
	}

	u, err := s.users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return models.Invalid(common.ErrorAlreadyExists, MsgUserExists, u)
	case errors.Is(err, common.ErrorNotFound):
		return models.ValidationResult{Valid: true, UserID: common.InvalidUserID, UserName: req.Username}
	default:
		return s.lookupFailed(ctx, err)
	}
}

// ValidateEmail accepts only an existing, active and verified account.
func (s *UserValidationStrategy) ValidateEmail(ctx context.Context, email string) models.ValidationResult {
	if err := ozzo.Validate(strings.TrimSpace(email), ozzo.Required); err != nil {
		return models.Invalid(common.ErrorBadRequest, MsgEmailEmpty, nil)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.Invalid(common.ErrorUnauthorized, MsgNotFound, nil)
		}
		return s.lookupFailed(ctx, err)
	}
	return checkStatus(u, MsgNotVerified)
}

// ValidateUserID accepts only an existing, active and verified account.
func (s *UserValidationStrategy) ValidateUserID(ctx context.Context, userID string) models.ValidationResult {
	u, res, ok := s.loadByID(ctx, userID, common.ErrorUnauthorized)
	if !ok {
		return res
	}
	return checkStatus(u, MsgVerifyFirst)
}

// ValidateUpdating accepts any existing account. Status is not checked so
// that an inactive account can be reactivated through an update.
func (s *UserValidationStrategy) ValidateUpdating(ctx context.Context, userID string) models.ValidationResult {
	u, res, ok := s.loadByID(ctx, userID, common.ErrorNotFound)
	if !ok {
		return res
	}
	return models.ValidResult(u)
}

func (s *UserValidationStrategy) loadByID(ctx context.Context, userID string, notFound error) (*models.User, models.ValidationResult, bool) {
	if err := ozzo.Validate(strings.TrimSpace(userID), ozzo.Required); err != nil {
		return nil, models.Invalid(common.ErrorBadRequest, MsgUserIDEmpty, nil), false
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Attributed to the id that was asked for.
			res := models.Invalid(notFound, MsgNotFound, nil)
			res.UserID = userID
			return nil, res, false
		}
		return nil, s.lookupFailed(ctx, err), false
	}
	return u, models.ValidationResult{}, true
}

func checkStatus(u *models.User, notVerifiedMsg string) models.ValidationResult {
	switch {
	case !u.Active:
		return models.Invalid(common.ErrorUnauthorized, MsgDeleted, u)
	case !u.Verified:
		return models.Invalid(common.ErrorUnauthorized, notVerifiedMsg, u)
	default:
		return models.ValidResult(u)
	}
}

func (s *UserValidationStrategy) lookupFailed(ctx context.Context, err error) models.ValidationResult {
	s.logger.Error(ctx, "user lookup failed", "error", err)
	return models.Invalid(common.ErrorInternal, MsgInternalLookup, nil)
}
