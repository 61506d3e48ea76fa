// Package users is the User Store: persistence of accounts keyed by id with
// a unique email.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/voucher-auth/internal/server/models"
)

// Repository reads and writes users. Lookups that match nothing return
// common.ErrorNotFound; a duplicate email on insert returns
// common.ErrorAlreadyExists.
type Repository interface {
	// Save inserts u when u.ID is empty, assigning the id, and updates the
	// existing row otherwise.
	Save(ctx context.Context, u *models.User) error

	FindByID(ctx context.Context, id string) (*models.User, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailAndStatus(ctx context.Context, email string, active, verified bool) (*models.User, error)
	FindByUserIDAndStatus(ctx context.Context, id string, active, verified bool) (*models.User, error)
	FindByVerificationCode(ctx context.Context, code string, verified, active bool) (*models.User, error)

	// The single-statement writes below touch only their own columns, so a
	// concurrent preference or profile edit is never overwritten. Each
	// returns the row as stored afterwards, or common.ErrorNotFound when no
	// row matched.

	// RecordLogin stamps last_login_at and updated_at of an active, verified
	// user with at.
	RecordLogin(ctx context.Context, id string, at time.Time) (*models.User, error)
	// RedeemVerificationCode marks the active, unverified owner of code as
	// verified and clears the code. At most one caller wins per code.
	RedeemVerificationCode(ctx context.Context, code string, at time.Time) (*models.User, error)
	// UpdatePassword replaces the hash of an active, verified user.
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) (*models.User, error)

	// FindActive pages through active users sorted by username.
	FindActive(ctx context.Context, page models.PageRequest) (models.Page[*models.User], error)
	// FindByPreference pages through users whose preference set holds tag
	// exactly.
	FindByPreference(ctx context.Context, tag string, active bool, page models.PageRequest) (models.Page[*models.User], error)
}
