// Package services holds the account lifecycle: creation, verification,
// login, updates and preference maintenance.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/voucher-auth/internal/common"
	"github.com/dmitrijs2005/voucher-auth/internal/dbx"
	"github.com/dmitrijs2005/voucher-auth/internal/logging"
	"github.com/dmitrijs2005/voucher-auth/internal/server/models"
	"github.com/dmitrijs2005/voucher-auth/internal/server/preferences"
	"github.com/dmitrijs2005/voucher-auth/internal/server/repositories/repomanager"
)

const (
	MsgInternal             = "Internal server error."
	MsgUserExists           = "User already exists."
	MsgInvalidCredentials   = "Invalid credentials."
	MsgPasswordEmpty        = "Password cannot be empty."
	MsgPasswordRejected     = "Password is empty or too long."
	MsgUsernameEmpty        = "Username cannot be empty."
	MsgEmailEmpty           = "Email cannot be empty."
	MsgUserIDEmpty          = "User ID cannot be empty."
	MsgInvalidRole          = "Invalid role."
	MsgCodeEmpty            = "Verification code cannot be empty."
	MsgCodeMalformed        = "Verification code is malformed."
	MsgCodeInvalid          = "Verification code is invalid or the account is already verified."
	MsgUserNotFound         = "User account not found."
	MsgActiveUserNotFound   = "Active user account not found."
	MsgResetUnauthorized    = "Unable to reset password for this account."
	MsgPreferenceEmpty      = "Preference cannot be empty."
	MsgNoPreferences        = "User has no preferences to delete."
	MsgNoMatchingPreference = "The given preferences do not exist for this user."
)

const defaultEmailTimeout = 10 * time.Second

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Matches(plain, hash string) bool
}

type TokenDecoder interface {
	Decode(encoded string) (string, error)
}

type VerificationNotifier interface {
	SendVerification(ctx context.Context, u *models.User) error
}

type UserService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	hasher       PasswordHasher
	codec        TokenDecoder
	notifier     VerificationNotifier
	logger       logging.Logger
	now          func() time.Time
	newCode      func() string
	emailTimeout time.Duration

	emails sync.WaitGroup
}

type Option func(*UserService)

func WithClock(now func() time.Time) Option {
	return func(s *UserService) { s.now = now }
}

func WithCodeGenerator(gen func() string) Option {
	return func(s *UserService) { s.newCode = gen }
}

func WithEmailTimeout(d time.Duration) Option {
	return func(s *UserService) {
		if d > 0 {
			s.emailTimeout = d
		}
	}
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, codec TokenDecoder,
	notifier VerificationNotifier, logger logging.Logger, opts ...Option) *UserService {

	s := &UserService{
		db:           db,
		repomanager:  m,
		hasher:       hasher,
		codec:        codec,
		notifier:     notifier,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		newCode:      uuid.NewString,
		emailTimeout: defaultEmailTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Wait blocks until every verification email started so far has finished.
func (s *UserService) Wait() {
	s.emails.Wait()
}

func (s *UserService) CreateUser(ctx context.Context, req models.UserRequest) (*models.UserDTO, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, common.NewError(common.ErrorBadRequest, MsgEmailEmpty)
	}
	if strings.TrimSpace(req.Username) == "" {
		return nil, common.NewError(common.ErrorBadRequest, MsgUsernameEmpty)
	}
	if req.Password == "" {
		return nil, common.NewError(common.ErrorBadRequest, MsgPasswordEmpty)
	}
	if !req.Role.IsValid() {
		return nil, common.NewError(common.ErrorBadRequest, MsgInvalidRole)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, s.hashError(ctx, err)
	}

	now := s.now()
	user := &models.User{
		Email:            req.Email,
		Username:         req.Username,
		PasswordHash:     hash,
		Role:             req.Role,
		Active:           true,
		Verified:         false,
		VerificationCode: s.newCode(),
		Preferences:      preferences.FromSlice(req.Preferences),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.Save(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewError(common.ErrorAlreadyExists, MsgUserExists)
		}
		return nil, s.internal(ctx, "create user", err)
	}

	s.logger.Info(ctx, "user created", "user_id", user.ID)
	s.sendVerification(ctx, *user)

	dto := user.ToDTO()
	return &dto, nil
}

// sendVerification mails the verification link in the background. The send
// outlives the request, so it runs on a detached context with its own timeout.
func (s *UserService) sendVerification(ctx context.Context, u models.User) {
	s.emails.Add(1)
	go func() {
		defer s.emails.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.emailTimeout)
		defer cancel()

		if err := s.notifier.SendVerification(ctx, &u); err != nil {
			s.logger.Warn(ctx, "verification email not sent", "user_id", u.ID, "error", err)
		}
	}()
}

func (s *UserService) LoginUser(ctx context.Context, email, password string) (*models.UserDTO, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByEmailAndStatus(ctx, email, true, true)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrInvalidCredentials, MsgInvalidCredentials)
		}
		return nil, s.internal(ctx, "login lookup", err)
	}

	if !s.hasher.Matches(password, user.PasswordHash) {
		return nil, common.NewError(common.ErrInvalidCredentials, MsgInvalidCredentials)
	}

	// Only the login columns are written; the account may have been edited
	// or deactivated while the password was being compared.
	user, err = repo.RecordLogin(ctx, user.ID, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrInvalidCredentials, MsgInvalidCredentials)
		}
		return nil, s.internal(ctx, "record login", err)
	}

	dto := user.ToDTO()
	return &dto, nil
}

func (s *UserService) VerifyUser(ctx context.Context, encoded string) (*models.UserDTO, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, common.NewError(common.ErrorBadRequest, MsgCodeEmpty)
	}

	code, err := s.codec.Decode(encoded)
	if err != nil {
		return nil, common.NewError(common.ErrMalformedToken, MsgCodeMalformed)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.RedeemVerificationCode(ctx, code, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorNotFound, MsgCodeInvalid)
		}
		return nil, s.internal(ctx, "verify user", err)
	}

	s.logger.Info(ctx, "user verified", "user_id", user.ID)

	dto := user.ToDTO()
	return &dto, nil
}

// Update overwrites the profile fields present in req and merges its
// preferences into the stored set, all under a row lock.
func (s *UserService) Update(ctx context.Context, req models.UserRequest) (*models.UserDTO, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, common.NewError(common.ErrorBadRequest, MsgUserIDEmpty)
	}
	if req.Role != "" && !req.Role.IsValid() {
		return nil, common.NewError(common.ErrorBadRequest, MsgInvalidRole)
	}

	// bcrypt is slow; hash before taking the lock.
	var hash string
	if req.Password != "" {
		var err error
		if hash, err = s.hasher.Hash(req.Password); err != nil {
			return nil, s.hashError(ctx, err)
		}
	}

	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		var err error
		user, err = repo.FindByIDForUpdate(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NewError(common.ErrorNotFound, MsgUserNotFound)
			}
			return err
		}

		if strings.TrimSpace(req.Username) != "" {
			user.Username = req.Username
		}
		if req.Role != "" {
			user.Role = req.Role
		}
		if req.Active != nil {
			user.Active = *req.Active
		}
		if hash != "" {
			user.PasswordHash = hash
		}
		user.Preferences = user.Preferences.Merge(preferences.FromSlice(req.Preferences))
		user.UpdatedAt = s.now()

		return repo.Save(ctx, user)
	})
	if err != nil {
		return nil, s.passThrough(ctx, "update user", err)
	}

	s.logger.Info(ctx, "user updated", "user_id", user.ID)

	dto := user.ToDTO()
	return &dto, nil
}

// ResetPassword replaces the password of an active, verified account. An
// unknown or ineligible account is reported as Unauthorized.
func (s *UserService) ResetPassword(ctx context.Context, userID, password string) (*models.UserDTO, error) {
	if password == "" {
		return nil, common.NewError(common.ErrorBadRequest, MsgPasswordEmpty)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByUserIDAndStatus(ctx, userID, true, true)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorUnauthorized, MsgResetUnauthorized)
		}
		return nil, s.internal(ctx, "reset lookup", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.hashError(ctx, err)
	}

	user, err = repo.UpdatePassword(ctx, user.ID, hash, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorUnauthorized, MsgResetUnauthorized)
		}
		return nil, s.internal(ctx, "reset password", err)
	}

	dto := user.ToDTO()
	return &dto, nil
}

func (s *UserService) CheckSpecificActiveUser(ctx context.Context, userID string) (*models.UserDTO, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByUserIDAndStatus(ctx, userID, true, true)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorNotFound, MsgActiveUserNotFound)
		}
		return nil, s.internal(ctx, "active lookup", err)
	}

	dto := user.ToDTO()
	return &dto, nil
}

func (s *UserService) FindActiveUsers(ctx context.Context, page models.PageRequest) (int64, []models.UserDTO, error) {
	repo := s.repomanager.Users(s.db)

	res, err := repo.FindActive(ctx, page)
	if err != nil {
		return 0, nil, s.internal(ctx, "list active users", err)
	}
	return res.Total, models.ToDTOs(res.Items), nil
}

func (s *UserService) FindUsersByPreferences(ctx context.Context, tag string, page models.PageRequest) (int64, []models.UserDTO, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return 0, nil, common.NewError(common.ErrorBadRequest, MsgPreferenceEmpty)
	}

	repo := s.repomanager.Users(s.db)

	res, err := repo.FindByPreference(ctx, tag, true, page)
	if err != nil {
		return 0, nil, s.internal(ctx, "list users by preference", err)
	}
	return res.Total, models.ToDTOs(res.Items), nil
}

// UpdatePreferencesByUser adds tags to the stored set. A union that changes
// nothing is not written.
func (s *UserService) UpdatePreferencesByUser(ctx context.Context, userID string, tags []string) (*models.UserDTO, error) {
	return s.modifyPreferences(ctx, userID, "add preferences", func(u *models.User) (bool, error) {
		merged := u.Preferences.Merge(preferences.FromSlice(tags))
		if merged.Equal(u.Preferences) {
			return false, nil
		}
		u.Preferences = merged
		return true, nil
	})
}

func (s *UserService) DeletePreferencesByUser(ctx context.Context, userID string, tags []string) (*models.UserDTO, error) {
	return s.modifyPreferences(ctx, userID, "delete preferences", func(u *models.User) (bool, error) {
		if u.Preferences.IsEmpty() {
			return false, common.NewError(common.ErrEmptyPreferences, MsgNoPreferences)
		}
		reduced := u.Preferences.Subtract(preferences.FromSlice(tags))
		if reduced.Len() == u.Preferences.Len() {
			return false, common.NewError(common.ErrNoMatchingPreference, MsgNoMatchingPreference)
		}
		u.Preferences = reduced
		return true, nil
	})
}

// modifyPreferences loads the user under a row lock, applies change and
// persists the result when change reports a modification.
func (s *UserService) modifyPreferences(ctx context.Context, userID, op string,
	change func(u *models.User) (bool, error)) (*models.UserDTO, error) {

	if strings.TrimSpace(userID) == "" {
		return nil, common.NewError(common.ErrorBadRequest, MsgUserIDEmpty)
	}

	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		var err error
		user, err = repo.FindByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NewError(common.ErrorNotFound, MsgUserNotFound)
			}
			return err
		}

		changed, err := change(user)
		if err != nil || !changed {
			return err
		}

		user.UpdatedAt = s.now()
		return repo.Save(ctx, user)
	})
	if err != nil {
		return nil, s.passThrough(ctx, op, err)
	}

	dto := user.ToDTO()
	return &dto, nil
}

func (s *UserService) hashError(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrorBadRequest) {
		return common.NewError(common.ErrorBadRequest, MsgPasswordRejected)
	}
	return s.internal(ctx, "hash password", err)
}

// passThrough keeps client-facing errors produced inside a transaction and
// turns everything else into ServerError.
func (s *UserService) passThrough(ctx context.Context, op string, err error) error {
	var ce *common.Error
	if errors.As(err, &ce) {
		return ce
	}
	return s.internal(ctx, op, err)
}

func (s *UserService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op+" failed", "error", err)
	return common.NewError(common.ErrorInternal, MsgInternal)
}
