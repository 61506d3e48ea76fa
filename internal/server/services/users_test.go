package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/voucher-auth/internal/common"
	"github.com/dmitrijs2005/voucher-auth/internal/dbx"
	"github.com/dmitrijs2005/voucher-auth/internal/logging"
	"github.com/dmitrijs2005/voucher-auth/internal/server/models"
	"github.com/dmitrijs2005/voucher-auth/internal/server/preferences"
	usersrepo "github.com/dmitrijs2005/voucher-auth/internal/server/repositories/users"
)

// --- fakes ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	nextID  int
	saveErr error
	findErr error
	saves   int
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range users {
		cp := *u
		r.byID[u.ID] = &cp
	}
	return r
}

func (r *fakeUsersRepo) Save(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if u.ID == "" {
		for _, existing := range r.byID {
			if existing.Email == u.Email {
				return common.ErrorAlreadyExists
			}
		}
		r.nextID++
		u.ID = "id-" + string(rune('0'+r.nextID))
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.saves++
	return nil
}

func (r *fakeUsersRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUsersRepo) FindByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeUsersRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *fakeUsersRepo) FindByEmailAndStatus(_ context.Context, email string, active, verified bool) (*models.User, error) {
	return r.find(func(u *models.User) bool {
		return u.Email == email && u.Active == active && u.Verified == verified
	})
}

func (r *fakeUsersRepo) FindByUserIDAndStatus(_ context.Context, id string, active, verified bool) (*models.User, error) {
	return r.find(func(u *models.User) bool {
		return u.ID == id && u.Active == active && u.Verified == verified
	})
}

func (r *fakeUsersRepo) FindByVerificationCode(_ context.Context, code string, verified, active bool) (*models.User, error) {
	return r.find(func(u *models.User) bool {
		return code != "" && u.VerificationCode == code && u.Verified == verified && u.Active == active
	})
}

// write applies change atomically to the row matched by match, the way a
// single conditional UPDATE does.
func (r *fakeUsersRepo) write(match func(*models.User) bool, change func(*models.User)) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	for _, u := range r.byID {
		if match(u) {
			change(u)
			r.saves++
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) RecordLogin(_ context.Context, id string, at time.Time) (*models.User, error) {
	return r.write(
		func(u *models.User) bool { return u.ID == id && u.Active && u.Verified },
		func(u *models.User) { u.LastLoginAt, u.UpdatedAt = &at, at },
	)
}

func (r *fakeUsersRepo) RedeemVerificationCode(_ context.Context, code string, at time.Time) (*models.User, error) {
	return r.write(
		func(u *models.User) bool { return code != "" && u.VerificationCode == code && !u.Verified && u.Active },
		func(u *models.User) { u.Verified, u.VerificationCode, u.UpdatedAt = true, "", at },
	)
}

func (r *fakeUsersRepo) UpdatePassword(_ context.Context, id, hash string, at time.Time) (*models.User, error) {
	return r.write(
		func(u *models.User) bool { return u.ID == id && u.Active && u.Verified },
		func(u *models.User) { u.PasswordHash, u.UpdatedAt = hash, at },
	)
}

func (r *fakeUsersRepo) page(match func(*models.User) bool, p models.PageRequest) (models.Page[*models.User], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return models.Page[*models.User]{}, r.findErr
	}
	var all []*models.User
	for _, u := range r.byID {
		if match(u) {
			cp := *u
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })

	res := models.Page[*models.User]{Total: int64(len(all)), Items: []*models.User{}}
	start := p.Offset()
	if start >= len(all) {
		return res, nil
	}
	end := min(start+p.Size, len(all))
	res.Items = all[start:end]
	return res, nil
}

func (r *fakeUsersRepo) FindActive(_ context.Context, p models.PageRequest) (models.Page[*models.User], error) {
	return r.page(func(u *models.User) bool { return u.Active }, p)
}

func (r *fakeUsersRepo) FindByPreference(_ context.Context, tag string, active bool, p models.PageRequest) (models.Page[*models.User], error) {
	return r.page(func(u *models.User) bool { return u.Active == active && u.Preferences.Contains(tag) }, p)
}

func (r *fakeUsersRepo) stored(id string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

type fakeRepoManager struct {
	u *fakeUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository        { return m.u }

// fakeHasher runs during, when set, in the middle of every Hash and
// Matches call, standing in for work done while bcrypt is busy.
type fakeHasher struct {
	err    error
	during func()
}

func (h fakeHasher) Hash(plain string) (string, error) {
	if h.during != nil {
		h.during()
	}
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plain, nil
}

func (h fakeHasher) Matches(plain, hash string) bool {
	if h.during != nil {
		h.during()
	}
	return hash == "hashed:"+plain
}

type fakeCodec struct{}

func (fakeCodec) Decode(encoded string) (string, error) {
	code, ok := strings.CutPrefix(encoded, "enc:")
	if !ok {
		return "", common.ErrMalformedToken
	}
	return code, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *fakeNotifier) SendVerification(_ context.Context, u *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, u.Email)
	return n.err
}

// --- helpers ---

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newTestService(t *testing.T, db *sql.DB, repo *fakeUsersRepo, n *fakeNotifier) *UserService {
	t.Helper()
	if n == nil {
		n = &fakeNotifier{}
	}
	return NewUserService(db, &fakeRepoManager{u: repo}, fakeHasher{}, fakeCodec{}, n, logging.Nop{},
		WithClock(func() time.Time { return fixedNow }),
		WithCodeGenerator(func() string { return "code-1" }),
	)
}

func activeUser(id, email string, tags ...string) *models.User {
	return &models.User{
		ID:           id,
		Email:        email,
		Username:     "user-" + id,
		PasswordHash: "hashed:secret",
		Role:         models.RoleCustomer,
		Active:       true,
		Verified:     true,
		Preferences:  preferences.FromSlice(tags),
		CreatedAt:    fixedNow.Add(-time.Hour),
		UpdatedAt:    fixedNow.Add(-time.Hour),
	}
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
}

// --- CreateUser ---

func TestCreateUser_PersistsUnverifiedAndSendsEmail(t *testing.T) {
	repo := newFakeUsersRepo()
	n := &fakeNotifier{}
	s := newTestService(t, nil, repo, n)

	dto, err := s.CreateUser(context.Background(), models.UserRequest{
		Email:       "a@x.io",
		Username:    "alice",
		Password:    "pw",
		Role:        models.RoleCustomer,
		Preferences: []string{"food", "travel", "food"},
	})
	require.NoError(t, err)
	s.Wait()

	assert.True(t, dto.Active)
	assert.False(t, dto.Verified)
	assert.Equal(t, []string{"food", "travel"}, dto.Preferences)
	assert.Equal(t, fixedNow, dto.CreatedAt)
	assert.Equal(t, dto.CreatedAt, dto.UpdatedAt)

	stored := repo.stored(dto.UserID)
	require.NotNil(t, stored)
	assert.Equal(t, "hashed:pw", stored.PasswordHash)
	assert.Equal(t, "code-1", stored.VerificationCode)

	assert.Equal(t, []string{"a@x.io"}, n.sent)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo := newFakeUsersRepo(activeUser("u1", "a@x.io"))
	n := &fakeNotifier{}
	s := newTestService(t, nil, repo, n)

	_, err := s.CreateUser(context.Background(), models.UserRequest{
		Email: "a@x.io", Username: "alice", Password: "pw", Role: models.RoleCustomer,
	})
	s.Wait()

	assertKind(t, err, common.ErrorAlreadyExists)
	assert.Equal(t, MsgUserExists, err.Error())
	assert.Empty(t, n.sent)
}

func TestCreateUser_EmailFailureDoesNotFail(t *testing.T) {
	n := &fakeNotifier{err: errors.New("ses down")}
	s := newTestService(t, nil, newFakeUsersRepo(), n)

	_, err := s.CreateUser(context.Background(), models.UserRequest{
		Email: "b@x.io", Username: "bob", Password: "pw", Role: models.RoleMerchant,
	})
	s.Wait()

	require.NoError(t, err)
	assert.Len(t, n.sent, 1)
}

func TestCreateUser_EmailOutlivesRequestContext(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestService(t, nil, newFakeUsersRepo(), n)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.CreateUser(ctx, models.UserRequest{
		Email: "c@x.io", Username: "carol", Password: "pw", Role: models.RoleAdmin,
	})
	cancel()
	s.Wait()

	require.NoError(t, err)
	assert.Equal(t, []string{"c@x.io"}, n.sent)
}

func TestCreateUser_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		req  models.UserRequest
	}{
		{"blank email", models.UserRequest{Email: " ", Username: "a", Password: "p", Role: models.RoleCustomer}},
		{"blank username", models.UserRequest{Email: "a@x.io", Password: "p", Role: models.RoleCustomer}},
		{"blank password", models.UserRequest{Email: "a@x.io", Username: "a", Role: models.RoleCustomer}},
		{"bad role", models.UserRequest{Email: "a@x.io", Username: "a", Password: "p", Role: "ROOT"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeUsersRepo()
			s := newTestService(t, nil, repo, nil)

			_, err := s.CreateUser(context.Background(), tt.req)
			assertKind(t, err, common.ErrorBadRequest)
			assert.Zero(t, repo.saves)
		})
	}
}

func TestCreateUser_StoreFailureIsInternal(t *testing.T) {
	repo := newFakeUsersRepo()
	repo.saveErr = errors.New("db error: connection reset")
	s := newTestService(t, nil, repo, nil)

	_, err := s.CreateUser(context.Background(), models.UserRequest{
		Email: "a@x.io", Username: "a", Password: "p", Role: models.RoleCustomer,
	})
	assertKind(t, err, common.ErrorInternal)
	assert.Equal(t, MsgInternal, err.Error())
}

// --- LoginUser ---

func TestLoginUser(t *testing.T) {
	unverified := activeUser("u2", "u@x.io")
	unverified.Verified = false

	repo := newFakeUsersRepo(activeUser("u1", "a@x.io"), unverified)
	s := newTestService(t, nil, repo, nil)
	ctx := context.Background()

	dto, err := s.LoginUser(ctx, "a@x.io", "secret")
	require.NoError(t, err)
	require.NotNil(t, dto.LastLoginAt)
	assert.Equal(t, fixedNow, *dto.LastLoginAt)
	assert.Equal(t, fixedNow, repo.stored("u1").UpdatedAt)

	_, err = s.LoginUser(ctx, "a@x.io", "wrong")
	assertKind(t, err, common.ErrInvalidCredentials)

	_, err = s.LoginUser(ctx, "nobody@x.io", "secret")
	assertKind(t, err, common.ErrInvalidCredentials)

	_, err = s.LoginUser(ctx, "u@x.io", "secret")
	assertKind(t, err, common.ErrInvalidCredentials)
}

func newServiceWithHasher(db *sql.DB, repo *fakeUsersRepo, h fakeHasher) *UserService {
	return NewUserService(db, &fakeRepoManager{u: repo}, h, fakeCodec{}, &fakeNotifier{}, logging.Nop{},
		WithClock(func() time.Time { return fixedNow }))
}

func TestLoginUser_KeepsPreferencesEditedDuringCompare(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := newFakeUsersRepo(activeUser("u1", "a@x.io", "food"))
	var other *UserService
	s := newServiceWithHasher(db, repo, fakeHasher{during: func() {
		if _, err := other.UpdatePreferencesByUser(context.Background(), "u1", []string{"movies"}); err != nil {
			t.Errorf("concurrent edit: %v", err)
		}
	}})
	other = newTestService(t, db, repo, nil)

	dto, err := s.LoginUser(context.Background(), "a@x.io", "secret")
	require.NoError(t, err)

	assert.Equal(t, []string{"food", "movies"}, repo.stored("u1").Preferences.Slice())
	assert.Equal(t, []string{"food", "movies"}, dto.Preferences)
	require.NotNil(t, repo.stored("u1").LastLoginAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUser_DeactivatedDuringCompare(t *testing.T) {
	repo := newFakeUsersRepo(activeUser("u1", "a@x.io"))
	s := newServiceWithHasher(nil, repo, fakeHasher{during: func() {
		repo.mu.Lock()
		repo.byID["u1"].Active = false
		repo.mu.Unlock()
	}})

	_, err := s.LoginUser(context.Background(), "a@x.io", "secret")

	assertKind(t, err, common.ErrInvalidCredentials)
	assert.Nil(t, repo.stored("u1").LastLoginAt)
}

// --- VerifyUser ---

func TestVerifyUser(t *testing.T) {
	pending := activeUser("u1", "a@x.io")
	pending.Verified = false
	pending.VerificationCode = "c-1"

	repo := newFakeUsersRepo(pending)
	s := newTestService(t, nil, repo, nil)
	ctx := context.Background()

	dto, err := s.VerifyUser(ctx, "enc:c-1")
	require.NoError(t, err)
	assert.True(t, dto.Verified)
	assert.Empty(t, repo.stored("u1").VerificationCode)
	assert.Equal(t, fixedNow, repo.stored("u1").UpdatedAt)

	_, err = s.VerifyUser(ctx, "enc:c-1")
	assertKind(t, err, common.ErrorNotFound)
	assert.Equal(t, MsgCodeInvalid, err.Error())
}

func TestVerifyUser_Errors(t *testing.T) {
	inactive := activeUser("u1", "a@x.io")
	inactive.Active = false
	inactive.Verified = false
	inactive.VerificationCode = "c-1"

	s := newTestService(t, nil, newFakeUsersRepo(inactive), nil)
	ctx := context.Background()

	_, err := s.VerifyUser(ctx, "  ")
	assertKind(t, err, common.ErrorBadRequest)

	_, err = s.VerifyUser(ctx, "garbage")
	assertKind(t, err, common.ErrMalformedToken)

	_, err = s.VerifyUser(ctx, "enc:c-1")
	assertKind(t, err, common.ErrorNotFound)
}

func TestVerifyUser_ConcurrentRedemptionSucceedsOnce(t *testing.T) {
	pending := activeUser("u1", "a@x.io")
	pending.Verified = false
	pending.VerificationCode = "c-1"

	s := newTestService(t, nil, newFakeUsersRepo(pending), nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		verified int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.VerifyUser(context.Background(), "enc:c-1"); err == nil {
				mu.Lock()
				verified++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, verified)
}

// --- Update ---

func TestUpdate_MergesPreferencesAndOverwritesGivenFields(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := newFakeUsersRepo(activeUser("u1", "a@x.io", "food"))
	s := newTestService(t, db, repo, nil)

	inactive := false
	dto, err := s.Update(context.Background(), models.UserRequest{
		UserID:      "u1",
		Username:    "alice2",
		Password:    "new",
		Active:      &inactive,
		Preferences: []string{"travel", "food"},
	})
	require.NoError(t, err)

	assert.Equal(t, "alice2", dto.Username)
	assert.Equal(t, models.RoleCustomer, dto.Role)
	assert.False(t, dto.Active)
	assert.Equal(t, []string{"food", "travel"}, dto.Preferences)
	assert.Equal(t, "hashed:new", repo.stored("u1").PasswordHash)
	assert.Equal(t, fixedNow, dto.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_ReactivatesInactiveUser(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	u := activeUser("u1", "a@x.io")
	u.Active = false
	repo := newFakeUsersRepo(u)
	s := newTestService(t, db, repo, nil)

	active := true
	dto, err := s.Update(context.Background(), models.UserRequest{UserID: "u1", Active: &active})
	require.NoError(t, err)
	assert.True(t, dto.Active)
	assert.True(t, dto.Verified)
	assert.Equal(t, "user-u1", dto.Username)
	assert.Equal(t, "hashed:secret", repo.stored("u1").PasswordHash)
}

func TestUpdate_NotFoundRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	s := newTestService(t, db, newFakeUsersRepo(), nil)

	_, err := s.Update(context.Background(), models.UserRequest{UserID: "missing"})
	assertKind(t, err, common.ErrorNotFound)
	assert.Equal(t, MsgUserNotFound, err.Error())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_BadInputSkipsTransaction(t *testing.T) {
	db, mock := newSQLMockDB(t)
	s := newTestService(t, db, newFakeUsersRepo(activeUser("u1", "a@x.io")), nil)

	_, err := s.Update(context.Background(), models.UserRequest{UserID: " "})
	assertKind(t, err, common.ErrorBadRequest)

	_, err = s.Update(context.Background(), models.UserRequest{UserID: "u1", Role: "ROOT"})
	assertKind(t, err, common.ErrorBadRequest)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_StoreFailureIsInternal(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := newFakeUsersRepo(activeUser("u1", "a@x.io"))
	repo.saveErr = errors.New("db error: deadlock")
	s := newTestService(t, db, repo, nil)

	_, err := s.Update(context.Background(), models.UserRequest{UserID: "u1", Username: "x"})
	assertKind(t, err, common.ErrorInternal)
}

// --- ResetPassword ---

func TestResetPassword(t *testing.T) {
	unverified := activeUser("u2", "u@x.io")
	unverified.Verified = false

	repo := newFakeUsersRepo(activeUser("u1", "a@x.io"), unverified)
	s := newTestService(t, nil, repo, nil)
	ctx := context.Background()

	_, err := s.ResetPassword(ctx, "u1", "fresh")
	require.NoError(t, err)
	assert.Equal(t, "hashed:fresh", repo.stored("u1").PasswordHash)
	assert.Equal(t, fixedNow, repo.stored("u1").UpdatedAt)

	_, err = s.ResetPassword(ctx, "u1", "")
	assertKind(t, err, common.ErrorBadRequest)

	_, err = s.ResetPassword(ctx, "u2", "fresh")
	assertKind(t, err, common.ErrorUnauthorized)

	_, err = s.ResetPassword(ctx, "missing", "fresh")
	assertKind(t, err, common.ErrorUnauthorized)
}

func TestResetPassword_KeepsPreferencesEditedDuringHash(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := newFakeUsersRepo(activeUser("u1", "a@x.io", "food"))
	var other *UserService
	s := newServiceWithHasher(db, repo, fakeHasher{during: func() {
		if _, err := other.DeletePreferencesByUser(context.Background(), "u1", []string{"food"}); err != nil {
			t.Errorf("concurrent edit: %v", err)
		}
	}})
	other = newTestService(t, db, repo, nil)

	dto, err := s.ResetPassword(context.Background(), "u1", "fresh")
	require.NoError(t, err)

	assert.Empty(t, repo.stored("u1").Preferences.Slice())
	assert.Empty(t, dto.Preferences)
	assert.Equal(t, "hashed:fresh", repo.stored("u1").PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPassword_HasherRejects(t *testing.T) {
	s := NewUserService(nil, &fakeRepoManager{u: newFakeUsersRepo(activeUser("u1", "a@x.io"))},
		fakeHasher{err: common.ErrorBadRequest}, fakeCodec{}, &fakeNotifier{}, logging.Nop{})

	_, err := s.ResetPassword(context.Background(), "u1", strings.Repeat("x", 100))
	assertKind(t, err, common.ErrorBadRequest)
	assert.Equal(t, MsgPasswordRejected, err.Error())
}

// --- CheckSpecificActiveUser ---

func TestCheckSpecificActiveUser(t *testing.T) {
	inactive := activeUser("u2", "i@x.io")
	inactive.Active = false

	s := newTestService(t, nil, newFakeUsersRepo(activeUser("u1", "a@x.io"), inactive), nil)
	ctx := context.Background()

	dto, err := s.CheckSpecificActiveUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", dto.Email)

	_, err = s.CheckSpecificActiveUser(ctx, "u2")
	assertKind(t, err, common.ErrorNotFound)
}

// --- listing ---

func TestFindActiveUsers(t *testing.T) {
	inactive := activeUser("u3", "i@x.io")
	inactive.Active = false

	s := newTestService(t, nil, newFakeUsersRepo(activeUser("u1", "a@x.io"), activeUser("u2", "b@x.io"), inactive), nil)

	total, users, err := s.FindActiveUsers(context.Background(), models.PageRequest{Page: 0, Size: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, users, 1)
	assert.Equal(t, "user-u1", users[0].Username)
}

func TestFindUsersByPreferences(t *testing.T) {
	s := newTestService(t, nil, newFakeUsersRepo(
		activeUser("u1", "a@x.io", "food", "travel"),
		activeUser("u2", "b@x.io", "foodie"),
	), nil)
	ctx := context.Background()

	total, users, err := s.FindUsersByPreferences(ctx, " food ", models.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "a@x.io", users[0].Email)

	total, users, err = s.FindUsersByPreferences(ctx, "music", models.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	_, _, err = s.FindUsersByPreferences(ctx, "  ", models.PageRequest{Size: 10})
	assertKind(t, err, common.ErrorBadRequest)
}

func TestFindActiveUsers_StoreFailure(t *testing.T) {
	repo := newFakeUsersRepo()
	repo.findErr = errors.New("db error: timeout")
	s := newTestService(t, nil, repo, nil)

	_, _, err := s.FindActiveUsers(context.Background(), models.PageRequest{Size: 10})
	assertKind(t, err, common.ErrorInternal)
}

// --- preferences ---

func TestUpdatePreferencesByUser(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := newFakeUsersRepo(activeUser("u1", "a@x.io", "food"))
	s := newTestService(t, db, repo, nil)

	dto, err := s.UpdatePreferencesByUser(context.Background(), "u1", []string{"travel", " food "})
	require.NoError(t, err)
	assert.Equal(t, []string{"food", "travel"}, dto.Preferences)
	assert.Equal(t, fixedNow, dto.UpdatedAt)
	assert.Equal(t, 1, repo.saves)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePreferencesByUser_NoChangeWritesNothing(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := newFakeUsersRepo(activeUser("u1", "a@x.io", "food"))
	s := newTestService(t, db, repo, nil)

	dto, err := s.UpdatePreferencesByUser(context.Background(), "u1", []string{"food"})
	require.NoError(t, err)
	assert.Equal(t, []string{"food"}, dto.Preferences)
	assert.Zero(t, repo.saves)
	assert.NotEqual(t, fixedNow, dto.UpdatedAt)
}

func TestDeletePreferencesByUser(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := newFakeUsersRepo(activeUser("u1", "a@x.io", "food", "travel"))
	s := newTestService(t, db, repo, nil)

	dto, err := s.DeletePreferencesByUser(context.Background(), "u1", []string{"travel", "music"})
	require.NoError(t, err)
	assert.Equal(t, []string{"food"}, dto.Preferences)
	assert.Equal(t, "food", repo.stored("u1").Preferences.String())
}

func TestDeletePreferencesByUser_Errors(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
		tags []string
		kind error
	}{
		{"no stored preferences", activeUser("u1", "a@x.io"), []string{"food"}, common.ErrEmptyPreferences},
		{"nothing matches", activeUser("u1", "a@x.io", "food"), []string{"music"}, common.ErrNoMatchingPreference},
		{"empty input", activeUser("u1", "a@x.io", "food"), nil, common.ErrNoMatchingPreference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newSQLMockDB(t)
			mock.ExpectBegin()
			mock.ExpectRollback()

			repo := newFakeUsersRepo(tt.user)
			s := newTestService(t, db, repo, nil)

			_, err := s.DeletePreferencesByUser(context.Background(), "u1", tt.tags)
			assertKind(t, err, tt.kind)
			assert.Zero(t, repo.saves)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeletePreferencesByUser_MismatchMessage(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	s := newTestService(t, db, newFakeUsersRepo(activeUser("u1", "a@x.io", "food")), nil)

	_, err := s.DeletePreferencesByUser(context.Background(), "u1", []string{"music"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not exist")
}

func TestModifyPreferences_UnknownUser(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	s := newTestService(t, db, newFakeUsersRepo(), nil)

	_, err := s.UpdatePreferencesByUser(context.Background(), "missing", []string{"food"})
	assertKind(t, err, common.ErrorNotFound)
}
