package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/voucher-auth/internal/common"
	"github.com/dmitrijs2005/voucher-auth/internal/dbx"
	"github.com/dmitrijs2005/voucher-auth/internal/server/models"
	"github.com/dmitrijs2005/voucher-auth/internal/server/preferences"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgInvalidTextSyntax   = "22P02"
	userColumns           = `id, email, username, password_hash, role, is_active, is_verified, verification_code, preferences, created_at, updated_at, last_login_at`
	pageClause            = ` ORDER BY username ASC, id ASC LIMIT $%d OFFSET $%d`
	preferenceMatchClause = `$2 = ANY(string_to_array(preferences, ','))`
)

// newID is a seam for deterministic ids in tests.
var newID = uuid.NewString

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		return r.insert(ctx, u)
	}
	return r.update(ctx, u)
}

func (r *PostgresRepository) insert(ctx context.Context, u *models.User) error {
	query :=
		`INSERT INTO users (` + userColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	id := newID()
	_, err := r.db.ExecContext(ctx, query,
		id, u.Email, u.Username, u.PasswordHash, string(u.Role), u.Active, u.Verified,
		nullString(u.VerificationCode), u.Preferences.String(), u.CreatedAt, u.UpdatedAt, nullTime(u.LastLoginAt))
	if err != nil {
		return mapError(err)
	}

	u.ID = id
	return nil
}

func (r *PostgresRepository) update(ctx context.Context, u *models.User) error {
	query :=
		`UPDATE users
		 SET email = $2, username = $3, password_hash = $4, role = $5, is_active = $6, is_verified = $7,
		     verification_code = $8, preferences = $9, updated_at = $10, last_login_at = $11
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.Username, u.PasswordHash, string(u.Role), u.Active, u.Verified,
		nullString(u.VerificationCode), u.Preferences.String(), u.UpdatedAt, nullTime(u.LastLoginAt))
	if err != nil {
		return mapError(err)
	}
	if err := dbx.ExpectRows(res); err != nil {
		if errors.Is(err, dbx.ErrNoRowsAffected) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecordLogin(ctx context.Context, id string, at time.Time) (*models.User, error) {
	return r.updateOne(ctx,
		`SET last_login_at = $2, updated_at = $2 WHERE id = $1 AND is_active = TRUE AND is_verified = TRUE`,
		id, at)
}

func (r *PostgresRepository) RedeemVerificationCode(ctx context.Context, code string, at time.Time) (*models.User, error) {
	return r.updateOne(ctx,
		`SET is_verified = TRUE, verification_code = NULL, updated_at = $2
		 WHERE verification_code = $1 AND is_verified = FALSE AND is_active = TRUE`,
		code, at)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, hash string, at time.Time) (*models.User, error) {
	return r.updateOne(ctx,
		`SET password_hash = $2, updated_at = $3 WHERE id = $1 AND is_active = TRUE AND is_verified = TRUE`,
		id, hash, at)
}

// updateOne runs a single conditional UPDATE and reads the row back through
// RETURNING. No matching row is ErrorNotFound.
func (r *PostgresRepository) updateOne(ctx context.Context, set string, args ...any) (*models.User, error) {
	query := `UPDATE users ` + set + ` RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, mapError(err)
	}
	return u, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *PostgresRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, `id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `email = $1`, email)
}

func (r *PostgresRepository) FindByEmailAndStatus(ctx context.Context, email string, active, verified bool) (*models.User, error) {
	return r.findOne(ctx, `email = $1 AND is_active = $2 AND is_verified = $3`, email, active, verified)
}

func (r *PostgresRepository) FindByUserIDAndStatus(ctx context.Context, id string, active, verified bool) (*models.User, error) {
	return r.findOne(ctx, `id = $1 AND is_active = $2 AND is_verified = $3`, id, active, verified)
}

func (r *PostgresRepository) FindByVerificationCode(ctx context.Context, code string, verified, active bool) (*models.User, error) {
	return r.findOne(ctx, `verification_code = $1 AND is_verified = $2 AND is_active = $3`, code, verified, active)
}

func (r *PostgresRepository) FindActive(ctx context.Context, page models.PageRequest) (models.Page[*models.User], error) {
	return r.findPage(ctx, `is_active = $1`, page, true)
}

func (r *PostgresRepository) FindByPreference(ctx context.Context, tag string, active bool, page models.PageRequest) (models.Page[*models.User], error) {
	return r.findPage(ctx, `is_active = $1 AND `+preferenceMatchClause, page, active, tag)
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, args ...any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, mapError(err)
	}
	return u, nil
}

func (r *PostgresRepository) findPage(ctx context.Context, where string, page models.PageRequest, args ...any) (models.Page[*models.User], error) {
	var result models.Page[*models.User]

	countQuery := `SELECT COUNT(*) FROM users WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&result.Total); err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}

	result.Items = make([]*models.User, 0)
	if result.Total == 0 {
		return result, nil
	}

	n := len(args)
	listQuery := `SELECT ` + userColumns + ` FROM users WHERE ` + where + fmt.Sprintf(pageClause, n+1, n+2)

	rows, err := r.db.QueryContext(ctx, listQuery, append(args, page.Size, page.Offset())...)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return result, fmt.Errorf("db error: %w", err)
		}
		result.Items = append(result.Items, u)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u         models.User
		role      string
		code      sql.NullString
		prefs     string
		lastLogin sql.NullTime
	)

	err := s.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role, &u.Active, &u.Verified,
		&code, &prefs, &u.CreatedAt, &u.UpdatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}

	u.Role = models.Role(role)
	u.VerificationCode = code.String
	u.Preferences = preferences.Parse(prefs)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

// mapError turns driver errors into store errors. A malformed uuid can never
// match a row, so it reads as not found.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, common.ErrorAlreadyExists)
		case pgInvalidTextSyntax:
			return common.ErrorNotFound
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
