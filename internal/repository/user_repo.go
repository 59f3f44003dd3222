package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*model.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*model.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	UpdateLastLogin(ctx context.Context, id int64) error
	MarkVerified(ctx context.Context, id int64) error
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateStripeCustomerID(ctx context.Context, id int64, customerID string) error
	UpdateSubscription(ctx context.Context, id int64, status string, planID *string, start, end *time.Time) error
	IncrementAnalyses(ctx context.Context, id int64) error
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, username, email, password_hash,
	full_name, avatar_url, bio, company, location, website,
	is_active, is_verified, is_superuser,
	verification_token, reset_token, reset_token_expires_at,
	subscription_status, plan_id, stripe_customer_id, subscription_start, subscription_end,
	file_uploads_count, analyses_count, storage_used_bytes, api_calls_count,
	created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FullName, &u.AvatarURL, &u.Bio, &u.Company, &u.Location, &u.Website,
		&u.IsActive, &u.IsVerified, &u.IsSuperuser,
		&u.VerificationToken, &u.ResetToken, &u.ResetTokenExpiresAt,
		&u.SubscriptionStatus, &u.PlanID, &u.StripeCustomerID, &u.SubscriptionStart, &u.SubscriptionEnd,
		&u.FileUploadsCount, &u.AnalysesCount, &u.StorageUsedBytes, &u.APICallsCount,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	query := `INSERT INTO users (username, email, password_hash, full_name, verification_token, is_verified)
              VALUES ($1, $2, $3, $4, $5, FALSE)
              RETURNING id, subscription_status, is_active, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.FullName, u.VerificationToken,
	).Scan(&u.ID, &u.SubscriptionStatus, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) getUserWhere(ctx context.Context, where string, args ...any) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	return scanUser(r.db.QueryRowContext(ctx, query, args...))
}

func (r *userRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getUserWhere(ctx, "id = $1", id)
}

func (r *userRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUserWhere(ctx, "username = $1", username)
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUserWhere(ctx, "email = $1", email)
}

func (r *userRepo) GetUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	return r.getUserWhere(ctx, "username = $1 OR email = $2", username, email)
}

func (r *userRepo) GetUserByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	return r.getUserWhere(ctx, "verification_token = $1", token)
}

func (r *userRepo) GetUserByResetToken(ctx context.Context, token string) (*model.User, error) {
	return r.getUserWhere(ctx, "reset_token = $1", token)
}

func (r *userRepo) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	return r.getUserWhere(ctx, "stripe_customer_id = $1", customerID)
}

func (r *userRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	query := `UPDATE users
              SET full_name = $2, avatar_url = $3, bio = $4, company = $5, location = $6, website = $7, updated_at = NOW()
              WHERE id = $1
              RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		u.ID, u.FullName, u.AvatarURL, u.Bio, u.Company, u.Location, u.Website,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update profile for user %d: %w", u.ID, err)
	}
	return nil
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("update last login for user %d: %w", id, err)
	}
	return nil
}

func (r *userRepo) MarkVerified(ctx context.Context, id int64) error {
	query := `UPDATE users SET is_verified = TRUE, verification_token = NULL, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark user %d verified: %w", id, err)
	}
	return nil
}

func (r *userRepo) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token = $2, reset_token_expires_at = $3, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, token, expiresAt); err != nil {
		return fmt.Errorf("set reset token for user %d: %w", id, err)
	}
	return nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users
              SET password_hash = $2, reset_token = NULL, reset_token_expires_at = NULL, updated_at = NOW()
              WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("update password for user %d: %w", id, err)
	}
	return nil
}

func (r *userRepo) UpdateStripeCustomerID(ctx context.Context, id int64, customerID string) error {
	query := `UPDATE users SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, customerID); err != nil {
		return fmt.Errorf("store stripe customer id for user %d: %w", id, err)
	}
	return nil
}

func (r *userRepo) UpdateSubscription(ctx context.Context, id int64, status string, planID *string, start, end *time.Time) error {
	query := `UPDATE users
              SET subscription_status = $2, plan_id = $3, subscription_start = $4, subscription_end = $5, updated_at = NOW()
              WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, planID, start, end); err != nil {
		return fmt.Errorf("update subscription for user %d: %w", id, err)
	}
	return nil
}

func (r *userRepo) IncrementAnalyses(ctx context.Context, id int64) error {
	query := `UPDATE users SET analyses_count = analyses_count + 1, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment analyses for user %d: %w", id, err)
	}
	return nil
}
