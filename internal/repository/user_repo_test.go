package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"app/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func userRows(u *model.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash",
		"full_name", "avatar_url", "bio", "company", "location", "website",
		"is_active", "is_verified", "is_superuser",
		"verification_token", "reset_token", "reset_token_expires_at",
		"subscription_status", "plan_id", "stripe_customer_id", "subscription_start", "subscription_end",
		"file_uploads_count", "analyses_count", "storage_used_bytes", "api_calls_count",
		"created_at", "updated_at", "last_login_at",
	}).AddRow(
		u.ID, u.Username, u.Email, u.PasswordHash,
		u.FullName, u.AvatarURL, u.Bio, u.Company, u.Location, u.Website,
		u.IsActive, u.IsVerified, u.IsSuperuser,
		u.VerificationToken, u.ResetToken, u.ResetTokenExpiresAt,
		u.SubscriptionStatus, u.PlanID, u.StripeCustomerID, u.SubscriptionStart, u.SubscriptionEnd,
		u.FileUploadsCount, u.AnalysesCount, u.StorageUsedBytes, u.APICallsCount,
		u.CreatedAt, u.UpdatedAt, u.LastLoginAt,
	)
}

func TestUserRepoCreateUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	token := "verify-token"
	u := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hashed", VerificationToken: &token}

	now := time.Now()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "hashed", "", &token).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subscription_status", "is_active", "created_at", "updated_at"}).
			AddRow(int64(1), "free", true, now, now))

	err := repo.CreateUser(context.Background(), u)

	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "free", u.SubscriptionStatus)
	assert.True(t, u.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreateUserDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	token := "verify-token"
	u := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hashed", VerificationToken: &token}

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err := repo.CreateUser(context.Background(), u)

	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoGetUserByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	t.Run("found", func(t *testing.T) {
		u := &model.User{ID: 7, Username: "bob", Email: "bob@example.com", SubscriptionStatus: "free", IsActive: true}
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
			WithArgs(int64(7)).
			WillReturnRows(userRows(u))

		got, err := repo.GetUserByID(context.Background(), 7)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "bob", got.Username)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetUserByID(context.Background(), 99)

		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestUserRepoUpdateSubscription(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	plan := "pro"
	start := time.Now()
	end := start.Add(30 * 24 * time.Hour)

	mock.ExpectExec("UPDATE users").
		WithArgs(int64(7), "active", &plan, &start, &end).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateSubscription(context.Background(), 7, "active", &plan, &start, &end)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
