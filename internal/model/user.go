package model

import "time"

// User represents an account in the system.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`

	FullName  string `db:"full_name" json:"full_name"`
	AvatarURL string `db:"avatar_url" json:"avatar_url"`
	Bio       string `db:"bio" json:"bio"`
	Company   string `db:"company" json:"company"`
	Location  string `db:"location" json:"location"`
	Website   string `db:"website" json:"website"`

	IsActive    bool `db:"is_active" json:"is_active"`
	IsVerified  bool `db:"is_verified" json:"is_verified"`
	IsSuperuser bool `db:"is_superuser" json:"is_superuser"`

	VerificationToken   *string    `db:"verification_token" json:"-"`
	ResetToken          *string    `db:"reset_token" json:"-"`
	ResetTokenExpiresAt *time.Time `db:"reset_token_expires_at" json:"-"`

	SubscriptionStatus string     `db:"subscription_status" json:"subscription_status"`
	PlanID             *string    `db:"plan_id" json:"plan_id,omitempty"`
	StripeCustomerID   *string    `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	SubscriptionStart  *time.Time `db:"subscription_start" json:"subscription_start,omitempty"`
	SubscriptionEnd    *time.Time `db:"subscription_end" json:"subscription_end,omitempty"`

	FileUploadsCount int   `db:"file_uploads_count" json:"file_uploads_count"`
	AnalysesCount    int   `db:"analyses_count" json:"analyses_count"`
	StorageUsedBytes int64 `db:"storage_used_bytes" json:"storage_used_bytes"`
	APICallsCount    int64 `db:"api_calls_count" json:"api_calls_count"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// IsPremium reports whether the user is on a paying plan.
func (u *User) IsPremium() bool {
	return u.SubscriptionStatus == "trial" || u.SubscriptionStatus == "active"
}

// UserStats summarizes a user's usage counters.
type UserStats struct {
	FileUploadsCount  int   `json:"file_uploads_count"`
	AnalysesCount     int   `json:"analyses_count"`
	StorageUsedBytes  int64 `json:"storage_used_bytes"`
	StorageQuotaBytes int64 `json:"storage_quota_bytes"`
	APICallsCount     int64 `json:"api_calls_count"`
}
