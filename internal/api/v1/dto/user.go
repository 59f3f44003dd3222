package dto

import (
	"time"

	"app/internal/model"
)

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	AvatarURL          string     `json:"avatar_url"`
	Bio                string     `json:"bio"`
	Company            string     `json:"company"`
	Location           string     `json:"location"`
	Website            string     `json:"website"`
	IsActive           bool       `json:"is_active"`
	IsVerified         bool       `json:"is_verified"`
	SubscriptionStatus string     `json:"subscription_status"`
	PlanID             *string    `json:"plan_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
}

// NewUserResponseDTO maps a domain user to its response shape.
func NewUserResponseDTO(u *model.User) UserResponseDTO {
	return UserResponseDTO{
		ID:                 u.ID,
		Username:           u.Username,
		Email:              u.Email,
		FullName:           u.FullName,
		AvatarURL:          u.AvatarURL,
		Bio:                u.Bio,
		Company:            u.Company,
		Location:           u.Location,
		Website:            u.Website,
		IsActive:           u.IsActive,
		IsVerified:         u.IsVerified,
		SubscriptionStatus: u.SubscriptionStatus,
		PlanID:             u.PlanID,
		CreatedAt:          u.CreatedAt,
		LastLoginAt:        u.LastLoginAt,
	}
}

// UserUpdateDTO is used for incoming profile update requests
type UserUpdateDTO struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Company   *string `json:"company,omitempty" validate:"omitempty,max=100"`
	Location  *string `json:"location,omitempty" validate:"omitempty,max=100"`
	Website   *string `json:"website,omitempty" validate:"omitempty,url"`
}

// UserStatsResponseDTO summarizes usage counters for the stats endpoint
type UserStatsResponseDTO struct {
	FileUploadsCount  int   `json:"file_uploads_count"`
	AnalysesCount     int   `json:"analyses_count"`
	StorageUsedBytes  int64 `json:"storage_used_bytes"`
	StorageQuotaBytes int64 `json:"storage_quota_bytes"`
	APICallsCount     int64 `json:"api_calls_count"`
}
