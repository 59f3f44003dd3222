package service

import (
	"context"
	"errors"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

// ProfileUpdate carries the optional profile fields of a PATCH request.
// Nil fields are left unchanged.
type ProfileUpdate struct {
	FullName  *string
	AvatarURL *string
	Bio       *string
	Company   *string
	Location  *string
	Website   *string
}

type UserService interface {
	Get(ctx context.Context, id int64) (*model.User, error)
	UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (*model.User, error)
	GetStats(ctx context.Context, id int64) (*model.UserStats, error)
}

type userService struct {
	userRepo   repository.UserRepository
	quotaBytes int64
}

func NewUserService(cfg *config.Config, userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo, quotaBytes: cfg.StorageQuotaBytes}
}

func (s *userService) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.Company != nil {
		u.Company = *upd.Company
	}
	if upd.Location != nil {
		u.Location = *upd.Location
	}
	if upd.Website != nil {
		u.Website = *upd.Website
	}

	if err := s.userRepo.UpdateProfile(ctx, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) GetStats(ctx context.Context, id int64) (*model.UserStats, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.UserStats{
		FileUploadsCount:  u.FileUploadsCount,
		AnalysesCount:     u.AnalysesCount,
		StorageUsedBytes:  u.StorageUsedBytes,
		StorageQuotaBytes: s.quotaBytes,
		APICallsCount:     u.APICallsCount,
	}, nil
}
