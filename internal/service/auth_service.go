package service

import (
	"context"
	"errors"
	"time"

	"app/internal/config"
	"app/internal/email"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrDuplicateIdentity     = errors.New("username or email already registered")
	ErrInvalidCredentials    = errors.New("incorrect username or password")
	ErrInactiveUser          = errors.New("user account is inactive")
	ErrInvalidRefreshToken   = errors.New("invalid refresh token")
	ErrInvalidVerifyToken    = errors.New("invalid verification token")
	ErrInvalidOrExpiredReset = errors.New("invalid or expired reset token")
)

// TokenPair carries a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Login(ctx context.Context, identity, password string) (*model.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, emailAddr string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type authService struct {
	userRepo   repository.UserRepository
	mailer     email.Sender
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     zerolog.Logger
}

func NewAuthService(cfg *config.Config, userRepo repository.UserRepository, mailer email.Sender, logger zerolog.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		mailer:     mailer,
		jwtSecret:  cfg.JWTSecret,
		accessTTL:  time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
		refreshTTL: time.Duration(cfg.RefreshTokenTTLMinutes) * time.Minute,
		logger:     logger.With().Str("service", "AuthService").Logger(),
	}
}

func (s *authService) Register(ctx context.Context, username, emailAddr, password string) (*model.User, error) {
	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	verifyToken := uuid.NewString()
	u := &model.User{
		Username:          username,
		Email:             emailAddr,
		PasswordHash:      hash,
		IsActive:          true,
		VerificationToken: &verifyToken,
	}
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}

	// Delivery failure must not fail registration; the token stays valid.
	if err := s.mailer.SendVerification(u.Email, u.Username, verifyToken); err != nil {
		s.logger.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to send verification email")
	}
	return u, nil
}

func (s *authService) Login(ctx context.Context, identity, password string) (*model.User, *TokenPair, error) {
	u, err := s.userRepo.GetUserByUsernameOrEmail(ctx, identity, identity)
	if err != nil {
		return nil, nil, err
	}
	if u == nil || !util.VerifyPassword(password, u.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, nil, ErrInactiveUser
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, nil, err
	}
	if err := s.userRepo.UpdateLastLogin(ctx, u.ID); err != nil {
		s.logger.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to record last login")
	}
	return u, pair, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := util.ValidateJWT(refreshToken, s.jwtSecret, util.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, ErrInvalidRefreshToken
	}
	return s.issuePair(u)
}

func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	u, err := s.userRepo.GetUserByVerificationToken(ctx, token)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrInvalidVerifyToken
	}
	return s.userRepo.MarkVerified(ctx, u.ID)
}

// ForgotPassword always succeeds for unknown addresses so the endpoint does
// not leak which emails are registered.
func (s *authService) ForgotPassword(ctx context.Context, emailAddr string) error {
	u, err := s.userRepo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}

	token := uuid.NewString()
	if err := s.userRepo.SetResetToken(ctx, u.ID, token, time.Now().Add(time.Hour)); err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(u.Email, u.Username, token); err != nil {
		s.logger.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to send password reset email")
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	u, err := s.userRepo.GetUserByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if u == nil || u.ResetTokenExpiresAt == nil || time.Now().After(*u.ResetTokenExpiresAt) {
		return ErrInvalidOrExpiredReset
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, u.ID, hash)
}

func (s *authService) issuePair(u *model.User) (*TokenPair, error) {
	access, err := util.GenerateJWT(u.ID, u.Username, util.TokenTypeAccess, s.jwtSecret, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := util.GenerateJWT(u.ID, u.Username, util.TokenTypeRefresh, s.jwtSecret, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
