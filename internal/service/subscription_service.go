package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var ErrPlanNotFound = errors.New("subscription plan not found")

type SubscriptionService interface {
	GetPlans(ctx context.Context) ([]model.SubscriptionPlan, error)
	GetPlan(ctx context.Context, planID string) (*model.SubscriptionPlan, error)
	// ApplyStripeSubscription maps a Stripe price to a local plan and stores
	// the subscription state on the user row.
	ApplyStripeSubscription(ctx context.Context, userID int64, priceID, status string, start, end time.Time) error
	DowngradeToFree(ctx context.Context, userID int64) error
}

type subscriptionService struct {
	userRepo repository.UserRepository
	planRepo repository.PlanRepository
	logger   zerolog.Logger
}

func NewSubscriptionService(userRepo repository.UserRepository, planRepo repository.PlanRepository, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		userRepo: userRepo,
		planRepo: planRepo,
		logger:   logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) GetPlans(ctx context.Context) ([]model.SubscriptionPlan, error) {
	return s.planRepo.GetPlans(ctx)
}

func (s *subscriptionService) GetPlan(ctx context.Context, planID string) (*model.SubscriptionPlan, error) {
	p, err := s.planRepo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPlanNotFound
	}
	return p, nil
}

func (s *subscriptionService) ApplyStripeSubscription(ctx context.Context, userID int64, priceID, status string, start, end time.Time) error {
	plan, err := s.planRepo.GetPlanByStripePriceID(ctx, priceID)
	if err != nil {
		return err
	}
	if plan == nil {
		return fmt.Errorf("%w: no plan for stripe price %s", ErrPlanNotFound, priceID)
	}
	s.logger.Info().Int64("user_id", userID).Str("plan_id", plan.ID).Str("status", status).Msg("Applying subscription update")
	return s.userRepo.UpdateSubscription(ctx, userID, status, &plan.ID, &start, &end)
}

func (s *subscriptionService) DowngradeToFree(ctx context.Context, userID int64) error {
	s.logger.Info().Int64("user_id", userID).Msg("Downgrading user to free plan")
	return s.userRepo.UpdateSubscription(ctx, userID, "free", nil, nil, nil)
}
