package service

import (
	"context"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanRepo struct {
	plans []model.SubscriptionPlan
}

func (r *fakePlanRepo) GetPlans(_ context.Context) ([]model.SubscriptionPlan, error) {
	return r.plans, nil
}

func (r *fakePlanRepo) GetPlanByID(_ context.Context, id string) (*model.SubscriptionPlan, error) {
	for i := range r.plans {
		if r.plans[i].ID == id {
			return &r.plans[i], nil
		}
	}
	return nil, nil
}

func (r *fakePlanRepo) GetPlanByStripePriceID(_ context.Context, priceID string) (*model.SubscriptionPlan, error) {
	for i := range r.plans {
		if p := r.plans[i].StripePriceID; p != nil && *p == priceID {
			return &r.plans[i], nil
		}
	}
	return nil, nil
}

func testPlanRepo() *fakePlanRepo {
	proPrice := "price_pro"
	return &fakePlanRepo{plans: []model.SubscriptionPlan{
		{ID: "free", Name: "Free", PriceCents: 0, BillingPeriod: "monthly"},
		{ID: "pro", Name: "Pro", PriceCents: 1900, BillingPeriod: "monthly", StripePriceID: &proPrice},
	}}
}

func TestSubscriptionServiceGetPlan(t *testing.T) {
	svc := NewSubscriptionService(newFakeUserRepo(), testPlanRepo(), zerolog.Nop())
	ctx := context.Background()

	p, err := svc.GetPlan(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, int64(1900), p.PriceCents)

	_, err = svc.GetPlan(ctx, "enterprise")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSubscriptionServiceApplyStripeSubscription(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewSubscriptionService(userRepo, testPlanRepo(), zerolog.Nop())
	ctx := context.Background()

	u := &model.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, userRepo.CreateUser(ctx, u))

	start := time.Now()
	end := start.AddDate(0, 1, 0)
	require.NoError(t, svc.ApplyStripeSubscription(ctx, u.ID, "price_pro", "active", start, end))

	stored, err := userRepo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", stored.SubscriptionStatus)
	require.NotNil(t, stored.PlanID)
	assert.Equal(t, "pro", *stored.PlanID)
	require.NotNil(t, stored.SubscriptionEnd)
	assert.True(t, stored.SubscriptionEnd.Equal(end))
}

func TestSubscriptionServiceApplyUnknownPrice(t *testing.T) {
	svc := NewSubscriptionService(newFakeUserRepo(), testPlanRepo(), zerolog.Nop())

	err := svc.ApplyStripeSubscription(context.Background(), 1, "price_unknown", "active", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSubscriptionServiceDowngradeToFree(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewSubscriptionService(userRepo, testPlanRepo(), zerolog.Nop())
	ctx := context.Background()

	u := &model.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, userRepo.CreateUser(ctx, u))
	require.NoError(t, svc.ApplyStripeSubscription(ctx, u.ID, "price_pro", "active", time.Now(), time.Now().AddDate(0, 1, 0)))

	require.NoError(t, svc.DowngradeToFree(ctx, u.ID))

	stored, err := userRepo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "free", stored.SubscriptionStatus)
	assert.Nil(t, stored.PlanID)
	assert.Nil(t, stored.SubscriptionEnd)
}
