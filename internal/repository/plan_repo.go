package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"app/internal/model"
)

// PlanRepository provides read access to the subscription plan catalog.
type PlanRepository interface {
	GetPlans(ctx context.Context) ([]model.SubscriptionPlan, error)
	GetPlanByID(ctx context.Context, planID string) (*model.SubscriptionPlan, error)
	GetPlanByStripePriceID(ctx context.Context, priceID string) (*model.SubscriptionPlan, error)
}

type planRepo struct {
	db *sql.DB
}

func NewPlanRepo(db *sql.DB) PlanRepository {
	return &planRepo{db: db}
}

const planColumns = `id, name, price_cents, billing_period, stripe_price_id, storage_quota_bytes, max_file_size_bytes`

func (r *planRepo) GetPlans(ctx context.Context) ([]model.SubscriptionPlan, error) {
	const q = `SELECT ` + planColumns + ` FROM subscription_plans ORDER BY price_cents ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []model.SubscriptionPlan
	for rows.Next() {
		var p model.SubscriptionPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.BillingPeriod, &p.StripePriceID, &p.StorageQuotaBytes, &p.MaxFileSizeBytes); err != nil {
			return nil, fmt.Errorf("scan plan row: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return plans, nil
}

func (r *planRepo) getPlanWhere(ctx context.Context, where string, arg any) (*model.SubscriptionPlan, error) {
	q := `SELECT ` + planColumns + ` FROM subscription_plans WHERE ` + where
	var p model.SubscriptionPlan
	err := r.db.QueryRowContext(ctx, q, arg).Scan(&p.ID, &p.Name, &p.PriceCents, &p.BillingPeriod, &p.StripePriceID, &p.StorageQuotaBytes, &p.MaxFileSizeBytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch plan: %w", err)
	}
	return &p, nil
}

func (r *planRepo) GetPlanByID(ctx context.Context, planID string) (*model.SubscriptionPlan, error) {
	return r.getPlanWhere(ctx, "id = $1", planID)
}

func (r *planRepo) GetPlanByStripePriceID(ctx context.Context, priceID string) (*model.SubscriptionPlan, error) {
	return r.getPlanWhere(ctx, "stripe_price_id = $1", priceID)
}
