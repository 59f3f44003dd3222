package dto

import "app/internal/model"

// PlanResponseDTO is returned in API responses for subscription plans
type PlanResponseDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	PriceCents        int64  `json:"price_cents"`
	BillingPeriod     string `json:"billing_period"`
	StorageQuotaBytes int64  `json:"storage_quota_bytes"`
	MaxFileSizeBytes  int64  `json:"max_file_size_bytes"`
}

// NewPlanResponseDTO maps a domain plan to its response shape.
func NewPlanResponseDTO(p *model.SubscriptionPlan) PlanResponseDTO {
	return PlanResponseDTO{
		ID:                p.ID,
		Name:              p.Name,
		PriceCents:        p.PriceCents,
		BillingPeriod:     p.BillingPeriod,
		StorageQuotaBytes: p.StorageQuotaBytes,
		MaxFileSizeBytes:  p.MaxFileSizeBytes,
	}
}

// CheckoutRequestDTO starts a Stripe checkout for a plan
type CheckoutRequestDTO struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// CheckoutSessionResponseDTO returns the hosted Stripe URL to redirect to
type CheckoutSessionResponseDTO struct {
	URL string `json:"url"`
}
