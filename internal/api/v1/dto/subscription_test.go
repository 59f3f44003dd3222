package dto

import (
	"testing"

	"app/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestNewPlanResponseDTO(t *testing.T) {
	priceID := "price_123"
	p := &model.SubscriptionPlan{
		ID:                "pro-annual",
		Name:              "Pro (annual)",
		PriceCents:        9_000_000_000, // beyond int32 range
		BillingPeriod:     "yearly",
		StripePriceID:     &priceID,
		StorageQuotaBytes: 10 << 30,
		MaxFileSizeBytes:  100 << 20,
	}

	resp := NewPlanResponseDTO(p)
	assert.Equal(t, "pro-annual", resp.ID)
	assert.Equal(t, "Pro (annual)", resp.Name)
	assert.Equal(t, int64(9_000_000_000), resp.PriceCents)
	assert.Equal(t, "yearly", resp.BillingPeriod)
	assert.Equal(t, int64(10<<30), resp.StorageQuotaBytes)
	assert.Equal(t, int64(100<<20), resp.MaxFileSizeBytes)
}
