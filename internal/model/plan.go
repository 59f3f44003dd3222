package model

// SubscriptionPlan describes one entry of the plan catalog.
type SubscriptionPlan struct {
	ID                string  `db:"id" json:"id"`
	Name              string  `db:"name" json:"name"`
	PriceCents        int64   `db:"price_cents" json:"price_cents"`
	BillingPeriod     string  `db:"billing_period" json:"billing_period"`
	StripePriceID     *string `db:"stripe_price_id" json:"-"`
	StorageQuotaBytes int64   `db:"storage_quota_bytes" json:"storage_quota_bytes"`
	MaxFileSizeBytes  int64   `db:"max_file_size_bytes" json:"max_file_size_bytes"`
}
