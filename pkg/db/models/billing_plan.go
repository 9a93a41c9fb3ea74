package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingPlan is the local catalog row a Stripe plan id resolves to.
type BillingPlan struct {
	ID           string          `gorm:"column:id;primaryKey"`
	Name         string          `gorm:"column:name;not null"`
	StripePlanID string          `gorm:"column:stripe_plan_id;not null;uniqueIndex"`
	PriceAmount  decimal.Decimal `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode string          `gorm:"column:currency_code;not null;default:'usd'"`
	TrialDays    int             `gorm:"column:trial_days;not null;default:0"`
	IsDefault    bool            `gorm:"column:is_default;not null;default:false"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
