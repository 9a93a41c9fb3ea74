package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidcastellano/ledgerpay-backend/pkg/enums"
)

// CurrentSubscription is the denormalized snapshot of a customer's Stripe
// subscription. At most one row exists per customer; each reconciliation pass
// replaces the fields wholesale rather than merging.
type CurrentSubscription struct {
	ID                 uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;uniqueIndex"`
	PlanID             string                   `gorm:"column:plan_id;not null"`
	Quantity           int                      `gorm:"column:quantity;not null;default:1"`
	Amount             decimal.Decimal          `gorm:"column:amount;type:numeric(12,2);not null"`
	Status             enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	Start              *time.Time               `gorm:"column:start"`
	CurrentPeriodStart *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd   *time.Time               `gorm:"column:current_period_end"`
	TrialStart         *time.Time               `gorm:"column:trial_start"`
	TrialEnd           *time.Time               `gorm:"column:trial_end"`
	CancelAtPeriodEnd  bool                     `gorm:"column:cancel_at_period_end;not null;default:false"`
	CanceledAt         *time.Time               `gorm:"column:canceled_at"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
