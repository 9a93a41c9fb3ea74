package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice mirrors a Stripe invoice for a customer.
type Invoice struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID  uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index"`
	StripeID    string          `gorm:"column:stripe_id;not null;unique"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	Paid        bool            `gorm:"column:paid;not null;default:false"`
	Attempted   bool            `gorm:"column:attempted;not null;default:false"`
	Closed      bool            `gorm:"column:closed;not null;default:false"`
	PeriodStart *time.Time      `gorm:"column:period_start"`
	PeriodEnd   *time.Time      `gorm:"column:period_end"`
	Date        *time.Time      `gorm:"column:date"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
