package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charge mirrors a Stripe charge. Rows are upserted by stripe_id and never
// deleted locally.
type Charge struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index"`
	StripeID       string          `gorm:"column:stripe_id;not null;unique"`
	InvoiceID      *uuid.UUID      `gorm:"column:invoice_id;type:uuid"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	AmountRefunded decimal.Decimal `gorm:"column:amount_refunded;type:numeric(12,2);not null;default:0"`
	Currency       string          `gorm:"column:currency;not null;default:'usd'"`
	Paid           bool            `gorm:"column:paid;not null;default:false"`
	Disputed       bool            `gorm:"column:disputed;not null;default:false"`
	Refunded       bool            `gorm:"column:refunded;not null;default:false"`
	Captured       bool            `gorm:"column:captured;not null;default:false"`
	Description    *string         `gorm:"column:description"`
	ChargeCreated  *time.Time      `gorm:"column:charge_created"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
