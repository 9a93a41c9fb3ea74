package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Customer mirrors a Stripe customer account. The row is never deleted:
// detaching the subscriber and clearing the card fields ("purging") keeps the
// stripe_id and any child Charges intact for financial history.
type Customer struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriberID    *uuid.UUID `gorm:"column:subscriber_id;type:uuid;index"`
	StripeID        string     `gorm:"column:stripe_id;not null;unique"`
	CardFingerprint string     `gorm:"column:card_fingerprint;not null;default:''"`
	CardLast4       string     `gorm:"column:card_last_4;not null;default:''"`
	CardKind        string     `gorm:"column:card_kind;not null;default:''"`
	CardExpMonth    int        `gorm:"column:card_exp_month;not null;default:0"`
	CardExpYear     int        `gorm:"column:card_exp_year;not null;default:0"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Purged reports whether the record has been detached from its subscriber.
func (c *Customer) Purged() bool {
	return c.SubscriberID == nil
}

// String implements fmt.Stringer.
func (c *Customer) String() string {
	return fmt.Sprintf("<customer %s, stripe_id=%s>", c.ID, c.StripeID)
}
