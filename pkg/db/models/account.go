package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a platform receiving account used as the default charge
// destination. Exactly one row carries the default flag at any time.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID  string    `gorm:"column:stripe_id;not null;unique"`
	Name      string    `gorm:"column:name;not null;default:''"`
	IsDefault bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
