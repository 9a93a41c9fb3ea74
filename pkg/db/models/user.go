package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the subscriber entity billing records hang off of.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string     `gorm:"type:text;not null;uniqueIndex"`
	FirstName string     `gorm:"column:first_name;not null;default:''"`
	LastName  string     `gorm:"column:last_name;not null;default:''"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	DeletedAt *time.Time `gorm:"column:deleted_at;index"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
