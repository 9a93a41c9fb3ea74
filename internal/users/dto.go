package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
)

// SubscriberDTO is the transport shape for a subscriber.
type SubscriberDTO struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateSubscriberDTO holds the data required to persist a new subscriber.
type CreateSubscriberDTO struct {
	Email     string
	FirstName string
	LastName  string
}

func FromModel(u *models.User) *SubscriberDTO {
	if u == nil {
		return nil
	}
	return &SubscriberDTO{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (dto CreateSubscriberDTO) ToModel() *models.User {
	return &models.User{
		Email:     strings.TrimSpace(strings.ToLower(dto.Email)),
		FirstName: strings.TrimSpace(dto.FirstName),
		LastName:  strings.TrimSpace(dto.LastName),
		IsActive:  true,
	}
}
