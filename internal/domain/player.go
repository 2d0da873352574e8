package domain

import (
	"time"

	"github.com/google/uuid"
)

type Player struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Username   string    `json:"username" gorm:"uniqueIndex;not null"`
	Experience int       `json:"experience" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
