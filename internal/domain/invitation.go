package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "pending"
	InvitationStatusAccepted  InvitationStatus = "accepted"
	InvitationStatusDeclined  InvitationStatus = "declined"
	InvitationStatusExpired   InvitationStatus = "expired"
	InvitationStatusCancelled InvitationStatus = "cancelled"
)

// InvitationTTL is the fixed window a receiver has to respond.
const InvitationTTL = 2 * time.Minute

// GameInvitation is a time-bounded offer to start a battle. Status leaves
// pending exactly once; an invitation past ExpiresAt is treated as expired
// on access regardless of the stored status.
type GameInvitation struct {
	ID              uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SenderID        uuid.UUID        `json:"senderId" gorm:"type:uuid;index;not null"`
	ReceiverID      uuid.UUID        `json:"receiverId" gorm:"type:uuid;index;not null"`
	InvitationType  BattleType       `json:"invitationType" gorm:"not null;default:'friendly'"`
	Status          InvitationStatus `json:"status" gorm:"not null;default:'pending'"`
	SenderCreatures datatypes.JSON   `json:"senderCreatures" gorm:"type:jsonb;default:'[]'"`
	CreatedAt       time.Time        `json:"createdAt"`
	ExpiresAt       time.Time        `json:"expiresAt" gorm:"not null"`
	RespondedAt     *time.Time       `json:"respondedAt"`
	BattleID        *uuid.UUID       `json:"battleId" gorm:"type:uuid"`

	// Relations
	Sender   *Player `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	Receiver *Player `json:"receiver,omitempty" gorm:"foreignKey:ReceiverID"`
	Battle   *Battle `json:"battle,omitempty" gorm:"foreignKey:BattleID"`
}

func (i *GameInvitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// CanRespond reports whether accept/decline is still possible.
func (i *GameInvitation) CanRespond() bool {
	return i.Status == InvitationStatusPending && !i.IsExpired()
}
