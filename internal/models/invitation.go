package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation lifecycle states shared by company and channel invitations.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationExpired  = "expired"
)

// CompanyInvitation invites a prospective employee by email.
type CompanyInvitation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Email     string    `gorm:"type:text;not null;index"`
	Name      string    `gorm:"type:text;not null"`
	Token     string    `gorm:"type:text;uniqueIndex;not null"`
	Status    string    `gorm:"type:text;not null;default:pending"`
	ExpiresAt time.Time `gorm:"not null"`

	Company Company `gorm:"constraint:OnDelete:CASCADE;foreignKey:CompanyID;references:ID"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Pending reports whether the invitation can still be accepted.
func (i *CompanyInvitation) Pending(now time.Time) bool {
	return i.Status == InvitationPending && now.Before(i.ExpiresAt)
}

// ChannelInvitation invites an existing same-company user into a channel.
type ChannelInvitation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChannelID     uuid.UUID `gorm:"type:uuid;not null;index"`
	InvitedBy     uuid.UUID `gorm:"type:uuid;not null"`
	InvitedUserID uuid.UUID `gorm:"type:uuid;not null;index"`
	Token         string    `gorm:"type:text;uniqueIndex;not null"`
	Status        string    `gorm:"type:text;not null;default:pending"`
	ExpiresAt     time.Time `gorm:"not null"`

	Channel     Channel `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChannelID;references:ID"`
	InvitedUser User    `gorm:"foreignKey:InvitedUserID;references:ID"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Pending reports whether the invitation can still be accepted.
func (i *ChannelInvitation) Pending(now time.Time) bool {
	return i.Status == InvitationPending && now.Before(i.ExpiresAt)
}
