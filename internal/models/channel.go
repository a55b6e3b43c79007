package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel visibility types.
const (
	ChannelPublic  = "public"
	ChannelPrivate = "private"
)

// Channel membership roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Channel groups users within a company. Deleting a channel flips
// IsActive to false; rows are never purged.
type Channel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	Name        string    `gorm:"type:text;not null"`
	Description *string   `gorm:"type:text"`
	Type        string    `gorm:"type:text;not null"`
	IsActive    bool      `gorm:"not null;default:true"`

	Company     Company             `gorm:"constraint:OnDelete:CASCADE;foreignKey:CompanyID;references:ID"`
	Members     []ChannelMember     `gorm:"constraint:OnDelete:CASCADE"`
	Invitations []ChannelInvitation `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Public reports whether the channel is visible company-wide.
func (c *Channel) Public() bool { return c.Type == ChannelPublic }

// ChannelMember ties a user to a channel with a role. One row per
// (channel, user) pair.
type ChannelMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChannelID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_channel_user"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_channel_user"`
	Role      string    `gorm:"type:text;not null;default:member"`
	JoinedAt  time.Time `gorm:"not null;autoCreateTime"`

	User User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`
}
