package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is the tenant boundary. Exactly one user owns it, set at
// creation and never reassigned.
type Company struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name    string    `gorm:"type:text;not null"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index"`

	Channels    []Channel           `gorm:"constraint:OnDelete:CASCADE"`
	Invitations []CompanyInvitation `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
