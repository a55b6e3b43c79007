package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account belonging to a company.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"type:text;not null"`
	Email        string    `gorm:"type:text;uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:text;not null"`

	EmailVerifiedAt                 *time.Time
	EmailVerificationToken          *string `gorm:"type:text;uniqueIndex"`
	EmailVerificationTokenExpiresAt *time.Time

	// APIToken is the single active session token; rotated on login,
	// cleared on logout.
	APIToken *string `gorm:"type:text;uniqueIndex"`

	CompanyID *uuid.UUID `gorm:"type:uuid;index"`
	Company   *Company   `gorm:"foreignKey:CompanyID;references:ID"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// EmailVerified reports whether the user has confirmed their address.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}
