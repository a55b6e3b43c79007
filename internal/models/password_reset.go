package models

import "time"

// PasswordReset stores the single active reset token per email. The row
// is upserted on each forgot-password request and deleted once used.
type PasswordReset struct {
	Email     string    `gorm:"type:text;primaryKey"`
	Token     string    `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
