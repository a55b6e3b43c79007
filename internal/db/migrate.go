package db

import (
	"context"

	"gorm.io/gorm"

	"huddle/internal/models"
)

// Migrate performs schema migrations for the persistent models.
func Migrate(ctx context.Context, database *gorm.DB) error {
	return database.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.CompanyInvitation{},
		&models.Channel{},
		&models.ChannelMember{},
		&models.ChannelInvitation{},
		&models.PasswordReset{},
		&models.AuditLog{},
	)
}
