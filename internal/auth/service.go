// Package auth implements signup, login, email verification, and the
// password reset flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"huddle/internal/apperr"
	"huddle/internal/audit"
	"huddle/internal/mail"
	"huddle/internal/models"
	"huddle/internal/token"
)

// Config carries the tunables the service needs.
type Config struct {
	BaseURL         string
	VerificationTTL time.Duration
	BcryptCost      int
}

// Service implements the identity and session operations.
type Service struct {
	db     *gorm.DB
	outbox mail.Outbox
	audit  *audit.Recorder
	log    zerolog.Logger
	cfg    Config
}

// NewService constructs the auth service.
func NewService(db *gorm.DB, outbox mail.Outbox, rec *audit.Recorder, log zerolog.Logger, cfg Config) *Service {
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = 24 * time.Hour
	}
	return &Service{db: db, outbox: outbox, audit: rec, log: log, cfg: cfg}
}

// Signup registers a user and creates their company in one transaction.
// The verification email goes out only after the transaction commits.
func (s *Service) Signup(ctx context.Context, name, email, password string) (models.User, models.Company, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return models.User{}, models.Company{}, err
	}
	if count > 0 {
		return models.User{}, models.Company{}, apperr.ValidationFields("Validation failed", map[string][]string{
			"email": {"The email has already been taken."},
		})
	}

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return models.User{}, models.Company{}, err
	}

	verifyToken := token.New(token.VerificationLength)
	verifyExpiry := time.Now().UTC().Add(s.cfg.VerificationTTL)

	var user models.User
	var company models.Company

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user = models.User{
			ID:                              uuid.New(),
			Name:                            name,
			Email:                           email,
			PasswordHash:                    hash,
			EmailVerificationToken:          &verifyToken,
			EmailVerificationTokenExpiresAt: &verifyExpiry,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		company = models.Company{
			ID:      uuid.New(),
			Name:    name + "'s Company",
			OwnerID: user.ID,
		}
		if err := tx.Create(&company).Error; err != nil {
			return err
		}

		user.CompanyID = &company.ID
		return tx.Model(&user).Update("company_id", company.ID).Error
	})
	if err != nil {
		return models.User{}, models.Company{}, err
	}

	s.outbox.Dispatch(ctx, mail.Verification(user.Email, user.Name, s.verifyURL(verifyToken)))
	s.audit.Record(ctx, &user.ID, "user.signup", "user", user.ID.String(), map[string]any{"email": user.Email})

	return user, company, nil
}

// Login verifies credentials and rotates the user's API token.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !CheckPassword(user.PasswordHash, password)) {
		return models.User{}, apperr.Authentication("Invalid credentials")
	}
	if err != nil {
		return models.User{}, err
	}

	if !user.EmailVerified() {
		return models.User{}, apperr.Unauthorized("Please verify your email address before logging in")
	}

	apiToken := token.New(token.SessionLength)
	if err := s.db.WithContext(ctx).Model(&user).Update("api_token", apiToken).Error; err != nil {
		return models.User{}, err
	}
	user.APIToken = &apiToken

	s.audit.Record(ctx, &user.ID, "user.login", "user", user.ID.String(), nil)
	return user, nil
}

// Logout clears the session bound to the token. An unknown token is not
// an error.
func (s *Service) Logout(ctx context.Context, apiToken string) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("api_token = ?", apiToken).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&user).Update("api_token", nil).Error
}

// UserByAPIToken resolves a bearer token to its user.
func (s *Service) UserByAPIToken(ctx context.Context, apiToken string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("api_token = ?", apiToken).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, apperr.Authentication("Invalid or expired token")
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// VerifyEmail consumes an unexpired verification token. Expired tokens
// behave exactly like unknown ones.
func (s *Service) VerifyEmail(ctx context.Context, verifyToken string) error {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email_verification_token = ?", verifyToken).
		Where("email_verification_token_expires_at > ?", time.Now().UTC()).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Invalid or expired verification token")
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"email_verified_at":                   now,
		"email_verification_token":            nil,
		"email_verification_token_expires_at": nil,
	}).Error
}

// ResendVerification regenerates the verification token and resends the
// email. Fails if the address is already verified.
func (s *Service) ResendVerification(ctx context.Context, user models.User) error {
	if user.EmailVerified() {
		return apperr.Unauthorized("Email is already verified")
	}

	verifyToken := token.New(token.VerificationLength)
	verifyExpiry := time.Now().UTC().Add(s.cfg.VerificationTTL)

	err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"email_verification_token":            verifyToken,
		"email_verification_token_expires_at": verifyExpiry,
	}).Error
	if err != nil {
		return err
	}

	s.outbox.Dispatch(ctx, mail.Verification(user.Email, user.Name, s.verifyURL(verifyToken)))
	return nil
}

// ForgotPassword upserts the reset record for the address and emails the
// reset link. It deliberately does not check that a user exists for the
// address, so the endpoint cannot be used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	resetToken := token.New(token.ResetLength)

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "created_at"}),
	}).Create(&models.PasswordReset{
		Email:     email,
		Token:     resetToken,
		CreatedAt: time.Now().UTC(),
	}).Error
	if err != nil {
		return err
	}

	s.outbox.Dispatch(ctx, mail.PasswordReset(email, fmt.Sprintf("%s/reset-password/%s", s.cfg.BaseURL, resetToken)))
	return nil
}

// ResetPassword consumes a reset token and updates the user's password.
func (s *Service) ResetPassword(ctx context.Context, resetToken, password string) error {
	var reset models.PasswordReset
	err := s.db.WithContext(ctx).Where("token = ?", resetToken).First(&reset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Invalid token")
	}
	if err != nil {
		return err
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", reset.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return err
	}

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Where("email = ?", reset.Email).Delete(&models.PasswordReset{}).Error
	})
}

func (s *Service) verifyURL(t string) string {
	return fmt.Sprintf("%s/api/verify-email/%s", s.cfg.BaseURL, t)
}
