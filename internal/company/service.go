// Package company implements employee invitations and membership
// management for a tenant.
package company

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"huddle/internal/apperr"
	"huddle/internal/audit"
	"huddle/internal/auth"
	"huddle/internal/mail"
	"huddle/internal/models"
	"huddle/internal/token"
)

// Config carries the tunables the service needs.
type Config struct {
	BaseURL       string
	InvitationTTL time.Duration
	BcryptCost    int
}

// Service implements the company invitation engine.
type Service struct {
	db     *gorm.DB
	outbox mail.Outbox
	audit  *audit.Recorder
	log    zerolog.Logger
	cfg    Config
}

// NewService constructs the company service.
func NewService(db *gorm.DB, outbox mail.Outbox, rec *audit.Recorder, log zerolog.Logger, cfg Config) *Service {
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = 7 * 24 * time.Hour
	}
	return &Service{db: db, outbox: outbox, audit: rec, log: log, cfg: cfg}
}

// RequireOwner verifies that user is the owner of their company.
func (s *Service) RequireOwner(ctx context.Context, user models.User) error {
	if user.CompanyID == nil {
		return apperr.Unauthorized("Only company owner can perform this action")
	}

	var comp models.Company
	err := s.db.WithContext(ctx).First(&comp, "id = ?", user.CompanyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Unauthorized("Only company owner can perform this action")
	}
	if err != nil {
		return err
	}
	if comp.OwnerID != user.ID {
		return apperr.Unauthorized("Only company owner can perform this action")
	}
	return nil
}

// InviteEmployee creates a pending invitation for the owner's company
// and emails the accept link. At most one pending invitation exists per
// (company, email).
func (s *Service) InviteEmployee(ctx context.Context, owner models.User, email, name string) (models.CompanyInvitation, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return models.CompanyInvitation{}, err
	}
	if count > 0 {
		return models.CompanyInvitation{}, apperr.Unauthorized("A user with this email already exists")
	}

	now := time.Now().UTC()
	var existing models.CompanyInvitation
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND email = ? AND status = ? AND expires_at > ?",
			owner.CompanyID, email, models.InvitationPending, now).
		First(&existing).Error
	if err == nil {
		return models.CompanyInvitation{}, apperr.Unauthorized("Invitation already sent to this email")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CompanyInvitation{}, err
	}

	inv := models.CompanyInvitation{
		ID:        uuid.New(),
		CompanyID: *owner.CompanyID,
		Email:     email,
		Name:      name,
		Token:     token.New(token.InvitationLength),
		Status:    models.InvitationPending,
		ExpiresAt: now.Add(s.cfg.InvitationTTL),
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return models.CompanyInvitation{}, err
	}

	var comp models.Company
	if err := s.db.WithContext(ctx).First(&comp, "id = ?", inv.CompanyID).Error; err != nil {
		return models.CompanyInvitation{}, err
	}

	s.outbox.Dispatch(ctx, mail.CompanyInvitation(inv.Email, inv.Name, comp.Name, s.acceptURL(inv.Token)))
	s.audit.Record(ctx, &owner.ID, "company.invite", "company_invitation", inv.ID.String(), map[string]any{"email": inv.Email})

	return inv, nil
}

// AcceptResult is the outcome of accepting a company invitation.
type AcceptResult struct {
	User    models.User
	Company models.Company

	// GeneratedPassword is set only when the caller did not choose a
	// password. It is disclosed exactly once, here, and also mailed to
	// the invitee.
	GeneratedPassword string
}

// AcceptInvitation consumes a pending invitation and creates the
// employee account. password nil means the link was followed directly
// and a random password is generated and emailed.
func (s *Service) AcceptInvitation(ctx context.Context, invToken string, password *string) (AcceptResult, error) {
	now := time.Now().UTC()

	var inv models.CompanyInvitation
	err := s.db.WithContext(ctx).
		Where("token = ? AND status = ? AND expires_at > ?", invToken, models.InvitationPending, now).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AcceptResult{}, apperr.NotFound("Invalid or expired invitation")
	}
	if err != nil {
		return AcceptResult{}, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", inv.Email).Count(&count).Error; err != nil {
		return AcceptResult{}, err
	}
	if count > 0 {
		return AcceptResult{}, apperr.Unauthorized("A user with this email already exists")
	}

	generated := ""
	plaintext := ""
	if password != nil {
		plaintext = *password
	} else {
		generated = token.New(token.PasswordLength)
		plaintext = generated
	}

	hash, err := auth.HashPassword(plaintext, s.cfg.BcryptCost)
	if err != nil {
		return AcceptResult{}, err
	}

	apiToken := token.New(token.SessionLength)
	verifiedAt := now

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user = models.User{
			ID:           uuid.New(),
			Name:         inv.Name,
			Email:        inv.Email,
			PasswordHash: hash,
			// Receiving the invitation email proves address ownership.
			EmailVerifiedAt: &verifiedAt,
			APIToken:        &apiToken,
			CompanyID:       &inv.CompanyID,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Model(&inv).Update("status", models.InvitationAccepted).Error
	})
	if err != nil {
		return AcceptResult{}, err
	}

	var comp models.Company
	if err := s.db.WithContext(ctx).First(&comp, "id = ?", inv.CompanyID).Error; err != nil {
		return AcceptResult{}, err
	}

	if generated != "" {
		s.outbox.Dispatch(ctx, mail.Credentials(user.Email, user.Name, user.Email, generated, s.cfg.BaseURL+"/login"))
	}
	s.audit.Record(ctx, &user.ID, "company.invitation.accept", "company_invitation", inv.ID.String(), nil)

	return AcceptResult{User: user, Company: comp, GeneratedPassword: generated}, nil
}

// ListInvitations returns the pending invitations of the owner's company.
func (s *Service) ListInvitations(ctx context.Context, owner models.User) ([]models.CompanyInvitation, error) {
	var invs []models.CompanyInvitation
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND status = ? AND expires_at > ?",
			owner.CompanyID, models.InvitationPending, time.Now().UTC()).
		Order("created_at DESC").
		Find(&invs).Error
	return invs, err
}

// CancelInvitation deletes a pending invitation of the owner's company.
func (s *Service) CancelInvitation(ctx context.Context, owner models.User, id uuid.UUID) error {
	var inv models.CompanyInvitation
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ? AND status = ?", id, owner.CompanyID, models.InvitationPending).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Invitation not found")
	}
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&inv).Error; err != nil {
		return err
	}

	s.audit.Record(ctx, &owner.ID, "company.invitation.cancel", "company_invitation", inv.ID.String(), nil)
	return nil
}

// RemoveEmployee deletes an employee together with their channel
// memberships and pending channel invitations, in one transaction. The
// owner cannot be removed.
func (s *Service) RemoveEmployee(ctx context.Context, owner models.User, employeeID uuid.UUID) error {
	var employee models.User
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", employeeID, owner.CompanyID).
		First(&employee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Employee not found")
	}
	if err != nil {
		return err
	}

	if employee.ID == owner.ID {
		return apperr.Unauthorized("Company owner cannot be removed")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", employee.ID).Delete(&models.ChannelMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invited_user_id = ? AND status = ?", employee.ID, models.InvitationPending).
			Delete(&models.ChannelInvitation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&employee).Error
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, &owner.ID, "company.employee.remove", "user", employee.ID.String(), nil)
	return nil
}

func (s *Service) acceptURL(t string) string {
	return fmt.Sprintf("%s/api/accept-invitation/%s", s.cfg.BaseURL, t)
}
