// Package channel implements channels, membership, and the channel
// invitation workflow.
package channel

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
	"huddle/internal/mail"
	"huddle/internal/models"
	"huddle/internal/token"
)

// Config carries the tunables the service needs.
type Config struct {
	BaseURL       string
	InvitationTTL time.Duration
}

// Service implements the channel operations.
type Service struct {
	db     *gorm.DB
	outbox mail.Outbox
	audit  *audit.Recorder
	log    zerolog.Logger
	cfg    Config
}

// NewService constructs the channel service.
func NewService(db *gorm.DB, outbox mail.Outbox, rec *audit.Recorder, log zerolog.Logger, cfg Config) *Service {
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = 7 * 24 * time.Hour
	}
	return &Service{db: db, outbox: outbox, audit: rec, log: log, cfg: cfg}
}

// VisibleTo reports whether user can see the channel. Public channels
// are visible company-wide; private channels only to their creator and
// the company owner.
func VisibleTo(ch models.Channel, companyOwnerID uuid.UUID, user models.User) bool {
	if user.CompanyID == nil || *user.CompanyID != ch.CompanyID {
		return false
	}
	if ch.Public() {
		return true
	}
	return user.ID == ch.CreatedBy || user.ID == companyOwnerID
}

// Create makes a channel in the user's company and adds the creator as
// its admin member, in one transaction.
func (s *Service) Create(ctx context.Context, user models.User, name string, description *string, channelType string) (models.Channel, error) {
	ch := models.Channel{
		ID:          uuid.New(),
		CompanyID:   *user.CompanyID,
		CreatedBy:   user.ID,
		Name:        name,
		Description: description,
		Type:        channelType,
		IsActive:    true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ch).Error; err != nil {
			return err
		}
		return tx.Create(&models.ChannelMember{
			ID:        uuid.New(),
			ChannelID: ch.ID,
			UserID:    user.ID,
			Role:      models.RoleAdmin,
			JoinedAt:  time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return models.Channel{}, err
	}

	s.audit.Record(ctx, &user.ID, "channel.create", "channel", ch.ID.String(), map[string]any{"name": ch.Name, "type": ch.Type})
	return ch, nil
}

// Summary is a channel row enriched for listing.
type Summary struct {
	Channel     models.Channel
	CreatorName string
	IsMember    bool
	MemberCount int64
}

// VisibleChannels returns the active channels of the user's company that
// the visibility predicate admits, enriched for the list response.
func (s *Service) VisibleChannels(ctx context.Context, user models.User) ([]Summary, error) {
	ownerID, err := s.companyOwnerID(ctx, *user.CompanyID)
	if err != nil {
		return nil, err
	}

	var channels []models.Channel
	err = s.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", user.CompanyID, true).
		Order("created_at ASC").
		Find(&channels).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(channels))
	for _, ch := range channels {
		if !VisibleTo(ch, ownerID, user) {
			continue
		}
		summary, err := s.summarize(ctx, ch, user)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Member describes a channel member for the details response.
type Member struct {
	UserID   uuid.UUID
	Name     string
	Email    string
	Role     string
	JoinedAt time.Time
}

// Details describes a channel with its member list.
type Details struct {
	Summary
	Members []Member
}

// ChannelDetails loads the member list for an already-resolved channel.
func (s *Service) ChannelDetails(ctx context.Context, user models.User, ch models.Channel) (Details, error) {
	summary, err := s.summarize(ctx, ch, user)
	if err != nil {
		return Details{}, err
	}

	var rows []models.ChannelMember
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("channel_id = ?", ch.ID).
		Order("joined_at ASC").
		Find(&rows).Error
	if err != nil {
		return Details{}, err
	}

	members := make([]Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, Member{
			UserID:   row.UserID,
			Name:     row.User.Name,
			Email:    row.User.Email,
			Role:     row.Role,
			JoinedAt: row.JoinedAt,
		})
	}

	return Details{Summary: summary, Members: members}, nil
}

// ResolveForMember looks up a channel scoped to the user's company and
// applies the visibility predicate. Cross-tenant ids resolve as not
// found, never as forbidden.
func (s *Service) ResolveForMember(ctx context.Context, user models.User, id uuid.UUID) (models.Channel, error) {
	ch, ownerID, err := s.resolveScoped(ctx, user, id)
	if err != nil {
		return models.Channel{}, err
	}
	if !VisibleTo(ch, ownerID, user) {
		return models.Channel{}, apperr.Unauthorized("Access denied to this channel")
	}
	return ch, nil
}

// ResolveForAdmin looks up a channel scoped to the user's company and
// requires an admin membership.
func (s *Service) ResolveForAdmin(ctx context.Context, user models.User, id uuid.UUID) (models.Channel, error) {
	ch, _, err := s.resolveScoped(ctx, user, id)
	if err != nil {
		return models.Channel{}, err
	}

	var membership models.ChannelMember
	err = s.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", ch.ID, user.ID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && membership.Role != models.RoleAdmin) {
		return models.Channel{}, apperr.Unauthorized("Only channel admins can perform this action")
	}
	if err != nil {
		return models.Channel{}, err
	}
	return ch, nil
}

// InviteUser invites a same-company user into an already-resolved
// channel. The inviter must hold a membership themselves.
func (s *Service) InviteUser(ctx context.Context, inviter models.User, ch models.Channel, invitedUserID uuid.UUID) (models.ChannelInvitation, error) {
	member, err := s.isMember(ctx, ch.ID, inviter.ID)
	if err != nil {
		return models.ChannelInvitation{}, err
	}
	if !member {
		return models.ChannelInvitation{}, apperr.Unauthorized("You must be a member to invite others")
	}

	var invited models.User
	err = s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", invitedUserID, inviter.CompanyID).
		First(&invited).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ChannelInvitation{}, apperr.NotFound("User not found in your company")
	}
	if err != nil {
		return models.ChannelInvitation{}, err
	}

	member, err = s.isMember(ctx, ch.ID, invited.ID)
	if err != nil {
		return models.ChannelInvitation{}, err
	}
	if member {
		return models.ChannelInvitation{}, apperr.Unauthorized("User is already a member of this channel")
	}

	now := time.Now().UTC()
	var existing models.ChannelInvitation
	err = s.db.WithContext(ctx).
		Where("channel_id = ? AND invited_user_id = ? AND status = ? AND expires_at > ?",
			ch.ID, invited.ID, models.InvitationPending, now).
		First(&existing).Error
	if err == nil {
		return models.ChannelInvitation{}, apperr.Unauthorized("Invitation already sent to this user")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ChannelInvitation{}, err
	}

	inv := models.ChannelInvitation{
		ID:            uuid.New(),
		ChannelID:     ch.ID,
		InvitedBy:     inviter.ID,
		InvitedUserID: invited.ID,
		Token:         token.New(token.InvitationLength),
		Status:        models.InvitationPending,
		ExpiresAt:     now.Add(s.cfg.InvitationTTL),
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return models.ChannelInvitation{}, err
	}
	inv.InvitedUser = invited

	s.outbox.Dispatch(ctx, mail.ChannelInvitation(invited.Email, invited.Name, ch.Name, s.acceptURL(inv.Token)))
	s.audit.Record(ctx, &inviter.ID, "channel.invite", "channel_invitation", inv.ID.String(), map[string]any{"channel": ch.Name})

	return inv, nil
}

// AcceptInvitation consumes a pending channel invitation and adds the
// invitee as a member. A second accept of the same token is not found,
// since the status flips on first use.
func (s *Service) AcceptInvitation(ctx context.Context, invToken string) (models.Channel, models.User, error) {
	now := time.Now().UTC()

	var inv models.ChannelInvitation
	err := s.db.WithContext(ctx).
		Where("token = ? AND status = ? AND expires_at > ?", invToken, models.InvitationPending, now).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Channel{}, models.User{}, apperr.NotFound("Invalid or expired invitation")
	}
	if err != nil {
		return models.Channel{}, models.User{}, err
	}

	// Guards the race between overlapping invitations to the same user.
	member, err := s.isMember(ctx, inv.ChannelID, inv.InvitedUserID)
	if err != nil {
		return models.Channel{}, models.User{}, err
	}
	if member {
		return models.Channel{}, models.User{}, apperr.Unauthorized("You are already a member of this channel")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.ChannelMember{
			ID:        uuid.New(),
			ChannelID: inv.ChannelID,
			UserID:    inv.InvitedUserID,
			Role:      models.RoleMember,
			JoinedAt:  now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&inv).Update("status", models.InvitationAccepted).Error
	})
	if err != nil {
		return models.Channel{}, models.User{}, err
	}

	var ch models.Channel
	if err := s.db.WithContext(ctx).First(&ch, "id = ?", inv.ChannelID).Error; err != nil {
		return models.Channel{}, models.User{}, err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", inv.InvitedUserID).Error; err != nil {
		return models.Channel{}, models.User{}, err
	}

	s.audit.Record(ctx, &user.ID, "channel.invitation.accept", "channel_invitation", inv.ID.String(), nil)
	return ch, user, nil
}

// Leave removes the user's membership. The creator cannot leave; they
// delete the channel instead.
func (s *Service) Leave(ctx context.Context, user models.User, ch models.Channel) error {
	var membership models.ChannelMember
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", ch.ID, user.ID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Unauthorized("You are not a member of this channel")
	}
	if err != nil {
		return err
	}

	if ch.CreatedBy == user.ID {
		return apperr.Unauthorized("Channel creator cannot leave. You can delete the channel instead.")
	}

	return s.db.WithContext(ctx).Delete(&membership).Error
}

// Delete soft-deletes the channel. Members, invitations, and history are
// retained.
func (s *Service) Delete(ctx context.Context, user models.User, ch models.Channel) error {
	if ch.CreatedBy != user.ID {
		return apperr.Unauthorized("Only channel creator can delete the channel")
	}

	err := s.db.WithContext(ctx).Model(&ch).Update("is_active", false).Error
	if err != nil {
		return err
	}

	s.audit.Record(ctx, &user.ID, "channel.delete", "channel", ch.ID.String(), nil)
	return nil
}

func (s *Service) resolveScoped(ctx context.Context, user models.User, id uuid.UUID) (models.Channel, uuid.UUID, error) {
	var ch models.Channel
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ? AND is_active = ?", id, user.CompanyID, true).
		First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Channel{}, uuid.Nil, apperr.NotFound("Channel not found")
	}
	if err != nil {
		return models.Channel{}, uuid.Nil, err
	}

	ownerID, err := s.companyOwnerID(ctx, ch.CompanyID)
	if err != nil {
		return models.Channel{}, uuid.Nil, err
	}
	return ch, ownerID, nil
}

func (s *Service) summarize(ctx context.Context, ch models.Channel, user models.User) (Summary, error) {
	var creator models.User
	if err := s.db.WithContext(ctx).First(&creator, "id = ?", ch.CreatedBy).Error; err != nil {
		return Summary{}, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ChannelMember{}).Where("channel_id = ?", ch.ID).Count(&count).Error; err != nil {
		return Summary{}, err
	}

	member, err := s.isMember(ctx, ch.ID, user.ID)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Channel:     ch,
		CreatorName: creator.Name,
		IsMember:    member,
		MemberCount: count,
	}, nil
}

func (s *Service) isMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *Service) companyOwnerID(ctx context.Context, companyID uuid.UUID) (uuid.UUID, error) {
	var comp models.Company
	if err := s.db.WithContext(ctx).First(&comp, "id = ?", companyID).Error; err != nil {
		return uuid.Nil, err
	}
	return comp.OwnerID, nil
}

func (s *Service) acceptURL(t string) string {
	return fmt.Sprintf("%s/api/accept-channel-invitation/%s", s.cfg.BaseURL, t)
}
