package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"huddle/internal/apperr"
	"huddle/internal/channel"
	"huddle/internal/models"
)

func channelSummaryJSON(s channel.Summary) map[string]any {
	return map[string]any{
		"id":           s.Channel.ID,
		"name":         s.Channel.Name,
		"description":  s.Channel.Description,
		"type":         s.Channel.Type,
		"created_by":   s.CreatorName,
		"is_member":    s.IsMember,
		"member_count": s.MemberCount,
		"created_at":   s.Channel.CreatedAt,
	}
}

func (a *API) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
		Type        string  `json:"type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, apperr.Validation("Invalid request body"))
		return
	}

	fields := map[string][]string{}
	if req.Name == "" {
		fields["name"] = append(fields["name"], "The name field is required.")
	}
	if req.Type != models.ChannelPublic && req.Type != models.ChannelPrivate {
		fields["type"] = append(fields["type"], "The type must be public or private.")
	}
	if len(fields) > 0 {
		validationError(w, fields)
		return
	}

	user := userFrom(r.Context())
	ch, err := a.channels.Create(r.Context(), user, req.Name, req.Description, req.Type)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Channel created successfully", map[string]any{
		"channel": map[string]any{
			"id":          ch.ID,
			"name":        ch.Name,
			"description": ch.Description,
			"type":        ch.Type,
			"created_by":  user.Name,
			"created_at":  ch.CreatedAt,
		},
	})
}

func (a *API) handleListChannels(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.channels.VisibleChannels(r.Context(), userFrom(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, channelSummaryJSON(s))
	}
	respondSuccess(w, http.StatusOK, "", out)
}

func (a *API) handleChannelDetails(w http.ResponseWriter, r *http.Request) {
	details, err := a.channels.ChannelDetails(r.Context(), userFrom(r.Context()), channelFrom(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	members := make([]map[string]any, 0, len(details.Members))
	for _, m := range details.Members {
		members = append(members, map[string]any{
			"id":        m.UserID,
			"name":      m.Name,
			"email":     m.Email,
			"role":      m.Role,
			"joined_at": m.JoinedAt,
		})
	}

	respondSuccess(w, http.StatusOK, "", map[string]any{
		"channel": channelSummaryJSON(details.Summary),
		"members": members,
	})
}

func (a *API) handleInviteToChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, apperr.Validation("Invalid request body"))
		return
	}
	if req.UserID == uuid.Nil {
		validationError(w, map[string][]string{"user_id": {"The user_id field is required."}})
		return
	}

	inv, err := a.channels.InviteUser(r.Context(), userFrom(r.Context()), channelFrom(r.Context()), req.UserID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Invitation sent successfully", map[string]any{
		"invitation_id": inv.ID,
		"invited_user": map[string]any{
			"id":    inv.InvitedUser.ID,
			"name":  inv.InvitedUser.Name,
			"email": inv.InvitedUser.Email,
		},
		"expires_at": inv.ExpiresAt,
	})
}

func (a *API) handleAcceptChannelInvitation(w http.ResponseWriter, r *http.Request) {
	ch, user, err := a.channels.AcceptInvitation(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Invitation accepted successfully", map[string]any{
		"channel": map[string]any{
			"id":   ch.ID,
			"name": ch.Name,
			"type": ch.Type,
		},
		"user": map[string]any{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

func (a *API) handleLeaveChannel(w http.ResponseWriter, r *http.Request) {
	if err := a.channels.Leave(r.Context(), userFrom(r.Context()), channelFrom(r.Context())); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "You have left the channel", nil)
}

func (a *API) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := a.channels.Delete(r.Context(), userFrom(r.Context()), channelFrom(r.Context())); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Channel deleted successfully", nil)
}
