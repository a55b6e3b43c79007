package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"huddle/internal/apperr"
)

func (a *API) handleInviteEmployee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, apperr.Validation("Invalid request body"))
		return
	}

	fields := map[string][]string{}
	if req.Name == "" {
		fields["name"] = append(fields["name"], "The name field is required.")
	}
	if req.Email == "" {
		fields["email"] = append(fields["email"], "The email field is required.")
	} else if !validEmail(req.Email) {
		fields["email"] = append(fields["email"], "The email must be a valid email address.")
	}
	if len(fields) > 0 {
		validationError(w, fields)
		return
	}

	inv, err := a.company.InviteEmployee(r.Context(), userFrom(r.Context()), req.Email, req.Name)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Invitation sent successfully", map[string]any{
		"invitation_id": inv.ID,
		"email":         inv.Email,
		"expires_at":    inv.ExpiresAt,
	})
}

func (a *API) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var password *string
	if r.Method == http.MethodPost {
		var req struct {
			Password             string `json:"password"`
			PasswordConfirmation string `json:"password_confirmation"`
		}
		if err := decodeJSON(r, &req); err != nil {
			a.respondError(w, r, apperr.Validation("Invalid request body"))
			return
		}

		fields := map[string][]string{}
		if len(req.Password) < 8 {
			fields["password"] = append(fields["password"], "The password must be at least 8 characters.")
		} else if req.Password != req.PasswordConfirmation {
			fields["password"] = append(fields["password"], "The password confirmation does not match.")
		}
		if len(fields) > 0 {
			validationError(w, fields)
			return
		}
		password = &req.Password
	}

	result, err := a.company.AcceptInvitation(r.Context(), chi.URLParam(r, "token"), password)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	message := fmt.Sprintf("Invitation accepted successfully. You are now an employee of %s", result.Company.Name)
	data := map[string]any{
		"user": map[string]any{
			"id":         result.User.ID,
			"name":       result.User.Name,
			"email":      result.User.Email,
			"company_id": result.User.CompanyID,
		},
		"token": result.User.APIToken,
	}
	if result.GeneratedPassword != "" {
		// One-time disclosure: the generated password cannot be
		// recovered later.
		message = fmt.Sprintf("Invitation accepted successfully! You are now an employee of %s. Please check your email for login credentials.", result.Company.Name)
		data["password"] = result.GeneratedPassword
	}

	respondSuccess(w, http.StatusOK, message, data)
}

func (a *API) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	invs, err := a.company.ListInvitations(r.Context(), userFrom(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(invs))
	for _, inv := range invs {
		out = append(out, map[string]any{
			"id":         inv.ID,
			"email":      inv.Email,
			"name":       inv.Name,
			"status":     inv.Status,
			"expires_at": inv.ExpiresAt,
			"created_at": inv.CreatedAt,
		})
	}
	respondSuccess(w, http.StatusOK, "", out)
}

func (a *API) handleCancelInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.respondError(w, r, apperr.NotFound("Invitation not found"))
		return
	}

	if err := a.company.CancelInvitation(r.Context(), userFrom(r.Context()), id); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Invitation cancelled successfully", nil)
}

func (a *API) handleRemoveEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.respondError(w, r, apperr.NotFound("Employee not found"))
		return
	}

	if err := a.company.RemoveEmployee(r.Context(), userFrom(r.Context()), id); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Employee removed successfully", nil)
}
