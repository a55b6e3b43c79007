package httpapi

import (
	"net/http"
	"net/mail"

	"github.com/go-chi/chi/v5"

	"huddle/internal/apperr"
)

func validEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
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
	if len(req.Password) < 8 {
		fields["password"] = append(fields["password"], "The password must be at least 8 characters.")
	}
	if len(fields) > 0 {
		validationError(w, fields)
		return
	}

	user, comp, err := a.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated,
		"User registered successfully. Company created. Please check your email to verify your account.",
		map[string]any{
			"user": map[string]any{
				"id":             user.ID,
				"name":           user.Name,
				"email":          user.Email,
				"email_verified": user.EmailVerified(),
				"company_id":     user.CompanyID,
			},
			"company": map[string]any{
				"id":       comp.ID,
				"name":     comp.Name,
				"owner_id": comp.OwnerID,
			},
		})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, apperr.Validation("Invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		validationError(w, map[string][]string{"email": {"The email and password fields are required."}})
		return
	}

	user, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Login successful",
		Token:   *user.APIToken,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.VerifyEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Email verified successfully", nil)
}

func (a *API) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.ResendVerification(r.Context(), userFrom(r.Context())); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Verification email sent successfully", nil)
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, apperr.Validation("Invalid request body"))
		return
	}
	if req.Email == "" || !validEmail(req.Email) {
		validationError(w, map[string][]string{"email": {"The email must be a valid email address."}})
		return
	}

	if err := a.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Password reset email sent.", nil)
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token                string `json:"token"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, apperr.Validation("Invalid request body"))
		return
	}

	fields := map[string][]string{}
	if req.Token == "" {
		fields["token"] = append(fields["token"], "The token field is required.")
	}
	if len(req.Password) < 8 {
		fields["password"] = append(fields["password"], "The password must be at least 8 characters.")
	} else if req.Password != req.PasswordConfirmation {
		fields["password"] = append(fields["password"], "The password confirmation does not match.")
	}
	if len(fields) > 0 {
		validationError(w, fields)
		return
	}

	if err := a.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Password has been reset successfully.", nil)
}
