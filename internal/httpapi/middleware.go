package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"huddle/internal/apperr"
	"huddle/internal/models"
)

type ctxKey int

const (
	userKey ctxKey = iota
	channelKey
)

// userFrom returns the authenticated user stored by requireAuth.
func userFrom(ctx context.Context) models.User {
	u, _ := ctx.Value(userKey).(models.User)
	return u
}

// channelFrom returns the channel resolved by a channel gate.
func channelFrom(ctx context.Context) models.Channel {
	c, _ := ctx.Value(channelKey).(models.Channel)
	return c
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// requireAuth resolves the bearer token to a user and stashes it in the
// request context.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			a.respondError(w, r, apperr.Authentication("Access token required"))
			return
		}

		user, err := a.auth.UserByAPIToken(r.Context(), token)
		if err != nil {
			a.respondError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// requireCompanyOwner restricts the route to the owner of the caller's
// company. Runs after requireAuth.
func (a *API) requireCompanyOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		if err := a.company.RequireOwner(r.Context(), user); err != nil {
			a.respondError(w, r, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireChannelMember resolves the route channel scoped to the caller's
// company and applies the visibility predicate.
func (a *API) requireChannelMember(next http.Handler) http.Handler {
	return a.channelGate(next, false)
}

// requireChannelAdmin resolves the route channel and requires an admin
// membership.
func (a *API) requireChannelAdmin(next http.Handler) http.Handler {
	return a.channelGate(next, true)
}

func (a *API) channelGate(next http.Handler, admin bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			a.respondError(w, r, apperr.NotFound("Channel not found"))
			return
		}

		user := userFrom(r.Context())

		var ch models.Channel
		if admin {
			ch, err = a.channels.ResolveForAdmin(r.Context(), user, id)
		} else {
			ch, err = a.channels.ResolveForMember(r.Context(), user, id)
		}
		if err != nil {
			a.respondError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), channelKey, ch)))
	})
}
