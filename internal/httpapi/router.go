package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"huddle/internal/version"
)

// Routes constructs the router containing all API endpoints.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	allowed := a.cfg.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	limit := a.cfg.RateLimit
	if limit <= 0 {
		limit = 100
	}
	r.Use(httprate.Limit(limit, time.Minute))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusNotFound, envelope{Success: false, Message: "Endpoint not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, envelope{Success: false, Message: "Method not allowed"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public authentication routes.
		r.Post("/signup", a.handleSignup)
		r.Post("/login", a.handleLogin)
		r.Get("/verify-email/{token}", a.handleVerifyEmail)
		r.Post("/forgot-password", a.handleForgotPassword)
		r.Post("/reset-password", a.handleResetPassword)

		// Invitation accept links arrive without a session.
		r.Get("/accept-invitation/{token}", a.handleAcceptInvitation)
		r.Post("/accept-invitation/{token}", a.handleAcceptInvitation)
		r.Get("/accept-channel-invitation/{token}", a.handleAcceptChannelInvitation)
		r.Post("/accept-channel-invitation/{token}", a.handleAcceptChannelInvitation)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Post("/logout", a.handleLogout)
			r.Post("/resend-verification", a.handleResendVerification)

			r.Post("/channels", a.handleCreateChannel)
			r.Get("/channels", a.handleListChannels)

			r.Group(func(r chi.Router) {
				r.Use(a.requireCompanyOwner)

				r.Post("/invite-employee", a.handleInviteEmployee)
				r.Get("/invitations", a.handleListInvitations)
				r.Delete("/invitations/{id}", a.handleCancelInvitation)
				r.Delete("/employees/{id}", a.handleRemoveEmployee)
			})

			r.Group(func(r chi.Router) {
				r.Use(a.requireChannelMember)

				r.Get("/channels/{id}", a.handleChannelDetails)
				r.Post("/channels/{id}/invite", a.handleInviteToChannel)
				r.Delete("/channels/{id}/leave", a.handleLeaveChannel)
			})

			r.Group(func(r chi.Router) {
				r.Use(a.requireChannelAdmin)

				r.Delete("/channels/{id}", a.handleDeleteChannel)
			})
		})
	})

	return otelhttp.NewHandler(r, version.Name)
}
