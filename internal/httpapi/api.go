// Package httpapi wires the domain services behind the JSON HTTP
// surface: routing, the access-control gates, request validation, and
// the uniform response envelope.
package httpapi

import (
	"errors"

	"github.com/rs/zerolog"

	"huddle/internal/auth"
	"huddle/internal/channel"
	"huddle/internal/company"
	"huddle/internal/config"
)

// API wires dependencies and configuration for the HTTP handlers.
type API struct {
	cfg      config.Config
	auth     *auth.Service
	company  *company.Service
	channels *channel.Service
	log      zerolog.Logger
}

// New initialises the API layer.
func New(cfg config.Config, authSvc *auth.Service, companySvc *company.Service, channelSvc *channel.Service, log zerolog.Logger) (*API, error) {
	if authSvc == nil || companySvc == nil || channelSvc == nil {
		return nil, errors.New("all services are required")
	}
	return &API{
		cfg:      cfg,
		auth:     authSvc,
		company:  companySvc,
		channels: channelSvc,
		log:      log,
	}, nil
}
