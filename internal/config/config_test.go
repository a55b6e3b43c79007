package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func loadFrom(t *testing.T, env map[string]string) (Config, error) {
	t.Helper()
	var cfg Config
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(env),
	})
	return cfg, err
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, cfg Config)
		wantErr bool
	}{
		{
			name:    "missing dsn",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "defaults",
			env:  map[string]string{"DB_DSN": "postgres://localhost/huddle"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Addr != ":8080" {
					t.Errorf("Addr = %q", cfg.Addr)
				}
				if cfg.VerificationTokenTTL != 24*time.Hour {
					t.Errorf("VerificationTokenTTL = %v", cfg.VerificationTokenTTL)
				}
				if cfg.InvitationTTL != 168*time.Hour {
					t.Errorf("InvitationTTL = %v", cfg.InvitationTTL)
				}
				if cfg.SMTPPort != 587 {
					t.Errorf("SMTPPort = %d", cfg.SMTPPort)
				}
				if cfg.Debug {
					t.Error("Debug should default to false")
				}
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"DB_DSN":               "postgres://localhost/huddle",
				"ADDR":                 ":9000",
				"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
				"INVITATION_TTL":       "72h",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.Addr != ":9000" {
					t.Errorf("Addr = %q", cfg.Addr)
				}
				if len(cfg.AllowedOrigins) != 2 {
					t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
				}
				if cfg.InvitationTTL != 72*time.Hour {
					t.Errorf("InvitationTTL = %v", cfg.InvitationTTL)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadFrom(t, tt.env)
			if (err != nil) != tt.wantErr {
				t.Fatalf("load error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
