package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the huddle API service.
type Config struct {
	Addr           string   `env:"ADDR,default=:8080"`
	DBDSN          string   `env:"DB_DSN,required"`
	AppBaseURL     string   `env:"APP_BASE_URL,default=http://localhost:8080"`
	Debug          bool     `env:"DEBUG,default=false"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	RateLimit      int      `env:"RATE_LIMIT,default=100"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASS"`
	MailFrom     string `env:"MAIL_FROM,default=no-reply@huddle.local"`

	NATSURL      string `env:"NATS_URL"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	VerificationTokenTTL time.Duration `env:"VERIFICATION_TOKEN_TTL,default=24h"`
	InvitationTTL        time.Duration `env:"INVITATION_TTL,default=168h"`
	BcryptCost           int           `env:"BCRYPT_COST,default=10"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
