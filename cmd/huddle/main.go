package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"huddle/internal/audit"
	"huddle/internal/auth"
	"huddle/internal/channel"
	"huddle/internal/company"
	"huddle/internal/config"
	"huddle/internal/db"
	"huddle/internal/httpapi"
	"huddle/internal/mail"
	"huddle/internal/otel"
	"huddle/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	cleanup, err := otel.Init(ctx, version.Name, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init otel")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	database, err := db.Connect(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	if err := db.Migrate(ctx, database); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var mailBus *mail.Bus
	if cfg.NATSURL != "" {
		mailBus, err = mail.ConnectBus(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect nats")
		}
		defer mailBus.Close()
	}

	sender := mail.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	outbox := mail.NewDispatcher(mailBus, sender, log.With().Str("component", "mail").Logger())
	if err := outbox.RunConsumer(ctx); err != nil {
		log.Fatal().Err(err).Msg("start mail consumer")
	}

	recorder := audit.NewRecorder(database, log.With().Str("component", "audit").Logger())

	authSvc := auth.NewService(database, outbox, recorder, log.With().Str("component", "auth").Logger(), auth.Config{
		BaseURL:         cfg.AppBaseURL,
		VerificationTTL: cfg.VerificationTokenTTL,
		BcryptCost:      cfg.BcryptCost,
	})
	companySvc := company.NewService(database, outbox, recorder, log.With().Str("component", "company").Logger(), company.Config{
		BaseURL:       cfg.AppBaseURL,
		InvitationTTL: cfg.InvitationTTL,
		BcryptCost:    cfg.BcryptCost,
	})
	channelSvc := channel.NewService(database, outbox, recorder, log.With().Str("component", "channel").Logger(), channel.Config{
		BaseURL:       cfg.AppBaseURL,
		InvitationTTL: cfg.InvitationTTL,
	})

	api, err := httpapi.New(cfg, authSvc, companySvc, channelSvc, log.With().Str("component", "http").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("init api")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting huddle-api")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
}
