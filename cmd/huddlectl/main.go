package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"huddle/internal/config"
	"huddle/internal/db"
	"huddle/internal/mail"
	"huddle/internal/models"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "huddlectl",
		Short:         "Admin utility for the huddle backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newUsersCommand())
	cmd.AddCommand(newMailCommand())
	return cmd
}

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and manage users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newUsersListCommand())
	cmd.AddCommand(newUsersVerifyCommand())
	return cmd
}

func newUsersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users with their verification state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)

			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(database) }()

			var users []models.User
			if err := database.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
				return err
			}

			for _, u := range users {
				verified := "unverified"
				if u.EmailVerified() {
					verified = "verified"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, verified)
			}
			return nil
		},
	}
}

func newUsersVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <email>",
		Short: "Mark a user's email as verified without a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)

			database, err := connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(database) }()

			now := time.Now().UTC()
			res := database.WithContext(ctx).Model(&models.User{}).
				Where("email = ?", args[0]).
				Updates(map[string]any{
					"email_verified_at":                   now,
					"email_verification_token":            nil,
					"email_verification_token_expires_at": nil,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("no user with email %q", args[0])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "verified %s\n", args[0])
			return nil
		},
	}
}

func newMailCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Mail delivery checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "test <to>",
		Short: "Send a test email through the configured SMTP relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}

			sender := mail.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
			err = sender.Send(ctx, mail.Message{
				To:      args[0],
				Subject: "huddle test email",
				HTML:    "<p>SMTP configuration works.</p>",
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent test email to %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func connect(ctx context.Context) (*gorm.DB, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	return db.Connect(ctx, cfg.DBDSN)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
