package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"huddle/internal/apperr"
	"huddle/internal/db"
	"huddle/internal/mail"
	"huddle/internal/models"
)

type fakeOutbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (f *fakeOutbox) Dispatch(_ context.Context, msg mail.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeOutbox) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeOutbox) {
	t.Helper()
	database := testDB(t)
	outbox := &fakeOutbox{}
	svc := NewService(database, outbox, nil, zerolog.Nop(), Config{
		BaseURL:         "http://localhost:8080",
		VerificationTTL: 24 * time.Hour,
		BcryptCost:      4, // keep the tests fast
	})
	return svc, database, outbox
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	svc, database, outbox := newTestService(t)

	user, comp, err := svc.Signup(ctx, "Ann", "ann@x.com", "secret123")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if comp.Name != "Ann's Company" {
		t.Errorf("company name = %q", comp.Name)
	}
	if comp.OwnerID != user.ID {
		t.Error("company owner should be the new user")
	}
	if user.CompanyID == nil || *user.CompanyID != comp.ID {
		t.Error("user should be assigned to the new company")
	}
	if user.EmailVerified() {
		t.Error("new user should be unverified")
	}
	if user.EmailVerificationToken == nil || len(*user.EmailVerificationToken) != 64 {
		t.Error("verification token should be 64 characters")
	}
	if outbox.count() != 1 {
		t.Errorf("verification emails sent = %d, want 1", outbox.count())
	}

	var stored models.User
	if err := database.First(&stored, "email = ?", "ann@x.com").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.PasswordHash == "secret123" {
		t.Error("password must be stored hashed")
	}

	_, _, err = svc.Signup(ctx, "Ann Again", "ann@x.com", "secret123")
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("duplicate signup error = %v, want validation", err)
	}
}

func TestSignupAtomic(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := newTestService(t)

	// Fail the transaction between user creation and company creation.
	err := database.Callback().Create().Before("gorm:create").Register("fail_company", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Name == "Company" {
			tx.AddError(errors.New("induced failure"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	defer func() { _ = database.Callback().Create().Remove("fail_company") }()

	if _, _, err := svc.Signup(ctx, "Ann", "ann@x.com", "secret123"); err == nil {
		t.Fatal("Signup() should fail when company creation fails")
	}

	var users int64
	if err := database.Model(&models.User{}).Count(&users).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if users != 0 {
		t.Errorf("user rows after failed signup = %d, want 0", users)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := newTestService(t)

	if _, _, err := svc.Signup(ctx, "Ann", "ann@x.com", "secret123"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	t.Run("unverified regardless of password", func(t *testing.T) {
		_, err := svc.Login(ctx, "ann@x.com", "secret123")
		if apperr.KindOf(err) != apperr.KindUnauthorized {
			t.Errorf("error = %v, want unauthorized", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "ann@x.com", "wrong")
		if apperr.KindOf(err) != apperr.KindAuthentication {
			t.Errorf("error = %v, want authentication", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, "ghost@x.com", "secret123")
		if apperr.KindOf(err) != apperr.KindAuthentication {
			t.Errorf("error = %v, want authentication", err)
		}
	})

	verify(t, database, "ann@x.com")

	t.Run("verified issues rotating token", func(t *testing.T) {
		first, err := svc.Login(ctx, "ann@x.com", "secret123")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if first.APIToken == nil || len(*first.APIToken) != 60 {
			t.Fatal("api token should be 60 characters")
		}

		second, err := svc.Login(ctx, "ann@x.com", "secret123")
		if err != nil {
			t.Fatalf("second Login() error = %v", err)
		}
		if *first.APIToken == *second.APIToken {
			t.Error("login should rotate the api token")
		}

		// The earlier token is no longer resolvable.
		if _, err := svc.UserByAPIToken(ctx, *first.APIToken); apperr.KindOf(err) != apperr.KindAuthentication {
			t.Errorf("stale token error = %v, want authentication", err)
		}
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := newTestService(t)

	if _, _, err := svc.Signup(ctx, "Ann", "ann@x.com", "secret123"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	verify(t, database, "ann@x.com")

	user, err := svc.Login(ctx, "ann@x.com", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.Logout(ctx, *user.APIToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.UserByAPIToken(ctx, *user.APIToken); apperr.KindOf(err) != apperr.KindAuthentication {
		t.Error("token should be cleared after logout")
	}

	if err := svc.Logout(ctx, "never-issued"); err != nil {
		t.Errorf("Logout() with unknown token = %v, want nil", err)
	}
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := newTestService(t)

	user, _, err := svc.Signup(ctx, "Ann", "ann@x.com", "secret123")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	t.Run("unknown token", func(t *testing.T) {
		if err := svc.VerifyEmail(ctx, "no-such-token"); apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("error = %v, want not found", err)
		}
	})

	t.Run("expired token behaves like unknown", func(t *testing.T) {
		past := time.Now().UTC().Add(-time.Hour)
		if err := database.Model(&models.User{}).Where("id = ?", user.ID).
			Update("email_verification_token_expires_at", past).Error; err != nil {
			t.Fatalf("expire token: %v", err)
		}

		err := svc.VerifyEmail(ctx, *user.EmailVerificationToken)
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("error = %v, want not found", err)
		}
	})

	t.Run("valid token verifies and clears", func(t *testing.T) {
		future := time.Now().UTC().Add(time.Hour)
		if err := database.Model(&models.User{}).Where("id = ?", user.ID).
			Update("email_verification_token_expires_at", future).Error; err != nil {
			t.Fatalf("restore token: %v", err)
		}

		if err := svc.VerifyEmail(ctx, *user.EmailVerificationToken); err != nil {
			t.Fatalf("VerifyEmail() error = %v", err)
		}

		var stored models.User
		if err := database.First(&stored, "id = ?", user.ID).Error; err != nil {
			t.Fatalf("load user: %v", err)
		}
		if !stored.EmailVerified() {
			t.Error("user should be verified")
		}
		if stored.EmailVerificationToken != nil || stored.EmailVerificationTokenExpiresAt != nil {
			t.Error("verification token should be cleared")
		}

		// Consumed tokens cannot be replayed.
		if err := svc.VerifyEmail(ctx, *user.EmailVerificationToken); apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("replay error = %v, want not found", err)
		}
	})
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()
	svc, database, outbox := newTestService(t)

	user, _, err := svc.Signup(ctx, "Ann", "ann@x.com", "secret123")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	firstToken := *user.EmailVerificationToken

	if err := svc.ResendVerification(ctx, user); err != nil {
		t.Fatalf("ResendVerification() error = %v", err)
	}
	if outbox.count() != 2 {
		t.Errorf("emails sent = %d, want 2", outbox.count())
	}

	var stored models.User
	if err := database.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.EmailVerificationToken == nil || *stored.EmailVerificationToken == firstToken {
		t.Error("resend should rotate the verification token")
	}

	verify(t, database, "ann@x.com")
	if err := database.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if err := svc.ResendVerification(ctx, stored); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("resend after verification = %v, want unauthorized", err)
	}
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, database, outbox := newTestService(t)

	if _, _, err := svc.Signup(ctx, "Ann", "ann@x.com", "secret123"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	verify(t, database, "ann@x.com")

	t.Run("forgot upserts a single reset row", func(t *testing.T) {
		if err := svc.ForgotPassword(ctx, "ann@x.com"); err != nil {
			t.Fatalf("ForgotPassword() error = %v", err)
		}
		var first models.PasswordReset
		if err := database.First(&first, "email = ?", "ann@x.com").Error; err != nil {
			t.Fatalf("load reset: %v", err)
		}

		if err := svc.ForgotPassword(ctx, "ann@x.com"); err != nil {
			t.Fatalf("second ForgotPassword() error = %v", err)
		}
		var count int64
		if err := database.Model(&models.PasswordReset{}).Where("email = ?", "ann@x.com").Count(&count).Error; err != nil {
			t.Fatalf("count resets: %v", err)
		}
		if count != 1 {
			t.Errorf("reset rows = %d, want 1", count)
		}

		var second models.PasswordReset
		if err := database.First(&second, "email = ?", "ann@x.com").Error; err != nil {
			t.Fatalf("reload reset: %v", err)
		}
		if first.Token == second.Token {
			t.Error("second request should rotate the token")
		}
	})

	t.Run("forgot for unknown email still succeeds", func(t *testing.T) {
		if err := svc.ForgotPassword(ctx, "ghost@x.com"); err != nil {
			t.Fatalf("ForgotPassword() error = %v", err)
		}
	})

	t.Run("reset is single use", func(t *testing.T) {
		var reset models.PasswordReset
		if err := database.First(&reset, "email = ?", "ann@x.com").Error; err != nil {
			t.Fatalf("load reset: %v", err)
		}

		if err := svc.ResetPassword(ctx, reset.Token, "newsecret99"); err != nil {
			t.Fatalf("ResetPassword() error = %v", err)
		}
		if _, err := svc.Login(ctx, "ann@x.com", "newsecret99"); err != nil {
			t.Errorf("login with new password failed: %v", err)
		}
		if _, err := svc.Login(ctx, "ann@x.com", "secret123"); err == nil {
			t.Error("old password should no longer work")
		}

		if err := svc.ResetPassword(ctx, reset.Token, "again12345"); apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("token replay error = %v, want not found", err)
		}
	})

	t.Run("reset token without matching user", func(t *testing.T) {
		var reset models.PasswordReset
		if err := database.First(&reset, "email = ?", "ghost@x.com").Error; err != nil {
			t.Fatalf("load ghost reset: %v", err)
		}
		if err := svc.ResetPassword(ctx, reset.Token, "whatever123"); apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("error = %v, want not found", err)
		}
	})

	if outbox.count() == 0 {
		t.Error("reset emails should have been dispatched")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPassword(hash, "secret123") {
		t.Error("correct password should verify")
	}
	if CheckPassword(hash, "secret124") {
		t.Error("wrong password should not verify")
	}
}

// verify marks the user verified directly, bypassing the token flow.
func verify(t *testing.T, database *gorm.DB, email string) {
	t.Helper()
	now := time.Now().UTC()
	if err := database.Model(&models.User{}).Where("email = ?", email).
		Update("email_verified_at", now).Error; err != nil {
		t.Fatalf("verify %s: %v", email, err)
	}
}
