package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/repository/sqlstore"
	"github.com/msomdec/shift-clock/internal/service"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func newTestDB(t *testing.T) *sqlstore.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlstore.OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestAuthService(t *testing.T) (*service.AuthService, *sqlstore.DB) {
	t.Helper()
	db := newTestDB(t)
	// Use cost 4 for fast tests.
	auth := service.NewAuthService(db.Users(), tzconv.NewResolver(0), testJWTSecret, 4)
	return auth, db
}

func TestAuthService_Register_Success(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "  New@Example.com ", "password123", "America/Los_Angeles")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if user.ID == 0 {
		t.Fatal("expected user ID to be set")
	}
	if user.Email != "new@example.com" {
		t.Fatalf("expected email new@example.com, got %s", user.Email)
	}
	if user.TZ != "America/Los_Angeles" {
		t.Fatalf("expected tz America/Los_Angeles, got %s", user.TZ)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected role user, got %s", user.Role)
	}
	if user.SearchDefaultRange != "wtd_prev" || user.RecentLogsScope != "wtd_prev" {
		t.Fatalf("unexpected presets %q / %q", user.SearchDefaultRange, user.RecentLogsScope)
	}
}

func TestAuthService_Register_BlankZoneDefaultsToUTC(t *testing.T) {
	auth, _ := newTestAuthService(t)

	user, err := auth.Register(context.Background(), "utc@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.TZ != "UTC" {
		t.Fatalf("expected UTC, got %q", user.TZ)
	}
}

func TestAuthService_Register_UnknownZone(t *testing.T) {
	auth, _ := newTestAuthService(t)

	_, err := auth.Register(context.Background(), "mars@example.com", "password123", "Mars/Olympus_Mons")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "dup@example.com", "password123", "UTC"); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := auth.Register(ctx, "DUP@example.com", "password456", "UTC")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_Register_InvalidInput(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	cases := []struct {
		name, email, password string
	}{
		{"empty email", "", "password123"},
		{"empty password", "a@example.com", ""},
		{"short password", "a@example.com", "short"},
		{"bad email", "not-an-email", "password123"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := auth.Register(ctx, c.email, c.password, "UTC")
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := auth.Register(ctx, "login@example.com", "password123", "UTC")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, token, err := auth.Login(ctx, "Login@Example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if user.ID != registered.ID {
		t.Fatalf("expected user %d, got %d", registered.ID, user.ID)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "wrong@example.com", "password123", "UTC"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, err := auth.Login(ctx, "wrong@example.com", "wrongpassword")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	auth, _ := newTestAuthService(t)

	_, _, err := auth.Login(context.Background(), "nobody@example.com", "password123")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_JWT_GenerateAndValidate(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "jwt@example.com", "password123", "UTC")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, token, err := auth.Login(ctx, "jwt@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	userID, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("expected user ID %d, got %d", user.ID, userID)
	}
}

func TestAuthService_JWT_InvalidToken(t *testing.T) {
	auth, _ := newTestAuthService(t)

	_, err := auth.ValidateToken("not-a-valid-jwt")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_JWT_TamperedToken(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "tamper@example.com", "password123", "UTC"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, token, err := auth.Login(ctx, "tamper@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Tamper with the token by flipping several characters in the signature.
	tampered := token[:len(token)-5] + "XXXXX"
	_, err = auth.ValidateToken(tampered)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for tampered token, got %v", err)
	}
}

func TestAuthService_JWT_WrongSecret(t *testing.T) {
	auth1, db := newTestAuthService(t)
	ctx := context.Background()

	if _, err := auth1.Register(ctx, "secret@example.com", "password123", "UTC"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, token, err := auth1.Login(ctx, "secret@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	auth2 := service.NewAuthService(db.Users(), tzconv.NewResolver(0), "a-completely-different-secret-value", 4)
	_, err = auth2.ValidateToken(token)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong secret, got %v", err)
	}
}

func TestAuthService_JWT_MissingExpiry(t *testing.T) {
	auth, _ := newTestAuthService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := auth.ValidateToken(signed); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without exp, got %v", err)
	}
}

func TestAuthService_UpdateSettings(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "settings@example.com", "password123", "UTC")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	zone, scope, rng := "Asia/Kolkata", "mtd", "all_records"
	updated, err := auth.UpdateSettings(ctx, user, service.Settings{
		TZ:                 &zone,
		SearchDefaultRange: &rng,
		RecentLogsScope:    &scope,
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if updated.TZ != zone || updated.RecentLogsScope != scope || updated.SearchDefaultRange != rng {
		t.Fatalf("unexpected settings %+v", updated)
	}

	stored, err := auth.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if stored.TZ != zone || stored.RecentLogsScope != scope || stored.SearchDefaultRange != rng {
		t.Fatalf("settings not persisted: %+v", stored)
	}
}

func TestAuthService_UpdateSettings_Rejects(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "reject@example.com", "password123", "UTC")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	badZone := "Nowhere/City"
	if _, err := auth.UpdateSettings(ctx, user, service.Settings{TZ: &badZone}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad zone: expected ErrInvalidInput, got %v", err)
	}
	// all_records is a search preset but not a recent logs scope.
	badScope := "all_records"
	if _, err := auth.UpdateSettings(ctx, user, service.Settings{RecentLogsScope: &badScope}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad scope: expected ErrInvalidInput, got %v", err)
	}

	stored, err := auth.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if stored.TZ != "UTC" || stored.RecentLogsScope != "wtd_prev" {
		t.Fatalf("rejected update leaked into storage: %+v", stored)
	}
}
