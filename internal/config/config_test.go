package config

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func fakeEnv(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(fakeEnv(map[string]string{"JWT_SECRET": testSecret}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := &Config{
		Port:           "8080",
		DatabaseDriver: "sqlite",
		DatabasePath:   "shift-clock.db",
		JWTSecret:      testSecret,
		CookieSecure:   true,
		BcryptCost:     12,
		AppOrigin:      "http://localhost:5173",
		AppEnv:         "development",
		LogLevel:       slog.LevelInfo,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.IsProduction() {
		t.Fatal("development config reported as production")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(fakeEnv(map[string]string{
		"JWT_SECRET":      testSecret,
		"PORT":            "9090",
		"DATABASE_DRIVER": "mysql",
		"MYSQL_DSN":       "app:secret@tcp(db:3306)/shiftclock",
		"COOKIE_SECURE":   "false",
		"BCRYPT_COST":     "4",
		"APP_ORIGIN":      "https://clock.example.com/",
		"APP_ENV":         "production",
		"LOG_LEVEL":       "debug",
		"TZ_CACHE_SIZE":   "64",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.DatabaseDriver != "mysql" || cfg.CookieSecure || cfg.BcryptCost != 4 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.AppOrigin != "https://clock.example.com" {
		t.Fatalf("origin = %q", cfg.AppOrigin)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.TZCacheSize != 64 || !cfg.IsProduction() {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "at least 32"},
		{"unknown driver", map[string]string{"JWT_SECRET": testSecret, "DATABASE_DRIVER": "postgres"}, "DATABASE_DRIVER"},
		{"mysql without dsn", map[string]string{"JWT_SECRET": testSecret, "DATABASE_DRIVER": "mysql"}, "MYSQL_DSN"},
		{"bcrypt not a number", map[string]string{"JWT_SECRET": testSecret, "BCRYPT_COST": "high"}, "BCRYPT_COST"},
		{"bcrypt out of range", map[string]string{"JWT_SECRET": testSecret, "BCRYPT_COST": "15"}, "between 4 and 14"},
		{"bad log level", map[string]string{"JWT_SECRET": testSecret, "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"negative cache", map[string]string{"JWT_SECRET": testSecret, "TZ_CACHE_SIZE": "-1"}, "TZ_CACHE_SIZE"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := load(fakeEnv(c.env))
			if err == nil || !strings.Contains(err.Error(), c.wantErr) {
				t.Fatalf("expected error containing %q, got %v", c.wantErr, err)
			}
		})
	}
}
