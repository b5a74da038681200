package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"lms-exam-service/internal/auth"
	"lms-exam-service/internal/config"
	"lms-exam-service/internal/logging"
)

const testSecret = "cli-test-secret-with-plenty-of-bytes"

func testConfig(driver, dsn string) config.Config {
	var cfg config.Config
	cfg.Database.Driver = driver
	cfg.Database.DSN = dsn
	cfg.Auth.Secret = testSecret
	cfg.Auth.Issuer = "lms-exam-service"
	return cfg
}

func TestBuildApplicationDrivers(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name  string
		cfg   func() config.Config
	}{
		{name: "memory", cfg: func() config.Config { return testConfig("memory", "") }},
		{name: "memory with redis", cfg: func() config.Config {
			cfg := testConfig("memory", "")
			cfg.Redis.Addr = mr.Addr()
			return cfg
		}},
		{name: "sqlite", cfg: func() config.Config {
			return testConfig("sqlite", "file:cli_build?mode=memory&cache=shared")
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log := logging.NewWithOutput(io.Discard, "error", "text")
			a, err := buildApplication(context.Background(), tc.cfg(), log)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			defer a.close()

			tokens := auth.NewTokenService(testSecret, "lms-exam-service", 0)
			tok, err := tokens.Issue("teacher-1", auth.RoleTeacher)
			if err != nil {
				t.Fatalf("issue: %v", err)
			}
			body := `{"text":"q","options":[{"id":"A","label":"a"},{"id":"B","label":"b"}],"correctOptionId":"A"}`
			req := httptest.NewRequest(http.MethodPost, "/questions/courses/course-1", strings.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+tok)
			rec := httptest.NewRecorder()
			a.handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestBuildApplicationRejectsBadConfig(t *testing.T) {
	log := logging.NewWithOutput(io.Discard, "error", "text")
	if _, err := buildApplication(context.Background(), testConfig("oracle", "x"), log); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
	cfg := testConfig("memory", "")
	cfg.Auth.Secret = ""
	if _, err := buildApplication(context.Background(), cfg, log); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestTokenCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  secret: "+testSecret+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--config", path, "--sub", "admin-1", "--role", auth.RoleAdmin})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	id, err := auth.NewTokenService(testSecret, "lms-exam-service", 0).Parse(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if id.UserID != "admin-1" || id.Role != auth.RoleAdmin {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestMigrateCommandRequiresRelationalDriver(t *testing.T) {
	if err := runMigrations(context.Background(), testConfig("memory", "")); err == nil {
		t.Fatalf("expected memory driver to be rejected")
	}
	if err := runMigrations(context.Background(), testConfig("sqlite", "file:cli_migrate?mode=memory&cache=shared")); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
}
