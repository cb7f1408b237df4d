package auth

import (
	"testing"
	"time"

	"github.com/RoadRescue/RoadRescue/internal/common/config"
)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "roadrescue",
		Audience:  "api",
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	cfg := testAuthCfg()
	token, exp, err := GenerateAccessToken(cfg, "u1", []string{"user"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expires_at should be in the future")
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("subject = %s, want u1", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "user" {
		t.Fatalf("roles = %v", claims.Roles)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testAuthCfg()
	token, _, err := GenerateAccessToken(cfg, "u1", nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	bad := cfg
	bad.JWTSecret = "other-secret"
	if _, err := ParseAccessToken(bad, token); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testAuthCfg()
	token, _, err := GenerateAccessToken(cfg, "u1", nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected error for wrong issuer")
	}
}

func TestGenerateRequiresSubjectAndSecret(t *testing.T) {
	cfg := testAuthCfg()
	if _, _, err := GenerateAccessToken(cfg, "", nil, time.Hour); err == nil {
		t.Fatalf("expected error for empty subject")
	}
	cfg.JWTSecret = ""
	if _, _, err := GenerateAccessToken(cfg, "u1", nil, time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
