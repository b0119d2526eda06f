package dispatch

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := AuthConfig{Secret: testSecret}

	token, err := GenerateToken(cfg, "cron-scheduler")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	subject, err := ValidateToken(cfg, token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if subject != "cron-scheduler" {
		t.Errorf("subject = %q, want %q", subject, "cron-scheduler")
	}
}

func TestGenerateTokenSecretTooShort(t *testing.T) {
	cfg := AuthConfig{Secret: []byte("short")}

	if _, err := GenerateToken(cfg, "caller"); !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("GenerateToken() error = %v, want ErrSecretTooShort", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(AuthConfig{Secret: testSecret}, "caller")
	if err != nil {
		t.Fatal(err)
	}

	other := AuthConfig{Secret: []byte("ffffffffffffffffffffffffffffffff")}
	if _, err := ValidateToken(other, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := AuthConfig{Secret: testSecret, TokenTTL: -time.Minute}

	token, err := GenerateToken(cfg, "caller")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ValidateToken(cfg, token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ValidateToken() error = %v, want ErrTokenExpired", err)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	cfg := AuthConfig{Secret: testSecret}

	if _, err := ValidateToken(cfg, "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key, hash, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v", err)
	}

	if !strings.HasPrefix(key, "bfk_") {
		t.Errorf("key = %q, want bfk_ prefix", key)
	}
	if hash != HashAPIKey(key) {
		t.Errorf("hash = %q, want %q", hash, HashAPIKey(key))
	}
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(hash))
	}
}

func TestAuthenticate(t *testing.T) {
	key, hash, err := GenerateAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	cfg := AuthConfig{Secret: testSecret, APIKeyHash: hash}

	token, err := GenerateToken(cfg, "scheduler")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		credential string
		wantCaller string
		wantErr    bool
	}{
		{name: "valid api key", credential: key, wantCaller: "api-key"},
		{name: "valid jwt", credential: token, wantCaller: "scheduler"},
		{name: "wrong key", credential: "bfk_wrong", wantErr: true},
		{name: "empty", credential: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller, err := cfg.authenticate(tt.credential)
			if tt.wantErr {
				if err == nil {
					t.Error("authenticate() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("authenticate() error = %v", err)
			}
			if caller != tt.wantCaller {
				t.Errorf("caller = %q, want %q", caller, tt.wantCaller)
			}
		})
	}
}
