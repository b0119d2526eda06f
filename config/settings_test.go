package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	blogflow "github.com/npavkovic/blogflow"
)

// resolve builds a Resolved from raw values on top of the defaults.
func resolve(t *testing.T, values map[string]string) *Resolved {
	t.Helper()
	resolver := NewResolver(WithPaths("", ""))
	return resolver.ResolveWithFlags(values)
}

func TestSettingsFromNotion(t *testing.T) {
	cfg := resolve(t, map[string]string{
		KeyNotionToken:      "secret_abc",
		KeyBriefsDatabaseID: "db_briefs",
		KeyDraftsDatabaseID: "db_drafts",
		KeyPerplexityAPIKey: "pplx_key",
		KeyAnthropicAPIKey:  "sk-ant",
	})

	s, err := SettingsFrom(cfg)
	if err != nil {
		t.Fatalf("SettingsFrom() error = %v", err)
	}

	if s.Store != StoreNotion {
		t.Errorf("Store = %q, want %q", s.Store, StoreNotion)
	}
	if s.PollInterval != 5*time.Minute {
		t.Errorf("PollInterval = %v, want %v", s.PollInterval, 5*time.Minute)
	}
	if s.ResearchFailure != blogflow.PolicyError {
		t.Errorf("ResearchFailure = %q, want %q", s.ResearchFailure, blogflow.PolicyError)
	}
	if s.DraftFailure != blogflow.PolicyRetry {
		t.Errorf("DraftFailure = %q, want %q", s.DraftFailure, blogflow.PolicyRetry)
	}
}

func TestSettingsFromMissingRequired(t *testing.T) {
	cfg := resolve(t, map[string]string{
		KeyPerplexityAPIKey: "pplx_key",
		KeyAnthropicAPIKey:  "sk-ant",
	})

	_, err := SettingsFrom(cfg)
	if err == nil {
		t.Fatal("SettingsFrom() error = nil, want missing-key error")
	}

	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	for _, want := range []string{KeyNotionToken, KeyBriefsDatabaseID, KeyDraftsDatabaseID} {
		found := false
		for _, key := range cfgErr.Missing {
			if key == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Missing does not include %q: %v", want, cfgErr.Missing)
		}
	}
}

func TestSettingsFromFrontmatter(t *testing.T) {
	cfg := resolve(t, map[string]string{
		KeyStore:            StoreFrontmatter,
		KeyContentRepo:      "/srv/content",
		KeyAutoPush:         "true",
		KeyPerplexityAPIKey: "pplx_key",
		KeyAnthropicAPIKey:  "sk-ant",
	})

	s, err := SettingsFrom(cfg)
	if err != nil {
		t.Fatalf("SettingsFrom() error = %v", err)
	}
	if s.ContentRepo != "/srv/content" {
		t.Errorf("ContentRepo = %q, want %q", s.ContentRepo, "/srv/content")
	}
	if !s.AutoPush {
		t.Error("AutoPush = false, want true")
	}
}

func TestSettingsFromUnknownBackend(t *testing.T) {
	cfg := resolve(t, map[string]string{
		KeyStore:            "dynamo",
		KeyPerplexityAPIKey: "pplx_key",
		KeyAnthropicAPIKey:  "sk-ant",
	})

	_, err := SettingsFrom(cfg)
	if err == nil {
		t.Fatal("SettingsFrom() error = nil, want invalid-backend error")
	}
	if !strings.Contains(err.Error(), "dynamo") {
		t.Errorf("error does not name backend: %v", err)
	}
}

func TestSettingsFromBadPolicy(t *testing.T) {
	cfg := resolve(t, map[string]string{
		KeyStore:            StoreGitHub,
		KeyGitHubToken:      "ghp_token",
		KeyGitHubOwner:      "acme",
		KeyGitHubRepo:       "content",
		KeyPerplexityAPIKey: "pplx_key",
		KeyAnthropicAPIKey:  "sk-ant",
		KeyDraftPolicy:      "panic",
	})

	_, err := SettingsFrom(cfg)
	if err == nil {
		t.Fatal("SettingsFrom() error = nil, want invalid-policy error")
	}
	if !strings.Contains(err.Error(), "panic") {
		t.Errorf("error does not name policy: %v", err)
	}
}

func TestSettingsFromBadInterval(t *testing.T) {
	cfg := resolve(t, map[string]string{
		KeyNotionToken:      "secret_abc",
		KeyBriefsDatabaseID: "db_briefs",
		KeyDraftsDatabaseID: "db_drafts",
		KeyPerplexityAPIKey: "pplx_key",
		KeyAnthropicAPIKey:  "sk-ant",
		KeyPollInterval:     "whenever",
	})

	if _, err := SettingsFrom(cfg); err == nil {
		t.Fatal("SettingsFrom() error = nil, want invalid-interval error")
	}
}
