package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	blogflow "github.com/npavkovic/blogflow"
)

// Store backend names accepted for the "store" key.
const (
	StoreNotion      = "notion"
	StoreFrontmatter = "frontmatter"
	StoreGitHub      = "github"
	StoreGitLab      = "gitlab"
)

// Error reports configuration problems found during validation.
// It is fatal: the pipeline refuses to start on a bad configuration.
type Error struct {
	Missing []string
	Invalid []string
}

func (e *Error) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required config: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid config: "+strings.Join(e.Invalid, "; "))
	}
	return strings.Join(parts, "; ")
}

// Settings is the fully resolved, typed configuration for a pipeline run.
type Settings struct {
	Store string

	NotionToken      string
	BriefsDatabaseID string
	DraftsDatabaseID string

	PerplexityAPIKey string
	PerplexityModel  string
	AnthropicAPIKey  string
	ClaudeModel      string

	ContentRepo string
	ContentDir  string
	AutoPush    bool

	GitHubToken  string
	GitHubOwner  string
	GitHubRepo   string
	GitHubBranch string

	GitLabToken   string
	GitLabURL     string
	GitLabProject string
	GitLabBranch  string

	PollInterval time.Duration

	DispatchAddr   string
	DispatchSecret string

	SlackWebhook string

	ResearchFailure blogflow.FailurePolicy
	DraftFailure    blogflow.FailurePolicy

	DryRun bool
}

// SettingsFrom converts resolved values into typed settings and
// validates them. The returned error, if any, is a *Error.
func SettingsFrom(cfg *Resolved) (*Settings, error) {
	e := &Error{}

	s := &Settings{
		Store:            cfg.Get(KeyStore),
		NotionToken:      cfg.Get(KeyNotionToken),
		BriefsDatabaseID: cfg.Get(KeyBriefsDatabaseID),
		DraftsDatabaseID: cfg.Get(KeyDraftsDatabaseID),
		PerplexityAPIKey: cfg.Get(KeyPerplexityAPIKey),
		PerplexityModel:  cfg.Get(KeyPerplexityModel),
		AnthropicAPIKey:  cfg.Get(KeyAnthropicAPIKey),
		ClaudeModel:      cfg.Get(KeyClaudeModel),
		ContentRepo:      cfg.Get(KeyContentRepo),
		ContentDir:       cfg.Get(KeyContentDir),
		GitHubToken:      cfg.Get(KeyGitHubToken),
		GitHubOwner:      cfg.Get(KeyGitHubOwner),
		GitHubRepo:       cfg.Get(KeyGitHubRepo),
		GitHubBranch:     cfg.Get(KeyGitHubBranch),
		GitLabToken:      cfg.Get(KeyGitLabToken),
		GitLabURL:        cfg.Get(KeyGitLabURL),
		GitLabProject:    cfg.Get(KeyGitLabProject),
		GitLabBranch:     cfg.Get(KeyGitLabBranch),
		DispatchAddr:     cfg.Get(KeyDispatchAddr),
		DispatchSecret:   cfg.Get(KeyDispatchSecret),
		SlackWebhook:     cfg.Get(KeySlackWebhook),
	}

	s.AutoPush = parseBool(cfg.Get(KeyAutoPush))
	s.DryRun = parseBool(cfg.Get(KeyDryRun))

	interval, err := time.ParseDuration(cfg.Get(KeyPollInterval))
	if err != nil {
		e.Invalid = append(e.Invalid, fmt.Sprintf("%s: %v", KeyPollInterval, err))
	} else {
		s.PollInterval = interval
	}

	s.ResearchFailure, err = parsePolicy(cfg.Get(KeyResearchPolicy))
	if err != nil {
		e.Invalid = append(e.Invalid, fmt.Sprintf("%s: %v", KeyResearchPolicy, err))
	}
	s.DraftFailure, err = parsePolicy(cfg.Get(KeyDraftPolicy))
	if err != nil {
		e.Invalid = append(e.Invalid, fmt.Sprintf("%s: %v", KeyDraftPolicy, err))
	}

	s.validate(e)

	if len(e.Missing) > 0 || len(e.Invalid) > 0 {
		return nil, e
	}
	return s, nil
}

// validate checks the backend-specific and provider requirements.
func (s *Settings) validate(e *Error) {
	require := func(key, value string) {
		if value == "" {
			e.Missing = append(e.Missing, key)
		}
	}

	switch s.Store {
	case StoreNotion:
		require(KeyNotionToken, s.NotionToken)
		require(KeyBriefsDatabaseID, s.BriefsDatabaseID)
		require(KeyDraftsDatabaseID, s.DraftsDatabaseID)
	case StoreFrontmatter:
		require(KeyContentRepo, s.ContentRepo)
	case StoreGitHub:
		require(KeyGitHubToken, s.GitHubToken)
		require(KeyGitHubOwner, s.GitHubOwner)
		require(KeyGitHubRepo, s.GitHubRepo)
	case StoreGitLab:
		require(KeyGitLabToken, s.GitLabToken)
		require(KeyGitLabProject, s.GitLabProject)
	default:
		e.Invalid = append(e.Invalid,
			fmt.Sprintf("%s: unknown backend %q (want notion, frontmatter, github, or gitlab)", KeyStore, s.Store))
	}

	require(KeyPerplexityAPIKey, s.PerplexityAPIKey)
	require(KeyAnthropicAPIKey, s.AnthropicAPIKey)
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return b
}

func parsePolicy(value string) (blogflow.FailurePolicy, error) {
	switch blogflow.FailurePolicy(value) {
	case blogflow.PolicyError:
		return blogflow.PolicyError, nil
	case blogflow.PolicyRetry:
		return blogflow.PolicyRetry, nil
	default:
		return "", fmt.Errorf("unknown policy %q (want error or retry)", value)
	}
}
