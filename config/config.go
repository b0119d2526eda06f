package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is prepended to key names for environment variable
	// lookup. Key "notion_token" maps to BLOGFLOW_NOTION_TOKEN.
	EnvPrefix = "BLOGFLOW_"

	// GlobalConfigDir is the directory under ~/.config/ holding the
	// global config file.
	GlobalConfigDir = "blogflow"

	// GlobalConfigFile is the global config filename.
	GlobalConfigFile = "config.yaml"

	// LocalConfigName is the per-project config filename, looked up
	// in the git root.
	LocalConfigName = ".blogflow.yaml"
)

// Configuration keys.
const (
	KeyStore            = "store"
	KeyNotionToken      = "notion_token"
	KeyBriefsDatabaseID = "briefs_database_id"
	KeyDraftsDatabaseID = "drafts_database_id"
	KeyPerplexityAPIKey = "perplexity_api_key"
	KeyPerplexityModel  = "perplexity_model"
	KeyAnthropicAPIKey  = "anthropic_api_key"
	KeyClaudeModel      = "claude_model"
	KeyContentRepo      = "content_repo"
	KeyContentDir       = "content_dir"
	KeyAutoPush         = "auto_push"
	KeyGitHubToken      = "github_token"
	KeyGitHubOwner      = "github_owner"
	KeyGitHubRepo       = "github_repo"
	KeyGitHubBranch     = "github_branch"
	KeyGitLabToken      = "gitlab_token"
	KeyGitLabURL        = "gitlab_url"
	KeyGitLabProject    = "gitlab_project"
	KeyGitLabBranch     = "gitlab_branch"
	KeyPollInterval     = "poll_interval"
	KeyDispatchAddr     = "dispatch_addr"
	KeyDispatchSecret   = "dispatch_secret"
	KeySlackWebhook     = "slack_webhook"
	KeyResearchPolicy   = "research_policy"
	KeyDraftPolicy      = "draft_policy"
	KeyDryRun           = "dry_run"
)

// defaults provides built-in values for configuration keys.
var defaults = map[string]string{
	KeyStore:           "notion",
	KeyPerplexityModel: "sonar-pro",
	KeyContentDir:      "content",
	KeyAutoPush:        "false",
	KeyGitHubBranch:    "main",
	KeyGitLabBranch:    "main",
	KeyPollInterval:    "5m",
	KeyDispatchAddr:    ":8080",
	KeyResearchPolicy:  "error",
	KeyDraftPolicy:     "retry",
	KeyDryRun:          "false",
}

// GlobalKeys lists keys that can be set in the global config.
// Secrets and user-wide preferences live here.
var GlobalKeys = []string{
	KeyNotionToken,
	KeyPerplexityAPIKey,
	KeyPerplexityModel,
	KeyAnthropicAPIKey,
	KeyClaudeModel,
	KeyGitHubToken,
	KeyGitLabToken,
	KeyGitLabURL,
	KeyDispatchSecret,
	KeySlackWebhook,
}

// LocalKeys lists keys that can be set in the per-project config.
var LocalKeys = []string{
	KeyStore,
	KeyBriefsDatabaseID,
	KeyDraftsDatabaseID,
	KeyContentRepo,
	KeyContentDir,
	KeyAutoPush,
	KeyGitHubOwner,
	KeyGitHubRepo,
	KeyGitHubBranch,
	KeyGitLabURL,
	KeyGitLabProject,
	KeyGitLabBranch,
	KeyPollInterval,
	KeyDispatchAddr,
	KeyResearchPolicy,
	KeyDraftPolicy,
	KeyDryRun,
}

// Resolver handles hierarchical configuration resolution.
type Resolver struct {
	globalPath string
	localPath  string
	gitRoot    string
	errWriter  io.Writer

	// Warnings collects non-fatal issues during resolution.
	Warnings []string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithErrWriter sets where warnings are written. Defaults to os.Stderr.
func WithErrWriter(w io.Writer) Option {
	return func(r *Resolver) { r.errWriter = w }
}

// WithPaths overrides the global and local config paths.
func WithPaths(globalPath, localPath string) Option {
	return func(r *Resolver) {
		r.globalPath = globalPath
		r.localPath = localPath
	}
}

// NewResolver creates a configuration resolver rooted at the current
// directory.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{errWriter: os.Stderr}

	if root := findGitRoot("."); root != "" {
		r.gitRoot = root
		r.localPath = filepath.Join(root, LocalConfigName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		r.globalPath = filepath.Join(home, ".config", GlobalConfigDir, GlobalConfigFile)
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// warn adds a warning and optionally prints it.
func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	if r.errWriter != nil {
		fmt.Fprintf(r.errWriter, "Warning: %s\n", msg)
	}
}

// Resolved holds the final merged configuration.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

// Get returns the value for a key, or empty string if not set.
func (c *Resolved) Get(key string) string {
	return c.values[key]
}

// Source returns the source of a key's value.
func (c *Resolved) Source(key string) Source {
	return c.sources[key]
}

// GetWithSource returns both the value and its source.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	return c.values[key], c.sources[key]
}

// All returns a copy of all key-value pairs.
func (c *Resolved) All() map[string]string {
	result := make(map[string]string, len(c.values))
	for k, v := range c.values {
		result[k] = v
	}
	return result
}

// Keys returns all configuration keys.
func (c *Resolved) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}

// Resolve builds the final config by merging all sources.
// Priority (highest to lowest): flags > env > local > global > defaults.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}

	r.applyDefaults(cfg)
	r.applyFile(cfg, r.globalPath, GlobalKeys, SourceGlobal)
	r.applyFile(cfg, r.localPath, LocalKeys, SourceLocal)
	r.applyEnv(cfg)

	return cfg
}

// ResolveWithFlags resolves config and applies flag overrides.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	cfg := r.Resolve()

	for key, value := range flags {
		if value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceFlag
		}
	}

	return cfg
}

func (r *Resolver) applyDefaults(cfg *Resolved) {
	for key, value := range defaults {
		cfg.values[key] = value
		cfg.sources[key] = SourceDefault
	}
}

func (r *Resolver) applyFile(cfg *Resolved, path string, validKeys []string, source Source) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist - not an error
	}

	var parsed map[string]interface{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}

	for key, value := range parsed {
		if !slices.Contains(validKeys, key) {
			r.warn(fmt.Sprintf("%s: unknown key %q ignored", path, key))
			continue
		}
		if strVal := toString(value); strVal != "" {
			cfg.values[key] = strVal
			cfg.sources[key] = source
		}
	}
}

func (r *Resolver) applyEnv(cfg *Resolved) {
	allKeys := make(map[string]bool)
	for k := range defaults {
		allKeys[k] = true
	}
	for _, k := range GlobalKeys {
		allKeys[k] = true
	}
	for _, k := range LocalKeys {
		allKeys[k] = true
	}

	for key := range allKeys {
		envKey := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if value := os.Getenv(envKey); value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceEnv
		}
	}
}

// GitRoot returns the detected git root directory.
func (r *Resolver) GitRoot() string {
	return r.gitRoot
}

// GlobalPath returns the path to the global config file.
func (r *Resolver) GlobalPath() string {
	return r.globalPath
}

// LocalPath returns the path to the local config file.
func (r *Resolver) LocalPath() string {
	return r.localPath
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}

// findGitRoot finds the git root by looking for a .git directory.
func findGitRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached root
		}
		dir = parent
	}

	return ""
}
