// Command blogflow drives an editorial content pipeline: topics are
// researched by Perplexity, drafted by Claude, and tracked through
// status transitions in a Notion database or a git content repository.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	blogflow "github.com/npavkovic/blogflow"
	"github.com/npavkovic/blogflow/claude"
	"github.com/npavkovic/blogflow/config"
	"github.com/npavkovic/blogflow/dispatch"
	"github.com/npavkovic/blogflow/frontmatter"
	"github.com/npavkovic/blogflow/notify"
	"github.com/npavkovic/blogflow/notion"
	"github.com/npavkovic/blogflow/perplexity"
	"github.com/npavkovic/blogflow/poller"
	"github.com/npavkovic/blogflow/prompt"
	"github.com/npavkovic/blogflow/repo"
)

var version = "dev"

var (
	flagVerbose    bool
	flagStore      string
	flagDryRun     bool
	flagSingleItem bool
	flagInterval   string
	flagAddr       string
	flagGlobal     bool
	flagSubject    string
)

func main() {
	root := &cobra.Command{
		Use:           "blogflow",
		Short:         "Editorial content pipeline: research topics, draft articles, track status",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flagStore, "store", "", "content store backend (notion, frontmatter, github, gitlab)")

	runCmd := &cobra.Command{
		Use:       "run <stage>",
		Short:     "Run one pipeline stage over all eligible items",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"research", "draft"},
		RunE:      runStage,
	}
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "list eligible items without processing")
	runCmd.Flags().BoolVar(&flagSingleItem, "single-item", false, "process at most one item")
	root.AddCommand(runCmd)

	pollCmd := &cobra.Command{
		Use:   "poll",
		Short: "Run pipeline cycles on an interval until interrupted",
		Args:  cobra.ExactArgs(0),
		RunE:  runPoll,
	}
	pollCmd.Flags().StringVar(&flagInterval, "interval", "", "time between cycles (e.g. 5m)")
	root.AddCommand(pollCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dispatch API for external schedulers",
		Args:  cobra.ExactArgs(0),
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (e.g. :8080)")
	root.AddCommand(serveCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show how many items sit at each pipeline status",
		Args:  cobra.ExactArgs(0),
		RunE:  runStatus,
	}
	root.AddCommand(statusCmd)

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a dispatch API token",
		Args:  cobra.ExactArgs(0),
		RunE:  runToken,
	}
	tokenCmd.Flags().StringVar(&flagSubject, "subject", "scheduler", "caller name embedded in the token")
	root.AddCommand(tokenCmd)

	root.AddCommand(configCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadSettings resolves configuration with flag overrides applied.
func loadSettings() (*config.Settings, *config.Resolver, error) {
	resolver := config.NewResolver()
	resolved := resolver.ResolveWithFlags(map[string]string{
		config.KeyStore:        flagStore,
		config.KeyPollInterval: flagInterval,
		config.KeyDispatchAddr: flagAddr,
	})

	settings, err := config.SettingsFrom(resolved)
	if err != nil {
		return nil, nil, err
	}
	return settings, resolver, nil
}

// buildStore constructs the configured content store backend.
func buildStore(settings *config.Settings, logger *slog.Logger) (blogflow.Store, error) {
	switch settings.Store {
	case config.StoreNotion:
		return notion.New(notion.Config{
			Token:            settings.NotionToken,
			DatabaseID:       settings.BriefsDatabaseID,
			DraftsDatabaseID: settings.DraftsDatabaseID,
			Logger:           logger,
		})
	case config.StoreFrontmatter:
		return frontmatter.New(frontmatter.Config{
			RepoPath: settings.ContentRepo,
			Dir:      settings.ContentDir,
			AutoPush: settings.AutoPush,
			Logger:   logger,
		})
	case config.StoreGitHub:
		provider, err := repo.NewGitHubProvider(
			settings.GitHubToken, settings.GitHubOwner,
			settings.GitHubRepo, settings.GitHubBranch)
		if err != nil {
			return nil, err
		}
		return repo.NewStore(repo.StoreConfig{
			Provider: provider,
			Dir:      settings.ContentDir,
			Logger:   logger,
		})
	case config.StoreGitLab:
		provider, err := repo.NewGitLabProvider(
			settings.GitLabToken, settings.GitLabURL,
			settings.GitLabProject, settings.GitLabBranch)
		if err != nil {
			return nil, err
		}
		return repo.NewStore(repo.StoreConfig{
			Provider: provider,
			Dir:      settings.ContentDir,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", settings.Store)
	}
}

// buildMachine wires the store, providers, prompts, and notifier.
func buildMachine(settings *config.Settings, resolver *config.Resolver, logger *slog.Logger) (*blogflow.Machine, error) {
	store, err := buildStore(settings, logger)
	if err != nil {
		return nil, err
	}

	projectDir := resolver.GitRoot()
	if projectDir == "" {
		projectDir = "."
	}
	prompts := prompt.NewLoader(projectDir)

	research, err := perplexity.New(perplexity.Config{
		APIKey:      settings.PerplexityAPIKey,
		Model:       settings.PerplexityModel,
		BuildPrompt: prompts.ResearchPrompt(),
	})
	if err != nil {
		return nil, err
	}

	draft, err := claude.New(claude.Config{
		APIKey:      settings.AnthropicAPIKey,
		Model:       settings.ClaudeModel,
		BuildPrompt: prompts.DraftPrompt(),
	})
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if settings.SlackWebhook != "" {
		notifier = notify.NewMultiNotifier(
			notify.NewLogNotifier(logger),
			notify.NewSlackNotifier(settings.SlackWebhook),
		)
	}

	return blogflow.NewMachine(blogflow.MachineConfig{
		Store:           store,
		Research:        research,
		Draft:           draft,
		Notifier:        notifier,
		Logger:          logger,
		ResearchFailure: settings.ResearchFailure,
		DraftFailure:    settings.DraftFailure,
	})
}

func runStage(cmd *cobra.Command, args []string) error {
	stage := blogflow.Stage(args[0])
	if !stage.Valid() {
		return fmt.Errorf("unknown stage %q (want research or draft)", args[0])
	}

	logger := newLogger()
	settings, resolver, err := loadSettings()
	if err != nil {
		return err
	}

	machine, err := buildMachine(settings, resolver, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := machine.Run(ctx, stage, blogflow.Options{
		SingleItem: flagSingleItem,
		DryRun:     flagDryRun || settings.DryRun,
	})
	if err != nil {
		return err
	}

	return printJSON(cmd, report)
}

func runPoll(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	settings, resolver, err := loadSettings()
	if err != nil {
		return err
	}

	machine, err := buildMachine(settings, resolver, logger)
	if err != nil {
		return err
	}

	p, err := poller.New(poller.Config{
		Runner:   machine,
		Interval: settings.PollInterval,
		Options:  blogflow.Options{DryRun: settings.DryRun},
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	settings, resolver, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.DispatchSecret == "" {
		return fmt.Errorf("%s must be configured to serve the dispatch API", config.KeyDispatchSecret)
	}

	machine, err := buildMachine(settings, resolver, logger)
	if err != nil {
		return err
	}

	server, err := dispatch.NewServer(dispatch.ServerConfig{
		Runner: machine,
		Auth:   dispatch.AuthConfig{Secret: []byte(settings.DispatchSecret)},
		Addr:   settings.DispatchAddr,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return server.ListenAndServe(ctx)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}

	store, err := buildStore(settings, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	statuses := []blogflow.Status{
		blogflow.StatusReadyForResearch,
		blogflow.StatusResearchInProgress,
		blogflow.StatusReadyForDraft,
		blogflow.StatusDraftInProgress,
		blogflow.StatusReadyForReview,
		blogflow.StatusResearchProcessed,
		blogflow.StatusDraftComplete,
		blogflow.StatusError,
	}

	for _, status := range statuses {
		items, err := store.QueryByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("query %q: %w", status, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-22s %d\n", status, len(items))
		for _, item := range items {
			if item.Status == blogflow.StatusError && item.ErrorMessage != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", item.Title, item.ErrorMessage)
			}
		}
	}
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.DispatchSecret == "" {
		return fmt.Errorf("%s must be configured to issue tokens", config.KeyDispatchSecret)
	}

	token, err := dispatch.GenerateToken(dispatch.AuthConfig{
		Secret: []byte(settings.DispatchSecret),
	}, flagSubject)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func configCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit blogflow configuration",
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value and where it came from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := config.NewResolver()
			value, source := resolver.Resolve().GetWithSource(args[0])
			if value == "" {
				return fmt.Errorf("%s is not set", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t(%s)\n", value, source)
			return nil
		},
	}
	configCmd.AddCommand(getCmd)

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save a configuration value",
		Long:  "Saves to the local .blogflow.yaml by default; --global writes to ~/.config/blogflow/config.yaml instead.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagGlobal {
				return config.SaveGlobal(args[0], args[1])
			}
			resolver := config.NewResolver()
			return config.SaveLocal(resolver.GitRoot(), args[0], args[1])
		},
	}
	setCmd.Flags().BoolVar(&flagGlobal, "global", false, "write to the global config")
	configCmd.AddCommand(setCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print every resolved configuration value",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver := config.NewResolver()
			resolved := resolver.Resolve()
			for _, key := range resolved.Keys() {
				value, source := resolved.GetWithSource(key)
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\t(%s)\n", key, value, source)
			}
			return nil
		},
	}
	configCmd.AddCommand(listCmd)

	return configCmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
