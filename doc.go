// Package blogflow provides workflow primitives for AI-assisted editorial pipelines.
//
// A topic moves through the pipeline as a ContentItem whose Status field is the
// single source of truth for its stage: Ready for Research -> Research In
// Progress -> Ready for Draft -> Draft In Progress -> Ready for Review. The
// Machine drives one stage per invocation, persisting every transition through
// a Store before and after each provider call.
//
// The package is organized into subpackages by domain:
//
//   - notion: Notion database Store backend
//   - frontmatter: markdown-with-frontmatter Store backend over a git working tree
//   - repo: JSON Store backend committed through GitHub or GitLab APIs
//   - git: local git plumbing used by the frontmatter store
//   - perplexity: research provider (Perplexity chat completions)
//   - claude: draft provider (Anthropic Messages API)
//   - prompt: prompt template loading
//   - notify: pipeline event notifications (Slack, webhook)
//   - dispatch: HTTP trigger surface for direct stage dispatch
//   - poller: interval-based trigger
//   - config: hierarchical configuration
//   - http: HTTP client utilities
//   - testutil: test utilities and fixtures
//
// # Quick Start
//
//	store, _ := frontmatter.New(frontmatter.Config{RepoPath: "/srv/content"})
//	machine, _ := blogflow.NewMachine(blogflow.MachineConfig{
//	    Store:    store,
//	    Research: perplexityClient,
//	    Draft:    claudeClient,
//	})
//	report, _ := machine.Run(ctx, blogflow.StageResearch, blogflow.Options{})
//
// See individual package documentation for detailed usage.
package blogflow
