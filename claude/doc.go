// Package claude implements the draft provider on the Anthropic Messages
// API. Model selection is tier based: outline and draft work runs on the
// larger models, summarization on the fast tier.
package claude
