// Package perplexity implements the research provider on the Perplexity
// chat completions API. Responses carry citations alongside the message
// content; both are surfaced in the research result.
package perplexity
