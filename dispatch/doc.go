// Package dispatch exposes the pipeline over HTTP for external
// schedulers and webhooks.
//
// A scheduler triggers a stage by POSTing to /dispatch:
//
//	POST /dispatch
//	Authorization: Bearer <token>
//	{"stage": "research", "singleItem": false, "dryRun": false}
//
// The response is the run report for the invocation. Requests are
// authenticated with either a signed JWT or a static API key; both
// are derived from the configured dispatch secret.
//
// Runs are serialized: a dispatch that arrives while another run is
// in flight is rejected with 409 Conflict rather than queued, which
// preserves the at-most-once-per-cycle guarantee.
package dispatch
