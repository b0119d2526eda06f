// Package notify provides notification services for pipeline events.
//
// Core types:
//   - Notifier: Interface for sending notifications
//   - Event: Notification event with type, message, and metadata
//   - EventType: Type of event (run started, item failed, draft created, etc.)
//
// Implementations:
//   - SlackNotifier: Sends notifications to Slack webhooks
//   - WebhookNotifier: Sends notifications to generic webhooks
//   - LogNotifier: Logs notifications (for testing/debugging)
//   - MultiNotifier: Combines multiple notifiers
//   - NopNotifier: No-op notifier (for testing)
//
// Example usage:
//
//	notifier := notify.NewSlackNotifier(webhookURL,
//	    notify.WithSlackChannel("#editorial"),
//	)
//	err := notifier.Notify(ctx, notify.Event{
//	    Type:    notify.EventDraftCreated,
//	    Message: "Draft ready for review: Compost Tea Basics",
//	})
package notify
