// Package notifications delivers clip job milestones via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Each event type
// can be switched off individually in the [notifications] section.
//
// Workflow code depends only on the Service interface.
package notifications
