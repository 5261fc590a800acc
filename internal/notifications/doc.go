// Package notifications pushes pipeline failures to ntfy.
//
// The ntfy implementation posts to the topic configured in config.toml and
// degrades to a no-op when no topic is set. Extraction and delivery alerts can
// be switched off independently; workers depend only on the Service
// interface.
package notifications
