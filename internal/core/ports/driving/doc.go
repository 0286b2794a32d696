// Package driving defines the inbound ports of the scour core.
// These interfaces are implemented by core services and consumed by
// driving adapters (CLI, TUI).
package driving
