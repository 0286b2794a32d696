// Package driven defines the outbound ports of the scour core.
// These interfaces are implemented by adapters (storage, broadcast,
// search engines) and consumed by core services.
package driven
