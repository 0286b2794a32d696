// Package services contains the core business logic for scour:
// the debouncer and the search lifecycle orchestrator.
package services
