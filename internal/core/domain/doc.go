// Package domain contains the core business entities for scour.
// These types have no external dependencies and represent the
// ubiquitous language of search lifecycle orchestration.
package domain
