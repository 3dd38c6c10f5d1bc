// Package security provides input validation and sanitisation for paths,
// file names, search terms and display text.
//
// Every function is pure apart from the filesystem checks, which only read.
// Validation functions return a *domain.ValidationError so callers can match
// them with errors.Is(err, domain.ErrValidation).
package security
