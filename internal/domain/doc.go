// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (records, identifiers) and contracts (interfaces)
// only, plus the sentinel errors the contracts refer to.
package domain
