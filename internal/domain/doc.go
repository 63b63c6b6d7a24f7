// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (keys, cards, progress), contracts (interfaces) and
// the error taxonomy every service reports through.
package domain
