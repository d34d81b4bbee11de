package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by repositories
// and services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Project errors
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrFileNotFound    = errors.New("file not found")
)

// Challenge errors
var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrNoHintsLeft       = errors.New("no hints left to reveal")
)

// Conversation errors
var (
	ErrConversationNotFound = errors.New("conversation not found")
)

// Learning module errors
var (
	ErrModuleNotFound = errors.New("learning module not found")
)

// GitHub connection errors
var (
	ErrConnectionNotFound = errors.New("github connection not found")
	ErrStateMismatch      = errors.New("oauth state mismatch")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)
