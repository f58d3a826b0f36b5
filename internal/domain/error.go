package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrAlreadySubscribed  = errors.New("user already has an active or authenticated subscription")
	ErrTrialNotAvailable  = errors.New("trial not available for this user")
	ErrIllegalTransition  = errors.New("illegal state transition")
	ErrDuplicateEvent     = errors.New("event already processed")
	ErrUnknownEntity      = errors.New("callback references an unknown entity")
	ErrConflict           = errors.New("conflicting update for entity")
	ErrInvalidCredential  = errors.New("invalid service credential")
	ErrGatewayUnavailable = errors.New("payment service unavailable")
	ErrGatewayTimeout     = errors.New("payment service timed out")

	// Infra-level errors surfaced by repositories
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
