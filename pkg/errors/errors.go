// Package errors provides structured error handling for timelock.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitRejected = 3 // Request rejected by the user or the wallet
	ExitNotFound = 4 // Resource not found
)

// TimelockError is the structured error type for timelock.
type TimelockError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *TimelockError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *TimelockError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for TimelockError.
func (e *TimelockError) Is(target error) bool {
	var t *TimelockError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &TimelockError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &TimelockError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &TimelockError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	// Wallet provider errors.
	ErrNoProvider = &TimelockError{
		Code:       "NO_PROVIDER",
		Message:    "no wallet provider available",
		Suggestion: "configure a wallet provider (wallet.provider: node or keyed) or set TIMELOCK_MNEMONIC",
		ExitCode:   ExitNotFound,
	}

	ErrUserRejected = &TimelockError{
		Code:     "USER_REJECTED",
		Message:  "request rejected by the user",
		ExitCode: ExitRejected,
	}

	ErrProviderRevert = &TimelockError{
		Code:     "PROVIDER_REVERT",
		Message:  "transaction reverted",
		ExitCode: ExitGeneral,
	}

	ErrProviderUnparseable = &TimelockError{
		Code:     "PROVIDER_ERROR",
		Message:  "wallet provider returned an unrecognized error",
		ExitCode: ExitGeneral,
	}

	// Chain-specific errors.
	ErrNetwork = &TimelockError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrInvalidAddress = &TimelockError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrReceiptTimeout = &TimelockError{
		Code:       "RECEIPT_TIMEOUT",
		Message:    "transaction receipt not available after polling",
		Suggestion: "the transaction may still be pending; check it later with the returned hash",
		ExitCode:   ExitGeneral,
	}

	ErrInvalidChainID = &TimelockError{
		Code:     "INVALID_CHAIN_ID",
		Message:  "chain ID mismatch",
		ExitCode: ExitInput,
	}

	// Lock workflow errors.
	ErrNoDeployedContract = &TimelockError{
		Code:       "NO_DEPLOYED_CONTRACT",
		Message:    "no lock contract has been deployed in this session",
		Suggestion: "run 'timelock deploy' first",
		ExitCode:   ExitInput,
	}

	ErrInvalidUnlockTime = &TimelockError{
		Code:     "INVALID_UNLOCK_TIME",
		Message:  "unlock time must be later than the latest block timestamp",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &TimelockError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	ErrUnknownOperation = &TimelockError{
		Code:     "UNKNOWN_OPERATION",
		Message:  "unknown operation",
		ExitCode: ExitInput,
	}

	// Config-specific errors.
	ErrConfigInvalid = &TimelockError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownNetwork = &TimelockError{
		Code:     "UNKNOWN_NETWORK",
		Message:  "unknown network",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &TimelockError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
	}

	// Contract artifact errors.
	ErrArtifactInvalid = &TimelockError{
		Code:     "ARTIFACT_INVALID",
		Message:  "contract artifact is invalid",
		ExitCode: ExitInput,
	}

	ErrDecryptionFailed = &TimelockError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong passphrase or corrupted keystore",
		ExitCode: ExitRejected,
	}
)

// New creates a new TimelockError with the given code and message.
func New(code, message string) *TimelockError {
	return &TimelockError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var te *TimelockError
	if errors.As(err, &te) {
		return &TimelockError{
			Code:       te.Code,
			Message:    fmt.Sprintf("%s: %s", msg, te.Message),
			Details:    te.Details,
			Suggestion: te.Suggestion,
			Cause:      err,
			ExitCode:   te.ExitCode,
		}
	}

	return &TimelockError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a sentinel, keeping its identity.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var te *TimelockError
	if errors.As(err, &te) {
		return &TimelockError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: te.Suggestion,
			Cause:      cause,
			ExitCode:   te.ExitCode,
		}
	}

	return fmt.Errorf("%w: %w", err, cause)
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var te *TimelockError
	if errors.As(err, &te) {
		return &TimelockError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    details,
			Suggestion: te.Suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TimelockError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var te *TimelockError
	if errors.As(err, &te) {
		return &TimelockError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TimelockError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var te *TimelockError
	if errors.As(err, &te) {
		return te.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var te *TimelockError
	if errors.As(err, &te) {
		return te.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
