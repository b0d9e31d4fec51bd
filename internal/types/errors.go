package types

import "errors"

// Error kinds surfaced to callers. Wrap with fmt.Errorf("...: %w", ...)
// so errors.Is keeps working across package boundaries.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrDataUnavailable = errors.New("no market data available")
	ErrProvider        = errors.New("judgment provider failure")
	ErrValidation      = errors.New("invalid input")
	ErrLedgerConflict  = errors.New("ledger version conflict")
)

// ErrorKind maps an error to its machine-checkable kind string, or
// "internal" when the error is none of the declared kinds.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrProvider):
		return "provider_error"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrLedgerConflict):
		return "ledger_conflict"
	default:
		return "internal"
	}
}
