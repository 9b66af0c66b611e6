// Package errkind holds the error kinds shared by every readtools command.
//
// Errors are wrapped with fmt.Errorf("%w") so callers can test the kind
// with errors.Is and still print the offending input.
package errkind

import (
	"errors"
	"fmt"
)

var (
	ErrBadConfiguration     = errors.New("bad configuration")
	ErrMalformedDictionary  = errors.New("malformed barcode dictionary")
	ErrBarcodeTooShort      = errors.New("barcode too short")
	ErrMissingBarcode       = errors.New("missing barcode")
	ErrInvalidQualityByte   = errors.New("invalid quality byte")
	ErrQualityOutOfRange    = errors.New("quality out of range")
	ErrTruncatedInput       = errors.New("truncated input")
	ErrCouldNotCreateOutput = errors.New("could not create output")
)

var userKinds = []error{
	ErrBadConfiguration,
	ErrMalformedDictionary,
	ErrBarcodeTooShort,
	ErrMissingBarcode,
	ErrInvalidQualityByte,
	ErrQualityOutOfRange,
	ErrTruncatedInput,
	ErrCouldNotCreateOutput,
}

// Exit codes returned by the readtools binary.
const (
	ExitOK        = 0
	ExitIO        = 1
	ExitUser      = 2
	ExitInternal  = 3
	ExitInterrupt = 130
)

// IsUser reports whether err is one of the user-facing kinds (bad input or
// bad configuration).
func IsUser(err error) bool {
	for _, k := range userKinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInternal):
		return ExitInternal
	case IsUser(err):
		return ExitUser
	default:
		return ExitIO
	}
}

// ErrInternal marks an invariant violation inside readtools itself.
var ErrInternal = errors.New("internal error")

// Badf returns an ErrBadConfiguration with a formatted message.
func Badf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrBadConfiguration, fmt.Sprintf(format, a...))
}

// Internalf returns an ErrInternal with a formatted message.
func Internalf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, a...))
}
