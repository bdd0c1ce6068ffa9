package sanitize

import "errors"

var (
	// ErrInvalidRange: span offsets are reversed, out of bounds, or split a UTF-8 sequence.
	ErrInvalidRange = errors.New("sanitize: invalid span range")
	// ErrNotFound: no span with the given id in the current document.
	ErrNotFound = errors.New("sanitize: span not found")
	// ErrNoOccurrence: a selected substring does not occur in the document text.
	ErrNoOccurrence = errors.New("sanitize: selection not found in text")
	// ErrNothingToRedact: redaction requested with no confirmed spans.
	ErrNothingToRedact = errors.New("sanitize: nothing to redact")
	// ErrInvalidStatus: a status string outside pending/confirmed/rejected.
	ErrInvalidStatus = errors.New("sanitize: invalid status")
	// ErrOracle: every configured classifier failed.
	ErrOracle = errors.New("sanitize: detection oracle failed")
)
