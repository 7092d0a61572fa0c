package utils

import (
	"errors"
	"fmt"
)

var (
	ErrorRecordNotFound = errors.New("record not found")

	// ErrorDocumentNotProcessed means the document exists but extraction has
	// not produced structured fields yet, so there is nothing to submit.
	ErrorDocumentNotProcessed = errors.New("document has not been processed")

	// ErrorVendorCommunication covers network failures and non-2xx responses
	// from the automation vendor. Callers surface it as a generic internal
	// error after the failure has been persisted locally.
	ErrorVendorCommunication = errors.New("automation vendor communication failed")

	ErrorJobKeyMissing = errors.New("rpa action has no job key")
)

// WrapCalculationError marks aggregation failures so the scheduler/handler
// layer can report them descriptively instead of crashing.
func WrapCalculationError(stage string, err error) error {
	return fmt.Errorf("financial metrics calculation failed at %s: %w", stage, err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrorRecordNotFound) ||
		errors.Is(err, ErrorDocumentNotProcessed) ||
		errors.Is(err, ErrorJobKeyMissing)
}
