package core

// errors.go defines the submission error taxonomy.
//
//   - Validation: no file selected at submit time. Detected locally, no call.
//   - Transport: network failure, timeout, malformed body, breaker open.
//     Shown with the generic message.
//   - Service: the classifier answered with an error status or an "error"
//     field. Its text is shown verbatim.

import (
	"errors"
	"fmt"
)

// User-facing failure texts.
const (
	NoFileMessage         = "Please select an image first"
	GenericFailureMessage = "An error occurred during classification. Please try again."
)

var (
	// ErrNoFileSelected is the validation failure for a submit without a file.
	ErrNoFileSelected = errors.New("no file selected")

	// ErrControllerClosed is returned when a torn-down session is used.
	ErrControllerClosed = errors.New("upload controller closed")

	// ErrUnknownCard is returned when toggling a card index that is not rendered.
	ErrUnknownCard = errors.New("unknown card")

	// ErrSubmissionInProgress is returned by surfaces that suppress a second
	// submit while one is loading.
	ErrSubmissionInProgress = errors.New("submission in progress")
)

// TransportError reports a failure to get a usable answer from the classifier.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("classifier %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is a structured rejection from the classifier.
// Message is empty when the response carried no "error" text.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("classifier returned status %d", e.Status)
	}
	return fmt.Sprintf("classifier returned status %d: %s", e.Status, e.Message)
}

// FailureMessage picks the text shown for a failed submission.
func FailureMessage(err error) string {
	if errors.Is(err, ErrNoFileSelected) {
		return NoFileMessage
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	return GenericFailureMessage
}
