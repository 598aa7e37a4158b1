package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// The codes are logged next to the technical error and shown beside web-layer
// alerts, so a user can quote them when asking for help.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: Image exceeds the maximum upload size
//	          Action: Choose an image under 16MB
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - No file: No image was selected
//	          Action: Choose a medical image to upload
//	          Patterns: "no file provided", "no file selected"
//
//	FILE003 - Invalid form: The upload could not be read
//	          Action: Reload the page and choose the image again
//	          Patterns: "invalid form", "multipart"
//
// # Classifier Errors (CLS001-CLS099)
//
//	CLS001 - Unreachable: The classification service could not be reached
//	         Action: Please try again in a few moments
//	         Patterns: "connection refused", "no such host"
//
//	CLS002 - Timeout: The classification service did not answer in time
//	         Action: Try a smaller image or try again later
//	         Patterns: "deadline exceeded", "timeout"
//
//	CLS003 - Unavailable: The classification service is temporarily disabled
//	         Action: Please wait a moment and try again
//	         Patterns: "circuit breaker is open", "too many requests",
//	                   "too many concurrent classifications"
//
//	CLS004 - Malformed: The classification service sent an unreadable answer
//	         Action: Please try again or contact support
//	         Patterns: "malformed response"
//
// # Session Errors (SES001-SES099, CARD001-CARD099)
//
//	SES001 - In progress: A classification is already running
//	         Action: Wait for the current result
//	         Patterns: "submission in progress"
//
//	CARD001 - Unknown card: The result card no longer exists
//	          Action: Reload the page
//	          Patterns: "unknown card"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Navigation (NAV001-NAV099)
//
//	NAV001 - Not found: The requested page does not exist
//	         Action: Return to the classification page
//	         Patterns: "not found"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgFileTooLarge = UserMessage{
		Message: "Image exceeds the maximum upload size",
		Action:  "Choose an image under 16MB",
		Code:    "FILE001",
	}
	msgNoFile = UserMessage{
		Message: "No image was selected",
		Action:  "Choose a medical image to upload",
		Code:    "FILE002",
	}
	msgInvalidForm = UserMessage{
		Message: "The upload could not be read",
		Action:  "Reload the page and choose the image again",
		Code:    "FILE003",
	}
	msgUnreachable = UserMessage{
		Message: "The classification service could not be reached",
		Action:  "Please try again in a few moments",
		Code:    "CLS001",
	}
	msgTimeout = UserMessage{
		Message: "The classification service did not answer in time",
		Action:  "Try a smaller image or try again later",
		Code:    "CLS002",
	}
	msgUnavailable = UserMessage{
		Message: "The classification service is temporarily unavailable",
		Action:  "Please wait a moment and try again",
		Code:    "CLS003",
	}
	msgMalformed = UserMessage{
		Message: "The classification service sent an unreadable answer",
		Action:  "Please try again or contact support",
		Code:    "CLS004",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	// File errors
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "request body too large", msg: msgFileTooLarge},
	{pattern: "no file provided", msg: msgNoFile},
	{pattern: "no file selected", msg: msgNoFile},
	{pattern: "invalid form", msg: msgInvalidForm},
	{pattern: "multipart", msg: msgInvalidForm},

	// Classifier errors
	{pattern: "connection refused", msg: msgUnreachable},
	{pattern: "no such host", msg: msgUnreachable},
	{pattern: "deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "circuit breaker is open", msg: msgUnavailable},
	{pattern: "too many requests", msg: msgUnavailable},
	{pattern: "too many concurrent classifications", msg: msgUnavailable},
	{pattern: "malformed response", msg: msgMalformed},

	// Session errors
	{
		pattern: "submission in progress",
		msg: UserMessage{
			Message: "A classification is already running",
			Action:  "Wait for the current result",
			Code:    "SES001",
		},
	},
	{
		pattern: "unknown card",
		msg: UserMessage{
			Message: "The result card no longer exists",
			Action:  "Reload the page",
			Code:    "CARD001",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},

	// Navigation
	{
		pattern: "not found",
		msg: UserMessage{
			Message: "The requested page does not exist",
			Action:  "Return to the classification page",
			Code:    "NAV001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
