package core

// error_messages.go maps technical errors to user-facing messages with
// codes for support reference.
//
// # Error Codes Reference
//
//	SRC001 - Source unreadable: the file could not be opened or read
//	SRC002 - Malformed source: the file is not valid for its format or has no header line
//	SRC003 - Unsupported format: no reader is registered for the file extension
//	CFG001 - Invalid configuration: the importer definition is inconsistent
//	DEF001 - Unknown definition: no importer is registered under the name
//	SAV001 - Save failed: a row could not be persisted; the import stopped
//	DB001  - Duplicate key: a record with this key already exists
//	DB004  - Connection refused: the database is unreachable
//	FILE001 - File too large: the upload exceeds the size limit
//	UPL001 - No file: the request carried no "file" form field
//	UPL002 - System busy: too many imports in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//	ERR000 - Unknown error: fallback when nothing else matches
//
// Error kinds are matched with errors.Is first; the pattern table is
// consulted for errors that only carry text (driver errors, wrapped
// strings). Patterns are matched case-insensitively and the first match
// wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgSourceUnreadable = UserMessage{
		Message: "The file could not be read",
		Action:  "Check that the file exists and is not open in another program",
		Code:    "SRC001",
	}
	msgMalformedSource = UserMessage{
		Message: "The file is damaged or has no header line",
		Action:  "Make sure the first line holds the column names",
		Code:    "SRC002",
	}
	msgUnresolvedReader = UserMessage{
		Message: "This file format is not supported",
		Action:  "Upload a .csv, .xls or .xlsx file",
		Code:    "SRC003",
	}
	msgInvalidConfig = UserMessage{
		Message: "The import definition is invalid",
		Action:  "Review the declared fields, required fields and rules",
		Code:    "CFG001",
	}
	msgSaveFailed = UserMessage{
		Message: "A row could not be saved and the import stopped",
		Action:  "Fix the reported line and import the file again",
		Code:    "SAV001",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}
)

// kindMessages is consulted in order with errors.Is.
var kindMessages = []struct {
	kind error
	msg  UserMessage
}{
	{ErrSaveFailed, msgSaveFailed},
	{ErrSourceUnreadable, msgSourceUnreadable},
	{ErrMalformedSource, msgMalformedSource},
	{ErrUnresolvedReader, msgUnresolvedReader},
	{ErrInvalidConfig, msgInvalidConfig},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{pattern: "invalid definition", msg: msgInvalidConfig},
	{
		pattern: "unknown definition",
		msg: UserMessage{
			Message: "No importer is registered under this name",
			Action:  "Pick one of the listed definitions",
			Code:    "DEF001",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Remove duplicate rows and import again",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was uploaded",
			Action:  "Attach the file in the \"file\" form field",
			Code:    "UPL001",
		},
	},
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "context deadline exceeded", msg: msgTimeout},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	_, err := core.New(reader.FromPath("notes.txt"), cfg)
//	msg := core.MapError(err)
//	// msg.Code == "SRC003"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, km := range kindMessages {
		if errors.Is(err, km.kind) {
			return km.msg
		}
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
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
