package gntp

import (
	"errors"
	"fmt"
)

// Error is a protocol-level failure that must be reported to the peer
// as an ERROR response. Code and Description are the wire taxonomy;
// Detail is logged locally and never sent.
type Error struct {
	Code        int
	Description string
	Detail      string
}

// The fixed error taxonomy. Codes follow the GNTP numbering scheme.
var (
	ErrInvalidRequest         = &Error{Code: 300, Description: "Invalid request"}
	ErrUnknownProtocol        = &Error{Code: 301, Description: "Unknown protocol"}
	ErrUnknownProtocolVersion = &Error{Code: 302, Description: "Unknown protocol version"}
	ErrNotAuthorized          = &Error{Code: 400, Description: "Not authorized"}
	ErrUnknownApplication     = &Error{Code: 401, Description: "Unknown application"}
	ErrUnknownNotification    = &Error{Code: 402, Description: "Unknown notification"}
	ErrInternalServerError    = &Error{Code: 500, Description: "Internal server error"}

	// Decryption failures share the InvalidRequest code but keep a
	// distinct description so a peer can tell tampering from a typo.
	ErrDecryptionFailed = &Error{Code: 300, Description: "Decryption failed"}
)

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("gntp: %d %s: %s", e.Code, e.Description, e.Detail)
	}
	return fmt.Sprintf("gntp: %d %s", e.Code, e.Description)
}

// Is matches taxonomy entries regardless of detail, so
// errors.Is(err, ErrInvalidRequest) works on detailed copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Description == t.Description
}

// WithDetail returns a copy of e carrying a local diagnostic detail.
func (e *Error) WithDetail(format string, args ...any) *Error {
	return &Error{Code: e.Code, Description: e.Description, Detail: fmt.Sprintf(format, args...)}
}

// ErrorFrom maps any failure caught at the connection boundary to the
// protocol error it should be reported as. Anything outside the
// taxonomy is an internal server fault.
func ErrorFrom(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	return ErrInternalServerError.WithDetail("%v", err)
}
