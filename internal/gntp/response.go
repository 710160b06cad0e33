package gntp

import (
	"fmt"
	"io"
	"os"
	"strconv"
)

// ResponseType is the status carried on the response line.
type ResponseType string

const (
	ResponseOK    ResponseType = "-OK"
	ResponseError ResponseType = "-ERROR"
)

// Response is one outgoing status line plus header block. All
// responses terminate with a blank line, matching request framing.
type Response struct {
	Type    ResponseType
	Headers *Headers
}

func NewResponse(t ResponseType) *Response {
	return &Response{Type: t, Headers: NewHeaders()}
}

// NewErrorResponse maps a protocol error onto the wire taxonomy.
func NewErrorResponse(perr *Error) *Response {
	r := NewResponse(ResponseError)
	r.Headers.Set(HeaderErrorCode, strconv.Itoa(perr.Code))
	r.Headers.Set(HeaderErrorDescription, perr.Description)
	return r
}

// AddOriginHeaders attaches the responding machine and software
// identity.
func (r *Response) AddOriginHeaders() {
	if host, err := os.Hostname(); err == nil {
		r.Headers.Set(HeaderOriginMachineName, host)
	}
	r.Headers.Set(HeaderOriginSoftwareName, SoftwareName)
	r.Headers.Set(HeaderOriginSoftwareVersion, SoftwareVersion)
}

// Write serializes the response: status line, headers in insertion
// order, blank terminator.
func (r *Response) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s/%s %s %s\r\n", ProtocolName, ProtocolVersion, r.Type, EncryptionNone); err != nil {
		return err
	}
	for _, key := range r.Headers.Keys() {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", key, r.Headers.Get(key)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
