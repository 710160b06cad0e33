package gntp

import (
	"bytes"
	"strings"
	"testing"
)

func TestResponseWriteOK(t *testing.T) {
	r := NewResponse(ResponseOK)
	r.Headers.Set(HeaderNotificationID, "n1")

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "GNTP/1.0 -OK NONE\r\nNotification-ID: n1\r\n\r\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestResponseWriteError(t *testing.T) {
	r := NewErrorResponse(ErrUnknownApplication)

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "GNTP/1.0 -ERROR NONE\r\n") {
		t.Fatalf("bad status line: %q", out)
	}
	if !strings.Contains(out, "Error-Code: 401\r\n") {
		t.Fatalf("missing error code: %q", out)
	}
	if !strings.Contains(out, "Error-Description: "+ErrUnknownApplication.Description+"\r\n") {
		t.Fatalf("missing error description: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\n") {
		t.Fatalf("response must end with a blank line: %q", out)
	}
}

func TestResponseOriginHeaders(t *testing.T) {
	r := NewResponse(ResponseOK)
	r.AddOriginHeaders()

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, HeaderOriginSoftwareName+": "+SoftwareName+"\r\n") {
		t.Fatalf("missing software name: %q", out)
	}
	if !strings.Contains(out, HeaderOriginSoftwareVersion+": "+SoftwareVersion+"\r\n") {
		t.Fatalf("missing software version: %q", out)
	}
}
