package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/gntpd/internal/gntp"
	"github.com/danmuck/gntpd/internal/registry"
	"github.com/danmuck/gntpd/internal/store"
	"github.com/danmuck/gntpd/internal/testutil/testlog"
)

type captureSink struct {
	displayed chan *gntp.Notification
}

func (s *captureSink) Display(n *gntp.Notification) error {
	s.displayed <- n
	return nil
}

func startServer(t *testing.T, reg *registry.Registry, snk gntp.Sink) (*Server, context.CancelFunc) {
	t.Helper()
	srv := New(Config{Addr: "127.0.0.1:0"}, reg, snk, store.DiscardStore{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve returned: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("serve did not stop")
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("server never bound a listener")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return srv, cancel
}

func exchange(t *testing.T, addr net.Addr, request string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := conn.Write([]byte(request)); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out strings.Builder
	br := bufio.NewReader(conn)
	for {
		line, err := br.ReadString('\n')
		out.WriteString(line)
		if err != nil || line == "\r\n" {
			return out.String()
		}
	}
}

func TestServeHandlesNotify(t *testing.T) {
	testlog.Start(t)
	reg := registry.New(nil)
	app := reg.RegisterApplication("Test", "")
	reg.RegisterNotificationType(app, "Alert", "Alert", true, "")
	snk := &captureSink{displayed: make(chan *gntp.Notification, 1)}

	srv, _ := startServer(t, reg, snk)
	resp := exchange(t, srv.Addr(), "GNTP/1.0 NOTIFY NONE\r\n"+
		"Application-Name: Test\r\n"+
		"Notification-Name: Alert\r\n"+
		"Notification-Title: Over TCP\r\n"+
		"\r\n")

	if !strings.HasPrefix(resp, "GNTP/1.0 -OK NONE\r\n") {
		t.Fatalf("unexpected response: %q", resp)
	}
	select {
	case n := <-snk.displayed:
		if n.Title != "Over TCP" {
			t.Fatalf("unexpected notification: %+v", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("sink never invoked")
	}
}

func TestServeRegisterThenNotify(t *testing.T) {
	testlog.Start(t)
	reg := registry.New(nil)
	snk := &captureSink{displayed: make(chan *gntp.Notification, 1)}

	srv, _ := startServer(t, reg, snk)
	resp := exchange(t, srv.Addr(), "GNTP/1.0 REGISTER NONE\r\n"+
		"Application-Name: Mail\r\n"+
		"Notifications-Count: 1\r\n"+
		"\r\n"+
		"Notification-Name: New Mail\r\n"+
		"\r\n")
	if !strings.HasPrefix(resp, "GNTP/1.0 -OK NONE\r\n") {
		t.Fatalf("register failed: %q", resp)
	}

	resp = exchange(t, srv.Addr(), "GNTP/1.0 NOTIFY NONE\r\n"+
		"Application-Name: Mail\r\n"+
		"Notification-Name: New Mail\r\n"+
		"Notification-Title: Hi\r\n"+
		"\r\n")
	if !strings.HasPrefix(resp, "GNTP/1.0 -OK NONE\r\n") {
		t.Fatalf("notify after register failed: %q", resp)
	}
}

func TestServeAnswersGarbageWithError(t *testing.T) {
	testlog.Start(t)
	srv, _ := startServer(t, registry.New(nil), &captureSink{displayed: make(chan *gntp.Notification, 1)})

	resp := exchange(t, srv.Addr(), "GET / HTTP/1.1\r\n")
	if !strings.HasPrefix(resp, "GNTP/1.0 -ERROR NONE\r\n") {
		t.Fatalf("unexpected response: %q", resp)
	}
	if !strings.Contains(resp, "Error-Code: 300\r\n") {
		t.Fatalf("unexpected error code: %q", resp)
	}
}

func TestCloseUnblocksServe(t *testing.T) {
	testlog.Start(t)
	srv := New(Config{Addr: "127.0.0.1:0"}, registry.New(nil), &captureSink{displayed: make(chan *gntp.Notification, 1)}, store.DiscardStore{})

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("server never bound a listener")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("second close must be a no-op: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("close did not unblock serve")
	}
}

func TestAdminRouterEndpoints(t *testing.T) {
	testlog.Start(t)
	reg := registry.New(nil)
	app := reg.RegisterApplication("Test", "")
	reg.RegisterNotificationType(app, "Alert", "Alert", true, "")

	r := NewAdminRouter(reg, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health status %d body=%s", rr.Code, rr.Body.String())
	}
	var health map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" {
		t.Fatalf("unexpected health body: %#v", health)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/applications", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("applications status %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"Test"`) {
		t.Fatalf("registered application missing from listing: %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rr.Code)
	}
}

func TestNormalizeOrigins(t *testing.T) {
	defaults := normalizeOrigins(nil)
	if len(defaults) != 2 {
		t.Fatalf("unexpected defaults: %v", defaults)
	}
	got := normalizeOrigins([]string{" https://ui.example ", "", "https://other.example"})
	if len(got) != 2 || got[0] != "https://ui.example" {
		t.Fatalf("unexpected origins: %v", got)
	}
}
