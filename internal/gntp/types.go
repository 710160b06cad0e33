package gntp

import (
	"io"
	"time"
)

// Application is a registered sender identity.
type Application struct {
	Name string
	Icon string
}

// NotificationType is a named category of notification an application
// may emit.
type NotificationType struct {
	Application string
	Name        string
	DisplayName string
	Enabled     bool
	Icon        string
}

// Resource is one embedded binary payload. The payload itself lives in
// the resource store; the request only keeps the frame metadata.
type Resource struct {
	Identifier string
	Length     int64
	Headers    *Headers

	// AlreadyCached marks a dedup hit: the bytes were consumed off the
	// wire but not persisted a second time.
	AlreadyCached bool
}

// Notification is the payload handed to the sink for display.
type Notification struct {
	Application string
	Type        *NotificationType
	ID          string
	Title       string
	Text        string
	Icon        string
	Resources   map[string]*Resource
	Received    time.Time
}

// Registry resolves and registers applications, notification types,
// and authentication keys. Implementations own their synchronization.
type Registry interface {
	ResolveApplication(name string) (*Application, bool)
	RegisterApplication(name, icon string) *Application
	ResolveNotificationType(app *Application, typeName string) (*NotificationType, bool)
	RegisterNotificationType(app *Application, typeName, displayName string, enabled bool, icon string) *NotificationType

	// MatchingKey compares the supplied salted hash against every
	// configured password and returns the matching password's digest,
	// which doubles as the decryption key.
	MatchingKey(algo HashAlgorithm, hashHex, saltHex string) ([]byte, bool)
	RequiresAuthentication() bool
}

// Sink receives completed notifications for local display.
type Sink interface {
	Display(n *Notification) error
}

// ResourceStore decides the caching outcome for one resource payload.
// On a cache hit it returns alreadyCached=true and a nil sink: the
// caller still drains the payload off the wire but discards it. On a
// miss the decrypted payload is written to sink, then closed.
type ResourceStore interface {
	AcquireCacheSlot(identifier string, headers *Headers) (alreadyCached bool, sink io.WriteCloser, err error)
}
