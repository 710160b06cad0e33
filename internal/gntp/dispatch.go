package gntp

import (
	"time"
)

// Dispatcher interprets a completed request against the registry and
// sink collaborators.
type Dispatcher struct {
	Registry Registry
	Sink     Sink
}

// Register resolves-or-creates the application and registers every
// parsed notification-type block under it. Re-registration updates,
// never duplicates.
func (d *Dispatcher) Register(headers *Headers, types []*Headers) error {
	name, ok := headers.Lookup(HeaderApplicationName)
	if !ok || name == "" {
		return ErrInvalidRequest.WithDetail("missing %s header", HeaderApplicationName)
	}
	app := d.Registry.RegisterApplication(name, headers.Get(HeaderApplicationIcon))

	for i, block := range types {
		if block == nil || block.Get(HeaderNotificationName) == "" {
			return ErrInvalidRequest.WithDetail("notification type %d is missing %s", i, HeaderNotificationName)
		}
		typeName := block.Get(HeaderNotificationName)
		displayName := block.Get(HeaderNotificationDisplayName)
		if displayName == "" {
			displayName = typeName
		}
		d.Registry.RegisterNotificationType(app, typeName, displayName, block.Bool(HeaderNotificationEnabled), block.Get(HeaderNotificationIcon))
	}
	return nil
}

// Notify resolves the application and notification type, builds the
// display payload, and hands it to the sink. The notification ID from
// the request is returned for the response, possibly empty.
func (d *Dispatcher) Notify(headers *Headers, resources map[string]*Resource, received time.Time) (string, error) {
	app, ok := d.Registry.ResolveApplication(headers.Get(HeaderApplicationName))
	if !ok {
		return "", ErrUnknownApplication.WithDetail("application %q", headers.Get(HeaderApplicationName))
	}
	nt, ok := d.Registry.ResolveNotificationType(app, headers.Get(HeaderNotificationName))
	if !ok {
		return "", ErrUnknownNotification.WithDetail("notification %q for application %q", headers.Get(HeaderNotificationName), app.Name)
	}

	id := headers.Get(HeaderNotificationID)
	n := &Notification{
		Application: app.Name,
		Type:        nt,
		ID:          id,
		Title:       headers.Get(HeaderNotificationTitle),
		Text:        headers.Get(HeaderNotificationText),
		Icon:        headers.Get(HeaderNotificationIcon),
		Resources:   resources,
		Received:    received,
	}
	if err := d.Sink.Display(n); err != nil {
		return "", ErrInternalServerError.WithDetail("sink: %v", err)
	}
	return id, nil
}

// Subscribe is contractually defined but not implemented; it always
// reports a server fault rather than a parse error.
func (d *Dispatcher) Subscribe(headers *Headers) error {
	return ErrInternalServerError.WithDetail("SUBSCRIBE is not implemented")
}
