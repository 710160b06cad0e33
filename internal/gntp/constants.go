package gntp

// Protocol identity. Only GNTP/1.0 is spoken; anything else on the
// request line is rejected before headers are read.
const (
	ProtocolName    = "GNTP"
	ProtocolVersion = "1.0"
)

// ResourceURIPrefix marks a header value as a reference to a binary
// resource embedded later in the same request.
const ResourceURIPrefix = "x-growl-resource://"

// MaxResourceLength bounds one declared resource payload. Resources
// are icons and small images; a larger declaration is rejected before
// any buffer is allocated for it.
const MaxResourceLength = 16 << 20

// SubscriptionTTL is the TTL (seconds) reported on a successful
// SUBSCRIBE. SUBSCRIBE is not implemented, so this header is part of
// the contract but currently unreachable.
const SubscriptionTTL = "86400"

// Software identity reported in response origin headers.
const (
	SoftwareName    = "gntpd"
	SoftwareVersion = "0.1.0"
)

// Request and notification-type header names.
const (
	HeaderApplicationName         = "Application-Name"
	HeaderApplicationIcon         = "Application-Icon"
	HeaderNotificationsCount      = "Notifications-Count"
	HeaderNotificationName        = "Notification-Name"
	HeaderNotificationDisplayName = "Notification-Display-Name"
	HeaderNotificationEnabled     = "Notification-Enabled"
	HeaderNotificationIcon        = "Notification-Icon"
	HeaderNotificationID          = "Notification-ID"
	HeaderNotificationTitle       = "Notification-Title"
	HeaderNotificationText        = "Notification-Text"
)

// Resource block header names.
const (
	HeaderResourceIdentifier = "Identifier"
	HeaderResourceLength     = "Length"
)

// Response header names.
const (
	HeaderErrorCode             = "Error-Code"
	HeaderErrorDescription      = "Error-Description"
	HeaderSubscriptionTTL       = "Subscription-TTL"
	HeaderOriginMachineName     = "Origin-Machine-Name"
	HeaderOriginSoftwareName    = "Origin-Software-Name"
	HeaderOriginSoftwareVersion = "Origin-Software-Version"
)

// MessageType is the second field of the request line.
type MessageType string

const (
	MessageRegister  MessageType = "REGISTER"
	MessageNotify    MessageType = "NOTIFY"
	MessageSubscribe MessageType = "SUBSCRIBE"
)

// ParseMessageType maps a request-line field to a MessageType.
func ParseMessageType(s string) (MessageType, bool) {
	switch MessageType(s) {
	case MessageRegister, MessageNotify, MessageSubscribe:
		return MessageType(s), true
	}
	return "", false
}
