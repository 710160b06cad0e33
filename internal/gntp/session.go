package gntp

import (
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// state is the per-connection parse phase. Each state has exactly one
// transition function returning the next state.
type state int

const (
	stateConnected state = iota
	stateReadingRequestHeaders
	stateReadingNotificationHeaders
	stateReadingResourceHeaders
	stateReadingResourceData
	stateEndOfRequest
	stateResponseSent
)

// Outcome summarizes how a session ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeError   Outcome = "error"
	OutcomeIgnored Outcome = "ignored"
	OutcomeEOF     Outcome = "eof"
)

// Result reports the handled request for logging and metrics.
type Result struct {
	MessageType MessageType
	Outcome     Outcome
	Err         *Error
	Duration    time.Duration

	// ResourceBytes counts payload bytes consumed off the wire;
	// CachedBytes is the subset that hit the cache and was discarded.
	ResourceBytes int64
	CachedBytes   int64
}

// Session is one sequential GNTP exchange: it parses exactly one
// request, dispatches it, writes exactly one response, and is done.
// Failures at any phase map to a single ERROR response; end-of-stream
// before the request completes closes with no response at all.
type Session struct {
	reader *LineReader
	writer io.Writer

	registry Registry
	sink     Sink
	store    ResourceStore
	log      zerolog.Logger

	started time.Time
	state   state
	ignored bool

	requestLine *RequestLine

	requestHeaders      *Headers
	notificationsCount  int
	notificationIndex   int
	notificationHeaders []*Headers

	resources       map[string]*Resource
	attached        int
	currentResource *Headers

	resourceBytes int64
	cachedBytes   int64
}

// NewSession wires one connection's reader and writer to the
// collaborators. The id tags every log line for this connection.
func NewSession(id uint64, r io.Reader, w io.Writer, registry Registry, sink Sink, store ResourceStore) *Session {
	return &Session{
		reader:         NewLineReader(r),
		writer:         w,
		registry:       registry,
		sink:           sink,
		store:          store,
		log:            log.With().Uint64("conn", id).Logger(),
		started:        time.Now(),
		state:          stateConnected,
		requestHeaders: NewHeaders(),
		resources:      make(map[string]*Resource),
	}
}

// Run drives the state machine until a response has been sent or the
// stream ends.
func (s *Session) Run() Result {
	for s.state != stateResponseSent {
		line, err := s.reader.ReadLine()
		if err != nil {
			s.log.Info().Msg("connection closed before request completed")
			return s.result(OutcomeEOF, nil)
		}
		if err := s.step(line); err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Info().Msg("connection closed mid-request")
				return s.result(OutcomeEOF, nil)
			}
			perr := ErrorFrom(err)
			s.log.Warn().Int("code", perr.Code).Str("description", perr.Description).Str("detail", perr.Detail).Msg("request failed")
			resp := NewErrorResponse(perr)
			resp.AddOriginHeaders()
			if werr := resp.Write(s.writer); werr != nil {
				s.log.Warn().Err(werr).Msg("failed to write error response")
			}
			s.state = stateResponseSent
			return s.result(OutcomeError, perr)
		}
	}
	if s.ignored {
		return s.result(OutcomeIgnored, nil)
	}
	return s.result(OutcomeOK, nil)
}

func (s *Session) result(outcome Outcome, perr *Error) Result {
	var msgType MessageType
	if s.requestLine != nil {
		msgType = s.requestLine.MessageType
	}
	return Result{
		MessageType:   msgType,
		Outcome:       outcome,
		Err:           perr,
		Duration:      time.Since(s.started),
		ResourceBytes: s.resourceBytes,
		CachedBytes:   s.cachedBytes,
	}
}

// step feeds one line to the current state's transition function and
// finishes the request when the machine reaches end-of-request.
func (s *Session) step(line string) error {
	var err error
	switch s.state {
	case stateConnected:
		s.state, err = s.parseRequestLine(line)
	case stateReadingRequestHeaders:
		s.state, err = s.parseRequestHeader(line)
	case stateReadingNotificationHeaders:
		s.state, err = s.parseNotificationHeader(line)
	case stateReadingResourceHeaders:
		s.state, err = s.parseResourceHeader(line)
		if err == nil && s.state == stateReadingResourceData {
			s.state, err = s.readResourceData()
		}
	default:
		err = ErrInternalServerError.WithDetail("line in unexpected state %d", s.state)
	}
	if err != nil {
		return err
	}
	if s.state == stateEndOfRequest {
		return s.finish()
	}
	return nil
}

// parseRequestLine handles the Connected state: grammar, version
// checks, authentication, and cipher setup for the header block.
func (s *Session) parseRequestLine(line string) (state, error) {
	rl, err := ParseRequestLine(line)
	if err != nil {
		return s.state, err
	}
	s.requestLine = rl

	var key []byte
	switch {
	case rl.Auth != nil:
		matched, ok := s.registry.MatchingKey(rl.Auth.Algorithm, rl.Auth.HashHex, rl.Auth.SaltHex)
		if !ok {
			// Unmatched hash: NOTIFY over a cleartext channel is
			// silently ignored; everything else is a hard failure
			// since without the key nothing can be decrypted.
			if rl.MessageType == MessageNotify && rl.Encryption == EncryptionNone {
				s.ignored = true
				s.log.Warn().Msg("notification hash matches no configured password, ignoring")
				break
			}
			return s.state, ErrNotAuthorized.WithDetail("hash matches no configured password")
		}
		key = matched
	case s.registry.RequiresAuthentication():
		return s.state, ErrNotAuthorized.WithDetail("passwords are required but the request has no key hash")
	}

	cipher, err := NewCipher(rl.Encryption, key, rl.IV)
	if err != nil {
		return s.state, err
	}
	s.reader.SetCipher(cipher)
	if err := s.reader.DecryptHeaderBlock(); err != nil {
		return s.state, err
	}
	return stateReadingRequestHeaders, nil
}

// parseRequestHeader accumulates request headers until the blank line
// that ends the block.
func (s *Session) parseRequestHeader(line string) (state, error) {
	if line != "" {
		if err := s.parseHeaderInto(line, s.requestHeaders); err != nil {
			return s.state, err
		}
		return stateReadingRequestHeaders, nil
	}

	if s.requestLine.MessageType == MessageRegister {
		count, err := s.requestHeaders.Int(HeaderNotificationsCount)
		if err != nil {
			return s.state, err
		}
		s.notificationsCount = count
		s.notificationHeaders = make([]*Headers, count)
		if count > 0 {
			return stateReadingNotificationHeaders, nil
		}
	}
	return s.resourcesOrEnd(), nil
}

// parseNotificationHeader reads one header block per declared
// notification type; each blank line closes a block.
func (s *Session) parseNotificationHeader(line string) (state, error) {
	if line == "" {
		if s.notificationIndex < s.notificationsCount-1 {
			s.notificationIndex++
			return stateReadingNotificationHeaders, nil
		}
		return s.resourcesOrEnd(), nil
	}
	if s.notificationHeaders[s.notificationIndex] == nil {
		s.notificationHeaders[s.notificationIndex] = NewHeaders()
	}
	if err := s.parseHeaderInto(line, s.notificationHeaders[s.notificationIndex]); err != nil {
		return s.state, err
	}
	return stateReadingNotificationHeaders, nil
}

// parseResourceHeader reads one resource header block. A stray blank
// line while no block is open is tolerated: some senders emit two
// blank lines after resource data where the protocol calls for one.
func (s *Session) parseResourceHeader(line string) (state, error) {
	if line == "" {
		if s.currentResource == nil || s.currentResource.Len() == 0 {
			return stateReadingResourceHeaders, nil
		}
		return stateReadingResourceData, nil
	}
	if s.currentResource == nil {
		s.currentResource = NewHeaders()
	}
	if err := s.parseHeaderInto(line, s.currentResource); err != nil {
		return s.state, err
	}
	return stateReadingResourceHeaders, nil
}

// readResourceData consumes the declared payload length plus exactly
// one trailing blank line, then attaches the resource. Payload bytes
// are read off the wire even on a cache hit to keep stream alignment.
func (s *Session) readResourceData() (state, error) {
	headers := s.currentResource
	s.currentResource = nil

	identifier, ok := headers.Lookup(HeaderResourceIdentifier)
	if !ok || identifier == "" {
		return s.state, ErrInvalidRequest.WithDetail("resource block is missing %s", HeaderResourceIdentifier)
	}
	length, err := headers.Int(HeaderResourceLength)
	if err != nil {
		return s.state, err
	}
	if int64(length) > MaxResourceLength {
		return s.state, ErrInvalidRequest.WithDetail("resource length %d exceeds the %d-byte limit", length, MaxResourceLength)
	}

	payload, err := s.reader.ReadPayload(int64(length))
	if err != nil {
		return s.state, err
	}
	s.resourceBytes += int64(length)

	// The cache slot is acquired only once the payload has been fully
	// read, so a truncated or undecryptable stream never claims it.
	// Ignored requests drain their payloads but persist nothing.
	var alreadyCached bool
	if !s.ignored {
		var sink io.WriteCloser
		alreadyCached, sink, err = s.store.AcquireCacheSlot(identifier, headers)
		if err != nil {
			return s.state, ErrInternalServerError.WithDetail("resource store: %v", err)
		}
		if sink != nil {
			if _, err := sink.Write(payload); err != nil {
				sink.Close()
				return s.state, ErrInternalServerError.WithDetail("resource store: %v", err)
			}
			if err := sink.Close(); err != nil {
				return s.state, ErrInternalServerError.WithDetail("resource store: %v", err)
			}
			s.log.Debug().Str("identifier", identifier).Int("bytes", length).Msg("stored resource")
		} else if alreadyCached {
			s.cachedBytes += int64(length)
			s.log.Debug().Str("identifier", identifier).Int("bytes", length).Msg("skipped duplicate resource")
		}
	}

	blank, err := s.reader.ReadLine()
	if err != nil {
		return s.state, err
	}
	if blank != "" {
		return s.state, ErrInvalidRequest.WithDetail("expected blank line after resource data, got %q", blank)
	}

	s.resources[identifier] = &Resource{
		Identifier:    identifier,
		Length:        int64(length),
		Headers:       headers,
		AlreadyCached: alreadyCached,
	}
	s.attached++
	if s.attached >= len(s.resources) {
		return stateEndOfRequest, nil
	}
	return stateReadingResourceHeaders, nil
}

// resourcesOrEnd routes past the header phases: pending embedded
// resources first, otherwise the request is complete.
func (s *Session) resourcesOrEnd() state {
	if len(s.resources) > s.attached {
		return stateReadingResourceHeaders
	}
	return stateEndOfRequest
}

// parseHeaderInto parses one header line and records a pending
// resource placeholder when the value is a resource reference.
func (s *Session) parseHeaderInto(line string, headers *Headers) error {
	key, value, err := ParseHeaderLine(line)
	if err != nil {
		return err
	}
	headers.Set(key, value)
	if after, ok := cutResourceRef(value); ok {
		if _, exists := s.resources[after]; !exists {
			s.resources[after] = nil
		}
		s.log.Debug().Str("header", key).Str("identifier", after).Msg("header references an embedded resource")
	}
	return nil
}

func cutResourceRef(value string) (string, bool) {
	if len(value) <= len(ResourceURIPrefix) || value[:len(ResourceURIPrefix)] != ResourceURIPrefix {
		return "", false
	}
	return value[len(ResourceURIPrefix):], true
}

// finish dispatches the completed request and writes the OK response.
func (s *Session) finish() error {
	for id, r := range s.resources {
		if r == nil {
			return ErrInvalidRequest.WithDetail("resource %q was referenced but never attached", id)
		}
	}

	resp := NewResponse(ResponseOK)
	if s.ignored {
		s.log.Warn().Str("type", string(s.requestLine.MessageType)).Msg("ignoring request with invalid hash")
	} else {
		d := &Dispatcher{Registry: s.registry, Sink: s.sink}
		switch s.requestLine.MessageType {
		case MessageRegister:
			if err := d.Register(s.requestHeaders, s.notificationHeaders); err != nil {
				return err
			}
		case MessageNotify:
			id, err := d.Notify(s.requestHeaders, s.resources, s.started)
			if err != nil {
				return err
			}
			resp.Headers.Set(HeaderNotificationID, id)
		case MessageSubscribe:
			if err := d.Subscribe(s.requestHeaders); err != nil {
				return err
			}
			resp.Headers.Set(HeaderSubscriptionTTL, SubscriptionTTL)
		}
	}
	if s.ignored && s.requestLine.MessageType == MessageNotify {
		resp.Headers.Set(HeaderNotificationID, s.requestHeaders.Get(HeaderNotificationID))
	}

	resp.AddOriginHeaders()
	if err := resp.Write(s.writer); err != nil {
		return err
	}
	s.state = stateResponseSent
	s.log.Info().Str("type", string(s.requestLine.MessageType)).Dur("duration", time.Since(s.started)).Msg("request handled")
	return nil
}
