package gntp

import (
	"strconv"
	"strings"
)

// Headers is one "Key: Value" block with unique keys in arrival order.
// Within a block the last write wins; the key keeps its first position.
type Headers struct {
	keys   []string
	values map[string]string
}

func NewHeaders() *Headers {
	return &Headers{values: make(map[string]string)}
}

// Set stores value under key, replacing any earlier value.
func (h *Headers) Set(key, value string) {
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Get returns the value for key, or "" when absent.
func (h *Headers) Get(key string) string {
	return h.values[key]
}

// Lookup returns the value for key and whether it was present.
func (h *Headers) Lookup(key string) (string, bool) {
	v, ok := h.values[key]
	return v, ok
}

// Int parses the value for key as a non-negative integer.
func (h *Headers) Int(key string) (int, error) {
	v, ok := h.values[key]
	if !ok {
		return 0, ErrInvalidRequest.WithDetail("missing %s header", key)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, ErrInvalidRequest.WithDetail("%s is not a number: %q", key, v)
	}
	if n < 0 {
		return 0, ErrInvalidRequest.WithDetail("%s is negative: %d", key, n)
	}
	return n, nil
}

// Bool parses the value for key, defaulting to false when absent or
// unparseable. GNTP senders use True/False, Yes/No, 1/0.
func (h *Headers) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(h.values[key])) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// Len returns the number of distinct keys in the block.
func (h *Headers) Len() int {
	return len(h.keys)
}

// Keys returns the keys in arrival order.
func (h *Headers) Keys() []string {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

// ParseHeaderLine splits one header line on the first colon. The value
// is trimmed; a line without a colon is a protocol fault.
func ParseHeaderLine(line string) (key, value string, err error) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", ErrInvalidRequest.WithDetail("unable to parse header: %q", line)
	}
	return line[:i], strings.TrimSpace(line[i+1:]), nil
}
