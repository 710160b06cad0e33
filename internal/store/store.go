// Package store owns resource payload retention.
//
// Ownership boundary:
// - cache-slot acquisition with hit/miss outcomes
// - disk-backed retention keyed by resource identifier
// - discard-after-read retention for hosts without a cache directory
//
// The wire-alignment rule (payload bytes are always consumed) lives in
// the protocol engine; stores only decide what happens to the bytes.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/gntpd/internal/gntp"
)

// DiskStore caches payloads as files under a root directory, keyed by
// resource identifier. A second request carrying the same identifier
// is a cache hit and is not written again.
type DiskStore struct {
	mu   sync.Mutex
	root string
}

var _ gntp.ResourceStore = (*DiskStore)(nil)

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create resource cache: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// AcquireCacheSlot reports a hit when a file for the identifier
// already exists; on a miss it opens a temporary file that is renamed
// into place on Close, so only fully written payloads count as cached.
func (s *DiskStore) AcquireCacheSlot(identifier string, headers *gntp.Headers) (bool, io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(identifier)
	if _, err := os.Stat(path); err == nil {
		log.Debug().Str("identifier", identifier).Str("path", path).Msg("resource cache hit")
		return true, nil, nil
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return false, nil, fmt.Errorf("create cache file: %w", err)
	}
	return false, &cacheFile{f: f, tmp: tmp, final: path}, nil
}

// cacheFile publishes under the final path only on a clean Close. A
// write fault discards the temporary file instead of leaving a partial
// payload at the cache path.
type cacheFile struct {
	f      *os.File
	tmp    string
	final  string
	failed bool
}

func (c *cacheFile) Write(p []byte) (int, error) {
	n, err := c.f.Write(p)
	if err != nil {
		c.failed = true
	}
	return n, err
}

func (c *cacheFile) Close() error {
	closeErr := c.f.Close()
	if c.failed || closeErr != nil {
		os.Remove(c.tmp)
		return closeErr
	}
	return os.Rename(c.tmp, c.final)
}

// Path returns the cache file path for an identifier.
func (s *DiskStore) Path(identifier string) string {
	return filepath.Join(s.root, sanitize(identifier)+".bin")
}

// sanitize keeps identifiers filesystem-safe. Well-behaved senders use
// hex digests already; anything else is hashed.
func sanitize(identifier string) string {
	for i := 0; i < len(identifier); i++ {
		c := identifier[i]
		ok := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_' || c == '.'
		if !ok {
			sum := sha256.Sum256([]byte(identifier))
			return hex.EncodeToString(sum[:])
		}
	}
	if identifier == "" {
		sum := sha256.Sum256(nil)
		return hex.EncodeToString(sum[:])
	}
	return identifier
}

// DiscardStore drains every payload without retaining it. Every
// acquisition is a cache miss whose sink throws the bytes away.
type DiscardStore struct{}

var _ gntp.ResourceStore = DiscardStore{}

func (DiscardStore) AcquireCacheSlot(identifier string, headers *gntp.Headers) (bool, io.WriteCloser, error) {
	return false, nopWriteCloser{}, nil
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }
