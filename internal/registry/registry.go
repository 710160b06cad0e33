// Package registry owns the in-memory application registry and the
// configured password list.
//
// Ownership boundary:
// - application / notification-type lookup and registration
// - salted password-hash matching and key derivation
//
// One registry is shared by every connection; all access goes through
// an internal RWMutex.
package registry

import (
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/gntpd/internal/gntp"
)

type appEntry struct {
	app   *gntp.Application
	types map[string]*gntp.NotificationType
}

// Registry implements gntp.Registry with in-memory state.
type Registry struct {
	mu        sync.RWMutex
	apps      map[string]*appEntry
	passwords []string
}

var _ gntp.Registry = (*Registry)(nil)

// New creates a registry. A non-empty password list makes
// authentication mandatory for every request.
func New(passwords []string) *Registry {
	return &Registry{
		apps:      make(map[string]*appEntry),
		passwords: append([]string(nil), passwords...),
	}
}

// ResolveApplication returns a registered application by name.
func (r *Registry) ResolveApplication(name string) (*gntp.Application, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.apps[name]
	if !ok {
		return nil, false
	}
	return entry.app, true
}

// RegisterApplication resolves-or-creates an application by name.
// Re-registering updates the icon reference rather than duplicating.
func (r *Registry) RegisterApplication(name, icon string) *gntp.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.apps[name]; ok {
		entry.app.Icon = icon
		log.Debug().Str("application", name).Msg("re-registered application")
		return entry.app
	}
	entry := &appEntry{
		app:   &gntp.Application{Name: name, Icon: icon},
		types: make(map[string]*gntp.NotificationType),
	}
	r.apps[name] = entry
	log.Info().Str("application", name).Msg("registered application")
	return entry.app
}

// ResolveNotificationType returns a type registered under app.
func (r *Registry) ResolveNotificationType(app *gntp.Application, typeName string) (*gntp.NotificationType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.apps[app.Name]
	if !ok {
		return nil, false
	}
	nt, ok := entry.types[typeName]
	return nt, ok
}

// RegisterNotificationType registers or updates a type under app,
// idempotent per (application, type name) pair.
func (r *Registry) RegisterNotificationType(app *gntp.Application, typeName, displayName string, enabled bool, icon string) *gntp.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.apps[app.Name]
	if !ok {
		entry = &appEntry{app: app, types: make(map[string]*gntp.NotificationType)}
		r.apps[app.Name] = entry
	}
	nt := &gntp.NotificationType{
		Application: app.Name,
		Name:        typeName,
		DisplayName: displayName,
		Enabled:     enabled,
		Icon:        icon,
	}
	entry.types[typeName] = nt
	return nt
}

// MatchingKey computes digest(password ++ salt) for every configured
// password and returns the digest of the first one whose hash matches.
func (r *Registry) MatchingKey(algo gntp.HashAlgorithm, hashHex, saltHex string) ([]byte, bool) {
	hash, err := hex.DecodeString(hashHex)
	if err != nil {
		return nil, false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, password := range r.passwords {
		digest := algo.Digest([]byte(password), salt)
		if subtle.ConstantTimeCompare(digest, hash) == 1 {
			return digest, true
		}
	}
	return nil, false
}

// RequiresAuthentication reports whether a key hash is mandatory.
func (r *Registry) RequiresAuthentication() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.passwords) > 0
}

// ApplicationInfo is a read-only snapshot for the admin surface.
type ApplicationInfo struct {
	Name      string   `json:"name"`
	Icon      string   `json:"icon,omitempty"`
	TypeNames []string `json:"types"`
}

// Applications returns deterministic snapshots ordered by name.
func (r *Registry) Applications() []ApplicationInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]ApplicationInfo, 0, len(r.apps))
	for _, entry := range r.apps {
		info := ApplicationInfo{
			Name:      entry.app.Name,
			Icon:      entry.app.Icon,
			TypeNames: make([]string, 0, len(entry.types)),
		}
		for name := range entry.types {
			info.TypeNames = append(info.TypeNames, name)
		}
		sort.Strings(info.TypeNames)
		list = append(list, info)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}
