package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/catalog"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/survey"
)

// DefaultTTL is how long an idle session survives before the sweeper
// removes it.
const DefaultTTL = 24 * time.Hour

// Manager hands out sessions keyed by opaque tokens. Sessions are
// in-memory: one student drives one session sequentially, and sessions
// share nothing but the read-only catalog.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	catalog   *catalog.Catalog
	questions *survey.Set
	completer Completer
	recorder  Recorder
	lang      model.Language
	ttl       time.Duration
}

// NewManager creates a session manager. A nil completer is allowed and
// blocks conversation operations on every session.
func NewManager(c *catalog.Catalog, q *survey.Set, comp Completer, rec Recorder, lang model.Language, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		catalog:   c,
		questions: q,
		completer: comp,
		recorder:  rec,
		lang:      lang,
		ttl:       ttl,
	}
}

// Get returns the session for a token, or nil if unknown.
func (m *Manager) Get(token string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[token]
}

// GetOrCreate returns the session for a token, creating a fresh session
// under a new token when the given one is empty or unknown.
func (m *Manager) GetOrCreate(token string) (string, *Session, error) {
	if token != "" {
		if s := m.Get(token); s != nil {
			return token, s, nil
		}
	}

	token, err := generateToken()
	if err != nil {
		return "", nil, err
	}
	s := newSession(m.catalog, m.questions, m.completer, m.recorder, m.lang)

	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()
	return token, s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how
// many were removed. Idleness is checked outside the manager lock and
// without waiting on any session's mutex, so a slow completion call in
// one session never stalls token lookups for the others.
func (m *Manager) Sweep() int {
	m.mu.RLock()
	candidates := make(map[string]*Session, len(m.sessions))
	for token, s := range m.sessions {
		candidates[token] = s
	}
	m.mu.RUnlock()

	var stale []string
	for token, s := range candidates {
		if s.idleFor(m.ttl) {
			stale = append(stale, token)
		}
	}
	if len(stale) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, token := range stale {
		if _, ok := m.sessions[token]; ok {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps expired sessions periodically until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Info("removed expired sessions", "count", n)
			}
		}
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
