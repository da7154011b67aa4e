// Package session tracks the single logged-in identity of an interactive
// run. The identity is held as a signed capability token; the core never
// sees ambient session state, only the Identity value derived per request.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"vaccine-scheduler/internal/apperr"
	"vaccine-scheduler/internal/auth"
	"vaccine-scheduler/internal/model"
)

type Manager struct {
	mu     sync.Mutex
	id     string
	token  string
	secret string
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: secret, ttl: ttl}
}

// Login opens a session for the identity. At most one user is logged in at a
// time; a second login is rejected until logout.
func (m *Manager) Login(ident model.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" {
		return apperr.New(apperr.CodeConflict, "user already logged in")
	}
	tok, err := auth.MakeToken(ident, m.secret, m.ttl)
	if err != nil {
		return apperr.Wrap(apperr.CodeStorage, "issuing session token", err)
	}
	m.id = uuid.New().String()
	m.token = tok
	return nil
}

func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return apperr.New(apperr.CodeUnauthenticated, "no user logged in")
	}
	m.id = ""
	m.token = ""
	return nil
}

// Current returns the authenticated identity, or the anonymous zero value
// when nobody is logged in or the token has expired.
func (m *Manager) Current() model.Identity {
	m.mu.Lock()
	tok := m.token
	m.mu.Unlock()
	if tok == "" {
		return model.Identity{}
	}
	ident, err := auth.ParseToken(tok, m.secret)
	if err != nil {
		// expired or tampered; drop the session
		m.mu.Lock()
		if m.token == tok {
			m.id = ""
			m.token = ""
		}
		m.mu.Unlock()
		return model.Identity{}
	}
	return ident
}

// ID identifies the active session in logs. Empty when logged out.
func (m *Manager) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}
