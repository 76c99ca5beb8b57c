package session

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

// ErrNoCredential is returned when a request is attempted without a token.
var ErrNoCredential = fmt.Errorf("%w: no bearer credential", domain.ErrAuth)

// Session holds the bearer credential for the current user. It implements
// oauth2.TokenSource so the transport can attach the token.
type Session struct {
	mu          sync.RWMutex
	token       string
	invalidated bool
	onInvalid   []func()
}

// New creates a session with the given access token (may be empty).
func New(token string) *Session {
	return &Session{token: strings.TrimSpace(token)}
}

// SetToken replaces the credential, e.g. after login.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
	s.invalidated = false
}

// Authenticated reports whether a usable credential is present.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && !s.invalidated
}

// Token implements oauth2.TokenSource.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.invalidated {
		return nil, ErrNoCredential
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}

// OnInvalidate registers a callback run when the service rejects the token.
func (s *Session) OnInvalidate(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onInvalid = append(s.onInvalid, fn)
	s.mu.Unlock()
}

// Invalidate drops the credential after the service rejected it.
func (s *Session) Invalidate() {
	s.mu.Lock()
	if s.invalidated {
		s.mu.Unlock()
		return
	}
	s.invalidated = true
	s.token = ""
	callbacks := append([]func(){}, s.onInvalid...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
