package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/mototaxi/internal/models"
)

// Event is a session lifecycle notification.
type Event string

const (
	EventLogin  Event = "login"
	EventLogout Event = "logout"
	// EventForcedLogout fires when the backend rejects our token (401);
	// any active screen should drop to the login flow.
	EventForcedLogout Event = "forced_logout"
)

// State is everything the client persists between runs: the token pair,
// the cached profile, and the theme preference. Nothing else is durable.
type State struct {
	Access  string      `json:"access,omitempty"`
	Refresh string      `json:"refresh,omitempty"`
	User    models.User `json:"user,omitempty"`
	Theme   string      `json:"theme,omitempty"`
}

// Store owns session state with an explicit lifecycle: opened at startup,
// written through to disk on every change, torn down with the process.
// Interested components subscribe instead of reading ambient globals.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	state State
	subs  map[int]func(Event)
	next  int
}

// Open loads any previously persisted state from path. A missing file is a
// fresh logged-out session, not an error.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger, subs: make(map[int]func(Event))}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(b, &s.state); err != nil {
		// Corrupt state is discarded rather than blocking startup.
		logger.Warn("discarding unreadable session file", "path", path, "error", err)
		s.state = State{}
	}
	return s, nil
}

// Subscribe registers fn for session events and returns its cancel func.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// SetCredentials stores a fresh login and notifies subscribers.
func (s *Store) SetCredentials(access, refresh string, user models.User) error {
	s.mu.Lock()
	s.state.Access = access
	s.state.Refresh = refresh
	s.state.User = user
	err := s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emit(EventLogin)
	return nil
}

// Clear drops the credentials (user-initiated logout).
func (s *Store) Clear() error {
	return s.clear(EventLogout)
}

// ForceLogout drops the credentials in response to a 401. Wire this as the
// api client's unauthorized hook.
func (s *Store) ForceLogout() {
	if err := s.clear(EventForcedLogout); err != nil {
		s.logger.Error("persisting forced logout", "error", err)
	}
}

func (s *Store) clear(ev Event) error {
	s.mu.Lock()
	s.state.Access = ""
	s.state.Refresh = ""
	s.state.User = models.User{}
	err := s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emit(ev)
	return nil
}

// AccessToken implements api.TokenSource.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Access
}

func (s *Store) User() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User
}

func (s *Store) LoggedIn() bool {
	return s.AccessToken() != ""
}

// TokenFresh reports whether the stored access token exists and has not
// passed its exp claim. The signature is not verified here; that is the
// backend's job, this is only a cheap local staleness check.
func (s *Store) TokenFresh(now time.Time) bool {
	tok := s.AccessToken()
	if tok == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.Before(exp.Time)
}

func (s *Store) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Theme == "" {
		return "light"
	}
	return s.state.Theme
}

func (s *Store) SetTheme(theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Theme = theme
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
