// Package session implements database backed cookie sessions for the web
// surface. The cookie carries a random token; only its SHA-256 digest is
// stored. A session also carries data for the next request only: flash
// messages, validation errors and the submitted form values.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/utils"
)

const (
	CookieName  = "finance_session"
	contextKey  = "session"
	RememberTTL = 30 * 24 * time.Hour
)

// Flash kinds.
const (
	Success = "success"
	Error   = "error"
)

// payload is what a session row stores between two requests.
type payload struct {
	Flash  map[string]string   `json:"flash,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
	Old    map[string]string   `json:"old,omitempty"`
}

// Session is the state of the current request's session. Reads see what
// the previous request left behind; writes are kept for the next one.
type Session struct {
	token     string
	userID    *uint64
	ttl       time.Duration
	stored    bool
	dirty     bool
	destroyed bool
	in        payload
	out       payload
}

func (s *Session) UserID() *uint64 { return s.userID }

// Flash queues a message for the next request.
func (s *Session) Flash(kind, msg string) {
	if s.out.Flash == nil {
		s.out.Flash = map[string]string{}
	}
	s.out.Flash[kind] = msg
	s.dirty, s.destroyed = true, false
}

// WithErrors queues validation errors and the submitted values for the
// next request.
func (s *Session) WithErrors(errs map[string][]string, old map[string]string) {
	s.out.Errors = errs
	s.out.Old = old
	s.dirty, s.destroyed = true, false
}

// Flashes returns the messages left by the previous request.
func (s *Session) Flashes() map[string]string { return s.in.Flash }

// Errors returns the validation errors left by the previous request.
func (s *Session) Errors() map[string][]string { return s.in.Errors }

// Old returns the form values left by the previous request.
func (s *Session) Old() map[string]string { return s.in.Old }

// Manager loads and stores sessions.
type Manager struct {
	Store  *repository.SessionRepo
	TTL    time.Duration
	Secure bool
	Log    *logrus.Logger
}

func NewManager(store *repository.SessionRepo, ttl time.Duration, secure bool, log *logrus.Logger) *Manager {
	return &Manager{Store: store, TTL: ttl, Secure: secure, Log: log}
}

// Get returns the session of c. It panics when Middleware was not applied.
func Get(c echo.Context) *Session {
	return c.Get(contextKey).(*Session)
}

// Lookup returns the session of c, or nil outside the web routes.
func Lookup(c echo.Context) *Session {
	s, _ := c.Get(contextKey).(*Session)
	return s
}

// Middleware loads the session for every request and writes it back just
// before the response header is sent. Sessions are rolling: each request
// that touches a stored session extends it.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := m.load(c)
			c.Set(contextKey, s)
			c.Response().Before(func() { m.commit(c, s) })
			return next(c)
		}
	}
}

func (m *Manager) load(c echo.Context) *Session {
	s := &Session{ttl: m.TTL}
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return s
	}
	row, err := m.Store.Find(c.Request().Context(), utils.HashToken(cookie.Value))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.Log.WithError(err).Error("load session")
		}
		return s
	}
	s.token = cookie.Value
	s.userID = row.UserID
	s.stored = true
	if row.Payload != "" {
		if err := json.Unmarshal([]byte(row.Payload), &s.in); err != nil {
			m.Log.WithError(err).Warn("decode session payload")
		}
	}
	// remembered sessions keep their longer lifetime
	if left := time.Until(row.ExpiresAt); left > m.TTL {
		s.ttl = RememberTTL
	}
	return s
}

func (m *Manager) commit(c echo.Context, s *Session) {
	if s.destroyed {
		m.setCookie(c, "", -1)
		return
	}
	if !s.stored && !s.dirty {
		return
	}
	if s.token == "" {
		tok, err := newToken()
		if err != nil {
			m.Log.WithError(err).Error("generate session token")
			return
		}
		s.token = tok
	}
	body, err := json.Marshal(s.out)
	if err != nil {
		m.Log.WithError(err).Error("encode session payload")
		return
	}
	row := &model.Session{
		ID:        utils.HashToken(s.token),
		UserID:    s.userID,
		Payload:   string(body),
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	if err := m.Store.Save(c.Request().Context(), row); err != nil {
		m.Log.WithError(err).Error("save session")
		return
	}
	m.setCookie(c, s.token, int(s.ttl.Seconds()))
}

// Login binds the session to a user under a fresh token so a token seen
// before authentication cannot be reused afterwards.
func (m *Manager) Login(c echo.Context, userID uint64, remember bool) error {
	s := Get(c)
	if s.token != "" {
		if err := m.Store.Delete(c.Request().Context(), utils.HashToken(s.token)); err != nil {
			return fmt.Errorf("drop old session: %w", err)
		}
	}
	tok, err := newToken()
	if err != nil {
		return err
	}
	s.token = tok
	s.userID = &userID
	s.destroyed = false
	s.dirty = true
	if remember {
		s.ttl = RememberTTL
	}
	return nil
}

// Logout ends the session. A new anonymous session is started when a flash
// is queued afterwards.
func (m *Manager) Logout(c echo.Context) error {
	s := Get(c)
	if s.token != "" {
		if err := m.Store.Delete(c.Request().Context(), utils.HashToken(s.token)); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	s.token = ""
	s.userID = nil
	s.stored = false
	s.ttl = m.TTL
	s.destroyed = !s.dirty
	return nil
}

// Prune removes expired sessions.
func (m *Manager) Prune(ctx context.Context) (int64, error) {
	return m.Store.DeleteExpired(ctx)
}

func (m *Manager) setCookie(c echo.Context, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
