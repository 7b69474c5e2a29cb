// Package session keeps the authority token and identity bundle for a
// browser session. The cookie carries only a signed session id; the record
// itself lives in the session repository.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
)

const (
	recordKey = "session.record"
	idKey     = "session.id"
)

type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	HashKey    []byte
	// BlockKey enables cookie encryption when set.
	BlockKey []byte
}

// Manager loads and stores session records for the current request.
// Loaded records are cached on the echo.Context so a request hits the
// repository at most once.
type Manager struct {
	repo  ports.SessionRepository
	codec *securecookie.SecureCookie
	cfg   Config
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

func NewManager(repo ports.SessionRepository, cfg Config, log zerolog.Logger) *Manager {
	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.MaxAge(int(cfg.TTL.Seconds()))

	return &Manager{
		repo:  repo,
		codec: codec,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Load returns the record for the request's session cookie, or
// domain.ErrSessionNotFound when there is none.
func (m *Manager) Load(c echo.Context) (*domain.SessionRecord, error) {
	if rec, ok := c.Get(recordKey).(*domain.SessionRecord); ok {
		return rec, nil
	}

	id, ok := m.cookieID(c)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	rec, err := m.repo.Get(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	c.Set(idKey, id)
	c.Set(recordKey, rec)
	return rec, nil
}

// LoadToken returns the authority token stored in the session.
func (m *Manager) LoadToken(c echo.Context) (string, bool) {
	rec, err := m.Load(c)
	if err != nil || rec.Token == "" {
		return "", false
	}
	return rec.Token, true
}

// LoadPayload returns the cached identity bundle. Records without a usable
// user are reported as absent.
func (m *Manager) LoadPayload(c echo.Context) (*domain.UserInfo, bool) {
	rec, err := m.Load(c)
	if err != nil || !rec.HasIdentity() {
		return nil, false
	}
	return rec.UserInfo, true
}

// Save stores payload under a fresh session id, replacing any previous
// session, and sets the cookie. The record is written before Save returns.
func (m *Manager) Save(c echo.Context, payload domain.SessionPayload) error {
	ctx := c.Request().Context()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if old, ok := m.cookieID(c); ok {
		if err := m.repo.Delete(ctx, old); err != nil {
			m.log.Warn().Err(err).Msg("failed to drop previous session")
		}
	}

	id := m.newID()
	rec := domain.NewSessionRecord(payload, m.now())
	if err := m.repo.Save(ctx, id, rec, m.cfg.TTL); err != nil {
		return err
	}

	value, err := m.codec.Encode(m.cfg.CookieName, id)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	c.SetCookie(m.cookie(value, int(m.cfg.TTL.Seconds())))

	c.Set(idKey, id)
	c.Set(recordKey, &rec)
	return nil
}

// Verify reads the current session back from the repository and compares
// its token with want. A mismatch is logged and reported, never raised.
func (m *Manager) Verify(c echo.Context, want string) bool {
	id, _ := c.Get(idKey).(string)
	if id == "" {
		m.log.Warn().Msg("session verify: no session id on request")
		return false
	}

	rec, err := m.repo.Get(c.Request().Context(), id)
	if err != nil {
		m.log.Warn().Err(err).Msg("session verify: read back failed")
		return false
	}
	if rec.Token != want {
		m.log.Warn().Str("username", rec.Username).Msg("session verify: stored token does not match")
		return false
	}
	return true
}

// Touch slides the session expiry: the record TTL is reset and the cookie is
// re-issued with a fresh timestamp. It does nothing once the client has gone
// away.
func (m *Manager) Touch(c echo.Context) {
	ctx := c.Request().Context()
	if ctx.Err() != nil {
		return
	}
	id, _ := c.Get(idKey).(string)
	if id == "" {
		return
	}
	if err := m.repo.Touch(ctx, id, m.cfg.TTL); err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			m.log.Warn().Err(err).Msg("session touch failed")
		}
		return
	}

	value, err := m.codec.Encode(m.cfg.CookieName, id)
	if err != nil {
		m.log.Warn().Err(err).Msg("session touch: encode cookie")
		return
	}
	c.SetCookie(m.cookie(value, int(m.cfg.TTL.Seconds())))
}

// Clear removes the session record and expires the cookie. The cookie is
// always expired, even when the repository delete fails.
func (m *Manager) Clear(c echo.Context) {
	id, _ := c.Get(idKey).(string)
	if id == "" {
		id, _ = m.cookieID(c)
	}
	if id != "" {
		if err := m.repo.Delete(context.WithoutCancel(c.Request().Context()), id); err != nil {
			m.log.Warn().Err(err).Msg("session delete failed")
		}
	}

	c.SetCookie(m.cookie("", -1))
	c.Set(idKey, "")
	c.Set(recordKey, nil)
}

func (m *Manager) cookieID(c echo.Context) (string, bool) {
	ck, err := c.Cookie(m.cfg.CookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}

	var id string
	if err := m.codec.Decode(m.cfg.CookieName, ck.Value, &id); err != nil {
		m.log.Debug().Err(err).Msg("ignoring undecodable session cookie")
		return "", false
	}
	return id, id != ""
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
