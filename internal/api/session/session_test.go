package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/marketing-access/internal/core/domain"
	redisrepo "github.com/99minutos/marketing-access/internal/infrastructure/db/redis"
)

var testConfig = Config{
	CookieName: "sessionid",
	TTL:        time.Hour,
	HashKey:    []byte("0123456789abcdef0123456789abcdef"),
}

func newManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewManager(redisrepo.NewSessionRepository(client), testConfig, zerolog.Nop()), mr
}

func newContext(cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == testConfig.CookieName {
			return ck
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func alicePayload() domain.SessionPayload {
	return domain.SessionPayload{
		Token: "abc123",
		Info: domain.UserInfo{
			User: &domain.User{Username: "alice", FirstName: "Alice"},
		},
	}
}

func TestSaveThenLoadOnNextRequest(t *testing.T) {
	m, _ := newManager(t)

	c, rec := newContext()
	require.NoError(t, m.Save(c, alicePayload()))
	assert.True(t, m.Verify(c, "abc123"))

	ck := sessionCookie(t, rec)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, 3600, ck.MaxAge)
	assert.NotContains(t, ck.Value, "abc123")

	next, _ := newContext(ck)
	token, ok := m.LoadToken(next)
	require.True(t, ok)
	assert.Equal(t, "abc123", token)

	info, ok := m.LoadPayload(next)
	require.True(t, ok)
	assert.Equal(t, "alice", info.User.Username)
}

func TestLoad_NoCookie(t *testing.T) {
	m, _ := newManager(t)
	c, _ := newContext()

	_, err := m.Load(c)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, ok := m.LoadToken(c)
	assert.False(t, ok)
}

func TestLoad_TamperedCookie(t *testing.T) {
	m, _ := newManager(t)
	c, _ := newContext(&http.Cookie{Name: "sessionid", Value: "forged"})

	_, err := m.Load(c)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLoad_CachedPerRequest(t *testing.T) {
	m, mr := newManager(t)

	c, rec := newContext()
	require.NoError(t, m.Save(c, alicePayload()))
	next, _ := newContext(sessionCookie(t, rec))

	_, err := m.Load(next)
	require.NoError(t, err)

	mr.FlushAll()
	token, ok := m.LoadToken(next)
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)
}

func TestLoadPayload_TokenWithoutUserIsAbsent(t *testing.T) {
	m, _ := newManager(t)

	c, rec := newContext()
	require.NoError(t, m.Save(c, domain.SessionPayload{Token: "abc123"}))

	next, _ := newContext(sessionCookie(t, rec))
	_, ok := m.LoadToken(next)
	assert.True(t, ok)
	_, ok = m.LoadPayload(next)
	assert.False(t, ok)
}

func TestSave_RotatesSessionID(t *testing.T) {
	m, mr := newManager(t)

	c, rec := newContext()
	require.NoError(t, m.Save(c, alicePayload()))
	first := sessionCookie(t, rec)

	again, rec2 := newContext(first)
	require.NoError(t, m.Save(again, alicePayload()))
	second := sessionCookie(t, rec2)

	assert.NotEqual(t, first.Value, second.Value)
	assert.Len(t, mr.Keys(), 1)
}

func TestSave_CancelledRequestWritesNothing(t *testing.T) {
	m, mr := newManager(t)

	c, rec := newContext()
	ctx, cancel := context.WithCancel(c.Request().Context())
	cancel()
	c.SetRequest(c.Request().WithContext(ctx))

	err := m.Save(c, alicePayload())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, mr.Keys())
	assert.Empty(t, rec.Result().Cookies())
}

func TestVerify_Mismatch(t *testing.T) {
	m, _ := newManager(t)

	c, _ := newContext()
	require.NoError(t, m.Save(c, alicePayload()))
	assert.False(t, m.Verify(c, "other"))
}

func TestVerify_NoSession(t *testing.T) {
	m, _ := newManager(t)
	c, _ := newContext()
	assert.False(t, m.Verify(c, "abc123"))
}

func TestTouch_ExtendsExpiry(t *testing.T) {
	m, mr := newManager(t)

	c, rec := newContext()
	require.NoError(t, m.Save(c, alicePayload()))
	mr.FastForward(50 * time.Minute)

	next, _ := newContext(sessionCookie(t, rec))
	_, err := m.Load(next)
	require.NoError(t, err)
	m.Touch(next)

	for _, k := range mr.Keys() {
		assert.Equal(t, time.Hour, mr.TTL(k))
	}
}

func TestTouch_ReissuesCookie(t *testing.T) {
	m, _ := newManager(t)

	c, rec := newContext()
	require.NoError(t, m.Save(c, alicePayload()))

	next, nextRec := newContext(sessionCookie(t, rec))
	_, err := m.Load(next)
	require.NoError(t, err)
	m.Touch(next)

	touched := sessionCookie(t, nextRec)
	assert.Equal(t, 3600, touched.MaxAge)
	assert.True(t, touched.HttpOnly)

	again, _ := newContext(touched)
	token, ok := m.LoadToken(again)
	require.True(t, ok)
	assert.Equal(t, "abc123", token)
}

// The cookie timestamp is checked against the TTL, so an active session
// must keep working on the cookie from its last touch after the login
// cookie has aged out.
func TestTouch_SlidesCookieAge(t *testing.T) {
	if testing.Short() {
		t.Skip("waits on the cookie clock")
	}
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg := testConfig
	cfg.TTL = 2 * time.Second
	m := NewManager(redisrepo.NewSessionRepository(client), cfg, zerolog.Nop())

	c, rec := newContext()
	require.NoError(t, m.Save(c, alicePayload()))
	loginCookie := sessionCookie(t, rec)

	time.Sleep(1500 * time.Millisecond)
	mid, midRec := newContext(loginCookie)
	_, err := m.Load(mid)
	require.NoError(t, err)
	m.Touch(mid)
	touched := sessionCookie(t, midRec)

	time.Sleep(1600 * time.Millisecond)
	stale, _ := newContext(loginCookie)
	_, ok := m.LoadToken(stale)
	assert.False(t, ok, "login cookie should have aged out")

	fresh, _ := newContext(touched)
	token, ok := m.LoadToken(fresh)
	require.True(t, ok, "cookie issued by touch should still be valid")
	assert.Equal(t, "abc123", token)
}

func TestTouch_SkippedAfterDisconnect(t *testing.T) {
	m, mr := newManager(t)

	c, rec := newContext()
	require.NoError(t, m.Save(c, alicePayload()))
	mr.FastForward(50 * time.Minute)

	next, nextRec := newContext(sessionCookie(t, rec))
	_, err := m.Load(next)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(next.Request().Context())
	cancel()
	next.SetRequest(next.Request().WithContext(ctx))
	m.Touch(next)

	for _, k := range mr.Keys() {
		assert.Equal(t, 10*time.Minute, mr.TTL(k))
	}
	assert.Empty(t, nextRec.Result().Cookies())
}

func TestClear(t *testing.T) {
	m, mr := newManager(t)

	c, rec := newContext()
	require.NoError(t, m.Save(c, alicePayload()))
	ck := sessionCookie(t, rec)

	out, outRec := newContext(ck)
	m.Clear(out)

	assert.Empty(t, mr.Keys())
	cleared := sessionCookie(t, outRec)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	again, _ := newContext(ck)
	_, ok := m.LoadToken(again)
	assert.False(t, ok)
}

func TestClear_StoreDownStillExpiresCookie(t *testing.T) {
	m, mr := newManager(t)

	c, rec := newContext()
	require.NoError(t, m.Save(c, alicePayload()))
	mr.Close()

	out, outRec := newContext(sessionCookie(t, rec))
	m.Clear(out)

	assert.Less(t, sessionCookie(t, outRec).MaxAge, 0)
}
