// Package rbac is the HTTP client for the remote RBAC authority. It is the
// only code that talks to the authority, and it applies the TLS and timeout
// policy to every call. It never retries and never caches.
package rbac

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/marketing-access/internal/core/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Config captures the settings for reaching the authority.
type Config struct {
	// BaseURL must be https, e.g. https://hrms.example.com/api/rbac.
	BaseURL string
	Timeout time.Duration
	// CAFile optionally adds a PEM bundle to the system roots.
	CAFile string
}

// Observer receives one sample per authority call.
type Observer func(op, outcome string, elapsed time.Duration)

type Option func(*Client)

// WithHTTPClient replaces the default transport. Clients that skip
// certificate verification are rejected by New.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

// Client implements ports.RBACClient. It is safe for concurrent use and holds
// no per-user state: the token is passed on every call.
type Client struct {
	base    string
	timeout time.Duration
	http    *http.Client
	observe Observer
	log     zerolog.Logger
}

// New validates cfg and builds a Client with certificate verification on.
func New(cfg Config, log zerolog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("rbac: parse base url: %w", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("rbac: base url %q must be an absolute https url", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.CAFile != "" {
		pool, err := loadRoots(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tlsCfg.RootCAs = pool
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg

	c := &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Timeout: timeout, Transport: transport},
		observe: func(string, string, time.Duration) {},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}

	if t, ok := c.http.Transport.(*http.Transport); ok && t.TLSClientConfig != nil && t.TLSClientConfig.InsecureSkipVerify {
		return nil, errors.New("rbac: certificate verification cannot be disabled")
	}
	return c, nil
}

func loadRoots(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rbac: read ca file: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("rbac: no certificates found in %s", path)
	}
	return pool, nil
}

// authorityMessage collects the fields the authority uses for error text.
type authorityMessage struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (m authorityMessage) text() string {
	for _, s := range []string{m.Error, m.Message, m.Detail} {
		if s != "" {
			return s
		}
	}
	return ""
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	domain.UserInfo
	authorityMessage
}

// Login exchanges credentials for a token and the identity bundle.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.SessionPayload, error) {
	const op = "login"
	status, data, err := c.call(ctx, op, http.MethodPost, "/login/", "", loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	decodeErr := json.Unmarshal(data, &resp)
	if decodeErr != nil && isSuccess(status) {
		return nil, &domain.AuthorityError{Op: op, Kind: domain.FailureMalformed, StatusCode: status, Err: decodeErr}
	}
	if status == http.StatusOK && resp.Success {
		if resp.Token == "" {
			return nil, &domain.AuthorityError{Op: op, Kind: domain.FailureMalformed, StatusCode: status, Message: "missing token"}
		}
		return &domain.SessionPayload{Token: resp.Token, Info: resp.UserInfo}, nil
	}

	return nil, &domain.AuthorityError{
		Op:         op,
		Kind:       domain.FailureRejected,
		StatusCode: status,
		Message:    resp.text(),
	}
}

// CheckPermission asks whether token holds code. Transport failures,
// non-2xx answers and unparsable bodies are all returned as errors.
func (c *Client) CheckPermission(ctx context.Context, token string, code domain.Code) (bool, error) {
	const op = "check-permission"
	status, data, err := c.call(ctx, op, http.MethodPost, "/check-permission/", token, map[string]domain.Code{"permission": code})
	if err != nil {
		return false, err
	}
	if !isSuccess(status) {
		return false, rejected(op, status, data)
	}

	var resp struct {
		HasPermission *bool `json:"has_permission"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return false, &domain.AuthorityError{Op: op, Kind: domain.FailureMalformed, StatusCode: status, Err: err}
	}
	if resp.HasPermission == nil {
		return false, &domain.AuthorityError{Op: op, Kind: domain.FailureMalformed, StatusCode: status, Message: "missing has_permission"}
	}
	return *resp.HasPermission, nil
}

// CheckPermissions checks several codes in one round trip. Codes the
// authority leaves out of its answer are reported as false.
func (c *Client) CheckPermissions(ctx context.Context, token string, codes []domain.Code) (map[domain.Code]bool, error) {
	const op = "check-permissions"
	out := make(map[domain.Code]bool, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	status, data, err := c.call(ctx, op, http.MethodPost, "/check-permissions/", token, map[string][]domain.Code{"permissions": codes})
	if err != nil {
		return out, err
	}
	if !isSuccess(status) {
		return out, rejected(op, status, data)
	}

	var resp struct {
		Permissions map[domain.Code]bool `json:"permissions"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return out, &domain.AuthorityError{Op: op, Kind: domain.FailureMalformed, StatusCode: status, Err: err}
	}
	if resp.Permissions == nil {
		return out, &domain.AuthorityError{Op: op, Kind: domain.FailureMalformed, StatusCode: status, Message: "missing permissions"}
	}

	for _, code := range codes {
		out[code] = resp.Permissions[code]
	}
	return out, nil
}

// GetUserInfo fetches the current identity bundle. It returns nil on any
// failure; the result feeds display only.
func (c *Client) GetUserInfo(ctx context.Context, token string) *domain.UserInfo {
	const op = "user-info"
	status, data, err := c.call(ctx, op, http.MethodGet, "/user/info/", token, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("get user info failed")
		return nil
	}
	if !isSuccess(status) {
		c.log.Warn().Err(rejected(op, status, data)).Msg("get user info failed")
		return nil
	}

	var resp struct {
		Success bool `json:"success"`
		domain.UserInfo
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		c.log.Warn().Err(err).Msg("get user info: malformed response")
		return nil
	}
	if !resp.Success {
		c.log.Warn().Int("status", status).Msg("get user info: authority reported failure")
		return nil
	}
	return &resp.UserInfo
}

// Logout invalidates token on the authority. It reports whether the
// authority acknowledged the call and never returns an error.
func (c *Client) Logout(ctx context.Context, token string) bool {
	const op = "logout"
	if token == "" {
		return true
	}
	status, _, err := c.call(ctx, op, http.MethodPost, "/logout/", token, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("remote logout failed")
		return false
	}
	if !isSuccess(status) {
		c.log.Warn().Int("status", status).Msg("remote logout rejected")
		return false
	}
	return true
}

// call performs one request under the client timeout and returns the status
// and at most maxBodyBytes of body. Only transport failures produce an error.
func (c *Client) call(ctx context.Context, op, method, path, token string, payload any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("rbac %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("rbac %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		kind := classify(err)
		c.observe(op, kind.String(), time.Since(start))
		return 0, nil, &domain.AuthorityError{Op: op, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		kind := classify(err)
		c.observe(op, kind.String(), time.Since(start))
		return 0, nil, &domain.AuthorityError{Op: op, Kind: kind, StatusCode: resp.StatusCode, Err: err}
	}

	outcome := "ok"
	if !isSuccess(resp.StatusCode) {
		outcome = domain.FailureRejected.String()
	}
	c.observe(op, outcome, time.Since(start))
	return resp.StatusCode, data, nil
}

func classify(err error) domain.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.FailureTimeout
	}
	return domain.FailureUnreachable
}

func rejected(op string, status int, data []byte) error {
	var msg authorityMessage
	_ = json.Unmarshal(data, &msg)
	return &domain.AuthorityError{Op: op, Kind: domain.FailureRejected, StatusCode: status, Message: msg.text()}
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }
