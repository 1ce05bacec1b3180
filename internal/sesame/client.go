// Package sesame is the HTTP client for the Sesame time-tracking backend.
package sesame

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/iaimans/sesame-cli/internal/domain"
)

const (
	DefaultBaseURL = "https://back-eu4.sesametime.com/api/v3"
	DefaultAppURL  = "https://app.sesametime.com"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36 Edg/139.0.0.0"

	// maxBody caps how much of a response is read.
	maxBody = 1 << 20
)

// Client talks to the Sesame API. It implements worksession.TimeService.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	appURL     string
	limiter    *rate.Limiter
	now        func() time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

func WithAppURL(u string) Option { return func(c *Client) { c.appURL = u } }

// WithRateLimit spaces outgoing requests to at most perSecond per second.
// Zero or negative disables throttling.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func NewClient(httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    DefaultBaseURL,
		appURL:     DefaultAppURL,
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a session cookie and loads the user.
// Every failure is an AuthError.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	body := loginRequest{
		PlatformData: platformData{PlatformName: "Chrome", PlatformSystem: "Windows 10", PlatformVersion: "139"},
		Email:        email,
		Password:     password,
	}
	status, data, err := c.do(ctx, "login", http.MethodPost, "/security/login", nil, body)
	if err != nil {
		return nil, domain.NewAuthError("login", status, err)
	}
	if !ok(status) {
		return nil, domain.NewAuthError("login", status, serverMessage(data))
	}

	var resp loginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, domain.NewAuthError("login", status, fmt.Errorf("decode login response: %w", err))
	}
	if resp.Data == "" {
		return nil, domain.NewAuthError("login", status, errors.New("no token in login response"))
	}
	cookies := "USID=" + resp.Data

	me, status, err := c.me(ctx, cookies)
	if err != nil {
		return nil, domain.NewAuthError("login", status, fmt.Errorf("get user info: %w", err))
	}
	return domain.NewSession(me.CompanyID, me.ID, cookies, me.toUser()), nil
}

// RefreshUserInfo reloads the user behind s. Failures are SessionErrors.
func (c *Client) RefreshUserInfo(ctx context.Context, s *domain.Session) (*domain.User, error) {
	if !s.IsValid() {
		return nil, domain.ErrInvalidSession
	}
	me, status, err := c.me(ctx, s.Cookies)
	if err != nil {
		return nil, domain.NewSessionError("refresh", status, err)
	}
	return me.toUser(), nil
}

// ListAssignedProjects lists the work check types the employee may use.
func (c *Client) ListAssignedProjects(ctx context.Context, s *domain.Session) ([]domain.Project, error) {
	if !s.IsValid() {
		return nil, domain.ErrInvalidSession
	}
	path := "/employees/" + url.PathEscape(s.ESID) + "/assigned-work-check-types?isTrusted=true"
	status, data, err := c.do(ctx, "list projects", http.MethodGet, path, s, nil)
	if err != nil {
		return nil, domain.NewAPIError("list projects", status, err)
	}
	if !ok(status) {
		return nil, domain.NewAPIError("list projects", status, serverMessage(data))
	}

	items, err := decodeProjects(data)
	if err != nil {
		return nil, domain.NewAPIError("list projects", status, err)
	}
	projects := make([]domain.Project, 0, len(items))
	for _, p := range items {
		projects = append(projects, domain.Project{ID: p.ID, Name: p.Name})
	}
	return projects, nil
}

func (c *Client) CheckIn(ctx context.Context, s *domain.Session, projectID string) error {
	return c.check(ctx, "check-in", s, &projectID)
}

func (c *Client) CheckOut(ctx context.Context, s *domain.Session) error {
	return c.check(ctx, "check-out", s, nil)
}

func (c *Client) check(ctx context.Context, op string, s *domain.Session, projectID *string) error {
	if !s.IsValid() {
		return domain.ErrInvalidSession
	}
	body := checkRequest{Origin: "web", Coordinates: struct{}{}, WorkCheckTypeID: projectID}
	path := "/employees/" + url.PathEscape(s.ESID) + "/" + op
	status, data, err := c.do(ctx, op, http.MethodPost, path, s, body)
	if err != nil {
		return domain.NewAPIError(op, status, err)
	}
	if !ok(status) {
		return domain.NewAPIError(op, status, serverMessage(data))
	}
	return nil
}

// me fetches /security/me. status is the HTTP status when one was received.
func (c *Client) me(ctx context.Context, cookies string) (*meUser, int, error) {
	status, data, err := c.do(ctx, "me", http.MethodGet, "/security/me", &domain.Session{Cookies: cookies}, nil)
	if err != nil {
		return nil, status, err
	}
	if !ok(status) {
		return nil, status, serverMessage(data)
	}
	var resp meResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, status, fmt.Errorf("decode user info: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, status, errors.New("no user in response")
	}
	me := resp.Data[0]
	if me.ID == "" || me.CompanyID == "" {
		return nil, status, errors.New("user info is missing identifiers")
	}
	return &me, status, nil
}

// do sends one request and returns the status and body. A returned error
// means no usable answer was received; status is then 0 unless the body
// could not be read.
func (c *Client) do(ctx context.Context, op, method, path string, s *domain.Session, body any) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s != nil {
		if s.Cookies != "" {
			req.Header.Set("Cookie", s.Cookies)
		}
		if s.CSID != "" {
			req.Header.Set("csid", s.CSID)
		}
		if s.ESID != "" {
			req.Header.Set("esid", s.ESID)
		}
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("sesame request failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	level := slog.LevelInfo
	if !ok(resp.StatusCode) {
		level = slog.LevelWarn
	}
	c.logger.Log(ctx, level, "sesame request",
		slog.String("op", op),
		slog.Int("http_status", resp.StatusCode),
		slog.Duration("took", c.now().Sub(start)),
	)
	return resp.StatusCode, data, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "es")
	req.Header.Set("Origin", c.appURL)
	req.Header.Set("Referer", c.appURL+"/")
	req.Header.Set("rsrc", "31")
	req.Header.Set("User-Agent", userAgent)
}

func ok(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated
}

// serverMessage extracts the server's error message from a body, if any.
func serverMessage(data []byte) error {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil && e.Message != "" {
		return errors.New(e.Message)
	}
	return errors.New("request rejected")
}
