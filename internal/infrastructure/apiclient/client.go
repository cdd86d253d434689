// Package apiclient is the HTTP client of the liquidaciones API. It unwraps
// the response envelope and implements the gateways the client-side session
// and transfer editor are driven by.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
)

// ErrServer is returned when the API answers with an "error" envelope or an
// unreadable body.
var ErrServer = errors.New("el servidor no pudo completar la operación")

var errDetalleSinID = errors.New("el detalle no tiene id asignado")

// Config configures a Client
type Config struct {
	BaseURL string
	// UserID is sent as X-User-ID on every request
	UserID  uuid.UUID
	Timeout time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger logs each request at debug level
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client calls the /api/v1 endpoints
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	userID     uuid.UUID
	logger     *zap.Logger
}

// New creates a Client for cfg.BaseURL
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    u,
		userID:     cfg.UserID,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope mirrors the server response body
type envelope struct {
	Respuesta string          `json:"respuesta"`
	Datos     json.RawMessage `json:"datos"`
	Mensaje   json.RawMessage `json:"mensaje"`
	Codigo    string          `json:"codigo"`
	RequestID string          `json:"request_id"`
}

// mensajes decodes mensaje, which is either a string or a list of strings
func (e envelope) mensajes() []string {
	if len(e.Mensaje) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(e.Mensaje, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(e.Mensaje, &many); err == nil {
		return many
	}
	return nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonBody(v any) (io.Reader, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return bytes.NewReader(raw), nil
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.baseURL
	// path segments arrive escaped; keep them that way on the wire
	u.RawPath = c.baseURL.EscapedPath() + "/api/v1" + path
	u.Path, _ = url.PathUnescape(u.RawPath)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends req and decodes the datos of a success envelope into out, which
// may be nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.url(req.path, req.query), req.body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		ct := req.contentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}
	if c.userID != uuid.Nil {
		httpReq.Header.Set("X-User-ID", c.userID.String())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: respuesta %d ilegible: %v", ErrServer, resp.StatusCode, err)
	}
	c.logger.Debug("API call",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.String("respuesta", env.Respuesta),
		zap.String("request_id", env.RequestID),
		zap.Duration("latency", time.Since(start)))

	return decodeEnvelope(env, out)
}

func decodeEnvelope(env envelope, out any) error {
	switch env.Respuesta {
	case "success":
		if out == nil || len(env.Datos) == 0 || string(env.Datos) == "null" {
			return nil
		}
		if err := json.Unmarshal(env.Datos, out); err != nil {
			return fmt.Errorf("%w: datos ilegibles: %v", ErrServer, err)
		}
		return nil
	case "info":
		return shared.ErrNotFound
	case "fail":
		code := env.Codigo
		if code == "" {
			code = shared.ErrInvalidInput.Code
		}
		return shared.NewDomainError(code, strings.Join(env.mensajes(), "; "))
	default:
		msg := strings.Join(env.mensajes(), "; ")
		if msg == "" {
			return ErrServer
		}
		return fmt.Errorf("%w: %s", ErrServer, msg)
	}
}
