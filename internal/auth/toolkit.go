package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"kharcha/internal/core"
	applog "kharcha/internal/log"
	"kharcha/internal/metrics"
)

const defaultToolkitURL = "https://identitytoolkit.googleapis.com"

// ToolkitClient talks to the Identity Toolkit REST API.
type ToolkitClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *applog.Logger
}

var _ IdentityProvider = (*ToolkitClient)(nil)

// ToolkitOption configures a ToolkitClient.
type ToolkitOption func(*ToolkitClient)

func WithToolkitHTTPClient(hc *http.Client) ToolkitOption {
	return func(c *ToolkitClient) { c.httpClient = hc }
}

func WithToolkitLogger(l *applog.Logger) ToolkitOption {
	return func(c *ToolkitClient) { c.logger = l }
}

// NewToolkitClient creates a client. An empty baseURL uses the public endpoint.
func NewToolkitClient(baseURL, apiKey string, opts ...ToolkitOption) *ToolkitClient {
	if baseURL == "" {
		baseURL = defaultToolkitURL
	}
	c := &ToolkitClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = applog.Discard(applog.ComponentAuth)
	}
	c.logger = c.logger.WithComponent(applog.ComponentAuth)
	return c
}

type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type idpRequest struct {
	PostBody            string `json:"postBody"`
	RequestURI          string `json:"requestUri"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
}

type oobRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email"`
}

type accountResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName"`
	ProviderID  string `json:"providerId"`
}

func (r accountResponse) identity(provider string) Identity {
	name := r.DisplayName
	if name == "" {
		name = r.FullName
	}
	if r.ProviderID != "" {
		provider = r.ProviderID
	}
	return Identity{Email: core.NormalizeEmail(r.Email), DisplayName: name, Provider: provider}
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ToolkitClient) SignIn(ctx context.Context, email, password string) (Identity, error) {
	var resp accountResponse
	req := credentialsRequest{Email: strings.TrimSpace(email), Password: password, ReturnSecureToken: true}
	if err := c.post(ctx, "accounts:signInWithPassword", req, &resp); err != nil {
		return Identity{}, err
	}
	return resp.identity(ProviderPassword), nil
}

func (c *ToolkitClient) SignUp(ctx context.Context, email, password string) (Identity, error) {
	var resp accountResponse
	req := credentialsRequest{Email: strings.TrimSpace(email), Password: password, ReturnSecureToken: true}
	if err := c.post(ctx, "accounts:signUp", req, &resp); err != nil {
		return Identity{}, err
	}
	return resp.identity(ProviderPassword), nil
}

func (c *ToolkitClient) SignInWithIDP(ctx context.Context, providerID, idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, ErrInvalidCredentials
	}
	body := url.Values{"id_token": {idToken}, "providerId": {providerID}}
	req := idpRequest{
		PostBody:            body.Encode(),
		RequestURI:          "http://localhost",
		ReturnIdpCredential: true,
		ReturnSecureToken:   true,
	}
	var resp accountResponse
	if err := c.post(ctx, "accounts:signInWithIdp", req, &resp); err != nil {
		return Identity{}, err
	}
	return resp.identity(providerID), nil
}

func (c *ToolkitClient) SendPasswordReset(ctx context.Context, email string) error {
	req := oobRequest{RequestType: "PASSWORD_RESET", Email: strings.TrimSpace(email)}
	return c.post(ctx, "accounts:sendOobCode", req, nil)
}

func (c *ToolkitClient) post(ctx context.Context, method string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/v1/%s?key=%s", c.baseURL, method, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream("identity", "error", time.Since(start))
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream("identity", fmt.Sprint(resp.StatusCode), time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode >= 300 {
		return c.mapError(ctx, method, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

// mapError turns provider error codes into sentinels. Codes may carry a
// trailing explanation ("WEAK_PASSWORD : Password should be ...").
func (c *ToolkitClient) mapError(ctx context.Context, method string, status int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)
	code, _, _ := strings.Cut(er.Error.Message, " ")

	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_IDP_RESPONSE":
		return ErrInvalidCredentials
	case "EMAIL_EXISTS":
		return ErrEmailExists
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return ErrInvalidEmail
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return ErrTooManyAttempts
	}
	if code == "" {
		code = http.StatusText(status)
	}
	c.logger.WarnContext(ctx, "Identity provider error", "method", method, "status", status, "code", code)
	return &ProviderError{StatusCode: status, Code: code}
}
