package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"imgto3d/internal/infra"
)

// ErrUnknownStatus indicates the backend reported a job status outside the
// declared lifecycle. It is surfaced instead of passing the record through.
var ErrUnknownStatus = errors.New("api: unknown job status")

// Options configures the backend client.
type Options struct {
	BaseURL        string
	Credentials    *Credentials
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the 3D generation backend.
type Client struct {
	baseURL     string
	credentials *Credentials
	httpClient  *http.Client
	logger      *infra.Logger
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e *apiError) text() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Detail
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api: base url is required")
	}
	creds := opts.Credentials
	if creds == nil {
		creds = NewCredentials()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:     baseURL,
		credentials: creds,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// Credentials exposes the credential context bound to this client.
func (c *Client) Credentials() *Credentials {
	return c.credentials
}

// doJSON performs one backend call. Authenticated calls carry the bearer
// credential; the body, when present, is JSON.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, authed bool) error {
	var payload io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		payload = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if authed {
		if err := c.credentials.Authorize(req); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail apiError
		if err := json.Unmarshal(raw, &detail); err == nil && detail.text() != "" {
			return fmt.Errorf("api: %s %s: %s", method, path, detail.text())
		}
		return fmt.Errorf("api: %s %s: HTTP %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

// PresignResponse holds one upload slot per requested file, in request order.
type PresignResponse struct {
	URLs []UploadSlot `json:"urls"`
}

// PresignUploads requests one upload slot per file in a single call.
func (c *Client) PresignUploads(ctx context.Context, filenames, contentTypes []string) (*PresignResponse, error) {
	if len(filenames) == 0 {
		return nil, errors.New("api: at least one filename is required")
	}
	if len(filenames) != len(contentTypes) {
		return nil, errors.New("api: filenames and content types must have the same length")
	}
	body := map[string]any{
		"filenames":     filenames,
		"content_types": contentTypes,
	}
	var resp PresignResponse
	if err := c.doJSON(ctx, http.MethodPost, "/uploads/presign", body, &resp, true); err != nil {
		return nil, err
	}
	if len(resp.URLs) != len(filenames) {
		return nil, fmt.Errorf("api: presign returned %d slots for %d files", len(resp.URLs), len(filenames))
	}
	return &resp, nil
}

// UploadFile transfers raw file bytes to a presigned slot. Slots are
// single-use; a failed transfer is not retried here.
func (c *Client) UploadFile(ctx context.Context, slot UploadSlot, file LocalFile) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, slot.PutURL, bytes.NewReader(file.Data))
	if err != nil {
		return fmt.Errorf("api: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", file.ContentType)
	req.ContentLength = int64(len(file.Data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: upload %s: %w", file.Name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("api: upload %s: HTTP %d", file.Name, resp.StatusCode)
	}
	c.logger.Debug().Str("key", slot.Key).Str("filename", file.Name).Msg("api: uploaded file")
	return nil
}

// PreviewJob submits images for pre-commit validation. No credential is
// attached; the studio flow runs unauthenticated.
func (c *Client) PreviewJob(ctx context.Context, images []ImageRef) (*PreviewResult, error) {
	body := map[string]any{"images": images}
	var resp PreviewResult
	if err := c.doJSON(ctx, http.MethodPost, "/jobs/preview", body, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateCheckoutSession exchanges a preview token for a payment redirect.
func (c *Client) CreateCheckoutSession(ctx context.Context, previewToken, successURL, cancelURL string) (*CheckoutSession, error) {
	if previewToken == "" {
		return nil, errors.New("api: preview token is required")
	}
	body := map[string]any{"preview_token": previewToken}
	if successURL != "" {
		body["success_url"] = successURL
	}
	if cancelURL != "" {
		body["cancel_url"] = cancelURL
	}
	var resp CheckoutSession
	if err := c.doJSON(ctx, http.MethodPost, "/billing/checkout-session", body, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateJob creates a durable job record from uploaded images.
func (c *Client) CreateJob(ctx context.Context, images []ImageRef, params JobParameters) (*JobCreated, error) {
	body := map[string]any{
		"images": images,
		"params": params,
	}
	if params.WebhookURL != "" {
		body["webhook_url"] = params.WebhookURL
	}
	var resp JobCreated
	if err := c.doJSON(ctx, http.MethodPost, "/jobs", body, &resp, true); err != nil {
		return nil, err
	}
	if !resp.Status.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, resp.Status)
	}
	return &resp, nil
}

// GetJob fetches the current job record. A status outside the declared
// lifecycle is an error, never passed through.
func (c *Client) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	if id == "" {
		return nil, errors.New("api: job id is required")
	}
	var rec JobRecord
	if err := c.doJSON(ctx, http.MethodGet, "/jobs/"+id, nil, &rec, true); err != nil {
		return nil, err
	}
	if !rec.Status.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, rec.Status)
	}
	return &rec, nil
}

// CancelJob issues a best-effort cancel. The backend may or may not honor it;
// callers observe the outcome by re-polling.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("api: job id is required")
	}
	return c.doJSON(ctx, http.MethodDelete, "/jobs/"+id, nil, nil, true)
}

// CreateBatch asks the backend to expand a remote source into jobs.
func (c *Client) CreateBatch(ctx context.Context, req BatchCreate) (*BatchRecord, error) {
	if req.Source == "" || req.URL == "" {
		return nil, errors.New("api: batch source and url are required")
	}
	var resp BatchRecord
	if err := c.doJSON(ctx, http.MethodPost, "/batches", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBatch fetches a batch record.
func (c *Client) GetBatch(ctx context.Context, id string) (*BatchRecord, error) {
	if id == "" {
		return nil, errors.New("api: batch id is required")
	}
	var resp BatchRecord
	if err := c.doJSON(ctx, http.MethodGet, "/batches/"+id, nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Credits reports the organization's credit balance.
func (c *Client) Credits(ctx context.Context) (*CreditBalance, error) {
	var resp CreditBalance
	if err := c.doJSON(ctx, http.MethodGet, "/billing/credits", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EstimateJobs projects credit cost for jobCount identical jobs.
func (c *Client) EstimateJobs(ctx context.Context, jobCount int, params JobParameters) (*Estimate, error) {
	if jobCount <= 0 {
		jobCount = 1
	}
	body := map[string]any{
		"job_count": jobCount,
		"params":    params,
	}
	var resp Estimate
	if err := c.doJSON(ctx, http.MethodPost, "/billing/estimate", body, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signup registers a new account and installs the returned session token.
func (c *Client) Signup(ctx context.Context, email, password, orgName string) (*AuthResponse, error) {
	body := map[string]any{"email": email, "password": password}
	if orgName != "" {
		body["org_name"] = orgName
	}
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", body, &resp, false); err != nil {
		return nil, err
	}
	c.credentials.SetSessionToken(resp.AccessToken)
	return &resp, nil
}

// Login authenticates an existing account and installs the session token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]any{"email": email, "password": password}
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &resp, false); err != nil {
		return nil, err
	}
	c.credentials.SetSessionToken(resp.AccessToken)
	return &resp, nil
}

// CreateAPIKey mints a programmatic key; the secret is only returned once.
func (c *Client) CreateAPIKey(ctx context.Context, name, orgID string) (*APIKey, error) {
	if name == "" {
		return nil, errors.New("api: key name is required")
	}
	body := map[string]any{"name": name}
	if orgID != "" {
		body["org_id"] = orgID
	}
	var resp APIKey
	if err := c.doJSON(ctx, http.MethodPost, "/auth/keys", body, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health fetches the backend liveness snapshot.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Download fetches bytes from a presigned output URL.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("api: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("api: download: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read download: %w", err)
	}
	return data, nil
}
