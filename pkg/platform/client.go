// Package platform provides PlatformClient implementations: an HTTP REST
// client for a remote serving platform and a local in-process backend.
package platform

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

	"github.com/purchaseml/purchase-predictor/pkg/deploy"
)

const defaultRequestTimeout = 30 * time.Second

// RESTClient talks to the serving platform's resource API over HTTP. It
// implements deploy.PlatformClient.
type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// RESTOption configures a RESTClient.
type RESTOption func(*RESTClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RESTOption {
	return func(r *RESTClient) { r.httpClient = c }
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) RESTOption {
	return func(r *RESTClient) { r.apiKey = key }
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger *slog.Logger) RESTOption {
	return func(r *RESTClient) { r.logger = logger }
}

// NewRESTClient creates a client targeting the given platform base URL.
func NewRESTClient(baseURL string, opts ...RESTOption) *RESTClient {
	c := &RESTClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateOrUpdate submits the resource specification and returns the
// platform's operation id as the polling handle.
func (c *RESTClient) CreateOrUpdate(ctx context.Context, spec deploy.ResourceSpec) (string, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("encoding resource spec: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPut,
		"/api/v1/endpoints/"+url.PathEscape(spec.Names.Endpoint), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	var resp struct {
		OperationID string `json:"operation_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}
	if resp.OperationID == "" {
		return "", fmt.Errorf("platform returned no operation id")
	}
	return resp.OperationID, nil
}

// GetState reports the provisioning state for an operation handle.
func (c *RESTClient) GetState(ctx context.Context, handle string) (deploy.State, string, error) {
	body, err := c.doRequest(ctx, http.MethodGet,
		"/api/v1/operations/"+url.PathEscape(handle), nil)
	if err != nil {
		return "", "", err
	}

	var resp struct {
		State      string `json:"state"`
		Diagnostic string `json:"diagnostic"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("decoding operation state: %w", err)
	}

	switch deploy.State(resp.State) {
	case deploy.StateRunning, deploy.StateSucceeded, deploy.StateFailed:
		return deploy.State(resp.State), resp.Diagnostic, nil
	default:
		return "", "", fmt.Errorf("unknown operation state %q", resp.State)
	}
}

// Delete removes the named resources. A 404 from the platform counts as
// success; the resource being gone is the goal.
func (c *RESTClient) Delete(ctx context.Context, names deploy.Names) error {
	path := "/api/v1/endpoints/" + url.PathEscape(names.Endpoint)
	if names.Deployment != "" {
		path += "?deployment=" + url.QueryEscape(names.Deployment)
	}
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil
		}
		return err
	}
	return nil
}

type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("platform error (%d): %s", e.code, e.message)
}

// doRequest performs an HTTP request and returns the response body bytes.
// Status codes >= 400 become a statusError carrying the platform's message.
func (c *RESTClient) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("sending platform request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to platform at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		message := string(respBody)
		if json.Unmarshal(respBody, &errResp) == nil {
			if errResp.Message != "" {
				message = errResp.Message
			} else if errResp.Error != "" {
				message = errResp.Error
			}
		}
		return nil, &statusError{code: resp.StatusCode, message: message}
	}

	return respBody, nil
}
