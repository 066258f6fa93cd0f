package workerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"biblepace/internal/servicetoken"
	"biblepace/pkg/domain"
)

// Audience is the service token audience the worker expects.
const Audience = "worker"

// Client posts reminder commands to the worker over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a worker error response.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs a worker client. A non-nil signer attaches a service
// token to every call.
func NewClient(baseURL string, signer *servicetoken.Signer) *Client {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	if signer != nil {
		httpClient.Transport = signer.Transport(Audience, nil)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) Publish(ctx context.Context, cmd domain.ReminderCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg, Code: strings.TrimSpace(errResp.Code)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
