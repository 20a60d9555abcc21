package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/antoinerrr/ssh-ecs/internal/api/presenter"
	"github.com/antoinerrr/ssh-ecs/internal/core"
)

// APIError is a structured error response from the server. Kind mirrors the
// server-side error taxonomy so callers can branch without parsing messages.
type APIError struct {
	Kind          core.ErrorKind
	CorrelationID string
	Message       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("api error: '%s' (kind: %s, correlation: %s)", e.Message, e.Kind, e.CorrelationID)
}

// IsNotAuthorized reports whether the error is a policy denial, the designed
// trigger for the escalation path.
func IsNotAuthorized(err error) bool {
	var apiErr APIError
	return asAPIError(err, &apiErr) && apiErr.Kind == core.KindNotAuthorized
}

// IsInvalidCredential reports whether the error is a rejected credential.
func IsInvalidCredential(err error) bool {
	var apiErr APIError
	return asAPIError(err, &apiErr) && apiErr.Kind == core.KindInvalidCredential
}

// IsNotFound reports whether the error is an unknown-token response.
func IsNotFound(err error) bool {
	var apiErr APIError
	return asAPIError(err, &apiErr) && apiErr.Kind == core.KindNotFound
}

func asAPIError(err error, dest *APIError) bool {
	apiErr, ok := err.(APIError)
	if ok {
		*dest = apiErr
	}
	return ok
}

func (c *Client) get(ctx context.Context, url string, result any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, url string, payload, result any) (string, error) {
	var body io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("marshaling payload: %w", err)
		}
		body = bytes.NewBuffer(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func parseErrorResponse(resp *http.Response) error {
	var errResp presenter.ErrorResponse
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d and unreadable body: %w", resp.StatusCode, err)
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return APIError{
			Kind:          errResp.Kind,
			CorrelationID: errResp.CorrelationID,
			Message:       errResp.Error,
		}
	}
	return fmt.Errorf("api error: *unparsed '%s' (status %d)", string(body), resp.StatusCode)
}

func (c *Client) do(req *http.Request, result any) (string, error) {
	resp, err := c.doRaw(req, result)
	return correlationFromResponse(resp), err
}

// doRaw executes the request and decodes the body into result. The returned
// response has its body fully consumed; it is only useful for headers.
func (c *Client) doRaw(req *http.Request, result any) (*http.Response, error) {
	// inject auth token if available
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return resp, parseErrorResponse(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp, nil
}

func correlationFromResponse(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Header.Get("X-Correlation-ID")
}

func urlEscape(s string) string {
	return url.PathEscape(s)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
