// Package peer provides HTTP clients for calling the other taskhub services.
// Every call relays the caller's bearer token, is bounded by a timeout and is
// never retried.
package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnreachable is returned when the peer cannot be contacted or does not
	// answer within the timeout.
	ErrUnreachable = errors.New("peer service is unreachable")
	// ErrNotFound is returned for a 404 from the peer.
	ErrNotFound = errors.New("peer resource not found")
	// ErrForbidden is returned for a 403 from the peer.
	ErrForbidden = errors.New("peer denied access")
	// ErrUnauthorized is returned for a 401 from the peer.
	ErrUnauthorized = errors.New("peer rejected credentials")
	// ErrBadRequest is returned for a 400 from the peer.
	ErrBadRequest = errors.New("peer rejected request")
	// ErrUnexpectedStatus is returned for any other non-2xx status or an
	// undecodable body.
	ErrUnexpectedStatus = errors.New("unexpected peer response")
	// ErrInvalidSegment is returned before any request is sent when a path
	// segment is empty or a dot segment.
	ErrInvalidSegment = errors.New("invalid path segment")
)

// envelope mirrors the response envelope every taskhub service writes.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// client is the transport shared by the typed peer clients.
type client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func newClient(baseURL string, timeout time.Duration, logger *zap.Logger) client {
	return client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// do sends a request with the relayed token and decodes the envelope data
// into out when out is non-nil.
func (c client) do(ctx context.Context, method, token string, out any, pathSegments ...string) error {
	endpoint, err := buildURL(c.baseURL, pathSegments...)
	if err != nil {
		return fmt.Errorf("building URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Calling peer", zap.String("method", method), zap.String("url", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Peer unreachable", zap.String("url", endpoint), zap.Error(err))
		return fmt.Errorf("%w: %s %s", ErrUnreachable, method, endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUnreachable, err)
	}

	if err := statusError(resp.StatusCode); err != nil {
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Error != nil {
			err = fmt.Errorf("%w: %s", err, env.Error.Message)
		}
		c.logger.Debug("Peer returned error",
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return err
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: parsing response: %v", ErrUnexpectedStatus, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: empty data", ErrUnexpectedStatus)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: parsing data: %v", ErrUnexpectedStatus, err)
	}

	return nil
}

func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusBadRequest:
		return ErrBadRequest
	default:
		return fmt.Errorf("%w: status %d", ErrUnexpectedStatus, status)
	}
}

// buildURL appends each segment to the base path as a single escaped path
// element, so a value such as "a/b" or "x/../me" can never address another
// route.
func buildURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	escaped := make([]string, 0, len(pathSegments))
	for _, seg := range pathSegments {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidSegment, seg)
		}
		escaped = append(escaped, url.PathEscape(seg))
	}

	rawBase := strings.TrimSuffix(u.EscapedPath(), "/")
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.Join(pathSegments, "/")
	u.RawPath = rawBase + "/" + strings.Join(escaped, "/")

	return u.String(), nil
}
