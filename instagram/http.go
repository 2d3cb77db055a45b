package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"golang.org/x/oauth2"
)

const (
	headerRequestID   = "X-Request-ID"
	headerContentType = "Content-Type"
	headerUserAgent   = "User-Agent"
	contentTypeJSON   = "application/json"
	defaultUserAgent  = "go-insta-auth/1.0"

	// tokenType is the Django REST Framework token scheme: "Authorization: Token <t>"
	tokenType = "Token"
)

// cmsToken returns the CMS token, or errors.ErrNotAuthenticated before any request is built.
func (c *Client) cmsToken() (string, error) {
	if c.tokens == nil {
		return "", errors.ErrNotAuthenticated
	}
	return c.tokens.Token()
}

// doRequest performs an HTTP request and decodes a JSON result. Non-2xx
// responses become *APIError, network failures become *TransportError.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	raw, err := c.cmsToken()
	if err != nil {
		return err
	}

	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal request body: %w", marshalErr)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	(&oauth2.Token{AccessToken: raw, TokenType: tokenType}).SetAuthHeader(req)

	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set(headerUserAgent, c.userAgent)
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("Backend request failed")
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", requestID).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, respBody)
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.doRequest(ctx, http.MethodPost, path, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil)
}
