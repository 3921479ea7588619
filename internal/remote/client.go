// Package remote is the HTTP accessor for the staybook document store.
package remote

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

	"github.com/MarcoPoloResearchLab/staybook/internal/resource"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 10 * time.Second
	collectionsPath  = "v1/collections"
	jsonContentType  = "application/json"
	maxErrorBodySize = 4096
)

var (
	// ErrNotFound is returned when the store has no document for an identifier.
	ErrNotFound = fmt.Errorf("remote: %w", resource.ErrNotFound)

	errMissingBaseURL = errors.New("remote: base url is required")
	errInvalidBaseURL = errors.New("remote: base url must be absolute http(s)")
	errMissingName    = errors.New("remote: collection name is required")
	errMissingID      = errors.New("remote: document id is required")
	errEmptyCreateID  = errors.New("remote: create response carried no name")
)

// StatusError reports a non-2xx response from the document store.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Code       string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("remote: %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("remote: %s %s returned status %d (%s)", e.Method, e.Path, e.StatusCode, e.Code)
}

// Unwrap maps 404 responses onto ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client issues authenticated requests against the document store.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient validates the configuration and returns a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	rawURL := strings.TrimSpace(cfg.BaseURL)
	if rawURL == "" {
		return nil, errMissingBaseURL
	}
	baseURL, err := url.Parse(rawURL)
	if err != nil || (baseURL.Scheme != "http" && baseURL.Scheme != "https") || baseURL.Host == "" {
		return nil, errInvalidBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		http:    httpClient,
		logger:  logger,
	}, nil
}

// Collection returns the accessor for the named collection.
func (c *Client) Collection(name string) *Collection {
	return &Collection{client: c, name: strings.TrimSpace(name)}
}

// Collection is a resource.Gateway for one document collection.
type Collection struct {
	client      *Client
	name        string
	filterField string
	filterValue string
}

var _ resource.Gateway = (*Collection)(nil)

// Where returns a view whose FetchCollection only yields documents with field equal to value.
func (c *Collection) Where(field, value string) *Collection {
	filtered := *c
	filtered.filterField = strings.TrimSpace(field)
	filtered.filterValue = value
	return &filtered
}

// FetchCollection returns every document keyed by its identifier.
func (c *Collection) FetchCollection(ctx context.Context) (map[string]json.RawMessage, error) {
	if c.name == "" {
		return nil, errMissingName
	}
	var query url.Values
	if c.filterField != "" {
		query = url.Values{}
		query.Set("orderBy", c.filterField)
		query.Set("equalTo", c.filterValue)
	}

	var documents map[string]json.RawMessage
	if err := c.client.do(ctx, http.MethodGet, c.path(""), query, nil, &documents); err != nil {
		return nil, err
	}
	if documents == nil {
		documents = map[string]json.RawMessage{}
	}
	return documents, nil
}

// FetchOne returns the document stored under id.
func (c *Collection) FetchOne(ctx context.Context, id string) (json.RawMessage, error) {
	if err := c.validate(id); err != nil {
		return nil, err
	}
	var document json.RawMessage
	if err := c.client.do(ctx, http.MethodGet, c.path(id), nil, nil, &document); err != nil {
		return nil, err
	}
	return document, nil
}

type createResponse struct {
	Name string `json:"name"`
}

// Create stores document and returns the identifier assigned by the store.
func (c *Collection) Create(ctx context.Context, document json.RawMessage) (string, error) {
	if c.name == "" {
		return "", errMissingName
	}
	var response createResponse
	if err := c.client.do(ctx, http.MethodPost, c.path(""), nil, document, &response); err != nil {
		return "", err
	}
	if strings.TrimSpace(response.Name) == "" {
		return "", errEmptyCreateID
	}
	return response.Name, nil
}

// ReplaceOne overwrites the document stored under id.
func (c *Collection) ReplaceOne(ctx context.Context, id string, document json.RawMessage) error {
	if err := c.validate(id); err != nil {
		return err
	}
	return c.client.do(ctx, http.MethodPut, c.path(id), nil, document, nil)
}

// Delete removes the document stored under id.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if err := c.validate(id); err != nil {
		return err
	}
	return c.client.do(ctx, http.MethodDelete, c.path(id), nil, nil, nil)
}

func (c *Collection) validate(id string) error {
	if c.name == "" {
		return errMissingName
	}
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	return nil
}

func (c *Collection) path(id string) string {
	segments := []string{collectionsPath, url.PathEscape(c.name)}
	if id != "" {
		segments = append(segments, url.PathEscape(strings.TrimSpace(id)))
	}
	return strings.Join(segments, "/")
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", jsonContentType)
	if body != nil {
		request.Header.Set("Content-Type", jsonContentType)
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	response, err := c.http.Do(request)
	if err != nil {
		c.logger.Warn("document store request failed",
			zap.String("method", method),
			zap.String("path", target.Path),
			zap.Error(err))
		return err
	}
	defer response.Body.Close()

	c.logger.Debug("document store request",
		zap.String("method", method),
		zap.String("path", target.Path),
		zap.Int("status", response.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if response.StatusCode < 200 || response.StatusCode > 299 {
		statusErr := &StatusError{Method: method, Path: target.Path, StatusCode: response.StatusCode}
		payload, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
		var decoded errorResponse
		if json.Unmarshal(payload, &decoded) == nil {
			statusErr.Code = decoded.Error
		}
		return statusErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode %s %s response: %w", method, target.Path, err)
	}
	return nil
}
