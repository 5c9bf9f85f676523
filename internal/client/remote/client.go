// Package remote talks to the songs endpoint: one full read, one full
// overwrite. Requests are sent once; there are no retries and no timeout.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/songlist/editor/internal/domain/entities"
	"github.com/songlist/editor/internal/infrastructure/logger"
)

// SongsPath is the collection resource on the server
const SongsPath = "/api/songs"

// RetrievalError is returned when the collection could not be fetched
type RetrievalError struct {
	StatusCode int
	Err        error
}

func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch songs: %v", e.Err)
	}
	return "failed to fetch songs"
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// PersistenceError is returned when the collection could not be saved
type PersistenceError struct {
	StatusCode int
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to save songs: %v", e.Err)
	}
	return "failed to save songs"
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsRetrievalError reports whether err is or wraps a RetrievalError
func IsRetrievalError(err error) bool {
	var re *RetrievalError
	return errors.As(err, &re)
}

// IsPersistenceError reports whether err is or wraps a PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// Client is the remote store of a session
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a client for the server at baseURL
func New(baseURL string, logger *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger.WithComponent("remote_store"),
	}
}

// FetchCollection reads the whole document. The body is decoded but its shape
// is not checked.
func (c *Client) FetchCollection(ctx context.Context) (*entities.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+SongsPath, nil)
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debugw("Fetch songs failed", "error", err)
		return nil, &RetrievalError{Err: err}
	}
	defer drain(resp.Body)

	c.logger.Debugw("Fetch songs", "status", resp.StatusCode)
	if !ok(resp.StatusCode) {
		return nil, &RetrievalError{StatusCode: resp.StatusCode}
	}

	doc, err := entities.DecodeDocument(resp.Body)
	if err != nil {
		return nil, &RetrievalError{StatusCode: resp.StatusCode, Err: err}
	}

	return doc, nil
}

// PutCollection overwrites the whole document with {"songs": songs}
func (c *Client) PutCollection(ctx context.Context, songs entities.Collection) (*entities.Ack, error) {
	body, err := json.Marshal(entities.Document{Songs: songs})
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+SongsPath, bytes.NewReader(body))
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debugw("Save songs failed", "error", err)
		return nil, &PersistenceError{Err: err}
	}
	defer drain(resp.Body)

	c.logger.Debugw("Save songs", "status", resp.StatusCode, "songs", len(songs), "bytes", len(body))
	if !ok(resp.StatusCode) {
		return nil, &PersistenceError{StatusCode: resp.StatusCode}
	}

	var ack entities.Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, &PersistenceError{StatusCode: resp.StatusCode, Err: err}
	}

	return &ack, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

func drain(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
