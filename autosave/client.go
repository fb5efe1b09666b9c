// Package autosave is the client side of the note persistence protocol:
// an HTTP client for the notes API and a controller that turns a stream
// of editor change events into debounced, serialized save calls.
package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"indix/models"
	"indix/session"
)

// APIError is a non-2xx response from the notes API, carrying the status
// and the server's error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("autosave: api returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// savePayload mirrors the API contract: content always present, title
// only when it should change (nil marshals to an absent field).
type savePayload struct {
	Title   *string `json:"title,omitempty"`
	Content string  `json:"content"`
}

// CreateNote persists a new draft and returns the server-assigned id.
func (c *Client) CreateNote(ctx context.Context, title *string, content string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/notes", savePayload{Title: title, Content: content}, http.StatusCreated, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// GetNote fetches a stored note by id.
func (c *Client) GetNote(ctx context.Context, id string) (models.Note, error) {
	var out struct {
		Note models.Note `json:"note"`
	}
	err := c.do(ctx, http.MethodGet, "/api/notes/"+id, nil, http.StatusOK, &out)
	return out.Note, err
}

// UpdateNote rewrites an existing note and returns the stored row.
func (c *Client) UpdateNote(ctx context.Context, id string, title *string, content string) (models.Note, error) {
	var out struct {
		Note models.Note `json:"note"`
	}
	err := c.do(ctx, http.MethodPatch, "/api/notes/"+id, savePayload{Title: title, Content: content}, http.StatusOK, &out)
	return out.Note, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: c.Token})

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
