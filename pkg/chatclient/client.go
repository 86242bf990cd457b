// Package chatclient is a Go client for the chat endpoints of the API,
// including an optimistic message composer.
package chatclient

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

	"github.com/gorilla/websocket"

	"github.com/noah-isme/homefix-api/internal/dto"
)

// APIError is a failed API response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("chat api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("chat api error (%d)", e.Status)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Outgoing is a message about to be sent.
type Outgoing struct {
	Text        string                  `json:"text"`
	Attachments []dto.AttachmentPayload `json:"attachments,omitempty"`
}

// Client talks to the chat API as one authenticated user.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// NewClient constructs a chat client. baseURL must include the scheme.
func NewClient(baseURL, token string) (*Client, error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: normalized,
		token:   token,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("api url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("api url must use http or https")
	}
	return strings.TrimRight(value, "/"), nil
}

// StartChat opens the thread with another user, creating it on first contact.
func (c *Client) StartChat(ctx context.Context, otherUserID string) (dto.ThreadResponse, error) {
	var thread dto.ThreadResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/chat/threads", dto.StartChatRequest{OtherUserID: otherUserID}, &thread)
	return thread, err
}

// Threads lists the caller's threads, most recent first.
func (c *Client) Threads(ctx context.Context) ([]dto.ThreadResponse, error) {
	var threads []dto.ThreadResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/chat/threads", nil, &threads)
	return threads, err
}

// Messages fetches the current view of a thread.
func (c *Client) Messages(ctx context.Context, threadID string) ([]dto.MessageView, error) {
	var views []dto.MessageView
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/chat/threads/"+url.PathEscape(threadID)+"/messages", nil, &views)
	return views, err
}

// Send writes a message into a thread.
func (c *Client) Send(ctx context.Context, threadID string, msg Outgoing) (dto.MessageResponse, error) {
	var message dto.MessageResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/chat/threads/"+url.PathEscape(threadID)+"/messages", msg, &message)
	return message, err
}

// Watch streams message snapshots of a thread over the websocket until ctx
// ends or the connection drops. A server error frame is returned as an error.
func (c *Client) Watch(ctx context.Context, threadID string, fn func([]dto.MessageView)) error {
	endpoint, err := c.socketURL(threadID)
	if err != nil {
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Message: err.Error()}
		}
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		var event dto.ChatSocketEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}

		switch event.Type {
		case dto.ChatEventSnapshot:
			fn(event.Messages)
		case dto.ChatEventError:
			return &APIError{Status: http.StatusBadRequest, Message: event.Error}
		}
	}
}

func (c *Client) socketURL(threadID string) (string, error) {
	endpoint, err := url.Parse(c.baseURL + "/api/v1/chat/ws")
	if err != nil {
		return "", err
	}
	switch endpoint.Scheme {
	case "https":
		endpoint.Scheme = "wss"
	default:
		endpoint.Scheme = "ws"
	}

	query := url.Values{}
	query.Set("thread_id", threadID)
	if c.token != "" {
		query.Set("access_token", c.token)
	}
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var payload envelope
	if err := json.Unmarshal(data, &payload); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		return err
	}

	if !payload.Success || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: payload.Message}
		if payload.Error != nil && payload.Error.Message != "" {
			apiErr.Message = payload.Error.Message
		}
		return apiErr
	}

	if respBody == nil || len(payload.Data) == 0 {
		return nil
	}
	return json.Unmarshal(payload.Data, respBody)
}

// IsStatus reports whether err is an API error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
