// Package telegram is the gateway's chat-backend client.
//
// It speaks to an MTProto bridge sidecar over HTTP. The bridge owns the
// platform wire protocol and multiplexes logical operations over the single
// authenticated user session; this client owns that session's lifecycle and
// the typed surface the gateway consumes. Responses arrive in Bot-API-style
// envelopes: {"ok": bool, "result": ..., "error_code": int, "description": "..."}.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"github.com/koval01/telegram-gateway/internal/graph"
	"github.com/koval01/telegram-gateway/internal/log"
)

// Config carries everything the client needs to reach the bridge.
type Config struct {
	// BaseURL is the bridge endpoint, e.g. "http://127.0.0.1:8081".
	BaseURL string
	// Session is the exported session credential produced by the login
	// flow. Empty is allowed only for the login flow itself; serving
	// requires it (enforced by config validation).
	Session string
	// APIID and APIHash identify the application to the platform.
	APIID   string
	APIHash string
	// Logger is optional; nil selects a no-op logger.
	Logger log.Logger
}

// Client is the single shared backend handle. It carries no mutable state
// after construction and is safe for concurrent use; connection reuse and
// request multiplexing are the transport's concern.
type Client struct {
	baseURL    string
	session    string
	apiID      string
	apiHash    string
	logger     log.Logger
	httpClient *http.Client
}

// NewClient validates the configuration and builds a client. It performs no
// I/O; Start establishes the session.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("bridge base URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid bridge base URL: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		session:    cfg.Session,
		apiID:      cfg.APIID,
		apiHash:    cfg.APIHash,
		logger:     logger,
		httpClient: &http.Client{},
	}, nil
}

// envelope is the bridge's uniform response wrapper.
type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// Start begins the bridge session and verifies it with an identity probe.
// Called exactly once by the process entry point, before the HTTP listener
// starts accepting. A failure here must abort startup.
func (c *Client) Start(ctx context.Context) error {
	if _, err := c.call(ctx, "start", nil); err != nil {
		return fmt.Errorf("starting backend session: %w", err)
	}
	if err := c.Me(ctx); err != nil {
		return fmt.Errorf("session identity probe: %w", err)
	}
	c.logger.Info("backend session started", "bridge", c.baseURL)
	return nil
}

// Stop ends the bridge session. Called exactly once, after the HTTP
// listener has stopped accepting.
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.call(ctx, "stop", nil)
	c.httpClient.CloseIdleConnections()
	if err != nil {
		return fmt.Errorf("stopping backend session: %w", err)
	}
	c.logger.Info("backend session stopped")
	return nil
}

// Me probes the session identity. Used by Start and the liveness endpoint.
func (c *Client) Me(ctx context.Context) error {
	if _, err := c.call(ctx, "getMe", nil); err != nil {
		return fmt.Errorf("identity probe: %w", err)
	}
	return nil
}

// GetChat resolves a chat handle to its raw object graph.
func (c *Client) GetChat(ctx context.Context, handle string) (*Chat, error) {
	if handle == "" {
		return nil, fmt.Errorf("%w: empty chat handle", ErrNotFound)
	}
	raw, err := c.call(ctx, "getChat", map[string]any{"chat_id": handle})
	if err != nil {
		return nil, err
	}
	return chatFromRaw(raw)
}

// History fetches one page of chat history, newest first, yielding each
// message as it is decoded from the wire rather than buffering the whole
// page. The iterator yields at most one error, as its final element.
func (c *Client) History(ctx context.Context, handle string, page HistoryPage) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		if handle == "" {
			yield(Message{}, fmt.Errorf("%w: empty chat handle", ErrNotFound))
			return
		}
		limit := page.Limit
		if limit <= 0 {
			limit = DefaultPageSize
		}
		resp, err := c.post(ctx, "getChatHistory", map[string]any{
			"chat_id":     handle,
			"limit":       limit,
			"offset":      page.Offset,
			"offset_id":   page.OffsetID,
			"offset_date": page.OffsetDate,
		})
		if err != nil {
			yield(Message{}, err)
			return
		}
		defer resp.Body.Close()

		if err := streamResult(resp.Body, func(raw json.RawMessage) (bool, error) {
			msg, err := messageFromRaw(raw)
			if err != nil {
				return false, err
			}
			return yield(*msg, nil), nil
		}); err != nil {
			yield(Message{}, err)
		}
	}
}

// streamResult walks an envelope incrementally, invoking element for each
// item of the result array without materializing the array. element returns
// false to stop early. A non-ok envelope surfaces as a mapped error.
func streamResult(r io.Reader, element func(json.RawMessage) (bool, error)) error {
	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil { // opening brace
		return fmt.Errorf("decoding history envelope: %w", err)
	}

	var env envelope
	env.OK = true // absent "ok" on a streamed result means success
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding history envelope: %w", err)
		}
		key, _ := keyTok.(string)
		switch key {
		case "ok":
			if err := dec.Decode(&env.OK); err != nil {
				return fmt.Errorf("decoding history envelope: %w", err)
			}
		case "error_code":
			if err := dec.Decode(&env.ErrorCode); err != nil {
				return fmt.Errorf("decoding history envelope: %w", err)
			}
		case "description":
			if err := dec.Decode(&env.Description); err != nil {
				return fmt.Errorf("decoding history envelope: %w", err)
			}
		case "result":
			if !env.OK {
				return mapError(env.ErrorCode, env.Description)
			}
			if _, err := dec.Token(); err != nil { // opening bracket
				return fmt.Errorf("decoding history page: %w", err)
			}
			for dec.More() {
				var raw json.RawMessage
				if err := dec.Decode(&raw); err != nil {
					return fmt.Errorf("decoding history element: %w", err)
				}
				cont, err := element(raw)
				if err != nil {
					return err
				}
				if !cont {
					return nil
				}
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return fmt.Errorf("decoding history page: %w", err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("decoding history envelope: %w", err)
			}
		}
	}
	if !env.OK {
		return mapError(env.ErrorCode, env.Description)
	}
	return nil
}

// StreamMedia opens a byte stream for a media identifier. The caller owns
// the returned stream and must close it; cancellation of ctx aborts the
// transfer.
func (c *Client) StreamMedia(ctx context.Context, fileID string) (io.ReadCloser, error) {
	u := c.baseURL + "/downloadFile?file_id=" + url.QueryEscape(fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating media request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching media: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var env envelope
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&env); err == nil && !env.OK {
			return nil, mapError(env.ErrorCode, env.Description)
		}
		return nil, fmt.Errorf("fetching media: bridge returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// call performs a bridge method call and returns the envelope's result.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	resp, err := c.post(ctx, method, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", method, err)
	}
	if !env.OK {
		return nil, mapError(env.ErrorCode, env.Description)
	}
	return env.Result, nil
}

// post issues a bridge method request and returns the raw response for the
// caller to consume. HTTP-level status is not interpreted here; the
// envelope carries the outcome.
func (c *Client) post(ctx context.Context, method string, params any) (*http.Response, error) {
	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding request: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, body)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", method, err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", method, err)
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.session != "" {
		req.Header.Set("Authorization", "Bearer "+c.session)
	}
	if c.apiID != "" {
		req.Header.Set("X-Api-Id", c.apiID)
	}
	if c.apiHash != "" {
		req.Header.Set("X-Api-Hash", c.apiHash)
	}
}

// mapError translates a bridge error envelope into the package's sentinel
// taxonomy. Anything unrecognized passes through as a generic error.
func mapError(code int, desc string) error {
	up := strings.ToUpper(desc)
	switch {
	case strings.Contains(up, "USERNAME_NOT_OCCUPIED"),
		strings.Contains(up, "USERNAME_INVALID"),
		strings.Contains(up, "CHAT NOT FOUND"),
		code == http.StatusNotFound:
		return fmt.Errorf("%w (%s)", ErrNotFound, desc)
	case strings.Contains(up, "CHANNEL_PRIVATE"),
		strings.Contains(up, "CHAT_ADMIN_REQUIRED"),
		code == http.StatusForbidden:
		return fmt.Errorf("%w (%s)", ErrPrivate, desc)
	default:
		return fmt.Errorf("bridge error %d: %s", code, desc)
	}
}

func chatFromRaw(raw json.RawMessage) (*Chat, error) {
	node, err := graph.Decode(raw, enumFields)
	if err != nil {
		return nil, err
	}
	m, ok := node.(graph.Mapping)
	if !ok {
		return nil, errors.New("unexpected chat payload shape")
	}
	return &Chat{Kind: kindOf(m), Raw: m}, nil
}

func messageFromRaw(raw json.RawMessage) (*Message, error) {
	node, err := graph.Decode(raw, enumFields)
	if err != nil {
		return nil, err
	}
	m, ok := node.(graph.Mapping)
	if !ok {
		return nil, errors.New("unexpected message payload shape")
	}
	kind := KindUnknown
	if chat, ok := m["chat"].(graph.Mapping); ok {
		kind = kindOf(chat)
	}
	return &Message{ChatKind: kind, Raw: m}, nil
}

func kindOf(m graph.Mapping) Kind {
	if e, ok := m["type"].(graph.Enum); ok {
		return ParseKind(string(e))
	}
	return KindUnknown
}
