package webos

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"zapp/internal/logger"
)

const (
	// PortPlain is the plaintext WebSocket port
	PortPlain = 3000
	// PortSSL is the TLS fallback port used after a connection reset
	PortSSL = 3001

	dialTimeout    = 10 * time.Second
	requestTimeout = 10 * time.Second
)

// envelope is the request/response frame on the main socket
type envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	URI     string          `json:"uri,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client speaks the WebOS SSAP WebSocket protocol: a persistent socket with
// a request/response envelope keyed by a 16-hex-digit correlation id (8
// random hex digits plus an incrementing counter, the format homebridge
// tooling uses, so key files stay interchangeable).
type Client struct {
	ip        string
	ssl       bool
	portPlain int
	portSSL   int

	mu        sync.Mutex
	conn      *websocket.Conn
	pointer   *websocket.Conn
	pending   map[string]chan envelope
	cidPrefix string
	cidCount  uint64
	muted     bool
	closed    bool

	onClose func(error)
	logger  zerolog.Logger
}

// NewClient creates a client for one TV. onClose fires once when the socket
// drops unexpectedly; it does not fire after Close.
func NewClient(ip string, ssl bool, onClose func(error)) *Client {
	prefix := make([]byte, 4)
	_, _ = rand.Read(prefix)
	return &Client{
		ip:        ip,
		ssl:       ssl,
		portPlain: PortPlain,
		portSSL:   PortSSL,
		pending:   make(map[string]chan envelope),
		cidPrefix: fmt.Sprintf("%08x", prefix),
		onClose:   onClose,
		logger:    logger.For("webos").With().Str("ip", ip).Logger(),
	}
}

// SSL reports whether the client dials the TLS port
func (c *Client) SSL() bool {
	return c.ssl
}

// nextCid returns the next correlation id
func (c *Client) nextCid() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cidCount++
	return fmt.Sprintf("%s%08x", c.cidPrefix, c.cidCount)
}

// Dial opens the main socket and starts the read loop
func (c *Client) Dial(ctx context.Context) error {
	scheme, port := "ws", c.portPlain
	if c.ssl {
		scheme, port = "wss", c.portSSL
	}
	u := url.URL{Scheme: scheme, Host: fmt.Sprintf("%s:%d", c.ip, port)}

	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		// WebOS TVs present self-signed certificates
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	c.logger.Debug().Str("url", u.String()).Msg("Dialing WebOS socket")
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// readLoop dispatches incoming envelopes to their pending waiters
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClosed(err)
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn().Err(err).Msg("Malformed frame from TV")
			continue
		}

		c.mu.Lock()
		ch := c.pending[env.ID]
		c.mu.Unlock()
		if ch == nil {
			c.logger.Debug().Str("id", env.ID).Str("type", env.Type).Msg("Unsolicited frame")
			continue
		}
		select {
		case ch <- env:
		default:
			c.logger.Warn().Str("id", env.ID).Msg("Dropping frame for slow waiter")
		}
	}
}

func (c *Client) handleClosed(err error) {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.conn = nil
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	onClose := c.onClose
	c.mu.Unlock()

	if !wasClosed && onClose != nil {
		onClose(err)
	}
}

// Close shuts both sockets down. Idempotent; suppresses the onClose callback.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed && c.conn == nil && c.pointer == nil {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	pointer := c.pointer
	c.conn = nil
	c.pointer = nil
	c.mu.Unlock()

	if pointer != nil {
		_ = pointer.Close()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// send writes one envelope and registers a waiter for its id
func (c *Client) send(env envelope) (chan envelope, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("not connected")
	}
	ch := make(chan envelope, 4)
	c.pending[env.ID] = ch
	c.mu.Unlock()

	data, err := json.Marshal(env)
	if err != nil {
		c.release(env.ID)
		return nil, err
	}

	c.mu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.mu.Unlock()
	if err != nil {
		c.release(env.ID)
		return nil, fmt.Errorf("websocket write failed: %w", err)
	}
	return ch, nil
}

func (c *Client) release(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Request performs one request/response round-trip
func (c *Client) Request(ctx context.Context, uri string, payload interface{}) (json.RawMessage, error) {
	id := c.nextCid()
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	ch, err := c.send(envelope{ID: id, Type: "request", URI: uri, Payload: raw})
	if err != nil {
		return nil, err
	}
	defer c.release(id)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case env, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("connection closed during request")
		}
		if env.Type == "error" {
			return nil, fmt.Errorf("TV returned error: %s", env.Error)
		}
		return env.Payload, nil
	}
}

// registerResult is what the register flow ultimately resolves to
type registerResult struct {
	ClientKey string
}

// Register runs the permission handshake. The TV may first answer with a
// PROMPT response (the on-screen accept/deny dialog) before the final
// "registered" message carrying the client-key; onPrompt fires for the
// former. clientKey may be a previously stored key, which skips the prompt.
func (c *Client) Register(ctx context.Context, clientKey string, onPrompt func()) (*registerResult, error) {
	id := c.nextCid()
	payload := registerPayload(clientKey)

	ch, err := c.send(envelope{ID: id, Type: "register", Payload: payload})
	if err != nil {
		return nil, err
	}
	defer c.release(id)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case env, ok := <-ch:
			if !ok {
				return nil, fmt.Errorf("connection closed during register")
			}
			switch env.Type {
			case "response":
				// Pairing prompt is on screen
				if onPrompt != nil {
					onPrompt()
				}
			case "registered":
				var p struct {
					ClientKey string `json:"client-key"`
				}
				if err := json.Unmarshal(env.Payload, &p); err != nil || p.ClientKey == "" {
					// Protocol violation: registered without a key
					return nil, fmt.Errorf("TV registered without a client-key")
				}
				return &registerResult{ClientKey: p.ClientKey}, nil
			case "error":
				return nil, fmt.Errorf("registration rejected: %s", env.Error)
			default:
				c.logger.Debug().Str("type", env.Type).Msg("Unexpected register frame")
			}
		}
	}
}

// OpenPointerSocket asks the TV for its pointer input endpoint and connects
// the secondary socket used for button presses
func (c *Client) OpenPointerSocket(ctx context.Context) error {
	payload, err := c.Request(ctx, uriPointerSocket, nil)
	if err != nil {
		return fmt.Errorf("failed to get pointer socket: %w", err)
	}

	var p struct {
		SocketPath string `json:"socketPath"`
	}
	if err := json.Unmarshal(payload, &p); err != nil || p.SocketPath == "" {
		return fmt.Errorf("pointer socket response missing socketPath")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: true},
	}
	conn, _, err := dialer.DialContext(ctx, p.SocketPath, nil)
	if err != nil {
		return fmt.Errorf("pointer socket dial failed: %w", err)
	}

	c.mu.Lock()
	c.pointer = conn
	c.mu.Unlock()
	return nil
}

// SendButton writes one button frame on the pointer socket. Frames are
// newline-delimited key:value pairs, not JSON.
func (c *Client) SendButton(name string) error {
	c.mu.Lock()
	pointer := c.pointer
	c.mu.Unlock()
	if pointer == nil {
		return fmt.Errorf("pointer socket not open")
	}

	frame := fmt.Sprintf("type:button\nname:%s\n\n", name)
	if err := pointer.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return fmt.Errorf("pointer write failed: %w", err)
	}
	return nil
}

// ToggleMute flips the client-side mute state and pushes it to the TV. The
// vendor API only exposes setMute, so the toggle lives here.
func (c *Client) ToggleMute(ctx context.Context) error {
	c.mu.Lock()
	next := !c.muted
	c.mu.Unlock()

	_, err := c.Request(ctx, uriSetMute, map[string]interface{}{"mute": next})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.muted = next
	c.mu.Unlock()
	return nil
}

// IsConnReset reports whether an error is a TCP connection reset, the
// signature of a TV that only accepts TLS on port 3001
func IsConnReset(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return strings.Contains(err.Error(), "connection reset")
}
