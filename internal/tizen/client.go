package tizen

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"zapp/internal/logger"
)

const (
	// PortControl is the WSS remote-control port
	PortControl = 8002
	// PortInfo is the unauthenticated HTTP info port
	PortInfo = 8001

	appName        = "zapp"
	channelPath    = "/api/v2/channels/samsung.remote.control"
	dialTimeout    = 10 * time.Second
	connectTimeout = 30 * time.Second
)

// frame is one message on the control channel
type frame struct {
	Method string          `json:"method,omitempty"`
	Event  string          `json:"event,omitempty"`
	Params interface{}     `json:"params,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Client speaks the Samsung remote-control WebSocket API. The TV approves
// the client on first connect and hands back a token in the channel-connect
// event; subsequent connects pass the token in the query string to skip the
// approval prompt.
type Client struct {
	ip   string
	port int

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	onClose func(error)
	logger  zerolog.Logger
}

// NewClient creates a client for one TV. onClose fires once when the socket
// drops unexpectedly; it does not fire after Close.
func NewClient(ip string, onClose func(error)) *Client {
	return &Client{
		ip:      ip,
		port:    PortControl,
		onClose: onClose,
		logger:  logger.For("tizen").With().Str("ip", ip).Logger(),
	}
}

// Dial connects the control channel and waits for the channel-connect event.
// The returned token is non-empty when the TV issued or refreshed one. An
// empty token argument triggers the on-screen approval prompt.
func (c *Client) Dial(ctx context.Context, token string) (string, error) {
	q := url.Values{}
	q.Set("name", base64.StdEncoding.EncodeToString([]byte(appName)))
	if token != "" {
		q.Set("token", token)
	}
	u := url.URL{
		Scheme:   "wss",
		Host:     fmt.Sprintf("%s:%d", c.ip, c.port),
		Path:     channelPath,
		RawQuery: q.Encode(),
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		// The TVs serve self-signed certificates
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	c.logger.Debug().Str("url", u.String()).Msg("Dialing control channel")
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("websocket dial failed: %w", err)
	}

	// First frame is ms.channel.connect once the user approves (or
	// immediately when a valid token was presented)
	deadline := time.Now().Add(connectTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.Close()
		return "", fmt.Errorf("handshake read failed: %w", err)
	}
	if hello.Event != "ms.channel.connect" {
		_ = conn.Close()
		return "", fmt.Errorf("TV refused connection: %s", hello.Event)
	}
	_ = conn.SetReadDeadline(time.Time{})

	var data struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(hello.Data, &data)

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	go c.readLoop(conn)
	return data.Token, nil
}

// readLoop drains server events and detects drops
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.handleClosed(err)
			return
		}
		c.logger.Debug().Str("event", f.Event).Msg("Channel event")
	}
}

func (c *Client) handleClosed(err error) {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.conn = nil
	onClose := c.onClose
	c.mu.Unlock()

	if !wasClosed && onClose != nil {
		onClose(err)
	}
}

// Close shuts the channel down. Idempotent; suppresses the onClose callback.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed && c.conn == nil {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) write(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	if err := c.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

// SendKey sends one remote key click
func (c *Client) SendKey(code string) error {
	return c.write(frame{
		Method: "ms.remote.control",
		Params: map[string]string{
			"Cmd":          "Click",
			"DataOfCmd":    code,
			"Option":       "false",
			"TypeOfRemote": "SendRemoteKey",
		},
	})
}

// SendInputString pushes text into the focused field, base64-encoded as the
// API requires
func (c *Client) SendInputString(text string) error {
	return c.write(frame{
		Method: "ms.remote.control",
		Params: map[string]string{
			"Cmd":          base64.StdEncoding.EncodeToString([]byte(text)),
			"DataOfCmd":    "base64",
			"TypeOfRemote": "SendInputString",
		},
	})
}

// SendInputEnd confirms the focused input field
func (c *Client) SendInputEnd() error {
	return c.write(frame{
		Method: "ms.remote.control",
		Params: map[string]string{
			"TypeOfRemote": "SendInputEnd",
		},
	})
}

// Ping sends a WebSocket-level ping
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}
