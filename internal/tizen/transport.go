package tizen

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"zapp/internal/logger"
	"zapp/internal/remote"
	"zapp/internal/wol"
)

// Transport is the session-facing Tizen adapter: a persistent control
// channel authenticated by the stored token.
type Transport struct {
	device remote.Device
	port   int
	sink   remote.TransportSink

	mu     sync.Mutex
	client *Client
	closed bool

	logger zerolog.Logger
}

// NewTransport creates a transport for one paired device
func NewTransport(device remote.Device, sink remote.TransportSink) *Transport {
	return &Transport{
		device: device,
		port:   PortControl,
		sink:   sink,
		logger: logger.For("tizen").With().Str("ip", device.IP).Logger(),
	}
}

// Connect opens the control channel with the stored token
func (t *Transport) Connect(ctx context.Context) error {
	creds := t.device.Credentials
	if creds == nil || !creds.Tizen.Valid() {
		return fmt.Errorf("no token for %s", t.device.IP)
	}

	// Best-effort wake; a TV already on ignores the packet
	if t.device.MAC != "" {
		if err := wol.Wake(t.device.MAC); err != nil {
			t.logger.Debug().Err(err).Msg("Wake-on-LAN failed")
		}
	}

	client := NewClient(t.device.IP, t.reportLost)
	client.port = t.port
	refreshed, err := client.Dial(ctx, creds.Tizen.Token)
	if err != nil {
		return err
	}
	if refreshed != "" && refreshed != creds.Tizen.Token {
		// TVs rotate tokens occasionally; keep using the session, the
		// stored one stays valid until the TV revokes it
		t.logger.Debug().Msg("TV issued a refreshed token")
	}

	t.mu.Lock()
	prev := t.client
	t.client = client
	t.closed = false
	t.mu.Unlock()
	if prev != nil {
		// Drop the superseded channel so its read loop cannot report a
		// loss against the fresh connection
		_ = prev.Close()
	}
	return nil
}

// reportLost forwards an unexpected channel drop to the session machine
func (t *Transport) reportLost(err error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}

	msg := "connection lost"
	if err != nil {
		msg = err.Error()
	}
	t.sink(remote.TransportEvent{Type: remote.TransportConnectionLost, Error: msg})
}

// Close tears the channel down without reporting a loss
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	client := t.client
	t.client = nil
	t.mu.Unlock()

	if client != nil {
		return client.Close()
	}
	return nil
}

func (t *Transport) current() (*Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil, fmt.Errorf("not connected")
	}
	return t.client, nil
}

// SendKey sends one key click
func (t *Transport) SendKey(_ context.Context, key remote.Key) error {
	client, err := t.current()
	if err != nil {
		return err
	}

	code, ok := keyMap[key]
	if !ok {
		return fmt.Errorf("key %q is not supported on tizen", key)
	}
	if err := client.SendKey(code); err != nil {
		t.reportLost(err)
		return err
	}
	return nil
}

// SendText types text into the focused field. Newlines become an explicit
// confirm frame. The vendor API has no delete command, so backspaces are
// dropped silently rather than failed.
func (t *Transport) SendText(_ context.Context, text string) error {
	client, err := t.current()
	if err != nil {
		return err
	}

	flush := func(run string) error {
		if run == "" {
			return nil
		}
		if err := client.SendInputString(run); err != nil {
			t.reportLost(err)
			return err
		}
		return nil
	}

	var run strings.Builder
	for _, r := range text {
		switch r {
		case '\n':
			if err := flush(run.String()); err != nil {
				return err
			}
			run.Reset()
			if err := client.SendInputEnd(); err != nil {
				t.reportLost(err)
				return err
			}
		case '\b':
			// vendor API gap
		default:
			run.WriteRune(r)
		}
	}
	return flush(run.String())
}

// Ping checks channel liveness
func (t *Transport) Ping(context.Context) error {
	client, err := t.current()
	if err != nil {
		return err
	}
	return client.Ping()
}
