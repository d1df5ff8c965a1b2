package webos

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

// Transport is the session-facing WebOS adapter. It owns the main SSAP
// socket plus the pointer input socket and reports drops through the sink.
type Transport struct {
	device remote.Device
	store  *KeyStore
	sink   remote.TransportSink

	// non-zero port overrides, for tests
	portPlain int
	portSSL   int

	mu     sync.Mutex
	client *Client
	closed bool

	logger zerolog.Logger
}

// NewTransport creates a transport for one paired device
func NewTransport(device remote.Device, store *KeyStore, sink remote.TransportSink) *Transport {
	return &Transport{
		device: device,
		store:  store,
		sink:   sink,
		logger: logger.For("webos").With().Str("ip", device.IP).Logger(),
	}
}

// Connect dials the TV, re-registers with the stored client key and opens
// the pointer input socket used for directional keys
func (t *Transport) Connect(ctx context.Context) error {
	creds := t.device.Credentials
	if creds == nil || !creds.WebOS.Valid() {
		return fmt.Errorf("no client key for %s", t.device.IP)
	}

	// Best-effort wake; a TV already on ignores the packet
	if t.device.MAC != "" {
		if err := wol.Wake(t.device.MAC); err != nil {
			t.logger.Debug().Err(err).Msg("Wake-on-LAN failed")
		}
	}

	client, err := t.dial(ctx)
	if err != nil {
		return err
	}

	if _, err := client.Register(ctx, creds.WebOS.ClientKey, nil); err != nil {
		_ = client.Close()
		return fmt.Errorf("registration with stored key failed: %w", err)
	}

	if err := client.OpenPointerSocket(ctx); err != nil {
		_ = client.Close()
		return err
	}

	t.mu.Lock()
	prev := t.client
	t.client = client
	t.closed = false
	t.mu.Unlock()
	if prev != nil {
		// Drop the superseded socket so its read loop cannot report a
		// loss against the fresh connection
		_ = prev.Close()
	}

	if t.store != nil {
		t.store.Save(t.device.IP, t.device.MAC, creds.WebOS.ClientKey)
	}
	return nil
}

func (t *Transport) dial(ctx context.Context) (*Client, error) {
	client := t.newClient(false)
	err := client.Dial(ctx)
	if err == nil {
		return client, nil
	}
	if !IsConnReset(err) {
		return nil, err
	}

	t.logger.Debug().Msg("Plain socket reset, retrying over TLS")
	client = t.newClient(true)
	if err := client.Dial(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func (t *Transport) newClient(ssl bool) *Client {
	client := NewClient(t.device.IP, ssl, t.reportLost)
	if t.portPlain != 0 {
		client.portPlain = t.portPlain
	}
	if t.portSSL != 0 {
		client.portSSL = t.portSSL
	}
	return client
}

// reportLost forwards an unexpected socket drop to the session machine
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

// Close tears the sockets down without reporting a loss
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

// SendKey dispatches one key press, choosing the main socket or the pointer
// socket per the key map
func (t *Transport) SendKey(ctx context.Context, key remote.Key) error {
	client, err := t.current()
	if err != nil {
		return err
	}

	action, ok := keyMap[key]
	if !ok {
		return fmt.Errorf("key %q is not supported on webos", key)
	}

	switch {
	case action.toggleMute:
		return client.ToggleMute(ctx)
	case action.button != "":
		return client.SendButton(action.button)
	default:
		_, err := client.Request(ctx, action.uri, action.payload)
		return err
	}
}

// SendText types text through the TV's IME service. Newlines confirm the
// field and backspaces delete one character.
func (t *Transport) SendText(ctx context.Context, text string) error {
	client, err := t.current()
	if err != nil {
		return err
	}

	flush := func(run string) error {
		if run == "" {
			return nil
		}
		_, err := client.Request(ctx, uriInsertText, map[string]interface{}{
			"text":    run,
			"replace": 0,
		})
		return err
	}

	var run strings.Builder
	for _, r := range text {
		switch r {
		case '\n':
			if err := flush(run.String()); err != nil {
				return err
			}
			run.Reset()
			if _, err := client.Request(ctx, uriSendEnter, nil); err != nil {
				return err
			}
		case '\b':
			if err := flush(run.String()); err != nil {
				return err
			}
			run.Reset()
			if _, err := client.Request(ctx, uriDeleteChars, map[string]interface{}{"count": 1}); err != nil {
				return err
			}
		default:
			run.WriteRune(r)
		}
	}
	return flush(run.String())
}

// Ping checks liveness with a power-state query
func (t *Transport) Ping(ctx context.Context) error {
	client, err := t.current()
	if err != nil {
		return err
	}
	_, err = client.Request(ctx, uriPowerState, nil)
	return err
}
