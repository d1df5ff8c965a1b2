package philips

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

// Transport is the session-facing Philips adapter. The TV keeps no session
// server-side, so each call re-authenticates and "connected" only means the
// last request succeeded. Losses are inferred from request failures.
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
		port:   Port,
		sink:   sink,
		logger: logger.For("philips").With().Str("ip", device.IP).Logger(),
	}
}

// Connect validates reachability with a power-state query and wakes the TV
// when it reports standby
func (t *Transport) Connect(ctx context.Context) error {
	creds := t.device.Credentials
	if creds == nil || !creds.Philips.Valid() {
		return fmt.Errorf("no credentials for %s", t.device.IP)
	}

	client := NewClient(t.device.IP, creds.Philips.DeviceID, creds.Philips.AuthKey)
	client.port = t.port

	var state struct {
		PowerState string `json:"powerstate"`
	}
	if err := client.Get(ctx, "/powerstate", &state); err != nil {
		return err
	}

	if strings.EqualFold(state.PowerState, "Standby") {
		t.logger.Debug().Msg("TV in standby, waking")
		if err := client.Post(ctx, "/powerstate", map[string]string{"powerstate": "On"}, nil); err != nil {
			t.logger.Warn().Err(err).Msg("Power-state wake failed")
		}
		if t.device.MAC != "" {
			if err := wol.Wake(t.device.MAC); err != nil {
				t.logger.Warn().Err(err).Msg("Wake-on-LAN failed")
			}
		}
	}

	t.mu.Lock()
	t.client = client
	t.closed = false
	t.mu.Unlock()
	return nil
}

// Close drops the client. Nothing to tear down on the wire.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.client = nil
	t.mu.Unlock()
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

// reportLost translates a failed request into a connection-loss event
func (t *Transport) reportLost(err error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	t.sink(remote.TransportEvent{Type: remote.TransportConnectionLost, Error: err.Error()})
}

// SendKey posts one key press to the input endpoint
func (t *Transport) SendKey(ctx context.Context, key remote.Key) error {
	client, err := t.current()
	if err != nil {
		return err
	}

	name, ok := keyMap[key]
	if !ok {
		return fmt.Errorf("key %q is not supported on philips", key)
	}

	if err := client.Post(ctx, "/input/key", map[string]string{"key": name}, nil); err != nil {
		t.reportLost(err)
		return err
	}
	return nil
}

// SendText is unsupported; the JointSpace API has no text-entry endpoint
func (t *Transport) SendText(context.Context, string) error {
	return fmt.Errorf("text input is not supported on philips")
}

// Ping checks liveness with a power-state query
func (t *Transport) Ping(ctx context.Context) error {
	client, err := t.current()
	if err != nil {
		return err
	}
	return client.Get(ctx, "/powerstate", nil)
}
