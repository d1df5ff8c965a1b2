package webos

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zapp/internal/logger"
	"zapp/internal/remote"
)

// Pairer runs the WebOS permission handshake. The TV drives the whole flow
// through its on-screen accept dialog, so Submit has nothing to accept.
type Pairer struct {
	device remote.Device
	store  *KeyStore
	sink   remote.PairingSink

	// non-zero port overrides, for tests
	portPlain int
	portSSL   int

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	client *Client

	logger zerolog.Logger
}

// NewPairer creates a pairer for one device
func NewPairer(device remote.Device, store *KeyStore, sink remote.PairingSink) *Pairer {
	return &Pairer{
		device: device,
		store:  store,
		sink:   sink,
		logger: logger.For("webos").With().Str("ip", device.IP).Logger(),
	}
}

// Start begins the handshake in the background
func (p *Pairer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx)
}

func (p *Pairer) run(ctx context.Context) {
	client, err := p.dial(ctx)
	if err != nil {
		p.emit(remote.PairingEvent{Type: remote.PairingFailed, Error: err.Error()})
		return
	}
	defer client.Close()

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	storedKey := ""
	if p.store != nil {
		storedKey = p.store.Load(p.device.IP, p.device.MAC)
	}

	result, err := client.Register(ctx, storedKey, func() {
		p.emit(remote.PairingEvent{Type: remote.PairingPrompt})
	})
	if err != nil {
		p.emit(remote.PairingEvent{Type: remote.PairingFailed, Error: err.Error()})
		return
	}

	if p.store != nil {
		p.store.Save(p.device.IP, p.device.MAC, result.ClientKey)
	}

	p.emit(remote.PairingEvent{
		Type: remote.PairingPaired,
		Credentials: &remote.Credentials{
			WebOS: &remote.WebOSCredentials{
				ClientKey:   result.ClientKey,
				MAC:         p.device.MAC,
				LastUpdated: time.Now(),
			},
		},
	})
}

// dial connects on the plaintext port, retrying exactly once over TLS when
// the TV resets the connection (newer firmware only listens on 3001)
func (p *Pairer) dial(ctx context.Context) (*Client, error) {
	client := p.newClient(false)
	err := client.Dial(ctx)
	if err == nil {
		return client, nil
	}
	if !IsConnReset(err) {
		return nil, err
	}

	p.logger.Debug().Msg("Plain socket reset, retrying over TLS")
	client = p.newClient(true)
	if err := client.Dial(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func (p *Pairer) newClient(ssl bool) *Client {
	client := NewClient(p.device.IP, ssl, nil)
	if p.portPlain != 0 {
		client.portPlain = p.portPlain
	}
	if p.portSSL != 0 {
		client.portSSL = p.portSSL
	}
	return client
}

// Submit rejects input; WebOS pairing is confirmed on the TV itself
func (p *Pairer) Submit(string) error {
	return fmt.Errorf("webos pairing takes no input")
}

// Close aborts the handshake. Safe to call more than once.
func (p *Pairer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	cancel := p.cancel
	client := p.client
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if client != nil {
		_ = client.Close()
	}
	return nil
}

func (p *Pairer) emit(ev remote.PairingEvent) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	p.sink(ev)
}
