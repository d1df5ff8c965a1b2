package tizen

import (
	"context"
	"fmt"
	"sync"

	"zapp/internal/remote"
)

// Pairer runs the token approval flow. Opening the control channel without
// a token makes the TV show its accept dialog; the handshake response after
// approval carries the session token that becomes the credential.
type Pairer struct {
	device remote.Device
	port   int
	sink   remote.PairingSink

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	client *Client
}

// NewPairer creates a pairer for one device
func NewPairer(device remote.Device, sink remote.PairingSink) *Pairer {
	return &Pairer{device: device, port: PortControl, sink: sink}
}

// Start begins the approval flow in the background
func (p *Pairer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx)
}

func (p *Pairer) run(ctx context.Context) {
	client := NewClient(p.device.IP, nil)
	client.port = p.port
	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	defer client.Close()

	// The accept dialog is on screen as soon as the channel opens
	p.emit(remote.PairingEvent{Type: remote.PairingPrompt})

	token, err := client.Dial(ctx, "")
	if err != nil {
		p.emit(remote.PairingEvent{Type: remote.PairingFailed, Error: err.Error()})
		return
	}
	if token == "" {
		p.emit(remote.PairingEvent{Type: remote.PairingFailed, Error: "TV did not issue a token"})
		return
	}

	p.emit(remote.PairingEvent{
		Type: remote.PairingPaired,
		Credentials: &remote.Credentials{
			Tizen: &remote.TizenCredentials{
				Token: token,
				MAC:   p.device.MAC,
			},
		},
	})
}

// Submit rejects input; Tizen pairing is confirmed on the TV itself
func (p *Pairer) Submit(string) error {
	return fmt.Errorf("tizen pairing takes no input")
}

// Close aborts the flow. Safe to call more than once.
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
