package adb

import (
	"context"
	"fmt"
	"sync"

	"zapp/internal/remote"
)

// Pairer implements the ADB approval flow. There is no secret to type: the
// TV pops its USB-debugging dialog as soon as a connection is attempted, and
// approval is detected purely by the connect call resolving. Successful
// pairing carries nil credentials - the authorization lives on the TV.
type Pairer struct {
	client *Client
	sink   remote.PairingSink

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
}

// NewPairer creates the ADB pairing sub-machine
func NewPairer(adbPath, ip string, sink remote.PairingSink) *Pairer {
	return &Pairer{
		client: NewClient(adbPath, ip),
		sink:   sink,
	}
}

// Start begins the approval attempt. The prompt event fires immediately,
// since the dialog appears on the TV as soon as adb dials in.
func (p *Pairer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.emit(remote.PairingEvent{Type: remote.PairingPrompt})

	go func() {
		if err := p.client.Connect(ctx); err != nil {
			p.emit(remote.PairingEvent{
				Type:  remote.PairingFailed,
				Error: fmt.Sprintf("ADB approval not granted: %v", err),
			})
			return
		}
		p.emit(remote.PairingEvent{Type: remote.PairingPaired, Credentials: nil})
	}()
}

// Submit is not part of the ADB flow
func (p *Pairer) Submit(string) error {
	return fmt.Errorf("androidtv pairing takes no user input")
}

// Close aborts the attempt. Idempotent; no events are delivered afterwards.
func (p *Pairer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (p *Pairer) emit(ev remote.PairingEvent) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed || p.sink == nil {
		return
	}
	p.sink(ev)
}
