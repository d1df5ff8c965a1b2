package adb

import (
	"context"
	"fmt"
	"sync"

	"zapp/internal/remote"
)

// Transport drives an Android TV over the adb binary. There is no persistent
// socket: "connected" means the last adb round-trip succeeded, and drops are
// reported when a command or probe fails.
type Transport struct {
	client *Client
	sink   remote.TransportSink

	mu     sync.Mutex
	closed bool
}

// NewTransport creates the ADB session actor for one device
func NewTransport(adbPath, ip string, sink remote.TransportSink) *Transport {
	return &Transport{
		client: NewClient(adbPath, ip),
		sink:   sink,
	}
}

// Connect establishes the adb-over-TCP connection
func (t *Transport) Connect(ctx context.Context) error {
	if t.isClosed() {
		return fmt.Errorf("transport closed")
	}
	return t.client.Connect(ctx)
}

// Close drops the adb registration. Idempotent; no events after.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	return t.client.Disconnect(context.Background())
}

// SendKey sends a key press as a keyevent
func (t *Transport) SendKey(ctx context.Context, key remote.Key) error {
	if t.isClosed() {
		return fmt.Errorf("transport closed")
	}
	code, ok := KeyCode(key)
	if !ok {
		return fmt.Errorf("key not supported on androidtv: %s", key)
	}
	if err := t.client.SendKeyEvent(ctx, code); err != nil {
		t.reportLost(err)
		return err
	}
	return nil
}

// SendText types text on the device
func (t *Transport) SendText(ctx context.Context, text string) error {
	if t.isClosed() {
		return fmt.Errorf("transport closed")
	}
	if err := t.client.SendText(ctx, text); err != nil {
		t.reportLost(err)
		return err
	}
	return nil
}

// Ping runs the echo liveness probe
func (t *Transport) Ping(ctx context.Context) error {
	if t.isClosed() {
		return fmt.Errorf("transport closed")
	}
	return t.client.Ping(ctx)
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// reportLost surfaces a command failure as a connection loss so the owning
// session can retry instead of silently dropping commands
func (t *Transport) reportLost(err error) {
	t.mu.Lock()
	closed := t.closed
	sink := t.sink
	t.mu.Unlock()
	if closed || sink == nil {
		return
	}
	sink(remote.TransportEvent{
		Type:  remote.TransportConnectionLost,
		Error: err.Error(),
	})
}
