package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapp/internal/remote"
)

// fakePairer records calls and lets tests drive pairing events by hand
type fakePairer struct {
	mu        sync.Mutex
	sink      remote.PairingSink
	started   bool
	closed    bool
	submitted []string
	onSubmit  func(string)
}

func (p *fakePairer) Start(context.Context) {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
}

func (p *fakePairer) Submit(input string) error {
	p.mu.Lock()
	p.submitted = append(p.submitted, input)
	onSubmit := p.onSubmit
	p.mu.Unlock()
	if onSubmit != nil {
		onSubmit(input)
	}
	return nil
}

func (p *fakePairer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePairer) emit(ev remote.PairingEvent) {
	p.sink(ev)
}

// fakeTransport connects per its configured error and lets tests inject
// transport events through the sink
type fakeTransport struct {
	mu         sync.Mutex
	sink       remote.TransportSink
	connectErr error
	pingErr    error
	pings      int
	keys       []remote.Key
	texts      []string
	closed     bool
}

func (t *fakeTransport) Connect(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectErr
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) SendKey(_ context.Context, key remote.Key) error {
	t.mu.Lock()
	t.keys = append(t.keys, key)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) SendText(_ context.Context, text string) error {
	t.mu.Lock()
	t.texts = append(t.texts, text)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) Ping(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pings++
	return t.pingErr
}

func (t *fakeTransport) emitLost(msg string) {
	t.sink(remote.TransportEvent{Type: remote.TransportConnectionLost, Error: msg})
}

func (t *fakeTransport) emitConnected() {
	t.sink(remote.TransportEvent{Type: remote.TransportConnected})
}

// fakeActors wires the fakes into a session and keeps handles to the most
// recently built pairer and transport
type fakeActors struct {
	mu        sync.Mutex
	caps      remote.Capabilities
	pairer    *fakePairer
	transport *fakeTransport
	forgotten []remote.Device
}

func (f *fakeActors) actors() Actors {
	return Actors{
		NewPairer: func(_ remote.Device, sink remote.PairingSink) remote.Pairer {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.pairer = &fakePairer{sink: sink}
			return f.pairer
		},
		NewTransport: func(_ remote.Device, sink remote.TransportSink) remote.Transport {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.transport == nil {
				f.transport = &fakeTransport{}
			}
			f.transport.sink = sink
			return f.transport
		},
		Capabilities: f.caps,
		Forget: func(dev remote.Device) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.forgotten = append(f.forgotten, dev)
		},
	}
}

func (f *fakeActors) forgottenDevices() []remote.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.Device(nil), f.forgotten...)
}

func (f *fakeActors) currentPairer() *fakePairer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pairer
}

func (f *fakeActors) currentTransport() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transport
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.State() == want
	}, 2*time.Second, 5*time.Millisecond, "waiting for state %s, still %s", want, s.State())
}

func pairedDevice(platform remote.Platform, creds *remote.Credentials) remote.Device {
	return remote.Device{
		ID:          remote.NewDeviceID(),
		Name:        "Living Room",
		Platform:    platform,
		IP:          "10.0.0.8",
		Credentials: creds,
	}
}

func tizenCreds() *remote.Credentials {
	return &remote.Credentials{Tizen: &remote.TizenCredentials{Token: "12345678"}}
}

func TestSetDeviceInfoValidation(t *testing.T) {
	f := &fakeActors{}
	s, err := New(remote.PlatformTizen, WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	t.Run("empty name", func(t *testing.T) {
		err := s.SetDeviceInfo("", "10.0.0.8")
		require.EqualError(t, err, "Device name is required")
		assert.Equal(t, StateSetup, s.State())
	})

	t.Run("bad ip", func(t *testing.T) {
		err := s.SetDeviceInfo("Bedroom TV", "10.0.0")
		require.EqualError(t, err, "Invalid IP address")
		assert.Equal(t, StateSetup, s.State())
	})

	t.Run("name checked before ip", func(t *testing.T) {
		err := s.SetDeviceInfo("", "not-an-ip")
		require.EqualError(t, err, "Device name is required")
	})

	t.Run("valid info starts pairing", func(t *testing.T) {
		require.NoError(t, s.SetDeviceInfo("Bedroom TV", "10.0.0.8"))
		waitForState(t, s, StatePairingConnecting)

		dev := s.Device()
		assert.NotEmpty(t, dev.ID)
		assert.Equal(t, "Bedroom TV", dev.Name)
		assert.Equal(t, "10.0.0.8", dev.IP)
	})
}

func TestPairingPromptAndAccept(t *testing.T) {
	f := &fakeActors{}
	s, err := New(remote.PlatformTizen, WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	require.NoError(t, s.SetDeviceInfo("Bedroom TV", "10.0.0.8"))
	waitForState(t, s, StatePairingConnecting)

	p := f.currentPairer()
	require.NotNil(t, p)

	p.emit(remote.PairingEvent{Type: remote.PairingPrompt})
	waitForState(t, s, StatePairingWaitingForUser)

	p.emit(remote.PairingEvent{Type: remote.PairingPaired, Credentials: tizenCreds()})
	waitForState(t, s, StateDisconnected)

	dev := s.Device()
	require.NotNil(t, dev.Credentials)
	assert.True(t, dev.Credentials.Tizen.Valid())
}

func TestPairingFailureIsRetryable(t *testing.T) {
	f := &fakeActors{}
	s, err := New(remote.PlatformTizen, WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	require.NoError(t, s.SetDeviceInfo("Bedroom TV", "10.0.0.8"))
	waitForState(t, s, StatePairingConnecting)

	f.currentPairer().emit(remote.PairingEvent{Type: remote.PairingFailed, Error: "TV refused connection"})
	waitForState(t, s, StatePairingError)
	assert.Equal(t, "TV refused connection", s.LastError())
	assert.Equal(t, StatusError, s.Status())

	// Retry spins up a fresh pairer
	first := f.currentPairer()
	s.StartPairing()
	waitForState(t, s, StatePairingConnecting)
	require.Eventually(t, func() bool {
		return f.currentPairer() != first
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, s.LastError())
}

func TestPINGate(t *testing.T) {
	f := &fakeActors{caps: remote.Capabilities{PINEntry: true}}
	s, err := New(remote.PlatformPhilips, WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	require.NoError(t, s.SetDeviceInfo("Philips TV", "10.0.0.9"))
	waitForState(t, s, StatePairingConnecting)

	p := f.currentPairer()
	p.emit(remote.PairingEvent{Type: remote.PairingPrompt})
	waitForState(t, s, StatePairingWaitingForPin)

	for _, pin := range []string{"", "123", "12345", "12a4", "12 4"} {
		require.Error(t, s.SubmitPIN(pin), "pin %q must be rejected", pin)
	}
	assert.Equal(t, StatePairingWaitingForPin, s.State())

	require.NoError(t, s.SubmitPIN("0417"))
	waitForState(t, s, StatePairingConfirming)
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.submitted) == 1 && p.submitted[0] == "0417"
	}, time.Second, 5*time.Millisecond)
}

func TestRetryEscalation(t *testing.T) {
	f := &fakeActors{}
	s, err := Load(pairedDevice(remote.PlatformTizen, tizenCreds()), WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	require.Equal(t, StateDisconnected, s.State())
	s.Connect()
	waitForState(t, s, StateConnected)

	tr := f.currentTransport()
	for i := 0; i < 4; i++ {
		tr.emitLost("read: connection reset by peer")
		waitForState(t, s, StateRetrying)
		require.Equal(t, i+1, s.RetryCount())
	}

	// Fifth consecutive loss crosses the ceiling
	tr.emitLost("read: connection reset by peer")
	waitForState(t, s, StateError)
	assert.Equal(t, "Max retries exceeded", s.LastError())
	assert.Equal(t, StatusError, s.Status())
}

func TestConnectedResetsRetryCount(t *testing.T) {
	f := &fakeActors{}
	s, err := Load(pairedDevice(remote.PlatformTizen, tizenCreds()), WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	s.Connect()
	waitForState(t, s, StateConnected)

	tr := f.currentTransport()
	for i := 0; i < 4; i++ {
		tr.emitLost("timeout")
		waitForState(t, s, StateRetrying)
	}
	require.Equal(t, 4, s.RetryCount())

	tr.emitConnected()
	waitForState(t, s, StateConnected)
	require.Equal(t, 0, s.RetryCount())

	// The ceiling is five from here again, not one
	tr.emitLost("timeout")
	waitForState(t, s, StateRetrying)
	assert.Equal(t, 1, s.RetryCount())
}

func TestConnectFailureEntersRetry(t *testing.T) {
	f := &fakeActors{transport: &fakeTransport{connectErr: fmt.Errorf("connection refused")}}
	s, err := Load(pairedDevice(remote.PlatformTizen, tizenCreds()), WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	s.Connect()
	waitForState(t, s, StateRetrying)
	assert.Equal(t, 1, s.RetryCount())
	assert.Equal(t, "connection refused", s.LastError())
	assert.Equal(t, StatusConnecting, s.Status())
}

func TestCredentialsRoundTrip(t *testing.T) {
	f := &fakeActors{}
	s, err := New(remote.PlatformTizen, WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()

	require.NoError(t, s.SetDeviceInfo("Bedroom TV", "10.0.0.8"))
	waitForState(t, s, StatePairingConnecting)
	f.currentPairer().emit(remote.PairingEvent{Type: remote.PairingPaired, Credentials: tizenCreds()})
	waitForState(t, s, StateDisconnected)

	dev := s.Device()
	s.Stop()

	// Feeding the produced credentials back must land on disconnected,
	// never back in pairing
	f2 := &fakeActors{}
	s2, err := Load(dev, WithActors(f2.actors()))
	require.NoError(t, err)
	assert.Equal(t, StateDisconnected, s2.State())
	s2.Stop()
}

func TestLoadPartialCredentialsRoutesToPairing(t *testing.T) {
	f := &fakeActors{}
	dev := pairedDevice(remote.PlatformPhilips, &remote.Credentials{
		Philips: &remote.PhilipsCredentials{DeviceID: "abc"}, // authKey missing
	})
	s, err := Load(dev, WithActors(f.actors()))
	require.NoError(t, err)
	defer s.Stop()

	assert.Equal(t, StatePairingIdle, s.State())
	assert.Nil(t, s.Device().Credentials)
}

func TestStopWithoutStart(t *testing.T) {
	f := &fakeActors{}
	s, err := Load(pairedDevice(remote.PlatformTizen, tizenCreds()), WithActors(f.actors()))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop hung on a session that was never started")
	}

	s.Stop() // second Stop is a no-op

	// Start after Stop must not relaunch the loop
	s.Start()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestAndroidTVRemoteCodeEntry(t *testing.T) {
	f := &fakeActors{caps: remote.Capabilities{CodeEntry: true}}
	s, err := New(remote.PlatformAndroidTVRemote, WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	require.NoError(t, s.SetDeviceInfo("Shield", "10.0.0.5"))
	waitForState(t, s, StatePairingConnecting)

	p := f.currentPairer()
	p.onSubmit = func(string) {
		p.emit(remote.PairingEvent{
			Type: remote.PairingPaired,
			Credentials: &remote.Credentials{
				AndroidTVRemote: &remote.AndroidTVRemoteCredentials{Secret: "deadbeef"},
			},
		})
	}

	p.emit(remote.PairingEvent{Type: remote.PairingPrompt})
	waitForState(t, s, StatePairingWaitingForPin)

	require.Error(t, s.SetPairingCode("G1"), "non-hex input must be rejected")

	// Code accumulates across chunks; the sixth hex character auto-submits
	require.NoError(t, s.SetPairingCode("a1"))
	require.NoError(t, s.SetPairingCode("A1"))
	assert.Equal(t, StatePairingWaitingForPin, s.State())
	require.NoError(t, s.SetPairingCode("A1"))

	waitForState(t, s, StateDisconnected)
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.submitted) == 1 && p.submitted[0] == "A1A1A1"
	}, time.Second, 5*time.Millisecond)

	dev := s.Device()
	assert.NotEmpty(t, dev.ID)
	require.NotNil(t, dev.Credentials)
	assert.True(t, dev.Credentials.AndroidTVRemote.Valid())
}

func TestHeartbeat(t *testing.T) {
	f := &fakeActors{}
	s, err := Load(pairedDevice(remote.PlatformTizen, tizenCreds()),
		WithActors(f.actors()),
		WithHeartbeatInterval(10*time.Millisecond))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	s.Connect()
	waitForState(t, s, StateConnected)

	tr := f.currentTransport()
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return tr.pings >= 2
	}, 2*time.Second, 5*time.Millisecond, "liveness probes should repeat")

	// A failing probe follows the shared retry path
	tr.mu.Lock()
	tr.pingErr = fmt.Errorf("broken pipe")
	tr.mu.Unlock()
	waitForState(t, s, StateRetrying)
	require.Equal(t, 1, s.RetryCount())
}

func TestDisconnect(t *testing.T) {
	f := &fakeActors{}
	s, err := Load(pairedDevice(remote.PlatformTizen, tizenCreds()), WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	s.Connect()
	waitForState(t, s, StateConnected)

	s.Disconnect()
	waitForState(t, s, StateDisconnected)

	tr := f.currentTransport()
	tr.mu.Lock()
	closed := tr.closed
	tr.mu.Unlock()
	assert.True(t, closed)
	assert.Equal(t, 0, s.RetryCount())

	// Events from the torn-down transport must be discarded
	tr.emitLost("stale")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestForget(t *testing.T) {
	var persisted []remote.Device
	var mu sync.Mutex

	f := &fakeActors{}
	s, err := Load(pairedDevice(remote.PlatformTizen, tizenCreds()),
		WithActors(f.actors()),
		WithUpdateFunc(func(dev remote.Device) {
			mu.Lock()
			persisted = append(persisted, dev)
			mu.Unlock()
		}))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	s.Forget()
	waitForState(t, s, StatePairingIdle)
	assert.Nil(t, s.Device().Credentials)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, persisted)
	assert.Nil(t, persisted[len(persisted)-1].Credentials)

	// Host-side credential material is discarded for the device as it was
	// before the wipe
	forgotten := f.forgottenDevices()
	require.Len(t, forgotten, 1)
	require.NotNil(t, forgotten[0].Credentials)
	assert.Equal(t, "10.0.0.8", forgotten[0].IP)
}

func TestResetToSetup(t *testing.T) {
	f := &fakeActors{}
	s, err := New(remote.PlatformTizen, WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	require.NoError(t, s.SetDeviceInfo("Bedroom TV", "10.0.0.8"))
	waitForState(t, s, StatePairingConnecting)

	s.ResetToSetup()
	waitForState(t, s, StateSetup)

	dev := s.Device()
	assert.Empty(t, dev.ID)
	assert.Empty(t, dev.Name)
	assert.Empty(t, dev.IP)

	p := f.currentPairer()
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	assert.True(t, closed)
}

func TestCancelDuringSetup(t *testing.T) {
	f := &fakeActors{}
	s, err := New(remote.PlatformTizen, WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()

	s.Cancel()
	waitForState(t, s, StateCancelled)
	s.Stop()
}

func TestSendKeyOnlyWhileConnected(t *testing.T) {
	f := &fakeActors{}
	s, err := Load(pairedDevice(remote.PlatformTizen, tizenCreds()), WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	// Ignored while disconnected
	s.SendKey(remote.KeyVolumeUp)
	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, f.currentTransport())

	s.Connect()
	waitForState(t, s, StateConnected)

	s.SendKey(remote.KeyVolumeUp)
	s.SendText("hello\n")

	tr := f.currentTransport()
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return len(tr.keys) == 1 && len(tr.texts) == 1
	}, time.Second, 5*time.Millisecond)

	tr.mu.Lock()
	assert.Equal(t, remote.KeyVolumeUp, tr.keys[0])
	assert.Equal(t, "hello\n", tr.texts[0])
	tr.mu.Unlock()
}

func TestStatusSubscription(t *testing.T) {
	f := &fakeActors{}
	s, err := Load(pairedDevice(remote.PlatformTizen, tizenCreds()), WithActors(f.actors()))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	var mu sync.Mutex
	var seen []Status
	unsub := s.Subscribe(func(st Status) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})
	defer unsub()

	s.Connect()
	waitForState(t, s, StateConnected)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, StatusConnecting, seen[0])
	assert.Equal(t, StatusConnected, seen[1])
}

func TestUnimplementedPlatform(t *testing.T) {
	_, err := New(remote.PlatformVidaa)
	require.Error(t, err)
}
