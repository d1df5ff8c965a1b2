package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zapp/internal/logger"
	"zapp/internal/remote"
	"zapp/internal/retry"
)

// ErrMaxRetries is the terminal error message after the retry ceiling
const ErrMaxRetries = "Max retries exceeded"

var (
	pinPattern  = regexp.MustCompile(`^[0-9]{4}$`)
	codePattern = regexp.MustCompile(`^[0-9A-F]+$`)
)

const pairingCodeLength = 6

type eventType int

const (
	evStartPairing eventType = iota
	evSetDeviceInfo
	evResetToSetup
	evCancel
	evPairing
	evSubmitInput
	evConnect
	evDisconnect
	evForget
	evSendKey
	evSendText
	evTransport
	evHeartbeatTick
	evRetryTick
	evStop
)

type event struct {
	typ       eventType
	epoch     uint64
	name      string
	ip        string
	key       remote.Key
	text      string
	input     string
	pairing   remote.PairingEvent
	transport remote.TransportEvent
}

// Session is the message-driven actor owning one device's lifecycle. All
// state transitions happen on a single event loop; commands and adapter
// events are queued and processed in order.
type Session struct {
	mu         sync.RWMutex
	device     remote.Device
	state      State
	hbState    HeartbeatState
	retryCount int
	lastErr    string
	fieldErr   string
	promptSeen bool
	codeBuf    string

	actors    Actors
	actorCfg  ActorConfig
	pairer    remote.Pairer
	transport remote.Transport
	epoch     uint64

	maxRetries int
	hbInterval time.Duration
	retryTimer *time.Timer
	hbTimer    *time.Timer

	events   chan event
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	stopped  bool
	stopOnce sync.Once
	done     chan struct{}

	subs    map[int]func(Status)
	nextSub int

	onUpdate func(remote.Device)
	logger   zerolog.Logger
}

// Option tunes a session at construction time
type Option func(*Session)

// WithActors overrides the platform actor set (used by tests)
func WithActors(a Actors) Option {
	return func(s *Session) { s.actors = a }
}

// WithActorConfig sets the host-side adapter settings used when building the
// default platform actors
func WithActorConfig(cfg ActorConfig) Option {
	return func(s *Session) { s.actorCfg = cfg }
}

// WithMaxRetries overrides the retry ceiling
func WithMaxRetries(n int) Option {
	return func(s *Session) { s.maxRetries = n }
}

// WithHeartbeatInterval overrides the liveness probe interval
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Session) { s.hbInterval = d }
}

// WithUpdateFunc registers a callback invoked whenever the persisted device
// record changes (info set, paired, forgotten). Used to write through to the
// device store.
func WithUpdateFunc(fn func(remote.Device)) Option {
	return func(s *Session) { s.onUpdate = fn }
}

// New creates a session from setup input: platform only, no device yet
func New(platform remote.Platform, opts ...Option) (*Session, error) {
	s, err := newSession(remote.Device{Platform: platform}, opts...)
	if err != nil {
		return nil, err
	}
	s.state = StateSetup
	return s, nil
}

// Load creates a session from a persisted device. Valid credentials route to
// disconnected; anything partial or missing routes back to pairing.
func Load(dev remote.Device, opts ...Option) (*Session, error) {
	dev.Credentials = dev.Credentials.Normalize()
	s, err := newSession(dev, opts...)
	if err != nil {
		return nil, err
	}
	if dev.Credentials.ValidFor(dev.Platform) {
		s.state = StateDisconnected
	} else {
		s.device.Credentials = nil
		s.state = StatePairingIdle
	}
	return s, nil
}

func newSession(dev remote.Device, opts ...Option) (*Session, error) {
	if !dev.Platform.Implemented() {
		return nil, fmt.Errorf("platform not supported: %s", dev.Platform)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		device:     dev,
		hbState:    HeartbeatIdle,
		maxRetries: retry.MaxRetries,
		hbInterval: retry.HeartbeatInterval,
		events:     make(chan event, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		subs:       make(map[int]func(Status)),
		logger:     logger.For("session").With().Str("platform", string(dev.Platform)).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.actors.NewTransport == nil {
		actors, err := ActorsFor(dev.Platform, s.actorCfg)
		if err != nil {
			cancel()
			return nil, err
		}
		s.actors = actors
	}
	return s, nil
}

// Start launches the event loop. A no-op once the session is stopped.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	go s.loop()
}

// Stop tears the session down: pairer and transport are closed, timers
// cancelled, subscribers dropped. Safe to call more than once, and safe
// whether or not Start ever ran.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		started := s.started
		s.mu.Unlock()
		s.cancel()
		if !started {
			// No loop goroutine to drain; tear down inline.
			s.teardownActors()
			close(s.done)
			return
		}
		select {
		case s.events <- event{typ: evStop}:
		case <-s.done:
		}
		<-s.done
	})
}

// Capabilities returns the platform capability descriptor
func (s *Session) Capabilities() remote.Capabilities {
	return s.actors.Capabilities
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Heartbeat returns the current heartbeat sub-state
func (s *Session) Heartbeat() HeartbeatState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hbState
}

// Device returns a copy of the device record
func (s *Session) Device() remote.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

// LastError returns the most recent error message, if any
func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// FieldError returns the most recent device-info validation error
func (s *Session) FieldError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fieldErr
}

// RetryCount returns the current retry counter
func (s *Session) RetryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retryCount
}

// Status returns the coarse display status
func (s *Session) Status() Status {
	return s.State().Status()
}

// Subscribe registers a status callback, invoked on every status change.
// The returned function unsubscribes.
func (s *Session) Subscribe(fn func(Status)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetDeviceInfo validates and applies the name and IP entered during setup.
// Name emptiness is checked before IP shape; the two errors are mutually
// exclusive. Validation failures are returned synchronously and leave the
// machine in setup.
func (s *Session) SetDeviceInfo(name, ip string) error {
	if s.State() != StateSetup {
		return fmt.Errorf("device info can only be set during setup")
	}
	if err := remote.ValidateName(name); err != nil {
		s.setFieldError(err.Error())
		return err
	}
	if err := remote.ValidateIP(ip); err != nil {
		s.setFieldError(err.Error())
		return err
	}
	s.setFieldError("")
	s.post(event{typ: evSetDeviceInfo, name: name, ip: ip})
	return nil
}

// StartPairing restarts the pairing handshake from idle or a pairing error
func (s *Session) StartPairing() {
	s.post(event{typ: evStartPairing})
}

// ResetToSetup abandons an in-progress pairing and returns to setup
func (s *Session) ResetToSetup() {
	s.post(event{typ: evResetToSetup})
}

// Cancel terminates a session still in setup
func (s *Session) Cancel() {
	s.post(event{typ: evCancel})
}

// Connect opens the vendor session from disconnected or error
func (s *Session) Connect() {
	s.post(event{typ: evConnect})
}

// Disconnect tears down the live transport and returns to disconnected
func (s *Session) Disconnect() {
	s.post(event{typ: evDisconnect})
}

// Forget discards credentials and routes back to pairing
func (s *Session) Forget() {
	s.post(event{typ: evForget})
}

// SendKey forwards a key press to the transport; only meaningful while
// connected. The session does not check key support - callers consult
// Capabilities first.
func (s *Session) SendKey(key remote.Key) {
	s.post(event{typ: evSendKey, key: key})
}

// SendText forwards a text entry to the transport
func (s *Session) SendText(text string) {
	s.post(event{typ: evSendText, text: text})
}

// SubmitPIN submits the 4-digit PIN shown on the TV (Philips). Anything that
// is not exactly four digits is rejected without a state change.
func (s *Session) SubmitPIN(pin string) error {
	if !pinPattern.MatchString(pin) {
		return fmt.Errorf("PIN must be exactly 4 digits")
	}
	s.post(event{typ: evSubmitInput, input: pin})
	return nil
}

// SetPairingCode appends hex characters of the 6-character pairing code
// (Android-TV-Remote). Input is upcased; once six characters have
// accumulated the code is submitted automatically.
func (s *Session) SetPairingCode(chunk string) error {
	up := strings.ToUpper(chunk)
	if up == "" || !codePattern.MatchString(up) {
		return fmt.Errorf("pairing code must be hexadecimal")
	}
	s.post(event{typ: evSubmitInput, input: up})
	return nil
}

// post queues an event for the loop, dropping it if the session has stopped
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// postFromActor delivers an adapter event only if the adapter generation is
// still current; events from a torn-down pairer or transport are discarded.
func (s *Session) postFromActor(ev event) {
	s.mu.RLock()
	current := s.epoch
	s.mu.RUnlock()
	if ev.epoch != current {
		return
	}
	s.post(ev)
}

func (s *Session) setFieldError(msg string) {
	s.mu.Lock()
	s.fieldErr = msg
	s.mu.Unlock()
}

// loop is the single goroutine that owns all state transitions
func (s *Session) loop() {
	defer close(s.done)
	defer s.teardownActors()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			if ev.typ == evStop {
				return
			}
			s.dispatch(ev)
		}
	}
}

func (s *Session) dispatch(ev event) {
	before := s.State().Status()

	switch ev.typ {
	case evSetDeviceInfo:
		s.handleSetDeviceInfo(ev)
	case evStartPairing:
		s.handleStartPairing()
	case evResetToSetup:
		s.handleResetToSetup()
	case evCancel:
		s.handleCancel()
	case evPairing:
		s.handlePairingEvent(ev)
	case evSubmitInput:
		s.handleSubmitInput(ev)
	case evConnect:
		s.handleConnect()
	case evDisconnect:
		s.handleDisconnect()
	case evForget:
		s.handleForget()
	case evSendKey:
		s.handleSendKey(ev)
	case evSendText:
		s.handleSendText(ev)
	case evTransport:
		s.handleTransportEvent(ev)
	case evHeartbeatTick:
		s.handleHeartbeatTick(ev)
	case evRetryTick:
		s.handleRetryTick(ev)
	}

	after := s.State().Status()
	if before != after {
		s.notify(after)
	}
}

func (s *Session) notify(status Status) {
	s.mu.RLock()
	fns := make([]func(Status), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(status)
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	old := s.state
	s.state = st
	s.mu.Unlock()
	if old != st {
		s.logger.Debug().
			Str("from", old.String()).
			Str("to", st.String()).
			Msg("State transition")
	}
}

// --- setup / pairing ---

func (s *Session) handleSetDeviceInfo(ev event) {
	if s.State() != StateSetup {
		return
	}
	s.mu.Lock()
	s.device.ID = remote.NewDeviceID()
	s.device.Name = ev.name
	s.device.IP = ev.ip
	s.mu.Unlock()
	s.persist()
	s.startPairer()
}

func (s *Session) handleStartPairing() {
	st := s.State()
	if st != StatePairingIdle && st != StatePairingError {
		return
	}
	s.startPairer()
}

// startPairer supersedes any previous pairing attempt and begins a new one
func (s *Session) startPairer() {
	s.teardownActors()

	s.mu.Lock()
	s.lastErr = ""
	s.promptSeen = false
	s.codeBuf = ""
	epoch := s.epoch
	dev := s.device
	s.mu.Unlock()

	sink := func(pe remote.PairingEvent) {
		s.postFromActor(event{typ: evPairing, epoch: epoch, pairing: pe})
	}
	p := s.actors.NewPairer(dev, sink)

	s.mu.Lock()
	s.pairer = p
	s.mu.Unlock()

	s.setState(StatePairingConnecting)
	p.Start(s.ctx)
}

func (s *Session) handlePairingEvent(ev event) {
	if !s.State().inPairing() {
		return
	}

	switch ev.pairing.Type {
	case remote.PairingPrompt:
		s.mu.Lock()
		s.promptSeen = true
		s.mu.Unlock()
		if s.actors.Capabilities.PINEntry || s.actors.Capabilities.CodeEntry {
			s.setState(StatePairingWaitingForPin)
		} else {
			s.setState(StatePairingWaitingForUser)
		}

	case remote.PairingPaired:
		creds := ev.pairing.Credentials.Normalize()
		s.mu.Lock()
		s.device.Credentials = creds
		s.mu.Unlock()
		s.teardownActors()
		s.persist()
		s.logger.Info().Str("device_id", s.Device().ID).Msg("Pairing complete")
		s.setState(StateDisconnected)

	case remote.PairingFailed:
		s.mu.Lock()
		s.lastErr = ev.pairing.Error
		s.mu.Unlock()
		s.logger.Warn().Str("error", ev.pairing.Error).Msg("Pairing failed")
		s.setState(StatePairingError)
	}
}

func (s *Session) handleSubmitInput(ev event) {
	st := s.State()
	if st != StatePairingWaitingForPin {
		return
	}

	input := ev.input
	if s.actors.Capabilities.CodeEntry {
		// Accumulate hex characters until the full code is present
		s.mu.Lock()
		s.codeBuf += input
		if len(s.codeBuf) < pairingCodeLength {
			s.mu.Unlock()
			return
		}
		input = s.codeBuf[:pairingCodeLength]
		s.codeBuf = ""
		s.mu.Unlock()
	}

	s.mu.RLock()
	p := s.pairer
	s.mu.RUnlock()
	if p == nil {
		return
	}

	s.setState(StatePairingConfirming)
	go func() {
		if err := p.Submit(input); err != nil {
			s.logger.Warn().Err(err).Msg("Pairing submit rejected")
		}
	}()
}

func (s *Session) handleResetToSetup() {
	if !s.State().inPairing() {
		return
	}
	s.teardownActors()
	s.mu.Lock()
	s.device.ID = ""
	s.device.Name = ""
	s.device.IP = ""
	s.device.Credentials = nil
	s.lastErr = ""
	s.fieldErr = ""
	s.codeBuf = ""
	s.mu.Unlock()
	s.setState(StateSetup)
}

func (s *Session) handleCancel() {
	if s.State() != StateSetup {
		return
	}
	s.setState(StateCancelled)
	s.cancel()
}

// --- session / connection ---

func (s *Session) handleConnect() {
	st := s.State()
	if st != StateDisconnected && st != StateError {
		return
	}
	s.mu.Lock()
	s.retryCount = 0
	s.lastErr = ""
	s.mu.Unlock()
	s.startTransport()
}

// startTransport supersedes any live actor and begins a connection attempt
func (s *Session) startTransport() {
	s.teardownActors()

	s.mu.Lock()
	epoch := s.epoch
	dev := s.device
	s.mu.Unlock()

	sink := func(te remote.TransportEvent) {
		s.postFromActor(event{typ: evTransport, epoch: epoch, transport: te})
	}
	t := s.actors.NewTransport(dev, sink)

	s.mu.Lock()
	s.transport = t
	s.hbState = HeartbeatWaiting
	s.mu.Unlock()

	s.setState(StateConnecting)
	go func() {
		if err := t.Connect(s.ctx); err != nil {
			s.postFromActor(event{typ: evTransport, epoch: epoch, transport: remote.TransportEvent{
				Type:  remote.TransportConnectionLost,
				Error: err.Error(),
			}})
			return
		}
		s.postFromActor(event{typ: evTransport, epoch: epoch, transport: remote.TransportEvent{
			Type: remote.TransportConnected,
		}})
	}()
}

// reconnect re-enters connecting on the existing actor generation after a
// backoff delay
func (s *Session) reconnect() {
	s.mu.Lock()
	epoch := s.epoch
	t := s.transport
	s.mu.Unlock()
	if t == nil {
		return
	}

	s.setState(StateConnecting)
	go func() {
		if err := t.Connect(s.ctx); err != nil {
			s.postFromActor(event{typ: evTransport, epoch: epoch, transport: remote.TransportEvent{
				Type:  remote.TransportConnectionLost,
				Error: err.Error(),
			}})
			return
		}
		s.postFromActor(event{typ: evTransport, epoch: epoch, transport: remote.TransportEvent{
			Type: remote.TransportConnected,
		}})
	}()
}

func (s *Session) handleTransportEvent(ev event) {
	if !s.State().inSession() {
		return
	}

	switch ev.transport.Type {
	case remote.TransportConnected:
		s.mu.Lock()
		s.retryCount = 0
		s.lastErr = ""
		s.hbState = HeartbeatWaiting
		s.mu.Unlock()
		s.setState(StateConnected)
		s.armHeartbeat()

	case remote.TransportConnectionLost, remote.TransportHeartbeatFail:
		s.onConnectionFailure(ev.transport.Error)

	case remote.TransportHeartbeatOK:
		if s.State() != StateConnected {
			return
		}
		s.mu.Lock()
		s.hbState = HeartbeatWaiting
		s.mu.Unlock()
		s.armHeartbeat()
	}
}

// onConnectionFailure applies the shared retry path: bump the counter, back
// off, re-enter connecting - or escalate once retries are exhausted.
func (s *Session) onConnectionFailure(errMsg string) {
	s.stopHeartbeatTimer()
	s.stopRetryTimer()

	s.mu.Lock()
	s.retryCount++
	count := s.retryCount
	if errMsg != "" {
		s.lastErr = errMsg
	}
	if count >= s.maxRetries {
		s.lastErr = ErrMaxRetries
		s.mu.Unlock()
		s.teardownActors()
		s.logger.Error().Msg("Retries exhausted, escalating to error")
		s.setState(StateError)
		return
	}
	s.hbState = HeartbeatWaiting
	epoch := s.epoch
	s.mu.Unlock()

	delay := retry.Delay(count - 1)
	s.logger.Warn().
		Str("error", errMsg).
		Int("retry", count).
		Dur("delay", delay).
		Msg("Connection lost, scheduling retry")

	s.setState(StateRetrying)
	s.mu.Lock()
	s.retryTimer = time.AfterFunc(delay, func() {
		s.postFromActor(event{typ: evRetryTick, epoch: epoch})
	})
	s.mu.Unlock()
}

func (s *Session) handleRetryTick(ev event) {
	if s.State() != StateRetrying {
		return
	}
	s.reconnect()
}

func (s *Session) handleDisconnect() {
	st := s.State()
	if !st.inSession() && st != StateError {
		return
	}
	s.teardownActors()
	s.mu.Lock()
	s.retryCount = 0
	s.lastErr = ""
	s.hbState = HeartbeatIdle
	s.mu.Unlock()
	s.setState(StateDisconnected)
}

func (s *Session) handleForget() {
	st := s.State()
	if st != StateDisconnected && !st.inSession() && st != StateError {
		return
	}
	s.teardownActors()
	s.mu.Lock()
	dev := s.device
	s.device.Credentials = nil
	s.retryCount = 0
	s.lastErr = ""
	s.hbState = HeartbeatIdle
	s.mu.Unlock()
	if s.actors.Forget != nil {
		s.actors.Forget(dev)
	}
	s.persist()
	s.setState(StatePairingIdle)
}

func (s *Session) handleSendKey(ev event) {
	if s.State() != StateConnected {
		return
	}
	s.mu.RLock()
	t := s.transport
	s.mu.RUnlock()
	if t == nil {
		return
	}
	go func() {
		if err := t.SendKey(s.ctx, ev.key); err != nil {
			s.logger.Warn().Str("key", string(ev.key)).Err(err).Msg("Key send failed")
		}
	}()
}

func (s *Session) handleSendText(ev event) {
	if s.State() != StateConnected {
		return
	}
	s.mu.RLock()
	t := s.transport
	s.mu.RUnlock()
	if t == nil {
		return
	}
	go func() {
		if err := t.SendText(s.ctx, ev.text); err != nil {
			s.logger.Warn().Err(err).Msg("Text send failed")
		}
	}()
}

// --- heartbeat ---

func (s *Session) armHeartbeat() {
	s.stopHeartbeatTimer()
	s.mu.Lock()
	epoch := s.epoch
	s.hbTimer = time.AfterFunc(s.hbInterval, func() {
		s.postFromActor(event{typ: evHeartbeatTick, epoch: epoch})
	})
	s.mu.Unlock()
}

// handleHeartbeatTick issues a liveness probe. Probes are serialized: a tick
// arriving while one is outstanding is dropped.
func (s *Session) handleHeartbeatTick(ev event) {
	if s.State() != StateConnected {
		return
	}
	s.mu.Lock()
	if s.hbState != HeartbeatWaiting {
		s.mu.Unlock()
		return
	}
	s.hbState = HeartbeatChecking
	epoch := s.epoch
	t := s.transport
	s.mu.Unlock()
	if t == nil {
		return
	}

	go func() {
		if err := t.Ping(s.ctx); err != nil {
			s.postFromActor(event{typ: evTransport, epoch: epoch, transport: remote.TransportEvent{
				Type:  remote.TransportHeartbeatFail,
				Error: err.Error(),
			}})
			return
		}
		s.postFromActor(event{typ: evTransport, epoch: epoch, transport: remote.TransportEvent{
			Type: remote.TransportHeartbeatOK,
		}})
	}()
}

func (s *Session) stopHeartbeatTimer() {
	s.mu.Lock()
	if s.hbTimer != nil {
		s.hbTimer.Stop()
		s.hbTimer = nil
	}
	s.mu.Unlock()
}

func (s *Session) stopRetryTimer() {
	s.mu.Lock()
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.mu.Unlock()
}

// teardownActors closes the pairer and transport, bumping the epoch so any
// in-flight events from them are discarded. Idempotent.
func (s *Session) teardownActors() {
	s.stopHeartbeatTimer()
	s.stopRetryTimer()

	s.mu.Lock()
	s.epoch++
	p := s.pairer
	t := s.transport
	s.pairer = nil
	s.transport = nil
	s.mu.Unlock()

	if p != nil {
		if err := p.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Pairer close")
		}
	}
	if t != nil {
		if err := t.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Transport close")
		}
	}
}

// persist writes the device record through to the registered store hook
func (s *Session) persist() {
	s.mu.RLock()
	fn := s.onUpdate
	dev := s.device
	s.mu.RUnlock()
	if fn != nil {
		fn(dev)
	}
}
