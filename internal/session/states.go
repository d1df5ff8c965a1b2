package session

// State represents the unified per-device lifecycle. The hierarchy from the
// device chart (setup -> pairing -> disconnected -> session -> error) is
// flattened; the in*() helpers recover the regions.
type State int

const (
	StateSetup State = iota
	StatePairingIdle
	StatePairingConnecting
	StatePairingWaitingForUser
	StatePairingWaitingForPin
	StatePairingConfirming
	StatePairingError
	StateDisconnected
	StateConnecting
	StateConnected
	StateRetrying
	StateError
	StateCancelled
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StatePairingIdle:
		return "pairing.idle"
	case StatePairingConnecting:
		return "pairing.connecting"
	case StatePairingWaitingForUser:
		return "pairing.waitingForUser"
	case StatePairingWaitingForPin:
		return "pairing.waitingForPin"
	case StatePairingConfirming:
		return "pairing.confirming"
	case StatePairingError:
		return "pairing.error"
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "session.connecting"
	case StateConnected:
		return "session.connected"
	case StateRetrying:
		return "session.retrying"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// inPairing reports whether the state sits anywhere under pairing
func (s State) inPairing() bool {
	return s >= StatePairingIdle && s <= StatePairingError
}

// inSession reports whether the state sits inside the session region
func (s State) inSession() bool {
	return s == StateConnecting || s == StateConnected || s == StateRetrying
}

// HeartbeatState tracks the heartbeat region running in parallel with the
// connection region while a session is active.
type HeartbeatState int

const (
	HeartbeatIdle HeartbeatState = iota
	HeartbeatWaiting
	HeartbeatChecking
)

// String returns the heartbeat sub-state name
func (h HeartbeatState) String() string {
	switch h {
	case HeartbeatWaiting:
		return "waiting"
	case HeartbeatChecking:
		return "checking"
	default:
		return "idle"
	}
}

// Status is the coarse display status derived from the machine state
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusPairing      Status = "pairing"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Status derives the display status for subscribers
func (s State) Status() Status {
	switch {
	case s == StateConnected:
		return StatusConnected
	case s == StateConnecting || s == StateRetrying:
		return StatusConnecting
	case s == StateError || s == StatePairingError:
		return StatusError
	case s.inPairing():
		return StatusPairing
	default:
		return StatusDisconnected
	}
}
