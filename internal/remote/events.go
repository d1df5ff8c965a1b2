package remote

// TransportEventType classifies events emitted by a session transport
type TransportEventType string

const (
	TransportConnected      TransportEventType = "CONNECTED"
	TransportConnectionLost TransportEventType = "CONNECTION_LOST"
	TransportHeartbeatOK    TransportEventType = "HEARTBEAT_OK"
	TransportHeartbeatFail  TransportEventType = "HEARTBEAT_FAILED"
)

// TransportEvent is delivered from a transport to its owning session machine.
// Adapters never panic or error across this boundary; failures become events.
type TransportEvent struct {
	Type  TransportEventType
	Error string
}

// TransportSink receives transport events. Implementations must be safe to
// call from the transport's own goroutines.
type TransportSink func(TransportEvent)

// PairingEventType classifies events emitted by a pairing sub-machine
type PairingEventType string

const (
	PairingPrompt PairingEventType = "PROMPT_RECEIVED"
	PairingPaired PairingEventType = "PAIRED"
	PairingFailed PairingEventType = "PAIRING_ERROR"
)

// PairingEvent is delivered from a pairing sub-machine to the session machine.
// PAIRED carries the vendor credentials (nil for ADB, whose authorization
// persists on the TV itself).
type PairingEvent struct {
	Type        PairingEventType
	Credentials *Credentials
	Error       string
}

// PairingSink receives pairing events
type PairingSink func(PairingEvent)
