package remote

import "context"

// Transport is the long-lived session actor for one vendor. One transport
// serves one device; it is owned exclusively by that device's session machine.
//
// Connect blocks until the wire connection is live or fails; the session
// machine runs it asynchronously and owns the retry policy, so transports
// must not retry internally. Persistent transports report later drops through
// the sink given at construction time. Close is idempotent and stops all
// event delivery.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
	SendKey(ctx context.Context, key Key) error
	SendText(ctx context.Context, text string) error
	Ping(ctx context.Context) error
}

// Pairer is a vendor pairing sub-machine, scoped to one pairing attempt.
// Start kicks off the handshake and returns immediately; progress arrives
// through the sink (PROMPT_RECEIVED, PAIRED, PAIRING_ERROR). Submit feeds
// user input (Philips PIN, Android-TV-Remote code) to flows that need it.
// Close tears the attempt down mid-flight without error; no events are
// delivered after Close returns.
type Pairer interface {
	Start(ctx context.Context)
	Submit(input string) error
	Close() error
}
