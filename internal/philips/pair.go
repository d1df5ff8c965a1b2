package philips

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"zapp/internal/logger"
	"zapp/internal/remote"
)

// pairingSecret is the shared key the TV verifies grant signatures against,
// fixed across the product line
const pairingSecret = "ZmVay1EQVFOaZhwQ4Kv81ypLAZNczV9sG4KkseXWn1NEk6cXmPKO/MCa9sryslvLCFMnNe4Z4CPXzToowvhHvA=="

// pinSignature signs timestamp+pin with HMAC-SHA1 and base64-encodes the hex
// digest string. Encoding the hex text rather than the raw bytes looks like a
// double encoding but is what the TV expects; do not change it.
func pinSignature(timestamp int64, pin string) string {
	secret, _ := base64.StdEncoding.DecodeString(pairingSecret)
	mac := hmac.New(sha1.New, secret)
	fmt.Fprintf(mac, "%d%s", timestamp, pin)
	digest := hex.EncodeToString(mac.Sum(nil))
	return base64.StdEncoding.EncodeToString([]byte(digest))
}

// newDeviceID generates the identifier this client registers under
func newDeviceID() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}

// deviceSpec is the device metadata sent with both pairing phases
type deviceSpec struct {
	DeviceName string `json:"device_name"`
	DeviceOS   string `json:"device_os"`
	AppID      string `json:"app_id"`
	AppName    string `json:"app_name"`
	Type       string `json:"type"`
	ID         string `json:"id"`
}

func newDeviceSpec(id string) deviceSpec {
	return deviceSpec{
		DeviceName: "zapp",
		DeviceOS:   "Android",
		AppID:      "app.zapp",
		AppName:    "Zapp Remote",
		Type:       "native",
		ID:         id,
	}
}

// Pairer runs the two-phase PIN exchange. Phase one requests pairing and
// makes the TV display a PIN; Submit signs the PIN and grants the pairing.
type Pairer struct {
	ip   string
	port int
	sink remote.PairingSink

	mu        sync.Mutex
	closed    bool
	cancel    context.CancelFunc
	ctx       context.Context
	client    *Client
	deviceID  string
	authKey   string
	timestamp int64

	logger zerolog.Logger
}

// NewPairer creates a pairer for one TV
func NewPairer(ip string, sink remote.PairingSink) *Pairer {
	return &Pairer{
		ip:     ip,
		port:   Port,
		sink:   sink,
		logger: logger.For("philips").With().Str("ip", ip).Logger(),
	}
}

// Start issues the pairing request in the background. The TV shows the PIN
// on screen once the request lands.
func (p *Pairer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.ctx = ctx
	p.cancel = cancel
	p.mu.Unlock()

	go p.requestPairing(ctx)
}

func (p *Pairer) requestPairing(ctx context.Context) {
	deviceID := newDeviceID()
	client := NewClient(p.ip, "", "")
	client.port = p.port

	var resp struct {
		AuthKey   string `json:"auth_key"`
		Timestamp int64  `json:"timestamp"`
	}
	body := map[string]interface{}{
		"scope":  []string{"read", "write", "control"},
		"device": newDeviceSpec(deviceID),
	}
	if err := client.Post(ctx, "/pair/request", body, &resp); err != nil {
		p.emit(remote.PairingEvent{Type: remote.PairingFailed, Error: err.Error()})
		return
	}
	if resp.AuthKey == "" {
		p.emit(remote.PairingEvent{Type: remote.PairingFailed, Error: "TV did not issue an auth key"})
		return
	}

	p.mu.Lock()
	p.client = client
	p.deviceID = deviceID
	p.authKey = resp.AuthKey
	p.timestamp = resp.Timestamp
	p.mu.Unlock()

	// PIN is now on the TV screen
	p.emit(remote.PairingEvent{Type: remote.PairingPrompt})
}

// Submit signs the TV-displayed PIN and confirms the pairing. The grant call
// is answered 401 first; the client retries it with digest credentials built
// from the issued device id and auth key.
func (p *Pairer) Submit(pin string) error {
	p.mu.Lock()
	ctx := p.ctx
	client := p.client
	deviceID := p.deviceID
	authKey := p.authKey
	timestamp := p.timestamp
	p.mu.Unlock()

	if client == nil || authKey == "" {
		return fmt.Errorf("no pairing in progress")
	}

	go p.grant(ctx, deviceID, authKey, timestamp, pin)
	return nil
}

func (p *Pairer) grant(ctx context.Context, deviceID, authKey string, timestamp int64, pin string) {
	client := NewClient(p.ip, deviceID, authKey)
	client.port = p.port
	body := map[string]interface{}{
		"auth": map[string]interface{}{
			"auth_AppId":     "1",
			"pin":            pin,
			"auth_timestamp": timestamp,
			"auth_signature": pinSignature(timestamp, pin),
		},
		"device": newDeviceSpec(deviceID),
	}

	if err := client.Post(ctx, "/pair/grant", body, nil); err != nil {
		p.emit(remote.PairingEvent{Type: remote.PairingFailed, Error: fmt.Sprintf("pairing rejected: %v", err)})
		return
	}

	p.emit(remote.PairingEvent{
		Type: remote.PairingPaired,
		Credentials: &remote.Credentials{
			Philips: &remote.PhilipsCredentials{
				DeviceID: deviceID,
				AuthKey:  authKey,
			},
		},
	})
}

// Close aborts the exchange. Safe to call more than once.
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
	if closed {
		return
	}
	p.sink(ev)
}
