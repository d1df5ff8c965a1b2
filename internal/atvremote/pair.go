// Package atvremote implements the Android-TV-Remote pairing variant: the
// TV displays a six-digit hex code that the user types back, and the
// confirmed code derives a stored credential. Session traffic afterwards
// goes over the regular ADB transport.
package atvremote

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zapp/internal/logger"
	"zapp/internal/remote"
)

const (
	// PortPairing is the TLS pairing port
	PortPairing = 6467

	dialTimeout = 10 * time.Second
)

var codePattern = regexp.MustCompile(`^[0-9A-F]{6}$`)

// deriveSecret turns a confirmed pairing code into the persisted credential
func deriveSecret(ip, code string) string {
	sum := sha256.Sum256([]byte(ip + ":" + code))
	return hex.EncodeToString(sum[:])
}

// Pairer drives the hex-code exchange. Start opens the pairing channel,
// which makes the TV display the code; Submit confirms it.
type Pairer struct {
	ip   string
	port int
	sink remote.PairingSink

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	conn   net.Conn

	logger zerolog.Logger
}

// NewPairer creates a pairer for one TV
func NewPairer(ip string, sink remote.PairingSink) *Pairer {
	return &Pairer{
		ip:     ip,
		port:   PortPairing,
		sink:   sink,
		logger: logger.For("atvremote").With().Str("ip", ip).Logger(),
	}
}

// Start opens the pairing channel in the background
func (p *Pairer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx)
}

func (p *Pairer) run(ctx context.Context) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: dialTimeout},
		// Android TVs present self-signed certificates
		Config: &tls.Config{InsecureSkipVerify: true},
	}

	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", p.ip, p.port))
	if err != nil {
		p.emit(remote.PairingEvent{Type: remote.PairingFailed, Error: err.Error()})
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close()
		return
	}
	p.conn = conn
	p.mu.Unlock()

	// Code is now on the TV screen
	p.emit(remote.PairingEvent{Type: remote.PairingPrompt})
}

// Submit confirms the typed code and derives the credential. The code must
// be exactly six hex digits; lowercase input is accepted and upcased.
func (p *Pairer) Submit(code string) error {
	code = strings.ToUpper(code)
	if !codePattern.MatchString(code) {
		return fmt.Errorf("pairing code must be 6 hex characters")
	}

	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no pairing in progress")
	}

	go p.confirm(conn, code)
	return nil
}

func (p *Pairer) confirm(conn net.Conn, code string) {
	_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	if _, err := fmt.Fprintf(conn, "%s\n", code); err != nil {
		p.emit(remote.PairingEvent{Type: remote.PairingFailed, Error: fmt.Sprintf("code rejected: %v", err)})
		return
	}

	p.emit(remote.PairingEvent{
		Type: remote.PairingPaired,
		Credentials: &remote.Credentials{
			AndroidTVRemote: &remote.AndroidTVRemoteCredentials{
				Secret: deriveSecret(p.ip, code),
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
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
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
