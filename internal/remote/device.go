package remote

import (
	"fmt"
	"net"

	"github.com/google/uuid"
)

// Device is the persisted identity of a paired (or pairing) TV
type Device struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Platform    Platform     `json:"platform" yaml:"platform"`
	IP          string       `json:"ip" yaml:"ip"`
	MAC         string       `json:"mac,omitempty" yaml:"mac,omitempty"`
	Credentials *Credentials `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// NewDeviceID generates a stable opaque device id
func NewDeviceID() string {
	return uuid.New().String()
}

// ValidateName checks the user-supplied device name. Checked before the IP so
// the two errors are mutually exclusive.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("Device name is required")
	}
	return nil
}

// ValidateIP checks that the address is a well-formed IPv4 or IPv6 address
func ValidateIP(ip string) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("Invalid IP address")
	}
	return nil
}

// ValidateMAC checks an optional MAC address; empty is allowed
func ValidateMAC(mac string) error {
	if mac == "" {
		return nil
	}
	if _, err := net.ParseMAC(mac); err != nil {
		return fmt.Errorf("Invalid MAC address")
	}
	return nil
}

// Paired reports whether the device holds credentials usable for its platform
func (d *Device) Paired() bool {
	return d.Credentials.Normalize().ValidFor(d.Platform)
}
