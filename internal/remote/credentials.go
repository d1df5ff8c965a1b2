package remote

import "time"

// Credentials holds the vendor-specific secret produced by a pairing flow.
// Exactly one variant is set; a credential object that fails its variant's
// validation is treated as absent, never partially trusted.
type Credentials struct {
	WebOS           *WebOSCredentials           `json:"webos,omitempty" yaml:"webos,omitempty"`
	Philips         *PhilipsCredentials         `json:"philips,omitempty" yaml:"philips,omitempty"`
	Tizen           *TizenCredentials           `json:"tizen,omitempty" yaml:"tizen,omitempty"`
	AndroidTVRemote *AndroidTVRemoteCredentials `json:"androidtv_remote,omitempty" yaml:"androidtv_remote,omitempty"`
}

// WebOSCredentials is the client key returned by the TV's register flow
type WebOSCredentials struct {
	ClientKey   string    `json:"client_key" yaml:"client_key"`
	MAC         string    `json:"mac,omitempty" yaml:"mac,omitempty"`
	LastUpdated time.Time `json:"last_updated" yaml:"last_updated"`
}

// Valid reports whether the credential is complete
func (c *WebOSCredentials) Valid() bool {
	return c != nil && c.ClientKey != ""
}

// PhilipsCredentials is the device id / auth key pair issued during PIN pairing
type PhilipsCredentials struct {
	DeviceID string `json:"device_id" yaml:"device_id"`
	AuthKey  string `json:"auth_key" yaml:"auth_key"`
}

// Valid reports whether the credential is complete
func (c *PhilipsCredentials) Valid() bool {
	return c != nil && c.DeviceID != "" && c.AuthKey != ""
}

// TizenCredentials is the session token granted on approval
type TizenCredentials struct {
	Token string `json:"token" yaml:"token"`
	MAC   string `json:"mac,omitempty" yaml:"mac,omitempty"`
}

// Valid reports whether the credential is complete
func (c *TizenCredentials) Valid() bool {
	return c != nil && c.Token != ""
}

// AndroidTVRemoteCredentials is the key derived from the hex pairing code
type AndroidTVRemoteCredentials struct {
	Secret string `json:"secret" yaml:"secret"`
}

// Valid reports whether the credential is complete
func (c *AndroidTVRemoteCredentials) Valid() bool {
	return c != nil && c.Secret != ""
}

// Normalize discards partial or malformed variants. Returns nil when nothing
// valid remains.
func (c *Credentials) Normalize() *Credentials {
	if c == nil {
		return nil
	}
	out := &Credentials{}
	if c.WebOS.Valid() {
		out.WebOS = c.WebOS
	}
	if c.Philips.Valid() {
		out.Philips = c.Philips
	}
	if c.Tizen.Valid() {
		out.Tizen = c.Tizen
	}
	if c.AndroidTVRemote.Valid() {
		out.AndroidTVRemote = c.AndroidTVRemote
	}
	if out.WebOS == nil && out.Philips == nil && out.Tizen == nil && out.AndroidTVRemote == nil {
		return nil
	}
	return out
}

// ValidFor reports whether the credentials are sufficient to open a session on
// the given platform. ADB keeps its authorization on the TV side, so it never
// needs a stored secret.
func (c *Credentials) ValidFor(platform Platform) bool {
	switch platform {
	case PlatformAndroidTV:
		return true
	case PlatformWebOS:
		return c != nil && c.WebOS.Valid()
	case PlatformPhilips:
		return c != nil && c.Philips.Valid()
	case PlatformTizen:
		return c != nil && c.Tizen.Valid()
	case PlatformAndroidTVRemote:
		return c != nil && c.AndroidTVRemote.Valid()
	default:
		return false
	}
}
