// Package bridge exposes running device sessions to external callers: a
// session registry backed by the device store, plus a REST control surface.
package bridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"zapp/internal/config"
	"zapp/internal/logger"
	"zapp/internal/remote"
	"zapp/internal/session"
	"zapp/internal/store"
)

// Manager owns one session per device, created lazily from the store and
// written back through the session's update hook
type Manager struct {
	mu       sync.Mutex
	store    *store.Store
	actorCfg session.ActorConfig
	retries  int
	hbEvery  time.Duration
	sessions map[string]*session.Session
	logger   zerolog.Logger

	// extraOpts is appended after the defaults; tests use it to swap in
	// fake actors
	extraOpts []session.Option
}

// NewManager creates a manager over the given store
func NewManager(st *store.Store, cfg *config.Config) *Manager {
	return &Manager{
		store: st,
		actorCfg: session.ActorConfig{
			ADBPath: cfg.ADB.Path,
			KeyDir:  cfg.WebOS.KeyDir,
		},
		retries:  cfg.Retry.MaxRetries,
		hbEvery:  cfg.Retry.HeartbeatInterval,
		sessions: make(map[string]*session.Session),
		logger:   logger.For("bridge"),
	}
}

func (m *Manager) options() []session.Option {
	opts := []session.Option{
		session.WithActorConfig(m.actorCfg),
		session.WithMaxRetries(m.retries),
		session.WithHeartbeatInterval(m.hbEvery),
		session.WithUpdateFunc(func(dev remote.Device) {
			if dev.ID == "" {
				return
			}
			if err := m.store.Save(dev); err != nil {
				// Persistence is best-effort; the session keeps running
				m.logger.Error().Err(err).Str("device_id", dev.ID).Msg("Failed to persist device")
			}
		}),
	}
	return append(opts, m.extraOpts...)
}

// Create registers a new device and starts its pairing handshake
func (m *Manager) Create(name string, platform remote.Platform, ip, mac string) (remote.Device, error) {
	if err := remote.ValidateName(name); err != nil {
		return remote.Device{}, err
	}
	if err := remote.ValidateIP(ip); err != nil {
		return remote.Device{}, err
	}
	if mac != "" {
		if err := remote.ValidateMAC(mac); err != nil {
			return remote.Device{}, err
		}
	}

	dev := remote.Device{
		ID:       remote.NewDeviceID(),
		Name:     name,
		Platform: platform,
		IP:       ip,
		MAC:      mac,
	}

	s, err := session.Load(dev, m.options()...)
	if err != nil {
		return remote.Device{}, err
	}
	if err := m.store.Save(dev); err != nil {
		s.Stop()
		return remote.Device{}, err
	}

	s.Start()
	s.StartPairing()

	m.mu.Lock()
	m.sessions[dev.ID] = s
	m.mu.Unlock()
	return dev, nil
}

// Session returns the live session for a device, loading it from the store
// on first use
func (m *Manager) Session(id string) (*session.Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	dev, err := m.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("unknown device %s", id)
	}

	s, err := session.Load(*dev, m.options()...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		// Lost the race; keep the first one
		go s.Stop()
		return existing, nil
	}
	s.Start()
	m.sessions[id] = s
	return s, nil
}

// DeviceStatus is the external view of one device; credentials never leave
// the process
type DeviceStatus struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Platform  string         `json:"platform"`
	IP        string         `json:"ip"`
	MAC       string         `json:"mac,omitempty"`
	Paired    bool           `json:"paired"`
	Status    session.Status `json:"status"`
	LastError string         `json:"last_error,omitempty"`
}

// List returns all known devices with their live status. Devices without a
// running session report as disconnected.
func (m *Manager) List() ([]DeviceStatus, error) {
	devices, err := m.store.List()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]DeviceStatus, 0, len(devices))
	for _, dev := range devices {
		ds := DeviceStatus{
			ID:       dev.ID,
			Name:     dev.Name,
			Platform: string(dev.Platform),
			IP:       dev.IP,
			MAC:      dev.MAC,
			Paired:   dev.Paired(),
			Status:   session.StatusDisconnected,
		}
		if s, ok := m.sessions[dev.ID]; ok {
			ds.Status = s.Status()
			ds.LastError = s.LastError()
			sd := s.Device()
			ds.Paired = sd.Paired()
		}
		out = append(out, ds)
	}
	return out, nil
}

// Status returns the external view of one device
func (m *Manager) Status(id string) (DeviceStatus, error) {
	dev, err := m.store.Get(id)
	if err != nil {
		return DeviceStatus{}, fmt.Errorf("unknown device %s", id)
	}

	ds := DeviceStatus{
		ID:       dev.ID,
		Name:     dev.Name,
		Platform: string(dev.Platform),
		IP:       dev.IP,
		MAC:      dev.MAC,
		Paired:   dev.Paired(),
		Status:   session.StatusDisconnected,
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		ds.Status = s.Status()
		ds.LastError = s.LastError()
		sd := s.Device()
		ds.Paired = sd.Paired()
	}
	return ds, nil
}

// Remove stops the session, deletes the device record and discards any
// host-side credential material left behind
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	var dev remote.Device
	if ok {
		dev = s.Device()
		s.Stop()
	} else if stored, err := m.store.Get(id); err == nil {
		dev = *stored
	}

	if err := m.store.Delete(id); err != nil {
		return err
	}

	if dev.Platform != "" {
		if actors, err := session.ActorsFor(dev.Platform, m.actorCfg); err == nil && actors.Forget != nil {
			actors.Forget(dev)
		}
	}
	return nil
}

// Close stops every running session
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*session.Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}
