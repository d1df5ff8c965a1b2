package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapp/internal/config"
	"zapp/internal/remote"
	"zapp/internal/session"
	"zapp/internal/store"
	"zapp/internal/webos"
)

// stubPairer parks until closed; the bridge tests never complete a pairing
type stubPairer struct{ sink remote.PairingSink }

func (p *stubPairer) Start(context.Context) {}
func (p *stubPairer) Submit(string) error   { return nil }
func (p *stubPairer) Close() error          { return nil }

// stubTransport connects instantly and records nothing
type stubTransport struct{ sink remote.TransportSink }

func (t *stubTransport) Connect(context.Context) error               { return nil }
func (t *stubTransport) Close() error                                { return nil }
func (t *stubTransport) SendKey(context.Context, remote.Key) error   { return nil }
func (t *stubTransport) SendText(context.Context, string) error      { return nil }
func (t *stubTransport) Ping(context.Context) error                  { return nil }

func stubActors(caps remote.Capabilities) session.Actors {
	return session.Actors{
		NewPairer: func(_ remote.Device, sink remote.PairingSink) remote.Pairer {
			return &stubPairer{sink: sink}
		},
		NewTransport: func(_ remote.Device, sink remote.TransportSink) remote.Transport {
			return &stubTransport{sink: sink}
		},
		Capabilities: caps,
	}
}

func testServer(t *testing.T, caps remote.Capabilities) (*httptest.Server, *Manager, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "devices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg, err := config.Default()
	require.NoError(t, err)

	manager := NewManager(st, cfg)
	manager.extraOpts = []session.Option{session.WithActors(stubActors(caps))}
	t.Cleanup(manager.Close)

	srv := httptest.NewServer(NewAPIServer(manager).Router())
	t.Cleanup(srv.Close)
	return srv, manager, st
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestCreateAndListDevices(t *testing.T) {
	srv, _, _ := testServer(t, remote.Capabilities{})

	resp := postJSON(t, srv.URL+"/api/v1/devices", map[string]string{
		"name":     "Bedroom TV",
		"platform": "tizen",
		"ip":       "10.0.0.8",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created DeviceStatus
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Bedroom TV", created.Name)
	assert.False(t, created.Paired)

	listResp, err := http.Get(srv.URL + "/api/v1/devices")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var list struct {
		Devices []DeviceStatus `json:"devices"`
	}
	decodeBody(t, listResp, &list)
	require.Len(t, list.Devices, 1)
	assert.Equal(t, created.ID, list.Devices[0].ID)

	// Credentials must never appear in the external view
	raw, err := http.Get(srv.URL + "/api/v1/devices/" + created.ID)
	require.NoError(t, err)
	var asMap map[string]interface{}
	decodeBody(t, raw, &asMap)
	assert.NotContains(t, asMap, "credentials")
}

func TestCreateDeviceValidation(t *testing.T) {
	srv, _, _ := testServer(t, remote.Capabilities{})

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"empty name", map[string]string{"name": "", "platform": "tizen", "ip": "10.0.0.8"}, "Device name is required"},
		{"bad ip", map[string]string{"name": "TV", "platform": "tizen", "ip": "10.0"}, "Invalid IP address"},
		{"unknown platform", map[string]string{"name": "TV", "platform": "betamax", "ip": "10.0.0.8"}, "unknown platform"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/v1/devices", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			decodeBody(t, resp, &body)
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestConnectLifecycle(t *testing.T) {
	srv, manager, st := testServer(t, remote.Capabilities{})

	dev := remote.Device{
		ID:          remote.NewDeviceID(),
		Name:        "Living Room",
		Platform:    remote.PlatformTizen,
		IP:          "10.0.0.8",
		Credentials: &remote.Credentials{Tizen: &remote.TizenCredentials{Token: "12345678"}},
	}
	require.NoError(t, st.Save(dev))

	resp := postJSON(t, srv.URL+"/api/v1/devices/"+dev.ID+"/connect", map[string]string{})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	require.Eventually(t, func() bool {
		ds, err := manager.Status(dev.ID)
		return err == nil && ds.Status == session.StatusConnected
	}, 2*time.Second, 10*time.Millisecond)

	resp = postJSON(t, srv.URL+"/api/v1/devices/"+dev.ID+"/disconnect", map[string]string{})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	require.Eventually(t, func() bool {
		ds, err := manager.Status(dev.ID)
		return err == nil && ds.Status == session.StatusDisconnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendKeyChecksCapabilities(t *testing.T) {
	srv, manager, st := testServer(t, remote.Capabilities{Keys: []remote.Key{remote.KeyVolumeUp}})

	dev := remote.Device{
		ID:          remote.NewDeviceID(),
		Name:        "Living Room",
		Platform:    remote.PlatformTizen,
		IP:          "10.0.0.8",
		Credentials: &remote.Credentials{Tizen: &remote.TizenCredentials{Token: "12345678"}},
	}
	require.NoError(t, st.Save(dev))

	resp := postJSON(t, srv.URL+"/api/v1/devices/"+dev.ID+"/connect", map[string]string{})
	resp.Body.Close()
	require.Eventually(t, func() bool {
		ds, err := manager.Status(dev.ID)
		return err == nil && ds.Status == session.StatusConnected
	}, 2*time.Second, 10*time.Millisecond)

	resp = postJSON(t, srv.URL+"/api/v1/devices/"+dev.ID+"/keys", map[string]string{"key": "volume_up"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/v1/devices/"+dev.ID+"/keys", map[string]string{"key": "color_red"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Text input is off in the capability set
	resp = postJSON(t, srv.URL+"/api/v1/devices/"+dev.ID+"/text", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPINValidationSurfaces(t *testing.T) {
	srv, _, st := testServer(t, remote.Capabilities{PINEntry: true})

	dev := remote.Device{
		ID:       remote.NewDeviceID(),
		Name:     "Philips TV",
		Platform: remote.PlatformPhilips,
		IP:       "10.0.0.9",
	}
	require.NoError(t, st.Save(dev))

	resp := postJSON(t, srv.URL+"/api/v1/devices/"+dev.ID+"/pin", map[string]string{"pin": "12a"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "PIN must be exactly 4 digits", body["error"])
}

func TestRemoveDevice(t *testing.T) {
	srv, _, st := testServer(t, remote.Capabilities{})

	dev := remote.Device{
		ID:       remote.NewDeviceID(),
		Name:     "Old TV",
		Platform: remote.PlatformAndroidTV,
		IP:       "10.0.0.3",
	}
	require.NoError(t, st.Save(dev))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/devices/"+dev.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	getResp, err := http.Get(srv.URL + "/api/v1/devices/" + dev.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
	getResp.Body.Close()

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestRemoveDeviceDiscardsWebOSKey(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "devices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	keyDir := t.TempDir()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.WebOS.KeyDir = keyDir

	manager := NewManager(st, cfg)
	t.Cleanup(manager.Close)

	dev := remote.Device{
		ID:       remote.NewDeviceID(),
		Name:     "Hallway TV",
		Platform: remote.PlatformWebOS,
		IP:       "10.0.0.4",
		MAC:      "AA:BB:CC:DD:EE:FF",
		Credentials: &remote.Credentials{
			WebOS: &remote.WebOSCredentials{ClientKey: "key-1", MAC: "AA:BB:CC:DD:EE:FF", LastUpdated: time.Now()},
		},
	}
	require.NoError(t, st.Save(dev))

	ks, err := webos.NewKeyStore(keyDir)
	require.NoError(t, err)
	ks.Save(dev.IP, dev.MAC, "key-1")
	keyFile := filepath.Join(keyDir, "10.0.0.4-aabbccddeeff.key")
	_, err = os.Stat(keyFile)
	require.NoError(t, err)

	require.NoError(t, manager.Remove(dev.ID))

	// A forgotten TV must not re-pair silently off a stale disk key
	_, err = os.Stat(keyFile)
	assert.True(t, os.IsNotExist(err), "key file must be removed with the device")
}

func TestUnknownDeviceIs404(t *testing.T) {
	srv, _, _ := testServer(t, remote.Capabilities{})

	resp := postJSON(t, srv.URL+"/api/v1/devices/nope/connect", map[string]string{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+fmt.Sprintf("/api/v1/devices/%s/keys", "nope"), map[string]string{"key": "volume_up"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
