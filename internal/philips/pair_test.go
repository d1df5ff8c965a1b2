package philips

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapp/internal/remote"
)

const (
	testAuthKey   = "authkey0123456789"
	testTimestamp = int64(4735)
)

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func nextPairingEvent(t *testing.T, ch <-chan remote.PairingEvent) remote.PairingEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for pairing event")
		return remote.PairingEvent{}
	}
}

// grantRequest is the body of the pair/grant call as seen by the TV
type grantRequest struct {
	Auth struct {
		AppID     string `json:"auth_AppId"`
		PIN       string `json:"pin"`
		Timestamp int64  `json:"auth_timestamp"`
		Signature string `json:"auth_signature"`
	} `json:"auth"`
	Device deviceSpec `json:"device"`
}

func TestPairerPINExchange(t *testing.T) {
	grants := make(chan grantRequest, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/6/pair/request", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Scope  []string   `json:"scope"`
			Device deviceSpec `json:"device"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.ElementsMatch(t, []string{"read", "write", "control"}, body.Scope)
		assert.Regexp(t, `^[a-z0-9]{16}$`, body.Device.ID)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"auth_key":  testAuthKey,
			"timestamp": testTimestamp,
		})
	})
	mux.HandleFunc("/6/pair/grant", func(w http.ResponseWriter, r *http.Request) {
		// the grant is digest-authenticated with the freshly issued key
		if r.Header.Get("Authorization") == "" {
			w.Header().Set("WWW-Authenticate", `Digest realm="XTV", nonce="n1", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body grantRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		grants <- body
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	events := make(chan remote.PairingEvent, 8)
	p := NewPairer("127.0.0.1", func(ev remote.PairingEvent) { events <- ev })
	p.port = serverPort(t, srv)
	defer p.Close()

	p.Start(context.Background())

	ev := nextPairingEvent(t, events)
	require.Equal(t, remote.PairingPrompt, ev.Type, "PIN should be on screen after pair/request")

	require.NoError(t, p.Submit("0417"))

	ev = nextPairingEvent(t, events)
	require.Equal(t, remote.PairingPaired, ev.Type)
	require.NotNil(t, ev.Credentials)
	require.NotNil(t, ev.Credentials.Philips)
	assert.Equal(t, testAuthKey, ev.Credentials.Philips.AuthKey)
	assert.NotEmpty(t, ev.Credentials.Philips.DeviceID)

	grant := <-grants
	assert.Equal(t, "1", grant.Auth.AppID)
	assert.Equal(t, "0417", grant.Auth.PIN)
	assert.Equal(t, testTimestamp, grant.Auth.Timestamp)
	assert.Equal(t, pinSignature(testTimestamp, "0417"), grant.Auth.Signature)
	assert.Equal(t, ev.Credentials.Philips.DeviceID, grant.Device.ID)
}

func TestPairerRejectedPIN(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/6/pair/request", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"auth_key":  testAuthKey,
			"timestamp": testTimestamp,
		})
	})
	mux.HandleFunc("/6/pair/grant", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.Header().Set("WWW-Authenticate", `Digest realm="XTV", nonce="n1", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		// wrong PIN: the TV answers the authenticated grant with an error
		w.WriteHeader(http.StatusInternalServerError)
	})

	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	events := make(chan remote.PairingEvent, 8)
	p := NewPairer("127.0.0.1", func(ev remote.PairingEvent) { events <- ev })
	p.port = serverPort(t, srv)
	defer p.Close()

	p.Start(context.Background())
	require.Equal(t, remote.PairingPrompt, nextPairingEvent(t, events).Type)

	require.NoError(t, p.Submit("9999"))
	ev := nextPairingEvent(t, events)
	require.Equal(t, remote.PairingFailed, ev.Type)
	assert.Contains(t, ev.Error, "pairing rejected")
}

func TestPairerMissingAuthKey(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/6/pair/request", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{})
	})

	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	events := make(chan remote.PairingEvent, 8)
	p := NewPairer("127.0.0.1", func(ev remote.PairingEvent) { events <- ev })
	p.port = serverPort(t, srv)
	defer p.Close()

	p.Start(context.Background())
	ev := nextPairingEvent(t, events)
	require.Equal(t, remote.PairingFailed, ev.Type)
	assert.Contains(t, ev.Error, "auth key")
}

func TestSubmitWithoutPairing(t *testing.T) {
	p := NewPairer("127.0.0.1", func(remote.PairingEvent) {})
	require.Error(t, p.Submit("0417"))
}
