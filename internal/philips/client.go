package philips

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"zapp/internal/logger"
)

const (
	// Port is the HTTPS API port (JointSpace v6)
	Port = 1926

	apiVersion     = 6
	requestTimeout = 8 * time.Second
)

// Client issues JointSpace API calls over HTTPS. The TV does not keep a
// server-side session, so every request re-authenticates with the cached
// digest challenge; the nonce counter is per-client state.
type Client struct {
	ip   string
	port int
	http *http.Client
	auth *digestAuth

	logger zerolog.Logger
}

// NewClient creates a client for one TV. username and password come from
// the stored credentials; both empty for the unauthenticated pairing calls.
func NewClient(ip, username, password string) *Client {
	return &Client{
		ip:   ip,
		port: Port,
		http: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				// The TVs serve self-signed certificates
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		auth:   &digestAuth{username: username, password: password},
		logger: logger.For("philips").With().Str("ip", ip).Logger(),
	}
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("https://%s:%d/%d%s", c.ip, c.port, apiVersion, path)
}

// do sends one request, retrying once with digest credentials when the TV
// answers 401 with a challenge
func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = data
	}

	uri := fmt.Sprintf("/%d%s", apiVersion, path)
	resp, err := c.send(ctx, method, path, uri, payload, c.auth.ch != nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		header := resp.Header.Get("WWW-Authenticate")
		_ = resp.Body.Close()

		if c.auth.username == "" {
			return nil, fmt.Errorf("TV requires authentication")
		}
		ch, err := parseChallenge(header)
		if err != nil {
			return nil, err
		}
		c.auth.ch = ch

		resp, err = c.send(ctx, method, path, uri, payload, true)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("TV returned HTTP %d", resp.StatusCode)
	}
	return data, nil
}

func (c *Client) send(ctx context.Context, method, path, uri string, payload []byte, withAuth bool) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth && c.auth.ch != nil {
		req.Header.Set("Authorization", c.auth.header(method, uri))
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("JointSpace request")
	return c.http.Do(req)
}

// Get performs a GET and decodes the JSON body into out
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Post performs a POST. Some TVs answer successful posts with an empty or
// non-JSON body; a 2xx status alone counts as success, and out stays zero
// when the body does not decode.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	data, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			c.logger.Debug().Str("path", path).Msg("Non-JSON 2xx body, treating as success")
		}
	}
	return nil
}
