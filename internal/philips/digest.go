package philips

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// challenge is a parsed WWW-Authenticate digest header
type challenge struct {
	realm string
	nonce string
	qop   string
}

// parseChallenge extracts the digest parameters from a 401 response header
func parseChallenge(header string) (*challenge, error) {
	const prefix = "Digest "
	if !strings.HasPrefix(header, prefix) {
		return nil, fmt.Errorf("not a digest challenge: %q", header)
	}

	ch := &challenge{}
	for _, part := range strings.Split(header[len(prefix):], ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		v = strings.Trim(v, `"`)
		switch strings.ToLower(k) {
		case "realm":
			ch.realm = v
		case "nonce":
			ch.nonce = v
		case "qop":
			ch.qop = v
		}
	}
	if ch.nonce == "" {
		return nil, fmt.Errorf("digest challenge missing nonce")
	}
	return ch, nil
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// digestAuth computes MD5 digest credentials against one challenge. The
// nonce counter belongs to the connection that negotiated the challenge,
// never shared between connections.
type digestAuth struct {
	username string
	password string
	ch       *challenge
	nc       int
}

// header builds the Authorization value for one request and advances the
// nonce counter
func (d *digestAuth) header(method, uri string) string {
	d.nc++
	nc := fmt.Sprintf("%08x", d.nc)

	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	cnonce := hex.EncodeToString(buf)

	ha1 := md5hex(fmt.Sprintf("%s:%s:%s", d.username, d.ch.realm, d.password))
	ha2 := md5hex(fmt.Sprintf("%s:%s", method, uri))

	var response string
	if d.ch.qop != "" {
		response = md5hex(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, d.ch.nonce, nc, cnonce, d.ch.qop, ha2))
		return fmt.Sprintf(`Digest username="%s", realm="%s", nonce="%s", uri="%s", qop=%s, nc=%s, cnonce="%s", response="%s"`,
			d.username, d.ch.realm, d.ch.nonce, uri, d.ch.qop, nc, cnonce, response)
	}

	// RFC 2069 fallback when the TV omits qop
	response = md5hex(fmt.Sprintf("%s:%s:%s", ha1, d.ch.nonce, ha2))
	return fmt.Sprintf(`Digest username="%s", realm="%s", nonce="%s", uri="%s", response="%s"`,
		d.username, d.ch.realm, d.ch.nonce, uri, response)
}
