package webos

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"zapp/internal/logger"
)

const keyCacheSize = 32

// KeyStore caches WebOS client keys on disk so the transport can reconnect
// across runs without re-pairing. One plaintext file per device, keyed by
// ip+mac; the file holds the raw key string, nothing else. Writes are
// last-writer-wins. An LRU front avoids re-reading disk on every connect.
type KeyStore struct {
	dir   string
	cache *lru.Cache[string, string]
}

// NewKeyStore creates a key store rooted at the given directory
func NewKeyStore(dir string) (*KeyStore, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "zapp", "webos-keys")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create key dir: %w", err)
	}

	cache, err := lru.New[string, string](keyCacheSize)
	if err != nil {
		return nil, err
	}
	return &KeyStore{dir: dir, cache: cache}, nil
}

// keyFileName builds the per-device file name from ip and optional mac
func keyFileName(ip, mac string) string {
	name := strings.ReplaceAll(ip, ":", "_")
	if mac != "" {
		name += "-" + strings.ReplaceAll(strings.ToLower(mac), ":", "")
	}
	return name + ".key"
}

// Load returns the cached client key for a device, or empty when absent
func (ks *KeyStore) Load(ip, mac string) string {
	name := keyFileName(ip, mac)
	if key, ok := ks.cache.Get(name); ok {
		return key
	}

	data, err := os.ReadFile(filepath.Join(ks.dir, name))
	if err != nil {
		return ""
	}
	key := strings.TrimSpace(string(data))
	if key != "" {
		ks.cache.Add(name, key)
	}
	return key
}

// Save writes the client key. Errors are logged, not fatal - the key also
// lives in the device credentials.
func (ks *KeyStore) Save(ip, mac, key string) {
	name := keyFileName(ip, mac)
	ks.cache.Add(name, key)

	path := filepath.Join(ks.dir, name)
	if err := os.WriteFile(path, []byte(key), 0600); err != nil {
		log := logger.For("webos")
		log.Warn().Str("path", path).Err(err).Msg("Failed to write key file")
	}
}

// Delete removes a stored key (device forgotten)
func (ks *KeyStore) Delete(ip, mac string) {
	name := keyFileName(ip, mac)
	ks.cache.Remove(name)
	_ = os.Remove(filepath.Join(ks.dir, name))
}
