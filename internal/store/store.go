// Package store persists the device registry in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"zapp/internal/remote"
)

// Store handles SQLite device registry operations
type Store struct {
	db *sql.DB
}

// Open creates a store backed by the database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			platform TEXT NOT NULL,
			ip TEXT NOT NULL,
			mac TEXT,
			credentials TEXT, -- JSON blob, NULL when unpaired
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_platform ON devices(platform)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Save inserts or updates a device record
func (s *Store) Save(dev remote.Device) error {
	var creds sql.NullString
	if c := dev.Credentials.Normalize(); c != nil {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to encode credentials: %w", err)
		}
		creds = sql.NullString{String: string(data), Valid: true}
	}

	query := `INSERT INTO devices (id, name, platform, ip, mac, credentials, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
				  name = excluded.name,
				  platform = excluded.platform,
				  ip = excluded.ip,
				  mac = excluded.mac,
				  credentials = excluded.credentials,
				  updated_at = excluded.updated_at`
	if _, err := s.db.Exec(query, dev.ID, dev.Name, string(dev.Platform), dev.IP, dev.MAC, creds, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save device: %w", err)
	}
	return nil
}

// Get returns one device by id
func (s *Store) Get(id string) (*remote.Device, error) {
	query := `SELECT id, name, platform, ip, mac, credentials FROM devices WHERE id = ?`
	dev, err := scanDevice(s.db.QueryRow(query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return dev, nil
}

// List returns all devices ordered by name
func (s *Store) List() ([]remote.Device, error) {
	query := `SELECT id, name, platform, ip, mac, credentials FROM devices ORDER BY name`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []remote.Device
	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *dev)
	}
	return devices, rows.Err()
}

// Delete removes a device record
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row scanner) (*remote.Device, error) {
	var dev remote.Device
	var platform string
	var mac, creds sql.NullString
	if err := row.Scan(&dev.ID, &dev.Name, &platform, &dev.IP, &mac, &creds); err != nil {
		return nil, err
	}
	dev.Platform = remote.Platform(platform)
	dev.MAC = mac.String

	if creds.Valid && creds.String != "" {
		var c remote.Credentials
		if err := json.Unmarshal([]byte(creds.String), &c); err != nil {
			return nil, fmt.Errorf("malformed credentials for %s: %w", dev.ID, err)
		}
		// Partial credentials are discarded, never partially trusted
		dev.Credentials = c.Normalize()
	}
	return &dev, nil
}
