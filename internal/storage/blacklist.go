package storage

import "fmt"

// AddToBlacklist records a peer identity in _blacklist. Adding an already
// blacklisted peer is a no-op.
func (d *DB) AddToBlacklist(peerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`INSERT OR IGNORE INTO _blacklist (peer_id) VALUES (?)`, peerID)
	if err != nil {
		return fmt.Errorf("add to blacklist: %w", err)
	}
	return nil
}

// RemoveFromBlacklist drops a peer identity from _blacklist.
func (d *DB) RemoveFromBlacklist(peerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`DELETE FROM _blacklist WHERE peer_id = ?`, peerID)
	return err
}

// IsBlacklisted reports whether a peer identity is in _blacklist.
func (d *DB) IsBlacklisted(peerID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var n int
	if err := d.db.QueryRow(`SELECT COUNT(1) FROM _blacklist WHERE peer_id = ?`, peerID).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

// ListBlacklist returns all blacklisted peer identities.
func (d *DB) ListBlacklist() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(`SELECT peer_id FROM _blacklist ORDER BY added_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
