package storage

import (
	"encoding/json"
	"time"
)

// CachedPeer is the persistent record of a remote peer's last known state.
// It is written whenever a presence pulse is received and survives the peer
// going offline, so group rosters can still show a name for absent members.
type CachedPeer struct {
	PeerID   string    `json:"peer_id"`
	Name     string    `json:"name"`
	AVOff    bool      `json:"av_off"`
	Addrs    []string  `json:"addrs"`
	LastSeen time.Time `json:"last_seen"`
}

// UpsertCachedPeer stores or replaces the cached state for a peer. Empty
// address lists never overwrite a previously known one.
func (d *DB) UpsertCachedPeer(p CachedPeer) error {
	addrs, _ := json.Marshal(p.Addrs)
	av := 0
	if p.AVOff {
		av = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.db.Exec(`
		INSERT INTO _peer_cache (peer_id, name, av_off, addrs, last_seen)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(peer_id) DO UPDATE SET
			name      = excluded.name,
			av_off    = excluded.av_off,
			addrs     = CASE WHEN excluded.addrs = '[]' THEN _peer_cache.addrs ELSE excluded.addrs END,
			last_seen = CURRENT_TIMESTAMP`,
		p.PeerID, p.Name, av, string(addrs),
	)
	return err
}

// GetCachedPeer returns the last known state for a peer, or false if unknown.
func (d *DB) GetCachedPeer(peerID string) (CachedPeer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var p CachedPeer
	var av int
	var addrsJSON, lastSeen string
	err := d.db.QueryRow(`
		SELECT peer_id, name, av_off, addrs, last_seen
		FROM _peer_cache WHERE peer_id = ?`, peerID).
		Scan(&p.PeerID, &p.Name, &av, &addrsJSON, &lastSeen)
	if err != nil {
		return CachedPeer{}, false
	}
	p.AVOff = av != 0
	json.Unmarshal([]byte(addrsJSON), &p.Addrs)
	p.LastSeen, _ = time.Parse("2006-01-02 15:04:05", lastSeen)
	return p, true
}

// GetPeerName returns the cached display name for a peer ID, or "" if unknown.
func (d *DB) GetPeerName(peerID string) string {
	p, ok := d.GetCachedPeer(peerID)
	if !ok {
		return ""
	}
	return p.Name
}

// ListCachedPeers returns all cached peers, most recently seen first.
func (d *DB) ListCachedPeers() ([]CachedPeer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows, err := d.db.Query(`
		SELECT peer_id, name, av_off, addrs, last_seen
		FROM _peer_cache ORDER BY last_seen DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var peers []CachedPeer
	for rows.Next() {
		var p CachedPeer
		var av int
		var addrsJSON, lastSeen string
		if err := rows.Scan(&p.PeerID, &p.Name, &av, &addrsJSON, &lastSeen); err != nil {
			return nil, err
		}
		p.AVOff = av != 0
		json.Unmarshal([]byte(addrsJSON), &p.Addrs)
		p.LastSeen, _ = time.Parse("2006-01-02 15:04:05", lastSeen)
		peers = append(peers, p)
	}
	return peers, rows.Err()
}

// DeleteCachedPeer removes a peer from the cache entirely.
func (d *DB) DeleteCachedPeer(peerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.db.Exec(`DELETE FROM _peer_cache WHERE peer_id = ?`, peerID)
	return err
}
