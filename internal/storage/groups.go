package storage

import "fmt"

// GroupRow represents a row from the _groups table.
type GroupRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	AVEnabled bool   `json:"av_enabled"`
	CreatedAt string `json:"created_at"`
}

// SubscriptionRow represents a row from the _group_subscriptions table.
type SubscriptionRow struct {
	HostPeerID   string `json:"host_peer_id"`
	GroupID      string `json:"group_id"`
	GroupName    string `json:"group_name"`
	AVEnabled    bool   `json:"av_enabled"`
	Role         string `json:"role"`
	SubscribedAt string `json:"subscribed_at"`
}

// CreateGroup inserts a new hosted group into _groups.
func (d *DB) CreateGroup(id, name string, avEnabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	av := 0
	if avEnabled {
		av = 1
	}
	_, err := d.db.Exec(
		`INSERT INTO _groups (id, name, av_enabled) VALUES (?, ?, ?)`,
		id, name, av,
	)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// SetGroupTitle updates the stored title for a hosted group.
func (d *DB) SetGroupTitle(id, title string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`UPDATE _groups SET title = ? WHERE id = ?`, title, id)
	return err
}

// ListGroups returns all hosted groups.
func (d *DB) ListGroups() ([]GroupRow, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(`SELECT id, name, title, av_enabled, created_at FROM _groups ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []GroupRow
	for rows.Next() {
		var g GroupRow
		var av int
		if err := rows.Scan(&g.ID, &g.Name, &g.Title, &av, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.AVEnabled = av != 0
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetGroup returns a single hosted group by ID.
func (d *DB) GetGroup(id string) (GroupRow, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var g GroupRow
	var av int
	err := d.db.QueryRow(
		`SELECT id, name, title, av_enabled, created_at FROM _groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &g.Title, &av, &g.CreatedAt)
	if err != nil {
		return g, fmt.Errorf("get group: %w", err)
	}
	g.AVEnabled = av != 0
	return g, nil
}

// DeleteGroup removes a hosted group.
func (d *DB) DeleteGroup(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`DELETE FROM _groups WHERE id = ?`, id)
	return err
}

// AddSubscription records a subscription to a remote group.
func (d *DB) AddSubscription(hostPeerID, groupID, groupName, role string, avEnabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	av := 0
	if avEnabled {
		av = 1
	}
	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO _group_subscriptions (host_peer_id, group_id, group_name, av_enabled, role) VALUES (?, ?, ?, ?, ?)`,
		hostPeerID, groupID, groupName, av, role,
	)
	if err != nil {
		return fmt.Errorf("add subscription: %w", err)
	}
	return nil
}

// RemoveSubscription removes a subscription record.
func (d *DB) RemoveSubscription(hostPeerID, groupID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(
		`DELETE FROM _group_subscriptions WHERE host_peer_id = ? AND group_id = ?`,
		hostPeerID, groupID,
	)
	return err
}

// ListSubscriptions returns all subscription records.
func (d *DB) ListSubscriptions() ([]SubscriptionRow, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(
		`SELECT host_peer_id, group_id, group_name, av_enabled, role, subscribed_at FROM _group_subscriptions ORDER BY subscribed_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []SubscriptionRow
	for rows.Next() {
		var s SubscriptionRow
		var av int
		if err := rows.Scan(&s.HostPeerID, &s.GroupID, &s.GroupName, &av, &s.Role, &s.SubscribedAt); err != nil {
			return nil, err
		}
		s.AVEnabled = av != 0
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
