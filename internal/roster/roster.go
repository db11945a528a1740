// Package roster turns a raw peer map into the ordered, styled entry list
// shown at the top of a group panel. It is pure computation — no locks, no
// timers, no I/O — so the presentation layer can be tested without a UI.
package roster

import (
	"sort"
	"strings"
)

// Style classifies how a peer entry should be rendered.
type Style int

const (
	StyleNormal Style = iota
	StyleSelf
	StyleBlacklisted
)

// String returns the style tag used in JSON payloads and logs.
func (s Style) String() string {
	switch s {
	case StyleSelf:
		return "self"
	case StyleBlacklisted:
		return "blacklisted"
	default:
		return "normal"
	}
}

// Entry is one renderable peer row. Name is bounded to a single line;
// FullName is the untruncated display name and drives the sort order.
// Tooltip carries the full name only when truncation occurred.
type Entry struct {
	PeerID   string `json:"peer_id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Tooltip  string `json:"tooltip,omitempty"`
	Style    string `json:"style"`
}

// EditName bounds a display name to a single line: it truncates at the
// first newline or carriage return and appends "…" (U+2026, one rune —
// not three dots). Names without a line break pass through unchanged.
func EditName(name string) string {
	pos := strings.IndexAny(name, "\n\r")
	if pos == -1 {
		return name
	}
	return name[:pos] + "…"
}

// Reconcile builds the ordered entry list for the current peer roster.
//
// Every peer in the map yields exactly one entry. Classification priority
// is self > blacklisted > normal; the blacklist matches on the peer's
// identity string, not its name. Entries are sorted ascending by the
// lowercased FULL name so truncation never perturbs ordering; ties keep
// input order, which is defined as ascending peer ID since Go map
// iteration is unordered. Calling Reconcile twice with the same inputs
// yields identical output.
func Reconcile(peers map[string]string, selfID string, blacklist map[string]struct{}) []Entry {
	if len(peers) == 0 {
		return nil
	}

	ids := make([]string, 0, len(peers))
	for id := range peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		fullName := peers[id]
		edited := EditName(fullName)

		e := Entry{
			PeerID:   id,
			Name:     edited,
			FullName: fullName,
		}
		if edited != fullName {
			e.Tooltip = fullName
		}

		switch {
		case id == selfID:
			e.Style = StyleSelf.String()
		case contains(blacklist, id):
			e.Style = StyleBlacklisted.String()
		default:
			e.Style = StyleNormal.String()
		}

		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].FullName) < strings.ToLower(entries[j].FullName)
	})

	return entries
}

func contains(set map[string]struct{}, key string) bool {
	if set == nil {
		return false
	}
	_, ok := set[key]
	return ok
}
