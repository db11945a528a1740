package roster

import (
	"reflect"
	"testing"
)

func TestEditName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bob", "Bob"},
		{"Alice\nSmith", "Alice…"},
		{"Alice\rSmith", "Alice…"},
		{"\nleading", "…"},
		{"", ""},
	}
	for _, c := range cases {
		if got := EditName(c.in); got != c.want {
			t.Errorf("EditName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReconcileEmpty(t *testing.T) {
	if got := Reconcile(nil, "self", nil); got != nil {
		t.Fatalf("expected nil for empty roster, got %v", got)
	}
	if got := Reconcile(map[string]string{}, "self", nil); got != nil {
		t.Fatalf("expected nil for empty roster, got %v", got)
	}
}

func TestReconcileStyles(t *testing.T) {
	peers := map[string]string{
		"P1": "Me",
		"P2": "Eve",
		"P3": "Zed",
	}
	blacklist := map[string]struct{}{"P2": {}}

	entries := Reconcile(peers, "P1", blacklist)
	if len(entries) != len(peers) {
		t.Fatalf("expected %d entries, got %d", len(peers), len(entries))
	}

	styles := map[string]string{}
	for _, e := range entries {
		styles[e.PeerID] = e.Style
	}
	if styles["P1"] != "self" {
		t.Errorf("P1 style = %q, want self", styles["P1"])
	}
	if styles["P2"] != "blacklisted" {
		t.Errorf("P2 style = %q, want blacklisted", styles["P2"])
	}
	if styles["P3"] != "normal" {
		t.Errorf("P3 style = %q, want normal", styles["P3"])
	}
}

func TestReconcileSelfBeatsBlacklist(t *testing.T) {
	peers := map[string]string{"P1": "Me"}
	blacklist := map[string]struct{}{"P1": {}}

	entries := Reconcile(peers, "P1", blacklist)
	if entries[0].Style != "self" {
		t.Fatalf("self must win over blacklist, got %q", entries[0].Style)
	}
}

func TestReconcileSortOrder(t *testing.T) {
	peers := map[string]string{
		"P1": "charlie",
		"P2": "Alice",
		"P3": "bob",
	}

	entries := Reconcile(peers, "", nil)
	got := []string{entries[0].FullName, entries[1].FullName, entries[2].FullName}
	want := []string{"Alice", "bob", "charlie"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sort order = %v, want %v", got, want)
	}
}

func TestReconcileSortUsesFullName(t *testing.T) {
	// "aa\nzz" truncates to "aa…" for display, but must still sort by the
	// full name "aa\nzz", which comes before "ab".
	peers := map[string]string{
		"P1": "ab",
		"P2": "aa\nzz",
	}

	entries := Reconcile(peers, "", nil)
	if entries[0].PeerID != "P2" {
		t.Fatalf("expected truncated peer first by full-name order, got %v", entries)
	}
	if entries[0].Name != "aa…" {
		t.Errorf("display name = %q, want %q", entries[0].Name, "aa…")
	}
	if entries[0].Tooltip != "aa\nzz" {
		t.Errorf("tooltip = %q, want full name", entries[0].Tooltip)
	}
	if entries[1].Tooltip != "" {
		t.Errorf("untruncated entry must not carry a tooltip, got %q", entries[1].Tooltip)
	}
}

func TestReconcileStableTies(t *testing.T) {
	// Equal lowercased names keep ascending peer-ID order.
	peers := map[string]string{
		"P3": "Sam",
		"P1": "sam",
		"P2": "SAM",
	}

	entries := Reconcile(peers, "", nil)
	got := []string{entries[0].PeerID, entries[1].PeerID, entries[2].PeerID}
	want := []string{"P1", "P2", "P3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tie order = %v, want %v", got, want)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	peers := map[string]string{
		"P1": "zoe",
		"P2": "Al\nexander",
		"P3": "zoe",
		"P4": "",
	}

	first := Reconcile(peers, "P1", map[string]struct{}{"P3": {}})
	second := Reconcile(peers, "P1", map[string]struct{}{"P3": {}})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reconcile is not idempotent:\n%v\n%v", first, second)
	}
}
