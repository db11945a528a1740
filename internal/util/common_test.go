package util

import (
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/base", "rel/file"); got != filepath.Join("/base", "rel/file") {
		t.Fatalf("relative = %q", got)
	}
	if got := ResolvePath("/base", "/abs/file"); got != "/abs/file" {
		t.Fatalf("absolute = %q", got)
	}
}

func TestValidatePeerName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"alice", "alice", false},
		{"  bob  ", "bob", false},
		{"", "", true},
		{"   ", "", true},
		{"a b", "", true},
		{"a/b", "", true},
		{`a\b`, "", true},
		{"..", "", true},
	}
	for _, c := range cases {
		got, err := ValidatePeerName(c.in)
		if (err != nil) != c.wantErr {
			t.Fatalf("ValidatePeerName(%q) err = %v", c.in, err)
		}
		if err == nil && got != c.want {
			t.Fatalf("ValidatePeerName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
