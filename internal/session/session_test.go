package session

import (
	"testing"
)

func TestDecodePayload(t *testing.T) {
	// Payloads decoded from the wire arrive as map[string]any.
	raw := map[string]any{"name": "Alice"}
	var jp JoinPayload
	DecodePayload(raw, &jp)
	if jp.Name != "Alice" {
		t.Fatalf("name = %q", jp.Name)
	}

	var tp TitlePayload
	DecodePayload(map[string]any{"title": "Standup", "author": "Bob"}, &tp)
	if tp.Title != "Standup" || tp.Author != "Bob" {
		t.Fatalf("payload = %+v", tp)
	}

	// Nil payloads leave the target zeroed.
	var mp MembersPayload
	DecodePayload(nil, &mp)
	if mp.Members != nil {
		t.Fatalf("members = %v, want nil", mp.Members)
	}
}

func TestDecodePayloadMembers(t *testing.T) {
	raw := map[string]any{
		"members": []any{
			map[string]any{"peer_id": "P1", "name": "Alice", "joined_at": float64(123)},
			map[string]any{"peer_id": "P2", "name": "Bob"},
		},
	}
	var mp MembersPayload
	DecodePayload(raw, &mp)
	if len(mp.Members) != 2 {
		t.Fatalf("got %d members", len(mp.Members))
	}
	if mp.Members[0].PeerID != "P1" || mp.Members[0].JoinedAt != 123 {
		t.Fatalf("member[0] = %+v", mp.Members[0])
	}
	if mp.Members[1].Name != "Bob" {
		t.Fatalf("member[1] = %+v", mp.Members[1])
	}
}
