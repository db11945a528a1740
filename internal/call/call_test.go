package call

import (
	"testing"
	"time"

	"huddle/internal/proto"
)

func TestJoinLeave(t *testing.T) {
	m := New("SELF", false, 0)
	defer m.Close()

	if err := m.Join("g1", true); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !m.InCall("g1") {
		t.Fatal("should be in call")
	}
	if err := m.Join("g1", true); err == nil {
		t.Fatal("double join must fail")
	}

	m.Leave("g1")
	if m.InCall("g1") {
		t.Fatal("should have left")
	}
	m.Leave("g1") // idempotent
}

func TestJoinRejected(t *testing.T) {
	t.Run("calls disabled", func(t *testing.T) {
		m := New("SELF", true, 0)
		defer m.Close()
		if err := m.Join("g1", true); err == nil {
			t.Fatal("expected error when calls are disabled")
		}
	})
	t.Run("group without av", func(t *testing.T) {
		m := New("SELF", false, 0)
		defer m.Close()
		if err := m.Join("g1", false); err == nil {
			t.Fatal("expected error for non-AV group")
		}
	})
}

func TestMuteToggles(t *testing.T) {
	m := New("SELF", false, 0)
	defer m.Close()

	// Toggles outside a call are no-ops.
	if m.ToggleInputMute("g1") {
		t.Fatal("toggle outside call must return false")
	}
	if m.ToggleOutputMute("g1") {
		t.Fatal("toggle outside call must return false")
	}

	m.Join("g1", true)
	if !m.InputActive("g1") {
		t.Fatal("fresh call should transmit")
	}

	if !m.ToggleInputMute("g1") {
		t.Fatal("first toggle should mute")
	}
	if m.InputActive("g1") {
		t.Fatal("muted mic must not transmit")
	}
	if m.ToggleInputMute("g1") {
		t.Fatal("second toggle should unmute")
	}

	if !m.ToggleOutputMute("g1") {
		t.Fatal("output should mute")
	}
	if !m.OutputMuted("g1") {
		t.Fatal("OutputMuted should read true")
	}
}

func TestPushToTalk(t *testing.T) {
	m := New("SELF", false, 0)
	defer m.Close()
	m.Join("g1", true)
	m.ToggleInputMute("g1")

	if m.InputActive("g1") {
		t.Fatal("muted without PTT must not transmit")
	}
	m.PushToTalk("g1", true)
	if !m.InputActive("g1") {
		t.Fatal("held PTT must override the mute")
	}
	m.PushToTalk("g1", false)
	if m.InputActive("g1") {
		t.Fatal("released PTT must restore the mute")
	}

	// PTT outside a call is a no-op.
	m.PushToTalk("g2", true)
	if m.InputActive("g2") {
		t.Fatal("PTT must not transmit outside a call")
	}
}

func TestActivityDrivesViewAndSpeaking(t *testing.T) {
	quiet := 60 * time.Millisecond
	m := New("SELF", false, quiet)
	defer m.Close()
	m.Join("g1", true)

	m.HandleActivity(proto.ActivityMsg{PeerID: "P1", GroupID: "g1", Level: 30})
	if !m.Speaking("g1", "P1") {
		t.Fatal("P1 should be speaking")
	}
	view := m.View("g1")
	if len(view) != 1 || view[0] != "P1" {
		t.Fatalf("view = %v", view)
	}

	// Own pulses and pulses for other groups are ignored.
	m.HandleActivity(proto.ActivityMsg{PeerID: "SELF", GroupID: "g1", Level: 30})
	if m.Speaking("g1", "SELF") {
		t.Fatal("own activity must be ignored")
	}
	m.HandleActivity(proto.ActivityMsg{PeerID: "P2", GroupID: "g9", Level: 30})
	if m.Speaking("g9", "P2") {
		t.Fatal("activity for an unjoined call must be ignored")
	}

	time.Sleep(quiet + 40*time.Millisecond)
	if m.Speaking("g1", "P1") {
		t.Fatal("P1 should have gone idle")
	}
	if len(m.View("g1")) != 0 {
		t.Fatalf("view should be empty, got %v", m.View("g1"))
	}
}

func TestMemberLeftCancelsSpeaking(t *testing.T) {
	quiet := 60 * time.Millisecond
	m := New("SELF", false, quiet)
	defer m.Close()
	m.Join("g1", true)

	ch := m.Subscribe()
	defer m.Unsubscribe(ch)

	m.HandleActivity(proto.ActivityMsg{PeerID: "P1", GroupID: "g1", Level: 30})
	m.HandleMemberLeft("g1", "P1")

	time.Sleep(quiet + 40*time.Millisecond)

	// The speaking=true event fired; no trailing speaking=false may follow
	// the removal.
	var idle int
	for len(ch) > 0 {
		evt := <-ch
		if evt.Type == EventSpeaking && !evt.Speaking {
			idle++
		}
	}
	if idle != 0 {
		t.Fatalf("got %d idle events after member left, want 0", idle)
	}
	if m.Speaking("g1", "P1") {
		t.Fatal("departed member must not be speaking")
	}
}

func TestGroupGoneLeavesCall(t *testing.T) {
	m := New("SELF", false, 0)
	defer m.Close()
	m.Join("g1", true)

	m.HandleGroupGone("g1")
	if m.InCall("g1") {
		t.Fatal("call should end when the group disappears")
	}
	// Harmless for groups without a call.
	m.HandleGroupGone("g2")
}

func TestViewExcludesSelf(t *testing.T) {
	v := newView("SELF")
	if v.AddPeer("SELF") {
		t.Fatal("view must never show the local peer")
	}
	if !v.AddPeer("P1") {
		t.Fatal("AddPeer should report a change")
	}
	if v.AddPeer("P1") {
		t.Fatal("duplicate add should report no change")
	}
	if !v.Contains("P1") {
		t.Fatal("P1 should be visible")
	}
	v.Clear()
	if len(v.Peers()) != 0 {
		t.Fatal("clear should hide everyone")
	}
}
