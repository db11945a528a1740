package av

import (
	"testing"
	"time"

	"github.com/pion/rtp"

	"huddle/internal/proto"
)

const testExtID = 1

func packetWithLevel(t *testing.T, level uint8, voice bool) *rtp.Packet {
	t.Helper()
	ext := rtp.AudioLevelExtension{Level: level, Voice: voice}
	buf, err := ext.Marshal()
	if err != nil {
		t.Fatalf("marshal extension: %v", err)
	}
	pkt := &rtp.Packet{}
	pkt.Header.Extension = true
	pkt.Header.ExtensionProfile = 0xBEDE
	if err := pkt.Header.SetExtension(testExtID, buf); err != nil {
		t.Fatalf("set extension: %v", err)
	}
	return pkt
}

func TestLevelFromPacket(t *testing.T) {
	pkt := packetWithLevel(t, 42, true)

	level, voice, ok := LevelFromPacket(pkt, testExtID)
	if !ok {
		t.Fatal("extension should be present")
	}
	if level != 42 || !voice {
		t.Fatalf("level = %d voice = %v", level, voice)
	}
}

func TestLevelFromPacketMissingExtension(t *testing.T) {
	pkt := &rtp.Packet{}
	if _, _, ok := LevelFromPacket(pkt, testExtID); ok {
		t.Fatal("expected ok=false without extension")
	}
}

func TestIsActive(t *testing.T) {
	cases := []struct {
		level uint8
		voice bool
		want  bool
	}{
		{42, true, true},
		{Silence, true, true}, // voice bit wins
		{42, false, true},     // loud enough
		{Silence, false, false},
		{DefaultVoiceThreshold, false, false}, // at threshold is not active
	}
	for _, c := range cases {
		if got := IsActive(c.level, c.voice, DefaultVoiceThreshold); got != c.want {
			t.Errorf("IsActive(%d, %v) = %v, want %v", c.level, c.voice, got, c.want)
		}
	}
}

func TestMeterRateLimits(t *testing.T) {
	var published []proto.ActivityMsg
	m := NewMeter("SELF", func(msg proto.ActivityMsg) error {
		published = append(published, msg)
		return nil
	}, 50*time.Millisecond, 0)

	pkt := packetWithLevel(t, 30, true)

	if !m.Process("g1", pkt, testExtID) {
		t.Fatal("first packet should publish")
	}
	if m.Process("g1", pkt, testExtID) {
		t.Fatal("second packet inside the interval must be suppressed")
	}

	time.Sleep(60 * time.Millisecond)
	if !m.Process("g1", pkt, testExtID) {
		t.Fatal("packet after the interval should publish")
	}

	if len(published) != 2 {
		t.Fatalf("published %d pulses, want 2", len(published))
	}
	if published[0].PeerID != "SELF" || published[0].GroupID != "g1" || published[0].Level != 30 {
		t.Fatalf("pulse = %+v", published[0])
	}
}

func TestMeterSilenceNotPublished(t *testing.T) {
	m := NewMeter("SELF", func(proto.ActivityMsg) error {
		t.Fatal("silence must not publish")
		return nil
	}, 0, 0)

	pkt := packetWithLevel(t, Silence, false)
	if m.Process("g1", pkt, testExtID) {
		t.Fatal("silent packet published")
	}
}

func TestMeterIndependentGroups(t *testing.T) {
	count := 0
	m := NewMeter("SELF", func(proto.ActivityMsg) error {
		count++
		return nil
	}, time.Minute, 0)

	pkt := packetWithLevel(t, 30, true)
	m.Process("g1", pkt, testExtID)
	m.Process("g2", pkt, testExtID)
	if count != 2 {
		t.Fatalf("published %d, want one per group", count)
	}

	// Reset clears the limiter for one group only.
	m.Reset("g1")
	m.Process("g1", pkt, testExtID)
	m.Process("g2", pkt, testExtID)
	if count != 3 {
		t.Fatalf("published %d, want 3", count)
	}
}
