package av

import (
	"sync"
	"time"

	"github.com/pion/rtp"

	"huddle/internal/proto"
)

// PublishFunc pushes one activity message onto the activity topic.
type PublishFunc func(msg proto.ActivityMsg) error

// Meter condenses per-packet audio levels into rate-limited activity
// pulses. RTP arrives every 20ms; publishing each packet would flood the
// mesh, so the meter emits at most one pulse per interval while speech is
// detected and nothing at all during silence.
type Meter struct {
	selfID    string
	publish   PublishFunc
	interval  time.Duration
	threshold uint8

	mu       sync.Mutex
	lastSent map[string]time.Time // groupID -> last pulse
}

// DefaultPulseInterval spaces outgoing activity pulses. It must be well
// under the receivers' quiet period or speakers would flicker idle
// mid-sentence.
const DefaultPulseInterval = 200 * time.Millisecond

// NewMeter creates a meter publishing through fn. interval <= 0 means
// DefaultPulseInterval; threshold 0 means DefaultVoiceThreshold.
func NewMeter(selfID string, fn PublishFunc, interval time.Duration, threshold uint8) *Meter {
	if interval <= 0 {
		interval = DefaultPulseInterval
	}
	if threshold == 0 {
		threshold = DefaultVoiceThreshold
	}
	return &Meter{
		selfID:    selfID,
		publish:   fn,
		interval:  interval,
		threshold: threshold,
		lastSent:  make(map[string]time.Time),
	}
}

// Process inspects one outgoing RTP packet for a group call and publishes
// an activity pulse when it carries speech and the rate limit allows.
// Returns true when a pulse was published.
func (m *Meter) Process(groupID string, pkt *rtp.Packet, extID uint8) bool {
	level, voice, ok := LevelFromPacket(pkt, extID)
	if !ok || !IsActive(level, voice, m.threshold) {
		return false
	}
	return m.Pulse(groupID, level)
}

// Pulse publishes one activity message for groupID, subject to the rate
// limit. Callers that detect activity by other means (push-to-talk) use
// this directly.
func (m *Meter) Pulse(groupID string, level uint8) bool {
	m.mu.Lock()
	now := time.Now()
	if last, ok := m.lastSent[groupID]; ok && now.Sub(last) < m.interval {
		m.mu.Unlock()
		return false
	}
	m.lastSent[groupID] = now
	m.mu.Unlock()

	m.publish(proto.ActivityMsg{
		PeerID:  m.selfID,
		GroupID: groupID,
		Level:   level,
		TS:      proto.NowMillis(),
	})
	return true
}

// Reset clears the rate-limit state for a group, e.g. after leaving a call.
func (m *Meter) Reset(groupID string) {
	m.mu.Lock()
	delete(m.lastSent, groupID)
	m.mu.Unlock()
}
