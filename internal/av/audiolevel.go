// Package av turns RTP audio into group activity pulses. Each incoming
// packet's RFC 6464 audio-level header extension says how loud the frame
// was and whether the sender's VAD thinks it contains speech; the meter
// condenses that firehose into a few activity messages per second, which
// receivers feed into the speaking tracker.
package av

import (
	"github.com/pion/rtp"
)

// Silence is the quietest RFC 6464 level (127 means -127 dBov).
const Silence uint8 = 127

// DefaultVoiceThreshold is the loudness cutoff used when the sender did
// not set the voice-activity bit. Levels are attenuation values, so lower
// is louder.
const DefaultVoiceThreshold uint8 = 90

// LevelFromPacket extracts the RFC 6464 audio level from an RTP packet.
// extID is the negotiated header-extension ID for urn:ietf:params:rtp-hdrext:ssrc-audio-level.
// Returns ok=false when the packet carries no such extension.
func LevelFromPacket(pkt *rtp.Packet, extID uint8) (level uint8, voice bool, ok bool) {
	buf := pkt.Header.GetExtension(extID)
	if len(buf) == 0 {
		return 0, false, false
	}
	var ext rtp.AudioLevelExtension
	if err := ext.Unmarshal(buf); err != nil {
		return 0, false, false
	}
	return ext.Level, ext.Voice, true
}

// IsActive decides whether a level reading counts as speech. The voice
// bit wins when set; otherwise the level must beat the threshold.
func IsActive(level uint8, voice bool, threshold uint8) bool {
	if voice {
		return true
	}
	return level < threshold
}
