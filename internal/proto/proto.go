package proto

import "time"

const (
	PresenceTopic = "huddle.presence.v1"
	ActivityTopic = "huddle.activity.v1"
	MdnsTag       = "huddle-mdns"

	// libp2p stream protocol ID for host-relayed group chats
	GroupProtoID = "/huddle/group/1.0.0"

	// libp2p stream protocol ID for group invitations
	GroupInviteProtoID = "/huddle/group-invite/1.0.0"
)

const (
	TypeOnline  = "online"
	TypeUpdate  = "update"
	TypeOffline = "offline"
)

type PresenceMsg struct {
	Type   string   `json:"type"` // online|update|offline
	PeerID string   `json:"peerId"`
	Name   string   `json:"name,omitempty"`
	AVOff  bool     `json:"avOff,omitempty"` // peer has audio/video calls disabled
	Addrs  []string `json:"addrs,omitempty"` // multiaddresses for WAN connectivity
	TS     int64    `json:"ts"`
}

// ActivityMsg reports one burst of audio activity from a group member. It
// is published at most a few times per second per speaker; receivers feed
// it into the speaking tracker which handles the debounce.
type ActivityMsg struct {
	PeerID  string `json:"peerId"`
	GroupID string `json:"groupId"`
	Level   uint8  `json:"level"` // RFC 6464 audio level, 0 (loudest) to 127
	TS      int64  `json:"ts"`
}

func NowMillis() int64 { return time.Now().UnixMilli() }
