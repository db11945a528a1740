package session

// Message type constants for the group protocol wire format.
const (
	TypeJoin    = "join"
	TypeWelcome = "welcome"
	TypeMembers = "members"
	TypeMsg     = "msg"
	TypeAction  = "action"
	TypeRename  = "rename"
	TypeTitle   = "title"
	TypeLeave   = "leave"
	TypeClose   = "close"
	TypeError   = "error"
)

// Message is the JSON wire format for group protocol messages.
// Messages are newline-delimited JSON on the stream.
type Message struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Group   string `json:"group"`
	From    string `json:"from,omitempty"`
	TS      int64  `json:"ts,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// JoinPayload is the first message a client sends on a group stream.
type JoinPayload struct {
	Name string `json:"name"`
}

// WelcomePayload is sent to a new member after joining.
type WelcomePayload struct {
	GroupName string       `json:"group_name,omitempty"`
	Title     string       `json:"title,omitempty"`
	AVEnabled bool         `json:"av_enabled,omitempty"`
	Members   []MemberInfo `json:"members"`
}

// MembersPayload is broadcast when membership changes.
type MembersPayload struct {
	Members []MemberInfo `json:"members"`
}

// MemberInfo describes a group member.
type MemberInfo struct {
	PeerID   string `json:"peer_id"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joined_at"`
}

// TextPayload carries chat text for msg and action messages.
type TextPayload struct {
	Text string `json:"text"`
}

// TitlePayload announces a group title change. Author is the display name
// of the member who changed it; empty for startup/sync updates.
type TitlePayload struct {
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
}

// RenamePayload announces a member's new display name.
type RenamePayload struct {
	Name string `json:"name"`
}

// ErrorPayload is sent when an error occurs.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
