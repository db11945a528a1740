package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"huddle/internal/util"
)

type Config struct {
	Identity Identity `json:"identity"`
	Profile  Profile  `json:"profile"`
	P2P      P2P      `json:"p2p"`
	Presence Presence `json:"presence"`
	Call     Call     `json:"call"`
	Viewer   Viewer   `json:"viewer"`
}

type Identity struct {
	KeyFile string `json:"key_file"`
}

type Profile struct {
	// Display name announced to other peers and shown in group rosters.
	Name string `json:"name"`
}

type P2P struct {
	ListenPort int    `json:"listen_port"`
	MdnsTag    string `json:"mdns_tag"`
}

type Presence struct {
	Topic        string `json:"topic"`
	TTLSec       int    `json:"ttl_seconds"`
	HeartbeatSec int    `json:"heartbeat_seconds"`
}

type Call struct {
	// Disable audio/video calls entirely. Peers in AV-enabled groups still
	// see the group; this peer just never joins the call.
	Disabled bool `json:"disabled"`

	// How long after the last audio-activity event a member is still shown
	// as speaking. 0 means the built-in default (500ms).
	QuietPeriodMs int `json:"quiet_period_ms"`

	// Topic for audio-activity pulses.
	ActivityTopic string `json:"activity_topic"`
}

type Viewer struct {
	HTTPAddr string `json:"http_addr"`
	Debug    bool   `json:"debug"`
}

func Default() Config {
	return Config{
		Identity: Identity{
			KeyFile: "data/identity.key",
		},
		Profile: Profile{
			Name: "anonymous",
		},
		P2P: P2P{
			ListenPort: 0,
			MdnsTag:    "huddle-mdns",
		},
		Presence: Presence{
			Topic:        "huddle.presence.v1",
			TTLSec:       20,
			HeartbeatSec: 5,
		},
		Call: Call{
			Disabled:      false,
			QuietPeriodMs: 500,
			ActivityTopic: "huddle.activity.v1",
		},
		Viewer: Viewer{
			HTTPAddr: "",
			Debug:    false,
		},
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Identity.KeyFile) == "" {
		return errors.New("identity.key_file is required")
	}

	if c.P2P.ListenPort < 0 || c.P2P.ListenPort > 65535 {
		return errors.New("p2p.listen_port must be 0..65535")
	}
	if strings.TrimSpace(c.P2P.MdnsTag) == "" {
		return errors.New("p2p.mdns_tag is required")
	}

	if strings.TrimSpace(c.Presence.Topic) == "" {
		return errors.New("presence.topic is required")
	}
	if c.Presence.TTLSec <= 0 {
		return errors.New("presence.ttl_seconds must be > 0")
	}
	if c.Presence.HeartbeatSec <= 0 {
		return errors.New("presence.heartbeat_seconds must be > 0")
	}
	if c.Presence.HeartbeatSec >= c.Presence.TTLSec {
		return errors.New("presence.heartbeat_seconds must be < presence.ttl_seconds")
	}

	if c.Call.QuietPeriodMs < 0 {
		return errors.New("call.quiet_period_ms must be >= 0")
	}
	if strings.TrimSpace(c.Call.ActivityTopic) == "" {
		return errors.New("call.activity_topic is required")
	}

	return nil
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}
