package config

import (
	"encoding/json"
	"os"
)

type Config struct {
	Discord    DiscordConfig    `json:"discord"`
	Database   DatabaseConfig   `json:"database"`
	Tickets    TicketsConfig    `json:"tickets"`
	Whitelist  WhitelistConfig  `json:"whitelist"`
	Status     StatusConfig     `json:"status"`
	Greetings  GreetingsConfig  `json:"greetings"`
	Counting   CountingConfig   `json:"counting"`
	AntiPing   AntiPingConfig   `json:"anti_ping"`
	AutoDelete AutoDeleteConfig `json:"auto_delete"`
	APIs       APIConfig        `json:"apis"`
}

type DiscordConfig struct {
	Token    string `json:"token"`
	ClientID string `json:"client_id"`
	GuildID  string `json:"guild_id"`
}

type DatabaseConfig struct {
	Driver         string        `json:"driver"`
	RequestBackend string        `json:"request_backend"`
	SQLite         SQLiteConfig  `json:"sqlite"`
	MongoDB        MongoDBConfig `json:"mongodb"`
}

type SQLiteConfig struct {
	Path string `json:"path"`
}

type MongoDBConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

type TicketsConfig struct {
	Enabled         bool     `json:"enabled"`
	MenuChannel     string   `json:"menu_channel"`
	DiscordCategory string   `json:"discord_category"`
	ClaimRoles      []string `json:"claim_roles"`
	CloseRoles      []string `json:"close_roles"`
	MenuTitle       string   `json:"menu_title"`
	MenuDescription string   `json:"menu_description"`

	// Inactivity thresholds. AlertSeconds must stay below DeleteSeconds;
	// the watcher sweeps every PollSeconds.
	PollSeconds   int `json:"poll_seconds"`
	AlertSeconds  int `json:"alert_seconds"`
	DeleteSeconds int `json:"delete_seconds"`
	GraceSeconds  int `json:"grace_seconds"`

	MenuRefreshMinutes int `json:"menu_refresh_minutes"`
}

type WhitelistConfig struct {
	Enabled            bool   `json:"enabled"`
	Channel            string `json:"channel"`
	StaffChannel       string `json:"staff_channel"`
	StaffRole          string `json:"staff_role"`
	ApprovedRole       string `json:"approved_role"`
	ContentChannel     string `json:"content_channel"`
	NicknamePrefix     string `json:"nickname_prefix"`
	CooldownHours      int    `json:"cooldown_hours"`
	ConfirmTTLMinutes  int    `json:"confirm_ttl_minutes"`
}

type StatusConfig struct {
	Enabled         bool   `json:"enabled"`
	Channel         string `json:"channel"`
	ServerAddress   string `json:"server_address"`
	Edition         string `json:"edition"`
	IntervalSeconds int    `json:"interval_seconds"`
}

type GreetingsConfig struct {
	Enabled  bool           `json:"enabled"`
	Channel  string         `json:"channel"`
	Timezone string         `json:"timezone"`
	Slots    []GreetingSlot `json:"slots"`
}

type GreetingSlot struct {
	Key    string `json:"key"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
}

type CountingConfig struct {
	Enabled bool   `json:"enabled"`
	Channel string `json:"channel"`
}

type AntiPingConfig struct {
	Enabled        bool     `json:"enabled"`
	ProtectedUsers []string `json:"protected_users"`
}

type AutoDeleteConfig struct {
	UserIDs []string `json:"user_ids"`
}

type APIConfig struct {
	IPLocateKey   string   `json:"iplocate_key"`
	SMSGatewayURL string   `json:"sms_gateway_url"`
	SMSAPIKey     string   `json:"sms_api_key"`
	AllowedUsers  []string `json:"allowed_users"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Tickets.PollSeconds <= 0 {
		cfg.Tickets.PollSeconds = 5
	}
	if cfg.Tickets.AlertSeconds <= 0 {
		cfg.Tickets.AlertSeconds = 3600
	}
	if cfg.Tickets.DeleteSeconds <= cfg.Tickets.AlertSeconds {
		cfg.Tickets.DeleteSeconds = cfg.Tickets.AlertSeconds * 2
	}
	if cfg.Tickets.GraceSeconds <= 0 {
		cfg.Tickets.GraceSeconds = 5
	}
	if cfg.Tickets.MenuRefreshMinutes <= 0 {
		cfg.Tickets.MenuRefreshMinutes = 60
	}
	if cfg.Tickets.MenuTitle == "" {
		cfg.Tickets.MenuTitle = "🎫 Support Tickets"
	}
	if cfg.Tickets.MenuDescription == "" {
		cfg.Tickets.MenuDescription = "Select a category below to open a ticket."
	}
	if cfg.Whitelist.CooldownHours <= 0 {
		cfg.Whitelist.CooldownHours = 24
	}
	if cfg.Whitelist.ConfirmTTLMinutes <= 0 {
		cfg.Whitelist.ConfirmTTLMinutes = 5
	}
	if cfg.Whitelist.NicknamePrefix == "" {
		cfg.Whitelist.NicknamePrefix = "SMP"
	}
	if cfg.Status.IntervalSeconds <= 0 {
		cfg.Status.IntervalSeconds = 60
	}
	if cfg.Status.Edition == "" {
		cfg.Status.Edition = "bedrock"
	}
	if cfg.Greetings.Timezone == "" {
		cfg.Greetings.Timezone = "Asia/Manila"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.RequestBackend == "" {
		cfg.Database.RequestBackend = "file"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/bot.db"
	}
	return &cfg, nil
}

func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
