package networks

import (
	"kestrel/irc/servers"
)

type (
	Network struct {
		Enabled      bool   `toml:"enabled"`
		NetworkName  string `toml:"-"`
		Nick         string `toml:"nick" validate:"required"`
		User         string `toml:"user"`
		Name         string `toml:"name"`
		NickServPass string `toml:"nickServPass"`
		Throttle     int    `toml:"throttle"`
		Burst        int    `toml:"burst"`
		PingDelay    int    `toml:"pingDelay"`
		Version      string `toml:"version"`

		// Twitch marks the streaming-platform profile: no channel
		// discovery, identity is authoritative straight from tags.
		Twitch bool `toml:"twitch"`

		// QueryDelay is the inter-request delay in seconds between
		// channel discovery queries. Zero means the 2 second default.
		QueryDelay int `toml:"queryDelay"`

		Channels     []string         `toml:"channels"`
		HomeChannels []string         `toml:"homeChannels"`
		Admins       []string         `toml:"admins"`
		AccountsFile string           `toml:"accountsFile"`
		Servers      []servers.Server `toml:"servers" validate:"omitempty,dive"`
	}
)
