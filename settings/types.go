package settings

import (
	"kestrel/irc/networks"
	"kestrel/logger"
)

type (
	Config struct {
		Networks map[string]networks.Network `toml:"networks" validate:"required,min=1"`
		Logging  logger.Config               `toml:"logging" validate:"required"`
	}
)
