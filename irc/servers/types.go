package servers

type (
	Server struct {
		Host          string `toml:"host" validate:"required"`
		Port          int    `toml:"port" validate:"required"`
		SSL           bool   `toml:"ssl"`
		Pass          string `toml:"pass"`
		SkipSslVerify bool   `toml:"skipSslVerify"`
		IPv6          bool   `toml:"ipv6"`
	}
)
