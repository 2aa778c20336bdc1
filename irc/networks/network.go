package networks

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"kestrel/helpers"
	"kestrel/irc/servers"
)

const defaultQueryDelay = 2 * time.Second

func (n *Network) String() string {
	return fmt.Sprintf("Enabled: %s, NetworkName: %s, Nick: %s, Twitch: %s, QueryDelay: %s, Channels: %d, HomeChannels: %d, Admins: %d, Servers: %d",
		helpers.StringToStatusIndicator(fmt.Sprintf("%t", n.Enabled)),
		n.NetworkName,
		n.Nick,
		helpers.StringToStatusIndicator(fmt.Sprintf("%t", n.Twitch)),
		n.GetQueryDelay(),
		len(n.Channels),
		len(n.HomeChannels),
		len(n.Admins),
		len(n.Servers))
}

func (n *Network) GetRandomServer() *servers.Server {
	if len(n.Servers) == 0 {
		return nil
	}
	randomIndex, err := rand.Int(rand.Reader, big.NewInt(int64(len(n.Servers))))
	if err != nil {
		return &n.Servers[0]
	}
	return &n.Servers[randomIndex.Int64()]
}

// GetQueryDelay returns the inter-request delay for discovery queries.
// Sending without a delay risks the server penalizing the client.
func (n *Network) GetQueryDelay() time.Duration {
	if n.QueryDelay <= 0 {
		return defaultQueryDelay
	}
	return time.Duration(n.QueryDelay) * time.Second
}

// IsHomeChannel reports whether classification is meaningful in channel.
func (n *Network) IsHomeChannel(channel string) bool {
	for _, home := range n.HomeChannels {
		if strings.EqualFold(home, channel) {
			return true
		}
	}
	return false
}

// IsAdminAccount reports whether account is one of the configured admins.
func (n *Network) IsAdminAccount(account string) bool {
	if account == "" {
		return false
	}
	for _, admin := range n.Admins {
		if strings.EqualFold(admin, account) {
			return true
		}
	}
	return false
}
