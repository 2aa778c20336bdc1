package users

import (
	"kestrel/irc/access"
)

const (
	// AccountLoggedOut is the sentinel the protocol uses for a user
	// who signed out of services.
	AccountLoggedOut = "*"

	// BadgesUnknown is the placeholder badge value on the streaming
	// profile before the real badges are known.
	BadgesUnknown = "*"
)

type (
	User struct {
		NickName string
		Ident    string
		Host     string
		RealName string

		// Account is the durable services identity, empty when not
		// logged in or not yet disclosed.
		Account string

		// Badges carries the streaming-platform badge list, unused on
		// plain IRC networks.
		Badges string

		Class access.Class

		// Updated is the unix time of the last account-bearing
		// observation. Zero means never, 1 is a reset sentinel that
		// forces the next merge to take effect.
		Updated int64

		FirstSeen      int64
		LatestActivity int64
	}
)
