package state

import (
	"kestrel/irc/channels"
	"kestrel/irc/networks"
	"kestrel/irc/users"

	"github.com/lrstanley/girc"
)

type (
	Command struct {
		Action  string
		Message string
	}

	// State is the per-event view handed to the command layer: the
	// event plus its sender resolved through the identity store.
	State struct {
		Client  *girc.Client
		Event   girc.Event
		Network *networks.Network
		Store   *users.Store
		Table   *channels.Table
		User    *users.User
		Channel string
		Command Command
	}
)
