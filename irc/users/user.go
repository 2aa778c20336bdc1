package users

import (
	"fmt"
	"time"

	"kestrel/helpers"
	"kestrel/irc/access"
)

func (u *User) String() string {
	return fmt.Sprintf("NickName: %s, Account: %s, Class: %s, Ident: %s, Host: %s, Updated: %s, FirstSeen: %s ago",
		u.NickName,
		u.Account,
		u.Class,
		u.Ident,
		u.Host,
		helpers.UnixTimeToHumanReadable(u.Updated),
		helpers.UnixTimeToHumanReadable(u.FirstSeen))
}

func (u *User) Touch() {
	u.LatestActivity = time.Now().Unix()
}

// Seen describes when the user was last active.
func (u *User) Seen() string {
	if u.LatestActivity == 0 {
		return "I first saw " + u.NickName + " " + helpers.UnixTimeToHumanReadable(u.FirstSeen) + " ago but have not seen any chats"
	}

	return u.NickName + " was last seen " + helpers.UnixTimeToHumanReadable(u.LatestActivity) + " ago"
}

func (u *User) IsAdmin() bool {
	return u.Class == access.ClassAdmin
}

func (u *User) IsBlacklisted() bool {
	return u.Class == access.ClassBlacklist
}

func (u *User) IsLoggedIn() bool {
	return u.Account != "" && u.Account != AccountLoggedOut
}

// Meld folds a partial observation into u, field by field. An incoming
// value only fills a field u does not have yet; class keeps the higher
// of the two so a plain merge can never downgrade, and timestamps keep
// the most recent observation.
func (u *User) Meld(incoming *User) {
	if incoming.Ident != "" && u.Ident == "" {
		u.Ident = incoming.Ident
	}
	if incoming.Host != "" && u.Host == "" {
		u.Host = incoming.Host
	}
	if incoming.RealName != "" && u.RealName == "" {
		u.RealName = incoming.RealName
	}
	if incoming.Account != "" && u.Account == "" {
		u.Account = incoming.Account
	}
	if incoming.Badges != "" && u.Badges == "" {
		u.Badges = incoming.Badges
	}
	if incoming.Class > u.Class {
		u.Class = incoming.Class
	}
	if incoming.Updated > u.Updated {
		u.Updated = incoming.Updated
	}
	if incoming.FirstSeen != 0 && (u.FirstSeen == 0 || incoming.FirstSeen < u.FirstSeen) {
		u.FirstSeen = incoming.FirstSeen
	}
	if incoming.LatestActivity > u.LatestActivity {
		u.LatestActivity = incoming.LatestActivity
	}
}
