package main

import (
	"fmt"

	"kestrel/helpers"
	"kestrel/irc/state"
	"kestrel/logger"
)

// handleCommand is the minimal admin surface over the resolved state.
func handleCommand(s state.State) {
	if s.IsBlacklisted() {
		return
	}

	switch s.Action() {
	case "reload":
		if !s.IsAdmin() {
			s.SendError("reload is admin only")
			return
		}
		s.Store.Reload()
		s.SendSuccess("account lists reloaded")

	case "seen":
		nick := s.Message()
		if nick == "" {
			s.SendError("usage: !seen <nick>")
			return
		}
		user, ok := s.Store.Get(nick)
		if !ok {
			s.SendInfo("I have not seen " + nick)
			return
		}
		s.SendInfo(user.Seen())

	case "access":
		nick := s.Message()
		if nick == "" {
			if s.User == nil {
				return
			}
			s.SendInfo(fmt.Sprintf("%s is %s here%s", s.User.NickName, s.User.Class, opSuffix(s, s.User.NickName)))
			return
		}
		user, ok := s.Store.Get(nick)
		if !ok {
			s.SendInfo("I have not seen " + nick)
			return
		}
		s.SendInfo(fmt.Sprintf("%s is %s here%s", user.NickName, user.Class, opSuffix(s, user.NickName)))

	default:
		logger.Debug("Unknown command", "action", s.Action())
	}
}

func opSuffix(s state.State, nick string) string {
	modes, ok := s.Table.Member(s.Channel, nick)
	if ok && helpers.ModeHas(modes, "@") {
		return " (opped)"
	}
	return ""
}
