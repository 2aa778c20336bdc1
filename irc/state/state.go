package state

import (
	"fmt"
	"strings"

	"kestrel/helpers"
	"kestrel/irc/access"
	"kestrel/irc/channels"
	"kestrel/irc/networks"
	"kestrel/irc/users"

	"github.com/lrstanley/girc"
)

const actionTrigger = "!"

// Init builds the event state: the sender observation is merged and
// classified through the store, so s.User is the fully resolved
// record.
func Init(c *girc.Client, e girc.Event, network *networks.Network, store *users.Store, table *channels.Table) State {
	s := State{
		Client:  c,
		Event:   e,
		Network: network,
		Store:   store,
		Table:   table,
		Channel: helpers.FindChannelNameInEventParams(e),
	}

	if e.Source != nil && e.Source.Name != "" {
		user := users.User{
			NickName: e.Source.Name,
			Ident:    e.Source.Ident,
			Host:     e.Source.Host,
		}
		if account, ok := e.Tags.Get("account"); ok {
			user.Account = account
		}
		if badges, ok := e.Tags.Get("badges"); ok {
			user.Badges = badges
		}
		if network.Twitch && user.Account == "" {
			// Twitch identity is inline: the login name is the account.
			user.Account = e.Source.Name
		}

		store.Postprocess(&user, s.Channel, e.Command, e.Timestamp)
		s.User = &user
	}

	s.parseCommand()

	return s
}

func (s *State) parseCommand() {
	action := s.Event.Last()
	if !strings.HasPrefix(action, actionTrigger) {
		return
	}

	action = strings.TrimPrefix(action, actionTrigger)
	parts := strings.SplitN(action, " ", 2)

	message := ""
	if len(parts) > 1 {
		message = strings.TrimSpace(parts[1])
	}

	s.Command = Command{Action: strings.TrimSpace(parts[0]), Message: message}
}

func (s *State) String() string {
	return girc.Fmt(fmt.Sprintf("{b}Channel{b}: %s, {b}User{b}: %s, {b}Command{b}: %s",
		s.Channel,
		s.User,
		s.Command.Action))
}

func (s *State) IsSelf() bool {
	return s.Event.Source != nil && s.Event.Source.Name == s.Client.GetNick()
}

func (s *State) IsAdmin() bool {
	return s.User != nil && s.User.Class == access.ClassAdmin
}

func (s *State) IsBlacklisted() bool {
	return s.User != nil && s.User.Class == access.ClassBlacklist
}

func (s *State) Action() string {
	return s.Command.Action
}

func (s *State) IsAction(action string) bool {
	return s.Command.Action == action
}

func (s *State) Message() string {
	return s.Command.Message
}

func (s *State) SendError(response string) {
	s.Client.Cmd.Reply(s.Event, girc.Fmt("{b}{red}[ERROR] {reset}"+response))
}

func (s *State) SendSuccess(response string) {
	s.Client.Cmd.Reply(s.Event, girc.Fmt("{b}{green}[SUCCESS] {reset}"+response))
}

func (s *State) SendInfo(response string) {
	s.Client.Cmd.Reply(s.Event, girc.Fmt("{b}{blue}[INFO] {reset}"+response))
}
