package main

import (
	"crypto/tls"
	"log/slog"
	"strings"
	"time"

	"kestrel/helpers"
	"kestrel/irc/channels"
	"kestrel/irc/discovery"
	"kestrel/irc/networks"
	"kestrel/irc/state"
	"kestrel/irc/users"
	"kestrel/logger"

	"github.com/lrstanley/girc"
)

// Numerics girc has no names for.
const (
	rplWhoisRegNick = "307"
	rplWhoisAccount = "330"
)

const accountNotify = "ACCOUNT"

type session struct {
	client  *girc.Client
	network *networks.Network
	store   *users.Store
	table   *channels.Table
	orch    *discovery.Orchestrator
	log     *slog.Logger
}

// rawSender sends discovery queries quietly through the connection.
type rawSender struct {
	client *girc.Client
}

func (r rawSender) SendRaw(raw string) error {
	return r.client.Cmd.SendRaw(raw)
}

func newSession(network *networks.Network, store *users.Store) *session {
	server := network.GetRandomServer()
	if server == nil {
		logger.Network(network.NetworkName).Error("Network has no servers defined")
		return nil
	}

	client := girc.New(girc.Config{
		Server:     server.Host,
		Port:       server.Port,
		ServerPass: server.Pass,
		Nick:       network.Nick,
		User:       orDefault(network.User, network.Nick),
		Name:       orDefault(network.Name, network.Nick),
		Version:    network.Version,
		SSL:        server.SSL,
		TLSConfig: &tls.Config{
			InsecureSkipVerify: server.SkipSslVerify,
		},
		PingDelay: time.Duration(network.PingDelay) * time.Second,
		SupportedCaps: map[string][]string{
			"account-notify": nil,
			"account-tag":    nil,
			"extended-join":  nil,
		},
	})

	table := channels.NewTable()
	log := logger.Network(network.NetworkName)

	listModes := func() string {
		// First CHANMODES group holds the list-type modes.
		if value, ok := client.GetServerOption("CHANMODES"); ok {
			if groups := strings.Split(value, ","); len(groups) > 0 && groups[0] != "" {
				return groups[0]
			}
		}
		return "b"
	}

	s := &session{
		client:  client,
		network: network,
		store:   store,
		table:   table,
		orch: discovery.New(rawSender{client: client}, table, network.GetQueryDelay(),
			listModes, network.Twitch, log.With("service", "discovery")),
		log: log,
	}

	s.registerHandlers()

	return s
}

// run connects and reconnects until the process dies.
func (s *session) run() {
	for {
		s.log.Info("Connecting", "server", s.client.Config.Server, "port", s.client.Config.Port)

		if err := s.client.Connect(); err != nil {
			s.log.Error("Connection lost", "error", err)
		}

		time.Sleep(30 * time.Second)
	}
}

func (s *session) registerHandlers() {
	c := s.client

	c.Handlers.Add(girc.CONNECTED, func(c *girc.Client, e girc.Event) {
		s.log.Info("Connected", "nick", c.GetNick())
		s.store.SetSelf(c.GetNick())

		if s.network.NickServPass != "" {
			c.Cmd.Message("NickServ", "IDENTIFY "+s.network.NickServPass)
		}

		for _, channel := range s.network.Channels {
			c.Cmd.Join(channel)
		}
	})

	// The heartbeat: server keepalives double as the discovery and
	// maintenance tick.
	c.Handlers.Add(girc.PING, func(c *girc.Client, e girc.Event) {
		s.heartbeat()
	})
	c.Handlers.Add(girc.RPL_ENDOFMOTD, func(c *girc.Client, e girc.Event) {
		s.heartbeat()
	})
	c.Handlers.Add(girc.ERR_NOMOTD, func(c *girc.Client, e girc.Event) {
		s.heartbeat()
	})

	c.Handlers.Add(girc.JOIN, func(c *girc.Client, e girc.Event) {
		if e.Source == nil || len(e.Params) == 0 {
			return
		}
		channel := e.Params[0]

		if e.Source.Name == c.GetNick() {
			s.table.SelfJoin(channel)
			return
		}

		s.table.AddMember(channel, e.Source.Name, nil)

		user := users.User{
			NickName: e.Source.Name,
			Ident:    e.Source.Ident,
			Host:     e.Source.Host,
		}
		// extended-join carries the account as the second parameter.
		if len(e.Params) >= 2 {
			user.Account = e.Params[1]
		}
		s.store.Postprocess(&user, channel, girc.JOIN, e.Timestamp)
	})

	c.Handlers.Add(girc.PART, func(c *girc.Client, e girc.Event) {
		if e.Source == nil || len(e.Params) == 0 {
			return
		}
		channel := e.Params[0]

		if e.Source.Name == c.GetNick() {
			s.table.SelfPart(channel)
			return
		}
		s.table.RemoveMember(channel, e.Source.Name)
	})

	c.Handlers.Add(girc.KICK, func(c *girc.Client, e girc.Event) {
		if len(e.Params) < 2 {
			return
		}
		channel, victim := e.Params[0], e.Params[1]

		if victim == c.GetNick() {
			s.table.SelfPart(channel)
			return
		}
		s.table.RemoveMember(channel, victim)
	})

	c.Handlers.Add(girc.TOPIC, func(c *girc.Client, e girc.Event) {
		if len(e.Params) == 0 {
			return
		}
		s.table.SetTopic(e.Params[0], e.Last())
		s.table.TopicKnown(e.Params[0])
	})

	c.Handlers.Add(girc.RPL_TOPIC, func(c *girc.Client, e girc.Event) {
		if len(e.Params) < 2 {
			return
		}
		channel := e.Params[1]
		s.table.SetTopic(channel, e.Last())
		s.table.TopicKnown(channel)
		s.orch.Observe(discovery.ReplyTopic, channel)
	})

	c.Handlers.Add(girc.RPL_NOTOPIC, func(c *girc.Client, e girc.Event) {
		if len(e.Params) < 2 {
			return
		}
		channel := e.Params[1]
		s.table.TopicKnown(channel)
		s.orch.Observe(discovery.ReplyTopic, channel)
	})

	c.Handlers.Add(girc.RPL_WHOREPLY, func(c *girc.Client, e girc.Event) {
		// <me> <channel> <ident> <host> <server> <nick> <flags> :<hop> <realname>
		if len(e.Params) < 7 {
			return
		}
		channel, nick, flags := e.Params[1], e.Params[5], e.Params[6]

		s.table.AddMember(channel, nick, helpers.GetModes(flags))

		realname := e.Last()
		if idx := strings.Index(realname, " "); idx >= 0 {
			realname = realname[idx+1:]
		}

		user := users.User{
			NickName: nick,
			Ident:    e.Params[2],
			Host:     e.Params[3],
			RealName: realname,
		}
		s.store.Postprocess(&user, channel, girc.RPL_WHOREPLY, e.Timestamp)
	})

	c.Handlers.Add(girc.RPL_ENDOFWHO, func(c *girc.Client, e girc.Event) {
		if len(e.Params) < 2 {
			return
		}
		s.orch.Observe(discovery.ReplyWho, e.Params[1])
	})

	c.Handlers.Add(girc.RPL_CHANNELMODEIS, func(c *girc.Client, e girc.Event) {
		if len(e.Params) < 3 {
			return
		}
		channel := e.Params[1]
		s.table.SetModes(channel, strings.Join(e.Params[2:], " "))
		s.orch.Observe(discovery.ReplyMode, channel)
	})

	c.Handlers.Add(girc.QUIT, func(c *girc.Client, e girc.Event) {
		if e.Source == nil {
			return
		}
		s.store.OnQuit(e.Source.Name)
		s.table.DropMember(e.Source.Name)
	})

	c.Handlers.Add(girc.NICK, func(c *girc.Client, e girc.Event) {
		if e.Source == nil {
			return
		}
		// Covers our own renames too, girc has settled on the new nick
		// by the time user handlers run.
		s.store.SetSelf(c.GetNick())

		newNick := e.Last()
		s.store.OnNick(e.Source.Name, newNick)
		s.table.RenameMember(e.Source.Name, newNick)
	})

	c.Handlers.Add(accountNotify, func(c *girc.Client, e girc.Event) {
		if e.Source == nil || len(e.Params) == 0 {
			return
		}
		user := users.User{
			NickName: e.Source.Name,
			Ident:    e.Source.Ident,
			Host:     e.Source.Host,
			Account:  e.Params[0],
		}
		s.store.Postprocess(&user, "", accountNotify, e.Timestamp)
	})

	c.Handlers.Add(rplWhoisAccount, func(c *girc.Client, e girc.Event) {
		if len(e.Params) < 3 {
			return
		}
		user := users.User{
			NickName: e.Params[1],
			Account:  e.Params[2],
		}
		s.store.Postprocess(&user, "", rplWhoisAccount, e.Timestamp)
	})

	c.Handlers.Add(rplWhoisRegNick, func(c *girc.Client, e girc.Event) {
		if len(e.Params) < 2 {
			return
		}
		// A registered nick is its own account name.
		user := users.User{
			NickName: e.Params[1],
			Account:  e.Params[1],
		}
		s.store.Postprocess(&user, "", rplWhoisRegNick, e.Timestamp)
	})

	c.Handlers.Add(girc.RPL_WHOISUSER, func(c *girc.Client, e girc.Event) {
		if len(e.Params) < 4 {
			return
		}
		user := users.User{
			NickName: e.Params[1],
			Ident:    e.Params[2],
			Host:     e.Params[3],
			RealName: e.Last(),
		}
		s.store.Postprocess(&user, "", girc.RPL_WHOISUSER, e.Timestamp)
	})

	c.Handlers.Add(girc.PRIVMSG, func(c *girc.Client, e girc.Event) {
		st := state.Init(c, e, s.network, s.store, s.table)
		if st.IsSelf() || st.Action() == "" {
			return
		}
		handleCommand(st)
	})
}

// heartbeat runs the periodic chores from the event loop.
func (s *session) heartbeat() {
	s.store.Maintain(time.Now())
	s.orch.OnHeartbeat()
}

func orDefault(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
