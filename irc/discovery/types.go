package discovery

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"kestrel/irc/channels"
)

type (
	// Sender is the one outbound primitive discovery needs: a raw
	// protocol line, sent without user-facing echo.
	Sender interface {
		SendRaw(raw string) error
	}

	// ReplyKind names the protocol reply a sequencing run suspends on.
	ReplyKind string

	// waitKey is an explicit suspension record: the run is waiting for
	// a reply of this kind about this channel.
	waitKey struct {
		kind    ReplyKind
		channel string
	}

	// Orchestrator drives joined channels through the discovery query
	// sequence, one channel at a time, rate limited.
	Orchestrator struct {
		sender Sender
		table  *channels.Table
		delay  time.Duration
		twitch bool
		log    *slog.Logger

		// listModes yields the network's list-type mode letters from
		// ISUPPORT, e.g. "beI".
		listModes func() string

		// running is the non-blocking task lock: at most one
		// sequencing run exists at a time.
		running atomic.Bool

		mu      sync.Mutex
		waiters map[waitKey]chan struct{}
	}
)

const (
	ReplyTopic ReplyKind = "topic"
	ReplyWho   ReplyKind = "who"
	ReplyMode  ReplyKind = "mode"
)
