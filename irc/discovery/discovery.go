package discovery

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kestrel/irc/channels"

	"github.com/google/uuid"
)

func New(sender Sender, table *channels.Table, delay time.Duration, listModes func() string, twitch bool, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sender:    sender,
		table:     table,
		delay:     delay,
		listModes: listModes,
		twitch:    twitch,
		log:       log,
		waiters:   make(map[waitKey]chan struct{}),
	}
}

// OnHeartbeat is the scheduling tick, invoked on PING and at the end
// of the MOTD. It claims every undiscovered channel and launches one
// sequencing run over the batch, or does nothing when a run is already
// active.
func (o *Orchestrator) OnHeartbeat() {
	if o.twitch {
		// The streaming platform rejects these queries outright.
		return
	}

	if !o.running.CompareAndSwap(false, true) {
		return
	}

	batch := o.table.Collect()
	if len(batch) == 0 {
		o.running.Store(false)
		return
	}

	go o.run(batch)
}

// Active reports whether a sequencing run is in flight.
func (o *Orchestrator) Active() bool {
	return o.running.Load()
}

// Observe resolves the suspension record for a reply kind on a
// channel, resuming the sequencing run waiting on it. Replies nobody
// waits for are dropped.
func (o *Orchestrator) Observe(kind ReplyKind, channel string) {
	key := waitKey{kind: kind, channel: strings.ToLower(channel)}

	o.mu.Lock()
	ch, ok := o.waiters[key]
	if ok {
		delete(o.waiters, key)
	}
	o.mu.Unlock()

	if ok {
		close(ch)
	}
}

func (o *Orchestrator) run(batch []channels.Target) {
	defer o.running.Store(false)

	log := o.log.With("run", uuid.New().String()[:8])
	log.Debug("Starting channel discovery", "channels", len(batch))

	for _, target := range batch {
		o.query(log, target)
		o.table.Finish(target.Name)
	}

	log.Debug("Channel discovery complete")
}

// query walks one channel through TOPIC, WHO, MODE and the list-mode
// lookups. Channels are queried strictly sequentially to respect the
// server's flood limits; each awaited reply is correlated to its
// request by the fact that only one query of a kind is outstanding for
// the channel being processed.
func (o *Orchestrator) query(log *slog.Logger, target channels.Target) {
	if target.NeedTopic {
		wait := o.expect(ReplyTopic, target.Name)
		o.send(log, "TOPIC "+target.Name)
		<-wait
		o.pause(1)
	}

	wait := o.expect(ReplyWho, target.Name)
	o.send(log, "WHO "+target.Name)
	<-wait
	o.pause(1)

	wait = o.expect(ReplyMode, target.Name)
	o.send(log, "MODE "+target.Name)
	<-wait
	o.pause(1)

	// List-type mode replies have no single predictable reply type, so
	// these are not awaited; a doubled delay keeps the pace safe.
	for _, letter := range o.listModes() {
		o.send(log, fmt.Sprintf("MODE %s +%c", target.Name, letter))
		o.pause(2)
	}
}

// expect registers the suspension record before the query is sent, so
// a reply can never slip past the waiter.
func (o *Orchestrator) expect(kind ReplyKind, channel string) <-chan struct{} {
	ch := make(chan struct{})

	o.mu.Lock()
	o.waiters[waitKey{kind: kind, channel: strings.ToLower(channel)}] = ch
	o.mu.Unlock()

	return ch
}

func (o *Orchestrator) send(log *slog.Logger, raw string) {
	log.Debug("Discovery query", "raw", raw)
	if err := o.sender.SendRaw(raw); err != nil {
		log.Error("Error sending discovery query", "raw", raw, "error", err)
	}
}

func (o *Orchestrator) pause(multiplier int) {
	time.Sleep(time.Duration(multiplier) * o.delay)
}
