package discovery

import (
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"kestrel/irc/channels"
)

type fakeSender struct {
	mu    sync.Mutex
	lines []string
	sent  chan string
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan string, 64)}
}

func (f *fakeSender) SendRaw(raw string) error {
	f.mu.Lock()
	f.lines = append(f.lines, raw)
	f.mu.Unlock()
	f.sent <- raw
	return nil
}

func (f *fakeSender) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(sender Sender, table *channels.Table, listModes string) *Orchestrator {
	return New(sender, table, time.Millisecond, func() string { return listModes }, false, discard())
}

// next pulls one sent line or fails the test.
func next(t *testing.T, sender *fakeSender) string {
	t.Helper()
	select {
	case line := <-sender.sent:
		return line
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a discovery query")
		return ""
	}
}

// feed answers each query the run sends until it has sent want lines.
func feed(t *testing.T, o *Orchestrator, sender *fakeSender, want int) {
	t.Helper()
	for i := 0; i < want; i++ {
		line := next(t, sender)
		switch {
		case len(line) > 6 && line[:6] == "TOPIC ":
			o.Observe(ReplyTopic, line[6:])
		case len(line) > 4 && line[:4] == "WHO ":
			o.Observe(ReplyWho, line[4:])
		case len(line) > 5 && line[:5] == "MODE " && !containsSpaceAfter(line[5:]):
			o.Observe(ReplyMode, line[5:])
		default:
			// List-mode queries are not awaited.
		}
	}
}

func containsSpaceAfter(rest string) bool {
	for _, r := range rest {
		if r == ' ' {
			return true
		}
	}
	return false
}

func waitIdle(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for o.Active() {
		if time.Now().After(deadline) {
			t.Fatal("sequencing run never finished")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestQuerySequencePerChannel(t *testing.T) {
	table := channels.NewTable()
	table.SelfJoin("#a")
	table.SelfJoin("#b")

	sender := newFakeSender()
	o := newTestOrchestrator(sender, table, "be")

	o.OnHeartbeat()
	feed(t, o, sender, 10)
	waitIdle(t, o)

	want := []string{
		"TOPIC #a",
		"WHO #a",
		"MODE #a",
		"MODE #a +b",
		"MODE #a +e",
		"TOPIC #b",
		"WHO #b",
		"MODE #b",
		"MODE #b +b",
		"MODE #b +e",
	}
	if got := sender.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("query sequence = %v, want %v", got, want)
	}

	if state, _ := table.State("#a"); state != channels.QueryDone {
		t.Errorf("#a state = %s, want queried", state)
	}
	if state, _ := table.State("#b"); state != channels.QueryDone {
		t.Errorf("#b state = %s, want queried", state)
	}
}

func TestKnownTopicSkipsTopicQuery(t *testing.T) {
	table := channels.NewTable()
	table.SelfJoin("#a")
	table.TopicKnown("#a")

	sender := newFakeSender()
	o := newTestOrchestrator(sender, table, "b")

	o.OnHeartbeat()
	feed(t, o, sender, 3)
	waitIdle(t, o)

	want := []string{"WHO #a", "MODE #a", "MODE #a +b"}
	if got := sender.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("query sequence = %v, want %v", got, want)
	}
}

func TestHeartbeatWhileActiveStartsNothing(t *testing.T) {
	table := channels.NewTable()
	table.SelfJoin("#a")

	sender := newFakeSender()
	o := newTestOrchestrator(sender, table, "")

	o.OnHeartbeat()

	// The run is now parked on the TOPIC reply.
	first := next(t, sender)
	if first != "TOPIC #a" {
		t.Fatalf("first query = %q", first)
	}

	table.SelfJoin("#b")
	o.OnHeartbeat()

	if !o.Active() {
		t.Fatal("run should still be active")
	}
	if state, _ := table.State("#b"); state != channels.QueryUnset {
		t.Errorf("#b was claimed by a dropped heartbeat, state = %s", state)
	}

	o.Observe(ReplyTopic, "#a")
	feed(t, o, sender, 2)
	waitIdle(t, o)

	// Only now may a fresh heartbeat pick up #b.
	o.OnHeartbeat()
	if got := next(t, sender); got != "TOPIC #b" {
		t.Errorf("after idle, first query = %q, want TOPIC #b", got)
	}
	o.Observe(ReplyTopic, "#b")
	feed(t, o, sender, 2)
	waitIdle(t, o)
}

func TestHeartbeatWithNothingToDoStaysIdle(t *testing.T) {
	sender := newFakeSender()
	o := newTestOrchestrator(sender, channels.NewTable(), "b")

	o.OnHeartbeat()

	if o.Active() {
		t.Error("empty batch should release the task lock immediately")
	}
	if len(sender.all()) != 0 {
		t.Errorf("queries sent with nothing to discover: %v", sender.all())
	}
}

func TestTwitchProfileNeverQueries(t *testing.T) {
	table := channels.NewTable()
	table.SelfJoin("#a")

	sender := newFakeSender()
	o := New(sender, table, time.Millisecond, func() string { return "b" }, true, discard())

	o.OnHeartbeat()

	if o.Active() {
		t.Error("twitch profile started a run")
	}
	if len(sender.all()) != 0 {
		t.Errorf("twitch profile sent queries: %v", sender.all())
	}
	if state, _ := table.State("#a"); state != channels.QueryUnset {
		t.Errorf("twitch profile claimed a channel, state = %s", state)
	}
}

func TestUnsolicitedRepliesAreDropped(t *testing.T) {
	sender := newFakeSender()
	o := newTestOrchestrator(sender, channels.NewTable(), "b")

	// Nobody is waiting; this must not panic or wedge anything.
	o.Observe(ReplyTopic, "#a")
	o.Observe(ReplyWho, "#a")
}
