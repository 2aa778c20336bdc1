package channels

import "sync"

type (
	// QueryState tracks how far channel discovery has progressed.
	// It only ever moves forward; QueryDone is terminal until the
	// channel is parted and rejoined.
	QueryState int

	Channel struct {
		Name    string
		Topic   string
		Modes   string
		Members map[string][]string
		State   QueryState
	}

	// Table holds every channel the client currently occupies on one
	// connection. The mutex is for the discovery task goroutine, which
	// touches the table between its suspension points while the event
	// loop keeps running.
	Table struct {
		mu       sync.Mutex
		channels map[string]*Channel
	}

	// Target is a snapshot of one channel claimed by a discovery run.
	Target struct {
		Name      string
		NeedTopic bool
	}
)

const (
	QueryUnset QueryState = iota
	QueryTopicKnown
	QueryQueued
	QueryDone
)

func (q QueryState) String() string {
	switch q {
	case QueryTopicKnown:
		return "topicKnown"
	case QueryQueued:
		return "queued"
	case QueryDone:
		return "queried"
	default:
		return "unset"
	}
}
