package channels

import (
	"sort"
	"strings"
)

func NewTable() *Table {
	return &Table{
		channels: make(map[string]*Channel),
	}
}

func key(name string) string {
	return strings.ToLower(name)
}

// SelfJoin records a freshly joined channel as undiscovered. Joining a
// channel we already track keeps whatever progress it has.
func (t *Table) SelfJoin(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.channels[key(name)]; ok {
		return
	}

	t.channels[key(name)] = &Channel{
		Name:    name,
		Members: make(map[string][]string),
		State:   QueryUnset,
	}
}

// SelfPart drops the channel unconditionally. A discovery task holding
// a stale Target for it will finish into nothing, which is harmless.
func (t *Table) SelfPart(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.channels, key(name))
}

// TopicKnown marks the topic as already seen so discovery can skip the
// TOPIC query. Advisory only, never moves the state backward.
func (t *Table) TopicKnown(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	channel, ok := t.channels[key(name)]
	if !ok {
		return
	}
	if channel.State == QueryUnset {
		channel.State = QueryTopicKnown
	}
}

// Collect claims every channel not yet queued or queried for a
// discovery run and returns the batch in channel order.
func (t *Table) Collect() []Target {
	t.mu.Lock()
	defer t.mu.Unlock()

	var batch []Target
	for _, channel := range t.channels {
		if channel.State == QueryQueued || channel.State == QueryDone {
			continue
		}
		batch = append(batch, Target{
			Name:      channel.Name,
			NeedTopic: channel.State != QueryTopicKnown,
		})
		channel.State = QueryQueued
	}

	sort.Slice(batch, func(i, j int) bool {
		return batch[i].Name < batch[j].Name
	})

	return batch
}

// Finish moves the channel to the terminal queried state.
func (t *Table) Finish(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	channel, ok := t.channels[key(name)]
	if !ok {
		return
	}
	channel.State = QueryDone
}

// State reports the discovery state of a channel.
func (t *Table) State(name string) (QueryState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	channel, ok := t.channels[key(name)]
	if !ok {
		return QueryUnset, false
	}
	return channel.State, true
}

func (t *Table) SetTopic(name string, topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if channel, ok := t.channels[key(name)]; ok {
		channel.Topic = topic
	}
}

func (t *Table) SetModes(name string, modes string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if channel, ok := t.channels[key(name)]; ok {
		channel.Modes = modes
	}
}

func (t *Table) AddMember(name string, nick string, modes []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if channel, ok := t.channels[key(name)]; ok {
		channel.Members[nick] = modes
	}
}

func (t *Table) RemoveMember(name string, nick string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if channel, ok := t.channels[key(name)]; ok {
		delete(channel.Members, nick)
	}
}

// RenameMember migrates a nick across every channel it occupies.
func (t *Table) RenameMember(oldNick string, newNick string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, channel := range t.channels {
		if modes, ok := channel.Members[oldNick]; ok {
			delete(channel.Members, oldNick)
			channel.Members[newNick] = modes
		}
	}
}

// DropMember removes a nick from every channel, used on quit.
func (t *Table) DropMember(nick string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, channel := range t.channels {
		delete(channel.Members, nick)
	}
}

// Member reports the prefix modes a nick holds in a channel.
func (t *Table) Member(name string, nick string) ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	channel, ok := t.channels[key(name)]
	if !ok {
		return nil, false
	}
	modes, ok := channel.Members[nick]
	return modes, ok
}

// Topic reports the stored topic for a channel.
func (t *Table) Topic(name string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	channel, ok := t.channels[key(name)]
	if !ok {
		return "", false
	}
	return channel.Topic, true
}
