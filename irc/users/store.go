package users

import (
	"encoding/json"
	"time"

	"kestrel/birdbase"
	"kestrel/irc/access"
	"kestrel/irc/networks"
	"kestrel/logger"
)

// rehashInterval is how often the periodic map compaction reschedules
// itself.
const rehashInterval = 3 * time.Hour

// saveDelay is the debounce window for database writes.
const saveDelay = 3 * time.Second

// Account-bearing event types: extended JOIN, explicit account change
// and the WHOIS replies that disclose the services account.
var accountEvents = map[string]struct{}{
	"JOIN":    {},
	"ACCOUNT": {},
	"330":     {}, // RPL_WHOISACCOUNT
	"307":     {}, // RPL_WHOISREGNICK
}

// Store is the canonical identity record per known user on one
// connection. All map mutation happens from the event loop, one event
// at a time; the flusher goroutine only ever sees marshaled snapshots.
type Store struct {
	network *networks.Network
	lists   *access.Lists

	// self is the nickname the connection actually holds, which can
	// differ from the configured one when that was taken.
	self string

	users map[string]*User

	// lastChannel remembers the channel each nick was last classified
	// for, so repeated events in the same channel skip the lookup.
	lastChannel map[string]string

	// nextRehash is when the periodic map compaction is due.
	nextRehash time.Time

	// saves hands snapshots to the flusher. Capacity one: a newer
	// snapshot replaces a pending one instead of queueing behind it.
	saves     chan []byte
	saveDelay time.Duration
	persist   func(snapshot []byte)
}

func NewStore(network *networks.Network, lists *access.Lists) *Store {
	s := &Store{
		network:     network,
		lists:       lists,
		self:        network.Nick,
		users:       make(map[string]*User),
		lastChannel: make(map[string]string),
		nextRehash:  time.Now().Add(rehashInterval),
		saves:       make(chan []byte, 1),
		saveDelay:   saveDelay,
	}
	s.persist = s.writeSnapshot

	go s.flusher()

	return s
}

// SetSelf records the nickname the connection currently holds, so
// self-detection keeps working after a nick fallback or rename.
func (s *Store) SetSelf(nick string) {
	if nick != "" {
		s.self = nick
	}
}

// Postprocess merges an observation into the stored record for the
// user's nickname, resolves its classification and writes the fully
// resolved record back into user so downstream consumers see it.
func (s *Store) Postprocess(user *User, channel string, eventType string, eventTime time.Time) {
	if user == nil || user.NickName == "" {
		return
	}
	if eventTime.IsZero() {
		eventTime = time.Now()
	}

	// Our own traffic carries nothing to learn on plain IRC networks.
	if !s.network.Twitch && user.NickName == s.self {
		return
	}

	stored, ok := s.users[user.NickName]
	if !ok {
		fresh := *user
		if fresh.FirstSeen == 0 {
			fresh.FirstSeen = eventTime.Unix()
		}
		stored = &fresh
		s.users[user.NickName] = stored
	}

	if s.network.Twitch {
		stored.Meld(user)
		if stored.Badges == BadgesUnknown {
			stored.Badges = ""
		}
	} else {
		if s.isAccountBearing(stored, user, eventType) {
			if user.Account == AccountLoggedOut {
				// Signed out of services: the old account no longer
				// vouches for anything.
				stored.Account = ""
				stored.Class = access.ClassAnyone
				stored.Updated = 1
				user.Account = ""
				user.Class = access.ClassUnset
				delete(s.lastChannel, user.NickName)
			} else {
				user.Class = s.resolve(user.Account, channel)
				user.Updated = eventTime.Unix()
				stored.Account = user.Account
				// Force the finalization below to recompute against
				// the fresh account.
				delete(s.lastChannel, user.NickName)
			}
		}
		stored.Meld(user)
	}

	s.finalize(stored, channel)
	stored.Touch()

	*user = *stored
	s.Save()
}

// finalize settles the classification of a stored record for the
// channel the event happened in.
func (s *Store) finalize(stored *User, channel string) {
	switch {
	case stored.Class == access.ClassAdmin:
		// Admin is permanent for the process lifetime.

	case s.network.Twitch && stored.NickName == s.self:
		stored.Class = access.ClassAdmin

	case channel == "" || !s.network.IsHomeChannel(channel):
		// Classification only means something in home channels.
		stored.Class = access.ClassAnyone
		delete(s.lastChannel, stored.NickName)

	default:
		if last, ok := s.lastChannel[stored.NickName]; !ok || last != channel {
			stored.Class = s.resolve(stored.Account, channel)
		}
		s.lastChannel[stored.NickName] = channel
	}
}

func (s *Store) resolve(account string, channel string) access.Class {
	if s.network.IsAdminAccount(account) {
		return access.ClassAdmin
	}
	if channel == "" || !s.network.IsHomeChannel(channel) {
		return access.ClassAnyone
	}
	return s.lists.Resolve(channel, account)
}

func (s *Store) isAccountBearing(stored *User, user *User, eventType string) bool {
	if user.Account == "" {
		return false
	}
	if _, ok := accountEvents[eventType]; ok {
		return true
	}
	// Any event disclosing an account where none was known counts.
	return stored.Account == ""
}

// OnNick migrates the record and its classification cache entry to the
// new nickname. No record is fabricated for unknown nicks, the merge
// path owns creation.
func (s *Store) OnNick(oldNick string, newNick string) {
	stored, ok := s.users[oldNick]
	if !ok {
		return
	}

	delete(s.users, oldNick)
	stored.NickName = newNick
	s.users[newNick] = stored

	if channel, ok := s.lastChannel[oldNick]; ok {
		delete(s.lastChannel, oldNick)
		s.lastChannel[newNick] = channel
	}

	s.Save()
}

// OnQuit forgets the user entirely.
func (s *Store) OnQuit(nick string) {
	if stored, ok := s.users[nick]; ok {
		logger.Debug("Forgetting user", "nick", nick, "seen", stored.Seen())
	}
	delete(s.users, nick)
	delete(s.lastChannel, nick)
	s.Save()
}

// Reload repopulates the account lists from disk and compacts the
// identity maps.
func (s *Store) Reload() {
	s.lists.Reload(s.network.AccountsFile)
	s.compact()
	logger.Network(s.network.NetworkName).Info("Reloaded account lists")
}

// Maintain runs the periodic compaction once the interval has
// elapsed, reporting whether it ran. Heartbeats drive it from the
// event loop, so it never interleaves with the merge path.
func (s *Store) Maintain(now time.Time) bool {
	if now.Before(s.nextRehash) {
		return false
	}
	s.nextRehash = s.Periodically(now)
	return true
}

// Periodically compacts the identity maps and reports when the next
// run is due.
func (s *Store) Periodically(now time.Time) time.Time {
	s.compact()
	return now.Add(rehashInterval)
}

// compact rebuilds the maps so they shed the capacity of entries long
// gone.
func (s *Store) compact() {
	rebuiltUsers := make(map[string]*User, len(s.users))
	for nick, user := range s.users {
		rebuiltUsers[nick] = user
	}
	s.users = rebuiltUsers

	rebuiltChannels := make(map[string]string, len(s.lastChannel))
	for nick, channel := range s.lastChannel {
		rebuiltChannels[nick] = channel
	}
	s.lastChannel = rebuiltChannels
}

// CachedChannel reports the channel nick was last classified for.
func (s *Store) CachedChannel(nick string) (string, bool) {
	channel, ok := s.lastChannel[nick]
	return channel, ok
}

// Get returns a copy of the stored record for nick.
func (s *Store) Get(nick string) (User, bool) {
	stored, ok := s.users[nick]
	if !ok {
		return User{}, false
	}
	return *stored, true
}

func (s *Store) Count() int {
	return len(s.users)
}

func (s *Store) Lists() *access.Lists {
	return s.lists
}

// Save snapshots the user map for the flusher, which debounces the
// database writes. The snapshot is taken here, on the event loop, so
// the flusher never reads the live maps.
func (s *Store) Save() {
	snapshot, err := json.Marshal(s.users)
	if err != nil {
		logger.Error("Error encoding users", "error", err)
		return
	}

	select {
	case s.saves <- snapshot:
	default:
		// A pending snapshot is stale now, replace it. The event loop
		// is the only sender, so the buffer has room after the drain.
		select {
		case <-s.saves:
		default:
		}
		s.saves <- snapshot
	}
}

// flusher writes at most once per debounce window, always the newest
// snapshot handed to it.
func (s *Store) flusher() {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	var pending []byte
	for {
		if pending == nil {
			pending = <-s.saves
			timer.Reset(s.saveDelay)
			continue
		}
		select {
		case pending = <-s.saves:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			s.persist(pending)
			pending = nil
		}
	}
}

func (s *Store) writeSnapshot(snapshot []byte) {
	if birdbase.Data == nil {
		return
	}

	key := s.network.NetworkName + "_users"
	if err := birdbase.PutBytes(key, snapshot); err != nil {
		logger.Error("Error saving users", "key", key, "error", err)
	}
}

// Load restores the user map persisted by Save.
func (s *Store) Load() {
	if birdbase.Data == nil {
		return
	}

	key := s.network.NetworkName + "_users"
	if !birdbase.Has(key) {
		return
	}

	snapshot, err := birdbase.Get(key)
	if err != nil {
		logger.Error("Error loading users", "key", key, "error", err)
		return
	}
	if err := json.Unmarshal(snapshot, &s.users); err != nil {
		logger.Error("Error decoding users", "key", key, "error", err)
	}
}
