package users

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"kestrel/irc/access"
	"kestrel/irc/networks"
)

func newTestStore() (*Store, *networks.Network, *access.Lists) {
	network := &networks.Network{
		NetworkName:  "testnet",
		Nick:         "kestrel",
		HomeChannels: []string{"#home", "#roost"},
		Admins:       []string{"boss"},
	}
	lists := access.NewLists()
	return NewStore(network, lists), network, lists
}

func now() time.Time {
	return time.Unix(1700000000, 0)
}

func TestPostprocessMergesPartialObservations(t *testing.T) {
	store, _, _ := newTestStore()

	who := User{NickName: "alice", Ident: "alice", Host: "example.net"}
	store.Postprocess(&who, "#home", "352", now())

	whois := User{NickName: "alice", Account: "alice_acct"}
	store.Postprocess(&whois, "", "330", now())

	stored, ok := store.Get("alice")
	if !ok {
		t.Fatal("no record for alice")
	}
	if stored.Ident != "alice" || stored.Host != "example.net" {
		t.Errorf("address lost in merge: ident=%q host=%q", stored.Ident, stored.Host)
	}
	if stored.Account != "alice_acct" {
		t.Errorf("Account = %q, want alice_acct", stored.Account)
	}

	// The event payload carries the resolved record after the call.
	if whois.Host != "example.net" {
		t.Errorf("event payload not rewritten, host = %q", whois.Host)
	}
}

func TestClassificationInHomeChannel(t *testing.T) {
	store, _, lists := newTestStore()
	lists.Whitelist["#home"] = []string{"alice_acct"}

	user := User{NickName: "alice", Account: "alice_acct"}
	store.Postprocess(&user, "#home", "JOIN", now())

	if user.Class != access.ClassWhitelist {
		t.Errorf("Class = %s, want whitelist", user.Class)
	}
	if user.Updated != now().Unix() {
		t.Errorf("Updated = %d, want event time", user.Updated)
	}
	if channel, ok := store.CachedChannel("alice"); !ok || channel != "#home" {
		t.Errorf("cached channel = %q, %t", channel, ok)
	}
}

func TestClassificationOutsideHomeChannels(t *testing.T) {
	store, _, lists := newTestStore()
	lists.Operator["#elsewhere"] = []string{"alice_acct"}

	user := User{NickName: "alice", Account: "alice_acct"}
	store.Postprocess(&user, "#elsewhere", "JOIN", now())

	if user.Class != access.ClassAnyone {
		t.Errorf("classification outside home channels = %s, want anyone", user.Class)
	}
}

func TestAdminIsPermanent(t *testing.T) {
	store, network, lists := newTestStore()

	user := User{NickName: "boss_nick", Account: "boss"}
	store.Postprocess(&user, "#home", "JOIN", now())
	if user.Class != access.ClassAdmin {
		t.Fatalf("Class = %s, want admin", user.Class)
	}

	// Even a blacklist-listed account cannot pull an admin back down.
	network.Admins = nil
	lists.Blacklist["#roost"] = []string{"boss"}

	again := User{NickName: "boss_nick", Account: "boss"}
	store.Postprocess(&again, "#roost", "JOIN", now())

	if again.Class != access.ClassAdmin {
		t.Errorf("admin was downgraded to %s", again.Class)
	}
}

func TestLoggedOutSentinelResets(t *testing.T) {
	store, _, lists := newTestStore()
	lists.Whitelist["#home"] = []string{"alice_acct"}

	user := User{NickName: "alice", Account: "alice_acct"}
	store.Postprocess(&user, "#home", "JOIN", now())

	loggedOut := User{NickName: "alice", Account: AccountLoggedOut}
	store.Postprocess(&loggedOut, "", "ACCOUNT", now())

	stored, _ := store.Get("alice")
	if stored.Account != "" {
		t.Errorf("Account = %q, want empty after logout", stored.Account)
	}
	if stored.Class != access.ClassAnyone {
		t.Errorf("Class = %s, want anyone after logout", stored.Class)
	}
	if stored.Updated != 1 {
		t.Errorf("Updated = %d, want the reset sentinel 1", stored.Updated)
	}
	if _, ok := store.CachedChannel("alice"); ok {
		t.Error("classification cache entry should be dropped on logout")
	}
}

func TestAccountChangeTakesNewAccount(t *testing.T) {
	store, _, _ := newTestStore()

	first := User{NickName: "alice", Account: "old_acct"}
	store.Postprocess(&first, "#home", "JOIN", now())

	second := User{NickName: "alice", Account: "new_acct"}
	store.Postprocess(&second, "", "ACCOUNT", now())

	stored, _ := store.Get("alice")
	if stored.Account != "new_acct" {
		t.Errorf("Account = %q, want new_acct", stored.Account)
	}
}

func TestNickChangeMigratesRecordAndCache(t *testing.T) {
	store, _, _ := newTestStore()

	user := User{NickName: "alice", Account: "alice_acct"}
	store.Postprocess(&user, "#home", "JOIN", now())

	store.OnNick("alice", "alicia")

	if _, ok := store.Get("alice"); ok {
		t.Error("old nick still has a record")
	}
	migrated, ok := store.Get("alicia")
	if !ok {
		t.Fatal("record did not migrate to the new nick")
	}
	if migrated.Account != "alice_acct" || migrated.NickName != "alicia" {
		t.Errorf("migrated record = %+v", migrated)
	}
	if channel, ok := store.CachedChannel("alicia"); !ok || channel != "#home" {
		t.Errorf("cache entry did not migrate: %q, %t", channel, ok)
	}
	if _, ok := store.CachedChannel("alice"); ok {
		t.Error("old cache entry still present")
	}
}

func TestNickChangeForUnknownNickFabricatesNothing(t *testing.T) {
	store, _, _ := newTestStore()

	store.OnNick("ghost", "spectre")

	if store.Count() != 0 {
		t.Errorf("Count = %d, want 0", store.Count())
	}
}

func TestQuitForgetsRecordAndCache(t *testing.T) {
	store, _, _ := newTestStore()

	user := User{NickName: "alice", Account: "alice_acct"}
	store.Postprocess(&user, "#home", "JOIN", now())

	store.OnQuit("alice")

	if _, ok := store.Get("alice"); ok {
		t.Error("record survived quit")
	}
	if _, ok := store.CachedChannel("alice"); ok {
		t.Error("cache entry survived quit")
	}
}

func TestReloadReclassifiesOnceCacheForcesRecompute(t *testing.T) {
	store, network, lists := newTestStore()
	lists.Whitelist["#home"] = []string{"alice_acct"}
	lists.Whitelist["#roost"] = []string{"alice_acct"}

	path := filepath.Join(t.TempDir(), "accounts.json")
	network.AccountsFile = path
	if err := lists.Save(path); err != nil {
		t.Fatal(err)
	}

	user := User{NickName: "alice", Account: "alice_acct"}
	store.Postprocess(&user, "#home", "JOIN", now())
	if user.Class != access.ClassWhitelist {
		t.Fatalf("Class = %s, want whitelist", user.Class)
	}

	// Whitelist entries removed on disk, then reloaded.
	empty := access.NewLists()
	if err := empty.Save(path); err != nil {
		t.Fatal(err)
	}
	store.Reload()

	// Same channel: the cache still vouches, no recompute yet.
	sameChannel := User{NickName: "alice"}
	store.Postprocess(&sameChannel, "#home", "PRIVMSG", now())
	if sameChannel.Class != access.ClassWhitelist {
		t.Errorf("cache hit reclassified early to %s", sameChannel.Class)
	}

	// Different home channel forces the recompute.
	otherChannel := User{NickName: "alice"}
	store.Postprocess(&otherChannel, "#roost", "PRIVMSG", now())
	if otherChannel.Class != access.ClassAnyone {
		t.Errorf("Class after reload and channel change = %s, want anyone", otherChannel.Class)
	}
}

func TestOwnEventsAreSkippedOnPlainNetworks(t *testing.T) {
	store, _, _ := newTestStore()

	self := User{NickName: "kestrel", Ident: "kestrel", Host: "bot.example.net"}
	store.Postprocess(&self, "#home", "PRIVMSG", now())

	if store.Count() != 0 {
		t.Errorf("self-originated event created a record, Count = %d", store.Count())
	}
}

func TestTwitchProfile(t *testing.T) {
	network := &networks.Network{
		NetworkName: "twitch",
		Nick:        "kestrelbot",
		Twitch:      true,
	}
	store := NewStore(network, access.NewLists())

	self := User{NickName: "kestrelbot", Account: "kestrelbot", Badges: BadgesUnknown}
	store.Postprocess(&self, "#kestrelbot", "PRIVMSG", now())

	if self.Class != access.ClassAdmin {
		t.Errorf("own identity on twitch = %s, want admin", self.Class)
	}
	if self.Badges != "" {
		t.Errorf("placeholder badges survived the merge: %q", self.Badges)
	}

	viewer := User{NickName: "viewer", Account: "viewer", Badges: "subscriber/12"}
	store.Postprocess(&viewer, "#kestrelbot", "PRIVMSG", now())

	if viewer.Badges != "subscriber/12" {
		t.Errorf("real badges lost: %q", viewer.Badges)
	}
}

func TestPeriodicallyReschedules(t *testing.T) {
	store, _, _ := newTestStore()

	at := now()
	next := store.Periodically(at)

	if want := at.Add(3 * time.Hour); !next.Equal(want) {
		t.Errorf("next run = %v, want %v", next, want)
	}
}

func TestMaintainRunsOnHeartbeatCadence(t *testing.T) {
	store, _, _ := newTestStore()

	user := User{NickName: "alice", Account: "alice_acct"}
	store.Postprocess(&user, "#home", "JOIN", now())

	store.nextRehash = now()
	if !store.Maintain(now()) {
		t.Error("due maintenance did not run")
	}
	if store.Maintain(now().Add(time.Hour)) {
		t.Error("maintenance ran again before the interval elapsed")
	}
	if !store.Maintain(now().Add(4 * time.Hour)) {
		t.Error("maintenance did not run once the interval elapsed")
	}

	// Compaction rebuilds the maps, it must not lose anything.
	if _, ok := store.Get("alice"); !ok {
		t.Error("record lost in compaction")
	}
	if channel, ok := store.CachedChannel("alice"); !ok || channel != "#home" {
		t.Errorf("cache entry lost in compaction: %q, %t", channel, ok)
	}
}

func TestSaveDebouncesAndWritesNewestSnapshot(t *testing.T) {
	store, _, _ := newTestStore()
	store.saveDelay = 100 * time.Millisecond

	writes := make(chan []byte, 8)
	store.persist = func(snapshot []byte) { writes <- snapshot }

	first := User{NickName: "alice", Account: "alice_acct"}
	store.Postprocess(&first, "#home", "JOIN", now())
	second := User{NickName: "bob"}
	store.Postprocess(&second, "#home", "JOIN", now())

	var snapshot []byte
	select {
	case snapshot = <-writes:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced write never happened")
	}

	persisted := make(map[string]*User)
	if err := json.Unmarshal(snapshot, &persisted); err != nil {
		t.Fatal(err)
	}
	if _, ok := persisted["alice"]; !ok {
		t.Error("alice missing from the persisted snapshot")
	}
	if _, ok := persisted["bob"]; !ok {
		t.Error("an older snapshot was written over the newest one")
	}

	select {
	case <-writes:
		t.Error("burst produced more than one write")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSelfFollowsCurrentNick(t *testing.T) {
	store, _, _ := newTestStore()
	store.SetSelf("kestrel_")

	fallback := User{NickName: "kestrel_"}
	store.Postprocess(&fallback, "#home", "PRIVMSG", now())
	if store.Count() != 0 {
		t.Error("own traffic under the fallback nick created a record")
	}

	// The configured nick now belongs to somebody else.
	other := User{NickName: "kestrel", Account: "squatter"}
	store.Postprocess(&other, "#home", "JOIN", now())
	if _, ok := store.Get("kestrel"); !ok {
		t.Error("another user holding the configured nick was skipped")
	}
}
