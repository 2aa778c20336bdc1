package access

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"kestrel/logger"
)

// NewLists returns empty lists with all three collections allocated.
func NewLists() *Lists {
	return &Lists{
		Operator:  make(map[string][]string),
		Whitelist: make(map[string][]string),
		Blacklist: make(map[string][]string),
	}
}

// Load reads the account lists from path. A missing file yields empty
// lists; anything unparsable is an error, callers treat it as fatal at
// startup.
func Load(path string) (*Lists, error) {
	lists := NewLists()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return lists, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading accounts file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, lists); err != nil {
		return nil, fmt.Errorf("parsing accounts file %s: %w", path, err)
	}

	lists.normalize()
	return lists, nil
}

// Reload replaces the collections from path in place. Unlike Load, a
// decode failure on one collection only empties that collection for
// this cycle, the others still take effect.
func (l *Lists) Reload(path string) {
	l.Operator = make(map[string][]string)
	l.Whitelist = make(map[string][]string)
	l.Blacklist = make(map[string][]string)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		logger.Error("Error reading accounts file", "path", path, "error", err)
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Error("Error parsing accounts file", "path", path, "error", err)
		return
	}

	decode := func(name string, into *map[string][]string) {
		section, ok := raw[name]
		if !ok {
			return
		}
		parsed := make(map[string][]string)
		if err := json.Unmarshal(section, &parsed); err != nil {
			logger.Error("Error parsing accounts collection, treating as empty", "collection", name, "error", err)
			return
		}
		*into = parsed
	}

	decode("operator", &l.Operator)
	decode("whitelist", &l.Whitelist)
	decode("blacklist", &l.Blacklist)

	l.normalize()
}

// Save writes the lists to path, sorted, deduplicated and with empty
// entries dropped.
func (l *Lists) Save(path string) error {
	l.normalize()

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding accounts: %w", err)
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Resolve returns the class listed for account in channel, with
// operator taking precedence over whitelist over blacklist. Channel
// names compare case-insensitively, like everywhere else.
func (l *Lists) Resolve(channel string, account string) Class {
	if account == "" {
		return ClassAnyone
	}
	channel = strings.ToLower(channel)
	if contains(l.Operator[channel], account) {
		return ClassOperator
	}
	if contains(l.Whitelist[channel], account) {
		return ClassWhitelist
	}
	if contains(l.Blacklist[channel], account) {
		return ClassBlacklist
	}
	return ClassAnyone
}

func (l *Lists) normalize() {
	normalizeCollection(l.Operator)
	normalizeCollection(l.Whitelist)
	normalizeCollection(l.Blacklist)
}

func normalizeCollection(collection map[string][]string) {
	// Merge channel keys differing only in case.
	for channel, accounts := range collection {
		folded := strings.ToLower(channel)
		if folded == channel {
			continue
		}
		collection[folded] = append(collection[folded], accounts...)
		delete(collection, channel)
	}

	for channel, accounts := range collection {
		seen := make(map[string]struct{}, len(accounts))
		cleaned := make([]string, 0, len(accounts))
		for _, account := range accounts {
			if account == "" {
				continue
			}
			if _, dup := seen[account]; dup {
				continue
			}
			seen[account] = struct{}{}
			cleaned = append(cleaned, account)
		}
		sort.Strings(cleaned)

		if len(cleaned) == 0 {
			delete(collection, channel)
			continue
		}
		collection[channel] = cleaned
	}
}

func contains(accounts []string, account string) bool {
	for _, listed := range accounts {
		if strings.EqualFold(listed, account) {
			return true
		}
	}
	return false
}
