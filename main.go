package main

import (
	"os"
	"sync"

	"kestrel/birdbase"
	"kestrel/irc/access"
	"kestrel/irc/users"
	"kestrel/logger"
	"kestrel/settings"
)

func main() {
	config, err := settings.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}

	logger.Init(config.Logging)
	birdbase.Init()
	defer birdbase.Close()

	var waitGroup sync.WaitGroup
	for name, network := range config.Networks {
		if !network.Enabled {
			continue
		}
		if len(network.Servers) == 0 {
			logger.Warn("Network has no servers defined, skipping", "network", name)
			continue
		}

		net := network
		net.NetworkName = name
		net.AccountsFile = accountsFile(network.AccountsFile)

		// Unparsable account lists at startup are fatal; reloads later
		// are forgiving.
		lists, err := access.Load(net.AccountsFile)
		if err != nil {
			logger.Fatal("Failed to load account lists", "network", name, "error", err)
		}

		store := users.NewStore(&net, lists)
		store.Load()

		s := newSession(&net, store)
		if s == nil {
			continue
		}

		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			s.run()
		}()
	}

	waitGroup.Wait()
	os.Exit(0)
}

func accountsFile(path string) string {
	if path == "" {
		return "accounts.json"
	}
	return path
}
