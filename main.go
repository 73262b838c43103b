// AuraChat - a local-first terminal chat client backed by Gemini.
//
// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/aurachat/aurachat/internal/delivery"
	"github.com/aurachat/aurachat/internal/gemini"
	"github.com/aurachat/aurachat/internal/netmon"
	"github.com/aurachat/aurachat/internal/settings"
	"github.com/aurachat/aurachat/internal/store"
	"github.com/aurachat/aurachat/internal/ui"
	"github.com/aurachat/aurachat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		dirFlag     = flag.String("dir", "", "data directory (default ~/.aurachat)")
		offlineFlag = flag.Bool("offline", false, "start with connectivity pinned offline")
		setKeyFlag  = flag.Bool("set-key", false, "prompt for the Gemini API key and exit")
		versionFlag = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("aurachat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	dir := *dirFlag
	if dir == "" {
		var err error
		dir, err = settings.DefaultDir()
		if err != nil {
			fatal(err)
		}
	}

	cfg, err := settings.Open(dir)
	if err != nil {
		fatal(err)
	}
	defer cfg.Close()

	if *setKeyFlag {
		if err := promptAndStoreKey(cfg); err != nil {
			fatal(err)
		}
		fmt.Println("API key stored.")
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fatal(fmt.Errorf("aurachat needs an interactive terminal"))
	}

	// Route logs to a file so the TUI stays clean.
	logFile, err := os.OpenFile(filepath.Join(dir, "aurachat.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err == nil {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	st, err := store.Open(filepath.Join(dir, "chat.db"))
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	var monitor netmon.Monitor
	if *offlineFlag {
		monitor = netmon.NewStaticMonitor(false)
	} else {
		probe := netmon.NewProbeMonitor()
		defer probe.Close()
		monitor = probe
	}

	provider := gemini.NewClient(gemini.Config{
		BaseURL:     cfg.BaseURL(),
		KeyProvider: cfg.APIKey,
	})

	deliver := delivery.New(st, provider, cfg, monitor, nil)

	if err := cfg.Watch(); err != nil {
		log.Printf("[main] settings watcher unavailable: %v", err)
	}

	if !cfg.HasAPIKey() {
		fmt.Fprintln(os.Stderr, "No API key configured. Run: aurachat -set-key")
	}

	app := ui.NewApp(styles.NewTheme(), cfg, st, deliver, monitor)
	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fatal(err)
	}
}

// promptAndStoreKey reads the key without echo when stdin is a terminal.
func promptAndStoreKey(cfg *settings.Settings) error {
	fmt.Print("Gemini API key: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return err
		}
		return cfg.SetAPIKey(string(raw))
	}
	var key string
	if _, err := fmt.Scanln(&key); err != nil {
		return err
	}
	return cfg.SetAPIKey(key)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "aurachat: %v\n", err)
	os.Exit(1)
}
