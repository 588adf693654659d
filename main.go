package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"vlist-tui/internal/config"
	"vlist-tui/internal/rpc"
	"vlist-tui/internal/ui"
	"vlist-tui/pkg/types"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to the JSON config file")
	items := flag.Int("items", 0, "Number of demo items")
	estimate := flag.Float64("estimate", 0, "Estimated item height in lines")
	gap := flag.Float64("gap", 0, "Blank lines between items")
	overscan := flag.Int("overscan", 0, "Items rendered beyond each edge of the viewport")
	backend := flag.String("backend", "", "Item server URL, e.g. ws://localhost:7070/rpc")
	serve := flag.String("serve", "", "Serve the demo items on this address instead of running the TUI")
	logFile := flag.String("log", "", "Write logs to this file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the config file only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "items":
			cfg.ItemCount = *items
		case "estimate":
			cfg.EstimatedItemSize = *estimate
		case "gap":
			cfg.Gap = *gap
		case "overscan":
			cfg.Overscan = *overscan
		case "backend":
			cfg.BackendURL = *backend
		case "serve":
			cfg.ListenAddr = *serve
		case "log":
			cfg.LogFile = *logFile
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		os.Exit(1)
	}

	if cfg.ListenAddr != "" {
		if err := runServer(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error serving items: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runTUI(cfg); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cfg config.Config) error {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rpc.ListenAndServe(ctx, cfg.ListenAddr, ui.NewDemoSource(cfg.ItemCount))
}

func runTUI(cfg config.Config) error {
	// The program owns the terminal, so logs go to a file or nowhere
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "vlist")
		if err != nil {
			return err
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	var (
		source     types.ItemSource = ui.NewDemoSource(cfg.ItemCount)
		sourceName                  = fmt.Sprintf("%d demo items", cfg.ItemCount)
	)
	if cfg.BackendURL != "" {
		client := rpc.NewClient([]string{cfg.BackendURL})
		defer client.Close()
		source, sourceName = client, cfg.BackendURL
	}

	app, err := ui.NewApp(cfg, source, sourceName)
	if err != nil {
		return err
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
