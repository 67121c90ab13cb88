package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"smp-bot/bot"
	"smp-bot/config"
	"smp-bot/handlers"
	"smp-bot/lang"
	"smp-bot/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to config file")
	langPath := flag.String("lang", "lang.yml", "Path to language file")
	cleanup := flag.Bool("cleanup", false, "Remove slash commands on shutdown")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Discord.Token == "" || cfg.Discord.Token == "YOUR_DISCORD_BOT_TOKEN_HERE" {
		log.Fatal("Set your bot token in config.json → discord.token")
	}

	lang.Load(*langPath)

	dataDir := filepath.Dir(cfg.Database.SQLite.Path)
	state := storage.LoadState(filepath.Join(dataDir, "state.json"))

	history := storage.InitDB(cfg.Database.Driver, cfg.Database.SQLite.Path, dataDir)
	if err := history.Init(); err != nil {
		log.Printf("WARNING: Database init failed (%v). Falling back to JSON file storage.", err)
		history = storage.InitDB("json", "", dataDir)
		if err := history.Init(); err != nil {
			log.Fatalf("Failed to initialise fallback storage: %v", err)
		}
	}
	defer history.Close()

	requests, err := storage.NewRequestStore(cfg.Database.RequestBackend,
		cfg.Database.MongoDB.URI, cfg.Database.MongoDB.Database, dataDir)
	if err != nil {
		log.Fatalf("Failed to initialise whitelist request store: %v", err)
	}
	defer requests.Close()

	b, err := bot.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	hub := handlers.NewHub(cfg, state, history, requests)
	hub.Register(b.Session)

	if err := b.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}
	defer b.Stop()

	b.RegisterCommands(handlers.Commands(cfg))
	hub.Start(b.Session)

	log.Println("Bot is running. Press Ctrl+C to exit.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	hub.Stop()
	if *cleanup {
		b.CleanupCommands()
	}
}
