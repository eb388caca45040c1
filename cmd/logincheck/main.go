package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go-jobsearch-agent/internal/app"
	"go-jobsearch-agent/internal/config"
	"go-jobsearch-agent/internal/logger"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	fmt.Println("🌐 Checking the browser and the LinkedIn session...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logr, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	a := app.Build(cfg, logr)
	defer a.Browser.Close()

	controller, ok := a.Controller("")
	if !ok {
		log.Fatalf("Strategy %q is not available", cfg.Agent.Strategy)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	loggedIn, err := controller.CheckLogin(ctx)
	if err != nil {
		log.Fatalf("❌ Browser check failed: %v", err)
	}
	fmt.Printf("✅ Browser connected: %t\n", a.Browser.Connected())
	if !loggedIn {
		fmt.Println("🔐 Not logged in. Log in to LinkedIn in the browser and run this again.")
		return
	}
	fmt.Println("✅ Logged in to LinkedIn")
}
