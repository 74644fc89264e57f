package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/lastbite/cmd/utils/internal/commands"
	"github.com/appetiteclub/lastbite/internal/storefront"
	"github.com/joho/godotenv"
)

const (
	appName    = "lastbite-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	// Shares the storefront namespace so both read the same backend and store settings.
	config, err := apt.LoadConfig("STOREFRONT", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := apt.NewLogger(logLevel)

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "menu":
		client, err := commands.NewClient(config, logger)
		if err != nil {
			log.Fatalf("Cannot create backend client: %v", err)
		}
		if err := commands.PrintMenu(ctx, client, logger, os.Stdout); err != nil {
			log.Fatalf("Menu failed: %v", err)
		}

	case "cart":
		client, err := commands.NewClient(config, logger)
		if err != nil {
			log.Fatalf("Cannot create backend client: %v", err)
		}
		store, err := storefront.NewStore(config, logger)
		if err != nil {
			log.Fatalf("Cannot create cart id store: %v", err)
		}
		if err := store.Start(ctx); err != nil {
			log.Fatalf("Cannot start cart id store: %v", err)
		}
		defer store.Stop(ctx)

		if err := commands.PrintCart(ctx, client, store, logger, os.Stdout); err != nil {
			log.Fatalf("Cart failed: %v", err)
		}

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - LastBite storefront utility commands

Usage:
  %s <command> [options]

Commands:
  menu      Print the menu as the storefront displays it
  cart      Print the persisted cart with subtotal, tax and total
  version   Print version information
  help      Show this help message

Environment Variables:
  STOREFRONT_BACKEND_URL    Restaurant backend base URL
  STOREFRONT_STORE_DRIVER   Cart id store: file, mongo, postgres (default: file)
  STOREFRONT_LOG_LEVEL      Log level: debug, info, error (default: info)

Examples:
  %s menu
  STOREFRONT_STORE_DRIVER=mongo %s cart

`, appName, appName, appName, appName)
}
