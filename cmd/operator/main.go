// Package main provides the operator CLI for deployment and operations tasks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/easeaico/persona-agent/internal/memory"
	"github.com/easeaico/persona-agent/internal/repository"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "migrate":
		migrateCmd()
	case "validate":
		validateCmd()
	case "cleanup":
		cleanupCmd(os.Args[2:])
	case "reset-memory":
		resetMemoryCmd(os.Args[2:])
	case "version":
		fmt.Printf("persona-agent operator v%s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`persona-agent operator - Deployment and operations CLI

Usage:
  operator <command> [flags]

Commands:
  migrate       Run database migrations
  validate      Validate environment configuration
  cleanup       Delete old low-importance memories
  reset-memory  Delete all memories for a user
  version       Show version information
  help          Show this help message`)
}

func databaseURL() string {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	return url
}

func openStore(ctx context.Context) *repository.Store {
	store, err := repository.NewStore(ctx, databaseURL(), nil)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return store
}

func migrateCmd() {
	ctx := context.Background()
	store := openStore(ctx)
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	fmt.Println("migrations applied")
}

func validateCmd() {
	required := []string{"DATABASE_URL", "OPENAI_API_KEY", "GOOGLE_API_KEY"}
	optional := []string{"OPENAI_BASE_URL", "LLM_MODEL", "EMBEDDING_MODEL", "SEARCH_API_KEY", "USER_ID", "PERSONA_ID", "EXTRACTOR_RULES", "DATA_DIR"}

	failed := false
	for _, key := range required {
		if os.Getenv(key) == "" {
			fmt.Printf("MISSING  %s (required)\n", key)
			failed = true
		} else {
			fmt.Printf("ok       %s\n", key)
		}
	}
	for _, key := range optional {
		if os.Getenv(key) == "" {
			fmt.Printf("unset    %s (optional)\n", key)
		} else {
			fmt.Printf("ok       %s\n", key)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func cleanupCmd(args []string) {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	userID := fs.String("user", "default_user", "user whose memories to clean")
	days := fs.Int("days", 90, "delete memories older than this many days")
	maxImportance := fs.Float64("max-importance", 0.3, "only delete memories at or below this importance")
	_ = fs.Parse(args)

	ctx := context.Background()
	store := openStore(ctx)
	defer store.Close()

	manager := memory.NewManager(*userID, store.Memories, store.Vectors)
	deleted, err := manager.DeleteOlderThan(ctx, *days, *maxImportance)
	if err != nil {
		log.Fatalf("cleanup failed: %v", err)
	}
	fmt.Printf("deleted %d memories older than %d days (importance <= %.2f)\n", deleted, *days, *maxImportance)
}

func resetMemoryCmd(args []string) {
	fs := flag.NewFlagSet("reset-memory", flag.ExitOnError)
	userID := fs.String("user", "", "user whose memories to delete")
	confirm := fs.Bool("yes", false, "confirm deletion")
	_ = fs.Parse(args)

	if *userID == "" {
		log.Fatal("--user is required")
	}
	if !*confirm {
		log.Fatal("refusing to delete without --yes")
	}

	ctx := context.Background()
	store := openStore(ctx)
	defer store.Close()

	manager := memory.NewManager(*userID, store.Memories, store.Vectors)
	deleted, err := manager.Reset(ctx)
	if err != nil {
		log.Fatalf("reset failed: %v", err)
	}
	fmt.Printf("deleted %d memories for user %s\n", deleted, *userID)
}
