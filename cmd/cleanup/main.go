package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/medtrack/clinic-service/internal/cleanup"
	"github.com/medtrack/clinic-service/internal/docstore"
)

func main() {
	log.Println("Clinic Cleanup Job - Starting")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	store, err := docstore.Open()
	if err != nil {
		log.Fatalf("Failed to connect to document store: %v", err)
	}
	defer store.Close()

	service := cleanup.NewService(store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	count, err := service.CountOrphans(ctx)
	if err != nil {
		log.Fatalf("Failed to count orphaned documents: %v", err)
	}

	log.Printf("Found %d orphaned documents eligible for deletion", count)

	if count == 0 {
		log.Println("No cleanup needed. Exiting.")
		os.Exit(0)
	}

	result, err := service.Sweep(ctx)
	if err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}

	log.Printf("✓ Cleanup completed successfully: %d of %d documents deleted", result.Deleted, result.Scanned)
	log.Println("Cleanup Job - Finished")
}
