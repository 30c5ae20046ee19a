package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/metasync-service/internal/app/propagation/repo"
	"github.com/light-bringer/metasync-service/internal/pkg/committer"
)

// Config for the run history cleanup job
type Config struct {
	SpannerDB     string
	RetentionDays int
	DryRun        bool
}

func main() {
	config := Config{}
	flag.StringVar(&config.SpannerDB, "database", os.Getenv("SPANNER_DATABASE"), "Spanner database (required, format: projects/PROJECT/instances/INSTANCE/databases/DATABASE)")
	flag.IntVar(&config.RetentionDays, "retention", 30, "Retention days for finished runs")
	flag.BoolVar(&config.DryRun, "dry-run", false, "Show what would be deleted without actually deleting")
	flag.Parse()

	if config.SpannerDB == "" {
		log.Fatal("Error: -database flag is required")
	}
	if config.RetentionDays < 1 {
		log.Fatal("Error: -retention must be at least 1 day")
	}

	if err := cleanupRuns(context.Background(), config); err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}

	log.Println("Cleanup completed successfully")
}

func cleanupRuns(ctx context.Context, config Config) error {
	client, err := spanner.NewClient(ctx, config.SpannerDB)
	if err != nil {
		return fmt.Errorf("failed to create Spanner client: %w", err)
	}
	defer client.Close()

	runs := repo.NewRunRepo(client, committer.NewCommitter(client))
	cutoff := time.Now().UTC().AddDate(0, 0, -config.RetentionDays)

	log.Printf("Starting run history cleanup...")
	log.Printf("  Cutoff: %s (retention: %d days)", cutoff.Format(time.RFC3339), config.RetentionDays)
	log.Printf("  Dry run: %v", config.DryRun)

	n, err := runs.DeleteFinishedBefore(ctx, cutoff, config.DryRun)
	if err != nil {
		return err
	}

	if config.DryRun {
		log.Printf("DRY RUN: Would delete %d runs", n)
		log.Println("Run without -dry-run to actually delete runs")
		return nil
	}
	log.Printf("Deleted %d runs", n)
	return nil
}
