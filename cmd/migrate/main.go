package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instance "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/light-bringer/metasync-service/internal/config"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
)

func main() {
	defaultDB := os.Getenv("SPANNER_DATABASE")
	if defaultDB == "" {
		defaultDB = config.Default().SpannerDatabase
	}
	dbFlag := flag.String("database", defaultDB, "Spanner database (projects/P/instances/I/databases/D)")
	migrateDir := flag.String("migrations", "migrations", "Directory containing migration SQL files")
	flag.Parse()

	logger := obs.NewLogger(os.Getenv("LOG_LEVEL"))

	db, err := parseDatabasePath(*dbFlag)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	emulator := os.Getenv("SPANNER_EMULATOR_HOST") != ""
	if emulator {
		logger.Info("using Spanner emulator", "host", os.Getenv("SPANNER_EMULATOR_HOST"))
	}

	m := &migrator{db: db, dir: *migrateDir, emulator: emulator, logger: logger}
	if err := m.run(context.Background()); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	logger.Info("migrations completed", "database", db.String())
}

type migrator struct {
	db       databasePath
	dir      string
	emulator bool
	logger   *slog.Logger
}

func (m *migrator) run(ctx context.Context) error {
	// Instances can only be created here on the emulator
	if m.emulator {
		if err := m.ensureInstance(ctx); err != nil {
			return fmt.Errorf("failed to ensure instance: %w", err)
		}
	}

	adminClient, err := database.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	if err := m.ensureDatabase(ctx, adminClient); err != nil {
		return fmt.Errorf("failed to ensure database: %w", err)
	}
	return m.applyMigrations(ctx, adminClient)
}

func (m *migrator) ensureInstance(ctx context.Context) error {
	instanceAdmin, err := instance.NewInstanceAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create instance admin client: %w", err)
	}
	defer instanceAdmin.Close()

	_, err = instanceAdmin.GetInstance(ctx, &instancepb.GetInstanceRequest{Name: m.db.instanceName()})
	if err == nil {
		m.logger.Info("instance already exists", "instance", m.db.Instance)
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to check instance: %w", err)
	}

	m.logger.Info("creating instance", "instance", m.db.Instance)
	op, err := instanceAdmin.CreateInstance(ctx, &instancepb.CreateInstanceRequest{
		Parent:     m.db.projectName(),
		InstanceId: m.db.Instance,
		Instance: &instancepb.Instance{
			Config:      m.db.projectName() + "/instanceConfigs/emulator-config",
			DisplayName: "metasync development",
			NodeCount:   1,
		},
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("failed to create instance: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("failed to wait for instance creation: %w", err)
	}
	return nil
}

func (m *migrator) ensureDatabase(ctx context.Context, adminClient *database.DatabaseAdminClient) error {
	_, err := adminClient.GetDatabase(ctx, &databasepb.GetDatabaseRequest{Name: m.db.String()})
	if err == nil {
		m.logger.Info("database already exists", "database", m.db.Database)
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to check database: %w", err)
	}

	m.logger.Info("creating database", "database", m.db.Database)
	op, err := adminClient.CreateDatabase(ctx, &databasepb.CreateDatabaseRequest{
		Parent:          m.db.instanceName(),
		CreateStatement: fmt.Sprintf("CREATE DATABASE `%s`", m.db.Database),
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("failed to create database: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for database creation: %w", err)
	}
	return nil
}

// applyMigrations applies every file in order. Statements use IF NOT EXISTS, so
// re-running is safe.
func (m *migrator) applyMigrations(ctx context.Context, adminClient *database.DatabaseAdminClient) error {
	files, err := migrationFiles(m.dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		m.logger.Warn("no migration files found", "dir", m.dir)
		return nil
	}

	for _, file := range files {
		name := filepath.Base(file)
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		statements := splitDDLStatements(string(content))
		if len(statements) == 0 {
			continue
		}

		m.logger.Info("applying migration", "file", name, "statements", len(statements))
		op, err := adminClient.UpdateDatabaseDdl(ctx, &databasepb.UpdateDatabaseDdlRequest{
			Database:   m.db.String(),
			Statements: statements,
		})
		if err != nil {
			return fmt.Errorf("failed to start DDL update for %s: %w", name, err)
		}
		if err := op.Wait(ctx); err != nil {
			return fmt.Errorf("failed to apply DDL for %s: %w", name, err)
		}
	}
	return nil
}
