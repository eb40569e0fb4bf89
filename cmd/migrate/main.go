// Команда migrate управляет схемой БД вне запуска API:
// откат последних миграций и снятие dirty-состояния после неудачной миграции.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	migrateV4 "github.com/golang-migrate/migrate/v4"

	"github.com/yourusername/gabarita-api/internal/config"
	"github.com/yourusername/gabarita-api/pkg/database"
)

func main() {
	down := flag.Int("down", 0, "откатить N последних миграций")
	force := flag.Int("force", -1, "принудительно установить версию (снимает dirty-состояние)")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.UsesMemoryStorage() {
		log.Fatal("storage.driver=memory: migrations are not applicable")
	}

	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	m, err := database.NewMigrator(db, cfg.Database.MigrationsPath)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case *force >= 0:
		fmt.Printf("Forcing migration version to %d to clean dirty state...\n", *force)
		if err := m.Force(*force); err != nil {
			log.Fatalf("Failed to force version: %v", err)
		}
	case *down > 0:
		if err := m.Steps(-*down); err != nil {
			log.Fatalf("Failed to roll back %d migrations: %v", *down, err)
		}
	default:
		if err := m.Up(); err != nil && !errors.Is(err, migrateV4.ErrNoChange) {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrateV4.ErrNilVersion) {
		log.Fatalf("Failed to read migration version: %v", err)
	}
	fmt.Printf("Success! Schema version: %d (dirty: %t)\n", version, dirty)
}
