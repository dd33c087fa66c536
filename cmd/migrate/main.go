package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/samirrijal/geofacet/internal/pkg/config"
)

const migrationsDir = "migrations"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}
	_ = godotenv.Load()

	cfg, err := config.Load("geofacet-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	files, err := migrationFiles(migrationsDir, os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	runMigrations(ctx, pool, files)
}

// migrationFiles lists the scripts for a direction: NNN_name.sql ascending
// for up, NNN_name.down.sql descending for down.
func migrationFiles(dir, direction string) ([]string, error) {
	all, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}

	var files []string
	for _, f := range all {
		down := strings.HasSuffix(f, ".down.sql")
		switch direction {
		case "up":
			if !down {
				files = append(files, f)
			}
		case "down":
			if down {
				files = append(files, f)
			}
		default:
			return nil, fmt.Errorf("unknown command: %s", direction)
		}
	}

	sort.Strings(files)
	if direction == "down" {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}
	return files, nil
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Printf("%d migrations applied", len(files))
}
