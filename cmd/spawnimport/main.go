// spawnimport writes a YAML spawn list into the spawnpoint tables.
//
// Usage:
//
//	go run ./cmd/spawnimport [-config path] [-monsters path] <spawns.yaml>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/server/internal/config"
	"github.com/illarion/server/internal/data"
	"github.com/illarion/server/internal/persist"
)

func main() {
	cfgPath := flag.String("config", "config/server.toml", "server config")
	monstersPath := flag.String("monsters", "", "monster table used to check races (default: the configured one)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: spawnimport [-config path] [-monsters path] <spawns.yaml>")
		os.Exit(1)
	}
	if err := run(*cfgPath, *monstersPath, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, monstersPath, spawnPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if monstersPath == "" {
		monstersPath = cfg.Data.Monsters
	}
	monsters, err := data.LoadMonsterTable(monstersPath)
	if err != nil {
		return fmt.Errorf("load monsters: %w", err)
	}
	points, err := data.LoadSpawnList(spawnPath, monsters)
	if err != nil {
		return fmt.Errorf("load spawns: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	if err := persist.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	repo := persist.NewSpawnRepo(db)
	for _, sp := range points {
		if err := repo.SaveSpawnPoint(ctx, sp); err != nil {
			return fmt.Errorf("spawn point %d: %w", sp.ID, err)
		}
	}
	fmt.Printf("Wrote %d spawn points from %s\n", len(points), spawnPath)
	return nil
}
