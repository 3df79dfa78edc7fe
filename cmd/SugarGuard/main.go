// SugarGuard is a LINE chatbot that walks diabetes patients through a
// consent and tutorial flow and records their blood glucose readings.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sugarguard/SugarGuard/internal/api"
	"github.com/sugarguard/SugarGuard/internal/config"
	"github.com/sugarguard/SugarGuard/internal/conversation"
	"github.com/sugarguard/SugarGuard/internal/line"
	"github.com/sugarguard/SugarGuard/internal/lockfile"
	"github.com/sugarguard/SugarGuard/internal/store"
)

const dbFileName = "sugarguard.db"

// initializeLogger sets up the default logger. SUGARGUARD_DEBUG=true enables
// debug-level output.
func initializeLogger() {
	level := slog.LevelInfo
	if config.DebugEnabled() {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// resolveDSN picks the database DSN: explicit flag first, then DATABASE_URL,
// then a SQLite file under the state directory.
func resolveDSN(flagDSN, envDSN, stateDir string) string {
	if flagDSN != "" {
		return flagDSN
	}
	if envDSN != "" {
		return envDSN
	}
	return filepath.Join(stateDir, dbFileName)
}

func main() {
	initializeLogger()

	// Optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.New()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var (
		dbFlag       = flag.String("db", "", "database DSN (overrides DATABASE_URL; postgres://... or a SQLite path)")
		stateDirFlag = flag.String("state-dir", "", "state directory for SQLite data and the instance lock")
		addrFlag     = flag.String("addr", "", "API listen address")
	)
	flag.Parse()

	if *stateDirFlag != "" {
		cfg.StateDir = *stateDirFlag
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	dsn := resolveDSN(*dbFlag, cfg.DatabaseURL, cfg.StateDir)

	var (
		st    store.Store
		dedup store.DedupRepo
	)
	switch store.DetectDSNType(dsn) {
	case "postgres":
		pg, err := store.NewPostgresStore(store.WithPostgresDSN(dsn))
		if err != nil {
			slog.Error("Failed to open Postgres store", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		st, dedup = pg, pg
	default:
		// A second process against the same SQLite file would corrupt the
		// per-user read-modify-write cycle, so hold the state dir lock.
		lock, err := lockfile.AcquireLock(cfg.StateDir)
		if err != nil {
			slog.Error("Failed to acquire state directory lock", "error", err)
			os.Exit(1)
		}
		defer lock.Release()

		sq, err := store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
		if err != nil {
			slog.Error("Failed to open SQLite store", "error", err)
			os.Exit(1)
		}
		defer sq.Close()
		st, dedup = sq, sq
	}

	lineClient, err := line.NewClient(cfg.ChannelSecret, cfg.ChannelToken)
	if err != nil {
		slog.Error("Failed to create LINE client", "error", err)
		os.Exit(1)
	}

	engine := conversation.NewEngine(st, conversation.WithDedup(dedup))
	server := api.NewServer(engine, lineClient, lineClient, api.WithAddr(cfg.Addr))

	if err := server.Run(); err != nil {
		slog.Error("API server exited", "error", err)
		os.Exit(1)
	}
}
