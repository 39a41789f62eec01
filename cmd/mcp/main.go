package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/louisbranch/tradebridge/internal/ledger/journal"
	"github.com/louisbranch/tradebridge/internal/ledger/projection"
	"github.com/louisbranch/tradebridge/internal/mcp"
	platformcmd "github.com/louisbranch/tradebridge/internal/platform/cmd"
	"github.com/louisbranch/tradebridge/internal/storage/sqlite"
)

type config struct {
	DBPath string `env:"TRADEBRIDGE_DB_PATH" envDefault:"tradebridge.db"`
}

// main hydrates a projector from the ledger database and serves the MCP
// read tools on stdio.
func main() {
	_ = godotenv.Load()

	var cfg config
	fs := flag.NewFlagSet(platformcmd.ServiceMCP, flag.ExitOnError)
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the ledger database")
	if err := platformcmd.ParseArgs(fs, os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[MCP] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceMCP, func(ctx context.Context) error {
		return run(ctx, cfg)
	}); err != nil {
		log.Fatalf("failed to serve MCP: %v", err)
	}
}

func run(ctx context.Context, cfg config) error {
	store, err := sqlite.NewStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close event store: %v", err)
		}
	}()

	j, err := journal.New(store)
	if err != nil {
		return err
	}
	projector, err := projection.New(ctx, j)
	if err != nil {
		return err
	}
	log.Printf("projector hydrated through seq %d", projector.LastSeq())

	server, err := mcp.New(projector)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
