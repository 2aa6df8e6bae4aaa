package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/derktes/ir-signal-codec/config"
	"github.com/derktes/ir-signal-codec/server/server"
	"github.com/derktes/ir-signal-codec/store"
)

func main() {
	configFile := flag.String("config", "", "Specifies a YAML configuration file")
	address := flag.String("addr", "", "Overrides the listen address")
	dbFile := flag.String("f", "", "Overrides the signal database path")
	backend := flag.String("backend", "", "Overrides the store backend, json or badger")
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *dbFile != "" {
		cfg.Store.Path = *dbFile
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := cfg.Logging.NewLogger(os.Stderr)

	if err := run(cfg, log); err != nil {
		log.Error("Server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := store.Open(cfg.Store, log)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(cfg, st, log)
	if err := srv.Load(ctx); err != nil {
		return err
	}
	return srv.Start(ctx)
}
