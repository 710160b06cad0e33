package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/gntpd/internal/gntp"
	"github.com/danmuck/gntpd/internal/logging"
	"github.com/danmuck/gntpd/internal/registry"
	"github.com/danmuck/gntpd/internal/server"
	"github.com/danmuck/gntpd/internal/sink"
	"github.com/danmuck/gntpd/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	flag.Parse()

	logging.ConfigureRuntime()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "gntpd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := DefaultServiceConfig()
	if configPath != "" {
		loaded, err := loadServiceConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	reg := registry.New(cfg.Passwords)

	var resources gntp.ResourceStore
	if cfg.CacheDir != "" {
		disk, err := store.NewDiskStore(cfg.CacheDir)
		if err != nil {
			return err
		}
		resources = disk
	} else {
		resources = store.DiscardStore{}
	}

	srv := server.New(cfg.Listener, reg, sink.NewLogSink(), resources)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AdminAddr != "" {
		router := server.NewAdminRouter(reg, cfg.CorsOrigins)
		go func() {
			log.Info().Str("addr", cfg.AdminAddr).Msg("admin surface listening")
			if err := http.ListenAndServe(cfg.AdminAddr, router); err != nil {
				log.Error().Err(err).Msg("admin surface stopped")
			}
		}()
	}

	return srv.Serve(ctx)
}
