// Command reelcore runs the editor core: a local HTTP+WebSocket server a
// browser-based non-linear editor frontend attaches to for project
// persistence, timeline/track/media state, undo history and autosave.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/novaforge/reelcore/internal/api"
	"github.com/novaforge/reelcore/internal/config"
	"github.com/novaforge/reelcore/internal/logging"
	"github.com/novaforge/reelcore/internal/registry"
	"github.com/novaforge/reelcore/internal/version"
)

const shutdownTimeout = 10 * time.Second

const bannerArt = `
  ____            _
 |  _ \ ___  ___| | ___ ___  _ __ ___
 | |_) / _ \/ _ \ |/ __/ _ \| '__/ _ \
 |  _ <  __/  __/ | (_| (_) | | |  __/
 |_| \_\___|\___|_|\___\___/|_|  \___|
`

func main() {
	v := version.Get()
	fmt.Println(bannerArt)
	fmt.Printf("  reelcore editor core\n")
	fmt.Printf("  version %s (%s)\n\n", v.Version, v.Commit)

	log := logging.New(os.Getenv("REELCORE_LOG_PRETTY") != "false", zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("reelcore: failed to load config")
	}

	reg, err := registry.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("reelcore: failed to wire registry")
	}
	defer reg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reg.Queue.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("reelcore: failed to start job queue worker")
	}

	server := api.NewServer(cfg, reg, log)

	addr := cfg.Server.Address()
	log.Info().Str("addr", addr).Msg("reelcore: server starting")
	log.Info().Str("addr", addr).Msg("reelcore: push channel at ws://" + addr + "/api/v1/ws")
	log.Info().Str("addr", addr).Msg("reelcore: canvas channel at ws://" + addr + "/api/v1/canvas")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("reelcore: server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("reelcore: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("reelcore: server shutdown did not finish cleanly")
		}
	}
}
