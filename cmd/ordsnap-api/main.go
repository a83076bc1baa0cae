package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ordsnap/internal/modkit"
	"ordsnap/internal/modkit/module"
	"ordsnap/internal/platform/config"
	"ordsnap/internal/platform/logger"
	"ordsnap/internal/platform/web"

	apimod "ordsnap/internal/services/api/module"
	snapmod "ordsnap/internal/services/snapshots/module"
)

func main() {
	root := config.New()
	logger.Init(logger.FromEnv())
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := modkit.Deps{Log: *l, Cfg: root}
	snaps := snapmod.New(deps)
	module.Register(snaps.Name(), snaps.Ports())

	srv := web.NewServer(root)
	apimod.Mount(srv.Router(), deps, snaps.Ports().(snapmod.Ports))

	if err := srv.Run(ctx); err != nil {
		l.Fatal().Err(err).Msg("http server stopped")
	}
}
