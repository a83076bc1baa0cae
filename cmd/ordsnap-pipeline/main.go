package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"ordsnap/internal/modkit"
	"ordsnap/internal/modkit/module"
	"ordsnap/internal/platform/config"
	"ordsnap/internal/platform/logger"

	harvestmod "ordsnap/internal/services/harvest/module"
	snapmod "ordsnap/internal/services/snapshots/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	var (
		fThreshold = flag.Int("threshold", 0, "minimum identifiers a wallet must hold for the final result (overrides CORE_HARVEST_HOLD_THRESHOLD)")
		fDataDir   = flag.String("data-dir", "", "snapshot directory (overrides CORE_SNAPSHOTS_DIR)")
	)
	flag.Parse()

	if *fThreshold > 0 {
		mustSetEnv("CORE_HARVEST_HOLD_THRESHOLD", strconv.Itoa(*fThreshold))
	}
	mustSetEnv("CORE_SNAPSHOTS_DIR", *fDataDir)

	root := config.New()
	logger.Init(logger.FromEnv())
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, runID)

	deps := modkit.Deps{Log: *l, Cfg: root}
	snaps := snapmod.New(deps)
	module.Register(snaps.Name(), snaps.Ports())

	hv, err := harvestmod.New(deps, snaps.Ports().(snapmod.Ports))
	if err != nil {
		l.Fatal().Err(err).Msg("harvest module init failed")
	}
	module.Register(hv.Name(), hv.Ports())

	runner := hv.Ports().(harvestmod.Ports).Runner
	rep, err := runner.Run(ctx)
	if err != nil {
		l.Fatal().Err(err).Str("run_id", runID).Msg("pipeline run failed")
	}

	l.Info().
		Str("run_id", runID).
		Int("collections", rep.Collections).
		Int("holders_fetched", rep.HoldersFetched).
		Int("bitmap_records", rep.BitmapRecords).
		Int("bitmap_skipped", rep.BitmapSkipped).
		Int("summary_wallets", rep.SummaryWallets).
		Int("filtered_wallets", rep.FilteredWallets).
		Str("summary_snapshot", rep.SummarySnapshot).
		Str("filtered_snapshot", rep.FilteredSnapshot).
		Msg("pipeline finished")
}
