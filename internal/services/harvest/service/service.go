// Package service implements the harvest pipeline: fetch, aggregate,
// summarize, filter
package service

import (
	"context"

	perr "ordsnap/internal/platform/errors"
	"ordsnap/internal/platform/logger"
	"ordsnap/internal/services/harvest/domain"
	snapdom "ordsnap/internal/services/snapshots/domain"
)

// defaultHoldThreshold is the minimum identifier count for the final result
const defaultHoldThreshold = 10

// Config holds configuration options for the harvest service
type Config struct {
	// HoldThreshold is the minimum number of identifiers a wallet must hold
	// to survive the final filter; the comparison is inclusive (>=)
	HoldThreshold int
}

// Service implements the harvest pipeline
type Service struct {
	Source domain.SourcePort
	Writer snapdom.WriterPort
	Reader snapdom.ReaderPort
	Cfg    Config

	log logger.Logger
}

// New constructs the harvest service
func New(src domain.SourcePort, w snapdom.WriterPort, r snapdom.ReaderPort, cfg Config) *Service {
	if src == nil {
		panic("harvest.Service requires a non nil SourcePort")
	}
	if w == nil || r == nil {
		panic("harvest.Service requires snapshot writer and reader ports")
	}
	if cfg.HoldThreshold <= 0 {
		cfg.HoldThreshold = defaultHoldThreshold
	}
	return &Service{Source: src, Writer: w, Reader: r, Cfg: cfg, log: *logger.Named("harvest")}
}

// Run executes the full pipeline: collections, per-collection holders, bitmap
// holders, aggregation, summary snapshot, threshold filter, final snapshot
func (s *Service) Run(ctx context.Context) (domain.RunReport, error) {
	var rep domain.RunReport

	// Stage 1: collection metadata
	s.log.Info().Msg("fetching collections")
	cols, err := s.Source.ListCollections(ctx)
	if err != nil {
		return rep, perr.Wrapf(err, perr.CodeOf(err), "fetch collections")
	}
	rep.Collections = len(cols)
	s.log.Info().Int("collections", len(cols)).Msg("collections fetched")
	if _, err := s.Writer.WriteRaw(ctx, snapdom.KindCollections, cols); err != nil {
		return rep, err
	}

	// Stage 2: holders per collection
	base := domain.HolderMap{}
	for _, col := range cols {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		holders, err := s.Source.CollectionHolders(ctx, col.Symbol)
		if err != nil {
			// per-collection failures are zero holders, not pipeline failures
			s.log.Warn().Err(err).Str("collection", col.Symbol).Msg("holder fetch failed, skipping collection")
			continue
		}
		for _, h := range holders {
			base[h.Wallet] = unionIDs(base[h.Wallet], h.InscriptionIDs)
		}
		rep.HoldersFetched += len(holders)
		s.log.Debug().Str("collection", col.Symbol).Int("holders", len(holders)).Msg("collection holders fetched")
	}
	s.log.Info().Int("holders", rep.HoldersFetched).Int("wallets", len(base)).Msg("holder fetch complete")

	// Stage 3: bitmap dataset
	s.log.Info().Msg("fetching bitmap holders")
	bitmaps, err := s.Source.BitmapHolders(ctx)
	if err != nil {
		return rep, perr.Wrapf(err, perr.CodeOf(err), "fetch bitmap holders")
	}
	rep.BitmapRecords = len(bitmaps)
	if _, err := s.Writer.WriteRaw(ctx, snapdom.KindBitmapList, bitmaps); err != nil {
		return rep, err
	}

	// Stage 4: cross-source aggregation and summary snapshot
	agg, skipped := s.Aggregate(base, bitmaps)
	rep.BitmapSkipped = skipped
	ref, err := s.Writer.Write(ctx, snapdom.KindHolderSummary, agg)
	if err != nil {
		return rep, err
	}
	rep.SummaryWallets = ref.Wallets
	rep.SummarySnapshot = ref.Timestamp

	// Stage 5: read the summary back through the reader so a sharded
	// snapshot is merged before filtering
	path, err := s.Reader.LocateLatest(ctx, snapdom.KindHolderSummary)
	if err != nil {
		return rep, err
	}
	summary, err := s.Reader.ReadHolderMap(ctx, path)
	if err != nil {
		return rep, err
	}

	// Stage 6: threshold filter and final snapshot
	final := FilterByThreshold(summary, s.Cfg.HoldThreshold)
	fref, err := s.Writer.Write(ctx, snapdom.KindFinalResult, final)
	if err != nil {
		return rep, err
	}
	rep.FilteredWallets = fref.Wallets
	rep.FilteredSnapshot = fref.Timestamp

	s.log.Info().
		Int("collections", rep.Collections).
		Int("summary_wallets", rep.SummaryWallets).
		Int("filtered_wallets", rep.FilteredWallets).
		Int("bitmap_skipped", rep.BitmapSkipped).
		Msg("pipeline run complete")
	return rep, nil
}
