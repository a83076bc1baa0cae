// Package service implements the snapshot writer and the reader/merger
package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	perr "ordsnap/internal/platform/errors"
	"ordsnap/internal/platform/logger"
	pstrings "ordsnap/internal/platform/strings"
	"ordsnap/internal/services/snapshots/domain"
)

// Calibration constants for the linear size estimate. They only need to keep
// the estimate monotone in the input size, not to be accurate
const (
	perWalletOverhead     = 64
	perIdentifierOverhead = 80
)

// Defaults applied when Config fields are zero
const (
	defaultSizeThreshold    = 50 << 20 // 50 MB
	defaultWalletThreshold  = 100_000
	defaultShardCount       = 5
	defaultMaxIdentifierLen = 1000
)

// Config holds the split and cleaning thresholds
type Config struct {
	// SizeThreshold is the estimated-bytes ceiling for a single file
	SizeThreshold int64

	// WalletThreshold is the wallet-count ceiling for a single file
	WalletThreshold int

	// ShardCount is the fixed number of shards a split write targets
	ShardCount int

	// MaxIdentifierLen rejects pathological identifiers at or above this length
	MaxIdentifierLen int
}

// Service implements domain.WriterPort and domain.ReaderPort over a StorePort
type Service struct {
	Store domain.StorePort
	Cfg   Config

	// Estimate is the pluggable size estimator; defaults to LinearEstimate
	Estimate func(wallets, identifiers int) int64

	log logger.Logger
	now func() time.Time
}

// LinearEstimate approximates the serialized size of a holder map without
// serializing it
func LinearEstimate(wallets, identifiers int) int64 {
	return int64(wallets)*perWalletOverhead + int64(identifiers)*perIdentifierOverhead
}

// New constructs the snapshots service with defaults for zero config fields
func New(store domain.StorePort, cfg Config) *Service {
	if store == nil {
		panic("snapshots.Service requires a non nil StorePort")
	}
	if cfg.SizeThreshold <= 0 {
		cfg.SizeThreshold = defaultSizeThreshold
	}
	if cfg.WalletThreshold <= 0 {
		cfg.WalletThreshold = defaultWalletThreshold
	}
	if cfg.ShardCount <= 0 {
		cfg.ShardCount = defaultShardCount
	}
	if cfg.MaxIdentifierLen <= 0 {
		cfg.MaxIdentifierLen = defaultMaxIdentifierLen
	}
	return &Service{
		Store:    store,
		Cfg:      cfg,
		Estimate: LinearEstimate,
		log:      *logger.Named("snapshots"),
		now:      time.Now,
	}
}

// fileName composes <kind>-<stamp>.json
func fileName(kind domain.Kind, stamp string) string {
	return string(kind) + "-" + stamp + ".json"
}

// chunkName composes <kind>-<stamp>-chunk<n>.json (1-indexed)
func chunkName(kind domain.Kind, stamp string, n int) string {
	return string(kind) + "-" + stamp + domain.ChunkMarker + strconv.Itoa(n) + ".json"
}

// Write cleans cleanable kinds, estimates the serialized size, and persists
// data as one file or a shard set under a fresh timestamp
func (s *Service) Write(ctx context.Context, kind domain.Kind, data domain.HolderMap) (domain.SnapshotRef, error) {
	if !kind.Valid() {
		return domain.SnapshotRef{}, perr.InvalidArgf("unknown snapshot kind %q", kind)
	}

	payload := data
	wallets, identifiers := len(data), data.Identifiers()
	if kind.Cleanable() {
		payload, wallets, identifiers = s.clean(data)
		s.log.Info().
			Str("kind", string(kind)).
			Int("wallets", wallets).
			Int("identifiers", identifiers).
			Msg("cleaned holder map")
	}

	stamp := domain.Stamp(s.now())
	est := s.Estimate(wallets, identifiers)
	if est > s.Cfg.SizeThreshold || wallets > s.Cfg.WalletThreshold {
		s.log.Info().
			Str("kind", string(kind)).
			Int64("estimated_bytes", est).
			Int("wallets", wallets).
			Msg("split threshold exceeded, writing shards")
		return s.writeSharded(ctx, kind, stamp, payload, wallets, identifiers)
	}

	b, err := marshalPayload(payload, s.log)
	if err != nil {
		return domain.SnapshotRef{}, err
	}
	name := fileName(kind, stamp)
	path, err := s.Store.Write(name, b)
	if err != nil {
		return domain.SnapshotRef{}, err
	}
	s.log.Info().
		Str("kind", string(kind)).
		Str("file", name).
		Int("wallets", wallets).
		Int("identifiers", identifiers).
		Msg("snapshot written")
	return domain.SnapshotRef{
		Kind: kind, Timestamp: stamp, Paths: []string{path},
		Wallets: wallets, Identifiers: identifiers,
	}, nil
}

// WriteRaw persists an arbitrary payload as a single file; no cleaning and no
// split decision. Used for collection metadata and bitmap record arrays
func (s *Service) WriteRaw(ctx context.Context, kind domain.Kind, payload any) (domain.SnapshotRef, error) {
	if !kind.Valid() {
		return domain.SnapshotRef{}, perr.InvalidArgf("unknown snapshot kind %q", kind)
	}
	b, err := marshalPayload(payload, s.log)
	if err != nil {
		return domain.SnapshotRef{}, err
	}
	stamp := domain.Stamp(s.now())
	name := fileName(kind, stamp)
	path, err := s.Store.Write(name, b)
	if err != nil {
		return domain.SnapshotRef{}, err
	}
	s.log.Info().Str("kind", string(kind)).Str("file", name).Msg("snapshot written")
	return domain.SnapshotRef{Kind: kind, Timestamp: stamp, Paths: []string{path}}, nil
}

// clean drops blank keys, trims everything, rejects over-long identifiers,
// and drops wallets left without identifiers. The input map is never mutated
func (s *Service) clean(in domain.HolderMap) (domain.HolderMap, int, int) {
	out := make(domain.HolderMap, len(in))
	identifiers := 0
	for k, vals := range in {
		key := pstrings.Trimmed(k)
		if key == "" {
			continue
		}
		kept := make([]string, 0, len(vals))
		for _, id := range vals {
			v := pstrings.Trimmed(id)
			if v == "" || len(v) >= s.Cfg.MaxIdentifierLen {
				continue
			}
			kept = append(kept, v)
		}
		if len(kept) == 0 {
			continue
		}
		out[key] = kept
		identifiers += len(kept)
	}
	return out, len(out), identifiers
}

// writeSharded partitions the wallet keys into ShardCount contiguous slices
// and writes each shard independently. A failed shard is logged and skipped;
// the remaining shards are still written
func (s *Service) writeSharded(
	ctx context.Context,
	kind domain.Kind,
	stamp string,
	data domain.HolderMap,
	wallets, identifiers int,
) (domain.SnapshotRef, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	// stable partitioning; shard membership is not meaningful, only disjointness
	sort.Strings(keys)

	per := (len(keys) + s.Cfg.ShardCount - 1) / s.Cfg.ShardCount
	if per < 1 {
		per = 1
	}

	ref := domain.SnapshotRef{
		Kind: kind, Timestamp: stamp, Sharded: true,
		Wallets: wallets, Identifiers: identifiers,
	}
	n := 0
	for start := 0; start < len(keys); start += per {
		end := min(start+per, len(keys))
		shard := make(domain.HolderMap, end-start)
		for _, k := range keys[start:end] {
			shard[k] = data[k]
		}
		n++
		name := chunkName(kind, stamp, n)
		b, err := marshalPayload(shard, s.log)
		if err != nil {
			s.log.Error().Err(err).Str("file", name).Msg("shard encode failed, continuing")
			continue
		}
		path, err := s.Store.Write(name, b)
		if err != nil {
			s.log.Error().Err(err).Str("file", name).Msg("shard write failed, continuing")
			continue
		}
		ref.Paths = append(ref.Paths, path)
	}
	s.log.Info().
		Str("kind", string(kind)).
		Str("timestamp", stamp).
		Int("shards_written", len(ref.Paths)).
		Int("shards_attempted", n).
		Msg("shard set written")
	return ref, nil
}

// LocateLatest resolves the newest snapshot of kind. A sharded candidate is
// merged into a single <timestamp>.json file first and that path is returned.
// Re-merging the same shard set overwrites the same merged file, so repeated
// calls stay cheap
func (s *Service) LocateLatest(ctx context.Context, kind domain.Kind) (string, error) {
	names, err := s.Store.List()
	if err != nil {
		return "", err
	}
	prefix := string(kind) + "-"
	var matches []string
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			matches = append(matches, n)
		}
	}
	if len(matches) == 0 {
		return "", perr.NotFoundf("no %s snapshot found in %s", kind, s.Store.Dir())
	}

	// names are listed descending, so the first match is the newest
	candidate := matches[0]
	if !strings.Contains(candidate, domain.ChunkMarker) {
		return filepath.Join(s.Store.Dir(), candidate), nil
	}

	stamp := candidate[len(prefix):strings.Index(candidate, domain.ChunkMarker)]
	var shards []string
	for _, n := range names {
		if strings.HasPrefix(n, prefix+stamp) && strings.Contains(n, domain.ChunkMarker) {
			shards = append(shards, n)
		}
	}
	sort.SliceStable(shards, func(i, j int) bool {
		return chunkIndex(shards[i]) < chunkIndex(shards[j])
	})

	merged := domain.HolderMap{}
	for _, name := range shards {
		b, err := s.Store.Read(name)
		if err != nil {
			return "", err
		}
		var part domain.HolderMap
		if err := json.Unmarshal(b, &part); err != nil {
			return "", perr.Wrapf(err, perr.ErrorCodeJSON, "parse shard %s", name)
		}
		// shards hold disjoint wallets by construction; on overlap the later
		// shard simply replaces the earlier value
		for k, v := range part {
			merged[k] = v
		}
	}

	b, err := marshalPayload(merged, s.log)
	if err != nil {
		return "", err
	}
	path, err := s.Store.Write(stamp+".json", b)
	if err != nil {
		return "", err
	}
	s.log.Info().
		Str("kind", string(kind)).
		Str("timestamp", stamp).
		Int("shards", len(shards)).
		Int("wallets", len(merged)).
		Msg("shard set merged")
	return path, nil
}

// chunkIndex parses the integer between the chunk marker and .json.
// Unparsable or missing indexes sort first as 0 rather than erroring
func chunkIndex(name string) int {
	i := strings.Index(name, domain.ChunkMarker)
	if i < 0 {
		return 0
	}
	tail := strings.TrimSuffix(name[i+len(domain.ChunkMarker):], ".json")
	n, err := strconv.Atoi(tail)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ReadHolderMap parses the file at path as a wallet to identifiers mapping
func (s *Service) ReadHolderMap(ctx context.Context, path string) (domain.HolderMap, error) {
	b, err := s.Store.Read(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	var m domain.HolderMap
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "parse holder map %s", filepath.Base(path))
	}
	return m, nil
}

// List describes every snapshot file in the directory, newest first
func (s *Service) List(ctx context.Context) ([]domain.Entry, error) {
	names, err := s.Store.List()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entry, 0, len(names))
	for _, name := range names {
		e := domain.Entry{Name: name}
		base := strings.TrimSuffix(name, ".json")
		if i := strings.Index(base, "-"); i > 0 && domain.Kind(base[:i]).Valid() {
			e.Kind = base[:i]
			e.Timestamp = base[i+1:]
		} else {
			// merged reconstructions carry no kind prefix
			e.Kind = "merged"
			e.Timestamp = base
		}
		if j := strings.Index(e.Timestamp, domain.ChunkMarker); j >= 0 {
			e.Sharded = true
			e.Timestamp = e.Timestamp[:j]
		}
		if sz, err := s.Store.Size(name); err == nil {
			e.Bytes = sz
		}
		out = append(out, e)
	}
	return out, nil
}
