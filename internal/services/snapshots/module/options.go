package module

import (
	"ordsnap/internal/platform/config"
)

// Options holds configuration options for the snapshots service
type Options struct {
	Dir              string
	SizeThreshold    int64
	WalletThreshold  int
	ShardCount       int
	MaxIdentifierLen int
}

// FromConfig reads the snapshot options from config with CORE_SNAPSHOTS_ prefix
func FromConfig(cfg config.Conf) Options {
	sn := cfg.Prefix("CORE_SNAPSHOTS_")
	return Options{
		Dir:              sn.MayString("DIR", "data"),
		SizeThreshold:    sn.MayInt64("SIZE_THRESHOLD_MB", 50) << 20,
		WalletThreshold:  sn.MayInt("WALLET_THRESHOLD", 100_000),
		ShardCount:       sn.MayInt("SHARDS", 5),
		MaxIdentifierLen: sn.MayInt("MAX_ID_LEN", 1000),
	}
}
