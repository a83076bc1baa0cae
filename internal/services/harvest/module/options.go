package module

import (
	"time"

	"ordsnap/internal/adapters/ingest/ordapi"
	"ordsnap/internal/platform/config"
)

// Options holds configuration options for the harvest pipeline
type Options struct {
	HoldThreshold int
	Source        ordapi.Options
}

// FromConfig reads the harvest options from config. Pipeline tuning lives
// under CORE_HARVEST_ and upstream client settings under SERVICE_ORDAPI_.
// The API key is mandatory; a missing key fails here, before any network
// traffic
func FromConfig(cfg config.Conf) Options {
	hv := cfg.Prefix("CORE_HARVEST_")
	up := cfg.Prefix("SERVICE_ORDAPI_")
	return Options{
		HoldThreshold: hv.MayInt("HOLD_THRESHOLD", 10),
		Source: ordapi.Options{
			BaseURL:   up.MayString("BASE_URL", ""),
			APIKey:    up.MayString("API_KEY", ""),
			Timeout:   up.MayDuration("TIMEOUT", 15*time.Second),
			PageSize:  up.MayInt("PAGE_SIZE", 0),
			PageDelay: up.MayDuration("DELAY", 0),
		},
	}
}
