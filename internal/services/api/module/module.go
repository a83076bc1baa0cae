// Package module mounts the read API onto a router
package module

import (
	"time"

	"ordsnap/internal/modkit"
	"ordsnap/internal/platform/web"
	apihttp "ordsnap/internal/services/api/http"
	snapmod "ordsnap/internal/services/snapshots/module"
)

// Mount wires the middleware stack and the snapshot routes
func Mount(r web.Router, deps modkit.Deps, snaps snapmod.Ports) {
	api := deps.Cfg.Prefix("API_")

	r.Use(
		web.RequestID(),
		web.Recover,
		web.AccessLog(web.AccessLogOptions{Slow: api.MayDuration("SLOW", 2*time.Second)}),
		web.CORS(web.CORSOptions{AllowedOrigins: api.MayCSV("CORS_ORIGINS", nil)}),
	)

	apihttp.Register(r, apihttp.Deps{
		Reader:      snaps.Reader,
		ServiceName: api.MayString("SERVICE_NAME", "ordsnap-api"),
		StartedAt:   time.Now(),
	})
}
