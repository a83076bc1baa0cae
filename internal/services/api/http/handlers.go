// Package http provides the read-only snapshot endpoints
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"ordsnap/internal/core/version"
	perr "ordsnap/internal/platform/errors"
	"ordsnap/internal/platform/web"
	"ordsnap/internal/services/snapshots/domain"
)

// Deps are the handler dependencies
type Deps struct {
	Reader      domain.ReaderPort
	ServiceName string
	StartedAt   time.Time
}

type handlers struct {
	deps     Deps
	validate *validator.Validate
}

// Register mounts the snapshot routes
func Register(r web.Router, d Deps) {
	h := &handlers{deps: d, validate: validator.New()}

	r.Get("/health", h.health)
	r.Get("/version", h.version)
	r.Route("/v1", func(v1 web.Router) {
		v1.Get("/snapshots", h.listSnapshots)
		v1.Get("/holders/latest", h.latestHolders)
		v1.Get("/results/latest", h.latestResults)
	})
}

// HealthResponse is the health payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Started string `json:"started"`
	Now     string `json:"now"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	web.RespondOK(w, r, HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handlers) version(w http.ResponseWriter, r *http.Request) {
	web.RespondOK(w, r, version.Info())
}

// SnapshotEntry is the wire form of a stored snapshot file
type SnapshotEntry struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Timestamp string `json:"timestamp"`
	Sharded   bool   `json:"sharded"`
	Bytes     int64  `json:"bytes"`
}

func (h *handlers) listSnapshots(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Reader.List(r.Context())
	if err != nil {
		web.RespondError(w, r, err)
		return
	}
	out := make([]SnapshotEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, SnapshotEntry{
			Name:      e.Name,
			Kind:      e.Kind,
			Timestamp: e.Timestamp,
			Sharded:   e.Sharded,
			Bytes:     e.Bytes,
		})
	}
	web.RespondOK(w, r, out)
}

// HoldersResponse carries a holder map with its source snapshot
type HoldersResponse struct {
	Snapshot string           `json:"snapshot"`
	Wallets  int              `json:"wallets"`
	Holders  domain.HolderMap `json:"holders"`
}

func (h *handlers) latestHolders(w http.ResponseWriter, r *http.Request) {
	h.serveLatest(w, r, domain.KindHolderSummary, 0)
}

// resultsQuery is the validated query surface of /results/latest
type resultsQuery struct {
	Min int `validate:"gte=1,lte=1000000"`
}

func (h *handlers) latestResults(w http.ResponseWriter, r *http.Request) {
	q := resultsQuery{}
	if raw := r.URL.Query().Get("min"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			web.RespondError(w, r, perr.InvalidArgf("min must be an integer, got %q", raw))
			return
		}
		q.Min = n
		if err := h.validate.Struct(q); err != nil {
			web.RespondError(w, r, perr.Wrapf(err, perr.ErrorCodeValidation, "min out of range"))
			return
		}
	}
	h.serveLatest(w, r, domain.KindFinalResult, q.Min)
}

// serveLatest locates the newest snapshot of kind, reads it (merging shards
// when needed) and optionally re-filters by a minimum identifier count
func (h *handlers) serveLatest(w http.ResponseWriter, r *http.Request, kind domain.Kind, min int) {
	path, err := h.deps.Reader.LocateLatest(r.Context(), kind)
	if err != nil {
		web.RespondError(w, r, err)
		return
	}
	holders, err := h.deps.Reader.ReadHolderMap(r.Context(), path)
	if err != nil {
		web.RespondError(w, r, err)
		return
	}
	if min > 0 {
		kept := domain.HolderMap{}
		for wallet, ids := range holders {
			if len(ids) >= min {
				kept[wallet] = ids
			}
		}
		holders = kept
	}
	web.RespondOK(w, r, HoldersResponse{
		Snapshot: path,
		Wallets:  len(holders),
		Holders:  holders,
	})
}
