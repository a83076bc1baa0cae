// Package domain holds the core types for the harvest pipeline
package domain

import (
	"ordsnap/internal/adapters/ingest/ordapi"
	snapdom "ordsnap/internal/services/snapshots/domain"
)

// Collection re-exports the upstream collection metadata shape
type Collection = ordapi.Collection

// Holder re-exports the upstream per-collection holder shape
type Holder = ordapi.Holder

// BitmapRecord re-exports the upstream bitmap holder shape
type BitmapRecord = ordapi.BitmapRecord

// HolderMap re-exports the snapshot payload shape
type HolderMap = snapdom.HolderMap

// RunReport summarizes one end-to-end pipeline run
type RunReport struct {
	Collections      int
	HoldersFetched   int
	BitmapRecords    int
	BitmapSkipped    int
	SummaryWallets   int
	FilteredWallets  int
	SummarySnapshot  string
	FilteredSnapshot string
}
