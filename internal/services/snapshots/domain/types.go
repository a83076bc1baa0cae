// Package domain holds the core types and data structures for snapshots
package domain

import (
	"strings"
	"time"
)

// Kind names a snapshot family. The kind is embedded in the filename and is
// the unit of "latest" resolution
type Kind string

// Snapshot kinds written by the pipeline
const (
	KindCollections   Kind = "collections"
	KindBitmapList    Kind = "bitmapList"
	KindHolderSummary Kind = "holderSummary"
	KindFinalResult   Kind = "FinalResult"
)

// Valid reports whether k is one of the known snapshot kinds
func (k Kind) Valid() bool {
	switch k {
	case KindCollections, KindBitmapList, KindHolderSummary, KindFinalResult:
		return true
	}
	return false
}

// Cleanable reports whether payloads of this kind go through wallet/identifier
// cleaning before serialization
func (k Kind) Cleanable() bool {
	return k == KindHolderSummary || k == KindFinalResult
}

// HolderMap maps a wallet address to the inscription identifiers it owns
type HolderMap map[string][]string

// Identifiers returns the total identifier count across all wallets
func (m HolderMap) Identifiers() int {
	n := 0
	for _, ids := range m {
		n += len(ids)
	}
	return n
}

// ChunkMarker is the substring that distinguishes shard files from single-file
// snapshots, e.g. holderSummary-<ts>-chunk3.json
const ChunkMarker = "-chunk"

// stampReplacer rewrites the characters that would break lexicographic
// ordering or annoy filesystems (`:` and `.`)
var stampReplacer = strings.NewReplacer(":", "-", ".", "-")

// Stamp renders t as the filename timestamp: UTC ISO-8601 with `:` and `.`
// replaced by `-` so that lexicographic order equals chronological order,
// e.g. 2025-01-24T06-30-45-123Z
func Stamp(t time.Time) string {
	return stampReplacer.Replace(t.UTC().Format("2006-01-02T15:04:05.000") + "Z")
}

// SnapshotRef identifies a persisted snapshot and reports what was written
type SnapshotRef struct {
	Kind      Kind
	Timestamp string
	Paths     []string
	Sharded   bool

	// Cleaning stats, zero for kinds that skip cleaning
	Wallets     int
	Identifiers int
}

// Entry describes one file in the snapshot directory, as surfaced by listing
type Entry struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Timestamp string `json:"timestamp"`
	Sharded   bool   `json:"sharded"`
	Bytes     int64  `json:"bytes"`
}
