package domain

import "context"

// WriterPort is the public write surface exposed by the snapshots module
type WriterPort interface {
	// Write cleans (for cleanable kinds), decides single-file vs sharded, and
	// persists data under a fresh timestamp
	Write(ctx context.Context, kind Kind, data HolderMap) (SnapshotRef, error)

	// WriteRaw persists an arbitrary payload (collection metadata, bitmap
	// records) as a single file of the given kind
	WriteRaw(ctx context.Context, kind Kind, payload any) (SnapshotRef, error)
}

// ReaderPort is the public read surface exposed by the snapshots module
type ReaderPort interface {
	// LocateLatest resolves the newest snapshot of kind and returns a path to
	// a single complete file, merging a shard set first when needed
	LocateLatest(ctx context.Context, kind Kind) (string, error)

	// ReadHolderMap parses the file at path as a wallet to identifiers mapping
	ReadHolderMap(ctx context.Context, path string) (HolderMap, error)

	// List returns one Entry per file in the snapshot directory, newest first
	List(ctx context.Context) ([]Entry, error)
}

// StorePort abstracts the snapshot directory. Implemented by repo.Store;
// narrow on purpose so service tests can run against a temp dir or a fake
type StorePort interface {
	Dir() string
	EnsureDir() error
	Write(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	List() ([]string, error)
	Size(name string) (int64, error)
}
