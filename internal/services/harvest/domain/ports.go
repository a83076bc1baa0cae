package domain

import "context"

// RunnerPort is the public port exposed by the harvest module
type RunnerPort interface {
	Run(ctx context.Context) (RunReport, error)
}

// SourcePort is the upstream data source interface, implemented by the
// ordapi client and by fakes in tests
type SourcePort interface {
	ListCollections(ctx context.Context) ([]Collection, error)
	CollectionHolders(ctx context.Context, symbol string) ([]Holder, error)
	BitmapHolders(ctx context.Context) ([]BitmapRecord, error)
}
