// Package module provides the snapshots module implementation
package module

import (
	"ordsnap/internal/modkit"
	"ordsnap/internal/services/snapshots/domain"
	"ordsnap/internal/services/snapshots/repo"
	"ordsnap/internal/services/snapshots/service"
)

// Ports defines the snapshots module ports
type Ports struct {
	Writer domain.WriterPort
	Reader domain.ReaderPort
}

// Module implements the snapshots module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the snapshots module from env config under CORE_SNAPSHOTS_
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	store := repo.New(opts.Dir)
	svc := service.New(store, service.Config{
		SizeThreshold:    opts.SizeThreshold,
		WalletThreshold:  opts.WalletThreshold,
		ShardCount:       opts.ShardCount,
		MaxIdentifierLen: opts.MaxIdentifierLen,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Writer: svc, Reader: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "snapshots" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
