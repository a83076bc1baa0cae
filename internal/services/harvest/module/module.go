// Package module provides the harvest module implementation
package module

import (
	"ordsnap/internal/adapters/ingest/ordapi"
	"ordsnap/internal/modkit"
	"ordsnap/internal/services/harvest/domain"
	"ordsnap/internal/services/harvest/service"
	snapmod "ordsnap/internal/services/snapshots/module"
)

// Ports defines the harvest module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the harvest module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the harvest module on top of the snapshots module ports.
// Construction fails when the upstream client cannot be built, which
// includes a missing API key
func New(deps modkit.Deps, snaps snapmod.Ports) (*Module, error) {
	opts := FromConfig(deps.Cfg)

	client, err := ordapi.NewClient(opts.Source)
	if err != nil {
		return nil, err
	}
	svc := service.New(client, snaps.Writer, snaps.Reader, service.Config{
		HoldThreshold: opts.HoldThreshold,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "harvest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
