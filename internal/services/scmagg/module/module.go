// Package module wires the scm aggregation service
package module

import (
	"aggbridge/internal/modkit"
	dom "aggbridge/internal/services/scmagg/domain"
	"aggbridge/internal/services/scmagg/repo"
	"aggbridge/internal/services/scmagg/service"
)

// Ports exposed by the scm aggregation module
type Ports struct {
	Processor dom.ProcessorPort
}

// Module bundles the scm aggregation service and its storage
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the scm aggregation module with options from the environment
func New(deps modkit.Deps) *Module {
	return NewWithOptions(deps, FromConfig(deps.Cfg))
}

// NewWithOptions constructs the module with explicit options. Callers that
// surface a toggle elsewhere (a command flag) resolve Options themselves
func NewWithOptions(deps modkit.Deps, opts Options) *Module {
	st := repo.NewPG().Bind(deps.PG)
	svc := service.New(service.Ports{
		Commits: st,
		PRs:     st,
	}, deps.Flags, deps.Metrics)
	svc.SetDirectMergeReconciliation(opts.ReconcileDirectMerges)

	return &Module{
		deps:  deps,
		opts:  opts,
		ports: Ports{Processor: svc},
	}
}

// Name identifies the module in logs
func (m *Module) Name() string { return "scmagg" }

// Ports returns the module's exposed ports
func (m *Module) Ports() Ports { return m.ports }

// Options returns the resolved module options
func (m *Module) Options() Options { return m.opts }
