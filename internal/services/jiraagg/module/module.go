// Package module wires the jira aggregation service
package module

import (
	"aggbridge/internal/modkit"
	dom "aggbridge/internal/services/jiraagg/domain"
	"aggbridge/internal/services/jiraagg/repo"
	"aggbridge/internal/services/jiraagg/service"
)

// Ports exposed by the jira aggregation module
type Ports struct {
	Processor dom.ProcessorPort
}

// Module bundles the jira aggregation service and its storage
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the jira aggregation module
// bus and rules are external collaborators injected by the caller
func New(deps modkit.Deps, bus dom.EventBus, rules dom.RuleEngine) *Module {
	opts := FromConfig(deps.Cfg)

	st := repo.NewPG().Bind(deps.PG)
	svc := service.New(service.Ports{
		Sprints:     st,
		Statuses:    st,
		Issues:      st,
		Mappings:    st,
		StoryPoints: st,
		Links:       st,
		Bus:         bus,
		Rules:       rules,
		Config:      st,
	}, deps.Flags, deps.Metrics)

	return &Module{
		deps:  deps,
		opts:  opts,
		ports: Ports{Processor: svc},
	}
}

// Name identifies the module in logs
func (m *Module) Name() string { return "jiraagg" }

// Ports returns the module's exposed ports
func (m *Module) Ports() Ports { return m.ports }

// Options returns the resolved module options
func (m *Module) Options() Options { return m.opts }
