package tenancy

import (
	"context"

	"clinicore.org/internal/obs"
)

// SchemaSource reports which live tables carry a cabinet relation.
type SchemaSource interface {
	TenantLinkedTables(ctx context.Context) ([]string, error)
}

// Finding kinds reported by the checker.
const (
	FindingUnregistered = "unregistered" // schema has the relation, registry lacks the entry
	FindingStale        = "stale"        // registry entry without a backing relation
)

// Finding is one registry/schema mismatch.
type Finding struct {
	Kind  string
	Table string
}

// Link tables carry the cabinet relation by construction and are not
// list-filtered resource types.
var linkTables = map[string]struct{}{
	"cabinet_owners": {},
	"cabinet_staff":  {},
}

// Checker audits the registry against live schema metadata at startup.
// Every finding is a log-level warning; the checker never fails the boot.
type Checker struct {
	registry *Registry
	schema   SchemaSource
}

// NewChecker constructs the startup audit.
func NewChecker(registry *Registry, schema SchemaSource) *Checker {
	return &Checker{registry: registry, schema: schema}
}

// Run performs both audit directions and returns the findings after
// logging them. An unregistered table is a live hole: list requests for it
// never receive tenant filtering until an entry is added.
func (c *Checker) Run(ctx context.Context) []Finding {
	tables, err := c.schema.TenantLinkedTables(ctx)
	if err != nil {
		obs.Warn("tenancy registry audit skipped", map[string]any{"error": err.Error()})
		return nil
	}

	live := make(map[string]struct{}, len(tables))
	for _, table := range tables {
		if _, link := linkTables[table]; link {
			continue
		}
		live[table] = struct{}{}
	}

	registered := make(map[string]struct{}, len(c.registry.Entries()))
	var findings []Finding

	for _, entry := range c.registry.Entries() {
		registered[entry.Table()] = struct{}{}
		if _, ok := live[entry.Table()]; !ok {
			findings = append(findings, Finding{Kind: FindingStale, Table: entry.Table()})
			obs.Warn("tenancy registry entry is stale", map[string]any{
				"resource": entry.Resource,
				"table":    entry.Table(),
				"hint":     "table no longer declares a cabinet relation; remove the registry entry",
			})
		}
	}

	for table := range live {
		if _, ok := registered[table]; !ok {
			findings = append(findings, Finding{Kind: FindingUnregistered, Table: table})
			obs.Warn("tenant-linked table missing from registry", map[string]any{
				"table": table,
				"hint":  "list requests for this type receive no cabinet filter until registered",
			})
		}
	}
	return findings
}
