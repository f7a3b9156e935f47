package introspect

import (
	"context"
	"fmt"
	"sort"

	"github.com/chameleon-db/entityview/pkg/engine"
)

// TableCheck is the outcome of comparing one collection table with the
// columns its relation is flushed through.
type TableCheck struct {
	Entity   string
	Relation string
	Table    string
	Expected []string
	Exists   bool
	Missing  []string
}

// OK reports whether the table exists with every expected column.
func (c TableCheck) OK() bool { return c.Exists && len(c.Missing) == 0 }

// Report lists the collection table checks in schema order.
type Report struct {
	Tables []TableCheck
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return r.Problems() == 0
}

// Problems counts the failed checks.
func (r *Report) Problems() int {
	n := 0
	for _, t := range r.Tables {
		if !t.OK() {
			n++
		}
	}
	return n
}

// CheckCollectionTables verifies that every plural relation of schema has
// a table with its owner, key and element columns.
func CheckCollectionTables(ctx context.Context, in Introspector, schema *engine.Schema) (*Report, error) {
	names, err := in.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	report := &Report{}
	for _, entityName := range schema.EntityNames() {
		ent := schema.GetEntity(entityName)

		relations := make([]string, 0, len(ent.Relations))
		for name, rel := range ent.Relations {
			if rel.Kind.IsPlural() {
				relations = append(relations, name)
			}
		}
		sort.Strings(relations)

		for _, relation := range relations {
			ct, err := schema.CollectionTable(entityName, relation)
			if err != nil {
				return nil, err
			}

			check := TableCheck{
				Entity:   entityName,
				Relation: relation,
				Table:    ct.Table,
				Expected: expectedColumns(ct),
				Exists:   present[ct.Table],
			}
			if !check.Exists {
				check.Missing = check.Expected
				report.Tables = append(report.Tables, check)
				continue
			}

			info, err := in.InspectTable(ctx, ct.Table)
			if err != nil {
				return nil, fmt.Errorf("failed to inspect %s: %w", ct.Table, err)
			}
			for _, col := range check.Expected {
				if info.Column(col) == nil {
					check.Missing = append(check.Missing, col)
				}
			}
			report.Tables = append(report.Tables, check)
		}
	}

	return report, nil
}

func expectedColumns(ct *engine.CollectionTable) []string {
	cols := []string{ct.OwnerColumn}
	if ct.HasKey() {
		cols = append(cols, ct.KeyColumn)
	}
	return append(cols, ct.ElementColumn)
}
