package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spf13/cobra"

	"github.com/chameleon-db/entityview/internal/config"
	"github.com/chameleon-db/entityview/internal/pgtest"
	"github.com/chameleon-db/entityview/pkg/collection"
	"github.com/chameleon-db/entityview/pkg/engine"
	"github.com/chameleon-db/entityview/pkg/engine/mutation"
	"github.com/chameleon-db/entityview/pkg/flush"
)

var (
	planSQL      bool
	planApply    bool
	planSchema   string
	planStrategy string
)

var planCmd = &cobra.Command{
	Use:   "plan <scenario.yml>",
	Short: "Show how a changed plural attribute would be flushed",
	Long: `Run the flush decision for a scenario and print the chosen operation
and the fused actions.

With --sql the statements are generated against an in-process querier
and printed. With --apply they run in a transaction on the configured
database. The entity strategy mutates a copy of the loaded value and
prints the result.

Examples:
  entityview plan scores.yml
  entityview plan scores.yml --sql
  entityview plan scores.yml --strategy entity`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := LoadScenario(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadProjectConfig()
		if err != nil {
			return err
		}

		opts := planOptions{
			SQL:      planSQL,
			Apply:    planApply,
			Strategy: planStrategy,
			Debug:    os.Stderr,
		}
		if planSchema != "" {
			if opts.Schema, err = loadSchema(planSchema); err != nil {
				return err
			}
		}

		_, err = runPlan(context.Background(), cmd.OutOrStdout(), sc, cfg.Flush, opts)
		return err
	},
}

func init() {
	planCmd.Flags().BoolVar(&planSQL, "sql", false, "print the generated statements")
	planCmd.Flags().BoolVar(&planApply, "apply", false, "execute the statements on the database")
	planCmd.Flags().StringVar(&planSchema, "schema", "", "JSON schema declaring the collection table")
	planCmd.Flags().StringVar(&planStrategy, "strategy", "", "override the flush strategy (query|entity)")
	rootCmd.AddCommand(planCmd)
}

type planOptions struct {
	SQL      bool
	Apply    bool
	Strategy string

	// Schema defaults to one declaring only the scenario's relation.
	Schema *engine.Schema
	Debug  io.Writer
}

type planResult struct {
	Flusher    *flush.PluralFlusher
	Statements []pgtest.Call
	Entity     interface{}
}

func runPlan(ctx context.Context, w io.Writer, sc *Scenario, fc config.FlushConfig, opts planOptions) (*planResult, error) {
	initial, current, err := sc.Values()
	if err != nil {
		return nil, err
	}
	f, err := sc.Flusher()
	if err != nil {
		return nil, err
	}
	owner := sc.OwnerView(initial, current)

	if sc.Strategy != "" {
		fc.Strategy = sc.Strategy
	}
	if opts.Strategy != "" {
		fc.Strategy = opts.Strategy
	}
	if opts.Debug == nil {
		opts.Debug = io.Discard
	}
	dc := fc.DebugContext(opts.Debug)

	var (
		queries flush.QueryFactory
		dry     *pgtest.Querier
		tx      pgx.Tx
	)
	if opts.SQL || opts.Apply {
		schema := opts.Schema
		if schema == nil {
			schema = sc.Schema()
		}
		eng := engine.NewEngine(schema).WithDebugContext(dc)
		mutation.InitFactory(eng)

		if opts.Apply {
			base := engine.NewConnector(getConnectorConfig())
			if err := base.Connect(ctx); err != nil {
				return nil, err
			}
			defer base.Close()
			if tx, err = base.Pool().Begin(ctx); err != nil {
				return nil, fmt.Errorf("failed to begin transaction: %w", err)
			}
			defer tx.Rollback(ctx)
			eng.UseConnector(base.WithTx(tx))
		} else {
			// every dry statement reports one row, so upserts never fall back
			dry = &pgtest.Querier{ExecFunc: func(sql string, args []interface{}) (pgconn.CommandTag, error) {
				return pgtest.Tag(sql, 1), nil
			}}
			eng.UseConnector(engine.NewConnectorWithQuerier(dry))
		}
		queries = eng
	}

	uc := flush.NewUpdateContext(ctx, queries, fc.Options(dc.Logger)...)
	res := &planResult{}

	d, err := f.GetDirtyFlusher(uc, owner, initial, current)
	if err != nil {
		return nil, err
	}
	if d == nil {
		successColor.Fprintf(w, "✓ %s.%s: nothing to flush\n", sc.Entity, sc.Attribute)
		return res, nil
	}
	res.Flusher, _ = d.(*flush.PluralFlusher)
	printDecision(w, sc, uc, res.Flusher)

	if uc.Strategy() == flush.StrategyEntity {
		target := &scenarioEntity{value: loadedCopy(initial)}
		changed, err := d.FlushEntity(uc, target, owner, current)
		if err != nil {
			return nil, err
		}
		res.Entity = target.value
		fmt.Fprintf(w, "  entity:    %s (changed: %t)\n", describe(target.value), changed)
		return res, nil
	}

	if queries == nil {
		return res, nil
	}

	if err := d.FlushQuery(uc, owner, current); err != nil {
		return nil, err
	}
	if dry != nil {
		res.Statements = dry.Calls()
		fmt.Fprintln(w, "  statements:")
		for _, call := range res.Statements {
			fmt.Fprintf(w, "    %s %v\n", call.SQL, call.Args)
		}
	}
	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		successColor.Fprintf(w, "✓ Applied %s.%s\n", sc.Entity, sc.Attribute)
	}
	return res, nil
}

func printDecision(w io.Writer, sc *Scenario, uc *flush.UpdateContext, p *flush.PluralFlusher) {
	infoColor.Fprintf(w, "%s.%s (%s, %s strategy)\n", sc.Entity, sc.Attribute, sc.Kind, uc.Strategy())
	if p == nil {
		return
	}
	fmt.Fprintf(w, "  rule:      %s\n", p.Rule())
	fmt.Fprintf(w, "  operation: %s\n", p.Operation())
	fmt.Fprintf(w, "  fetch:     %t\n", p.Fetch())
	fmt.Fprintf(w, "  upsert:    %t\n", p.IsUpsert())

	var actions []string
	for _, a := range p.MapActions() {
		actions = append(actions, fmt.Sprint(a))
	}
	for _, a := range p.CollectionActions() {
		actions = append(actions, fmt.Sprint(a))
	}
	if len(actions) == 0 {
		return
	}
	fmt.Fprintln(w, "  actions:")
	for _, a := range actions {
		fmt.Fprintf(w, "    - %s\n", a)
	}
}

func describe(v interface{}) string {
	switch c := v.(type) {
	case *collection.OrderedMap:
		parts := make([]string, 0, c.Len())
		for _, e := range c.Entries() {
			parts = append(parts, fmt.Sprintf("%v: %v", e.Key, e.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case collection.Collection:
		return fmt.Sprint(c.Items())
	case nil:
		return "<unset>"
	}
	return fmt.Sprint(v)
}

func loadSchema(path string) (*engine.Schema, error) {
	eng, err := engine.NewEngineWithSchema(path)
	if err != nil {
		return nil, err
	}
	return eng.GetSchema(), nil
}
