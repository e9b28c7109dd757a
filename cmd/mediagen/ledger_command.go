package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BaSui01/mediagen/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the generation cost ledger",
	}
	cmd.AddCommand(newLedgerSpendCommand(ctx))
	cmd.AddCommand(newLedgerRecentCommand(ctx))
	return cmd
}

func (c *commandContext) withLedger(fn func(*ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled {
		return errors.New("ledger is disabled; set ledger.enabled in the config")
	}
	store, err := ledger.Open(cfg.Ledger.Database, c.log())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newLedgerSpendCommand(ctx *commandContext) *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "spend",
		Short: "Show estimated spend per model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := sinceFlag(since, ctx.deps.now())
			if err != nil {
				return fmt.Errorf("invalid --since %q: want a duration like 168h or a date like 2006-01-02", since)
			}
			return ctx.withLedger(func(store *ledger.Store) error {
				spend, err := store.SpendByModel(cmd.Context(), from)
				if err != nil {
					return err
				}
				if len(spend) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No generations recorded.")
					return nil
				}

				rows := make([][]string, 0, len(spend)+1)
				total := 0.0
				for _, s := range spend {
					rows = append(rows, []string{
						s.Model,
						fmt.Sprintf("%d", s.Runs),
						fmt.Sprintf("%d", s.Successes),
						fmt.Sprintf("$%.4f", s.TotalCost),
					})
					total += s.TotalCost
				}
				rows = append(rows, []string{"TOTAL", "", "", fmt.Sprintf("$%.4f", total)})

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Model", "Runs", "Successes", "Spend"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only count generations after this point (duration like 168h or date)")
	return cmd
}

func newLedgerRecentCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recent generations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				recs, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No generations recorded.")
					return nil
				}

				rows := make([][]string, 0, len(recs))
				for _, r := range recs {
					cost := "—"
					if r.Status == "success" {
						cost = fmt.Sprintf("$%.4f", r.EstimatedCost)
					}
					rows = append(rows, []string{r.RunID, r.Model, r.Status, cost, r.PublicURL})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Run", "Model", "Status", "Cost", "URL"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	return cmd
}
