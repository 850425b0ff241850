package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/registration.report/internal/dataset"
	"github.com/banshee-data/registration.report/internal/store"
)

// withStore opens the curve database for the duration of fn.
func (a *app) withStore(fn func(*store.DB) error) error {
	db, err := store.OpenDB(a.cfg.GetDBPath())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded curve runs",
	}

	var dsName string
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsName != "" {
				if _, err := dataset.Lookup(dsName); err != nil {
					return err
				}
			}
			return a.withStore(func(db *store.DB) error {
				runs, err := store.NewCurveStore(db).List(dsName)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tCREATED\tDATASET\tFOLD\tSELECTOR\tTRIALS\tSUCCESSES")
				for _, r := range runs {
					created := time.Unix(0, r.CreatedAt).UTC().Format(time.RFC3339)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
						r.RunID, created, r.Dataset, r.Fold, r.Selector, r.Trials, r.Successes)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().StringVar(&dsName, "dataset", "", "only runs for this dataset")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print one run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(db *store.DB) error {
				run, err := store.NewCurveStore(db).Get(args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(db *store.DB) error {
				return store.NewCurveStore(db).Delete(args[0])
			})
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
