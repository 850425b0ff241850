package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/registration.report/internal/report"
	"github.com/banshee-data/registration.report/internal/results"
)

func (a *app) successCmd() *cobra.Command {
	var dsName, family string
	var html, csv bool
	cmd := &cobra.Command{
		Use:   "success",
		Short: "Plot success rate against initial displacement for one method family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, done, err := a.reporter()
			if err != nil {
				return err
			}
			defer done()

			sr, err := rep.SuccessCurves(report.SuccessRequest{
				Dataset:    dsName,
				Family:     family,
				Preprocess: a.cfg.GetPreprocess(),
				Fold:       a.cfg.GetFold(),
			})
			if err != nil {
				return err
			}
			written, err := rep.WriteSuccess(sr, a.writeOptions(html, csv))
			printWritten(cmd, written)
			return err
		},
	}
	cmd.Flags().StringVar(&dsName, "dataset", "", "dataset name (Eliceiri, Balvan, Zurich)")
	cmd.Flags().StringVar(&family, "family", "SIFT", "plot family (SIFT, aAMD, VXM)")
	cmd.Flags().BoolVar(&html, "html", false, "also write the interactive echarts page")
	cmd.Flags().BoolVar(&csv, "csv", false, "also write the per-bin table")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func (a *app) scatterCmd() *cobra.Command {
	var dsName, method, mode string
	cmd := &cobra.Command{
		Use:   "scatter",
		Short: "Plot registration error against initial displacement for one result set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, done, err := a.reporter()
			if err != nil {
				return err
			}
			defer done()

			sel := results.Selector{Method: method, Mode: mode, Preprocess: a.cfg.GetPreprocess()}
			sr, err := rep.Scatter(report.ScatterRequest{Dataset: dsName, Selector: sel, Fold: a.cfg.GetFold()})
			if err != nil {
				return err
			}
			written, err := rep.WriteScatter(sr, a.writeOptions(false, false))
			printWritten(cmd, written)
			return err
		},
	}
	cmd.Flags().StringVar(&dsName, "dataset", "", "dataset name")
	cmd.Flags().StringVar(&method, "method", "", "method name, including any GAN suffix (e.g. SIFT_p2p_A)")
	cmd.Flags().StringVar(&mode, "mode", "b2a", "registration mode")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}

func (a *app) fidCmd() *cobra.Command {
	var dsName string
	cmd := &cobra.Command{
		Use:   "fid",
		Short: "Plot FID against registration success for the generated-image methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, done, err := a.reporter()
			if err != nil {
				return err
			}
			defer done()

			fr, err := rep.FID(report.FIDRequest{Dataset: dsName, Preprocess: a.cfg.GetPreprocess()})
			if err != nil {
				return err
			}
			written, err := rep.WriteFID(fr, a.writeOptions(false, false))
			printWritten(cmd, written)
			return err
		},
	}
	cmd.Flags().StringVar(&dsName, "dataset", "", "dataset name")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func (a *app) curveCmd() *cobra.Command {
	var dsName, method, mode string
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print one success curve as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, done, err := a.reporter()
			if err != nil {
				return err
			}
			defer done()

			sel := results.Selector{Method: method, Mode: mode, Preprocess: a.cfg.GetPreprocess()}
			cr, err := rep.Curve(report.CurveRequest{Dataset: dsName, Selector: sel, Fold: a.cfg.GetFold()})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Dataset string      `json:"dataset"`
				Fold    string      `json:"fold"`
				Curve   interface{} `json:"curve"`
				Summary interface{} `json:"summary"`
			}{cr.Dataset.Name, cr.Fold.String(), cr.Curve, cr.Summary})
		},
	}
	cmd.Flags().StringVar(&dsName, "dataset", "", "dataset name")
	cmd.Flags().StringVar(&method, "method", "", "method name")
	cmd.Flags().StringVar(&mode, "mode", "b2a", "registration mode")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}

func (a *app) batchCmd() *cobra.Command {
	var families, datasets, fidPre []string
	var html, csv, scatter bool
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Render the success grid (and optionally scatter and FID plots) for several datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, done, err := a.reporter()
			if err != nil {
				return err
			}
			defer done()

			if len(families) == 0 {
				families = a.cfg.GetFamilies()
			}
			if len(datasets) == 0 {
				datasets = a.cfg.GetDatasets()
			}
			items := report.SuccessItems(families, datasets, a.cfg.GetPreprocess(), a.cfg.GetFold())
			if scatter {
				items = append(items, report.ScatterItems(datasets, a.cfg.GetFold())...)
			}
			items = append(items, report.FIDItems(fidPre, datasets)...)

			res, err := rep.Batch(cmd.Context(), items, a.writeOptions(html, csv))
			printWritten(cmd, res.Artifacts)
			if err != nil {
				return err
			}
			if res.Skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped %d scatter plots without results\n", res.Skipped)
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d items failed", res.Failed, len(items))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&families, "families", nil, "plot families (default from config: SIFT,aAMD)")
	cmd.Flags().StringSliceVar(&datasets, "datasets-list", nil, "datasets (default from config: Balvan,Zurich,Eliceiri)")
	cmd.Flags().BoolVar(&scatter, "scatter", false, "also render the per-method error scatter grid")
	cmd.Flags().StringSliceVar(&fidPre, "fid", nil, "also render FID plots for these preprocessing tags (e.g. nopre,hiseq)")
	cmd.Flags().BoolVar(&html, "html", false, "also write echarts pages")
	cmd.Flags().BoolVar(&csv, "csv", false, "also write per-bin tables")
	return cmd
}
