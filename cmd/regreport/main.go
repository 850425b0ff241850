// Command regreport builds success-rate reports from registration results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/registration.report/internal/config"
	"github.com/banshee-data/registration.report/internal/monitoring"
	"github.com/banshee-data/registration.report/internal/render"
	"github.com/banshee-data/registration.report/internal/report"
	"github.com/banshee-data/registration.report/internal/store"
	"github.com/banshee-data/registration.report/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app holds the persistent flags and the configuration they override.
type app struct {
	configPath  string
	datasetsDir string
	dark        bool
	fold        string
	pre         string
	dbPath      string
	record      bool
	verbose     bool

	cfg *config.ReportConfig
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "regreport",
		Short:        "Success-rate reports for image registration results",
		SilenceUsage: true,
		Version:      version.Version,
	}
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.load(cmd)
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "report config file (.json, .yaml or .yml)")
	pf.StringVar(&a.datasetsDir, "datasets", config.DefaultDatasetsDir, "directory holding the <dataset>_patches trees")
	pf.BoolVar(&a.dark, "dark", true, "dark style (svg) instead of light style (pdf)")
	pf.StringVar(&a.fold, "fold", config.DefaultFold, "fold number or \"all\"")
	pf.StringVar(&a.pre, "pre", config.DefaultPreprocess, "preprocessing tag")
	pf.StringVar(&a.dbPath, "db", config.DefaultDBPath, "curve database path")
	pf.BoolVar(&a.record, "record", false, "record computed curves in the database")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.successCmd(),
		a.scatterCmd(),
		a.fidCmd(),
		a.curveCmd(),
		a.batchCmd(),
		a.historyCmd(),
		a.serveCmd(),
		a.migrateCmd(),
		versionCmd(),
	)
	return root
}

// load reads the config file, then applies any flag the user set.
func (a *app) load(cmd *cobra.Command) error {
	monitoring.SetVerbose(a.verbose)

	a.cfg = config.EmptyReportConfig()
	if a.configPath != "" {
		cfg, err := config.LoadReportConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	flags := cmd.Flags()
	if flags.Changed("datasets") {
		a.cfg.DatasetsDir = &a.datasetsDir
	}
	if flags.Changed("dark") {
		a.cfg.Dark = &a.dark
	}
	if flags.Changed("fold") {
		a.cfg.Fold = &a.fold
	}
	if flags.Changed("pre") {
		a.cfg.Preprocess = &a.pre
	}
	if flags.Changed("db") {
		a.cfg.DBPath = &a.dbPath
	}
	if flags.Changed("record") {
		a.cfg.RecordRuns = &a.record
	}
	return a.cfg.Validate()
}

func (a *app) style() render.Style {
	return render.StyleFor(a.cfg.GetDark())
}

func (a *app) writeOptions(html, csv bool) report.WriteOptions {
	return report.WriteOptions{
		Style:      a.style(),
		HTML:       html,
		CSV:        csv,
		AssetsHost: a.cfg.GetAssetsHost(),
	}
}

// newReporter builds a Reporter over the configured datasets and catalog.
func (a *app) newReporter() *report.Reporter {
	rep := report.New(a.cfg.GetDatasetsDir())
	rep.Catalog = a.cfg.Catalog()
	return rep
}

// reporter builds a Reporter from the config. When recording is enabled the
// curve database is opened; the returned func closes it.
func (a *app) reporter() (*report.Reporter, func(), error) {
	rep := a.newReporter()
	if !a.cfg.GetRecordRuns() {
		return rep, func() {}, nil
	}
	db, err := store.OpenDB(a.cfg.GetDBPath())
	if err != nil {
		return nil, nil, err
	}
	rep.Recorder = store.NewCurveStore(db)
	return rep, func() {
		if err := db.Close(); err != nil {
			monitoring.Logf("failed to close %s: %v", db.Path(), err)
		}
	}, nil
}

func printWritten(cmd *cobra.Command, paths []string) {
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
