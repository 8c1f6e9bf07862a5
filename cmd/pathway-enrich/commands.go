package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/config"
	"pathwaycore/internal/core"
	"pathwaycore/pkg/domain"
)

var (
	configPath  string
	logLevel    string
	jsonLogs    bool
	traceOps    bool
	metricsFile string

	targetSpecies      string
	includeInteractors bool
	storeReport        bool
)

var rootCmd = &cobra.Command{
	Use:   "pathway-enrich",
	Short: "Pathway over-representation analysis against a canonical graph",
	Long: `pathway-enrich loads a canonical pathway graph from the configured store
and resolves identifier samples against it.

Configuration is read from --config (YAML) and PATHWAYCORE_* environment
variables.`,
	SilenceUsage: true,
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Build a graph document and persist it to the configured store",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var speciesCmd = &cobra.Command{
	Use:   "species",
	Short: "List the species with a pathway hierarchy",
	Args:  cobra.NoArgs,
	RunE:  runSpecies,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Run an over-representation analysis for a sample file (- for stdin)",
	Long: `Each line of the sample holds an identifier, optionally followed by
expression columns separated by tabs, commas or spaces. NA marks an absent
value and lines starting with # are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var mapCmd = &cobra.Command{
	Use:   "map FILE",
	Short: "Show the canonical identifiers each submitted identifier resolves to",
	Args:  cobra.ExactArgs(1),
	RunE:  runMap,
}

var compareCmd = &cobra.Command{
	Use:   "compare FROM TO",
	Short: "Analyze the native sample of one species projected onto another",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML configuration file")
	pf.StringVar(&logLevel, "log-level", "", "override log_level (debug, info, warn, error)")
	pf.BoolVar(&jsonLogs, "json", false, "emit JSON logs")
	pf.BoolVar(&traceOps, "trace", false, "write one JSON trace line per engine operation to stderr")
	pf.StringVar(&metricsFile, "metrics-file", "", "write collected metrics to this file on exit")

	for _, cmd := range []*cobra.Command{analyzeCmd, mapCmd} {
		cmd.Flags().StringVar(&targetSpecies, "target-species", "", "project hits onto this species (name or taxonomy id)")
		cmd.Flags().BoolVar(&includeInteractors, "interactors", false, "include interactor evidence")
	}
	analyzeCmd.Flags().BoolVar(&storeReport, "report", false, "store the result as reports/<token>.json in the blob store")

	rootCmd.AddCommand(importCmd, speciesCmd, analyzeCmd, mapCmd, compareCmd)
}

// app carries the per-invocation wiring shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	store  domain.GraphStore
	svc    *core.Service
	flush  func() error
}

func setup(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if jsonLogs {
		cfg.LogFormat = "json"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: cfg.NewLogger(cmd.ErrOrStderr()), flush: func() error { return nil }}
	opts := append(cfg.ServiceOptions(), core.WithLogger(a.logger))
	if traceOps {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(cmd.ErrOrStderr())))
	}
	switch cfg.Metrics {
	case config.MetricsExpvar:
		rec := core.NewExpvarMetricsRecorder("")
		opts = append(opts, core.WithMetricsRecorder(rec), core.WithPoolObserver(rec))
		a.flush = func() error { return writeExpvarMetrics(rec) }
	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithMetricsRecorder(rec), core.WithPoolObserver(rec))
		a.flush = func() error {
			if metricsFile == "" {
				return nil
			}
			return prometheus.WriteToTextfile(metricsFile, reg)
		}
	}

	store, err := core.OpenGraphStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	a.store = store
	a.svc = core.NewService(opts...)
	a.logger.Debug("configured", "storage", cfg.Storage.Driver, "pool_size", cfg.PoolSize, "metrics", cfg.Metrics)
	return a, nil
}

func writeExpvarMetrics(rec *core.ExpvarMetricsRecorder) error {
	if metricsFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(rec.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	if err := os.WriteFile(metricsFile, data, 0o644); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// close stops the engine, closes the store and flushes metrics.
func (a *app) close(ctx context.Context) error {
	errs := []error{a.svc.Close(ctx)}
	if c, ok := a.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.flush())
	return errors.Join(errs...)
}

// withApp runs fn against a freshly wired app and always tears it down.
func withApp(cmd *cobra.Command, load bool, fn func(context.Context, *app) error) (err error) {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer func() {
		if cerr := a.close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if load {
		if err := a.svc.LoadFrom(ctx, a.store); err != nil {
			if errors.Is(err, domain.ErrGraphNotStored) {
				return fmt.Errorf("%w: run 'pathway-enrich import' first", err)
			}
			return err
		}
	}
	return fn(ctx, a)
}

func runImport(cmd *cobra.Command, args []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		in, err := openInput(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		defer in.Close()
		var doc domain.GraphDocument
		if err := json.NewDecoder(in).Decode(&doc); err != nil {
			return fmt.Errorf("decode graph document: %w", err)
		}
		if err := a.svc.LoadDocument(ctx, doc); err != nil {
			return err
		}
		if err := a.svc.StoreTo(ctx, a.store); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported graph %s: %d species, %d pathways, %d entities, %d interactors\n",
			doc.Version, len(doc.Species), len(doc.Pathways), len(doc.Entities), len(doc.Interactors))
		return nil
	})
}

func runSpecies(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, true, func(_ context.Context, a *app) error {
		species, err := a.svc.Species()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, sp := range species {
			fmt.Fprintf(out, "%s\t%s\n", sp.TaxID, sp.Name)
		}
		return nil
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sample, err := readSample(cmd, args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		opts := domain.AnalysisOptions{TargetSpecies: targetSpecies, IncludeInteractors: includeInteractors}
		res, err := a.svc.AnalyzeResult(ctx, sample, opts)
		if err != nil {
			return err
		}
		if storeReport {
			if err := a.storeReport(ctx, res); err != nil {
				return err
			}
		}
		return writeJSON(cmd.OutOrStdout(), res)
	})
}

// reportKey is the blob key a stored analysis result is written under.
func reportKey(token string) string { return "reports/" + token + ".json" }

func (a *app) storeReport(ctx context.Context, res domain.AnalysisResult) error {
	store, err := blob.Open(ctx, a.cfg.Storage.Blob)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	version := ""
	if g, err := a.svc.Graph(); err == nil {
		version = g.Version()
	}
	key := reportKey(res.Token)
	if _, err := blob.PutJSON(ctx, store, key, res, map[string]string{"graph_version": version}); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	a.logger.Info("report stored", "key", key, "driver", store.Driver())
	return nil
}

func runMap(cmd *cobra.Command, args []string) error {
	sample, err := readSample(cmd, args[0])
	if err != nil {
		return err
	}
	texts := make([]string, len(sample))
	for i, id := range sample {
		texts[i] = id.ID
	}
	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		opts := domain.AnalysisOptions{TargetSpecies: targetSpecies, IncludeInteractors: includeInteractors}
		mapped, err := a.svc.Map(ctx, texts, opts)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), mapped)
	})
}

func runCompare(cmd *cobra.Command, args []string) error {
	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		snap, err := a.svc.Compare(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), snap.Result())
	})
}

func readSample(cmd *cobra.Command, path string) ([]domain.Identifier, error) {
	in, err := openInput(path, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return readIdentifiers(in)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
