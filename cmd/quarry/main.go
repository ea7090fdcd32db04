package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quarryhq/quarry/pkg/config"
	"github.com/quarryhq/quarry/pkg/extract"
	"github.com/quarryhq/quarry/pkg/logger"
	"github.com/quarryhq/quarry/pkg/sink"
	"github.com/quarryhq/quarry/pkg/source"
	"github.com/quarryhq/quarry/pkg/table"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "quarry",
		Short: "Quarry - partitioned relational table extraction",
		Long: `Quarry bulk-copies large relational tables by splitting extraction into
year-bounded shards and running them concurrently, each shard on its own
exclusive connection. Results land as delimited-text files.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Quarry v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "sources",
		Short: "List registered source providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available source providers:")
			for _, name := range source.List() {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	root.AddCommand(newRunCmd())
	root.AddCommand(newPreviewCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var configFile, jobsFile, outputDir string
	var workers int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run extraction jobs",
		Long: `Run the extraction jobs listed in the configuration file (or a separate
JSON jobs file). Each job runs partitioned by default when it names a
partition column, sequentially otherwise.

Example:
  quarry run --config quarry.yaml --output ./out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(configFile, jobsFile, outputDir, workers, timeout)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "quarry.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&jobsFile, "jobs", "", "Path to JSON jobs file (overrides jobs in config)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for CSV artifacts (overrides config)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker ceiling per job (overrides config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Hour, "Overall run timeout")

	return cmd
}

func runJobs(configFile, jobsFile, outputDir string, workers int, timeout time.Duration) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Development: cfg.Log.Development,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	jobs := cfg.Jobs
	if jobsFile != "" {
		jobs, err = config.LoadJobs(jobsFile)
		if err != nil {
			return err
		}
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no extraction jobs configured")
	}

	if workers > 0 {
		cfg.Extract.WorkerCeiling = workers
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}

	provider, err := source.New(cfg.Source.Type, cfg.SourceParams())
	if err != nil {
		return err
	}

	engine, err := extract.NewEngine(provider, extract.Config{
		WorkerCeiling: cfg.Extract.WorkerCeiling,
		Hardware:      hardwareConcurrency(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log := logger.With(
		zap.String("source", cfg.Source.Type),
		zap.Int("jobs", len(jobs)))
	log.Info("starting extraction run")
	start := time.Now()

	orch := extract.NewOrchestrator(engine)
	results, err := orch.RunJobs(ctx, jobs, extract.RunOptions{
		PersistDir: cfg.Output.Dir,
		Sink: sink.Options{
			Delimiter: cfg.SinkDelimiter(),
			Compress:  cfg.Output.Compress,
			Timestamp: cfg.Output.Timestamp,
		},
	})
	if err != nil {
		return err
	}

	var rows, failedKeys, failedShards int
	for _, res := range results {
		rows += res.RowCount()
		failedKeys += len(res.KeyErrors)
		failedShards += res.FailedShards
	}

	log.Info("extraction run complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int("tables", len(results)),
		zap.Int("rows", rows),
		zap.Int("failed_keys", failedKeys),
		zap.Int("failed_shards", failedShards))

	return nil
}

func newPreviewCmd() *cobra.Command {
	var configFile, schema, tableName string
	var limit int
	var sample bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview rows from a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			provider, err := source.New(cfg.Source.Type, cfg.SourceParams())
			if err != nil {
				return err
			}

			if schema == "" {
				schema = cfg.Source.Schema
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			res, err := previewTable(ctx, provider, schema, tableName, limit, sample)
			if err != nil {
				return err
			}

			printResult(res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "quarry.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&schema, "schema", "", "Source schema")
	cmd.Flags().StringVarP(&tableName, "table", "t", "", "Source table (required)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of rows to fetch")
	cmd.Flags().BoolVar(&sample, "sample", false, "Use vendor sampling instead of a plain limit")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func previewTable(ctx context.Context, provider source.Provider, schema, tableName string, limit int, sample bool) (*table.Result, error) {
	if sample {
		return source.Sample(ctx, provider, schema, tableName, limit)
	}
	return source.Peek(ctx, provider, schema, tableName, limit)
}

func printResult(res *table.Result) {
	for i, col := range res.Columns {
		if i > 0 {
			fmt.Print(",")
		}
		fmt.Print(col)
	}
	fmt.Println()
	for _, row := range res.Rows {
		for i, v := range row {
			if i > 0 {
				fmt.Print(",")
			}
			fmt.Printf("%v", v)
		}
		fmt.Println()
	}
}

// hardwareConcurrency asks the OS for the logical core count, falling back
// to the Go runtime's view when the probe fails.
func hardwareConcurrency() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
