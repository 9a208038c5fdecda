package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/crowdinsight/crowdinsight"
	"github.com/crowdinsight/crowdinsight/engine"
	"github.com/crowdinsight/crowdinsight/internal/config"
	"github.com/crowdinsight/crowdinsight/output"
	"github.com/crowdinsight/crowdinsight/server"
	"github.com/crowdinsight/crowdinsight/session"
)

var rootArgs struct {
	dataset  string
	metadata string
	logLevel string
}

var queryArgs struct {
	page       int
	search     string
	categories []string
	countries  []string
	states     []string
	date       string
	sort       string
	format     string
}

var insightsArgs struct {
	categories []string
	date       string
}

var rootCmd = &cobra.Command{
	Use:   "crowdinsight",
	Short: "Query and analyze crowdfunding campaign snapshots",
	Long: `crowdinsight reads a parquet snapshot of crowdfunding campaigns and
answers filtered browse queries and comparative analytics over it, either
from the command line or over HTTP.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Browse one page of campaigns matching the given filters",
	RunE:  runQuery,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Print the comparative analytics payload as JSON",
	RunE:  runInsights,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the dataset's column names",
	RunE:  runSchema,
}

func main() {
	// Load environment variables from .env file. A missing file is fine,
	// real environment variables still apply.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&rootArgs.dataset, "dataset", "", "path to the parquet snapshot (overrides DATASET_PATH)")
	rootCmd.PersistentFlags().StringVar(&rootArgs.metadata, "filter-metadata", "", "path to filter_metadata.json (overrides FILTER_METADATA_PATH)")
	rootCmd.PersistentFlags().StringVar(&rootArgs.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	queryCmd.Flags().IntVar(&queryArgs.page, "page", 1, "page number (clamped to the valid range)")
	queryCmd.Flags().StringVar(&queryArgs.search, "search", "", "case-insensitive substring search")
	queryCmd.Flags().StringSliceVar(&queryArgs.categories, "categories", nil, "category filter")
	queryCmd.Flags().StringSliceVar(&queryArgs.countries, "countries", nil, "country filter")
	queryCmd.Flags().StringSliceVar(&queryArgs.states, "states", nil, "campaign state filter")
	queryCmd.Flags().StringVar(&queryArgs.date, "date", "", "launch date window (e.g. \"Last Year\")")
	queryCmd.Flags().StringVar(&queryArgs.sort, "sort", "popularity", "sort order: popularity, newest, oldest, mostfunded, mostbacked, enddate")
	queryCmd.Flags().StringVarP(&queryArgs.format, "format", "f", "table", "output format: table, json, jsonl, csv")

	insightsCmd.Flags().StringSliceVar(&insightsArgs.categories, "categories", nil, "category selection")
	insightsCmd.Flags().StringVar(&insightsArgs.date, "date", "", "date window (e.g. \"Last 6 Months\")")

	rootCmd.AddCommand(serveCmd, queryCmd, insightsCmd, schemaCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges flag overrides into the environment configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if rootArgs.dataset != "" {
		cfg.Dataset.Path = rootArgs.dataset
	}
	if rootArgs.metadata != "" {
		cfg.Dataset.MetadataPath = rootArgs.metadata
	}
	if rootArgs.logLevel != "" {
		cfg.Log.Level = rootArgs.logLevel
	}
	if cfg.Dataset.Path == "" {
		return cfg, fmt.Errorf("no dataset given: set DATASET_PATH or pass --dataset")
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	switch strings.ToLower(cfg.Level) {
	case "debug":
		logger = level.NewFilter(logger, level.AllowDebug())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	return logger
}

func openExplorer(cfg config.Config, logger log.Logger) (*crowdinsight.Explorer, error) {
	return crowdinsight.Open(crowdinsight.Options{
		DatasetPath:  cfg.Dataset.Path,
		MetadataPath: cfg.Dataset.MetadataPath,
		PageSize:     cfg.Dataset.PageSize,
		Logger:       logger,
	})
}

func runServe(cmd *cobra.Command, argv []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	explorer, err := openExplorer(cfg, logger)
	if err != nil {
		return err
	}
	defer explorer.Close()

	sessions := session.NewManager(session.State{
		Page:    1,
		Filters: explorer.Metadata().DefaultFilters(),
		Sort:    engine.SortPopularity,
	})

	srv := server.New(cfg.Server, explorer, sessions, logger)

	errCh := make(chan error, 1)
	go func() {
		level.Info(logger).Log("msg", "server starting",
			"host", cfg.Server.Host, "port", cfg.Server.Port,
			"dataset", cfg.Dataset.Path, "rows", explorer.NumRows(),
			"anchor", explorer.AnchorDate().Format("2006-01-02"))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		level.Info(logger).Log("msg", "shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func runQuery(cmd *cobra.Command, argv []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	explorer, err := openExplorer(cfg, logger)
	if err != nil {
		return err
	}
	defer explorer.Close()

	result, err := explorer.Browse(crowdinsight.BrowseRequest{
		Page: queryArgs.page,
		Sort: engine.SortOrder(queryArgs.sort),
		Filters: engine.FilterState{
			Search:     queryArgs.search,
			Categories: queryArgs.categories,
			Countries:  queryArgs.countries,
			States:     queryArgs.states,
			Date:       engine.DateRange(queryArgs.date),
		},
	})
	if err != nil {
		return err
	}

	formatter := output.New(queryArgs.format, os.Stdout)
	if err := formatter.Format(result.Rows); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	fmt.Fprintf(os.Stderr, "page %d of %d (%d matching campaigns)\n",
		result.Page, result.TotalPages(), result.TotalRows)
	return nil
}

func runInsights(cmd *cobra.Command, argv []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	explorer, err := openExplorer(cfg, logger)
	if err != nil {
		return err
	}
	defer explorer.Close()

	result, err := explorer.Insights(engine.InsightsRequest{
		Categories: insightsArgs.categories,
		Date:       engine.DateRange(insightsArgs.date),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runSchema(cmd *cobra.Command, argv []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	explorer, err := openExplorer(cfg, logger)
	if err != nil {
		return err
	}
	defer explorer.Close()

	for _, name := range explorer.Schema().Names() {
		fmt.Println(name)
	}
	return nil
}
