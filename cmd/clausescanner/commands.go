package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ClauseScanner/internal/app"
	"ClauseScanner/internal/catalogue"
	"ClauseScanner/internal/config"
	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/ingest"
	"ClauseScanner/internal/logging"
	"ClauseScanner/internal/policy"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clausescanner",
		Short:        "Flag risky contract clauses and suggest safe rewrites",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newAnalyzeCmd(), newCatalogueCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := build(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(ctx)
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a contract file and print the JSON report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read contract: %w", err)
			}

			application, err := build(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			if format == "" {
				format = ingest.FormatFromName(args[0])
			}
			report, err := application.Analyzer().Analyze(cmd.Context(), domain.Document{
				Name:    filepath.Base(args[0]),
				Format:  format,
				Content: content,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "document format (text, html); inferred from the extension when empty")
	return cmd
}

func newCatalogueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalogue",
		Short: "List the risk categories of the configured catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cat, err := catalogue.Load(cfg.Catalogue.Path)
			if err != nil {
				return err
			}
			return printCatalogue(cmd, cat)
		},
	}
}

func printCatalogue(cmd *cobra.Command, cat *catalogue.Catalogue) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tPOLICY\tHYPOTHESIS")
	for _, def := range cat.Definitions() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", def.Category, policy.Classify(def.Category), def.Hypothesis)
	}
	return w.Flush()
}

func build(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return app.New(cmd.Context(), cfg, logger)
}
