package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/leadscout/crawl"
	"github.com/aluiziolira/leadscout/models"
)

var (
	crawlTarget int
	crawlFormat string
	crawlOutDir string
)

var crawlCmd = &cobra.Command{
	Use:   `crawl "<topic> in <place>"`,
	Short: "Run a single crawl and append the results to the sink file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("target") {
			cfg.Target = crawlTarget
		}
		if cmd.Flags().Changed("format") {
			cfg.Output.Format = strings.ToLower(crawlFormat)
		}
		if cmd.Flags().Changed("output-dir") {
			cfg.Output.Dir = crawlOutDir
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := rt.orchestrator.Run(ctx, args[0], crawl.LogObserver{})
		printSummary(result, filepath.Join(cfg.Output.Dir, result.SinkID))
		return err
	},
}

func init() {
	crawlCmd.Flags().IntVar(&crawlTarget, "target", 0, "qualifying leads to collect (overrides target)")
	crawlCmd.Flags().StringVar(&crawlFormat, "format", "", "output format: csv or dual")
	crawlCmd.Flags().StringVar(&crawlOutDir, "output-dir", "", "directory for sink files")
	rootCmd.AddCommand(crawlCmd)
}

func printSummary(result *models.CrawlResult, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Printf("Crawl %s\n", strings.ReplaceAll(string(result.Outcome), "_", " "))

	fmt.Printf("  Query:         %s\n", result.Query)
	fmt.Printf("  Qualifying:    %d / %d\n", result.Qualifying, result.Target)
	fmt.Printf("  Records:       %d\n", result.RecordCount)
	fmt.Printf("  Skipped:       %d\n", result.SkippedListings)
	if len(result.RecordsByStatus) > 0 {
		statuses := make([]models.Status, 0, len(result.RecordsByStatus))
		for status := range result.RecordsByStatus {
			statuses = append(statuses, status)
		}
		sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
		parts := make([]string, 0, len(statuses))
		for _, status := range statuses {
			parts = append(parts, fmt.Sprintf("%s=%d", status, result.RecordsByStatus[status]))
		}
		fmt.Printf("  By status:     %s\n", strings.Join(parts, ", "))
	}
	places := make([]string, 0, len(result.PlacesVisited))
	for _, p := range result.PlacesVisited {
		places = append(places, string(p))
	}
	fmt.Printf("  Places:        %s\n", strings.Join(places, " -> "))
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}
