package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sptrsv/sptrsv-sim/internal/pipeline"
	"github.com/sptrsv/sptrsv-sim/internal/rewrite"
	"github.com/sptrsv/sptrsv-sim/internal/scheduler"
	"github.com/sptrsv/sptrsv-sim/pkg/writer"
)

var (
	batchDir         string
	batchOutput      string
	batchJSONOutput  string
	batchJSONGzip    string
	batchConfigPath  string
	batchPELimit     int
	batchNFULimit    int
	batchMaxLC       int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run every graph in a directory and collect a summary CSV",
	Long: `batch runs the full rewrite -> compile -> schedule chain over every
*.json file in a directory, isolating failures per file, and writes one CSV
row per successfully scheduled graph.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	cfg := scheduler.DefaultConfig()
	batchCmd.Flags().StringVarP(&batchDir, "dir", "d", "", "Directory of input graph JSON files (required)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "summary.csv", "Output CSV summary file")
	batchCmd.Flags().StringVar(&batchJSONOutput, "json", "", "Also write the summaries as pretty JSON to this file")
	batchCmd.Flags().StringVar(&batchJSONGzip, "json-gz", "", "Also write the summaries as gzipped JSON to this file")
	batchCmd.Flags().StringVarP(&batchConfigPath, "config", "c", "", "Path to configuration file (enables persistence/upload)")
	batchCmd.Flags().IntVar(&batchPELimit, "pe-limit", cfg.PELimit, "Number of edge-accumulation PEs")
	batchCmd.Flags().IntVar(&batchNFULimit, "nfu-limit", cfg.NFULimit, "Number of fusion units (must be 1)")
	batchCmd.Flags().IntVar(&batchMaxLC, "max-lc", cfg.MaxLC, "Logical clock budget before the simulation gives up")
	batchCmd.MarkFlagRequired("dir")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	deps, closeDeps, err := buildPipelineDeps(batchConfigPath, log)
	if err != nil {
		return err
	}
	if closeDeps != nil {
		defer closeDeps()
	}

	opts := pipeline.DefaultOptions()
	opts.Scheduler = scheduler.Config{PELimit: batchPELimit, NFULimit: batchNFULimit, MaxLC: batchMaxLC}
	opts.Rewrite = rewrite.DefaultOptions()

	results, err := pipeline.Dir(cmd.Context(), batchDir, deps, opts)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	var summaries []scheduler.Summary
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			log.Error("%s: %v", r.Name, r.Err)
			failed++
			continue
		}
		summaries = append(summaries, r.Summary)
	}
	log.Info("Ran %d graphs: %d succeeded, %d failed", len(results), len(summaries), failed)

	csvWriter := writer.NewCSVWriter(
		[]string{"name", "node_count", "max_mec", "total_cycles", "pe_active_cycles", "nfu_active_cycles", "timed_out"},
		func(s scheduler.Summary) []string {
			return []string{
				s.Name,
				strconv.Itoa(s.NodeCount),
				strconv.Itoa(s.MaxMEC),
				strconv.Itoa(s.TotalCycles),
				strconv.Itoa(s.PEActiveCycles),
				strconv.Itoa(s.NFUActiveCycles),
				strconv.FormatBool(s.TimedOut),
			}
		},
	)
	if err := csvWriter.WriteToFile(summaries, batchOutput); err != nil {
		return fmt.Errorf("failed to write summary CSV: %w", err)
	}
	log.Info("Wrote summary CSV to %s", batchOutput)

	if batchJSONOutput != "" {
		if err := writer.NewPrettyJSONWriter[[]scheduler.Summary]().WriteToFile(summaries, batchJSONOutput); err != nil {
			return fmt.Errorf("failed to write summary JSON: %w", err)
		}
		log.Info("Wrote summary JSON to %s", batchJSONOutput)
	}

	if batchJSONGzip != "" {
		result, err := writer.NewGzipWriter[[]scheduler.Summary]().WriteToFileWithStats(summaries, batchJSONGzip)
		if err != nil {
			return fmt.Errorf("failed to write gzipped summary JSON: %w", err)
		}
		log.Info("Wrote gzipped summary JSON to %s (%d -> %d bytes, %.1f%%)",
			batchJSONGzip, result.JSONSize, result.CompressedSize, result.CompressionPct)
	}

	return nil
}
