package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sptrsv/sptrsv-sim/internal/compiler"
	"github.com/sptrsv/sptrsv-sim/internal/dag"
	"github.com/sptrsv/sptrsv-sim/internal/rewrite"
	"github.com/sptrsv/sptrsv-sim/internal/scheduler"
)

var (
	compareInput     string
	comparePELimit   int
	compareMaxLC     int
	compareThreshold int
	compareChunkSize int
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the heterogeneous schedule against a homogeneous PE-only baseline",
	Long: `compare schedules a graph two different ways: rewrite + compile + the
heterogeneous PE/NFU scheduler on one side, and a flat greedy baseline
scheduler over the original, un-rewritten graph on a homogeneous PE-only
pool on the other, then reports how much the rewrite and dedicated NFU
together save in total cycles.`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	cfg := scheduler.DefaultConfig()
	rewriteCfg := rewrite.DefaultOptions()
	compareCmd.Flags().StringVarP(&compareInput, "input", "i", "", "Input dependency graph JSON file (required)")
	compareCmd.Flags().IntVar(&comparePELimit, "pe-limit", cfg.PELimit, "Number of edge-accumulation PEs")
	compareCmd.Flags().IntVar(&compareMaxLC, "max-lc", cfg.MaxLC, "Logical clock budget before a simulation gives up")
	compareCmd.Flags().IntVar(&compareThreshold, "threshold", rewriteCfg.Threshold, "Fan-in above which a node is split")
	compareCmd.Flags().IntVar(&compareChunkSize, "chunk-size", rewriteCfg.ChunkSize, "Parents accumulated per Partial node")
	compareCmd.MarkFlagRequired("input")
}

func runCompare(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	data, err := os.ReadFile(compareInput)
	if err != nil {
		return fmt.Errorf("failed to read input graph: %w", err)
	}
	src, err := dag.ParseNodes(data)
	if err != nil {
		return fmt.Errorf("failed to parse input graph: %w", err)
	}

	rewritten, err := rewrite.Rewrite(src, rewrite.Options{Threshold: compareThreshold, ChunkSize: compareChunkSize})
	if err != nil {
		return fmt.Errorf("rewrite failed: %w", err)
	}

	mec, err := compiler.Compile(rewritten)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	het, err := scheduler.Run(cmd.Context(), rewritten, mec.MEC, scheduler.Config{
		PELimit: comparePELimit, NFULimit: 1, MaxLC: compareMaxLC,
	})
	if err != nil {
		return fmt.Errorf("heterogeneous schedule failed: %w", err)
	}

	base, err := scheduler.RunBaseline(cmd.Context(), src, comparePELimit, compareMaxLC)
	if err != nil {
		return fmt.Errorf("baseline schedule failed: %w", err)
	}

	log.Info("Nodes: %d, max MEC: %d", rewritten.Len(), mec.MaxMEC)
	log.Info("Heterogeneous (dedicated NFU): total_cycles=%d pe_active=%d nfu_active=%d timed_out=%v",
		het.Stats.TotalCycles, het.Stats.PEActiveCycles, het.Stats.NFUActiveCycles, het.TimedOut)
	log.Info("Baseline (homogeneous, un-rewritten): total_cycles=%d pe_active=%d timed_out=%v",
		base.Stats.TotalCycles, base.Stats.PEActiveCycles, base.TimedOut)

	if base.Stats.TotalCycles > 0 {
		saved := base.Stats.TotalCycles - het.Stats.TotalCycles
		pct := float64(saved) / float64(base.Stats.TotalCycles) * 100
		log.Info("Rewrite + dedicated NFU saves %d cycles (%.1f%%)", saved, pct)
	}

	return nil
}
