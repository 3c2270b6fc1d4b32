package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sptrsv/sptrsv-sim/internal/compiler"
	"github.com/sptrsv/sptrsv-sim/internal/dag"
	"github.com/sptrsv/sptrsv-sim/internal/scheduler"
)

var (
	scheduleInput    string
	scheduleMECPath  string
	scheduleTrace    string
	schedulePELimit  int
	scheduleNFULimit int
	scheduleMaxLC    int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Cycle-accurately simulate dispatch on the PE/NFU hardware model",
	Long: `schedule simulates a rewritten graph against its MEC map on the
heterogeneous accelerator: a fixed bank of edge-accumulation PEs and a single
shared NFU for fusion nodes. At each logical cycle, a node whose MEC has
arrived and whose inputs are done has its update or fusion made mandatory,
and one pending edge per target is promoted once its slack reaches zero;
queued work is issued in ascending slack order.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	cfg := scheduler.DefaultConfig()
	scheduleCmd.Flags().StringVarP(&scheduleInput, "input", "i", "", "Input rewritten graph JSON file (required)")
	scheduleCmd.Flags().StringVar(&scheduleMECPath, "mec", "", "Input MEC map JSON file (required)")
	scheduleCmd.Flags().StringVar(&scheduleTrace, "trace", "", "Write the dispatch trace to this file")
	scheduleCmd.Flags().IntVar(&schedulePELimit, "pe-limit", cfg.PELimit, "Number of edge-accumulation PEs")
	scheduleCmd.Flags().IntVar(&scheduleNFULimit, "nfu-limit", cfg.NFULimit, "Number of fusion units (must be 1)")
	scheduleCmd.Flags().IntVar(&scheduleMaxLC, "max-lc", cfg.MaxLC, "Logical clock budget before the simulation gives up")
	scheduleCmd.MarkFlagRequired("input")
	scheduleCmd.MarkFlagRequired("mec")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	graphData, err := os.ReadFile(scheduleInput)
	if err != nil {
		return fmt.Errorf("failed to read input graph: %w", err)
	}
	g, err := dag.ParseNodes(graphData)
	if err != nil {
		return fmt.Errorf("failed to parse input graph: %w", err)
	}

	mec, err := compiler.LoadMECMap(scheduleMECPath)
	if err != nil {
		return fmt.Errorf("failed to load MEC map: %w", err)
	}

	cfg := scheduler.Config{PELimit: schedulePELimit, NFULimit: scheduleNFULimit, MaxLC: scheduleMaxLC}
	result, err := scheduler.Run(cmd.Context(), g, mec, cfg)
	if err != nil {
		return fmt.Errorf("schedule failed: %w", err)
	}

	summary := scheduler.Summarize(scheduleInput, g.Len(), maxMEC(mec), result)
	log.Info("Total cycles: %d (PE active %d, NFU active %d)", summary.TotalCycles, summary.PEActiveCycles, summary.NFUActiveCycles)
	if result.TimedOut {
		log.Warn("Simulation hit the logical clock budget (%d) before every node dispatched", cfg.MaxLC)
	}

	if scheduleTrace != "" {
		if err := result.WriteTraceFile(scheduleTrace); err != nil {
			return fmt.Errorf("failed to write trace: %w", err)
		}
		log.Info("Wrote dispatch trace to %s", scheduleTrace)
	}

	return nil
}

func maxMEC(mec compiler.MECMap) int {
	max := 0
	for _, v := range mec {
		if v > max {
			max = v
		}
	}
	return max
}
