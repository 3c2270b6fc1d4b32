package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sptrsv/sptrsv-sim/internal/gen"
)

var (
	genOutput   string
	genDim      int
	genSeed     int64
	genSparsity float64

	genSuperRatio      float64
	genSuperDegreeMin  int
	genSuperDegreeMax  int
	genNormalDegreeMax int
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a synthetic lower-triangular dependency graph",
}

var genSyntheticCmd = &cobra.Command{
	Use:   "synthetic",
	Short: "Generate a uniform-sparsity lower-triangular graph",
	Long: `synthetic generates a lower-triangular dependency graph where each
row independently depends on each earlier row with a fixed probability.`,
	RunE: runGenSynthetic,
}

var genLongtailCmd = &cobra.Command{
	Use:   "longtail",
	Short: "Generate a long-tail graph with a handful of high fan-in rows",
	Long: `longtail generates a lower-triangular dependency graph where most
rows have a low in-degree but a chosen fraction of rows are given a
deliberately high in-degree, giving the rewriter's fan-in threshold
something to actually split.`,
	RunE: runGenLongtail,
}

func init() {
	rootCmd.AddCommand(genCmd)
	genCmd.AddCommand(genSyntheticCmd)
	genCmd.AddCommand(genLongtailCmd)

	genCmd.PersistentFlags().StringVarP(&genOutput, "output", "o", "graph.json", "Output file for the generated graph")
	genCmd.PersistentFlags().IntVarP(&genDim, "dim", "n", 1000, "Number of rows to generate")
	genCmd.PersistentFlags().Int64Var(&genSeed, "seed", 1, "Random seed")

	genSyntheticCmd.Flags().Float64Var(&genSparsity, "sparsity", 0.01, "Per-pair dependency probability")

	genLongtailCmd.Flags().Float64Var(&genSuperRatio, "super-ratio", 0.01, "Fraction of rows promoted to super rows")
	genLongtailCmd.Flags().IntVar(&genSuperDegreeMin, "super-degree-min", 20, "Minimum in-degree for a super row")
	genLongtailCmd.Flags().IntVar(&genSuperDegreeMax, "super-degree-max", 40, "Maximum in-degree for a super row")
	genLongtailCmd.Flags().IntVar(&genNormalDegreeMax, "normal-degree-max", 10, "Maximum in-degree for a non-super row")
}

func runGenSynthetic(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	g, err := gen.Synthetic(gen.SyntheticOptions{Dim: genDim, Sparsity: genSparsity, Seed: genSeed})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if err := g.WriteFile(genOutput); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	log.Info("Generated synthetic graph with %d nodes to %s", g.Len(), genOutput)
	return nil
}

func runGenLongtail(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	g, err := gen.LongTail(gen.LongTailOptions{
		Dim:             genDim,
		SuperNodeRatio:  genSuperRatio,
		SuperDegreeMin:  genSuperDegreeMin,
		SuperDegreeMax:  genSuperDegreeMax,
		NormalDegreeMax: genNormalDegreeMax,
		Seed:            genSeed,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if err := g.WriteFile(genOutput); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	log.Info("Generated long-tail graph with %d nodes to %s", g.Len(), genOutput)
	return nil
}
