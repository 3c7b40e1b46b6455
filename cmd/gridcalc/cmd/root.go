package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	gridcalc "github.com/cellmesh/gridcalc"
)

var (
	numWorkers    int
	fallbackRatio float64
)

var rootCmd = &cobra.Command{
	Use:   "gridcalc",
	Short: "A concurrent in-memory spreadsheet evaluation engine",
	Long: `gridcalc evaluates cells named by a letter-plus-number identifier
("B17") and defined by an additive formula over literal integers and
references to other cells, using a lock-free parallel evaluator for
both the initial bulk pass and incremental edit recomputation.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVar(&numWorkers, "workers", 0, "worker goroutines per evaluator run (0 = runtime.NumCPU())")
	rootCmd.PersistentFlags().Float64Var(&fallbackRatio, "fallback-ratio", 0.8, "affected-fraction threshold that triggers a full bulk recalculation on edit")

	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("fallback_ratio", rootCmd.PersistentFlags().Lookup("fallback-ratio"))
	viper.SetEnvPrefix("GRIDCALC")
	viper.AutomaticEnv()
}

// evaluatorConfig builds a gridcalc.Config from flags/env, falling back
// to gridcalc.DefaultConfig() for anything left unset.
func evaluatorConfig() gridcalc.Config {
	cfg := gridcalc.DefaultConfig()
	if w := viper.GetInt("workers"); w > 0 {
		cfg.NumWorkers = w
	}
	if r := viper.GetFloat64("fallback_ratio"); r > 0 {
		cfg.FallbackRatio = r
	}
	return cfg
}
