package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	gridcalc "github.com/cellmesh/gridcalc"
	"github.com/cellmesh/gridcalc/internal/formula"
)

var evalCmd = &cobra.Command{
	Use:   "eval <input.txt>",
	Short: "Parse an input file and print every cell's calculated value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		ids := gridcalc.NewIdentTable()
		inputs, err := formula.Parse(ids, string(text))
		if err != nil {
			return err
		}

		start := time.Now()
		eval := gridcalc.NewParallel(ids, evaluatorConfig())
		if err := eval.InitialCalculate(inputs); err != nil {
			return err
		}
		log.Printf("evaluated %d cells in %v", len(inputs), time.Since(start))

		fmt.Fprint(cmd.OutOrStdout(), formula.Serialize(eval.GetCurrentValues()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
