package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	gridcalc "github.com/cellmesh/gridcalc"
	"github.com/cellmesh/gridcalc/internal/formula"
)

var applyCmd = &cobra.Command{
	Use:   "apply <input.txt> <edits.txt>",
	Short: "Evaluate an input file, then replay an edit log through ChangeCell",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		editText, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		ids := gridcalc.NewIdentTable()
		inputs, err := formula.Parse(ids, string(text))
		if err != nil {
			return err
		}

		eval := gridcalc.NewParallel(ids, evaluatorConfig())
		if err := eval.InitialCalculate(inputs); err != nil {
			return err
		}

		scanner := bufio.NewScanner(strings.NewReader(string(editText)))
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			name, f, err := formula.ParseEdit(ids, line)
			if err != nil {
				return fmt.Errorf("edit line %d: %w", lineNo, err)
			}
			if err := eval.ChangeCell(name, f); err != nil {
				return fmt.Errorf("edit line %d: %w", lineNo, err)
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), formula.Serialize(eval.GetCurrentValues()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
}
