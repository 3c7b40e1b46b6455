package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ErrFilesDiffer is returned by the diff command's RunE when the two
// files are not byte-identical, giving Execute's os.Exit(1) a non-nil
// error to key off without the subcommand calling os.Exit itself.
var ErrFilesDiffer = errors.New("files differ")

var diffCmd = &cobra.Command{
	Use:   "diff <a.txt> <b.txt>",
	Short: "Report whether two serialized output files are byte-identical",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		b, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		if bytes.Equal(a, b) {
			fmt.Fprintln(cmd.OutOrStdout(), "identical")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), "differ")
		return ErrFilesDiffer
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
