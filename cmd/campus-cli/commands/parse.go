package commands

import (
	"fmt"
	"os"

	"campusdual-backend/internal/extract"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <grades|signup|deregistration> <file.html>",
	Short: "Extracts the records of a saved portal page.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := extract.ParseKind(args[0])
		if err != nil {
			return err
		}
		markup, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		records, err := extract.Parse(markup, kind)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[1], err)
		}
		return render(cmd.OutOrStdout(), records)
	},
}
