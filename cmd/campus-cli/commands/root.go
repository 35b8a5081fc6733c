package commands

import (
	"context"
	"fmt"
	"os"

	"campusdual-backend/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	outputJson *bool
	verbose    *bool
)

var rootCmd = &cobra.Command{
	Use:   "campus-cli",
	Short: "campus-cli inspects the student portal and the tokens issued by campusd.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func init() {
	outputJson = rootCmd.PersistentFlags().Bool("json", false, "Print records as json instead of a table.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
