package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deflatekit/pack/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	// Skip config loading.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.VERSION)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
