package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/classcast/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the classcast version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "classcast", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
