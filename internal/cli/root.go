// Package cli holds the classcast command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/classcast/internal/ui"
	"github.com/BioHazard786/classcast/internal/version"
)

var flagServer string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "classcast",
	Short:   "Run and join live classroom sessions from the terminal",
	Long:    `classcast talks to a classcast server. Teachers create a conference and watch a live dashboard of their students' attention; students join from the terminal and answer when called.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "S", "", "Server URL (default $CLASSCAST_SERVER or "+DefaultServer+")")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.FormatError(err))
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*Config, error) {
	return LoadConfig(Options{Server: flagServer})
}
