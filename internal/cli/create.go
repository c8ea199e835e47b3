package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/classcast/internal/client"
	"github.com/BioHazard786/classcast/internal/ui"
)

var flagTeacherName string

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a conference",
	Long: `Create a new conference on the server and print its id and link.

Examples:
  classcast create --name Ada
  classcast create --name Ada --server https://class.example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		stop := ui.RunSpinner("Creating conference...")
		api := client.NewAPI(cfg.Server)
		id, err := api.CreateConference(cmd.Context(), flagTeacherName)
		stop()
		if err != nil {
			return fmt.Errorf("create conference: %w", err)
		}

		ui.RenderConferenceInfo(ui.ConferenceInfo{
			ConfID:  id,
			Teacher: flagTeacherName,
			Link:    api.ConferenceLink(id),
		})
		fmt.Println()
		ui.PrintInfof("Start the dashboard with: classcast host %s --name %q", id, flagTeacherName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVarP(&flagTeacherName, "name", "n", "", "Teacher name (required)")
	createCmd.MarkFlagRequired("name")
}
