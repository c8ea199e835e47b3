package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/classcast/internal/client"
	"github.com/BioHazard786/classcast/internal/naming"
	"github.com/BioHazard786/classcast/internal/protocol"
	"github.com/BioHazard786/classcast/internal/ui"
)

var (
	flagHostName string
	flagHostID   string
)

var hostCmd = &cobra.Command{
	Use:   "host <conference-id|link>",
	Short: "Teach a conference from a live dashboard",
	Long: `Join a conference as its teacher and open the live dashboard.

Keys:
  t    start an attention test
  1-9  call the student in that row
  s/e  start or end screen sharing
  q    quit (this ends the conference for everyone)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confID, err := parseConferenceInput(args[0])
		if err != nil {
			return err
		}
		return host(cmd.Context(), confID)
	},
}

func host(ctx context.Context, confID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	id := flagHostID
	if id == "" {
		id = naming.ParticipantID("teacher")
	}

	conn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := ui.RunWaitingSpinner("Joining conference " + confID + "...")
	data, err := conn.Handler.Join(ctx, protocol.JoinRoom{ConfID: confID, UserID: id, UserName: flagHostName, Role: "teacher"})
	stop()
	if err != nil {
		return fmt.Errorf("join conference: %w", err)
	}

	roster := make(protocol.Roster, 0, len(data.Students))
	for _, s := range data.Students {
		roster = append(roster, protocol.StudentState{StudentID: s.ID, Name: s.Name, Attention: "unknown"})
	}

	ctl := &teacherControls{client: conn.Client, confID: confID}
	reason, err := ui.NewDashboard(confID, flagHostName, ctl, conn.Messages(), roster).Run()
	if err != nil {
		return err
	}

	switch reason {
	case ui.ExitEnded:
		ui.PrintEnded(confID, "Students were disconnected from the room.")
	case ui.ExitLost:
		return client.ErrConnectionLost
	default:
		ui.PrintSuccess("Left the conference")
	}
	return nil
}

// teacherControls turns dashboard keys into protocol messages.
type teacherControls struct {
	client *client.Client
	confID string
}

func (t *teacherControls) AttentionTest() error {
	return t.client.Send(protocol.TypeAttentionTest, protocol.AttentionTest{ConfID: t.confID})
}

func (t *teacherControls) CallStudent(studentID string) error {
	return t.client.Send(protocol.TypeCallStudent, protocol.CallStudent{ConfID: t.confID, StudentID: studentID})
}

func (t *teacherControls) ShareScreen() error {
	return t.client.Send(protocol.TypeShareScreen, protocol.ShareScreen{ConfID: t.confID})
}

func (t *teacherControls) EndScreenShare() error {
	return t.client.Send(protocol.TypeScreenShareEnded, protocol.ScreenShareEnded{ConfID: t.confID})
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().StringVarP(&flagHostName, "name", "n", "Teacher", "Name shown to students")
	hostCmd.Flags().StringVar(&flagHostID, "id", "", "Participant id (default: generated)")
}
