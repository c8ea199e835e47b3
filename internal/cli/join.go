package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/classcast/internal/client"
	"github.com/BioHazard786/classcast/internal/naming"
	"github.com/BioHazard786/classcast/internal/protocol"
	"github.com/BioHazard786/classcast/internal/ui"
)

var (
	flagStudentName   string
	flagStudentID     string
	flagAttention     string
	flagEmotion       string
	flagCamera        string
	flagHandRaised    bool
	flagFeelBad       bool
	flagNoRespond     bool
	flagRequestStream bool
)

var joinCmd = &cobra.Command{
	Use:     "join <conference-id|link>",
	Aliases: []string{"j"},
	Short:   "Join a conference as a student",
	Long: `Join a conference as a student, report your state and stay until the
conference ends.

A call from the teacher is answered automatically unless --no-respond is set.

Examples:
  classcast join 3f2a... --name Bo
  classcast join http://localhost:3000/conference/3f2a... --name Bo --attention distracted --hand`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confID, err := parseConferenceInput(args[0])
		if err != nil {
			return err
		}
		return join(cmd.Context(), confID)
	},
}

func join(ctx context.Context, confID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := client.NewAPI(cfg.Server).CheckConference(ctx, confID, flagStudentName); err != nil {
		return err
	}
	id := flagStudentID
	if id == "" {
		id = naming.ParticipantID("student")
	}

	conn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := ui.RunWaitingSpinner("Joining conference " + confID + "...")
	data, err := conn.Handler.Join(ctx, protocol.JoinRoom{ConfID: confID, UserID: id, UserName: flagStudentName, Role: "student"})
	stop()
	if err != nil {
		return fmt.Errorf("join conference: %w", err)
	}
	ui.PrintSuccessf("Joined conference %s as %s (%d students in the room)", data.ConfID, id, len(data.Students))

	if err := conn.Client.Send(protocol.TypeReportState, reportFromFlags(confID, id)); err != nil {
		return err
	}
	if flagFeelBad {
		if err := conn.Client.Send(protocol.TypeFeelBad, protocol.FeelBad{ConfID: confID, StudentID: id}); err != nil {
			return err
		}
	}
	if flagRequestStream {
		if err := conn.Client.Send(protocol.TypeRequestTeacherStream, protocol.RequestTeacherStream{ConfID: confID, UserID: id}); err != nil {
			return err
		}
	}

	return attend(ctx, conn, confID, id)
}

// attend prints room events until the conference ends, the connection drops
// or ctx is cancelled.
func attend(ctx context.Context, conn *session, confID, id string) error {
	messages := conn.Messages()
	ui.PrintInfo("Waiting for the teacher. Press Ctrl+C to leave.")
	for {
		select {
		case <-ctx.Done():
			ui.PrintSuccess("Left the conference")
			return nil

		case msg, ok := <-messages:
			if !ok {
				return client.ErrConnectionLost
			}
			if text := describeStudentEvent(msg, id); text != "" {
				fmt.Println(text)
			}
			switch msg.Type {
			case protocol.TypeConferenceEnded:
				ui.PrintEnded(confID, "The teacher has left or the server is shutting down.")
				return nil
			case protocol.TypeCallStudent:
				if flagNoRespond {
					ui.PrintWarning("Not answering (--no-respond)")
					continue
				}
				err := conn.Client.Send(protocol.TypeStudentResponse, protocol.StudentResponse{ConfID: confID, StudentID: id})
				if errors.Is(err, client.ErrClosed) {
					return client.ErrConnectionLost
				}
				if err != nil {
					return err
				}
				ui.PrintSuccess("Responded to the teacher")
			}
		}
	}
}

func reportFromFlags(confID, id string) protocol.ReportState {
	hand := flagHandRaised
	looking := flagAttention == "attentive"
	eyesOpen := flagAttention != "sleepy"
	return protocol.ReportState{
		ConfID:          confID,
		StudentID:       id,
		Attention:       flagAttention,
		Emotion:         flagEmotion,
		Camera:          flagCamera,
		HandRaised:      &hand,
		EyesOpen:        &eyesOpen,
		LookingAtScreen: &looking,
	}
}

// describeStudentEvent renders one server event for a student terminal.
// Events that carry nothing worth showing render as "".
func describeStudentEvent(msg protocol.Message, self string) string {
	switch p := msg.Payload.(type) {
	case *protocol.CallRequest:
		if p.StudentID == self {
			return ui.IconCall + " The teacher is calling you"
		}
	case *protocol.UserRef:
		switch msg.Type {
		case protocol.TypeUserConnected:
			return ui.IconStudent + " " + p.UserID + " joined"
		case protocol.TypeUserMutedMic:
			return ui.IconInfo + " " + p.UserID + " muted their microphone"
		case protocol.TypeUserMutedVideo:
			return ui.IconInfo + " " + p.UserID + " turned off their video"
		}
	case *protocol.StudentRef:
		if msg.Type == protocol.TypeUserDisconnected {
			return ui.IconStudent + " " + p.StudentID + " left"
		}
	case *protocol.TeacherRef:
		return ui.IconTeacher + " The teacher has joined"
	case *protocol.ActionRequest:
		return ui.IconAlert + " The teacher asks you to: " + p.Action
	case *protocol.ConfRef:
		switch msg.Type {
		case protocol.TypeStartAttentionTest:
			return ui.IconAlert + " Attention test started"
		case protocol.TypeScreenShared:
			return ui.IconScreen + " The teacher is sharing their screen"
		case protocol.TypeScreenShareEnded:
			return ui.IconScreen + " Screen sharing ended"
		}
	case *protocol.ErrorPayload:
		return ui.IconError + " " + p.Message
	}
	return ""
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagStudentName, "name", "n", "", "Student name (required)")
	joinCmd.Flags().StringVar(&flagStudentID, "id", "", "Participant id, reuse it to reconnect (default: generated)")
	joinCmd.Flags().StringVar(&flagAttention, "attention", "attentive", "Attention: attentive, distracted, sleepy, confused, not_looking")
	joinCmd.Flags().StringVar(&flagEmotion, "emotion", "neutral", "Emotion to report")
	joinCmd.Flags().StringVar(&flagCamera, "camera", "on", "Camera: on or off")
	joinCmd.Flags().BoolVar(&flagHandRaised, "hand", false, "Raise your hand")
	joinCmd.Flags().BoolVar(&flagFeelBad, "feel-bad", false, "Tell the teacher you are not feeling well")
	joinCmd.Flags().BoolVar(&flagNoRespond, "no-respond", false, "Do not answer when the teacher calls you")
	joinCmd.Flags().BoolVar(&flagRequestStream, "request-stream", false, "Ask the teacher for their stream after joining")
	joinCmd.MarkFlagRequired("name")
}
