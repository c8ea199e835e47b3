package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/BioHazard786/classcast/internal/protocol"
)

// RosterView renders the students of a conference in join order. The #
// column is the key the dashboard uses to call a student.
func RosterView(roster protocol.Roster) string {
	if len(roster) == 0 {
		return MutedStyle.Render("No students yet")
	}

	headers := []string{"#", "Name", "Attention", "Emotion", "Camera", "Hand", "Call"}

	var rows [][]string
	for i, s := range roster {
		camera := IconCamera
		if s.Camera == "off" {
			camera = IconCameraOff
		}
		hand := ""
		if s.HandRaised {
			hand = IconHand
		}
		call := ""
		if s.ResponsePending {
			call = IconWaiting
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			truncate(s.Name, 24),
			s.Attention,
			s.Emotion,
			camera,
			hand,
			call,
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case col == 2:
				return tableCellStyle.Inherit(AttentionStyle(roster[row].Attention))
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

type ConferenceInfo struct {
	ConfID  string
	Teacher string
	Link    string
}

func (c ConferenceInfo) View() string {
	content := fmt.Sprintf("%s Conference Created!\n\n%s Teacher:  %s\n%s ID:       %s\n%s Link:     %s",
		IconSuccess,
		IconTeacher, BoldStyle.Render(c.Teacher),
		IconCopy, BoldStyle.Foreground(Primary).Render(c.ConfID),
		IconLink, MutedStyle.Render(c.Link),
	)
	return SuccessBoxStyle.Render(content)
}

// EndedView is the notice shown when a conference is over.
func EndedView(confID, detail string) string {
	content := fmt.Sprintf("%s Conference %s has ended", IconEnded, BoldStyle.Render(confID))
	if detail != "" {
		content += "\n\n" + MutedStyle.Render(detail)
	}
	return ErrorBoxStyle.Render(content)
}

func PrintEnded(confID, detail string) {
	fmt.Println(EndedView(confID, detail))
}

func RenderConferenceInfo(info ConferenceInfo) {
	fmt.Println(info.View())
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
