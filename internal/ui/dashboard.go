package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/BioHazard786/classcast/internal/protocol"
)

const maxNotices = 8

// Controls are the teacher actions the dashboard can trigger.
type Controls interface {
	AttentionTest() error
	CallStudent(studentID string) error
	ShareScreen() error
	EndScreenShare() error
}

// ExitReason tells the host command why the dashboard closed.
type ExitReason int

const (
	ExitQuit ExitReason = iota
	ExitEnded
	ExitLost
)

type eventMsg protocol.Message

type lostMsg struct{}

type notice struct {
	at   time.Time
	icon string
	text string
}

// dashboardModel is the live teacher view: roster table, a short log of
// what the room did, and the key bindings.
type dashboardModel struct {
	confID  string
	teacher string
	ctl     Controls
	events  <-chan protocol.Message
	now     func() time.Time

	roster  protocol.Roster
	notices []notice
	sharing bool
	spinner spinner.Model
	exit    ExitReason
	done    bool
}

func newDashboardModel(confID, teacher string, ctl Controls, events <-chan protocol.Message, roster protocol.Roster) *dashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return &dashboardModel{
		confID:  confID,
		teacher: teacher,
		ctl:     ctl,
		events:  events,
		now:     time.Now,
		roster:  roster,
		spinner: s,
	}
}

// Dashboard runs the teacher view until the teacher quits or the
// connection ends.
type Dashboard struct {
	model *dashboardModel
}

func NewDashboard(confID, teacher string, ctl Controls, events <-chan protocol.Message, roster protocol.Roster) *Dashboard {
	return &Dashboard{model: newDashboardModel(confID, teacher, ctl, events, roster)}
}

// Run blocks until the dashboard closes.
func (d *Dashboard) Run() (ExitReason, error) {
	// Inline mode keeps previous terminal output visible.
	final, err := tea.NewProgram(d.model).Run()
	if err != nil {
		return ExitQuit, err
	}
	return final.(*dashboardModel).exit, nil
}

func (m *dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *dashboardModel) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.events
		if !ok {
			return lostMsg{}
		}
		return eventMsg(msg)
	}
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.apply(protocol.Message(msg))
		if m.done {
			return m, tea.Quit
		}
		return m, m.listen()

	case lostMsg:
		m.exit = ExitLost
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *dashboardModel) handleKey(key string) tea.Cmd {
	var err error
	switch key {
	case "q", "ctrl+c":
		m.exit = ExitQuit
		m.done = true
		return tea.Quit
	case "t":
		err = m.ctl.AttentionTest()
		m.note(IconInfo, "Attention test started")
	case "s":
		err = m.ctl.ShareScreen()
	case "e":
		err = m.ctl.EndScreenShare()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(key[0] - '1')
		if i >= len(m.roster) {
			return nil
		}
		s := m.roster[i]
		err = m.ctl.CallStudent(s.StudentID)
		m.note(IconCall, "Calling "+s.Name)
	}
	if err != nil {
		m.note(IconError, err.Error())
	}
	return nil
}

func (m *dashboardModel) apply(msg protocol.Message) {
	switch p := msg.Payload.(type) {
	case *protocol.Roster:
		m.roster = *p

	case *protocol.StudentState:
		m.upsert(*p)

	case *protocol.AlertPayload:
		m.note(IconAlert, p.Message)

	case *protocol.CallRequest:
		m.note(IconCall, m.nameOf(p.StudentID)+" asked for your stream")

	case *protocol.StudentRef:
		switch msg.Type {
		case protocol.TypeNoResponse:
			m.setPending(p.StudentID, false)
			m.note(IconWarning, m.nameOf(p.StudentID)+" did not respond")
		case protocol.TypeStudentResponse:
			m.setPending(p.StudentID, false)
			m.note(IconSuccess, m.nameOf(p.StudentID)+" responded")
		case protocol.TypeUserDisconnected:
			m.note(IconStudent, p.StudentID+" left")
		}

	case *protocol.UserRef:
		switch msg.Type {
		case protocol.TypeUserConnected:
			m.note(IconStudent, m.nameOf(p.UserID)+" joined")
		case protocol.TypeUserMutedMic:
			m.note(IconInfo, m.nameOf(p.UserID)+" muted their microphone")
		case protocol.TypeUserMutedVideo:
			m.note(IconInfo, m.nameOf(p.UserID)+" turned off their video")
		}

	case *protocol.ConfRef:
		switch msg.Type {
		case protocol.TypeScreenShared:
			m.sharing = true
			m.note(IconScreen, "Screen sharing started")
		case protocol.TypeScreenShareEnded:
			m.sharing = false
			m.note(IconScreen, "Screen sharing ended")
		case protocol.TypeConferenceEnded:
			m.exit = ExitEnded
			m.done = true
		}

	case *protocol.ErrorPayload:
		m.note(IconError, p.Message)
	}
}

func (m *dashboardModel) upsert(st protocol.StudentState) {
	for i := range m.roster {
		if m.roster[i].StudentID == st.StudentID {
			m.roster[i] = st
			return
		}
	}
	m.roster = append(m.roster, st)
}

func (m *dashboardModel) setPending(id string, pending bool) {
	for i := range m.roster {
		if m.roster[i].StudentID == id {
			m.roster[i].ResponsePending = pending
		}
	}
}

func (m *dashboardModel) nameOf(id string) string {
	if s, ok := m.roster.Find(id); ok && s.Name != "" {
		return s.Name
	}
	return id
}

func (m *dashboardModel) note(icon, text string) {
	m.notices = append(m.notices, notice{at: m.now(), icon: icon, text: text})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m *dashboardModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder

	header := fmt.Sprintf("%s %s  %s %s", IconRoom, m.confID, IconTeacher, m.teacher)
	if m.sharing {
		header += "  " + StatusStyle.Render(IconScreen+" sharing")
	}
	b.WriteString(HeaderStyle.Render(header) + "\n")

	b.WriteString(fmt.Sprintf("%s %d students\n\n", m.spinner.View(), len(m.roster)))
	b.WriteString(RosterView(m.roster) + "\n")

	if len(m.notices) > 0 {
		b.WriteString("\n")
		for _, n := range m.notices {
			b.WriteString(fmt.Sprintf("%s %s %s\n", MutedStyle.Render(n.at.Format("15:04:05")), n.icon, n.text))
		}
	}

	b.WriteString(FooterStyle.Render("t attention test • 1-9 call student • s share screen • e end share • q quit"))
	return b.String()
}
