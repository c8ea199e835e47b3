package signaling

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/classcast/internal/audit"
	"github.com/BioHazard786/classcast/internal/conference"
	"github.com/BioHazard786/classcast/internal/metrics"
	"github.com/BioHazard786/classcast/internal/protocol"
)

type recordingEmitter struct {
	mu      sync.Mutex
	records []audit.Record
}

func (r *recordingEmitter) Emit(rec audit.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Type)
	}
	return out
}

type fakeTimer struct {
	d       time.Duration
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	was := !f.stopped
	f.stopped = true
	return was
}

type testHub struct {
	*Hub
	audit  *recordingEmitter
	clock  time.Time
	armed  []*fakeTimer
	nextID int
}

func newTestHub(t *testing.T, opts Options) *testHub {
	t.Helper()
	th := &testHub{
		audit: &recordingEmitter{},
		clock: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
	}
	reg := conference.NewRegistry(
		conference.WithIDGenerator(func() string {
			th.nextID++
			return fmt.Sprintf("C%d", th.nextID)
		}),
		conference.WithClock(func() time.Time { return th.clock }),
	)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	th.Hub = NewHub(reg, opts, log, th.audit, metrics.New())
	th.now = func() time.Time { return th.clock }
	th.afterFunc = func(d time.Duration, _ func()) stopper {
		ft := &fakeTimer{d: d}
		th.armed = append(th.armed, ft)
		return ft
	}
	return th
}

func (th *testHub) advance(d time.Duration) {
	th.clock = th.clock.Add(d)
}

func (th *testHub) connect() *Client {
	c := NewClient(th.Hub, nil, protocol.ClientWeb)
	th.register(c)
	return c
}

func (th *testHub) send(c *Client, ev protocol.Event) {
	th.dispatch(&Inbound{Event: ev, client: c})
}

func (th *testHub) create(name string) string {
	return th.createConference(name)
}

// fire delivers the current timer for key as if it had expired.
func (th *testHub) fire(confID, studentID string) {
	key := timerKey{confID: confID, studentID: studentID}
	if t, ok := th.timers[key]; ok {
		th.responseTimedOut(timerFired{key: key, seq: t.seq})
	}
}

// drain returns everything queued for c so far.
func drain(c *Client) []*protocol.Message {
	var out []*protocol.Message
	for {
		select {
		case m, ok := <-c.Send:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func typesOf(msgs []*protocol.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Type)
	}
	return out
}

func only(t *testing.T, c *Client, typ string) *protocol.Message {
	t.Helper()
	msgs := drain(c)
	require.Len(t, msgs, 1, "got %v", typesOf(msgs))
	require.Equal(t, typ, msgs[0].Type)
	return msgs[0]
}

func joinTeacher(th *testHub, confID string) *Client {
	c := th.connect()
	th.send(c, &protocol.JoinRoom{ConfID: confID, UserID: "T1", UserName: "Ada", Role: "teacher"})
	return c
}

func joinStudent(th *testHub, confID, id, name string) *Client {
	c := th.connect()
	th.send(c, &protocol.JoinRoom{ConfID: confID, UserID: id, UserName: name, Role: "student"})
	return c
}

func TestHub_StudentJoinAndLeave(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	require.Equal(t, "C1", confID)

	teacher := joinTeacher(th, confID)
	data := only(t, teacher, protocol.TypeConferenceData).Payload.(protocol.ConferenceData)
	assert.Equal(t, "T1", data.TeacherID)
	assert.Empty(t, data.Students)

	student := joinStudent(th, confID, "S1", "Bo")

	msgs := drain(teacher)
	require.Equal(t, []string{protocol.TypeUpdateStudentList, protocol.TypeUserConnected}, typesOf(msgs))
	roster := msgs[0].Payload.(protocol.Roster)
	require.Len(t, roster, 1)
	s, ok := roster.Find("S1")
	require.True(t, ok)
	assert.Equal(t, "Bo", s.Name)
	assert.Equal(t, "unknown", s.Attention)
	assert.Equal(t, "neutral", s.Emotion)
	assert.Equal(t, "on", s.Camera)
	assert.Equal(t, protocol.UserRef{UserID: "S1"}, msgs[1].Payload)

	snap := only(t, student, protocol.TypeConferenceData).Payload.(protocol.ConferenceData)
	assert.Equal(t, []protocol.StudentSummary{{ID: "S1", Name: "Bo"}}, snap.Students)

	th.unregisterClient(student)

	msgs = drain(teacher)
	require.Equal(t, []string{protocol.TypeUserDisconnected, protocol.TypeUpdateStudentList}, typesOf(msgs))
	assert.Equal(t, protocol.StudentRef{StudentID: "S1"}, msgs[0].Payload)
	assert.Empty(t, msgs[1].Payload.(protocol.Roster))

	conf, err := th.registry.Get(confID)
	require.NoError(t, err)
	assert.Equal(t, 0, conf.StudentCount())
	assert.Contains(t, th.audit.types(), audit.StudentDisconnected)
}

func TestHub_JoinUnknownConference(t *testing.T) {
	th := newTestHub(t, Options{})
	c := th.connect()

	th.send(c, &protocol.JoinRoom{ConfID: "nope", UserID: "S1", UserName: "Bo", Role: "student"})

	msg := only(t, c, protocol.TypeError)
	assert.Equal(t, protocol.ErrorPayload{Message: "conference does not exist"}, msg.Payload)
	assert.Equal(t, 0, th.registry.Len())
	assert.NotContains(t, th.bindings, c.Handle)
	assert.Equal(t, 1.0, testutil.ToFloat64(th.metrics.EventErrors.WithLabelValues("not_found")))
}

func TestHub_DecodeErrorAnswersSender(t *testing.T) {
	th := newTestHub(t, Options{})
	c := th.connect()

	bad := conference.NewError("decode", conference.ErrInvalidInput, `unknown event type "dance"`)
	th.dispatch(&Inbound{Err: bad, client: c})

	msg := only(t, c, protocol.TypeError)
	assert.Equal(t, protocol.ErrorPayload{Message: `unknown event type "dance"`}, msg.Payload)
}

func TestHub_ReportStateMergesAndForwards(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	student := joinStudent(th, confID, "S1", "Bo")
	drain(teacher)
	drain(student)

	raised := true
	th.send(student, &protocol.ReportState{
		ConfID: confID, StudentID: "S1",
		Attention: "sleepy", Emotion: "sad", Camera: "off", HandRaised: &raised,
	})

	got := only(t, teacher, protocol.TypeUpdateState).Payload.(protocol.StudentState)
	assert.Equal(t, "S1", got.StudentID)
	assert.Equal(t, "sleepy", got.Attention)
	assert.Equal(t, "off", got.Camera)
	assert.True(t, got.HandRaised)
	assert.True(t, got.EyesOpen, "omitted fields keep their value")
	assert.Empty(t, drain(student))

	conf, _ := th.registry.Get(confID)
	rec, ok := conf.Student("S1")
	require.True(t, ok, "camera off keeps the student in the room")
	assert.Equal(t, conference.CameraOff, rec.Camera)
}

func TestHub_ReportStateUnknownStudent(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	student := joinStudent(th, confID, "S1", "Bo")
	th.send(student, &protocol.ReportState{ConfID: confID, StudentID: "S1", Attention: "distracted", Emotion: "bored", Camera: "off"})
	drain(teacher)
	drain(student)
	stranger := th.connect()

	conf, err := th.registry.Get(confID)
	require.NoError(t, err)
	before := conf.Snapshot()

	th.send(stranger, &protocol.ReportState{ConfID: confID, StudentID: "ghost", Attention: "attentive", Emotion: "happy", Camera: "on"})

	only(t, stranger, protocol.TypeError)
	assert.Empty(t, drain(teacher))
	assert.Empty(t, drain(student))
	assert.Equal(t, before, conf.Snapshot())
}

func TestHub_TeacherDisconnectEndsConference(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	s1 := joinStudent(th, confID, "S1", "Bo")
	s2 := joinStudent(th, confID, "S2", "Cy")
	drain(s1)
	drain(s2)
	th.send(teacher, &protocol.CallStudent{ConfID: confID, StudentID: "S1"})
	drain(s1)

	th.unregisterClient(teacher)

	for _, c := range []*Client{s1, s2} {
		msg := only(t, c, protocol.TypeConferenceEnded)
		assert.Equal(t, protocol.ConfRef{ConfID: confID}, msg.Payload)
		assert.NotContains(t, th.bindings, c.Handle)
	}
	assert.False(t, th.registry.Exists(confID))
	assert.Empty(t, th.timers)
	assert.True(t, th.armed[0].stopped)

	// Late disconnects of the remaining students are harmless.
	th.unregisterClient(s1)
	th.unregisterClient(s2)
	assert.Empty(t, th.clients)
	assert.Equal(t, 1, countOf(th.audit.types(), audit.ConferenceEnded))
}

func TestHub_StudentLeavingOrphanRemovesIt(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	s := joinStudent(th, confID, "S1", "Bo")

	th.unregisterClient(s)

	assert.False(t, th.registry.Exists(confID))
}

func TestHub_CallStudentAnswered(t *testing.T) {
	th := newTestHub(t, Options{ResponseTimeout: 5 * time.Second})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	student := joinStudent(th, confID, "S1", "Bo")
	drain(teacher)
	drain(student)

	th.send(teacher, &protocol.CallStudent{ConfID: confID, StudentID: "S1"})
	call := only(t, student, protocol.TypeCallStudent)
	assert.Equal(t, protocol.CallRequest{ConfID: confID, StudentID: "S1"}, call.Payload)
	require.Len(t, th.armed, 1)
	assert.Equal(t, 5*time.Second, th.armed[0].d)

	conf, _ := th.registry.Get(confID)
	rec, _ := conf.Student("S1")
	assert.True(t, rec.ResponsePending)

	th.send(student, &protocol.StudentResponse{ConfID: confID, StudentID: "S1"})
	resp := only(t, teacher, protocol.TypeStudentResponse)
	assert.Equal(t, protocol.StudentRef{StudentID: "S1"}, resp.Payload)
	assert.True(t, th.armed[0].stopped)

	th.fire(confID, "S1")
	assert.Empty(t, drain(teacher), "answered call never reports no-response")
	assert.Equal(t, 0.0, testutil.ToFloat64(th.metrics.NoResponses))
}

func TestHub_CallStudentUnanswered(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	student := joinStudent(th, confID, "S1", "Bo")
	drain(teacher)
	drain(student)

	th.send(teacher, &protocol.CallStudent{ConfID: confID, StudentID: "S1"})
	key := timerKey{confID: confID, studentID: "S1"}
	seq := th.timers[key].seq

	th.fire(confID, "S1")
	msg := only(t, teacher, protocol.TypeNoResponse)
	assert.Equal(t, protocol.StudentRef{StudentID: "S1"}, msg.Payload)

	th.responseTimedOut(timerFired{key: key, seq: seq})
	assert.Empty(t, drain(teacher), "no-response is sent once")
	assert.Equal(t, 1.0, testutil.ToFloat64(th.metrics.NoResponses))

	conf, _ := th.registry.Get(confID)
	rec, _ := conf.Student("S1")
	assert.False(t, rec.ResponsePending)
}

func TestHub_RecallIgnoresStaleTimer(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	joinStudent(th, confID, "S1", "Bo")
	drain(teacher)

	th.send(teacher, &protocol.CallStudent{ConfID: confID, StudentID: "S1"})
	key := timerKey{confID: confID, studentID: "S1"}
	first := th.timers[key].seq
	th.send(teacher, &protocol.CallStudent{ConfID: confID, StudentID: "S1"})

	assert.True(t, th.armed[0].stopped)
	th.responseTimedOut(timerFired{key: key, seq: first})
	assert.Empty(t, drain(teacher))

	th.fire(confID, "S1")
	only(t, teacher, protocol.TypeNoResponse)
}

func TestHub_TimerForDepartedStudentIsNoop(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	student := joinStudent(th, confID, "S1", "Bo")
	th.send(teacher, &protocol.CallStudent{ConfID: confID, StudentID: "S1"})
	key := timerKey{confID: confID, studentID: "S1"}
	seq := th.timers[key].seq

	th.unregisterClient(student)
	drain(teacher)

	th.responseTimedOut(timerFired{key: key, seq: seq})
	assert.Empty(t, drain(teacher))
}

func TestHub_ShareScreenRequiresTeacher(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	student := joinStudent(th, confID, "S1", "Bo")
	drain(teacher)
	drain(student)

	th.send(student, &protocol.ShareScreen{ConfID: confID})
	msg := only(t, student, protocol.TypeError)
	assert.Equal(t, protocol.ErrorPayload{Message: "only the teacher can share the screen"}, msg.Payload)
	assert.Empty(t, drain(teacher))

	th.send(teacher, &protocol.ShareScreen{ConfID: confID})
	only(t, teacher, protocol.TypeScreenShared)
	only(t, student, protocol.TypeScreenShared)

	th.send(teacher, &protocol.ScreenShareEnded{ConfID: confID})
	only(t, teacher, protocol.TypeScreenShareEnded)
	only(t, student, protocol.TypeScreenShareEnded)
}

func TestHub_RoomWideRelays(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	s1 := joinStudent(th, confID, "S1", "Bo")
	s2 := joinStudent(th, confID, "S2", "Cy")
	drain(teacher)
	drain(s1)
	drain(s2)

	th.send(teacher, &protocol.AttentionTest{ConfID: confID})
	for _, c := range []*Client{teacher, s1, s2} {
		only(t, c, protocol.TypeStartAttentionTest)
	}

	th.send(teacher, &protocol.RequestAction{ConfID: confID, Action: "raise-hand"})
	for _, c := range []*Client{teacher, s1, s2} {
		msg := only(t, c, protocol.TypePerformAction)
		assert.Equal(t, protocol.ActionRequest{ConfID: confID, Action: "raise-hand"}, msg.Payload)
	}

	th.send(s1, &protocol.MuteMic{ConfID: confID, UserID: "S1"})
	assert.Empty(t, drain(s1), "mute is not echoed to the sender")
	only(t, teacher, protocol.TypeUserMutedMic)
	only(t, s2, protocol.TypeUserMutedMic)

	th.send(s2, &protocol.MuteVideo{ConfID: confID, UserID: "S2"})
	only(t, s1, protocol.TypeUserMutedVideo)
	assert.Empty(t, drain(s2))
	drain(teacher)

	th.send(s1, &protocol.FeelBad{ConfID: confID, StudentID: "S1"})
	msg := only(t, teacher, protocol.TypeAlert)
	assert.Equal(t, protocol.AlertPayload{Message: "Bo is not feeling well"}, msg.Payload)
	assert.Empty(t, drain(s2))
}

func TestHub_RequestTeacherStream(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	student := joinStudent(th, confID, "S1", "Bo")
	drain(student)

	th.send(student, &protocol.RequestTeacherStream{ConfID: confID, UserID: "S1"})
	msg := only(t, student, protocol.TypeError)
	assert.Equal(t, protocol.ErrorPayload{Message: "teacher is not connected"}, msg.Payload)

	teacher := joinTeacher(th, confID)
	drain(teacher)
	drain(student)
	th.send(student, &protocol.RequestTeacherStream{ConfID: confID, UserID: "S1"})
	call := only(t, teacher, protocol.TypeCallStudent)
	assert.Equal(t, protocol.CallRequest{ConfID: confID, StudentID: "S1"}, call.Payload)
}

func TestHub_TeacherJoinNotifiesRoom(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	student := joinStudent(th, confID, "S1", "Bo")
	drain(student)

	teacher := joinTeacher(th, confID)

	msgs := drain(student)
	require.Equal(t, []string{protocol.TypeTeacherJoined, protocol.TypeUserConnected}, typesOf(msgs))
	assert.Equal(t, protocol.TeacherRef{TeacherID: "T1"}, msgs[0].Payload)
	assert.Equal(t, protocol.UserRef{UserID: "T1"}, msgs[1].Payload)
	data := only(t, teacher, protocol.TypeConferenceData).Payload.(protocol.ConferenceData)
	assert.Equal(t, []protocol.StudentSummary{{ID: "S1", Name: "Bo"}}, data.Students)
}

func TestHub_StudentReconnectDisplacesOldConnection(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	old := joinStudent(th, confID, "S1", "Bo")
	th.send(old, &protocol.ReportState{ConfID: confID, StudentID: "S1", Attention: "attentive", Emotion: "happy", Camera: "on"})
	drain(teacher)
	drain(old)

	fresh := joinStudent(th, confID, "S1", "Bo")

	msg := only(t, old, protocol.TypeError)
	assert.Equal(t, protocol.ErrorPayload{Message: displacedMessage}, msg.Payload)
	roster := drain(teacher)[0].Payload.(protocol.Roster)
	require.Len(t, roster, 1, "reconnect does not duplicate the student")
	assert.Equal(t, "attentive", roster[0].Attention, "reconnect keeps state")

	// The displaced connection closing must not remove the student.
	th.unregisterClient(old)
	assert.Empty(t, drain(teacher))
	conf, _ := th.registry.Get(confID)
	rec, ok := conf.Student("S1")
	require.True(t, ok)
	assert.Equal(t, fresh.Handle, rec.Handle)
}

func TestHub_TeacherReconnectDisplacesOldConnection(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	old := joinTeacher(th, confID)
	drain(old)

	fresh := joinTeacher(th, confID)
	only(t, old, protocol.TypeError)
	drain(fresh)

	th.unregisterClient(old)
	assert.True(t, th.registry.Exists(confID), "stale teacher connection does not end the room")

	th.unregisterClient(fresh)
	assert.False(t, th.registry.Exists(confID))
}

func TestHub_JoinFromBoundConnection(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	c := joinStudent(th, confID, "S1", "Bo")
	drain(c)

	th.send(c, &protocol.JoinRoom{ConfID: confID, UserID: "S1", UserName: "Bo", Role: "student"})
	only(t, c, protocol.TypeConferenceData)

	th.send(c, &protocol.JoinRoom{ConfID: confID, UserID: "S2", UserName: "Cy", Role: "student"})
	only(t, c, protocol.TypeError)
	assert.Equal(t, "S1", th.bindings[c.Handle].participantID)

	conf, _ := th.registry.Get(confID)
	assert.Equal(t, 1, conf.StudentCount())
}

func TestHub_SweepReclaimsIdleRooms(t *testing.T) {
	th := newTestHub(t, Options{IdleGrace: 30 * time.Second})
	empty := th.create("Ada")
	orphan := th.create("Grace")
	student := joinStudent(th, orphan, "S1", "Bo")
	drain(student)
	active := th.create("Linus")
	teacher := joinTeacher(th, active)
	drain(teacher)

	th.advance(10 * time.Second)
	young := th.create("Ken")

	th.advance(25 * time.Second)
	th.sweep()

	assert.False(t, th.registry.Exists(empty))
	assert.False(t, th.registry.Exists(orphan))
	assert.True(t, th.registry.Exists(active))
	assert.True(t, th.registry.Exists(young), "room younger than the grace survives")
	only(t, student, protocol.TypeConferenceEnded)
	assert.Empty(t, drain(teacher))
	assert.Contains(t, th.audit.types(), audit.ConferenceCleared)
}

func TestHub_SweepWithDefaultsReclaimsWithinOneInterval(t *testing.T) {
	th := newTestHub(t, DefaultOptions())
	th.advance(5 * time.Second)
	empty := th.create("Ada")
	orphan := th.create("Grace")
	student := joinStudent(th, orphan, "S1", "Bo")
	drain(student)

	// The next tick comes less than one interval after the rooms appeared.
	th.advance(DefaultOptions().SweepInterval - 5*time.Second)
	th.sweep()

	assert.False(t, th.registry.Exists(empty))
	assert.False(t, th.registry.Exists(orphan))
	only(t, student, protocol.TypeConferenceEnded)
}

func TestHub_JoinLeaveSequencesKeepDirectoryConsistent(t *testing.T) {
	ids := []string{"S1", "S2", "S3", "S4"}

	for seed := int64(1); seed <= 30; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			th := newTestHub(t, Options{})
			confID := th.create("Ada")

			conns := make(map[string]*Client)
			order := []string{}
			var teacher *Client

			for step := 0; step < 60; step++ {
				op := rng.Intn(4)
				switch {
				case op == 0:
					id := ids[rng.Intn(len(ids))]
					if _, ok := conns[id]; !ok {
						order = append(order, id)
					}
					conns[id] = joinStudent(th, confID, id, "name-"+id)

				case op == 1 && len(order) > 0:
					id := order[rng.Intn(len(order))]
					th.unregisterClient(conns[id])
					delete(conns, id)
					order = slices.DeleteFunc(order, func(s string) bool { return s == id })
					if teacher == nil && len(order) == 0 {
						require.False(t, th.registry.Exists(confID), "step %d: last student left a teacherless room", step)
						return
					}

				case op == 2 && teacher == nil:
					teacher = joinTeacher(th, confID)

				case op == 3 && teacher != nil:
					th.unregisterClient(teacher)
					require.False(t, th.registry.Exists(confID), "step %d: teacher left", step)
					return
				}

				conf, err := th.registry.Get(confID)
				require.NoError(t, err, "step %d", step)
				assert.Equal(t, teacher != nil, conf.HasTeacher(), "step %d", step)

				snap := conf.Snapshot()
				got := make([]string, 0, len(snap))
				for _, rec := range snap {
					got = append(got, rec.ID)
					assert.Equal(t, conns[rec.ID].Handle, rec.Handle, "step %d: %s has its newest connection", step, rec.ID)
				}
				require.Equal(t, order, got, "step %d", step)

				handles := conf.Handles()
				want := len(order)
				if teacher != nil {
					want++
				}
				assert.Len(t, handles, want, "step %d", step)
				for _, h := range handles {
					assert.Equal(t, confID, th.bindings[h].confID, "step %d: handle %d is bound", step, h)
				}
			}
		})
	}
}

func TestHub_QueuedRequestCompletesAfterCancel(t *testing.T) {
	th := newTestHub(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := th.CreateConference(ctx, "Ada")
		done <- result{id, err}
	}()

	job := <-th.requests
	cancel()
	job()

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, th.registry.Exists(res.id))
}

func TestHub_SendQueueFullDrops(t *testing.T) {
	th := newTestHub(t, Options{SendBuffer: 1})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)

	th.send(teacher, &protocol.AttentionTest{ConfID: confID})

	assert.Len(t, drain(teacher), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(th.metrics.RelayDropped))
}

func TestHub_ShutdownDrains(t *testing.T) {
	th := newTestHub(t, Options{})
	confID := th.create("Ada")
	teacher := joinTeacher(th, confID)
	student := joinStudent(th, confID, "S1", "Bo")
	lurker := th.connect()
	drain(teacher)
	drain(student)

	th.shutdown()

	for _, c := range []*Client{teacher, student} {
		msgs := drain(c)
		require.Equal(t, []string{protocol.TypeConferenceEnded}, typesOf(msgs))
		_, open := <-c.Send
		assert.False(t, open)
	}
	_, open := <-lurker.Send
	assert.False(t, open)
	assert.Equal(t, 0, th.registry.Len())
	assert.Empty(t, th.clients)
	assert.Equal(t, audit.ServerShutdown, th.audit.types()[len(th.audit.types())-1])
}

func TestHub_RunServesRequestsUntilCancelled(t *testing.T) {
	th := newTestHub(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		th.Run(ctx)
		close(done)
	}()

	_, err := th.CreateConference(ctx, "")
	require.ErrorIs(t, err, conference.ErrInvalidInput)

	id, err := th.CreateConference(ctx, "Ada")
	require.NoError(t, err)
	ok, err := th.ConferenceExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	stats, err := th.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Conferences: 1}, stats)

	cancel()
	<-done

	_, err = th.ConferenceExists(context.Background(), id)
	assert.ErrorIs(t, err, ErrHubStopped)
	assert.False(t, th.Attach(NewClient(th.Hub, nil, protocol.ClientWeb)))
}

func countOf(items []string, want string) int {
	n := 0
	for _, s := range items {
		if s == want {
			n++
		}
	}
	return n
}
