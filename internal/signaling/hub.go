package signaling

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BioHazard786/classcast/internal/audit"
	"github.com/BioHazard786/classcast/internal/conference"
	"github.com/BioHazard786/classcast/internal/metrics"
	"github.com/BioHazard786/classcast/internal/protocol"
)

// ErrHubStopped is returned by requests made after Run has returned.
var ErrHubStopped = errors.New("hub stopped")

type Options struct {
	// SweepInterval is the period of the idle-room sweep.
	SweepInterval time.Duration
	// IdleGrace is how long a room may stay without a teacher connection
	// before the sweep reclaims it. Zero reclaims on the next sweep, so no
	// abandoned room outlives one SweepInterval.
	IdleGrace time.Duration
	// ResponseTimeout is how long a called student has to respond.
	ResponseTimeout time.Duration
	// SendBuffer is the capacity of each client's outbound queue.
	SendBuffer int
}

func DefaultOptions() Options {
	return Options{
		SweepInterval:   30 * time.Second,
		IdleGrace:       0,
		ResponseTimeout: 10 * time.Second,
		SendBuffer:      256,
	}
}

// binding is what a connection handle resolves to once it has joined.
type binding struct {
	confID        string
	participantID string
	role          conference.Role
}

// Hub is the central brain of the coordinator.
// It owns the registry and every connection; all of their state is touched
// only from the goroutine running Run.
type Hub struct {
	registry *conference.Registry
	opts     Options
	log      *slog.Logger
	audit    audit.Emitter
	metrics  *metrics.Metrics

	now       func() time.Time
	afterFunc func(time.Duration, func()) stopper

	// clients maps live handles to their connection.
	clients map[conference.Handle]*Client

	// bindings maps joined handles to (conference, participant, role).
	bindings map[conference.Handle]binding

	// timers holds the armed call-response timers.
	timers   map[timerKey]*responseTimer
	timerSeq uint64

	nextHandle atomic.Uint64

	// Register is a channel for registering new clients.
	Register chan *Client

	// unregister is a channel for unregistering clients.
	unregister chan *Client

	// inbound carries decoded client events to the loop.
	inbound chan *Inbound

	// expired carries fired response timers to the loop.
	expired chan timerFired

	// requests runs closures inside the loop on behalf of HTTP handlers.
	requests chan func()

	// stopped is closed when Run returns.
	stopped chan struct{}
}

// NewHub creates a new Hub instance. reg must not be used by anything else.
func NewHub(reg *conference.Registry, opts Options, log *slog.Logger, rec audit.Emitter, m *metrics.Metrics) *Hub {
	def := DefaultOptions()
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = def.SweepInterval
	}
	if opts.IdleGrace < 0 {
		opts.IdleGrace = 0
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = def.ResponseTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if rec == nil {
		rec = nopEmitter{}
	}
	if m == nil {
		m = metrics.New()
	}
	return &Hub{
		registry:   reg,
		opts:       opts,
		log:        log,
		audit:      rec,
		metrics:    m,
		now:        time.Now,
		afterFunc:  realAfterFunc,
		clients:    make(map[conference.Handle]*Client),
		bindings:   make(map[conference.Handle]binding),
		timers:     make(map[timerKey]*responseTimer),
		Register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *Inbound),
		expired:    make(chan timerFired),
		requests:   make(chan func()),
		stopped:    make(chan struct{}),
	}
}

// Run starts the hub's main processing loop.
// This is the single goroutine that safely manages all state (rooms, clients).
// When ctx is cancelled every room is told the conference ended and the
// registry is cleared before Run returns.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.register(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case in := <-h.inbound:
			h.dispatch(in)

		case fired := <-h.expired:
			h.responseTimedOut(fired)

		case fn := <-h.requests:
			fn()

		case <-ticker.C:
			h.sweep()
		}
		h.observe()
	}
}

// deliver hands a decoded event to the loop. It reports false once the hub
// has stopped.
func (h *Hub) deliver(in *Inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.stopped:
		return false
	}
}

// Attach registers c with the loop. It reports false once the hub has stopped.
func (h *Hub) Attach(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) unregisterLater(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// do runs fn inside the loop and waits for it to finish. ctx only bounds
// the wait for the loop to accept fn; an accepted fn always runs to completion.
func (h *Hub) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}
	select {
	case h.requests <- job:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// CreateConference registers a new conference for teacherName and returns its id.
func (h *Hub) CreateConference(ctx context.Context, teacherName string) (string, error) {
	if teacherName == "" {
		return "", conference.NewError("create conference", conference.ErrInvalidInput, "Teacher name is required")
	}
	var id string
	err := h.do(ctx, func() {
		id = h.createConference(teacherName)
	})
	return id, err
}

func (h *Hub) createConference(teacherName string) string {
	c := h.registry.Create(teacherName)
	h.log.Info("conference created", "confId", c.ID, "teacher", teacherName)
	h.audit.Emit(audit.New(audit.ConferenceCreated, c.ID, "teacherName", teacherName))
	return c.ID
}

// ConferenceExists reports whether id is a live conference.
func (h *Hub) ConferenceExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := h.do(ctx, func() {
		ok = h.registry.Exists(id)
	})
	return ok, err
}

type Stats struct {
	Conferences int `json:"conferences"`
	Connections int `json:"connections"`
	Students    int `json:"students"`
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := h.do(ctx, func() {
		s.Conferences = h.registry.Len()
		s.Connections = len(h.clients)
		for _, c := range h.registry.All() {
			s.Students += c.StudentCount()
		}
	})
	return s, err
}

func (h *Hub) register(c *Client) {
	h.clients[c.Handle] = c
	h.log.Debug("client registered", c.logAttrs()...)
}

// unregisterClient closes the client's queue and runs the departure
// cascade for whatever it had joined.
func (h *Hub) unregisterClient(c *Client) {
	if _, ok := h.clients[c.Handle]; !ok {
		return
	}
	delete(h.clients, c.Handle)
	close(c.Send)
	h.log.Debug("client unregistered", c.logAttrs()...)

	b, ok := h.bindings[c.Handle]
	if !ok {
		return
	}
	delete(h.bindings, c.Handle)
	h.participantLeft(c.Handle, b)
}

type nopEmitter struct{}

func (nopEmitter) Emit(audit.Record) {}

func (h *Hub) observe() {
	h.metrics.Conferences.Set(float64(h.registry.Len()))
	h.metrics.Connections.Set(float64(len(h.clients)))
}

// dispatch routes one inbound event. Any handler error becomes exactly one
// error event back to the sender.
func (h *Hub) dispatch(in *Inbound) {
	c := in.client
	if _, ok := h.clients[c.Handle]; !ok {
		return
	}
	if in.Err != nil {
		h.fail(c, "", in.Err)
		return
	}

	typ := in.Event.EventType()
	h.metrics.EventsReceived.WithLabelValues(typ).Inc()
	h.log.Debug("event received", append(c.logAttrs(), "type", typ)...)

	var err error
	switch ev := in.Event.(type) {
	case *protocol.JoinRoom:
		err = h.handleJoin(c, ev)
	case *protocol.RequestTeacherStream:
		err = h.handleRequestTeacherStream(ev)
	case *protocol.ReportState:
		err = h.handleReportState(ev)
	case *protocol.FeelBad:
		err = h.handleFeelBad(ev)
	case *protocol.AttentionTest:
		err = h.handleAttentionTest(ev)
	case *protocol.RequestAction:
		err = h.handleRequestAction(ev)
	case *protocol.CallStudent:
		err = h.handleCallStudent(ev)
	case *protocol.StudentResponse:
		err = h.handleStudentResponse(ev)
	case *protocol.ShareScreen:
		err = h.handleShareScreen(c, ev)
	case *protocol.ScreenShareEnded:
		err = h.handleScreenShareEnded(ev)
	case *protocol.MuteMic:
		err = h.handleMute(c, ev.ConfID, ev.UserID, protocol.TypeUserMutedMic)
	case *protocol.MuteVideo:
		err = h.handleMute(c, ev.ConfID, ev.UserID, protocol.TypeUserMutedVideo)
	default:
		err = conference.NewError("dispatch", conference.ErrInvalidInput, "unsupported event "+typ)
	}
	if err != nil {
		h.fail(c, typ, err)
	}
}

func (h *Hub) fail(c *Client, typ string, err error) {
	kind := errorKind(err)
	h.metrics.EventErrors.WithLabelValues(kind).Inc()
	h.log.Debug("event rejected", append(c.logAttrs(), "type", typ, "kind", kind, "err", err)...)
	h.sendTo(c.Handle, outbound(protocol.TypeError, protocol.ErrorPayload{Message: conference.Message(err)}))
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, conference.ErrNotFound):
		return "not_found"
	case errors.Is(err, conference.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, conference.ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}
