package conference

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Registry maps conference ids to conferences. Like Conference it has a
// single owner and does no locking of its own.
type Registry struct {
	conferences map[string]*Conference
	newID       func() string
	now         func() time.Time
}

type Option func(*Registry)

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		conferences: make(map[string]*Conference),
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create inserts an empty conference owned by teacherName and returns it.
func (r *Registry) Create(teacherName string) *Conference {
	id := r.newID()
	for r.Exists(id) {
		id = r.newID()
	}
	c := newConference(id, teacherName, r.now())
	r.conferences[id] = c
	return c
}

func (r *Registry) Exists(id string) bool {
	_, ok := r.conferences[id]
	return ok
}

func (r *Registry) Get(id string) (*Conference, error) {
	c, ok := r.conferences[id]
	if !ok {
		return nil, NewError("get conference", ErrNotFound, "conference does not exist")
	}
	return c, nil
}

// Remove deletes the conference and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.conferences[id]; !ok {
		return false
	}
	delete(r.conferences, id)
	return true
}

// All returns every conference ordered by creation time.
func (r *Registry) All() []*Conference {
	out := make([]*Conference, 0, len(r.conferences))
	for _, c := range r.conferences {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) Len() int {
	return len(r.conferences)
}

// Clear drops every conference.
func (r *Registry) Clear() {
	r.conferences = make(map[string]*Conference)
}
