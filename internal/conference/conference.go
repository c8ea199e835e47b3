package conference

import "time"

// Handle identifies one live real-time connection. Handles are assigned by
// the hub from a counter and never reused. The zero value means "no connection".
type Handle uint64

const NoHandle Handle = 0

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

type Teacher struct {
	ParticipantID string
	DisplayName   string
	Handle        Handle
}

// Conference is one teaching session. It is not safe for concurrent use;
// the hub's event loop is its only owner.
type Conference struct {
	ID        string
	Teacher   Teacher
	CreatedAt time.Time

	// TeacherlessSince is when the conference last had no teacher connection.
	// It is zero while a teacher is attached.
	TeacherlessSince time.Time

	students map[string]*StudentRecord
	order    []string // first-insert order of student ids
}

func newConference(id, teacherName string, now time.Time) *Conference {
	return &Conference{
		ID:               id,
		Teacher:          Teacher{DisplayName: teacherName},
		CreatedAt:        now,
		TeacherlessSince: now,
		students:         make(map[string]*StudentRecord),
	}
}

// AttachTeacher sets the teacher's connection and returns the handle it
// replaced, if any. An empty name keeps the name given at creation.
func (c *Conference) AttachTeacher(participantID, name string, h Handle) Handle {
	prev := c.Teacher.Handle
	c.Teacher.ParticipantID = participantID
	if name != "" {
		c.Teacher.DisplayName = name
	}
	c.Teacher.Handle = h
	c.TeacherlessSince = time.Time{}
	return prev
}

// DetachTeacher clears the teacher connection if it is still h.
func (c *Conference) DetachTeacher(h Handle, now time.Time) bool {
	if c.Teacher.Handle == NoHandle || c.Teacher.Handle != h {
		return false
	}
	c.Teacher.Handle = NoHandle
	c.TeacherlessSince = now
	return true
}

func (c *Conference) HasTeacher() bool {
	return c.Teacher.Handle != NoHandle
}

// UpsertStudent inserts a new student or reconnects an existing one. On
// reconnect only the handle and name change; the previous handle is returned.
func (c *Conference) UpsertStudent(id, name string, h Handle) (prev Handle, created bool) {
	if s, ok := c.students[id]; ok {
		prev = s.Handle
		s.Handle = h
		s.Name = name
		return prev, false
	}
	c.students[id] = newStudent(id, name, h)
	c.order = append(c.order, id)
	return NoHandle, true
}

// UpdateStudentState merges patch into the student's record and returns the result.
func (c *Conference) UpdateStudentState(id string, patch StatePatch) (StudentRecord, error) {
	s, ok := c.students[id]
	if !ok {
		return StudentRecord{}, NewError("update student state", ErrNotFound, "student "+id+" is not in conference")
	}
	patch.apply(s)
	return *s, nil
}

// RemoveStudent deletes the student. Removing an absent student is a no-op.
func (c *Conference) RemoveStudent(id string) (StudentRecord, bool) {
	s, ok := c.students[id]
	if !ok {
		return StudentRecord{}, false
	}
	delete(c.students, id)
	for i, sid := range c.order {
		if sid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return *s, true
}

func (c *Conference) Student(id string) (StudentRecord, bool) {
	s, ok := c.students[id]
	if !ok {
		return StudentRecord{}, false
	}
	return *s, true
}

func (c *Conference) StudentCount() int {
	return len(c.students)
}

// Snapshot returns copies of all student records in first-insert order.
func (c *Conference) Snapshot() []StudentRecord {
	out := make([]StudentRecord, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.students[id])
	}
	return out
}

// Handles returns every live connection in the conference, teacher first.
func (c *Conference) Handles() []Handle {
	out := make([]Handle, 0, len(c.order)+1)
	if c.Teacher.Handle != NoHandle {
		out = append(out, c.Teacher.Handle)
	}
	for _, id := range c.order {
		if h := c.students[id].Handle; h != NoHandle {
			out = append(out, h)
		}
	}
	return out
}

// Idle reports whether the conference has no teacher connection and no students.
func (c *Conference) Idle() bool {
	return !c.HasTeacher() && len(c.students) == 0
}
