package importer

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultTrackerSize is how many jobs a Tracker remembers.
const DefaultTrackerSize = 64

// Tracker remembers recent jobs so their status can be polled by id.
type Tracker struct {
	mu    sync.Mutex
	size  int
	jobs  map[uuid.UUID]*Job
	order []uuid.UUID
}

func NewTracker(size int) *Tracker {
	if size <= 0 {
		size = DefaultTrackerSize
	}
	return &Tracker{size: size, jobs: make(map[uuid.UUID]*Job)}
}

func (t *Tracker) add(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[j.ID] = j
	t.order = append(t.order, j.ID)
	for len(t.order) > t.size {
		delete(t.jobs, t.order[0])
		t.order = t.order[1:]
	}
}

func (t *Tracker) Job(id uuid.UUID) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	return j, ok
}

// Status returns the latest event of job id.
func (t *Tracker) Status(id uuid.UUID) (Event, bool) {
	j, ok := t.Job(id)
	if !ok {
		return Event{}, false
	}
	ev, ok := j.Latest()
	if !ok {
		return Event{ImportID: j.ID, Name: j.Name, Type: EventProgress}, true
	}
	return ev, true
}
