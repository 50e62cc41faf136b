package importer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theoremus-urban-solutions/gtfs-explorer/gtfs"
)

type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one entry of an import's ordered event stream.
type Event struct {
	ImportID uuid.UUID   `json:"import_id"`
	Name     string      `json:"name"`
	Type     EventType   `json:"type"`
	Phase    gtfs.Phase  `json:"phase,omitempty"`
	Percent  int         `json:"percent"`
	Total    int         `json:"total"`
	FeedID   int         `json:"feed_id,omitempty"`
	Stats    *gtfs.Stats `json:"stats,omitempty"`
	Warnings int         `json:"warnings,omitempty"`
	Error    string      `json:"error,omitempty"`
	Time     time.Time   `json:"time"`
}

func (e Event) Terminal() bool { return e.Type == EventComplete || e.Type == EventError }

// Job is one running import. Its events are recorded in order; Events
// replays them from the start, so late subscribers miss nothing.
type Job struct {
	ID   uuid.UUID
	Name string

	mu       sync.Mutex
	cond     *sync.Cond
	history  []Event
	finished bool

	done   chan struct{}
	feedID int
	err    error
}

func newJob(id uuid.UUID, name string) *Job {
	j := &Job{ID: id, Name: name, done: make(chan struct{})}
	j.cond = sync.NewCond(&j.mu)
	return j
}

func (j *Job) record(ev Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished {
		return
	}
	j.history = append(j.history, ev)
	if ev.Terminal() {
		j.finished = true
	}
	j.cond.Broadcast()
}

// Events returns a new ordered event stream replaying the job from its first
// event. It ends with exactly one complete or error event and is then closed.
// Callers must drain it.
func (j *Job) Events() <-chan Event {
	ch := make(chan Event, 16)
	go j.forward(ch)
	return ch
}

func (j *Job) forward(ch chan<- Event) {
	defer close(ch)
	for i := 0; ; i++ {
		j.mu.Lock()
		for i >= len(j.history) && !j.finished {
			j.cond.Wait()
		}
		if i >= len(j.history) {
			j.mu.Unlock()
			return
		}
		ev := j.history[i]
		j.mu.Unlock()
		ch <- ev
	}
}

// Done is closed once the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the import finishes and returns the new feed id.
func (j *Job) Wait() (int, error) {
	<-j.done
	return j.feedID, j.err
}

// Latest returns the most recent event, if any.
func (j *Job) Latest() (Event, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.history) == 0 {
		return Event{}, false
	}
	return j.history[len(j.history)-1], true
}
