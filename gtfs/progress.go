package gtfs

// Phase names one ingestion step.
type Phase string

const (
	PhaseExtract       Phase = "extract"
	PhaseAgency        Phase = "agency"
	PhaseRoutes        Phase = "routes"
	PhaseTrips         Phase = "trips"
	PhaseStopTimes     Phase = "stop_times"
	PhaseStops         Phase = "stops"
	PhaseShapes        Phase = "shapes"
	PhaseCalendar      Phase = "calendar"
	PhaseCalendarDates Phase = "calendar_dates"
)

// Phases lists the ingestion phases in execution order.
var Phases = []Phase{
	PhaseExtract, PhaseAgency, PhaseRoutes, PhaseTrips, PhaseStopTimes,
	PhaseStops, PhaseShapes, PhaseCalendar, PhaseCalendarDates,
}

// phaseWeights sum to 100.
var phaseWeights = map[Phase]int{
	PhaseExtract:       10,
	PhaseAgency:        5,
	PhaseRoutes:        10,
	PhaseTrips:         15,
	PhaseStopTimes:     30,
	PhaseStops:         10,
	PhaseShapes:        10,
	PhaseCalendar:      5,
	PhaseCalendarDates: 5,
}

// Weight returns the share of the overall import assigned to p.
func (p Phase) Weight() int { return phaseWeights[p] }

// Progress is one ordered progress update of an import.
type Progress struct {
	Phase   Phase `json:"phase"`
	Percent int   `json:"percent"`
	Total   int   `json:"total"`
}

// ProgressFunc receives progress updates in order, on the ingesting goroutine.
type ProgressFunc func(Progress)

// progressTracker turns per-phase percentages into a monotonic cumulative
// percentage.
type progressTracker struct {
	fn        ProgressFunc
	completed int
	last      int
}

func (t *progressTracker) report(p Phase, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	total := t.completed + p.Weight()*percent/100
	if percent == 100 {
		t.completed += p.Weight()
		total = t.completed
	}
	if total > 100 {
		total = 100
	}
	if total < t.last {
		total = t.last
	}
	t.last = total
	if t.fn != nil {
		t.fn(Progress{Phase: p, Percent: percent, Total: total})
	}
}
