package gtfs

import "time"

// ExceptionType is the calendar_dates.txt exception_type.
type ExceptionType int

const (
	ServiceAdded   ExceptionType = 1
	ServiceRemoved ExceptionType = 2
)

// CalendarRule is one calendar.txt row. Days is indexed by time.Weekday
// (Sunday = 0 ... Saturday = 6).
type CalendarRule struct {
	ServiceID string
	Start     Date
	End       Date
	Days      [7]bool
}

// ActiveOn reports whether the weekly rule covers d, ignoring exceptions.
func (r CalendarRule) ActiveOn(d Date) bool {
	if d.Before(r.Start) || d.After(r.End) {
		return false
	}
	return r.Days[d.Weekday()]
}

// CalendarException is one calendar_dates.txt row.
type CalendarException struct {
	ServiceID string
	Date      Date
	Type      ExceptionType
}

type dateException struct {
	serviceID string
	kind      ExceptionType
}

// ResolveServices materialises the services active on every date of the
// feed's effective range and returns them keyed by YYYYMMDD. Dates without an
// active service are omitted.
//
// The range spans the earliest rule start to the latest rule end; with no
// rules it defaults to today through one year from today. Added-service
// exceptions dated outside that range are applied too, so feeds that only
// ship calendar_dates.txt resolve correctly.
//
// Later rules and exceptions override earlier ones for the same service (and
// date).
func ResolveServices(rules []CalendarRule, exceptions []CalendarException, today Date) map[string]*Set {
	ruleByService := make(map[string]CalendarRule, len(rules))
	ruleOrder := make([]string, 0, len(rules))
	for _, r := range rules {
		if _, seen := ruleByService[r.ServiceID]; !seen {
			ruleOrder = append(ruleOrder, r.ServiceID)
		}
		ruleByService[r.ServiceID] = r
	}

	// service -> date -> type, later rows win; then flattened per date in
	// service encounter order.
	typeByService := make(map[string]map[Date]ExceptionType)
	serviceOrder := make([]string, 0)
	for _, ex := range exceptions {
		byDate, ok := typeByService[ex.ServiceID]
		if !ok {
			byDate = make(map[Date]ExceptionType)
			typeByService[ex.ServiceID] = byDate
			serviceOrder = append(serviceOrder, ex.ServiceID)
		}
		byDate[ex.Date] = ex.Type
	}
	byDate := make(map[Date][]dateException)
	for _, serviceID := range serviceOrder {
		for date, kind := range typeByService[serviceID] {
			byDate[date] = append(byDate[date], dateException{serviceID, kind})
		}
	}

	start, end := today, today.AddYears(1)
	if len(ruleOrder) > 0 {
		start, end = ruleByService[ruleOrder[0]].Start, ruleByService[ruleOrder[0]].End
		for _, id := range ruleOrder[1:] {
			r := ruleByService[id]
			if r.Start.Before(start) {
				start = r.Start
			}
			if r.End.After(end) {
				end = r.End
			}
		}
	}

	out := make(map[string]*Set)
	for d := start; !d.After(end); d = d.Next() {
		active := NewSet()
		for _, id := range ruleOrder {
			if ruleByService[id].ActiveOn(d) {
				active.Add(id)
			}
		}
		applyExceptions(active, byDate[d])
		if active.Len() > 0 {
			out[d.String()] = active
		}
	}

	for d, exs := range byDate {
		if !d.Before(start) && !d.After(end) {
			continue
		}
		active := NewSet()
		applyExceptions(active, exs)
		if active.Len() > 0 {
			out[d.String()] = active
		}
	}
	return out
}

func applyExceptions(active *Set, exs []dateException) {
	for _, ex := range exs {
		switch ex.kind {
		case ServiceAdded:
			active.Add(ex.serviceID)
		case ServiceRemoved:
			active.Remove(ex.serviceID)
		}
	}
}

// Today returns the current local date according to now.
func Today(now func() time.Time) Date {
	if now == nil {
		now = time.Now
	}
	return DateFromTime(now())
}
