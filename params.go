package gtfsexplorer

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/theoremus-urban-solutions/gtfs-explorer/gtfs"
)

// RequestError reports malformed request input. It is answered with 400.
type RequestError struct {
	Param string
	Msg   string
}

func (e *RequestError) Error() string {
	if e.Param == "" {
		return e.Msg
	}
	return e.Param + ": " + e.Msg
}

var validate = validator.New()

// Filters is the query-string vocabulary shared by the listing endpoints
// and the oneshot CLI.
type Filters struct {
	FeedID     int      `validate:"gte=0"`
	AgencyIDs  []string `validate:"dive,required"`
	RouteTypes []int    `validate:"dive,gte=0,lte=7"`
	RouteID    string   `validate:"omitempty,max=255"`
	Date       string   `validate:"omitempty,len=8,numeric"`
}

func parseFilters(r *http.Request) (Filters, error) {
	return ParseFilters(r.URL.Query())
}

// ParseFilters reads feed, agency, type, route and date from q and
// validates them. List parameters accept repeated keys and comma separated
// values.
func ParseFilters(q url.Values) (Filters, error) {
	var p Filters

	feedID, err := parseID("feed", q.Get("feed"))
	if err != nil {
		return p, err
	}
	p.FeedID = feedID
	p.AgencyIDs = splitParam(q["agency"])
	for _, s := range splitParam(q["type"]) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, &RequestError{Param: "type", Msg: "route type must be an integer: " + s}
		}
		p.RouteTypes = append(p.RouteTypes, n)
	}
	p.RouteID = strings.TrimSpace(q.Get("route"))
	p.Date = strings.TrimSpace(q.Get("date"))

	if err := validateParams(p); err != nil {
		return p, err
	}
	return p, nil
}

// validateParams runs the struct tags and then checks that the date exists
// in the calendar.
func validateParams(p Filters) error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return &RequestError{Msg: err.Error()}
	}
	if p.Date != "" {
		if _, err := gtfs.ParseDate(p.Date); err != nil {
			return &RequestError{Param: "date", Msg: "not a calendar date: " + p.Date}
		}
	}
	return nil
}

func fieldError(fe validator.FieldError) *RequestError {
	switch fe.StructNamespace() {
	case "Filters.Date":
		return &RequestError{Param: "date", Msg: "date must be YYYYMMDD"}
	case "Filters.FeedID":
		return &RequestError{Param: "feed", Msg: "feed id must be a non-negative integer"}
	}
	switch {
	case strings.HasPrefix(fe.StructNamespace(), "Filters.RouteTypes"):
		return &RequestError{Param: "type", Msg: "route type must be between 0 and 7"}
	case strings.HasPrefix(fe.StructNamespace(), "Filters.AgencyIDs"):
		return &RequestError{Param: "agency", Msg: "agency id must not be empty"}
	}
	return &RequestError{Param: fe.Field(), Msg: "failed " + fe.Tag() + " check"}
}

// parseID parses a non-negative integer id. Empty means 0.
func parseID(name, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, &RequestError{Param: name, Msg: "must be a non-negative integer"}
	}
	return v, nil
}

func splitParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
