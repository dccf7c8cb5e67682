package timetables

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rycus86/bahnapi/pkg/client"
)

const (
	dateFormat = "060102"
	hourFormat = "15"

	shortTimeFormat = "0601021504"
	longTimeFormat  = "200601021504"
)

// Berlin is the timezone every timestamp of the API is expressed in.
var Berlin = mustLoadLocation("Europe/Berlin")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type xmlStations struct {
	XMLName  xml.Name     `xml:"stations"`
	Stations []xmlStation `xml:"station"`
}

type xmlStation struct {
	Name      string `xml:"name,attr"`
	EVA       string `xml:"eva,attr"`
	DS100     string `xml:"ds100,attr"`
	Meta      string `xml:"meta,attr"`
	Platforms string `xml:"p,attr"`
}

type xmlTimetable struct {
	XMLName xml.Name  `xml:"timetable"`
	Station string    `xml:"station,attr"`
	EVA     string    `xml:"eva,attr"`
	Stops   []xmlStop `xml:"s"`
}

type xmlStop struct {
	ID        string        `xml:"id,attr"`
	EVA       string        `xml:"eva,attr"`
	TripLabel *xmlTripLabel `xml:"tl"`
	Departure *xmlEvent     `xml:"dp"`
	Messages  []xmlMessage  `xml:"m"`
}

type xmlTripLabel struct {
	Filter   string `xml:"f,attr"`
	Type     string `xml:"t,attr"`
	Operator string `xml:"o,attr"`
	Category string `xml:"c,attr"`
	Number   string `xml:"n,attr"`
}

type xmlEvent struct {
	PlannedTime     string       `xml:"pt,attr"`
	PlannedPlatform string       `xml:"pp,attr"`
	PlannedPath     string       `xml:"ppth,attr"`
	Line            string       `xml:"l,attr"`
	ChangedTime     string       `xml:"ct,attr"`
	ChangedPlatform string       `xml:"cp,attr"`
	ChangedPath     string       `xml:"cpth,attr"`
	ChangedStatus   string       `xml:"cs,attr"`
	RealTime        string       `xml:"rt,attr"`
	Messages        []xmlMessage `xml:"m"`
}

type xmlMessage struct {
	ID        string `xml:"id,attr"`
	Type      string `xml:"t,attr"`
	Code      string `xml:"c,attr"`
	Category  string `xml:"cat,attr"`
	Priority  string `xml:"pr,attr"`
	Timestamp string `xml:"ts,attr"`
	From      string `xml:"from,attr"`
	To        string `xml:"to,attr"`
	Text      string `xml:",chardata"`
}

func decode(payload []byte, what string, v interface{}) (bool, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return false, nil
	}

	if err := xml.Unmarshal(payload, v); err != nil {
		return false, fmt.Errorf("%w: failed to parse %s response: %v", client.ErrBahnAPI, what, err)
	}

	return true, nil
}

// ParseStations parses the response of the /station endpoint.
func ParseStations(payload []byte) ([]Station, error) {
	var doc xmlStations
	if ok, err := decode(payload, "station", &doc); !ok {
		return nil, err
	}

	stations := make([]Station, 0, len(doc.Stations))
	for _, s := range doc.Stations {
		stations = append(stations, Station{
			EVA:       strings.TrimSpace(s.EVA),
			DS100:     strings.TrimSpace(s.DS100),
			Name:      strings.TrimSpace(s.Name),
			Platforms: splitPath(s.Platforms),
			Meta:      splitPath(s.Meta),
		})
	}

	return stations, nil
}

// ParsePlan parses a /plan response. Stops without an id or without a departure are skipped.
// fallbackEVA is used for stops that carry no station of their own.
func ParsePlan(payload []byte, fallbackEVA string) ([]PlanStop, error) {
	var doc xmlTimetable
	if ok, err := decode(payload, "plan", &doc); !ok {
		return nil, err
	}

	var stops []PlanStop
	for _, s := range doc.Stops {
		if s.ID == "" || s.Departure == nil {
			continue
		}

		path := splitPath(s.Departure.PlannedPath)

		stop := PlanStop{
			StopID:           s.ID,
			StationEVA:       firstNonEmpty(s.EVA, doc.EVA, fallbackEVA),
			DeparturePlanned: parseTime(s.Departure.PlannedTime),
			PlatformPlanned:  s.Departure.PlannedPlatform,
			DestinationName:  lastSegment(path),
			Path:             path,
			Line:             s.Departure.Line,
			Remarks:          convertMessages(s.Messages),
		}

		if tl := s.TripLabel; tl != nil {
			stop.TrainCategory = tl.Category
			stop.TrainNumber = tl.Number
			stop.Operator = tl.Operator
		}

		stops = append(stops, stop)
	}

	return stops, nil
}

// ParseChanges parses a /fchg or /rchg response.
func ParseChanges(payload []byte, fallbackEVA string) ([]ChangeRecord, error) {
	var doc xmlTimetable
	if ok, err := decode(payload, "changes", &doc); !ok {
		return nil, err
	}

	var changes []ChangeRecord
	for _, s := range doc.Stops {
		if s.ID == "" {
			continue
		}

		change := ChangeRecord{
			StopID:     s.ID,
			StationEVA: firstNonEmpty(s.EVA, doc.EVA, fallbackEVA),
		}

		if dp := s.Departure; dp != nil {
			change.DepartureActual = parseTime(firstNonEmpty(dp.ChangedTime, dp.RealTime))
			change.PlatformActual = dp.ChangedPlatform
			change.DestinationName = lastSegment(splitPath(dp.ChangedPath))
			change.Status = dp.ChangedStatus
			change.Messages = convertMessages(dp.Messages)
		}

		change.Messages = append(change.Messages, convertMessages(s.Messages)...)
		changes = append(changes, change)
	}

	return changes, nil
}

func convertMessages(raw []xmlMessage) []Message {
	if len(raw) == 0 {
		return nil
	}

	messages := make([]Message, 0, len(raw))
	for _, m := range raw {
		messages = append(messages, Message{
			ID:        m.ID,
			Type:      m.Type,
			Code:      m.Code,
			Category:  m.Category,
			Priority:  m.Priority,
			Timestamp: m.Timestamp,
			ValidFrom: m.From,
			ValidTo:   m.To,
			Text:      strings.TrimSpace(m.Text),
		})
	}

	return messages
}

// parseTime accepts yyMMddHHmm, yyyyMMddHHmm (both Berlin local time) and RFC 3339.
// Unknown formats yield nil.
func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)

	var layout string
	switch len(value) {
	case 0:
		return nil
	case len(shortTimeFormat):
		layout = shortTimeFormat
	case len(longTimeFormat):
		layout = longTimeFormat
	default:
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return &t
		}
		return nil
	}

	t, err := time.ParseInLocation(layout, value, Berlin)
	if err != nil {
		return nil
	}
	return &t
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "|") {
		if segment = strings.TrimSpace(segment); segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

func lastSegment(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
