package timetables

import "time"

// Station is a single entry of the station directory.
type Station struct {
	EVA       string   `json:"eva"`
	DS100     string   `json:"ds100"`
	Name      string   `json:"name"`
	Platforms []string `json:"platforms,omitempty"`
	Meta      []string `json:"meta,omitempty"`
}

// Message is a remark or disruption notice attached to a stop.
type Message struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`
	Code      string `json:"code,omitempty"`
	Category  string `json:"category,omitempty"`
	Priority  string `json:"priority,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	ValidFrom string `json:"valid_from,omitempty"`
	ValidTo   string `json:"valid_to,omitempty"`
	Text      string `json:"text,omitempty"`
}

// PlanStop is a scheduled departure taken from the plan feed.
type PlanStop struct {
	StopID           string
	StationEVA       string
	DeparturePlanned *time.Time
	PlatformPlanned  string
	DestinationName  string
	Path             []string
	TrainCategory    string
	TrainNumber      string
	Operator         string
	Line             string
	Remarks          []Message
}

// ChangeRecord carries the deviations reported for a stop by the fchg or rchg feed.
type ChangeRecord struct {
	StopID          string
	StationEVA      string
	DepartureActual *time.Time
	PlatformActual  string
	DestinationName string
	Status          string
	Messages        []Message
}

// Status values of a changed departure.
const (
	StatusPlanned   = "p"
	StatusAdded     = "a"
	StatusCancelled = "c"
)

type ChangeKind string

const (
	FullChanges   ChangeKind = "fchg"
	RecentChanges ChangeKind = "rchg"
)

// Departure is a planned stop merged with its reported changes.
type Departure struct {
	StopID           string     `json:"stop_id"`
	StationEVA       string     `json:"station_eva"`
	DeparturePlanned *time.Time `json:"departure_planned"`
	DepartureActual  *time.Time `json:"departure_actual"`
	DelayMinutes     *int       `json:"delay_minutes"`
	PlatformPlanned  string     `json:"platform_planned"`
	PlatformActual   string     `json:"platform_actual"`
	DestinationName  string     `json:"destination_name"`
	TrainCategory    string     `json:"train_category"`
	TrainNumber      string     `json:"train_number"`
	Operator         string     `json:"operator"`
	Line             string     `json:"line,omitempty"`
	Status           string     `json:"status,omitempty"`
	Messages         []Message  `json:"messages,omitempty"`
}

func (d Departure) Cancelled() bool {
	return d.Status == StatusCancelled
}

// EffectiveDeparture returns the actual departure time if known, otherwise the planned one.
func (d Departure) EffectiveDeparture() *time.Time {
	if d.DepartureActual != nil {
		return d.DepartureActual
	}
	return d.DeparturePlanned
}

// EffectivePlatform returns the changed platform if known, otherwise the planned one.
func (d Departure) EffectivePlatform() string {
	if d.PlatformActual != "" {
		return d.PlatformActual
	}
	return d.PlatformPlanned
}
