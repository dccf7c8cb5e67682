package exporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/rycus86/bahnapi/pkg/timetables"
)

// eventLength is how long a departure occupies in a calendar.
const eventLength = 2 * time.Minute

// GenerateICS writes one calendar event per departure to w.
// Departures without any known departure time are skipped.
func GenerateICS(departures []timetables.Departure, w io.Writer) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//bahnapi//departures//EN")

	now := time.Now()

	for _, d := range departures {
		start := d.EffectiveDeparture()
		if start == nil {
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("%s@%s", d.StopID, d.StationEVA))
		event.SetCreatedTime(now)
		event.SetDtStampTime(now)
		event.SetModifiedAt(now)
		event.SetStartAt(*start)
		event.SetEndAt(start.Add(eventLength))
		event.SetSummary(summary(d))
		event.SetLocation(platform(d))
		event.SetDescription(description(d))
	}

	return cal.SerializeTo(w)
}

func summary(d timetables.Departure) string {
	train := strings.TrimSpace(d.TrainCategory + " " + d.TrainNumber)
	if d.DestinationName == "" {
		return train
	}
	return fmt.Sprintf("%s → %s", train, d.DestinationName)
}

func platform(d timetables.Departure) string {
	if p := d.EffectivePlatform(); p != "" {
		return "Platform " + p
	}
	return ""
}

func description(d timetables.Departure) string {
	var lines []string

	switch {
	case d.Cancelled():
		lines = append(lines, "Status: cancelled")
	case d.Status == timetables.StatusAdded:
		lines = append(lines, "Status: additional service")
	}

	if d.DelayMinutes != nil {
		lines = append(lines, fmt.Sprintf("Delay: %d min", *d.DelayMinutes))
	}

	if d.DeparturePlanned != nil {
		lines = append(lines, "Planned: "+d.DeparturePlanned.In(timetables.Berlin).Format("15:04"))
	}

	if d.PlatformActual != "" && d.PlatformActual != d.PlatformPlanned {
		lines = append(lines, fmt.Sprintf("Platform changed from %s", d.PlatformPlanned))
	}

	for _, m := range d.Messages {
		if m.Text != "" {
			lines = append(lines, m.Text)
		} else if m.Code != "" {
			lines = append(lines, fmt.Sprintf("Message %s/%s", m.Type, m.Code))
		}
	}

	return strings.Join(lines, "\n")
}
