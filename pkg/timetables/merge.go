package timetables

import (
	"math"
	"time"
)

// Merge combines planned stops with change feeds. Feeds are applied in order, so a
// record from a later feed (recent changes) overrides the fields of an earlier one
// (full changes) for the same stop. Changes without a planned stop are dropped and
// the output keeps the order of plan.
func Merge(plan []PlanStop, feeds ...[]ChangeRecord) []Departure {
	changes := make(map[string]ChangeRecord)
	for _, feed := range feeds {
		for _, change := range feed {
			if previous, ok := changes[change.StopID]; ok {
				change = overlay(previous, change)
			}
			changes[change.StopID] = change
		}
	}

	departures := make([]Departure, 0, len(plan))
	for _, stop := range plan {
		change, hasChange := changes[stop.StopID]
		departures = append(departures, mergeStop(stop, change, hasChange))
	}

	return departures
}

func mergeStop(stop PlanStop, change ChangeRecord, hasChange bool) Departure {
	d := Departure{
		StopID:           stop.StopID,
		StationEVA:       stop.StationEVA,
		DeparturePlanned: stop.DeparturePlanned,
		PlatformPlanned:  stop.PlatformPlanned,
		DestinationName:  stop.DestinationName,
		TrainCategory:    stop.TrainCategory,
		TrainNumber:      stop.TrainNumber,
		Operator:         stop.Operator,
		Line:             stop.Line,
	}

	if !hasChange {
		d.Messages = mergeMessages(stop.Remarks)
		return d
	}

	d.DepartureActual = change.DepartureActual
	if d.DepartureActual == nil {
		d.DepartureActual = stop.DeparturePlanned
	}

	d.PlatformActual = change.PlatformActual
	if d.PlatformActual == "" {
		d.PlatformActual = stop.PlatformPlanned
	}

	if change.DestinationName != "" {
		d.DestinationName = change.DestinationName
	}
	if d.StationEVA == "" {
		d.StationEVA = change.StationEVA
	}

	d.Status = change.Status
	d.DelayMinutes = delayMinutes(d.DeparturePlanned, d.DepartureActual)
	d.Messages = mergeMessages(stop.Remarks, change.Messages)

	return d
}

func overlay(base, update ChangeRecord) ChangeRecord {
	merged := base

	if update.StationEVA != "" {
		merged.StationEVA = update.StationEVA
	}
	if update.DepartureActual != nil {
		merged.DepartureActual = update.DepartureActual
	}
	if update.PlatformActual != "" {
		merged.PlatformActual = update.PlatformActual
	}
	if update.DestinationName != "" {
		merged.DestinationName = update.DestinationName
	}
	if update.Status != "" {
		merged.Status = update.Status
	}

	merged.Messages = mergeMessages(base.Messages, update.Messages)

	return merged
}

// delayMinutes rounds down, so leaving 30 seconds early counts as one minute early.
func delayMinutes(planned, actual *time.Time) *int {
	if planned == nil || actual == nil {
		return nil
	}

	delay := int(math.Floor(actual.Sub(*planned).Minutes()))
	return &delay
}

// mergeMessages concatenates the groups, keeping the first occurrence of each message.
func mergeMessages(groups ...[]Message) []Message {
	var merged []Message
	seen := make(map[string]bool)

	for _, group := range groups {
		for _, m := range group {
			key := messageKey(m)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, m)
		}
	}

	return merged
}

func messageKey(m Message) string {
	if m.ID != "" {
		return "id:" + m.ID
	}
	return "m:" + m.Type + "|" + m.Code + "|" + m.Category + "|" + m.Timestamp + "|" + m.Text
}
