package timetables

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rycus86/bahnapi/pkg/client"
	"github.com/rycus86/bahnapi/pkg/config"
)

var (
	windowStart = time.Date(2026, 10, 18, 9, 0, 0, 0, Berlin)
	windowEnd   = time.Date(2026, 10, 18, 10, 0, 0, 0, Berlin)
)

func byStopID(departures []Departure) map[string]Departure {
	m := make(map[string]Departure)
	for _, d := range departures {
		m[d.StopID] = d
	}
	return m
}

func TestFetchPlan(t *testing.T) {
	fake := newFakeClient()
	c := NewTimetableClient(fake)

	stops, err := c.FetchPlan(context.Background(), "8011160", windowStart, windowEnd)
	require.NoError(t, err)

	assert.Equal(t, []string{"plan/8011160/261018/09", "plan/8011160/261018/10"}, fake.calls)

	var ids []string
	for _, s := range stops {
		ids = append(ids, s.StopID)
	}
	// sorted by planned departure; outside the window and arrival-only stops are dropped
	assert.Equal(t, []string{"s2-2610180905-1", "s1-2610180915-1", "s5-2610181000-1"}, ids)
}

func TestFetchPlan_WindowInUTC(t *testing.T) {
	fake := newFakeClient()
	c := NewTimetableClient(fake)

	start := windowStart.UTC()
	end := start.Add(30 * time.Minute)

	stops, err := c.FetchPlan(context.Background(), "8011160", start, end)
	require.NoError(t, err)

	// slices are requested in Berlin local time
	assert.Equal(t, []string{"plan/8011160/261018/09"}, fake.calls)
	assert.Len(t, stops, 2)
}

func TestFetchPlan_DuplicateStopsAcrossSlices(t *testing.T) {
	fake := newFakeClient()
	fake.plans["261018/10"] = `<timetable eva="8011160">
  <s id="s1-2610180915-1"><tl c="ICE" n="513"/><dp pt="2610180915" pp="9" ppth="München Hbf"/></s>
</timetable>`

	stops, err := NewTimetableClient(fake).FetchPlan(context.Background(), "8011160", windowStart, windowEnd)
	require.NoError(t, err)

	require.Len(t, stops, 2)
	assert.Equal(t, "s1-2610180915-1", stops[1].StopID)
	assert.Equal(t, "9", stops[1].PlatformPlanned, "the later slice wins")
}

func TestFetchPlan_Validation(t *testing.T) {
	c := NewTimetableClient(newFakeClient())
	ctx := context.Background()

	tests := []struct {
		name       string
		station    string
		start, end time.Time
	}{
		{"missing station", " ", windowStart, windowEnd},
		{"reversed window", "8011160", windowEnd, windowStart},
		{"empty window", "8011160", windowStart, windowStart},
		{"zero start", "8011160", time.Time{}, windowEnd},
		{"zero end", "8011160", windowStart, time.Time{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.FetchPlan(ctx, tc.station, tc.start, tc.end)
			assert.True(t, errors.Is(err, client.ErrValidation), "got %v", err)
		})
	}
}

func TestFetchChanges(t *testing.T) {
	fake := newFakeClient()
	c := NewTimetableClient(fake)

	full, err := c.FetchChanges(context.Background(), "8011160", FullChanges)
	require.NoError(t, err)
	assert.Len(t, full, 3)

	recent, err := c.FetchChanges(context.Background(), "8011160", RecentChanges)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	_, err = c.FetchChanges(context.Background(), "8011160", ChangeKind("xchg"))
	assert.True(t, errors.Is(err, client.ErrValidation))

	assert.Equal(t, []string{"fchg/8011160", "rchg/8011160"}, fake.calls)
}

func TestDepartures(t *testing.T) {
	fake := newFakeClient()
	c := NewTimetableClient(fake)

	departures, err := c.Departures(context.Background(), "8011160", windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, departures, 3)
	assert.NotContains(t, fake.calls, "rchg/8011160")

	assert.Equal(t, "s2-2610180905-1", departures[0].StopID)

	got := byStopID(departures)

	ice := got["s1-2610180915-1"]
	assert.Equal(t, at(9, 20, 0), ice.DepartureActual)
	assert.Equal(t, 5, *ice.DelayMinutes)
	assert.Equal(t, "8", ice.PlatformActual)
	assert.Equal(t, "München Hbf", ice.DestinationName)
	require.Len(t, ice.Messages, 2)

	re := got["s2-2610180905-1"]
	assert.Equal(t, re.DeparturePlanned, re.DepartureActual)
	assert.Equal(t, 0, *re.DelayMinutes)
	assert.Equal(t, []string{"remark-1", "r3"}, []string{re.Messages[0].ID, re.Messages[1].ID})

	sBahn := got["s5-2610181000-1"]
	assert.Nil(t, sBahn.DepartureActual)
	assert.Nil(t, sBahn.DelayMinutes)
	assert.False(t, sBahn.Cancelled())
}

func TestDepartures_WithRecentChanges(t *testing.T) {
	fake := newFakeClient()
	c := NewTimetableClient(fake)

	departures, err := c.Departures(context.Background(), "8011160", windowStart, windowEnd, WithRecentChanges())
	require.NoError(t, err)
	require.Len(t, departures, 3)
	assert.Contains(t, fake.calls, "rchg/8011160")

	got := byStopID(departures)

	ice := got["s1-2610180915-1"]
	assert.Equal(t, 10, *ice.DelayMinutes)
	assert.Equal(t, "8", ice.PlatformActual)

	var ids []string
	for _, m := range ice.Messages {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"r1", "r2", "r4"}, ids)

	assert.True(t, got["s5-2610181000-1"].Cancelled())
}

func TestDepartures_PropagatesErrors(t *testing.T) {
	fake := newFakeClient()
	fake.err = client.ErrAuthentication

	_, err := NewTimetableClient(fake).Departures(context.Background(), "8011160", windowStart, windowEnd)
	assert.True(t, errors.Is(err, client.ErrAuthentication))
}

func TestDepartures_BadPayload(t *testing.T) {
	fake := newFakeClient()
	fake.fchg = "<timetable><s"

	_, err := NewTimetableClient(fake).Departures(context.Background(), "8011160", windowStart, windowEnd)
	assert.True(t, errors.Is(err, client.ErrBahnAPI))
}

func TestPackageFunctions_RequireCredentials(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)
	t.Setenv(config.ClientIDEnv, "")
	t.Setenv(config.APIKeyEnv, "")

	ctx := context.Background()

	_, err := Departures(ctx, "8011160", windowStart, windowEnd)
	assert.True(t, errors.Is(err, client.ErrAuthentication))

	_, err = SearchStations(ctx, "Berlin")
	assert.True(t, errors.Is(err, client.ErrAuthentication))

	_, err = SearchStationsLimit(ctx, "Berlin", 1)
	assert.True(t, errors.Is(err, client.ErrAuthentication))

	_, err = ResolveStationEVA(ctx, "Berlin")
	assert.True(t, errors.Is(err, client.ErrAuthentication))
}

func TestDefault_ReusedUntilSettingsChange(t *testing.T) {
	t.Cleanup(config.Reset)

	config.Configure("id", "key")
	first, err := Default()
	require.NoError(t, err)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, first, again)

	config.Configure("id", "other-key")
	changed, err := Default()
	require.NoError(t, err)
	assert.NotSame(t, first, changed)
}
