package timetables

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rycus86/bahnapi/pkg/client"
	"github.com/rycus86/bahnapi/pkg/config"
)

type departuresOptions struct {
	includeRecentChanges bool
}

type DeparturesOption func(*departuresOptions)

// WithRecentChanges additionally merges the recent changes (rchg) feed on top of the full changes.
func WithRecentChanges() DeparturesOption {
	return func(o *departuresOptions) {
		o.includeRecentChanges = true
	}
}

// Departures returns the departures planned between start and end, merged with the
// reported changes. The result has one entry per planned stop.
func (c *TimetableClient) Departures(ctx context.Context, stationID string, start, end time.Time, opts ...DeparturesOption) ([]Departure, error) {
	var options departuresOptions
	for _, opt := range opts {
		opt(&options)
	}

	stationID = strings.TrimSpace(stationID)

	plan, err := c.FetchPlan(ctx, stationID, start, end)
	if err != nil {
		return nil, err
	}

	feeds := make([][]ChangeRecord, 0, 2)

	full, err := c.FetchChanges(ctx, stationID, FullChanges)
	if err != nil {
		return nil, err
	}
	feeds = append(feeds, full)

	if options.includeRecentChanges {
		recent, err := c.FetchChanges(ctx, stationID, RecentChanges)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, recent)
	}

	departures := Merge(plan, feeds...)

	c.logger.Debug("merged departures",
		"station", stationID,
		"planned", len(plan),
		"full_changes", len(full),
		"recent", options.includeRecentChanges,
	)

	return departures, nil
}

var defaultClient struct {
	sync.Mutex

	settings config.Settings
	client   *TimetableClient
}

// Default returns a client built from config.Active. It is rebuilt whenever the
// active settings change, and fails with client.ErrAuthentication without credentials.
func Default() (*TimetableClient, error) {
	settings := config.Active()

	defaultClient.Lock()
	defer defaultClient.Unlock()

	if defaultClient.client != nil && defaultClient.settings == settings {
		return defaultClient.client, nil
	}

	httpClient, err := client.NewHttpClient(settings)
	if err != nil {
		return nil, err
	}

	defaultClient.settings = settings
	defaultClient.client = NewTimetableClient(httpClient)

	return defaultClient.client, nil
}

func Departures(ctx context.Context, stationID string, start, end time.Time, opts ...DeparturesOption) ([]Departure, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.Departures(ctx, stationID, start, end, opts...)
}

func SearchStations(ctx context.Context, pattern string) ([]Station, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.SearchStations(ctx, pattern)
}

func SearchStationsLimit(ctx context.Context, pattern string, limit int) ([]Station, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.SearchStationsLimit(ctx, pattern, limit)
}

func ResolveStationEVA(ctx context.Context, pattern string) (string, error) {
	c, err := Default()
	if err != nil {
		return "", err
	}
	return c.ResolveStationEVA(ctx, pattern)
}
