package timetables

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"

	"github.com/rycus86/bahnapi/pkg/client"
)

// Directory is an in-memory, ordered list of stations.
type Directory struct {
	stations []Station
}

func NewDirectory(stations []Station) *Directory {
	return &Directory{stations: append([]Station(nil), stations...)}
}

// LoadDirectory reads a directory from a document in the /station response format.
func LoadDirectory(r io.Reader) (*Directory, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read station directory: %w", err)
	}

	stations, err := ParseStations(payload)
	if err != nil {
		return nil, err
	}

	return NewDirectory(stations), nil
}

func (d *Directory) Stations() []Station {
	return append([]Station(nil), d.stations...)
}

// Search returns the stations matching pattern, in directory order.
func (d *Directory) Search(pattern string) []Station {
	return matchStations(d.stations, pattern)
}

// matchStations keeps stations whose name contains the pattern, whose DS100 code
// starts with it, or whose EVA equals it. Comparison uses Unicode case folding.
func matchStations(stations []Station, pattern string) []Station {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}

	fold := cases.Fold()
	folded := fold.String(pattern)

	var matches []Station
	for _, s := range stations {
		if s.EVA == pattern ||
			strings.Contains(fold.String(s.Name), folded) ||
			(s.DS100 != "" && strings.HasPrefix(fold.String(s.DS100), folded)) {
			matches = append(matches, s)
		}
	}

	return matches
}

// SearchStations finds stations by name, DS100 code or EVA number.
func (c *TimetableClient) SearchStations(ctx context.Context, pattern string) ([]Station, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, fmt.Errorf("%w: station search pattern must not be empty", client.ErrStationLookup)
	}

	if c.directory != nil {
		return c.directory.Search(pattern), nil
	}

	payload, err := c.client.FetchStation(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search stations for %q: %w", pattern, err)
	}

	candidates, err := ParseStations(payload)
	if err != nil {
		return nil, err
	}

	if matches := matchStations(candidates, pattern); len(matches) > 0 {
		return matches, nil
	}

	// the endpoint matches more loosely than we do, e.g. "Frankfurt Flughafen"
	// finds "Frankfurt(M) Flughafen Fernbf"
	return candidates, nil
}

// SearchStationsLimit is SearchStations truncated to at most limit results.
func (c *TimetableClient) SearchStationsLimit(ctx context.Context, pattern string, limit int) ([]Station, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be a positive number, got %d", client.ErrValidation, limit)
	}

	stations, err := c.SearchStations(ctx, pattern)
	if err != nil {
		return nil, err
	}

	if len(stations) > limit {
		stations = stations[:limit]
	}

	return stations, nil
}

// ResolveStationEVA returns the EVA number of the only station matching pattern.
func (c *TimetableClient) ResolveStationEVA(ctx context.Context, pattern string) (string, error) {
	matches, err := c.SearchStations(ctx, pattern)
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no station found for pattern %q", client.ErrStationLookup, pattern)
	case 1:
	default:
		return "", fmt.Errorf("%w: pattern %q is ambiguous (%d matches): %s",
			client.ErrStationLookup, pattern, len(matches), stationNames(matches, 5))
	}

	if matches[0].EVA == "" {
		return "", fmt.Errorf("%w: station %q has no EVA number", client.ErrStationLookup, matches[0].Name)
	}

	return matches[0].EVA, nil
}

func stationNames(stations []Station, max int) string {
	if len(stations) > max {
		stations = stations[:max]
	}

	names := make([]string, 0, len(stations))
	for _, s := range stations {
		names = append(names, s.Name)
	}

	return strings.Join(names, ", ")
}
