package client

import "context"

// Client fetches raw XML payloads from the DB Timetables API.
type Client interface {
	FetchPlan(ctx context.Context, eva, date, hour string) ([]byte, error)
	FetchFullChanges(ctx context.Context, eva string) ([]byte, error)
	FetchRecentChanges(ctx context.Context, eva string) ([]byte, error)
	FetchStation(ctx context.Context, pattern string) ([]byte, error)
}
