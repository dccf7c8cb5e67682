package timetables

import (
	"log/slog"

	"github.com/rycus86/bahnapi/pkg/client"
)

// TimetableClient exposes the station directory, the timetable fetcher and the
// departures board on top of a raw API client.
type TimetableClient struct {
	client    client.Client
	directory *Directory
	logger    *slog.Logger
}

type ClientOption func(*TimetableClient)

// WithDirectory makes station searches run against a local directory instead of the /station endpoint.
func WithDirectory(directory *Directory) ClientOption {
	return func(c *TimetableClient) {
		c.directory = directory
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *TimetableClient) {
		c.logger = logger
	}
}

func NewTimetableClient(client client.Client, opts ...ClientOption) *TimetableClient {
	c := &TimetableClient{
		client: client,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}
