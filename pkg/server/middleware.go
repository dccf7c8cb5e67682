package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rycus86/bahnapi/pkg/client"
	"github.com/rycus86/bahnapi/pkg/timetables"
)

var (
	requestSummary = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "bahnapi_requests_seconds",
		Help: "Time spent serving departures and station requests",
	}, []string{"handler"})
)

// MaxHours bounds the departures window, which is fetched as one /plan slice per hour.
const MaxHours = 24

func init() {
	prometheus.MustRegister(requestSummary)
}

// Service is the part of the timetables client the HTTP handlers need.
type Service interface {
	Departures(ctx context.Context, stationID string, start, end time.Time, opts ...timetables.DeparturesOption) ([]timetables.Departure, error)
	SearchStationsLimit(ctx context.Context, pattern string, limit int) ([]timetables.Station, error)
	ResolveStationEVA(ctx context.Context, pattern string) (string, error)
}

// NextDepartures serves GET /departures/{station}?hours=1&recent=true&resolve=true.
func NextDepartures(service Service, now func() time.Time) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		reqStart := time.Now()
		defer func() { requestSummary.WithLabelValues("departures").Observe(time.Since(reqStart).Seconds()) }()

		ctx := request.Context()
		query := request.URL.Query()
		station := chi.URLParam(request, "station")

		hours := 1.0
		if raw := query.Get("hours"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil || parsed <= 0 || parsed > MaxHours {
				writeError(writer, fmt.Errorf("%w: hours must be a positive number up to %d, got %q", client.ErrValidation, MaxHours, raw))
				return
			}
			hours = parsed
		}

		if isTrue(query.Get("resolve")) {
			eva, err := service.ResolveStationEVA(ctx, station)
			if err != nil {
				writeError(writer, err)
				return
			}
			station = eva
		}

		var opts []timetables.DeparturesOption
		if isTrue(query.Get("recent")) {
			opts = append(opts, timetables.WithRecentChanges())
		}

		start := now()
		end := start.Add(time.Duration(hours * float64(time.Hour)))

		departures, err := service.Departures(ctx, station, start, end, opts...)
		if err != nil {
			writeError(writer, err)
			return
		}

		accept := request.Header.Get("Accept")

		if strings.Contains(accept, "application/json") {
			writeJSON(writer, departures)
		} else if strings.Contains(accept, "text/html") {
			writer.Header().Add("Content-Type", "text/html")
			writer.WriteHeader(200)

			content := ""
			for _, d := range departures {
				content += fmt.Sprintf(`
<p>
	<span>%s %s to %s</span><br/>
	<span>Departing: %s (%s)</span><br/>
	<span>Platform: %s</span><br/>
</p>
`, html.EscapeString(d.TrainCategory), html.EscapeString(d.TrainNumber), html.EscapeString(d.DestinationName),
					formatClock(d.DeparturePlanned), formatDelay(d), html.EscapeString(d.EffectivePlatform()))
			}

			writer.Write([]byte(fmt.Sprintf(`<html>
<head>
	<title>Departures from %s</title>
</head>
<body>
<h1>Departures from %s</h1>
<div>
%s
</div>
</body>
</html>`,
				html.EscapeString(station), html.EscapeString(station), content)))
		} else {
			writer.Header().Add("Content-Type", "text/plain")
			writer.WriteHeader(200)

			for _, d := range departures {
				writer.Write([]byte(fmt.Sprintf(
					"%s :: %s %s -> %s :: Pl. %s %s\n",
					formatClock(d.DeparturePlanned), d.TrainCategory, d.TrainNumber,
					d.DestinationName, d.EffectivePlatform(), formatDelay(d))))
			}
		}
	}
}

// FindStations serves GET /stations?q=pattern&limit=10.
func FindStations(service Service) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		reqStart := time.Now()
		defer func() { requestSummary.WithLabelValues("stations").Observe(time.Since(reqStart).Seconds()) }()

		query := request.URL.Query()

		limit := 10
		if raw := query.Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(writer, fmt.Errorf("%w: limit must be a number, got %q", client.ErrValidation, raw))
				return
			}
			limit = parsed
		}

		stations, err := service.SearchStationsLimit(request.Context(), query.Get("q"), limit)
		if err != nil {
			writeError(writer, err)
			return
		}

		writeJSON(writer, stations)
	}
}

func writeJSON(writer http.ResponseWriter, value interface{}) {
	writer.Header().Add("Content-Type", "application/json")
	writer.Header().Add("Cache-Control", "public, max-age=30")
	writer.WriteHeader(200)

	json.NewEncoder(writer).Encode(value)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, client.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrStationLookup):
		return http.StatusNotFound
	case errors.Is(err, client.ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, client.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(writer http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.Error("request failed", "status", status, "error", err)
	}

	writer.Header().Add("Content-Type", "application/json")
	writer.WriteHeader(status)

	json.NewEncoder(writer).Encode(map[string]string{"error": err.Error()})
}

func isTrue(value string) bool {
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}

func formatClock(t *time.Time) string {
	if t == nil {
		return "--:--"
	}
	return t.In(timetables.Berlin).Format("15:04")
}

func formatDelay(d timetables.Departure) string {
	switch {
	case d.Cancelled():
		return "cancelled"
	case d.DelayMinutes == nil:
		return "no realtime data"
	case *d.DelayMinutes == 0:
		return "on time"
	default:
		return fmt.Sprintf("%+d min", *d.DelayMinutes)
	}
}
