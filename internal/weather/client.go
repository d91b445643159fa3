// Package weather fetches daily weather history for an AOI centroid.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agromonitor/fieldsight/pkg/models"
)

// Sentinel errors for weather service failures.
var (
	ErrWeatherUnreachable = errors.New("weather service unreachable")
	ErrWeatherQueryError  = errors.New("weather service query error")
)

// HistoryResult carries the fetched days plus whether the requested range was
// clamped to the present.
type HistoryResult struct {
	Days    []models.WeatherDay
	Start   time.Time
	End     time.Time
	Clamped bool
}

// Client fetches daily weather history.
type Client interface {
	FetchHistory(ctx context.Context, lat, lon float64, start, end time.Time) (*HistoryResult, error)
}

// HTTPClient implements Client against an open-meteo-style archive API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewHTTPClient creates a new weather HTTP client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// ClampRange clamps the requested range to the present day. An end date in
// the future clamps to today; a start date after the clamped end clamps to
// equal it. Both cases report clamped.
func ClampRange(start, end, today time.Time) (time.Time, time.Time, bool) {
	clamped := false
	if end.After(today) {
		end = today
		clamped = true
	}
	if start.After(end) {
		start = end
		clamped = true
	}
	return start, end, clamped
}

func (c *HTTPClient) FetchHistory(ctx context.Context, lat, lon float64, start, end time.Time) (*HistoryResult, error) {
	today := c.now().UTC().Truncate(24 * time.Hour)
	start, end, clamped := ClampRange(start.UTC().Truncate(24*time.Hour), end.UTC().Truncate(24*time.Hour), today)

	params := url.Values{
		"latitude":   {fmt.Sprintf("%.5f", lat)},
		"longitude":  {fmt.Sprintf("%.5f", lon)},
		"start_date": {start.Format("2006-01-02")},
		"end_date":   {end.Format("2006-01-02")},
		"daily":      {"temperature_2m_max,temperature_2m_min,precipitation_sum,et0_fao_evapotranspiration"},
		"timezone":   {"UTC"},
	}
	u := fmt.Sprintf("%s/v1/archive?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeatherUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrWeatherQueryError, resp.StatusCode)
	}

	var ar archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("decoding weather response: %w", err)
	}

	days := make([]models.WeatherDay, 0, len(ar.Daily.Time))
	for i, d := range ar.Daily.Time {
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		day := models.WeatherDay{Date: date.UTC()}
		if i < len(ar.Daily.TempMax) {
			day.TempMax = ar.Daily.TempMax[i]
		}
		if i < len(ar.Daily.TempMin) {
			day.TempMin = ar.Daily.TempMin[i]
		}
		if i < len(ar.Daily.PrecipSum) {
			day.PrecipSum = ar.Daily.PrecipSum[i]
		}
		if i < len(ar.Daily.ET0FAO) {
			day.ET0FAO = ar.Daily.ET0FAO[i]
		}
		days = append(days, day)
	}

	return &HistoryResult{Days: days, Start: start, End: end, Clamped: clamped}, nil
}

// --- archive response types ---

type archiveResponse struct {
	Daily struct {
		Time      []string  `json:"time"`
		TempMax   []float64 `json:"temperature_2m_max"`
		TempMin   []float64 `json:"temperature_2m_min"`
		PrecipSum []float64 `json:"precipitation_sum"`
		ET0FAO    []float64 `json:"et0_fao_evapotranspiration"`
	} `json:"daily"`
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
