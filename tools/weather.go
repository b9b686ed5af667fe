// Weather tool backed by the Open-Meteo public API (no key required).

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	geocodeEndpoint  = "https://geocoding-api.open-meteo.com/v1/search"
	forecastEndpoint = "https://api.open-meteo.com/v1/forecast"
)

// WeatherTool reports current weather for a named place.
type WeatherTool struct {
	client   *http.Client
	geocode  string
	forecast string
}

// NewWeatherTool creates a weather tool. A nil client uses
// http.DefaultClient.
func NewWeatherTool(client *http.Client) *WeatherTool {
	if client == nil {
		client = http.DefaultClient
	}
	return &WeatherTool{
		client:   client,
		geocode:  geocodeEndpoint,
		forecast: forecastEndpoint,
	}
}

// Descriptor returns the tool's schema.
func (t *WeatherTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "get_weather",
		DisplayName: "Weather",
		Description: "Get the current weather for a city or place name.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{
					"type":        "string",
					"description": "City or place name, e.g. 'Osaka' or 'Lagos, Nigeria'",
				},
			},
			"required": []string{"location"},
		},
		Strict: true,
	}
}

type weatherArgs struct {
	Location string `json:"location"`
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

// Execute geocodes the place name and reads the current conditions.
func (t *WeatherTool) Execute(ctx context.Context, args json.RawMessage) ToolResult {
	var parsed weatherArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return FailureResultf("invalid get_weather arguments: %v", err)
	}
	location := strings.TrimSpace(parsed.Location)
	if location == "" {
		return FailureResultf("get_weather requires a non-empty location")
	}

	var geo geocodeResponse
	query := url.Values{"name": {location}, "count": {"1"}}
	if err := t.getJSON(ctx, t.geocode+"?"+query.Encode(), &geo); err != nil {
		return FailureResultf("geocoding failed: %v", err)
	}
	if len(geo.Results) == 0 {
		return FailureResultf("no place found matching %q", location)
	}
	place := geo.Results[0]

	var forecast forecastResponse
	query = url.Values{
		"latitude":  {fmt.Sprintf("%.4f", place.Latitude)},
		"longitude": {fmt.Sprintf("%.4f", place.Longitude)},
		"current":   {"temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code"},
	}
	if err := t.getJSON(ctx, t.forecast+"?"+query.Encode(), &forecast); err != nil {
		return FailureResultf("forecast failed: %v", err)
	}

	c := forecast.Current
	return SuccessResult(fmt.Sprintf(
		"Current weather in %s, %s: %s, %.1f°C, humidity %.0f%%, wind %.1f km/h",
		place.Name, place.Country, describeWeatherCode(c.WeatherCode),
		c.Temperature, c.Humidity, c.WindSpeed))
}

func (t *WeatherTool) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// describeWeatherCode maps WMO weather codes to short descriptions.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code <= 48:
		return "fog"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain showers"
	case code <= 86:
		return "snow showers"
	default:
		return "thunderstorm"
	}
}

// Verify WeatherTool implements Tool
var _ Tool = (*WeatherTool)(nil)
