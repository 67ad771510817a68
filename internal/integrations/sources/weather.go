package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"chat-gateway/internal/domain"
)

const defaultWeatherBaseURL = "https://api.openweathermap.org"

var (
	cityPattern = regexp.MustCompile(`(?i)\b(?:in|at|for)\s+([\p{L}][\p{L} .'-]*)`)
	// Trailing time words that are not part of a city name.
	cityTrailers = regexp.MustCompile(`(?i)(?:^|\s+)(?:today|tonight|tomorrow|now|right now|currently|this (?:week|weekend|morning|evening|afternoon)|next week|for|in|at|on)\s*$`)
)

// Weather reads current conditions from OpenWeatherMap. It needs an API key
// and a city in the query ("weather in Patna").
type Weather struct {
	base
	apiKey string
}

// NewWeather creates a weather source.
func NewWeather(apiKey string, opts ...Option) *Weather {
	return &Weather{
		base:   newBase("openweathermap", defaultWeatherBaseURL, opts),
		apiKey: strings.TrimSpace(apiKey),
	}
}

type weatherResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// City extracts the place a weather question is about. The last
// "in/at/for <place>" phrase wins, ignoring phrases that are only time words.
func City(query string) (string, bool) {
	var city string
	for _, m := range cityPattern.FindAllStringSubmatch(query, -1) {
		if c := trimCity(m[1]); c != "" {
			city = c
		}
	}
	return city, city != ""
}

func trimCity(s string) string {
	city := strings.TrimRight(strings.TrimSpace(s), ".'- ")
	for {
		trimmed := strings.TrimSpace(cityTrailers.ReplaceAllString(city, ""))
		if trimmed == city {
			return city
		}
		city = trimmed
	}
}

// Fetch returns the current weather for the city named in query.
func (w *Weather) Fetch(ctx context.Context, query string) (string, error) {
	if w.apiKey == "" {
		return "", domain.ErrNoData
	}
	city, ok := City(query)
	if !ok {
		return "", domain.ErrNoData
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", w.apiKey)
	q.Set("units", "metric")

	var payload weatherResponse
	if err := w.getJSON(ctx, "/data/2.5/weather", q, nil, &payload); err != nil {
		if isNotFound(err) {
			return "", domain.ErrNoData
		}
		return "", err
	}
	if payload.Name == "" {
		return "", domain.ErrNoData
	}

	place := payload.Name
	if payload.Sys.Country != "" {
		place += ", " + payload.Sys.Country
	}
	conditions := "conditions unknown"
	if len(payload.Weather) > 0 && payload.Weather[0].Description != "" {
		conditions = payload.Weather[0].Description
	}
	return fmt.Sprintf("Current weather in %s: %.1f°C (feels like %.1f°C), %s. Humidity %d%%, wind %.1f m/s.",
		place, payload.Main.Temp, payload.Main.FeelsLike, conditions, payload.Main.Humidity, payload.Wind.Speed), nil
}
