// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/rigrun-tools/internal/calc"
	"github.com/jeranaias/rigrun-tools/internal/offline"
	"github.com/jeranaias/rigrun-tools/internal/schedule"
)

// Default endpoints and limits for the network tools.
const (
	DefaultWeatherURL       = "https://api.openweathermap.org/data/2.5/weather"
	DefaultWikipediaURL     = "https://en.wikipedia.org/api/rest_v1"
	DefaultUserAgent        = "rigrun-tools/1.0 (+https://github.com/jeranaias/rigrun-tools)"
	DefaultRequestsPerMin   = 30
	maxResponseBytes        = 1 << 20
	defaultWeatherTTL       = 10 * time.Minute
	defaultWikipediaTTL     = 60 * time.Minute
	defaultSystemInfoTTL    = 30 * time.Second
	defaultSystemInfoBudget = 5 * time.Second
)

// WeatherConfig configures get_weather.
type WeatherConfig struct {
	APIKey  string
	BaseURL string
	// Units is the default unit system: metric, imperial or standard
	Units          string
	RequestsPerMin int
	TTL            time.Duration
	Timeout        time.Duration
}

// WikipediaConfig configures wiki_summary.
type WikipediaConfig struct {
	BaseURL        string
	RequestsPerMin int
	TTL            time.Duration
	Timeout        time.Duration
}

// Deps are the collaborators of the built-in tools. Zero fields get defaults.
type Deps struct {
	// Now is the clock for timestamps and due checks
	Now func() time.Time

	// Location interprets zone-less due times and study days
	Location *time.Location

	Evaluator calc.Evaluator

	HTTPClient *http.Client
	UserAgent  string
	Offline    offline.Policy

	Weather   WeatherConfig
	Wikipedia WikipediaConfig

	// System reports host metrics for system_info
	System SystemSampler
}

func (d *Deps) fill() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	if d.UserAgent == "" {
		d.UserAgent = DefaultUserAgent
	}
	if d.Weather.BaseURL == "" {
		d.Weather.BaseURL = DefaultWeatherURL
	}
	if d.Weather.Units == "" {
		d.Weather.Units = "metric"
	}
	if d.Weather.RequestsPerMin <= 0 {
		d.Weather.RequestsPerMin = DefaultRequestsPerMin
	}
	if d.Weather.TTL <= 0 {
		d.Weather.TTL = defaultWeatherTTL
	}
	if d.Wikipedia.BaseURL == "" {
		d.Wikipedia.BaseURL = DefaultWikipediaURL
	}
	if d.Wikipedia.RequestsPerMin <= 0 {
		d.Wikipedia.RequestsPerMin = DefaultRequestsPerMin
	}
	if d.Wikipedia.TTL <= 0 {
		d.Wikipedia.TTL = defaultWikipediaTTL
	}
	if d.System == nil {
		d.System = HostSampler{}
	}
}

// perMinute returns a limiter allowing n requests per minute with a burst of
// up to five.
func perMinute(n int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), min(n, 5))
}

// Builtins returns every built-in tool wired to deps.
func Builtins(deps Deps) []Entry {
	deps.fill()
	var out []Entry
	out = append(out, basicTools(deps)...)
	out = append(out, weatherTool(deps), wikiTool(deps), systemTool(deps))
	out = append(out, clockTools(deps)...)
	out = append(out, textTools()...)
	out = append(out, unitTool())
	out = append(out, noteTools(deps)...)
	out = append(out, todoTools(deps)...)
	out = append(out, reminderTools(deps)...)
	out = append(out, studyTools(deps)...)
	out = append(out, cardTools(deps)...)
	return out
}

// referenceTime returns the optional "at" argument or now.
func referenceTime(deps Deps, args Args) (time.Time, error) {
	at := args.String("at")
	if at == "" {
		return deps.Now(), nil
	}
	t, err := schedule.ParseDue(at, deps.Location)
	if err != nil {
		return time.Time{}, invalidArg("at", "%v", err)
	}
	return t, nil
}

// atParam is the optional reference time shared by the due tools.
var atParam = Parameter{
	Name:        "at",
	Type:        TypeString,
	Description: "Reference time (RFC 3339 or YYYY-MM-DD HH:MM); defaults to now",
}
