// Package weather queries the OpenWeatherMap API for current conditions
// and short-term forecasts.
package weather

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > Weather module
   /weather [location]: current weather
   /forecast [location]: forecast for the next hours`

// baseURL is swapped out by the tests.
var baseURL = "https://api.openweathermap.org/data/2.5"

type weatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type forecastResponse struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	List []struct {
		DtTxt   string `json:"dt_txt"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
	} `json:"list"`
}

// Component talks to OpenWeatherMap.
type Component struct {
	inv      *dispatch.Invocation
	apiKey   string
	location string
	units    string
	client   *http.Client
}

// New fails with a missing-dependency error when no API key is configured,
// so the loop can answer with a single explanatory message.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	cfg := inv.Config.Components.Weather
	if cfg.APIKey == "" {
		return nil, &dispatch.MissingDependencyError{
			Component: "weather",
			Reason:    "no OpenWeatherMap API key configured",
		}
	}
	units := cfg.Units
	if units == "" {
		units = "metric"
	}
	return &Component{
		inv:      inv,
		apiKey:   cfg.APIKey,
		location: cfg.DefaultLocation,
		units:    units,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *Component) get(endpoint, location string, out any) error {
	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.apiKey)
	q.Set("units", c.units)
	resp, err := c.client.Get(fmt.Sprintf("%s/%s?%s", baseURL, endpoint, q.Encode()))
	if err != nil {
		return fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weather request failed: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Component) unitSymbol() string {
	if c.units == "imperial" {
		return "F"
	}
	return "C"
}

// Current formats the current weather at the given location.
func (c *Component) Current(location string) (string, error) {
	var w weatherResponse
	if err := c.get("weather", location, &w); err != nil {
		return "", err
	}
	desc := "unknown"
	if len(w.Weather) > 0 {
		desc = w.Weather[0].Description
	}
	return fmt.Sprintf("Weather in %s: %s\nTemperature: %.1f%s (feels like %.1f%s)\nHumidity: %d%%\nWind: %.1f m/s",
		w.Name, desc,
		w.Main.Temp, c.unitSymbol(), w.Main.FeelsLike, c.unitSymbol(),
		w.Main.Humidity, w.Wind.Speed), nil
}

// Forecast formats the next few forecast windows at the given location.
func (c *Component) Forecast(location string) (string, error) {
	var f forecastResponse
	if err := c.get("forecast", location, &f); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Forecast for %s:", f.City.Name)
	n := len(f.List)
	if n > 6 {
		n = 6
	}
	for _, entry := range f.List[:n] {
		desc := "unknown"
		if len(entry.Weather) > 0 {
			desc = entry.Weather[0].Description
		}
		fmt.Fprintf(&b, "\n%s: %.1f%s, %s", entry.DtTxt, entry.Main.Temp, c.unitSymbol(), desc)
	}
	return b.String(), nil
}

func (c *Component) resolveLocation(text string) (string, error) {
	location := strings.TrimSpace(text)
	if location == "" {
		location = c.location
	}
	if location == "" {
		return "", fmt.Errorf("no location given and no default configured")
	}
	return location, nil
}

// TelegramMessage handles /weather and /forecast.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	location, err := c.resolveLocation(msg.Text)
	if err != nil {
		return c.inv.Reply("Tell me where: /" + msg.Command + " <location>")
	}
	var report string
	if msg.Command == "forecast" {
		report, err = c.Forecast(location)
	} else {
		report, err = c.Current(location)
	}
	if err != nil {
		return c.inv.Reply(fmt.Sprintf("Could not get the weather for %s, sorry", location))
	}
	return c.inv.Reply(report)
}

// CommandLine sends the current weather at the default location to the
// operator, for use from cron.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	location, err := c.resolveLocation("")
	if err != nil {
		return err
	}
	report, err := c.Current(location)
	if err != nil {
		return err
	}
	return c.inv.Notify(report)
}
