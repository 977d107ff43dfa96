package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Forecast is a daily forecast for the configured coordinates.
type Forecast struct {
	Days    int             `json:"days"`
	Summary []string        `json:"summary"`
	Raw     json.RawMessage `json:"raw"`
}

func (f Forecast) String() string {
	if len(f.Summary) == 0 {
		return fmt.Sprintf("Weather forecast for Versailles (%d days): no daily data", f.Days)
	}
	return fmt.Sprintf("Weather forecast for Versailles (%d days):\n%s", f.Days, strings.Join(f.Summary, "\n"))
}

// Forecast fetches n days of forecast. The API accepts 1 to 10 days.
func (c *Client) Forecast(ctx context.Context, days int) (Forecast, error) {
	if days < 1 || days > 10 {
		return Forecast{}, fmt.Errorf("%w: %d", ErrInvalidDays, days)
	}

	q := url.Values{}
	q.Set("key", c.config.APIKey)
	q.Set("location.latitude", strconv.FormatFloat(c.config.Latitude, 'f', -1, 64))
	q.Set("location.longitude", strconv.FormatFloat(c.config.Longitude, 'f', -1, 64))
	q.Set("days", strconv.Itoa(days))

	body, err := c.get(ctx, c.endpoint(c.config.WeatherURL, "/v1/forecast/days:lookup")+"?"+q.Encode())
	if err != nil {
		return Forecast{}, err
	}

	forecast := Forecast{Days: days, Raw: json.RawMessage(body)}
	gjson.GetBytes(body, "forecastDays").ForEach(func(_, day gjson.Result) bool {
		forecast.Summary = append(forecast.Summary, summarizeDay(day))
		return true
	})
	return forecast, nil
}

func summarizeDay(day gjson.Result) string {
	date := fmt.Sprintf("%04d-%02d-%02d",
		day.Get("displayDate.year").Int(),
		day.Get("displayDate.month").Int(),
		day.Get("displayDate.day").Int())

	condition := day.Get("daytimeForecast.weatherCondition.description.text").String()
	if condition == "" {
		condition = "unknown conditions"
	}

	line := fmt.Sprintf("%s: %s", date, condition)
	if lo, hi := day.Get("minTemperature.degrees"), day.Get("maxTemperature.degrees"); lo.Exists() && hi.Exists() {
		line += fmt.Sprintf(", %.0f-%.0f°C", lo.Float(), hi.Float())
	}
	if rain := day.Get("daytimeForecast.precipitation.probability.percent"); rain.Exists() {
		line += fmt.Sprintf(", rain %d%%", rain.Int())
	}
	return line
}
